package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-playground/validator/v10"
)

var supportedSigAlgs = []jose.SignatureAlgorithm{
	jose.HS256, jose.HS384, jose.HS512,
	jose.RS256, jose.RS384, jose.RS512,
	jose.ES256, jose.ES384, jose.ES512,
	jose.PS256, jose.PS384, jose.PS512,
	jose.EdDSA,
}

// Validate checks the application specific sections of the configuration.
// The embedded base configuration is validated by the common SDK on load.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := v.RegisterValidation("jws_alg", validateJWSAlg); err != nil {
		return fmt.Errorf("registering jws_alg validator: %w", err)
	}

	sections := []any{&c.HTTP, &c.SessionStore, &c.Identity, &c.Posts, &c.UI, &c.Client.CookieTemplate, &c.TokenRefresher}
	for _, section := range sections {
		if err := v.Struct(section); err != nil {
			return formatValidationErrors(err)
		}
	}

	return c.validateSessionStore()
}

func (c *Config) validateSessionStore() error {
	switch c.SessionStore.Type {
	case SessionStoreValKey:
		if c.ValKey.Host.Source == "" {
			return errors.New("valkey.host is required for the valkey session store")
		}
	case SessionStorePostgres:
		if c.Database.Name == "" {
			return errors.New("database.name is required for the postgres session store")
		}
	}

	return nil
}

func validateJWSAlg(fl validator.FieldLevel) bool {
	return slices.Contains(supportedSigAlgs, jose.SignatureAlgorithm(fl.Field().String()))
}

func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		messages = append(messages, formatValidationError(e))
	}

	return errors.New(strings.Join(messages, "; "))
}

func formatValidationError(e validator.FieldError) string {
	field := e.Namespace()

	switch e.Tag() {
	case "required":
		return field + " is required"
	case "url":
		return field + " must be a valid URL"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "min", "gt":
		return fmt.Sprintf("%s must be greater than %s", field, e.Param())
	case "jws_alg":
		return fmt.Sprintf("%s is not a supported JWS algorithm: %v", field, e.Value())
	default:
		return fmt.Sprintf("%s failed validation: %s", field, e.Tag())
	}
}
