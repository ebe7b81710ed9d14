package config

import (
	"fmt"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/valkey-io/valkey-go"
)

// MakeConnStr builds a PostgreSQL key/value connection string, resolving
// the host and credentials from their source references.
func MakeConnStr(conf Database) (string, error) {
	host, err := commoncfg.LoadValueFromSourceRef(conf.Host)
	if err != nil {
		return "", fmt.Errorf("loading db host: %w", err)
	}

	user, err := commoncfg.LoadValueFromSourceRef(conf.User)
	if err != nil {
		return "", fmt.Errorf("loading db user: %w", err)
	}

	password, err := commoncfg.LoadValueFromSourceRef(conf.Password)
	if err != nil {
		return "", fmt.Errorf("loading db password: %w", err)
	}

	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s",
		host, user, string(password), conf.Name, conf.Port), nil
}

// MakeValKeyOption resolves the ValKey address and credentials into client
// options. The credentials are optional.
func MakeValKeyOption(conf ValKey) (valkey.ClientOption, error) {
	host, err := commoncfg.LoadValueFromSourceRef(conf.Host)
	if err != nil {
		return valkey.ClientOption{}, fmt.Errorf("loading valkey host: %w", err)
	}

	opt := valkey.ClientOption{
		InitAddress: []string{string(host)},
	}

	if conf.User.Source != "" {
		user, err := commoncfg.LoadValueFromSourceRef(conf.User)
		if err != nil {
			return valkey.ClientOption{}, fmt.Errorf("loading valkey username: %w", err)
		}

		opt.Username = string(user)
	}

	if conf.Password.Source != "" {
		password, err := commoncfg.LoadValueFromSourceRef(conf.Password)
		if err != nil {
			return valkey.ClientOption{}, fmt.Errorf("loading valkey password: %w", err)
		}

		opt.Password = string(password)
	}

	return opt, nil
}
