package session

import "time"

// Session holds the persisted credentials of one browser context. The
// access and refresh tokens are written together or not at all.
type Session struct {
	ClientID     string    // Browser context the session belongs to
	AccessToken  string    // Access token from the identity service
	RefreshToken string    // Refresh token from the identity service
	UserData     string    // Full JSON body of the last login or refresh
	UpdatedAt    time.Time // Time of the last write
}

// Complete reports whether both tokens are present.
func (s Session) Complete() bool {
	return s.AccessToken != "" && s.RefreshToken != ""
}
