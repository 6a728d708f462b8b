package models

import "time"

type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

// RefreshResponse is the body returned by the refresh endpoint. Refresh is only
// present when the server rotates the refresh credential.
type RefreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// Credentials is the pair handed over by the external login flow.
type Credentials struct {
	Access  string `json:"access" binding:"required"`
	Refresh string `json:"refresh"`
}

type TokenInfo struct {
	Opaque    bool       `json:"opaque"`
	Subject   string     `json:"subject,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the token carries an expiry that has already passed.
func (ti *TokenInfo) Expired(now time.Time) bool {
	return ti.ExpiresAt != nil && !now.Before(*ti.ExpiresAt)
}

type SessionStatus struct {
	Authenticated bool       `json:"authenticated"`
	HasRefresh    bool       `json:"has_refresh"`
	AccessExpired bool       `json:"access_expired,omitempty"`
	Access        *TokenInfo `json:"access,omitempty"`
}
