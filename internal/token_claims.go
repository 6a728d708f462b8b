package internal

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/golang-jwt/jwt/v5"

	"github.com/rm-hull/authfetch/internal/models"
)

// InspectAccessToken reads the subject and expiry out of a JWT access
// credential. The signature is not checked: only the server can do that.
// Tokens that are not JWTs are reported as opaque.
func InspectAccessToken(token string) *models.TokenInfo {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return &models.TokenInfo{Opaque: true}
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return &models.TokenInfo{Opaque: true}
	}

	info := &models.TokenInfo{}
	if sub, err := claims.GetSubject(); err == nil {
		info.Subject = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		t := exp.UTC()
		info.ExpiresAt = &t
	}
	return info
}

func GetSessionStatus(ctx context.Context, store SessionStore) (*models.SessionStatus, error) {
	access, err := store.Get(ctx, AccessSlot)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read access credential")
	}
	refresh, err := store.Get(ctx, RefreshSlot)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read refresh credential")
	}

	status := &models.SessionStatus{
		Authenticated: access != "",
		HasRefresh:    refresh != "",
	}
	if access != "" {
		status.Access = InspectAccessToken(access)
		status.AccessExpired = status.Access.Expired(time.Now())
	}
	return status, nil
}
