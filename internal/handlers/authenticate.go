package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/videotube/backend/internal/logging"
	"github.com/videotube/backend/internal/models"
	"github.com/videotube/backend/internal/repositories"
)

const (
	accessTokenCookie  = "accessToken"
	refreshTokenCookie = "refreshToken"
)

type currentUserKey struct{}

// Authenticator verifies access tokens and attaches the resolved user to the request.
type Authenticator struct {
	Sessions SessionManager
	Users    UserStore
}

// Require rejects requests without a valid access token with 401.
func (a Authenticator) Require(next http.Handler) http.Handler {
	return handle(func(w http.ResponseWriter, r *http.Request) error {
		ctx := r.Context()
		if a.Sessions == nil || a.Users == nil {
			logging.FromContext(ctx).Error("authentication dependencies unavailable", "hasSessions", a.Sessions != nil, "hasUsers", a.Users != nil)
			return newAPIError(http.StatusInternalServerError, "authentication services unavailable")
		}

		token := accessToken(r)
		if token == "" {
			return unauthorized("unauthorized request")
		}

		userID, err := a.Sessions.Verify(token)
		if err != nil {
			logging.FromContext(ctx).Warn("access token rejected", "error", err)
			return unauthorized("invalid or expired access token")
		}

		user, err := a.Users.FindByID(ctx, userID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return unauthorized("invalid access token")
			}
			return err
		}

		ctx = context.WithValue(ctx, currentUserKey{}, user)
		ctx = logging.WithUserID(ctx, user.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
		return nil
	})
}

func accessToken(r *http.Request) string {
	if cookie, err := r.Cookie(accessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// currentUser returns the identity attached by Authenticator.Require.
func currentUser(r *http.Request) (models.User, error) {
	user, ok := r.Context().Value(currentUserKey{}).(models.User)
	if !ok || user.ID == "" {
		return models.User{}, unauthorized("unauthorized request")
	}
	return user, nil
}
