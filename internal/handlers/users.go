package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/videotube/backend/internal/auth"
	"github.com/videotube/backend/internal/config"
	"github.com/videotube/backend/internal/events"
	"github.com/videotube/backend/internal/logging"
	"github.com/videotube/backend/internal/media"
	"github.com/videotube/backend/internal/models"
	"github.com/videotube/backend/internal/repositories"
)

// UserHandler implements account, session and channel profile endpoints.
type UserHandler struct {
	Users    UserStore
	Sessions SessionManager
	Uploader MediaUploader
	Events   EventPublisher
	Limiter  RateLimiter
	Cookies  config.CookieConfig
	Staging  Staging
	NowFunc  func() time.Time

	// TrustedProxies are the peers allowed to report the client address in forwarded headers.
	TrustedProxies []netip.Prefix
}

type registerRequest struct {
	FullName string `json:"fullName" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required_without=Email"`
	Email    string `json:"email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8"`
}

type updateAccountRequest struct {
	FullName *string `json:"fullName"`
	Email    *string `json:"email"`
}

type loginResponse struct {
	User         models.User `json:"user"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Register handles POST /api/v1/users/register.
func (h UserHandler) Register(w http.ResponseWriter, r *http.Request) error {
	if err := throttle(h.Limiter, h.TrustedProxies, r, "register", "registration"); err != nil {
		return err
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	cleanup, err := h.Staging.parseMultipart(w, r)
	defer cleanup()
	if err != nil {
		return err
	}

	req := registerRequest{
		FullName: formValue(r, "fullName"),
		Email:    strings.ToLower(formValue(r, "email")),
		Username: strings.ToLower(formValue(r, "username")),
		Password: r.FormValue("password"),
	}
	if err := validateRequest(req); err != nil {
		return err
	}

	if _, err := h.Users.FindByLogin(ctx, req.Username, req.Email); err == nil {
		logger.Warn("register existing account", "username", req.Username, "email", req.Email)
		return conflict("user with email or username already exists")
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return err
	}

	avatarPath, err := h.Staging.stage(r, "avatar")
	if err != nil {
		return err
	}
	coverPath, err := h.Staging.stage(r, "coverImage")
	if err != nil {
		discard(avatarPath)
		return err
	}
	if avatarPath == "" {
		discard(coverPath)
		return badRequest("avatar file is required")
	}

	avatar, err := h.Uploader.Upload(ctx, avatarPath)
	if err != nil {
		discard(coverPath)
		logger.Warn("avatar upload failed", "error", err)
		return badRequest("failed to upload avatar")
	}

	var cover media.Asset
	if coverPath != "" {
		cover, err = h.Uploader.Upload(ctx, coverPath)
		if err != nil {
			logger.Warn("cover image upload failed", "error", err)
		}
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		discardAssets(ctx, h.Uploader, avatar, cover)
		return err
	}

	now := h.now()
	user := models.User{
		ID:         uuid.NewString(),
		Username:   req.Username,
		Email:      req.Email,
		FullName:   req.FullName,
		Avatar:     avatar.URL,
		CoverImage: cover.URL,
		Password:   string(hashed),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := h.Users.Create(ctx, user); err != nil {
		discardAssets(ctx, h.Uploader, avatar, cover)
		if errors.Is(err, repositories.ErrConflict) {
			return conflict("user with email or username already exists")
		}
		return err
	}

	publishEvent(ctx, h.Events, events.SubjectUserRegistered, events.UserRegistered{
		UserID:    user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Timestamp: events.Timestamp(now),
	})

	return respond(w, r, http.StatusCreated, user, "user registered successfully")
}

// Login handles POST /api/v1/users/login.
func (h UserHandler) Login(w http.ResponseWriter, r *http.Request) error {
	if err := throttle(h.Limiter, h.TrustedProxies, r, "login", "login"); err != nil {
		return err
	}

	ctx := r.Context()

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validateRequest(req); err != nil {
		return err
	}

	user, err := h.Users.FindByLogin(ctx, req.Username, req.Email)
	if err != nil {
		return lookupError(err, "user does not exist")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		logging.FromContext(ctx).Warn("login password mismatch", "userId", user.ID)
		return unauthorized("invalid user credentials")
	}

	tokens, err := h.Sessions.Issue(ctx, user.ID)
	if err != nil {
		return err
	}

	h.setSessionCookies(w, tokens)
	return respond(w, r, http.StatusOK, loginResponse{
		User:         user,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, "user logged in successfully")
}

// Logout handles POST /api/v1/users/logout.
func (h UserHandler) Logout(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}
	if err := h.Sessions.Revoke(r.Context(), user.ID); err != nil {
		return err
	}

	h.clearSessionCookies(w)
	return respond(w, r, http.StatusOK, struct{}{}, "user logged out")
}

// RefreshToken handles POST /api/v1/users/refresh-token. The token is read from the
// refresh cookie first and the JSON body second.
func (h UserHandler) RefreshToken(w http.ResponseWriter, r *http.Request) error {
	if err := throttle(h.Limiter, h.TrustedProxies, r, "refresh", "refresh"); err != nil {
		return err
	}

	ctx := r.Context()

	var token string
	if cookie, err := r.Cookie(refreshTokenCookie); err == nil {
		token = strings.TrimSpace(cookie.Value)
	}
	if token == "" && r.ContentLength != 0 {
		var req refreshRequest
		if err := decodeJSON(r, &req); err != nil {
			return err
		}
		token = strings.TrimSpace(req.RefreshToken)
	}
	if token == "" {
		return unauthorized("refresh token is required")
	}

	tokens, err := h.Sessions.Refresh(ctx, token)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrRefreshTokenExpired),
			errors.Is(err, auth.ErrRefreshTokenReused),
			errors.Is(err, auth.ErrInvalidToken),
			errors.Is(err, auth.ErrSessionNotFound):
			logging.FromContext(ctx).Warn("refresh rejected", "error", err)
			return unauthorized("refresh token is expired or used")
		default:
			return err
		}
	}

	h.setSessionCookies(w, tokens)
	return respond(w, r, http.StatusOK, tokenResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, "access token refreshed")
}

// ChangePassword handles POST /api/v1/users/change-password.
func (h UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	if err := validateRequest(req); err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.OldPassword)); err != nil {
		return badRequest("invalid old password")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := h.Users.UpdatePassword(r.Context(), user.ID, string(hashed)); err != nil {
		return lookupError(err, "user does not exist")
	}

	return respond(w, r, http.StatusOK, struct{}{}, "password changed successfully")
}

// CurrentUser handles GET /api/v1/users/current-user.
func (h UserHandler) CurrentUser(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}
	return respond(w, r, http.StatusOK, user, "current user fetched successfully")
}

// UpdateAccount handles PATCH /api/v1/users/update-account.
func (h UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}

	var req updateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	if req.FullName == nil && req.Email == nil {
		return badRequest("fullName or email is required")
	}

	var update models.AccountUpdate
	if req.FullName != nil {
		fullName := strings.TrimSpace(*req.FullName)
		if fullName == "" {
			return badRequest("validation failed", "fullName must not be blank")
		}
		update.FullName = &fullName
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if err := validate.Var(email, "required,email"); err != nil {
			return badRequest("validation failed", "email must be a valid email address")
		}
		update.Email = &email
	}

	updated, err := h.Users.UpdateAccount(r.Context(), user.ID, update)
	if err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return conflict("email is already in use")
		}
		return lookupError(err, "user does not exist")
	}

	return respond(w, r, http.StatusOK, updated, "account details updated successfully")
}

// UpdateAvatar handles PATCH /api/v1/users/avatar.
func (h UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) error {
	return h.updateImage(w, r, "avatar", h.Users.UpdateAvatar)
}

// UpdateCoverImage handles PATCH /api/v1/users/cover-image.
func (h UserHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) error {
	return h.updateImage(w, r, "coverImage", h.Users.UpdateCoverImage)
}

type imageSaver func(ctx context.Context, userID, url string) (models.User, error)

func (h UserHandler) updateImage(w http.ResponseWriter, r *http.Request, field string, save imageSaver) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}

	cleanup, err := h.Staging.parseMultipart(w, r)
	defer cleanup()
	if err != nil {
		return err
	}

	path, err := h.Staging.stage(r, field)
	if err != nil {
		return err
	}
	if path == "" {
		return badRequest(field + " file is missing")
	}

	ctx := r.Context()
	asset, err := h.Uploader.Upload(ctx, path)
	if err != nil {
		logging.FromContext(ctx).Warn("image upload failed", "field", field, "error", err)
		return badRequest("failed to upload " + field)
	}

	updated, err := save(ctx, user.ID, asset.URL)
	if err != nil {
		discardAssets(ctx, h.Uploader, asset)
		return lookupError(err, "user does not exist")
	}
	return respond(w, r, http.StatusOK, updated, field+" updated successfully")
}

// ChannelProfile handles GET /api/v1/users/c/{username}.
func (h UserHandler) ChannelProfile(w http.ResponseWriter, r *http.Request) error {
	viewer, err := currentUser(r)
	if err != nil {
		return err
	}

	username := strings.ToLower(strings.TrimSpace(r.PathValue("username")))
	if username == "" {
		return badRequest("username is missing")
	}

	profile, err := h.Users.ChannelProfile(r.Context(), username, viewer.ID)
	if err != nil {
		return lookupError(err, "channel does not exist")
	}
	return respond(w, r, http.StatusOK, profile, "user channel fetched successfully")
}

// WatchHistory handles GET /api/v1/users/history.
func (h UserHandler) WatchHistory(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}

	history, err := h.Users.WatchHistory(r.Context(), user.ID)
	if err != nil {
		return err
	}
	return respond(w, r, http.StatusOK, history, "watch history fetched successfully")
}

func (h UserHandler) setSessionCookies(w http.ResponseWriter, tokens models.SessionTokens) {
	http.SetCookie(w, h.cookie(accessTokenCookie, tokens.AccessToken, tokens.AccessExpiresAt))
	http.SetCookie(w, h.cookie(refreshTokenCookie, tokens.RefreshToken, tokens.RefreshExpiresAt))
}

func (h UserHandler) clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{accessTokenCookie, refreshTokenCookie} {
		cookie := h.cookie(name, "", time.Time{})
		cookie.MaxAge = -1
		http.SetCookie(w, cookie)
	}
}

func (h UserHandler) cookie(name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   h.Cookies.Domain,
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.Cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (h UserHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
