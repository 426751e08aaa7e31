package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/videotube/backend/internal/models"
)

var (
	// ErrSessionNotFound indicates the user has no active refresh token.
	ErrSessionNotFound = errors.New("session not found")
	// ErrRefreshTokenExpired indicates the refresh token has expired and cannot be used.
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	// ErrRefreshTokenReused indicates a signature-valid refresh token that is no longer the stored one.
	ErrRefreshTokenReused = errors.New("refresh token is expired or used")
	// ErrAccessTokenExpired indicates the access token has expired.
	ErrAccessTokenExpired = errors.New("access token expired")
	// ErrInvalidToken indicates a token that failed signature or claim validation.
	ErrInvalidToken = errors.New("invalid token")
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// RefreshStore persists the single active refresh token of each user.
// RotateRefreshToken replaces old with next only when old is still the stored token,
// reporting whether the swap happened.
type RefreshStore interface {
	SaveRefreshToken(ctx context.Context, userID, token string) error
	RotateRefreshToken(ctx context.Context, userID, old, next string) (bool, error)
	ClearRefreshToken(ctx context.Context, userID string) error
}

// Claims are the JWT claims carried by both token kinds.
type Claims struct {
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// Options configures token signing and lifetimes.
type Options struct {
	AccessSecret  string
	AccessTTL     time.Duration
	RefreshSecret string
	RefreshTTL    time.Duration
	// Now overrides the clock; defaults to time.Now.
	Now func() time.Time
}

// Manager issues, verifies and rotates signed session tokens. Refresh tokens are
// single-use: rotation replaces the stored token so an older one is rejected.
type Manager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time

	store RefreshStore
}

// NewManager constructs a Manager backed by the provided refresh token store.
func NewManager(opts Options, store RefreshStore) *Manager {
	if store == nil {
		panic("auth: refresh store must not be nil")
	}
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = 15 * time.Minute
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = 24 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		accessSecret:  []byte(opts.AccessSecret),
		refreshSecret: []byte(opts.RefreshSecret),
		accessTTL:     opts.AccessTTL,
		refreshTTL:    opts.RefreshTTL,
		now:           opts.Now,
		store:         store,
	}
}

// Issue creates a new pair of access and refresh tokens for the user and records the
// refresh token as the user's only active one.
func (m *Manager) Issue(ctx context.Context, userID string) (models.SessionTokens, error) {
	if userID == "" {
		return models.SessionTokens{}, errors.New("user id must be provided")
	}

	tokens, err := m.newPair(userID)
	if err != nil {
		return models.SessionTokens{}, err
	}
	if err := m.store.SaveRefreshToken(ctx, userID, tokens.RefreshToken); err != nil {
		return models.SessionTokens{}, fmt.Errorf("store refresh token: %w", err)
	}
	return tokens, nil
}

func (m *Manager) newPair(userID string) (models.SessionTokens, error) {
	now := m.now().UTC()
	tokens := models.SessionTokens{
		AccessExpiresAt:  now.Add(m.accessTTL),
		RefreshExpiresAt: now.Add(m.refreshTTL),
	}

	var err error
	tokens.AccessToken, err = m.sign(userID, tokenTypeAccess, now, tokens.AccessExpiresAt, m.accessSecret)
	if err != nil {
		return models.SessionTokens{}, err
	}
	tokens.RefreshToken, err = m.sign(userID, tokenTypeRefresh, now, tokens.RefreshExpiresAt, m.refreshSecret)
	if err != nil {
		return models.SessionTokens{}, err
	}
	return tokens, nil
}

// Refresh exchanges a refresh token for a new token pair. The token must be signature
// valid, unexpired and equal to the token currently stored for its user. Of several
// concurrent calls presenting the same token, at most one succeeds.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error) {
	if refreshToken == "" {
		return models.SessionTokens{}, ErrSessionNotFound
	}

	claims, err := m.parse(refreshToken, m.refreshSecret, tokenTypeRefresh)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return models.SessionTokens{}, ErrRefreshTokenExpired
		}
		return models.SessionTokens{}, ErrInvalidToken
	}

	tokens, err := m.newPair(claims.Subject)
	if err != nil {
		return models.SessionTokens{}, err
	}
	rotated, err := m.store.RotateRefreshToken(ctx, claims.Subject, refreshToken, tokens.RefreshToken)
	if err != nil {
		return models.SessionTokens{}, fmt.Errorf("rotate refresh token: %w", err)
	}
	if !rotated {
		return models.SessionTokens{}, ErrRefreshTokenReused
	}
	return tokens, nil
}

// Verify validates an access token and returns the user identifier it was issued for.
func (m *Manager) Verify(accessToken string) (string, error) {
	claims, err := m.parse(accessToken, m.accessSecret, tokenTypeAccess)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrAccessTokenExpired
		}
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// Revoke removes the user's stored refresh token.
func (m *Manager) Revoke(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	return m.store.ClearRefreshToken(ctx, userID)
}

func (m *Manager) sign(userID, tokenType string, issuedAt, expiresAt time.Time, secret []byte) (string, error) {
	claims := Claims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

func (m *Manager) parse(token string, secret []byte, tokenType string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, err
	}
	if claims.TokenType != tokenType || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
