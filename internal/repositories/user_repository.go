package repositories

import (
	"context"

	"github.com/videotube/backend/internal/auth"
	"github.com/videotube/backend/internal/models"
)

// UserRepository defines the data access contract for users and their channels.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByLogin(ctx context.Context, username, email string) (models.User, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	UpdateAccount(ctx context.Context, userID string, update models.AccountUpdate) (models.User, error)
	UpdateAvatar(ctx context.Context, userID, url string) (models.User, error)
	UpdateCoverImage(ctx context.Context, userID, url string) (models.User, error)
	ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error)
	WatchHistory(ctx context.Context, userID string) ([]models.Video, error)

	auth.RefreshStore
}
