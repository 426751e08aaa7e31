//go:build integration

package repositories

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/cockroach-go/v2/testserver"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/videotube/backend/internal/auth"
	"github.com/videotube/backend/internal/models"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	server, err := testserver.NewTestServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "start cockroach test server: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, server.PGURL().String())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to cockroach test server: %v\n", err)
		server.Stop()
		os.Exit(1)
	}

	if err := applyMigrations(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "apply migrations: %v\n", err)
		pool.Close()
		server.Stop()
		os.Exit(1)
	}

	testPool = pool

	code := m.Run()

	pool.Close()
	server.Stop()

	os.Exit(code)
}

func TestPostgresUserRepository_CreateFindAndUpdate(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresUserRepository(testPool)
	user := createTestUser(t, repo, "alice")

	dup := newTestUser("alice")
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict when creating duplicate username, got %v", err)
	}

	fetched, err := repo.FindByLogin(ctx, "", user.Email)
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}
	if fetched.ID != user.ID || fetched.Password != user.Password {
		t.Fatalf("unexpected user fetched: %+v", fetched)
	}

	if _, err := repo.FindByLogin(ctx, "", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for empty identifiers, got %v", err)
	}

	name := "Alice Updated"
	updated, err := repo.UpdateAccount(ctx, user.ID, models.AccountUpdate{FullName: &name})
	if err != nil {
		t.Fatalf("update account: %v", err)
	}
	if updated.FullName != name || updated.Email != user.Email {
		t.Fatalf("expected only full name to change, got %+v", updated)
	}

	other := createTestUser(t, repo, "bob")
	if _, err := repo.UpdateAccount(ctx, other.ID, models.AccountUpdate{Email: &user.Email}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate email, got %v", err)
	}

	if err := repo.UpdatePassword(ctx, uuid.NewString(), "hash"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound updating missing user, got %v", err)
	}
}

func TestPostgresUserRepository_RefreshTokens(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresUserRepository(testPool)
	user := createTestUser(t, repo, "carol")

	if _, err := repo.RefreshToken(ctx, user.ID); !errors.Is(err, auth.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound before login, got %v", err)
	}

	if err := repo.SaveRefreshToken(ctx, user.ID, "token-1"); err != nil {
		t.Fatalf("save refresh token: %v", err)
	}
	token, err := repo.RefreshToken(ctx, user.ID)
	if err != nil || token != "token-1" {
		t.Fatalf("unexpected stored token %q (err %v)", token, err)
	}

	rotated, err := repo.RotateRefreshToken(ctx, user.ID, "token-1", "token-2")
	if err != nil || !rotated {
		t.Fatalf("expected rotation to succeed, got %v (err %v)", rotated, err)
	}
	rotated, err = repo.RotateRefreshToken(ctx, user.ID, "token-1", "token-3")
	if err != nil || rotated {
		t.Fatalf("expected stale rotation to be refused, got %v (err %v)", rotated, err)
	}
	if token, _ := repo.RefreshToken(ctx, user.ID); token != "token-2" {
		t.Fatalf("expected token-2 to remain active, got %q", token)
	}

	if err := repo.ClearRefreshToken(ctx, user.ID); err != nil {
		t.Fatalf("clear refresh token: %v", err)
	}
	if _, err := repo.RefreshToken(ctx, user.ID); !errors.Is(err, auth.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after clear, got %v", err)
	}
}

func TestPostgresVideoRepository_RecordViewCountsOnce(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	users := NewPostgresUserRepository(testPool)
	videos := NewPostgresVideoRepository(testPool)
	owner := createTestUser(t, users, "owner")
	viewer := createTestUser(t, users, "viewer")
	video := createTestVideo(t, videos, owner.ID, "Intro", true)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = videos.RecordView(ctx, video.ID, viewer.ID)
		}()
	}
	wg.Wait()

	fetched, err := videos.FindByID(ctx, video.ID)
	if err != nil {
		t.Fatalf("find video: %v", err)
	}
	if fetched.Views != 1 {
		t.Fatalf("expected exactly one counted view, got %d", fetched.Views)
	}

	history, err := users.WatchHistory(ctx, viewer.ID)
	if err != nil {
		t.Fatalf("watch history: %v", err)
	}
	if len(history) != 1 || history[0].ID != video.ID {
		t.Fatalf("unexpected history: %+v", history)
	}
	if history[0].Owner == nil || history[0].Owner.Username != owner.Username {
		t.Fatalf("expected owner summary on history entry, got %+v", history[0].Owner)
	}
}

func TestPostgresVideoRepository_ListExcludesDeletedAndHidden(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	users := NewPostgresUserRepository(testPool)
	videos := NewPostgresVideoRepository(testPool)
	owner := createTestUser(t, users, "owner")
	viewer := createTestUser(t, users, "viewer")

	visible := createTestVideo(t, videos, owner.ID, "Cooking 100% pasta", true)
	createTestVideo(t, videos, owner.ID, "Private draft", false)
	deleted := createTestVideo(t, videos, owner.ID, "Deleted cooking", true)
	if err := videos.SoftDelete(ctx, deleted.ID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	page, err := videos.List(ctx, models.VideoQuery{ViewerID: viewer.ID, Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("list videos: %v", err)
	}
	if len(page.Videos) != 1 || page.Videos[0].ID != visible.ID || page.Pagination.TotalVideos != 1 {
		t.Fatalf("unexpected page for viewer: %+v", page)
	}

	page, err = videos.List(ctx, models.VideoQuery{ViewerID: owner.ID, Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("list videos as owner: %v", err)
	}
	if page.Pagination.TotalVideos != 2 {
		t.Fatalf("expected owner to see published and unpublished videos, got %d", page.Pagination.TotalVideos)
	}

	page, err = videos.List(ctx, models.VideoQuery{ViewerID: viewer.ID, Search: "100%", Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("search videos: %v", err)
	}
	if len(page.Videos) != 1 {
		t.Fatalf("expected literal percent search to match one video, got %d", len(page.Videos))
	}

	if _, err := videos.FindByID(ctx, deleted.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for soft-deleted video, got %v", err)
	}

	published, err := videos.TogglePublish(ctx, visible.ID)
	if err != nil || published {
		t.Fatalf("expected toggle to unpublish, got %v (err %v)", published, err)
	}
}

func TestPostgresLikeRepository_ToggleTwiceLeavesNoRecord(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	users := NewPostgresUserRepository(testPool)
	videos := NewPostgresVideoRepository(testPool)
	likes := NewPostgresLikeRepository(testPool)
	owner := createTestUser(t, users, "owner")
	video := createTestVideo(t, videos, owner.ID, "Likeable", true)

	like := models.Like{ID: uuid.NewString(), LikedBy: owner.ID, TargetType: models.LikeTargetVideo, TargetID: video.ID, CreatedAt: time.Now().UTC()}
	liked, err := likes.Toggle(ctx, like)
	if err != nil || !liked {
		t.Fatalf("expected first toggle to like, got %v (err %v)", liked, err)
	}

	liked, err = likes.Toggle(ctx, like)
	if err != nil || liked {
		t.Fatalf("expected second toggle to unlike, got %v (err %v)", liked, err)
	}

	var count int
	if err := testPool.QueryRow(ctx, `SELECT COUNT(*) FROM likes`).Scan(&count); err != nil {
		t.Fatalf("count likes: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected zero like records, got %d", count)
	}
}

func TestPostgresPlaylistRepository_AddIsIdempotent(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	users := NewPostgresUserRepository(testPool)
	videos := NewPostgresVideoRepository(testPool)
	playlists := NewPostgresPlaylistRepository(testPool)
	owner := createTestUser(t, users, "owner")
	video := createTestVideo(t, videos, owner.ID, "Member", true)

	playlist := models.Playlist{ID: uuid.NewString(), Name: "Favourites", OwnerID: owner.ID, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	if err := playlists.Create(ctx, playlist); err != nil {
		t.Fatalf("create playlist: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := playlists.AddVideo(ctx, playlist.ID, video.ID); err != nil {
			t.Fatalf("add video: %v", err)
		}
	}

	fetched, err := playlists.FindByID(ctx, playlist.ID)
	if err != nil {
		t.Fatalf("find playlist: %v", err)
	}
	if len(fetched.Videos) != 1 || fetched.Videos[0] != video.ID {
		t.Fatalf("expected a single membership, got %v", fetched.Videos)
	}

	if err := playlists.AddVideo(ctx, playlist.ID, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown video, got %v", err)
	}
}

func TestPostgresPlaylistRepository_HidesSoftDeletedMembers(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	users := NewPostgresUserRepository(testPool)
	videos := NewPostgresVideoRepository(testPool)
	playlists := NewPostgresPlaylistRepository(testPool)
	owner := createTestUser(t, users, "curator")
	kept := createTestVideo(t, videos, owner.ID, "Kept", true)
	removed := createTestVideo(t, videos, owner.ID, "Removed", true)

	playlist := models.Playlist{ID: uuid.NewString(), Name: "Mix", OwnerID: owner.ID, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	if err := playlists.Create(ctx, playlist); err != nil {
		t.Fatalf("create playlist: %v", err)
	}
	for _, id := range []string{kept.ID, removed.ID} {
		if err := playlists.AddVideo(ctx, playlist.ID, id); err != nil {
			t.Fatalf("add video: %v", err)
		}
	}
	if err := videos.SoftDelete(ctx, removed.ID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	fetched, err := playlists.FindByID(ctx, playlist.ID)
	if err != nil {
		t.Fatalf("find playlist: %v", err)
	}
	if len(fetched.Videos) != 1 || fetched.Videos[0] != kept.ID {
		t.Fatalf("expected only the live member, got %v", fetched.Videos)
	}

	owned, err := playlists.ListByOwner(ctx, owner.ID)
	if err != nil {
		t.Fatalf("list playlists: %v", err)
	}
	if len(owned) != 1 || len(owned[0].Videos) != 1 || owned[0].Videos[0] != kept.ID {
		t.Fatalf("expected listing to hide the deleted member, got %+v", owned)
	}
}

func TestPostgresDashboardRepository_ChannelStats(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	users := NewPostgresUserRepository(testPool)
	videos := NewPostgresVideoRepository(testPool)
	subs := NewPostgresSubscriptionRepository(testPool)
	owner := createTestUser(t, users, "owner")
	fan := createTestUser(t, users, "fan")
	video := createTestVideo(t, videos, owner.ID, "Stats", true)

	if _, err := videos.RecordView(ctx, video.ID, fan.ID); err != nil {
		t.Fatalf("record view: %v", err)
	}
	if _, err := subs.Toggle(ctx, models.Subscription{ID: uuid.NewString(), SubscriberID: fan.ID, ChannelID: owner.ID, CreatedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	stats, err := NewPostgresDashboardRepository(testPool).ChannelStats(ctx, owner.ID)
	if err != nil {
		t.Fatalf("channel stats: %v", err)
	}
	want := models.ChannelStats{TotalSubscribers: 1, TotalVideos: 1, TotalViews: 1}
	if stats != want {
		t.Fatalf("unexpected stats: got %+v want %+v", stats, want)
	}
}

func applyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrationsDir := filepath.Join("..", "..", "migrations")
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		contents, err := os.ReadFile(filepath.Join(migrationsDir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}

		if _, err := pool.Exec(ctx, string(contents)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
	}

	return nil
}

func resetDatabase(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	conn, err := testPool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire connection: %v", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `TRUNCATE TABLE playlist_videos, playlists, likes, comments, tweets,
        subscriptions, watch_history, videos, users CASCADE`); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}

func newTestUser(username string) models.User {
	now := time.Now().UTC()
	return models.User{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     username + "-" + uuid.NewString()[:8] + "@example.com",
		FullName:  username,
		Avatar:    "https://cdn.example.com/" + username + ".png",
		Password:  "password-hash",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func createTestUser(t *testing.T, repo *PostgresUserRepository, username string) models.User {
	t.Helper()
	user := newTestUser(username)
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("create test user: %v", err)
	}
	return user
}

func createTestVideo(t *testing.T, repo *PostgresVideoRepository, ownerID, title string, published bool) models.Video {
	t.Helper()
	now := time.Now().UTC()
	video := models.Video{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Title:       title,
		VideoFile:   "https://cdn.example.com/videos/" + uuid.NewString() + ".mp4",
		Duration:    12.5,
		IsPublished: published,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := repo.Create(context.Background(), video); err != nil {
		t.Fatalf("create test video: %v", err)
	}
	return video
}
