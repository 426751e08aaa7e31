package handlers

import (
	"net/http"
	"testing"

	"github.com/videotube/backend/internal/models"
)

func TestDashboardStatsAreCachedAndInvalidated(t *testing.T) {
	env := newTestEnv(t)
	_, aliceToken := env.signUp("alice")
	_, bobToken := env.signUp("bob")
	video := env.publishVideo(aliceToken, "Popular", true)
	env.publishVideo(aliceToken, "Hidden", false)

	expectStatus(t, env.do(http.MethodGet, "/api/v1/videos/"+video.ID, bobToken, nil), http.StatusOK)
	expectStatus(t, env.do(http.MethodPost, "/api/v1/likes/toggle/v/"+video.ID, bobToken, nil), http.StatusOK)

	stats := decodeData[models.ChannelStats](t, env.do(http.MethodGet, "/api/v1/dashboard/stats", aliceToken, nil))
	want := models.ChannelStats{TotalSubscribers: 0, TotalVideos: 2, TotalViews: 1, TotalLikes: 1}
	if stats != want {
		t.Fatalf("expected %+v got %+v", want, stats)
	}

	decodeData[models.ChannelStats](t, env.do(http.MethodGet, "/api/v1/dashboard/stats", aliceToken, nil))
	if env.db.statsQueries != 1 {
		t.Fatalf("expected the second read to be served from cache, got %d queries", env.db.statsQueries)
	}

	expectStatus(t, env.do(http.MethodDelete, "/api/v1/videos/"+video.ID, aliceToken, nil), http.StatusOK)
	stats = decodeData[models.ChannelStats](t, env.do(http.MethodGet, "/api/v1/dashboard/stats", aliceToken, nil))
	if env.db.statsQueries != 2 || stats.TotalVideos != 1 || stats.TotalViews != 0 || stats.TotalLikes != 0 {
		t.Fatalf("expected recomputed stats after delete, got %+v (%d queries)", stats, env.db.statsQueries)
	}
}

func TestDashboardChannelVideos(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.signUp("alice")
	for _, title := range []string{"a", "b", "c"} {
		env.publishVideo(token, title, title != "b")
	}

	rec := env.do(http.MethodGet, "/api/v1/dashboard/videos?limit=2", token, nil)
	expectStatus(t, rec, http.StatusOK)
	resp := decodeData[channelVideosResponse](t, rec)
	if len(resp.Videos) != 2 || resp.TotalVideos != 3 || resp.TotalPages != 2 || resp.CurrentPage != 1 {
		t.Fatalf("unexpected channel videos %+v", resp)
	}
}
