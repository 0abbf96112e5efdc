package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/flowscan/batchload/internal/model"
	"github.com/flowscan/batchload/internal/resolver"
	"github.com/flowscan/batchload/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type response[T any] struct {
	Data    T       `json:"data"`
	Missing []int64 `json:"missing"`
	Error   string  `json:"error"`
}

func newTestServer(t *testing.T) (*Server, *store.Memory) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	seed, err := store.LoadSeed("testdata/seed.yaml")
	require.NoError(t, err)
	s := store.NewMemory(seed)

	nop := zerolog.Nop()
	srv, err := NewServer(s, Config{
		Loaders:  resolver.Options{Logger: &nop},
		Registry: prometheus.NewRegistry(),
		Logger:   nop,
	})
	require.NoError(t, err)
	return srv, s
}

func get[T any](t *testing.T, srv *Server, path string) (int, response[T]) {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var body response[T]
	if rec.Code != http.StatusNotFound {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	}
	return rec.Code, body
}

func TestPosts(t *testing.T) {
	srv, s := newTestServer(t)

	code, body := get[[]item[model.PostView]](t, srv, "/api/posts?ids=20,10,30,404,10")
	require.Equal(t, http.StatusOK, code)
	require.Len(t, body.Data, 5)

	assert.Equal(t, int64(20), body.Data[0].ID)
	assert.Equal(t, "bob", body.Data[0].Value.Author.Username)
	assert.Equal(t, "ada", body.Data[1].Value.Author.Username)
	assert.Equal(t, int64(2), body.Data[1].Value.LikeCount)
	require.Len(t, body.Data[1].Value.Mentions, 1)
	assert.Equal(t, "cyd", body.Data[1].Value.Mentions[0].Username)

	// dangling author and unknown id are reported per id
	assert.Nil(t, body.Data[2].Value)
	assert.Contains(t, body.Data[2].Error, "author 99 does not exist")
	assert.Nil(t, body.Data[3].Value)
	assert.NotEmpty(t, body.Data[3].Error)
	assert.Equal(t, body.Data[1], body.Data[4])

	assert.Equal(t, [][]int64{{20, 10, 30, 404}}, s.Requests("FindPosts"))
	assert.Equal(t, 1, s.Calls("FindUsers"))
}

func TestBuyers(t *testing.T) {
	srv, s := newTestServer(t)

	code, body := get[[]item[model.BuyerView]](t, srv, "/api/buyers?ids=1,2,5")
	require.Equal(t, http.StatusOK, code)
	require.Len(t, body.Data, 3)
	require.NotNil(t, body.Data[0].Value)
	assert.Equal(t, "bob", body.Data[0].Value.User.Username)
	assert.Nil(t, body.Data[1].Value)
	assert.Contains(t, body.Data[1].Error, "user 99 does not exist")
	assert.Nil(t, body.Data[2].Value)
	assert.NotEmpty(t, body.Data[2].Error)
	assert.Equal(t, [][]int64{{1, 2, 5}}, s.Requests("FindBuyers"))
}

func TestStoreFailure(t *testing.T) {
	srv, s := newTestServer(t)
	s.Fail("FindUsers", errors.New("connection refused"))

	code, body := get[any](t, srv, "/api/posts?ids=10,20")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "entity store unavailable", body.Error)
}

func TestBadRequest(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{
		"/api/users",
		"/api/users?ids=1,x",
		"/api/users?ids=-1",
		"/api/users/1/relationship",
		"/api/users/abc/relationship?requester=1",
		"/api/feed?ids=10",
	} {
		code, body := get[any](t, srv, path)
		assert.Equal(t, http.StatusBadRequest, code, path)
		assert.NotEmpty(t, body.Error, path)
	}
}

func TestBanners(t *testing.T) {
	srv, _ := newTestServer(t)

	code, body := get[[]model.BannerView](t, srv, "/api/banners?ids=3,1,2,9")
	require.Equal(t, http.StatusOK, code)

	var ids []int64
	for _, b := range body.Data {
		ids = append(ids, b.ID)
	}
	assert.Equal(t, []int64{2, 1, 3}, ids)
	assert.Equal(t, 0.0, body.Data[2].Score)
	assert.Equal(t, []int64{9}, body.Missing)
}

func TestRelationship(t *testing.T) {
	srv, _ := newTestServer(t)

	code, body := get[model.Relationship](t, srv, "/api/users/1/relationship?requester=2")
	require.Equal(t, http.StatusOK, code)
	assert.True(t, body.Data.Friends)
	assert.False(t, body.Data.Blocked)

	_, body = get[model.Relationship](t, srv, "/api/users/1/relationship?requester=3")
	assert.True(t, body.Data.Blocked)
	assert.False(t, body.Data.BlockedBy)
}

func TestFeed(t *testing.T) {
	srv, s := newTestServer(t)

	code, body := get[[]item[feedEntry]](t, srv, "/api/feed?ids=10,20&requester=3")
	require.Equal(t, http.StatusOK, code)
	require.Len(t, body.Data, 2)
	assert.True(t, body.Data[0].Value.Liked)
	assert.False(t, body.Data[1].Value.Liked)
	assert.Equal(t, 1, s.Calls("FindLikesBy"))
}

func TestTrending(t *testing.T) {
	srv, _ := newTestServer(t)

	code, body := get[[]model.Hashtag](t, srv, "/api/hashtags/trending")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []model.Hashtag{{ID: 2, Name: "batch"}, {ID: 1, Name: "go"}}, body.Data)
}

func TestRequestID(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "abc", rec.Header().Get(requestIDHeader))
}

func TestMetrics(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs("3, 1,3")
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1, 3}, ids)

	_, err = parseIDs("")
	assert.Error(t, err)
}
