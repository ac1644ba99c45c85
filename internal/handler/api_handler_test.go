package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relaychat/internal/app/chat"
	"relaychat/internal/app/identity"
	"relaychat/internal/app/provider"
	"relaychat/internal/configs"
	"relaychat/internal/pkg/errs"
)

type stubDirectory struct {
	candidates []identity.Identity
	err        error
}

func (s stubDirectory) Candidates(ctx context.Context) ([]identity.Identity, error) {
	return s.candidates, s.err
}

type stubMedia struct {
	images     []provider.ImageRef
	refreshErr error
}

func (s stubMedia) Images(ctx context.Context) []provider.ImageRef { return s.images }

func (s stubMedia) Refresh(ctx context.Context) (int, error) {
	return len(s.images), s.refreshErr
}

func newTestDeps(t *testing.T, dir provider.Directory, media provider.Media) *AppDeps {
	t.Helper()

	hub := chat.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	return &AppDeps{
		Hub:       hub,
		Config:    &configs.AppConfig{Environment: "development", Port: 8080},
		Directory: dir,
		Media:     media,
	}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func doGet(t *testing.T, h http.Handler, path string) (int, envelope) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))

	return rec.Code, env
}

func TestHandleDirectoryServesCandidates(t *testing.T) {
	deps := newTestDeps(t,
		stubDirectory{candidates: []identity.Identity{
			{ID: "u1", DisplayName: "Ada Lovelace", AvatarRef: "https://example.com/ada.jpg"},
		}},
		stubMedia{},
	)

	status, env := doGet(t, Router(deps), "/api/users")
	require.Equal(t, http.StatusOK, status)
	assert.Zero(t, env.Code)

	var got []identity.Identity
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Ada Lovelace", got[0].DisplayName)
}

func TestHandleDirectoryDegradesToEmptyOnProviderFailure(t *testing.T) {
	deps := newTestDeps(t, stubDirectory{err: errors.New("upstream down")}, stubMedia{})

	status, env := doGet(t, Router(deps), "/api/users")
	require.Equal(t, http.StatusOK, status, "a dead directory must never fail the request")
	assert.Zero(t, env.Code)

	var got []identity.Identity
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Empty(t, got)
}

func TestHandleImages(t *testing.T) {
	deps := newTestDeps(t, stubDirectory{}, stubMedia{images: []provider.ImageRef{
		{ID: "237", Author: "Picsum Photos", URL: "https://picsum.photos/id/237/400/300"},
	}})

	status, env := doGet(t, Router(deps), "/api/images")
	require.Equal(t, http.StatusOK, status)

	var got []provider.ImageRef
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "237", got[0].ID)
}

func TestHandleRefreshImages(t *testing.T) {
	deps := newTestDeps(t, stubDirectory{}, stubMedia{images: make([]provider.ImageRef, 3)})

	status, env := doGet(t, Router(deps), "/api/refresh-images")
	require.Equal(t, http.StatusOK, status)

	var got struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, 3, got.Count)
}

func TestHandleRefreshImagesProviderUnavailable(t *testing.T) {
	deps := newTestDeps(t, stubDirectory{}, stubMedia{refreshErr: errors.New("all endpoints down")})

	status, env := doGet(t, Router(deps), "/api/refresh-images")
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, errs.ErrProviderUnavailable, env.Code)
}

func TestHandleChatHistoryUnknownIdentityIsEmpty(t *testing.T) {
	deps := newTestDeps(t, stubDirectory{}, stubMedia{})

	status, env := doGet(t, Router(deps), "/api/chat-history/nobody")
	require.Equal(t, http.StatusOK, status)

	var got []chat.Message
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Empty(t, got)
}

func TestHealthEndpoint(t *testing.T) {
	deps := newTestDeps(t, stubDirectory{}, stubMedia{})

	status, env := doGet(t, Router(deps), "/health")
	assert.Equal(t, http.StatusOK, status)
	assert.Zero(t, env.Code)
}
