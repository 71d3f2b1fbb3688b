package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/backstage-events/backstage/internal/api"
	"github.com/backstage-events/backstage/internal/app"
	"github.com/backstage-events/backstage/internal/auth"
	"github.com/backstage-events/backstage/internal/document"
	"github.com/backstage-events/backstage/internal/observability"
	"github.com/backstage-events/backstage/internal/platform/httpx"
	"github.com/backstage-events/backstage/internal/registry"
	"github.com/backstage-events/backstage/internal/shared"
	_ "github.com/backstage-events/backstage/internal/testing/guard"
)

// memStore is an in-memory StorePort for wiring the full router without
// postgres.
type memStore struct {
	seq  int
	docs map[registry.Kind]map[string]document.Document
}

func newMemStore() *memStore {
	return &memStore{docs: map[registry.Kind]map[string]document.Document{}}
}

func (m *memStore) List(_ context.Context, kind registry.Kind) ([]document.Document, error) {
	out := make([]document.Document, 0, len(m.docs[kind]))
	for _, doc := range m.docs[kind] {
		out = append(out, doc)
	}
	return out, nil
}

func (m *memStore) Get(_ context.Context, kind registry.Kind, id string) (document.Document, error) {
	doc, ok := m.docs[kind][id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	return doc, nil
}

func (m *memStore) Create(_ context.Context, kind registry.Kind, fields document.Document) (document.Document, error) {
	m.seq++
	id := fmt.Sprintf("00000000-0000-0000-0000-%012d", m.seq)
	doc := document.Document{"id": id}
	for k, v := range fields {
		doc[k] = v
	}
	if m.docs[kind] == nil {
		m.docs[kind] = map[string]document.Document{}
	}
	m.docs[kind][id] = doc
	return doc, nil
}

func (m *memStore) Patch(_ context.Context, kind registry.Kind, id string, patch document.Document) (document.Document, error) {
	doc, ok := m.docs[kind][id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	for k, v := range patch {
		doc[k] = v
	}
	return doc, nil
}

func (m *memStore) Delete(_ context.Context, kind registry.Kind, id string) error {
	if _, ok := m.docs[kind][id]; !ok {
		return httpx.ErrNotFound
	}
	delete(m.docs[kind], id)
	return nil
}

type memAuthRepo struct {
	creds map[string]*auth.Credential
}

func (r *memAuthRepo) FindByEmail(_ context.Context, email string) (*auth.Credential, error) {
	cred, ok := r.creds[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return cred, nil
}

func (r *memAuthRepo) IsEmpty(context.Context) (bool, error) { return len(r.creds) == 0, nil }

func (r *memAuthRepo) SeedBootstrapAdmin(_ context.Context, cred auth.Credential) error {
	r.creds[cred.Email] = &cred
	return nil
}

func newServer(t *testing.T) (*httptest.Server, *memStore) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	cfg := &app.Config{
		AppEnv:             "test",
		AppRequestTimeout:  10 * time.Second,
		CORSAllowedOrigins: []string{"*"},
		RateLimitPerMinute: 1000,
	}

	tokens, err := auth.NewTokens("e2e-secret", time.Hour)
	require.NoError(t, err)

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &memAuthRepo{creds: map[string]*auth.Credential{
		"manager@example.com": {
			ID:           "user-1",
			Name:         "Manager",
			Email:        "manager@example.com",
			PasswordHash: string(hash),
			Role:         "user",
			Position:     []string{"edit"},
			IsActive:     true,
		},
	}}

	store := newMemStore()
	router := app.NewRouter(app.RouterParams{
		Logger:      logger,
		Config:      cfg,
		AuthHandler: auth.NewHandler(logger, auth.NewService(repo, tokens, logger, "bootstrap-pass")),
		APIHandler:  api.NewHandler(logger, store, tokens, nil, nil, nil),
		Metrics:     observability.NewMetrics(),
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, store
}

func login(t *testing.T, server *httptest.Server) string {
	t.Helper()
	body := strings.NewReader(`{"email":"manager@example.com","password":"s3cret"}`)
	resp, err := http.Post(server.URL+"/auth", "application/json", body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	require.NotEmpty(t, result.Token)
	return result.Token
}

func TestRouterServesHealthAndMetrics(t *testing.T) {
	server, _ := newServer(t)

	resp, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
}

func TestRouterDispatchesCRUDWithAuth(t *testing.T) {
	server, _ := newServer(t)
	token := login(t, server)

	resp, err := http.Post(server.URL+"/events", "application/json",
		strings.NewReader(`{"name":"Launch Party","venue":"Main Hall"}`))
	require.NoError(t, err)
	var created map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)

	req, err := http.NewRequest(http.MethodPut, server.URL+"/events/"+id,
		strings.NewReader(`{"name":"Launch Party 2"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)

	req3, err := http.NewRequest(http.MethodPut, server.URL+"/events/"+id,
		strings.NewReader(`{"name":"nope"}`))
	require.NoError(t, err)
	resp3, err := http.DefaultClient.Do(req3)
	require.NoError(t, err)
	defer resp3.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp3.StatusCode)
}

func TestRouterErrorContract(t *testing.T) {
	server, _ := newServer(t)

	resp, err := http.Get(server.URL + "/frobnicate")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPatch, server.URL+"/events", nil)
	require.NoError(t, err)
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp2.StatusCode)
}

func TestRouterHandlesCORSPreflight(t *testing.T) {
	server, _ := newServer(t)

	req, err := http.NewRequest(http.MethodOptions, server.URL+"/events", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://back.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
