// Package integration provides end-to-end tests for the Pluginverse API
// over a real SQLite database and filesystem storage.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pluginverse/pluginverse/internal/auth"
	"github.com/pluginverse/pluginverse/internal/handler"
	"github.com/pluginverse/pluginverse/internal/lock"
	"github.com/pluginverse/pluginverse/internal/repository"
	"github.com/pluginverse/pluginverse/internal/repository/sqlite"
	"github.com/pluginverse/pluginverse/internal/service"
	"github.com/pluginverse/pluginverse/internal/storage"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "admin-password"
)

// newServer boots the full stack on an in-memory SQLite database.
func newServer(t *testing.T) *httptest.Server {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	logger := zerolog.Nop()

	db, err := sqlite.NewDB(ctx, sqlite.DefaultConfig(":memory:"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(ctx))

	repos := repository.Repositories{
		Users:    sqlite.NewUserRepository(db),
		Plugins:  sqlite.NewPluginRepository(db),
		Deposits: sqlite.NewDepositRepository(db),
		Settings: sqlite.NewSettingsRepository(db),
	}

	backend, err := storage.NewFilesystemBackend(t.TempDir(), logger)
	require.NoError(t, err)

	tokens := auth.NewTokenManager("integration-secret", time.Hour)
	users := service.NewUserService(repos.Users, tokens, logger)
	catalog := service.NewCatalogService(repos.Plugins, backend, logger)
	purchases := service.NewPurchaseService(repos.Users, repos.Plugins, logger)
	deposits := service.NewDepositService(repos.Deposits, lock.NewMemoryLocker(), logger)
	settings := service.NewSettingsService(repos.Settings, logger)

	require.NoError(t, users.EnsureAdmin(ctx, "admin", adminEmail, adminPassword))

	router := handler.NewRouter(handler.RouterConfig{
		Auth:     handler.NewAuthHandler(users, logger),
		Plugins:  handler.NewPluginHandler(catalog, purchases, backend, logger),
		Deposits: handler.NewDepositHandler(deposits, settings, logger),
		Files:    handler.NewFileHandler(backend, logger),
		Admin: handler.NewAdminHandler(handler.AdminConfig{
			Catalog:   catalog,
			Deposits:  deposits,
			Users:     users,
			Settings:  settings,
			MaxUpload: 32 << 20,
			Logger:    logger,
		}),
		Tokens:    tokens,
		UserStore: repos.Users,
		Logger:    logger,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func request(t *testing.T, srv *httptest.Server, method, path, token string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func login(t *testing.T, srv *httptest.Server, loginName, password string) string {
	t.Helper()

	status, body := request(t, srv, http.MethodPost, "/api/auth/login", "", map[string]string{
		"login": loginName, "password": password,
	})
	require.Equal(t, http.StatusOK, status, "login: %s", body)

	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	return out.Token
}

func uploadPlugin(t *testing.T, srv *httptest.Server, token, name string, price int64) map[string]any {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("name", name))
	require.NoError(t, mw.WriteField("description", "integration test plugin"))
	require.NoError(t, mw.WriteField("price", fmt.Sprintf("%d", price)))

	fw, err := mw.CreateFormFile("plugin_file", name+".zip")
	require.NoError(t, err)
	_, err = fw.Write([]byte("plugin-archive"))
	require.NoError(t, err)

	lw, err := mw.CreateFormFile("logo", name+".png")
	require.NoError(t, err)
	_, err = lw.Write([]byte("plugin-logo"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/admin/plugins", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode, "upload: %s", body)

	var plugin map[string]any
	require.NoError(t, json.Unmarshal(body, &plugin))
	return plugin
}

// TestMarketplaceLifecycle walks the full user journey: registration,
// funding through an admin-approved deposit, purchase, and download.
func TestMarketplaceLifecycle(t *testing.T) {
	srv := newServer(t)
	admin := login(t, srv, adminEmail, adminPassword)

	plugin := uploadPlugin(t, srv, admin, "imagekit", 300)
	pluginID := plugin["id"].(string)

	// Register a user
	status, body := request(t, srv, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, status, "signup: %s", body)

	var signedUp struct {
		Token string `json:"token"`
		User  struct {
			ID    string `json:"id"`
			Coins int64  `json:"coins"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(body, &signedUp))
	user := signedUp.Token
	assert.EqualValues(t, 0, signedUp.User.Coins)

	// Purchase fails without funds
	status, _ = request(t, srv, http.MethodPost, "/api/plugins/"+pluginID+"/buy", user, nil)
	require.Equal(t, http.StatusPaymentRequired, status)

	// Submit a deposit; it stays Pending and credits nothing
	status, body = request(t, srv, http.MethodPost, "/api/deposits", user, map[string]any{
		"amount": 500, "method": "easypaisa", "txn_id": "TXN-100",
	})
	require.Equal(t, http.StatusCreated, status, "deposit: %s", body)

	var deposit struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(body, &deposit))
	assert.Equal(t, "Pending", deposit.Status)

	status, body = request(t, srv, http.MethodGet, "/api/auth/me", user, nil)
	require.Equal(t, http.StatusOK, status)
	var me struct {
		Coins     int64    `json:"coins"`
		Purchases []string `json:"purchases"`
	}
	require.NoError(t, json.Unmarshal(body, &me))
	assert.EqualValues(t, 0, me.Coins)

	// Admin approves; coins arrive exactly once
	status, _ = request(t, srv, http.MethodPost, "/api/admin/deposits/"+deposit.ID+"/approve", admin, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = request(t, srv, http.MethodPost, "/api/admin/deposits/"+deposit.ID+"/approve", admin, nil)
	require.Equal(t, http.StatusConflict, status)

	status, body = request(t, srv, http.MethodGet, "/api/auth/me", user, nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &me))
	assert.EqualValues(t, 500, me.Coins)

	// Buy once: balance drops, entitlement recorded
	status, body = request(t, srv, http.MethodPost, "/api/plugins/"+pluginID+"/buy", user, nil)
	require.Equal(t, http.StatusOK, status, "buy: %s", body)

	var bought struct {
		Coins int64 `json:"coins"`
	}
	require.NoError(t, json.Unmarshal(body, &bought))
	assert.EqualValues(t, 200, bought.Coins)

	// Buy twice: rejected, balance untouched
	status, _ = request(t, srv, http.MethodPost, "/api/plugins/"+pluginID+"/buy", user, nil)
	require.Equal(t, http.StatusConflict, status)

	status, body = request(t, srv, http.MethodGet, "/api/auth/me", user, nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &me))
	assert.EqualValues(t, 200, me.Coins)
	assert.Equal(t, []string{pluginID}, me.Purchases)

	// Download succeeds for the owner and leaves the counter at one
	status, body = request(t, srv, http.MethodGet, "/api/plugins/"+pluginID+"/download", user, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "plugin-archive", string(body))

	status, body = request(t, srv, http.MethodGet, "/api/plugins/"+pluginID, "", nil)
	require.Equal(t, http.StatusOK, status)
	var got struct {
		Downloads int64 `json:"downloads"`
	}
	require.NoError(t, json.Unmarshal(body, &got))
	assert.EqualValues(t, 1, got.Downloads)
}

// TestDepositRejectIsFinal verifies the Pending -> Rejected transition is
// terminal and credits nothing.
func TestDepositRejectIsFinal(t *testing.T) {
	srv := newServer(t)
	admin := login(t, srv, adminEmail, adminPassword)

	status, body := request(t, srv, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": "bob",
		"email":    "bob@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, status)

	var signedUp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(body, &signedUp))

	status, body = request(t, srv, http.MethodPost, "/api/deposits", signedUp.Token, map[string]any{
		"amount": 250, "method": "upi", "txn_id": "TXN-200",
	})
	require.Equal(t, http.StatusCreated, status)

	var deposit struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body, &deposit))

	status, _ = request(t, srv, http.MethodPost, "/api/admin/deposits/"+deposit.ID+"/reject", admin, nil)
	require.Equal(t, http.StatusNoContent, status)

	status, _ = request(t, srv, http.MethodPost, "/api/admin/deposits/"+deposit.ID+"/approve", admin, nil)
	require.Equal(t, http.StatusConflict, status)

	status, body = request(t, srv, http.MethodGet, "/api/auth/me", signedUp.Token, nil)
	require.Equal(t, http.StatusOK, status)
	var me struct {
		Coins int64 `json:"coins"`
	}
	require.NoError(t, json.Unmarshal(body, &me))
	assert.EqualValues(t, 0, me.Coins)
}

// TestPluginLifecycle covers admin catalog management over a real database.
func TestPluginLifecycle(t *testing.T) {
	srv := newServer(t)
	admin := login(t, srv, adminEmail, adminPassword)

	plugin := uploadPlugin(t, srv, admin, "themepack", 100)
	pluginID := plugin["id"].(string)

	// Logo is served from the filesystem backend
	logoURL := plugin["logo_url"].(string)
	status, body := request(t, srv, http.MethodGet, logoURL, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "plugin-logo", string(body))

	// Partial update
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("description", "now with dark mode"))
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/api/admin/plugins/"+pluginID, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+admin)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	body, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode, "update: %s", body)

	var updated struct {
		Description string `json:"description"`
		Price       int64  `json:"price"`
	}
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, "now with dark mode", updated.Description)
	assert.EqualValues(t, 100, updated.Price)

	// Delete removes the record and its files
	status, _ = request(t, srv, http.MethodDelete, "/api/admin/plugins/"+pluginID, admin, nil)
	require.Equal(t, http.StatusNoContent, status)

	status, _ = request(t, srv, http.MethodGet, "/api/plugins/"+pluginID, "", nil)
	require.Equal(t, http.StatusNotFound, status)

	status, _ = request(t, srv, http.MethodGet, logoURL, "", nil)
	require.Equal(t, http.StatusNotFound, status)
}
