package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/TOKYOFLOWER/BeDelivery/internal/config"
	"github.com/TOKYOFLOWER/BeDelivery/internal/gasclient"
	"github.com/TOKYOFLOWER/BeDelivery/internal/orderstore"
	"github.com/TOKYOFLOWER/BeDelivery/internal/store"
)

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Data.DataDir = filepath.Join(t.TempDir(), "data")
	return cfg
}

func newTestServer(t *testing.T, cfg *config.AppConfig, logger *zap.Logger) (*Server, *Components) {
	t.Helper()
	c, err := NewComponents(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return NewServer(c), c
}

func serve(s *Server, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestNewComponents_SQLite(t *testing.T) {
	cfg := testConfig(t)
	_, c := newTestServer(t, cfg, nil)

	_, ok := c.Orders.(*store.Store)
	assert.True(t, ok)
	assert.Same(t, c.Local, c.Orders)
	assert.FileExists(t, config.DatabasePath(cfg))
}

func TestNewComponents_Memory(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Backend = config.BackendMemory
	_, c := newTestServer(t, cfg, nil)

	_, ok := c.Orders.(*orderstore.MemoryStore)
	assert.True(t, ok)
	assert.NotNil(t, c.Local)
}

func TestNewComponents_RemoteRequiresURL(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Backend = config.BackendRemote

	_, err := NewComponents(cfg, nil)
	assert.ErrorIs(t, err, gasclient.ErrNotConfigured)

	cfg.Store.Backend = "mysql"
	_, err = NewComponents(cfg, nil)
	assert.Error(t, err)
}

func TestServer_Infrastructure(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	s, _ := newTestServer(t, testConfig(t), zap.New(core))

	w := serve(s, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(s, http.MethodOptions, "/api/orders", nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(s, http.MethodGet, "/nowhere", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(s, http.MethodGet, "/api/status", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var status map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "sqlite", status["backend"])

	w = serve(s, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "bedelivery_import_sessions_active")

	assert.NotZero(t, logs.FilterMessage("request").FilterField(zap.Int("status", http.StatusNotFound)).Len())
}

// fakeGAS getOrders と batchImport だけに応答するリモート API
func fakeGAS(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Action string `json:"action"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		switch req.Action {
		case gasclient.ActionGetOrders:
			_, _ = io.WriteString(w, `{"data":[{"id":"R1","recipientLastName":"山田","recipientFirstName":"太郎","recipientPhone":"090-0000-0000"}]}`)
		case gasclient.ActionBatchImport:
			_, _ = io.WriteString(w, `{"data":{"added":1,"updated":1,"deleted":0}}`)
		default:
			_, _ = io.WriteString(w, `{"error":"unsupported"}`)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestServer_RemoteBackendImport(t *testing.T) {
	gas := fakeGAS(t)
	cfg := testConfig(t)
	cfg.Store.Backend = config.BackendRemote
	cfg.Remote.APIURL = gas.URL
	cfg.Remote.RatePerSecond = 1000

	s, c := newTestServer(t, cfg, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "list.csv")
	require.NoError(t, err)
	_, _ = io.WriteString(fw, "宛名,連絡先\n山田 太郎,09012345678\n林 花子,0612345678\n")
	require.NoError(t, mw.Close())

	w := serve(s, http.MethodPost, "/api/imports", &buf, mw.FormDataContentType())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var view struct {
		ID     string `json:"id"`
		Counts struct {
			Add    int `json:"add"`
			Update int `json:"update"`
		} `json:"counts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, 1, view.Counts.Add)
	assert.Equal(t, 1, view.Counts.Update)

	w = serve(s, http.MethodPost, "/api/imports/"+view.ID+"/execute", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "インポート完了: 1件追加、1件更新")

	logs, err := c.Local.ListImportLogs(t.Context(), 5)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, store.ImportStatusCompleted, logs[0].Status)

	w = serve(s, http.MethodGet, "/metrics", nil, "")
	assert.Contains(t, w.Body.String(), `bedelivery_remote_calls_total{action="batchImport",result="ok"} 1`)
}

func TestServer_RunAndShutdown(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.Port = 0
	s, _ := newTestServer(t, cfg, nil)
	assert.Equal(t, ":0", s.Addr())

	done := make(chan error, 1)
	go func() { done <- s.Run() }()

	require.NoError(t, s.Shutdown(t.Context()))
	assert.NoError(t, <-done)
}
