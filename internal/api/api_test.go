package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/TOKYOFLOWER/BeDelivery/internal/batch"
	"github.com/TOKYOFLOWER/BeDelivery/internal/importer"
	"github.com/TOKYOFLOWER/BeDelivery/internal/model"
	"github.com/TOKYOFLOWER/BeDelivery/internal/store"
)

const listCSV = "No,宛名,誕生日,住所,連絡先,変更フラグ\n" +
	"1,山田 太郎,2/19,東京都渋谷区神宮前1-2-3,09012345678,\n" +
	"2,林 花子,3/5,大阪府大阪市北区梅田1-1,0612345678,\n" +
	"3,佐藤 次郎,,,,削除\n" +
	"4,鈴木 一郎,,,,\n"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type testEnv struct {
	router *gin.Engine
	store  *store.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := store.New(filepath.Join(t.TempDir(), "bedelivery.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	opts := importer.DefaultOptions()
	opts.Journal = st
	h := NewHandler(Deps{
		Coordinator: importer.NewCoordinator(st, opts),
		Orders:      st,
		Logs:        st,
		Backend:     "sqlite",
	})

	r := gin.New()
	h.RegisterRoutes(r.Group("/api"))
	return &testEnv{router: r, store: st}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) upload(t *testing.T, fileName, content string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/imports", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), "body=%s", w.Body.String())
	return v
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, w)["error"]
}

func (e *testEnv) seed(t *testing.T, last, first, phone string) *model.Order {
	t.Helper()
	o, err := e.store.CreateOrder(context.Background(), model.OrderPayload{
		OrderDate: "2025-01-01",
		Recipient: model.Recipient{RecipientLastName: last, RecipientFirstName: first, RecipientPhone: phone},
	})
	require.NoError(t, err)
	return o
}

func TestImportFlow(t *testing.T) {
	env := newTestEnv(t)
	yamada := env.seed(t, "山田", "太郎", "090-0000-0000")
	env.seed(t, "佐藤", "次郎", "")

	w := env.upload(t, "list.csv", listCSV)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	view := decode[SessionView](t, w)
	assert.Equal(t, "list.csv", view.FileName)
	assert.Equal(t, "Sheet1", view.SheetName)
	assert.Equal(t, model.DiffCounts{Add: 2, Update: 1, Delete: 1}, view.Counts)
	assert.Equal(t, 4, view.ActionableCount)
	assert.Equal(t, "追加: 2件、変更: 1件、削除: 1件", view.Summary)
	assert.Empty(t, view.Warning)

	require.Len(t, view.Entries, 4)
	update := view.Entries[2]
	assert.Equal(t, model.DiffUpdate, update.Type)
	require.NotNil(t, update.OrderKey)
	assert.Equal(t, yamada.OrderKey, *update.OrderKey)
	assert.Contains(t, update.Detail, "連絡先: 090-0000-0000 → 090-1234-5678")

	base := "/api/imports/" + view.ID

	w = env.do(t, http.MethodPatch, base+"/entries/0", map[string]bool{"included": false})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 3, decode[SessionView](t, w).ActionableCount)

	w = env.do(t, http.MethodPost, base+"/select", map[string]bool{"included": false})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decode[SessionView](t, w).ActionableCount)

	w = env.do(t, http.MethodPost, base+"/execute", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, batch.ErrNothingSelected.Error(), errorMessage(t, w))

	w = env.do(t, http.MethodPost, base+"/select", map[string]bool{"included": true})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, base+"/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	rows, err := f.GetRows("差分")
	require.NoError(t, err)
	assert.Len(t, rows, 5)
	_ = f.Close()

	w = env.do(t, http.MethodPost, base+"/execute", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[importer.ExecuteResult](t, w)
	assert.Equal(t, model.BatchResult{Added: 2, Updated: 1, Deleted: 1}, res.BatchResult)
	assert.Equal(t, "インポート完了: 2件追加、1件更新、1件削除", res.Message)

	w = env.do(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/orders", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Items []model.Order `json:"items"`
		Total int           `json:"total"`
	}](t, w)
	assert.Equal(t, 3, list.Total)

	w = env.do(t, http.MethodGet, "/api/orders/"+yamada.OrderKey, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[model.Order](t, w)
	assert.Equal(t, "090-1234-5678", got.RecipientPhone)
	assert.Equal(t, "東京都", got.RecipientPrefecture)

	w = env.do(t, http.MethodGet, "/api/import-logs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	logs := decode[struct {
		Items []store.ImportLog `json:"items"`
	}](t, w)
	require.Len(t, logs.Items, 1)
	assert.Equal(t, view.ID, logs.Items[0].SessionID)
	assert.Equal(t, store.ImportStatusCompleted, logs.Items[0].Status)

	w = env.do(t, http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	status := decode[StatusResponse](t, w)
	assert.Equal(t, "sqlite", status.Backend)
	assert.True(t, status.StoreReachable)
	require.NotNil(t, status.Statistics)
	assert.Equal(t, 3, status.Statistics.Total)
	assert.NotEmpty(t, status.LastImportTime)
}

func TestCreateImport_Errors(t *testing.T) {
	env := newTestEnv(t)

	w := env.upload(t, "list.pdf", "%PDF")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, errorMessage(t, w), "xlsx")

	w = env.upload(t, "empty.csv", "No,宛名\n1,\n")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "有効なデータが見つかりません", errorMessage(t, w))

	w = env.do(t, http.MethodPost, "/api/imports", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImportSession_Errors(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/imports/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.upload(t, "list.csv", listCSV)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[SessionView](t, w).ID

	w = env.do(t, http.MethodPatch, "/api/imports/"+id+"/entries/99", map[string]bool{"included": true})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPatch, "/api/imports/"+id+"/entries/x", map[string]bool{"included": true})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/imports/"+id+"/select", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodDelete, "/api/imports/"+id, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodDelete, "/api/imports/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPost, "/api/imports/"+id+"/execute", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOrdersCRUD(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/orders", model.OrderPayload{OrderDate: "2025-03-01"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	payload := model.OrderPayload{
		OrderDate: "2025-03-01",
		Recipient: model.Recipient{RecipientLastName: "林", RecipientFirstName: "花子"},
		Product:   model.DefaultProduct(),
	}
	w = env.do(t, http.MethodPost, "/api/orders", payload)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[model.Order](t, w)
	assert.NotEmpty(t, created.OrderKey)
	assert.Contains(t, created.OrderNumber, "BD")
	assert.Equal(t, model.StatusNew, created.Status)

	path := "/api/orders/" + created.OrderKey

	w = env.do(t, http.MethodPatch, path, map[string]any{"status": "不明"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	payload.OrderRemarks = "おめでとう"
	w = env.do(t, http.MethodPatch, path, updateOrderRequest{OrderPayload: payload, Status: model.StatusShipped})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[model.Order](t, w)
	assert.Equal(t, model.StatusShipped, updated.Status)
	assert.Equal(t, "おめでとう", updated.OrderRemarks)
	assert.Equal(t, created.OrderNumber, updated.OrderNumber)

	w = env.do(t, http.MethodGet, "/api/orders?status="+string(model.StatusShipped), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), created.OrderKey)

	w = env.do(t, http.MethodGet, "/api/orders?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/statistics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.Statistics{Total: 1, Shipped: 1}, decode[model.Statistics](t, w))

	w = env.do(t, http.MethodGet, "/api/orders/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))

	w = env.do(t, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "注文が見つかりません", errorMessage(t, w))
}

func TestStatusFor(t *testing.T) {
	status, msg := statusFor(&batch.SubmitError{Err: errors.New("quota exceeded")})
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, "インポートに失敗しました: quota exceeded", msg)

	status, msg = statusFor(errors.New("disk full"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "サーバーエラーが発生しました", msg)
}
