package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TOKYOFLOWER/BeDelivery/internal/model"
	"github.com/TOKYOFLOWER/BeDelivery/internal/orderstore"
)

var _ orderstore.Store = (*Store)(nil)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(filepath.Join(t.TempDir(), "data", "bedelivery.db"))
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func payload(last, first, phone string) model.OrderPayload {
	p := model.OrderPayload{
		OrderDate:    "2025-03-01",
		DeliveryDate: "2026/02/19",
		Orderer:      model.DefaultOrderer(),
		Product:      model.DefaultProduct(),
		OrderRemarks: "おめでとう",
	}
	p.RecipientLastName = last
	p.RecipientFirstName = first
	p.RecipientPhone = phone
	return p
}

func TestStore_CreateAndGetOrder(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateOrder(ctx, payload("山田", "太郎", "03-1234-5678"))
	require.NoError(t, err)
	assert.NotEmpty(t, created.OrderKey)
	assert.Equal(t, "BD20250301-00001", created.OrderNumber)
	assert.Equal(t, model.StatusNew, created.Status)
	assert.Equal(t, "03-1234-5678", created.RecipientPhone)
	assert.Equal(t, 5500, created.UnitPrice)
	assert.Equal(t, "一般社団法人", created.CustomerLastName)
	assert.False(t, created.CreatedAt.IsZero())

	second, err := s.CreateOrder(ctx, payload("林", "花子", ""))
	require.NoError(t, err)
	assert.Equal(t, "BD20250301-00002", second.OrderNumber)

	got, err := s.GetOrder(ctx, created.OrderKey)
	require.NoError(t, err)
	assert.Equal(t, created.OrderKey, got.OrderKey)
	assert.Equal(t, "おめでとう", got.OrderRemarks)

	_, err = s.GetOrder(ctx, "missing")
	assert.ErrorIs(t, err, orderstore.ErrOrderNotFound)
}

func TestStore_UpdateAndDeleteOrder(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateOrder(ctx, payload("山田", "太郎", "03-1234-5678"))
	require.NoError(t, err)

	p := payload("山田", "太郎", "03-1234-5679")
	updated, err := s.UpdateOrder(ctx, created.OrderKey, p, model.StatusShipped)
	require.NoError(t, err)
	assert.Equal(t, "03-1234-5679", updated.RecipientPhone)
	assert.Equal(t, model.StatusShipped, updated.Status)
	assert.Equal(t, created.OrderNumber, updated.OrderNumber)

	// ステータス未指定なら維持
	updated, err = s.UpdateOrder(ctx, created.OrderKey, p, "")
	require.NoError(t, err)
	assert.Equal(t, model.StatusShipped, updated.Status)

	_, err = s.UpdateOrder(ctx, "missing", p, "")
	assert.ErrorIs(t, err, orderstore.ErrOrderNotFound)

	require.NoError(t, s.DeleteOrder(ctx, created.OrderKey))
	assert.ErrorIs(t, s.DeleteOrder(ctx, created.OrderKey), orderstore.ErrOrderNotFound)
}

func TestStore_GetOrdersFilter(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	a, err := s.CreateOrder(ctx, payload("山田", "太郎", "03-1234-5678"))
	require.NoError(t, err)
	_, err = s.CreateOrder(ctx, payload("林", "花子", "090-1111-2222"))
	require.NoError(t, err)
	_, err = s.UpdateOrder(ctx, a.OrderKey, payload("山田", "太郎", "03-1234-5678"), model.StatusProcessing)
	require.NoError(t, err)

	all, err := s.GetOrders(ctx, model.OrderFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "山田", all[0].RecipientLastName)

	got, err := s.GetOrders(ctx, model.OrderFilter{Status: model.StatusProcessing})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, a.OrderKey, got[0].OrderKey)

	got, err = s.GetOrders(ctx, model.OrderFilter{SearchText: "林花"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "花子", got[0].RecipientFirstName)

	got, err = s.GetOrders(ctx, model.OrderFilter{SearchText: "該当なし"})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestStore_BatchImport(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	keep, err := s.CreateOrder(ctx, payload("山田", "太郎", "03-1234-5678"))
	require.NoError(t, err)
	gone, err := s.CreateOrder(ctx, payload("林", "花子", ""))
	require.NoError(t, err)
	_, err = s.UpdateOrder(ctx, keep.OrderKey, payload("山田", "太郎", "03-1234-5678"), model.StatusProcessing)
	require.NoError(t, err)

	res, err := s.BatchImport(ctx, model.BatchRequest{
		Additions: []model.OrderPayload{payload("佐藤", "一郎", ""), payload("鈴木", "次郎", "")},
		Updates: []model.BatchUpdate{
			{OrderKey: keep.OrderKey, OrderData: payload("山田", "太郎", "03-1234-5679")},
			{OrderKey: "missing", OrderData: payload("不明", "者", "")},
		},
		Deletions: []string{gone.OrderKey, "missing"},
	})
	require.NoError(t, err)
	assert.Equal(t, model.BatchResult{Added: 2, Updated: 1, Deleted: 1}, res)

	got, err := s.GetOrder(ctx, keep.OrderKey)
	require.NoError(t, err)
	assert.Equal(t, "03-1234-5679", got.RecipientPhone)
	assert.Equal(t, model.StatusProcessing, got.Status)
	assert.Equal(t, keep.OrderNumber, got.OrderNumber)

	st, err := s.GetStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.Statistics{Total: 3, New: 2, Processing: 1}, st)
}

func TestStore_BatchImportEmpty(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	res, err := s.BatchImport(context.Background(), model.BatchRequest{})
	require.NoError(t, err)
	assert.Equal(t, model.BatchResult{}, res)
}

func TestStore_ImportLogs(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	_, ok := s.LastImportAt()
	assert.False(t, ok)

	id, err := s.CreateImportLog(ctx, "sess-1", "list.xlsx", "お花リスト", 12)
	require.NoError(t, err)
	require.NoError(t, s.UpdateImportLog(ctx, id, 3, 2, 1, ImportStatusCompleted, ""))

	failed, err := s.CreateImportLog(ctx, "sess-2", "list2.xlsx", "Sheet1", 4)
	require.NoError(t, err)
	require.NoError(t, s.UpdateImportLog(ctx, failed, 0, 0, 0, ImportStatusFailed, "boom"))

	logs, err := s.ListImportLogs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "sess-2", logs[0].SessionID)
	assert.Equal(t, "boom", logs[0].ErrorMessage)
	assert.Equal(t, 3, logs[1].Added)
	assert.Equal(t, 12, logs[1].TotalRows)
	require.NotNil(t, logs[1].CompletedAt)

	last, ok := s.LastImportAt()
	require.True(t, ok)
	assert.True(t, last.Equal(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)))
}

func TestStore_ReopenKeepsData(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bedelivery.db")
	s, err := New(path)
	require.NoError(t, err)
	_, err = s.CreateOrder(context.Background(), payload("山田", "太郎", ""))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = New(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	orders, err := s.GetOrders(context.Background(), model.OrderFilter{})
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}
