package batch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TOKYOFLOWER/BeDelivery/internal/model"
)

type fakeImporter struct {
	got    []model.BatchRequest
	result model.BatchResult
	err    error
}

func (f *fakeImporter) BatchImport(_ context.Context, req model.BatchRequest) (model.BatchResult, error) {
	f.got = append(f.got, req)
	return f.result, f.err
}

func ptr(s string) *string { return &s }

func candidate(last, first string) *model.CandidateRecord {
	c := &model.CandidateRecord{
		RecipientName: last + first,
		Orderer:       model.DefaultOrderer(),
		Product:       model.DefaultProduct(),
		OrderDate:     "2025-03-01",
		DeliveryDate:  "2026/02/19",
		OrderRemarks:  "おめでとう",
	}
	c.RecipientLastName = last
	c.RecipientFirstName = first
	c.RecipientLastNameKana = "ヤマダ"
	return c
}

func entries() []model.DiffEntry {
	return []model.DiffEntry{
		{Type: model.DiffAdd, Candidate: candidate("佐藤", "花子"), Included: true},
		{Type: model.DiffAdd, Candidate: candidate("未選", "択"), Included: false},
		{Type: model.DiffUpdate, Candidate: candidate("山田", "太郎"), OrderKey: ptr("K1"), Included: true},
		{Type: model.DiffUpdate, Candidate: candidate("外", "す"), OrderKey: ptr("K2"), Included: false},
		{Type: model.DiffDelete, Candidate: candidate("林", "花子"), OrderKey: ptr("K3"), Included: true},
		{Type: model.DiffDelete, Candidate: candidate("不明", "者"), Included: true},
		{Type: model.DiffUnchanged, Candidate: candidate("鈴木", "次郎"), OrderKey: ptr("K4"), Included: true},
		{Type: model.DiffUnchanged, Candidate: candidate("高橋", "三郎"), OrderKey: ptr("K5"), Included: false},
	}
}

func TestBuild_OnlySelectedActionable(t *testing.T) {
	t.Parallel()

	req := Build(entries())

	require.Len(t, req.Additions, 1)
	assert.Equal(t, "佐藤", req.Additions[0].RecipientLastName)
	require.Len(t, req.Updates, 1)
	assert.Equal(t, "K1", req.Updates[0].OrderKey)
	assert.Equal(t, "山田", req.Updates[0].OrderData.RecipientLastName)
	assert.Equal(t, []string{"K3"}, req.Deletions)

	for _, u := range req.Updates {
		assert.NotContains(t, []string{"K4", "K5", "K2"}, u.OrderKey)
	}
}

func TestBuild_Empty(t *testing.T) {
	t.Parallel()

	req := Build(nil)
	assert.True(t, req.Empty())
	assert.NotNil(t, req.Additions)
	assert.NotNil(t, req.Updates)
	assert.NotNil(t, req.Deletions)
}

func TestOrderData_DefaultsAndBlankKana(t *testing.T) {
	t.Parallel()

	p := OrderData(*candidate("山田", "太郎"))
	assert.Empty(t, p.RecipientLastNameKana)
	assert.Empty(t, p.RecipientFirstNameKana)
	assert.Empty(t, p.DeliveryTime)
	assert.Empty(t, p.OrderNumber)
	assert.Equal(t, "2025-03-01", p.OrderDate)
	assert.Equal(t, "2026/02/19", p.DeliveryDate)
	assert.Equal(t, "おめでとう", p.OrderRemarks)
	assert.Equal(t, model.DefaultOrderer(), p.Orderer)
	assert.Equal(t, "ar5500", p.ProductCode)
	assert.Equal(t, 5500, p.UnitPrice)
	assert.Equal(t, 1, p.Quantity)
	assert.Equal(t, "店頭払い", p.PaymentMethod)
}

func TestSummary(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "追加: 1件、変更: 1件、削除: 2件", Summary(entries()))
	assert.Equal(t, "", Summary(nil))
}

func TestResultMessage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "インポート完了: 3件追加、1件更新、2件削除", ResultMessage(model.BatchResult{Added: 3, Updated: 1, Deleted: 2}))
	assert.Equal(t, "インポート完了: 1件削除", ResultMessage(model.BatchResult{Deleted: 1}))
}

func TestExecutor_ReturnsStoreCounts(t *testing.T) {
	t.Parallel()

	f := &fakeImporter{result: model.BatchResult{Added: 7, Updated: 0, Deleted: 2}}
	x := &Executor{Store: f}

	req := Build(entries())
	got, err := x.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, model.BatchResult{Added: 7, Deleted: 2}, got)
	require.Len(t, f.got, 1)
	assert.Equal(t, req, f.got[0])
}

func TestExecutor_WrapsFailure(t *testing.T) {
	t.Parallel()

	cause := errors.New("quota exceeded")
	x := &Executor{Store: &fakeImporter{err: cause}}

	_, err := x.Execute(context.Background(), Build(entries()))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBatchSubmitFailed)
	assert.ErrorIs(t, err, cause)

	var se *SubmitError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, err.Error(), "quota exceeded")
}
