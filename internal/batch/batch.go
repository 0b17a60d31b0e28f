// Package batch は選択済みの差分から一括インポート要求を組み立て、注文ストアへ送信する。
package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/TOKYOFLOWER/BeDelivery/internal/model"
	"github.com/TOKYOFLOWER/BeDelivery/internal/orderstore"
)

// ErrBatchSubmitFailed 一括インポートの送信に失敗した
var ErrBatchSubmitFailed = errors.New("インポートに失敗しました")

// ErrNothingSelected 取り込み対象がない
var ErrNothingSelected = errors.New("インポート対象がありません")

// SubmitError 送信失敗。Err は注文ストアが返したエラー
type SubmitError struct {
	Err error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("%s: %v", ErrBatchSubmitFailed.Error(), e.Err)
}

func (e *SubmitError) Unwrap() []error {
	return []error{ErrBatchSubmitFailed, e.Err}
}

// Build 選択済みかつ変更なし以外の差分から要求を作る
// 注文番号のない削除は送信しない。
func Build(entries []model.DiffEntry) model.BatchRequest {
	req := model.BatchRequest{
		Additions: []model.OrderPayload{},
		Updates:   []model.BatchUpdate{},
		Deletions: []string{},
	}

	for _, e := range entries {
		if !e.Actionable() {
			continue
		}
		switch e.Type {
		case model.DiffAdd:
			if e.Candidate != nil {
				req.Additions = append(req.Additions, OrderData(*e.Candidate))
			}
		case model.DiffUpdate:
			if e.Candidate != nil && e.OrderKey != nil {
				req.Updates = append(req.Updates, model.BatchUpdate{OrderKey: *e.OrderKey, OrderData: OrderData(*e.Candidate)})
			}
		case model.DiffDelete:
			if e.OrderKey != nil && *e.OrderKey != "" {
				req.Deletions = append(req.Deletions, *e.OrderKey)
			}
		}
	}
	return req
}

// OrderData 候補レコードを送信用の注文データにする
// フリガナと配送時間は空のまま（登録後に画面で入力する）。
func OrderData(c model.CandidateRecord) model.OrderPayload {
	recipient := c.Recipient
	recipient.RecipientLastNameKana = ""
	recipient.RecipientFirstNameKana = ""

	orderer := c.Orderer
	orderer.CustomerLastNameKana = ""
	orderer.CustomerFirstNameKana = ""

	return model.OrderPayload{
		OrderDate:    c.OrderDate,
		DeliveryDate: c.DeliveryDate,
		DeliveryTime: "",
		Orderer:      orderer,
		Recipient:    recipient,
		Product:      c.Product,
		OrderRemarks: c.OrderRemarks,
	}
}

// Summary 選択済みの件数を「追加: N件、変更: N件、削除: N件」の形で返す（0件の種類は省く）
func Summary(entries []model.DiffEntry) string {
	var add, update, del int
	for _, e := range entries {
		if !e.Actionable() {
			continue
		}
		switch e.Type {
		case model.DiffAdd:
			add++
		case model.DiffUpdate:
			update++
		case model.DiffDelete:
			del++
		}
	}

	var parts []string
	if add > 0 {
		parts = append(parts, fmt.Sprintf("追加: %d件", add))
	}
	if update > 0 {
		parts = append(parts, fmt.Sprintf("変更: %d件", update))
	}
	if del > 0 {
		parts = append(parts, fmt.Sprintf("削除: %d件", del))
	}
	return strings.Join(parts, "、")
}

// ResultMessage 実行結果のメッセージ
func ResultMessage(r model.BatchResult) string {
	var parts []string
	if r.Added > 0 {
		parts = append(parts, fmt.Sprintf("%d件追加", r.Added))
	}
	if r.Updated > 0 {
		parts = append(parts, fmt.Sprintf("%d件更新", r.Updated))
	}
	if r.Deleted > 0 {
		parts = append(parts, fmt.Sprintf("%d件削除", r.Deleted))
	}
	return "インポート完了: " + strings.Join(parts, "、")
}

// Executor 一括インポートの送信
type Executor struct {
	Store orderstore.BatchImporter
}

// Execute 要求を送信し、注文ストアが返した件数をそのまま返す
func (x *Executor) Execute(ctx context.Context, req model.BatchRequest) (model.BatchResult, error) {
	res, err := x.Store.BatchImport(ctx, req)
	if err != nil {
		return model.BatchResult{}, &SubmitError{Err: err}
	}
	return res, nil
}
