// Package orderstore は注文ストア（ローカル SQLite / リモート API）の共通インターフェースを定義する。
package orderstore

import (
	"context"
	"errors"

	"github.com/TOKYOFLOWER/BeDelivery/internal/model"
)

// ErrOrderNotFound 注文が存在しない
var ErrOrderNotFound = errors.New("注文が見つかりません")

// OrderReader 注文の参照
type OrderReader interface {
	GetOrders(ctx context.Context, filter model.OrderFilter) ([]model.Order, error)
	GetOrder(ctx context.Context, orderKey string) (*model.Order, error)
	GetStatistics(ctx context.Context) (model.Statistics, error)
}

// BatchImporter 一括インポート
type BatchImporter interface {
	BatchImport(ctx context.Context, req model.BatchRequest) (model.BatchResult, error)
}

// Store 注文ストア
type Store interface {
	OrderReader
	BatchImporter

	CreateOrder(ctx context.Context, order model.OrderPayload) (*model.Order, error)
	UpdateOrder(ctx context.Context, orderKey string, order model.OrderPayload, status model.OrderStatus) (*model.Order, error)
	DeleteOrder(ctx context.Context, orderKey string) error
}
