// Package gasclient はリモートの注文 API（Google Apps Script の Web アプリ）を呼び出す注文ストア。
// リクエストは {action, data} の JSON を POST し、レスポンスは {data, error}。
package gasclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/TOKYOFLOWER/BeDelivery/internal/model"
	"github.com/TOKYOFLOWER/BeDelivery/internal/orderstore"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultRateLimit = 2.0
	defaultBurst     = 1
)

// API のアクション名
const (
	ActionGetOrders     = "getOrders"
	ActionGetOrder      = "getOrder"
	ActionCreateOrder   = "createOrder"
	ActionUpdateOrder   = "updateOrder"
	ActionDeleteOrder   = "deleteOrder"
	ActionBatchImport   = "batchImport"
	ActionGetStatistics = "getStatistics"
)

// ErrNotConfigured API の URL が未設定
var ErrNotConfigured = errors.New("remote api url is not configured")

// APIError API が error を返した
type APIError struct {
	Action  string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Action, e.Message)
}

// Config クライアント設定
type Config struct {
	URL           string
	Timeout       time.Duration
	RatePerSecond float64
	// Observe 呼び出しごとに結果と所要時間を通知する
	Observe func(action string, err error, elapsed time.Duration)
}

// Client リモート注文ストア
type Client struct {
	url        string
	httpClient *http.Client
	limiter    *rate.Limiter
	observe    func(action string, err error, elapsed time.Duration)
}

// New クライアントを作成する
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, ErrNotConfigured
	}

	timeout := defaultTimeout
	if cfg.Timeout > 0 {
		timeout = cfg.Timeout
	}
	limit := rate.Limit(defaultRateLimit)
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}

	return &Client{
		url:        cfg.URL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, defaultBurst),
		observe:    cfg.Observe,
	}, nil
}

type request struct {
	Action string `json:"action"`
	Data   any    `json:"data"`
}

type response struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

// call アクションを実行し、data を out にデコードする
func (c *Client) call(ctx context.Context, action string, data, out any) (err error) {
	if c.observe != nil {
		start := time.Now()
		defer func() { c.observe(action, err, time.Since(start)) }()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}

	if data == nil {
		data = struct{}{}
	}
	body, err := json.Marshal(request{Action: action, Data: data})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	// Apps Script はプリフライトを受け付けないため text/plain で送る
	req.Header.Set("Content-Type", "text/plain;charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: request failed: %w", action, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: failed to read response: %w", action, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: API呼び出しに失敗しました (%d): %s", action, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var res response
	if err := json.Unmarshal(raw, &res); err != nil {
		return fmt.Errorf("%s: failed to parse response: %w", action, err)
	}
	if res.Error != "" {
		return &APIError{Action: action, Message: res.Error}
	}
	if out == nil || len(res.Data) == 0 || string(res.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(res.Data, out); err != nil {
		return fmt.Errorf("%s: failed to decode data: %w", action, err)
	}
	return nil
}

// remoteOrder API が返す注文。キーは id、日時はスプレッドシート由来の文字列
type remoteOrder struct {
	model.Order
	ID        string `json:"id"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func (r remoteOrder) toOrder() model.Order {
	o := r.Order
	if o.OrderKey == "" {
		o.OrderKey = r.ID
	}
	o.CreatedAt = parseTime(r.CreatedAt)
	o.UpdatedAt = parseTime(r.UpdatedAt)
	return o
}

func parseTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006/01/02 15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// GetOrders 注文一覧
func (c *Client) GetOrders(ctx context.Context, filter model.OrderFilter) ([]model.Order, error) {
	var remote []remoteOrder
	if err := c.call(ctx, ActionGetOrders, filter, &remote); err != nil {
		return nil, err
	}
	orders := make([]model.Order, 0, len(remote))
	for _, r := range remote {
		orders = append(orders, r.toOrder())
	}
	return orders, nil
}

type orderKeyData struct {
	OrderID string `json:"orderId"`
}

// GetOrder 注文を1件取得する
func (c *Client) GetOrder(ctx context.Context, orderKey string) (*model.Order, error) {
	var remote *remoteOrder
	if err := c.call(ctx, ActionGetOrder, orderKeyData{OrderID: orderKey}, &remote); err != nil {
		return nil, err
	}
	if remote == nil {
		return nil, orderstore.ErrOrderNotFound
	}
	order := remote.toOrder()
	return &order, nil
}

type orderData struct {
	model.OrderPayload
	Status model.OrderStatus `json:"status,omitempty"`
}

type createData struct {
	OrderData orderData `json:"orderData"`
}

type updateData struct {
	OrderID   string    `json:"orderId"`
	OrderData orderData `json:"orderData"`
}

// CreateOrder 注文を登録する
func (c *Client) CreateOrder(ctx context.Context, payload model.OrderPayload) (*model.Order, error) {
	var remote remoteOrder
	if err := c.call(ctx, ActionCreateOrder, createData{OrderData: orderData{OrderPayload: payload}}, &remote); err != nil {
		return nil, err
	}
	order := remote.toOrder()
	if order.OrderKey == "" {
		order.OrderPayload = payload
		order.Status = model.StatusNew
	}
	return &order, nil
}

// UpdateOrder 注文を更新する
func (c *Client) UpdateOrder(ctx context.Context, orderKey string, payload model.OrderPayload, status model.OrderStatus) (*model.Order, error) {
	data := updateData{OrderID: orderKey, OrderData: orderData{OrderPayload: payload, Status: status}}
	var remote remoteOrder
	if err := c.call(ctx, ActionUpdateOrder, data, &remote); err != nil {
		return nil, err
	}
	order := remote.toOrder()
	if order.OrderKey == "" {
		order.OrderKey = orderKey
		order.OrderPayload = payload
		order.Status = status
	}
	return &order, nil
}

// DeleteOrder 注文を削除する
func (c *Client) DeleteOrder(ctx context.Context, orderKey string) error {
	return c.call(ctx, ActionDeleteOrder, orderKeyData{OrderID: orderKey}, nil)
}

// BatchImport 一括インポート。件数は API の返却値をそのまま使う
func (c *Client) BatchImport(ctx context.Context, req model.BatchRequest) (model.BatchResult, error) {
	var res model.BatchResult
	if err := c.call(ctx, ActionBatchImport, req, &res); err != nil {
		return model.BatchResult{}, err
	}
	return res, nil
}

// GetStatistics ステータス別件数
func (c *Client) GetStatistics(ctx context.Context) (model.Statistics, error) {
	var st model.Statistics
	if err := c.call(ctx, ActionGetStatistics, nil, &st); err != nil {
		return model.Statistics{}, err
	}
	return st, nil
}
