package orderstore

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/TOKYOFLOWER/BeDelivery/internal/model"
)

// MemoryStore プロセス内に注文を保持するストア（試用・ドライラン用）
type MemoryStore struct {
	mu     sync.RWMutex
	orders map[string]*model.Order
	keys   []string // 登録順
	seq    int
	now    func() time.Time
}

// NewMemoryStore 初期注文を登録順に持つストアを作成する
func NewMemoryStore(seed ...model.Order) *MemoryStore {
	s := &MemoryStore{
		orders: make(map[string]*model.Order, len(seed)),
		now:    time.Now,
	}
	for i := range seed {
		o := seed[i]
		if o.OrderKey == "" {
			o.OrderKey = uuid.NewString()
		}
		if o.Status == "" {
			o.Status = model.StatusNew
		}
		s.orders[o.OrderKey] = &o
		s.keys = append(s.keys, o.OrderKey)
	}
	return s
}

// GetOrders 注文一覧（登録順）
func (s *MemoryStore) GetOrders(ctx context.Context, filter model.OrderFilter) ([]model.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	text := strings.TrimSpace(filter.SearchText)
	result := []model.Order{}
	for _, key := range s.keys {
		o := s.orders[key]
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if text != "" && !matchesText(o, text) {
			continue
		}
		result = append(result, *o)
	}
	return result, nil
}

func matchesText(o *model.Order, text string) bool {
	fields := []string{
		o.OrderNumber,
		o.CustomerLastName + o.CustomerFirstName,
		o.RecipientLastName + o.RecipientFirstName,
		o.RecipientPhone,
		o.RecipientAddress,
	}
	for _, f := range fields {
		if strings.Contains(f, text) {
			return true
		}
	}
	return false
}

// GetOrder 注文を1件取得する
func (s *MemoryStore) GetOrder(ctx context.Context, orderKey string) (*model.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[orderKey]
	if !ok {
		return nil, ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

// CreateOrder 注文を登録する
func (s *MemoryStore) CreateOrder(ctx context.Context, payload model.OrderPayload) (*model.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	o := s.insert(payload)
	cp := *o
	return &cp, nil
}

// UpdateOrder 注文を更新する。注文番号・ステータスが空なら現在の値を残す
func (s *MemoryStore) UpdateOrder(ctx context.Context, orderKey string, payload model.OrderPayload, status model.OrderStatus) (*model.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.update(orderKey, payload, status)
	if !ok {
		return nil, ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

// DeleteOrder 注文を削除する
func (s *MemoryStore) DeleteOrder(ctx context.Context, orderKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.remove(orderKey) {
		return ErrOrderNotFound
	}
	return nil
}

// BatchImport 追加・更新・削除をまとめて適用する
// 存在しない注文キーの更新・削除は件数に含めない。
func (s *MemoryStore) BatchImport(ctx context.Context, req model.BatchRequest) (model.BatchResult, error) {
	var result model.BatchResult
	if err := ctx.Err(); err != nil {
		return result, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range req.Additions {
		s.insert(p)
		result.Added++
	}
	for _, u := range req.Updates {
		if _, ok := s.update(u.OrderKey, u.OrderData, ""); ok {
			result.Updated++
		}
	}
	for _, key := range req.Deletions {
		if s.remove(key) {
			result.Deleted++
		}
	}
	return result, nil
}

// GetStatistics ステータス別の件数
func (s *MemoryStore) GetStatistics(ctx context.Context) (model.Statistics, error) {
	var st model.Statistics
	if err := ctx.Err(); err != nil {
		return st, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, o := range s.orders {
		st.Total++
		switch o.Status {
		case model.StatusNew:
			st.New++
		case model.StatusProcessing:
			st.Processing++
		case model.StatusShipped:
			st.Shipped++
		case model.StatusCancelled:
			st.Cancelled++
		}
	}
	return st, nil
}

func (s *MemoryStore) insert(p model.OrderPayload) *model.Order {
	if p.OrderNumber == "" {
		s.seq++
		p.OrderNumber = fmt.Sprintf("BD%s-%05d", s.now().Format("20060102"), s.seq)
	}
	now := s.now().UTC()
	o := &model.Order{
		OrderKey:     uuid.NewString(),
		Status:       model.StatusNew,
		OrderPayload: p,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.orders[o.OrderKey] = o
	s.keys = append(s.keys, o.OrderKey)
	return o
}

func (s *MemoryStore) update(orderKey string, p model.OrderPayload, status model.OrderStatus) (*model.Order, bool) {
	o, ok := s.orders[orderKey]
	if !ok {
		return nil, false
	}
	if p.OrderNumber == "" {
		p.OrderNumber = o.OrderNumber
	}
	if status != "" {
		o.Status = status
	}
	o.OrderPayload = p
	o.UpdatedAt = s.now().UTC()
	return o, true
}

func (s *MemoryStore) remove(orderKey string) bool {
	if _, ok := s.orders[orderKey]; !ok {
		return false
	}
	delete(s.orders, orderKey)
	for i, k := range s.keys {
		if k == orderKey {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			break
		}
	}
	return true
}
