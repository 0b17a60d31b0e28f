package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/TOKYOFLOWER/BeDelivery/internal/model"
)

// DefaultTTL 操作のないセッションを破棄するまでの時間
const DefaultTTL = 30 * time.Minute

type managedSession struct {
	session   *Session
	expiresAt time.Time
}

// Manager プロセス内のセッション一覧
type Manager struct {
	mu     sync.Mutex
	items  map[string]managedSession
	ttl    time.Duration
	single bool
	now    func() time.Time
}

// NewManager single が true の場合、新しいセッションを開始すると既存のセッションは破棄される
func NewManager(ttl time.Duration, single bool) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		items:  make(map[string]managedSession),
		ttl:    ttl,
		single: single,
		now:    time.Now,
	}
}

// Start 新しいセッションを登録する
func (m *Manager) Start(fileName, sheetName string, entries []model.DiffEntry) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.purgeExpiredLocked(now)

	if m.single {
		for id, item := range m.items {
			item.session.Close()
			delete(m.items, id)
		}
	}

	s := New(uuid.NewString(), fileName, sheetName, entries)
	s.CreatedAt = now
	m.items[s.ID] = managedSession{session: s, expiresAt: now.Add(m.ttl)}
	return s
}

// Get セッションを取得し、有効期限を延長する
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.purgeExpiredLocked(now)

	item, ok := m.items[id]
	if !ok {
		return nil, false
	}
	if item.session.Closed() {
		delete(m.items, id)
		return nil, false
	}
	item.expiresAt = now.Add(m.ttl)
	m.items[id] = item
	return item.session, true
}

// Discard セッションを終了して一覧から外す
func (m *Manager) Discard(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[id]
	if !ok {
		return false
	}
	item.session.Close()
	delete(m.items, id)
	return true
}

// Len 有効なセッション数
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.purgeExpiredLocked(m.now())
	return len(m.items)
}

func (m *Manager) purgeExpiredLocked(now time.Time) {
	for id, item := range m.items {
		if now.After(item.expiresAt) || item.session.Closed() {
			item.session.Close()
			delete(m.items, id)
		}
	}
}
