// Package session は1回分の取り込み（差分プレビューから実行まで）の状態を保持する。
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/TOKYOFLOWER/BeDelivery/internal/model"
)

var (
	// ErrEntryIndex 差分の番号が範囲外
	ErrEntryIndex = errors.New("entry index out of range")
	// ErrSessionClosed 取り込みは終了済み（キャンセル・実行済み・期限切れ）
	ErrSessionClosed = errors.New("import session closed")
	// ErrSessionBusy 実行中
	ErrSessionBusy = errors.New("import session is executing")
)

// State セッションの状態
type State string

const (
	StateOpen      State = "open"
	StateExecuting State = "executing"
	StateClosed    State = "closed"
)

// Session 取り込みセッション
type Session struct {
	ID        string
	FileName  string
	SheetName string
	CreatedAt time.Time

	mu      sync.Mutex
	entries []model.DiffEntry
	state   State
}

// New 差分一覧からセッションを作成する
func New(id, fileName, sheetName string, entries []model.DiffEntry) *Session {
	return &Session{
		ID:        id,
		FileName:  fileName,
		SheetName: sheetName,
		CreatedAt: time.Now(),
		entries:   entries,
		state:     StateOpen,
	}
}

// State 現在の状態
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Entries 差分一覧のコピー
func (s *Session) Entries() []model.DiffEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.DiffEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len 差分の件数
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Counts タイプ別件数
func (s *Session) Counts() model.DiffCounts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.CountDiff(s.entries)
}

// Toggle 指定番号の差分の選択状態を変える
func (s *Session) Toggle(index int, included bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writableLocked(); err != nil {
		return err
	}
	if index < 0 || index >= len(s.entries) {
		return ErrEntryIndex
	}
	s.entries[index].Included = included
	return nil
}

// SetAll 変更なし以外の差分をまとめて選択・解除する
func (s *Session) SetAll(included bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writableLocked(); err != nil {
		return err
	}
	for i := range s.entries {
		if s.entries[i].Type == model.DiffUnchanged {
			continue
		}
		s.entries[i].Included = included
	}
	return nil
}

// ActionableCount 選択済みかつ変更なし以外の件数。0 件なら実行できない
func (s *Session) ActionableCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, e := range s.entries {
		if e.Actionable() {
			n++
		}
	}
	return n
}

// Selected 取り込み対象の差分
func (s *Session) Selected() []model.DiffEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.DiffEntry
	for _, e := range s.entries {
		if e.Actionable() {
			out = append(out, e)
		}
	}
	return out
}

// Begin 実行開始。終了済みや実行中なら失敗する
func (s *Session) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writableLocked(); err != nil {
		return err
	}
	s.state = StateExecuting
	return nil
}

// Finish 実行結果を反映する。成功なら終了、失敗なら再実行できる状態に戻す
// 実行中にキャンセルされていた場合は false を返し、結果は捨てる。
func (s *Session) Finish(succeeded bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateExecuting {
		return false
	}
	if succeeded {
		s.state = StateClosed
	} else {
		s.state = StateOpen
	}
	return true
}

// Close セッションを終了する
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateClosed
}

// Closed 終了済みか
func (s *Session) Closed() bool {
	return s.State() == StateClosed
}

func (s *Session) writableLocked() error {
	switch s.state {
	case StateClosed:
		return ErrSessionClosed
	case StateExecuting:
		return ErrSessionBusy
	}
	return nil
}
