package store

import (
	"context"
	"fmt"
	"time"
)

// ImportLog 取り込み履歴
type ImportLog struct {
	ID           int64      `json:"id"`
	SessionID    string     `json:"sessionId"`
	Filename     string     `json:"filename"`
	SheetName    string     `json:"sheetName"`
	TotalRows    int        `json:"totalRows"`
	Added        int        `json:"added"`
	Updated      int        `json:"updated"`
	Deleted      int        `json:"deleted"`
	Status       string     `json:"status"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	StartedAt    time.Time  `json:"startedAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

// 取り込み履歴のステータス
const (
	ImportStatusProcessing = "processing"
	ImportStatusCompleted  = "completed"
	ImportStatusFailed     = "failed"
	ImportStatusCancelled  = "cancelled"
)

// CreateImportLog 取り込み開始を記録し、ID を返す
func (s *Store) CreateImportLog(ctx context.Context, sessionID, filename, sheetName string, totalRows int) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO import_logs (session_id, filename, sheet_name, total_rows, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, sessionID, filename, sheetName, totalRows, ImportStatusProcessing, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to create import log: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get import log id: %w", err)
	}
	return id, nil
}

// UpdateImportLog 取り込み結果を記録する
func (s *Store) UpdateImportLog(ctx context.Context, id int64, added, updated, deleted int, status, errorMessage string) error {
	now := s.now().UTC()
	_, err := s.db.ExecContext(ctx, `
		UPDATE import_logs SET
			added = ?,
			updated = ?,
			deleted = ?,
			status = ?,
			error_message = ?,
			completed_at = ?
		WHERE id = ?
	`, added, updated, deleted, status, errorMessage, now, id)
	if err != nil {
		return fmt.Errorf("failed to update import log: %w", err)
	}
	if status == ImportStatusCompleted {
		if err := setConfig(ctx, s.db, configLastImportAt, now.Format(time.RFC3339)); err != nil {
			return fmt.Errorf("failed to save last import time: %w", err)
		}
	}
	return nil
}

// ListImportLogs 新しい順に取り込み履歴を返す
func (s *Store) ListImportLogs(ctx context.Context, limit int) ([]ImportLog, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, filename, sheet_name, total_rows, added, updated, deleted,
			status, error_message, started_at, completed_at
		FROM import_logs ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query import logs: %w", err)
	}
	defer rows.Close()

	logs := []ImportLog{}
	for rows.Next() {
		var l ImportLog
		if err := rows.Scan(&l.ID, &l.SessionID, &l.Filename, &l.SheetName, &l.TotalRows,
			&l.Added, &l.Updated, &l.Deleted, &l.Status, &l.ErrorMessage, &l.StartedAt, &l.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan import log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// LastImportAt 最後に成功した取り込みの日時
func (s *Store) LastImportAt() (time.Time, bool) {
	value, err := s.GetConfig(configLastImportAt)
	if err != nil {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
