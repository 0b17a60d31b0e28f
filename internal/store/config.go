package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
)

const (
	configOrderSeq     = "order_number_seq"
	configLastImportAt = "last_import_at"
)

// GetConfig 設定値を取得する
func (s *Store) GetConfig(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("config key not found: %s", key)
		}
		return "", err
	}
	return value, nil
}

// SetConfig 設定値を保存する
func (s *Store) SetConfig(key, value string) error {
	return setConfig(context.Background(), s.db, key, value)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func setConfig(ctx context.Context, db execer, key, value string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	return err
}

// nextOrderNumber 注文番号を採番する（BD + 日付 + 連番）
func (s *Store) nextOrderNumber(ctx context.Context, tx *sql.Tx) (string, error) {
	seq := 0
	var value string
	err := tx.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", configOrderSeq).Scan(&value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return "", fmt.Errorf("failed to read order sequence: %w", err)
	default:
		if seq, err = strconv.Atoi(value); err != nil {
			return "", fmt.Errorf("invalid order sequence %q: %w", value, err)
		}
	}

	seq++
	if err := setConfig(ctx, tx, configOrderSeq, strconv.Itoa(seq)); err != nil {
		return "", fmt.Errorf("failed to save order sequence: %w", err)
	}
	return fmt.Sprintf("BD%s-%05d", s.now().Format("20060102"), seq), nil
}
