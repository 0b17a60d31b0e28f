// Package importer は取り込みの流れ（読み込み、正規化、照合、実行）をまとめる。
package importer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/TOKYOFLOWER/BeDelivery/internal/batch"
	"github.com/TOKYOFLOWER/BeDelivery/internal/metrics"
	"github.com/TOKYOFLOWER/BeDelivery/internal/model"
	"github.com/TOKYOFLOWER/BeDelivery/internal/orderstore"
	"github.com/TOKYOFLOWER/BeDelivery/internal/parser"
	"github.com/TOKYOFLOWER/BeDelivery/internal/reconcile"
	"github.com/TOKYOFLOWER/BeDelivery/internal/session"
	"github.com/TOKYOFLOWER/BeDelivery/internal/workbook"
)

// ErrExistingFetchFailed 既存注文の取得に失敗した
// プレビューは既存0件として続行する。
var ErrExistingFetchFailed = errors.New("既存の注文を取得できませんでした")

// 取り込み履歴のステータス
const (
	journalCompleted = "completed"
	journalFailed    = "failed"
	journalCancelled = "cancelled"
)

// Journal 取り込み履歴の記録先
type Journal interface {
	CreateImportLog(ctx context.Context, sessionID, filename, sheetName string, totalRows int) (int64, error)
	UpdateImportLog(ctx context.Context, id int64, added, updated, deleted int, status, errorMessage string) error
}

// ProgressEvent 進捗イベント
type ProgressEvent struct {
	Type      string    `json:"type"` // start/sheet/parsed/fetched/done
	Message   string    `json:"message"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Options Coordinator の設定
type Options struct {
	Selector       parser.SheetSelector
	Defaults       parser.Defaults
	DeleteSentinel string
	SessionTTL     time.Duration
	SingleSession  bool

	Journal  Journal
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	Progress func(ProgressEvent)
}

// DefaultOptions 既定の設定
func DefaultOptions() Options {
	return Options{
		Selector:       *parser.NewSheetSelector(),
		Defaults:       parser.DefaultDefaults(),
		DeleteSentinel: reconcile.DefaultDeleteSentinel,
		SessionTTL:     session.DefaultTTL,
		SingleSession:  true,
	}
}

// Coordinator 取り込みの調整役
type Coordinator struct {
	store      orderstore.Store
	sessions   *session.Manager
	selector   *parser.SheetSelector
	normalizer *parser.RowNormalizer
	reconciler *reconcile.Reconciler
	executor   *batch.Executor
	journal    Journal
	logger     *zap.Logger
	metrics    *metrics.Metrics
	progress   func(ProgressEvent)
}

// NewCoordinator Coordinator を作成する
func NewCoordinator(store orderstore.Store, opts Options) *Coordinator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	selector := opts.Selector
	if len(selector.Priority) == 0 && len(selector.Excluded) == 0 {
		selector = *parser.NewSheetSelector()
	}
	reconciler := reconcile.New()
	if opts.DeleteSentinel != "" {
		reconciler.DeleteSentinel = opts.DeleteSentinel
	}
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = session.DefaultTTL
	}

	return &Coordinator{
		store:      store,
		sessions:   session.NewManager(ttl, opts.SingleSession),
		selector:   &selector,
		normalizer: parser.NewRowNormalizer(opts.Defaults),
		reconciler: reconciler,
		executor:   &batch.Executor{Store: store},
		journal:    opts.Journal,
		logger:     logger.Named("importer"),
		metrics:    opts.Metrics,
		progress:   opts.Progress,
	}
}

// Sessions セッション管理
func (c *Coordinator) Sessions() *session.Manager {
	return c.sessions
}

// PreviewResult プレビュー結果
type PreviewResult struct {
	Session    *session.Session
	TotalRows  int
	Candidates int
	// FetchError 既存注文の取得に失敗した場合のエラー（既存0件で照合済み）
	FetchError error
}

// Preview ファイルを読み込み、既存注文と照合してセッションを開始する
func (c *Coordinator) Preview(ctx context.Context, fileName string, data []byte) (*PreviewResult, error) {
	fileName = filepath.Base(fileName)
	c.sendProgress("start", "ファイルを読み込んでいます", map[string]string{"filename": fileName})

	wb, err := workbook.Decode(fileName, data)
	if err != nil {
		return nil, err
	}

	sheetName, err := c.selector.Select(wb.SheetNames())
	if err != nil {
		return nil, err
	}
	c.sendProgress("sheet", fmt.Sprintf("シート「%s」を使用します", sheetName), map[string]string{"sheet_name": sheetName})

	sheet, err := wb.Sheet(sheetName)
	if err != nil {
		return nil, err
	}
	rows := sheet.Rows
	candidates, err := c.normalizer.ParseTable(sheet.Headers, rows)
	c.metrics.RecordRows(len(candidates), len(rows)-len(candidates))
	if err != nil {
		return nil, err
	}
	c.sendProgress("parsed", fmt.Sprintf("%d件のデータを読み込みました", len(candidates)), map[string]int{
		"total_rows": len(rows),
		"candidates": len(candidates),
	})

	result := &PreviewResult{TotalRows: len(rows), Candidates: len(candidates)}

	existing, err := c.store.GetOrders(ctx, model.OrderFilter{})
	if err != nil {
		// 取得失敗は既存0件として扱い、全件を追加として提示する
		result.FetchError = fmt.Errorf("%w: %w", ErrExistingFetchFailed, err)
		c.metrics.RecordFetchFailure()
		c.logger.Warn("existing orders fetch failed, continuing with empty set",
			zap.String("file", fileName),
			zap.Error(err),
		)
		existing = nil
	}
	c.sendProgress("fetched", fmt.Sprintf("既存の注文 %d件", len(existing)), map[string]int{"existing": len(existing)})

	entries := c.reconciler.Reconcile(candidates, existing)
	counts := model.CountDiff(entries)
	c.metrics.RecordDiff(counts)

	s := c.sessions.Start(fileName, sheetName, entries)
	c.metrics.RecordSessionStarted(c.sessions.Len())
	result.Session = s

	c.logger.Info("import preview ready",
		zap.String("session", s.ID),
		zap.String("file", fileName),
		zap.String("sheet", sheetName),
		zap.Int("rows", len(rows)),
		zap.Int("add", counts.Add),
		zap.Int("update", counts.Update),
		zap.Int("delete", counts.Delete),
		zap.Int("unchanged", counts.Unchanged),
	)
	c.sendProgress("done", "差分を作成しました", counts)

	return result, nil
}

// Get 有効なセッションを取得する
func (c *Coordinator) Get(id string) (*session.Session, error) {
	s, ok := c.sessions.Get(id)
	if !ok {
		return nil, session.ErrSessionClosed
	}
	return s, nil
}

// ExecuteResult 実行結果
type ExecuteResult struct {
	model.BatchResult
	Message string `json:"message"`
}

// Execute 選択済みの差分を一括送信する
// 送信中にキャンセルされた場合は結果を捨てて ErrSessionClosed を返す。
func (c *Coordinator) Execute(ctx context.Context, id string) (*ExecuteResult, error) {
	s, err := c.Get(id)
	if err != nil {
		return nil, err
	}
	if s.ActionableCount() == 0 {
		return nil, batch.ErrNothingSelected
	}
	if err := s.Begin(); err != nil {
		return nil, err
	}

	// Begin 後は選択を変更できないので、ここで組み立てた要求が送信内容になる
	req := batch.Build(s.Selected())
	if req.Empty() {
		s.Finish(false)
		return nil, batch.ErrNothingSelected
	}
	logID := c.startJournal(ctx, s)

	start := time.Now()
	res, err := c.executor.Execute(ctx, req)
	elapsed := time.Since(start)

	if !s.Finish(err == nil) {
		c.metrics.RecordExecution("cancelled", elapsed)
		c.logger.Warn("import cancelled while executing, result discarded",
			zap.String("session", s.ID),
			zap.Int("added", res.Added),
			zap.Int("updated", res.Updated),
			zap.Int("deleted", res.Deleted),
			zap.Error(err),
		)
		if err != nil {
			c.finishJournal(ctx, logID, model.BatchResult{}, journalFailed, err.Error())
		} else {
			// 注文ストアには反映済みなので件数は残す
			c.finishJournal(ctx, logID, res, journalCancelled, session.ErrSessionClosed.Error())
		}
		return nil, session.ErrSessionClosed
	}

	if err != nil {
		c.metrics.RecordExecution("failure", elapsed)
		c.logger.Error("batch import failed",
			zap.String("session", s.ID),
			zap.Int("additions", len(req.Additions)),
			zap.Int("updates", len(req.Updates)),
			zap.Int("deletions", len(req.Deletions)),
			zap.Error(err),
		)
		c.finishJournal(ctx, logID, model.BatchResult{}, journalFailed, err.Error())
		return nil, err
	}

	c.metrics.RecordExecution("success", elapsed)
	c.sessions.Discard(s.ID)
	c.metrics.SetActiveSessions(c.sessions.Len())
	c.finishJournal(ctx, logID, res, journalCompleted, "")
	c.logger.Info("batch import completed",
		zap.String("session", s.ID),
		zap.Int("added", res.Added),
		zap.Int("updated", res.Updated),
		zap.Int("deleted", res.Deleted),
		zap.Duration("elapsed", elapsed),
	)

	return &ExecuteResult{BatchResult: res, Message: batch.ResultMessage(res)}, nil
}

// Cancel セッションを破棄する。実行中の送信結果は無視される
func (c *Coordinator) Cancel(id string) bool {
	ok := c.sessions.Discard(id)
	if ok {
		c.logger.Info("import session cancelled", zap.String("session", id))
	}
	c.metrics.SetActiveSessions(c.sessions.Len())
	return ok
}

func (c *Coordinator) startJournal(ctx context.Context, s *session.Session) int64 {
	if c.journal == nil {
		return 0
	}
	id, err := c.journal.CreateImportLog(ctx, s.ID, s.FileName, s.SheetName, s.Len())
	if err != nil {
		c.logger.Warn("failed to create import log", zap.String("session", s.ID), zap.Error(err))
		return 0
	}
	return id
}

func (c *Coordinator) finishJournal(ctx context.Context, id int64, res model.BatchResult, status, msg string) {
	if c.journal == nil || id == 0 {
		return
	}
	// 送信のキャンセルに巻き込まれないよう切り離す
	ctx = context.WithoutCancel(ctx)
	if err := c.journal.UpdateImportLog(ctx, id, res.Added, res.Updated, res.Deleted, status, msg); err != nil {
		c.logger.Warn("failed to update import log", zap.Int64("log_id", id), zap.Error(err))
	}
}

func (c *Coordinator) sendProgress(typ, message string, data any) {
	if c.progress == nil {
		return
	}
	c.progress(ProgressEvent{Type: typ, Message: message, Data: data, Timestamp: time.Now()})
}
