package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/TOKYOFLOWER/BeDelivery/internal/batch"
	"github.com/TOKYOFLOWER/BeDelivery/internal/exporter"
	"github.com/TOKYOFLOWER/BeDelivery/internal/model"
	"github.com/TOKYOFLOWER/BeDelivery/internal/session"
	"github.com/TOKYOFLOWER/BeDelivery/internal/workbook"
)

// EntryView 差分1件の表示
type EntryView struct {
	Index    int                 `json:"index"`
	Type     model.DiffType      `json:"type"`
	Name     string              `json:"name"`
	OrderKey *string             `json:"orderKey"`
	Changes  []model.FieldChange `json:"changes"`
	Included bool                `json:"included"`
	Detail   []string            `json:"detail"`
}

// SessionView 取り込みセッションの表示
type SessionView struct {
	ID              string           `json:"id"`
	FileName        string           `json:"fileName"`
	SheetName       string           `json:"sheetName"`
	State           session.State    `json:"state"`
	CreatedAt       time.Time        `json:"createdAt"`
	Counts          model.DiffCounts `json:"counts"`
	ActionableCount int              `json:"actionableCount"`
	Summary         string           `json:"summary"`
	Warning         string           `json:"warning,omitempty"`
	Entries         []EntryView      `json:"entries"`
}

func newSessionView(s *session.Session) SessionView {
	entries := s.Entries()
	views := make([]EntryView, len(entries))
	for i, e := range entries {
		changes := e.Changes
		if changes == nil {
			changes = []model.FieldChange{}
		}
		detail := session.Detail(e)
		if detail == nil {
			detail = []string{}
		}
		views[i] = EntryView{
			Index:    i,
			Type:     e.Type,
			Name:     e.Name,
			OrderKey: e.OrderKey,
			Changes:  changes,
			Included: e.Included,
			Detail:   detail,
		}
	}

	return SessionView{
		ID:              s.ID,
		FileName:        s.FileName,
		SheetName:       s.SheetName,
		State:           s.State(),
		CreatedAt:       s.CreatedAt,
		Counts:          model.CountDiff(entries),
		ActionableCount: s.ActionableCount(),
		Summary:         batch.Summary(entries),
		Entries:         views,
	}
}

// CreateImport ファイルを受け取り差分プレビューを作成する
// POST /api/imports
func (h *Handler) CreateImport(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("ファイルサイズは%dMBまでです", h.maxUploadBytes>>20)})
			return
		}
		badRequest(c, "ファイルを選択してください")
		return
	}
	if !workbook.IsSupported(fh.Filename) {
		h.writeError(c, workbook.ErrUnsupportedFileType)
		return
	}

	f, err := fh.Open()
	if err != nil {
		badRequest(c, "ファイルを読み込めませんでした")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		badRequest(c, "ファイルを読み込めませんでした")
		return
	}

	res, err := h.coord.Preview(c.Request.Context(), fh.Filename, data)
	if err != nil {
		h.logger.Info("import preview rejected", zap.String("file", fh.Filename), zap.Error(err))
		h.writeError(c, err)
		return
	}

	view := newSessionView(res.Session)
	if res.FetchError != nil {
		view.Warning = "既存の注文を取得できなかったため、すべて新規として表示しています"
	}
	c.JSON(http.StatusCreated, view)
}

// GetImport セッションの状態
// GET /api/imports/:id
func (h *Handler) GetImport(c *gin.Context) {
	s, err := h.coord.Get(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionView(s))
}

type includedRequest struct {
	Included *bool `json:"included"`
}

func bindIncluded(c *gin.Context) (bool, bool) {
	var req includedRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Included == nil {
		badRequest(c, "included を指定してください")
		return false, false
	}
	return *req.Included, true
}

// ToggleEntry 差分1件の取り込み有無を切り替える
// PATCH /api/imports/:id/entries/:index
func (h *Handler) ToggleEntry(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		h.writeError(c, session.ErrEntryIndex)
		return
	}
	included, ok := bindIncluded(c)
	if !ok {
		return
	}

	s, err := h.coord.Get(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if err := s.Toggle(index, included); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionView(s))
}

// SelectAll 変更なし以外をまとめて選択・解除する
// POST /api/imports/:id/select
func (h *Handler) SelectAll(c *gin.Context) {
	included, ok := bindIncluded(c)
	if !ok {
		return
	}

	s, err := h.coord.Get(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if err := s.SetAll(included); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionView(s))
}

// ExportImport 差分一覧を xlsx でダウンロードする
// GET /api/imports/:id/export
func (h *Handler) ExportImport(c *gin.Context) {
	s, err := h.coord.Get(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	f, err := exporter.ExportReview(s.FileName, s.Entries())
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer f.Close()

	base := strings.TrimSuffix(s.FileName, fileExt(s.FileName))
	h.writeXLSX(c, f, base+"_差分.xlsx")
}

// ExecuteImport 選択済みの差分を送信する
// POST /api/imports/:id/execute
func (h *Handler) ExecuteImport(c *gin.Context) {
	res, err := h.coord.Execute(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// CancelImport セッションを破棄する
// DELETE /api/imports/:id
func (h *Handler) CancelImport(c *gin.Context) {
	if !h.coord.Cancel(c.Param("id")) {
		h.writeError(c, session.ErrSessionClosed)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
