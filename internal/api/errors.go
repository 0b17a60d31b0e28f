package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/TOKYOFLOWER/BeDelivery/internal/batch"
	"github.com/TOKYOFLOWER/BeDelivery/internal/orderstore"
	"github.com/TOKYOFLOWER/BeDelivery/internal/parser"
	"github.com/TOKYOFLOWER/BeDelivery/internal/session"
	"github.com/TOKYOFLOWER/BeDelivery/internal/workbook"
)

type errorMapping struct {
	target  error
	status  int
	message string
}

// errorMappings エラーと応答の対応（先に一致したものを使う）
var errorMappings = []errorMapping{
	{workbook.ErrUnsupportedFileType, http.StatusBadRequest, ""},
	{parser.ErrNoDataSheet, http.StatusUnprocessableEntity, ""},
	{parser.ErrEmptyResult, http.StatusUnprocessableEntity, ""},
	{session.ErrSessionClosed, http.StatusNotFound, "インポートセッションが見つからないか、終了しています"},
	{session.ErrSessionBusy, http.StatusConflict, "インポートを実行中です"},
	{session.ErrEntryIndex, http.StatusBadRequest, "差分の番号が不正です"},
	{batch.ErrNothingSelected, http.StatusBadRequest, ""},
	{orderstore.ErrOrderNotFound, http.StatusNotFound, ""},
	{batch.ErrBatchSubmitFailed, http.StatusBadGateway, ""},
}

func statusFor(err error) (int, string) {
	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		msg := m.message
		if msg == "" {
			msg = m.target.Error()
		}
		// 送信失敗は原因も表示する
		var submitErr *batch.SubmitError
		if m.target == batch.ErrBatchSubmitFailed && errors.As(err, &submitErr) {
			msg = submitErr.Error()
		}
		return m.status, msg
	}
	return http.StatusInternalServerError, "サーバーエラーが発生しました"
}

func (h *Handler) writeError(c *gin.Context, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	c.JSON(status, gin.H{"error": msg})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
