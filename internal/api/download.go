package api

import (
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (h *Handler) writeXLSX(c *gin.Context, f *excelize.File, filename string) {
	buf, err := f.WriteToBuffer()
	if err != nil {
		h.writeError(c, fmt.Errorf("failed to write xlsx: %w", err))
		return
	}
	c.Header("Content-Disposition", contentDisposition(filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func fileExt(name string) string {
	return filepath.Ext(name)
}

// contentDisposition 日本語のファイル名は RFC 5987 形式で渡す
func contentDisposition(filename string) string {
	return fmt.Sprintf("attachment; filename=\"export.xlsx\"; filename*=UTF-8''%s", url.PathEscape(filename))
}
