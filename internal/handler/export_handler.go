package handler

import (
	"net/http"
	"os"
	"path"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/pts-payroll-api/pkg/response"
)

type exportResolver interface {
	Resolve(token string) (*os.File, string, error)
}

// ExportHandler streams generated export files behind signed tokens.
type ExportHandler struct {
	exports exportResolver
}

// NewExportHandler constructs the handler.
func NewExportHandler(exports exportResolver) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Download godoc
// @Summary Download a generated export
// @Tags Exports
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /exports/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	file, name, err := h.exports.Resolve(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+path.Base(name)+`"`)
	c.DataFromReader(http.StatusOK, info.Size(), contentType(name), file, nil)
}

func contentType(name string) string {
	switch path.Ext(name) {
	case ".csv":
		return "text/csv; charset=utf-8"
	case ".pdf":
		return "application/pdf"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}
