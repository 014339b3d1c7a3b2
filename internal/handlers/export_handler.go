package handlers

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"alfredoptarigan/cv-ranker/internal/logger"
	"alfredoptarigan/cv-ranker/internal/models"
	"alfredoptarigan/cv-ranker/internal/services"
)

type ExportHandler struct {
	logger *zap.Logger
}

func NewExportHandler(log *zap.Logger) *ExportHandler {
	return &ExportHandler{
		logger: logger.OrNop(log),
	}
}

// HandleExport handles POST /export?format=csv|json|html
func (h *ExportHandler) HandleExport(c *fiber.Ctx) error {
	var req models.ExportRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid request payload")
	}

	// Rebuild the table so the download is always in ranking order.
	table, err := services.TableFromRecords(req.Records)
	if err != nil {
		status, msg := statusFor(err)
		return respondError(c, status, msg)
	}
	records := services.ToRecords(table)

	format := strings.ToLower(c.Query("format", "csv"))

	var (
		buf         bytes.Buffer
		contentType string
	)
	switch format {
	case "csv":
		contentType = "text/csv; charset=utf-8"
		err = services.WriteCSV(&buf, records)
	case "json":
		contentType = fiber.MIMEApplicationJSONCharsetUTF8
		err = services.WriteJSON(&buf, records)
	case "html":
		contentType = fiber.MIMETextHTMLCharsetUTF8
		err = services.RenderHTML(&buf, req.Title, records, c.QueryBool("markdown", false))
	default:
		return respondError(c, fiber.StatusBadRequest, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		h.logger.Error("export failed", zap.String("format", format), zap.Error(err))
		return respondError(c, fiber.StatusInternalServerError, "failed to export results")
	}

	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="ranking.%s"`, format))
	return c.Send(buf.Bytes())
}
