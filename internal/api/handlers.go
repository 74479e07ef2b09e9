package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"subscription-report-service/internal/logging"
	"subscription-report-service/internal/report"
)

type Handler struct {
	report *report.Service
	logger *logging.Logger
}

func NewHandler(report *report.Service, logger *logging.Logger) *Handler {
	return &Handler{report: report, logger: logger}
}

// UploadCSV ingests one report file. The whole pipeline up to persistence
// runs synchronously on the request; only notification side effects are
// asynchronous, and their outcome is never part of this response.
func (h *Handler) UploadCSV(c *gin.Context) {
	correlationID := CorrelationID(c)
	log := h.logger.WithCorrelation(correlationID)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		log.Errorf("Missing file field in upload: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field is required"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		log.Errorf("Failed to open uploaded file: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read uploaded file"})
		return
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		log.Errorf("Failed to read uploaded file: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read uploaded file"})
		return
	}

	if err := h.report.CreateReport(c.Request.Context(), fileHeader.Filename, content, correlationID); err != nil {
		var vErr *report.ValidationError
		if errors.As(err, &vErr) {
			log.Errorf("Upload rejected: %s", vErr.Reason)
			c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Reason})
			return
		}
		log.Errorf("Report creation failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process file"})
		return
	}

	c.String(http.StatusOK, fmt.Sprintf("File upload successful: %s", fileHeader.Filename))
}

// GetCustomerReport returns every persisted record for one customer.
func (h *Handler) GetCustomerReport(c *gin.Context) {
	customerID := c.Param("customerId")
	records, err := h.report.CustomerRecords(c.Request.Context(), customerID)
	if err != nil {
		h.logger.WithCorrelation(CorrelationID(c)).Errorf("Customer report failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read customer records"})
		return
	}
	c.JSON(http.StatusOK, records)
}

// GetSummary returns the aggregate report.
func (h *Handler) GetSummary(c *gin.Context) {
	summary, err := h.report.Summary(c.Request.Context())
	if err != nil {
		h.logger.WithCorrelation(CorrelationID(c)).Errorf("Summary failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build summary"})
		return
	}
	c.JSON(http.StatusOK, summary)
}
