package api

import (
	"github.com/gin-gonic/gin"

	"subscription-report-service/internal/config"
	"subscription-report-service/internal/logging"
)

func NewRouter(h *Handler, hub *EventHub, logger *logging.Logger, cfg config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(CorrelationMiddleware())
	r.Use(RequestLoggingMiddleware(logger))

	api := r.Group(cfg.API.BasePath)
	{
		api.POST("/report/upload-csv", h.UploadCSV)
		api.GET("/report/summary", h.GetSummary)
		api.GET("/report/customer/:customerId", h.GetCustomerReport)
		api.GET("/report/events", hub.ServeWS)
	}
	return r
}
