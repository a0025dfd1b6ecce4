package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"momentum-allocator/internal/api/models"
	"momentum-allocator/internal/data"
)

type TickerHandler struct {
	catalog *data.TickerCatalog
}

func NewTickerHandler(catalog *data.TickerCatalog) *TickerHandler {
	if catalog == nil {
		catalog = data.DefaultCatalog()
	}
	return &TickerHandler{catalog: catalog}
}

// ListTickers handles GET /api/tickers
func (h *TickerHandler) ListTickers(c *gin.Context) {
	var req models.TickerRequest
	_ = c.ShouldBindQuery(&req)

	tickers := h.catalog.Filter(req.AssetClass)
	c.JSON(http.StatusOK, models.TickersResponse{
		Success:   true,
		UpdatedAt: h.catalog.UpdatedAt,
		Count:     len(tickers),
		Tickers:   tickers,
	})
}
