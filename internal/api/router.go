// Package api assembles the HTTP surface of the allocator.
package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"momentum-allocator/internal/api/handlers"
	"momentum-allocator/internal/api/middleware"
	"momentum-allocator/internal/data"
	"momentum-allocator/internal/metrics"
	"momentum-allocator/internal/performance"
	"momentum-allocator/internal/plan"
)

// Deps are the collaborators the routes are served from. Runner and
// Metrics may be nil.
type Deps struct {
	Planner     *plan.Planner
	Engine      handlers.Backtester
	Runner      *performance.Runner
	Catalog     *data.TickerCatalog
	Metrics     *metrics.Metrics
	CORSOrigins []string
}

// NewRouter builds the gin engine with middleware and every route.
func NewRouter(d Deps) *gin.Engine {
	router := gin.New()

	var observer middleware.HTTPObserver
	if d.Metrics != nil {
		observer = d.Metrics
	}
	router.Use(middleware.CORS(d.CORSOrigins))
	router.Use(middleware.Logger(observer))
	router.Use(middleware.ErrorHandler())

	strategyHandler := handlers.NewStrategyHandler(d.Planner)
	backtestHandler := handlers.NewBacktestHandler(d.Planner.Registry(), d.Engine)
	performanceHandler := handlers.NewPerformanceHandler(d.Runner)
	tickerHandler := handlers.NewTickerHandler(d.Catalog)

	router.GET("/health", handlers.Health)
	if d.Metrics != nil {
		router.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	api := router.Group("/api")
	{
		api.GET("/health", handlers.Health)
		api.GET("/history", handlers.History)
		api.GET("/strategies", strategyHandler.ListStrategies)
		api.POST("/calculate", strategyHandler.Calculate)
		api.POST("/backtest", backtestHandler.RunBacktest)
		api.GET("/tickers", tickerHandler.ListTickers)

		api.GET("/performance", performanceHandler.RankStrategies)
		api.GET("/performance/:id", performanceHandler.GetPerformance)
		api.POST("/performance/refresh", performanceHandler.Refresh)
	}

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}
		c.Status(http.StatusNotFound)
	})
	return router
}
