package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewServer builds the gin router and ties the HTTP server to the fx
// lifecycle.
func NewServer(lc fx.Lifecycle, logger *zap.Logger, port int, h *Handler) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", h.Health)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/render", h.Render)
		v1.POST("/estimate", h.Estimate)
		v1.POST("/preview", h.Preview)
		v1.POST("/weekly-summary", h.WeeklySummary)
		v1.GET("/urgency", h.Urgency)
		v1.GET("/fiches/:numero/documents", h.Documents)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("starting http api", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("http server stopped unexpectedly", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("shutting down http api")
			return srv.Shutdown(ctx)
		},
	})

	return srv
}
