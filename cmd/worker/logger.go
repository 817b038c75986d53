package main

import (
	"github.com/eterdtx/pointage-worker/internal/config"
	"github.com/eterdtx/pointage-worker/internal/logging"
	"go.uber.org/zap"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.NewLogger(cfg.ServiceName)
}
