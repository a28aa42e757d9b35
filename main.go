// Package main is the entry point for the complyhub application
package main

import (
	"github.com/jrschumacher/complyhub/cmd"
	"github.com/jrschumacher/complyhub/internal/config"
	"github.com/jrschumacher/complyhub/internal/logger"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.AppEnv)

	cmd.Execute(cfg)
}
