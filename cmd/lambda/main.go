package main

import (
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/awmpietro/shunting-action-validator/internal/app"
	"github.com/awmpietro/shunting-action-validator/internal/config"
	"github.com/awmpietro/shunting-action-validator/internal/logging"
	"github.com/awmpietro/shunting-action-validator/internal/transport/lambdatransport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New(slog.LevelInfo).Error("config", "error", err)
		os.Exit(1)
	}
	logger := logging.New(logging.ParseLevel(cfg.LogLevel))

	rt, err := app.Build(cfg, logger)
	if err != nil {
		logger.Error("build service", "error", err)
		os.Exit(1)
	}
	defer rt.Close()

	h := lambdatransport.NewHandler(rt.Service, logger)
	lambda.Start(h.Validate)
}
