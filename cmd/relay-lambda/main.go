// Package main is the AWS Lambda entry point. It serves the same HTTP
// handler as the standalone server behind API Gateway proxy events.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"

	"github.com/shineum/mail-relay-lite/internal/app"
	"github.com/shineum/mail-relay-lite/internal/logging"
)

func main() {
	cfg, err := app.LoadConfig(os.Getenv("CONFIG_FILE"))
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level)

	a, err := app.New(context.Background(), cfg)
	if err != nil {
		slog.Error("failed to initialize relay", "error", err)
		os.Exit(1)
	}

	slog.Info("mail-relay-lite lambda ready", "provider", a.Provider.Name())

	lambda.Start(newProxyHandler(a.Handler))
}

type proxyHandler func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)

func newProxyHandler(h http.Handler) proxyHandler {
	adapter := httpadapter.New(h)
	return func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return adapter.ProxyWithContext(ctx, req)
	}
}
