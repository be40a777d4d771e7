package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/leadgen-dispatch/cmd/mainconfig"
	"github.com/wolfman30/leadgen-dispatch/internal/app/bootstrap"
	"github.com/wolfman30/leadgen-dispatch/internal/channels"
	appconfig "github.com/wolfman30/leadgen-dispatch/internal/config"
	"github.com/wolfman30/leadgen-dispatch/internal/dispatch"
	"github.com/wolfman30/leadgen-dispatch/internal/http/handlers"
	"github.com/wolfman30/leadgen-dispatch/internal/http/middleware"
	"github.com/wolfman30/leadgen-dispatch/pkg/logging"
)

type dispatchEvent struct {
	Channel string `json:"channel"`
}

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel).With("component", "dispatch-lambda")

	ctx := context.Background()
	pool, sqlDB, err := bootstrap.OpenDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		panic(err)
	}

	var ses channels.SESAPI
	sesClient, err := mainconfig.SESClient(ctx, cfg)
	if err != nil {
		panic(err)
	}
	if sesClient != nil {
		ses = sesClient
	}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	stores := bootstrap.PostgresStores(pool, sqlDB)
	senders := bootstrap.BuildSenders(cfg, ses, logger)
	dispatcher := bootstrap.BuildDispatcher(cfg, stores, senders, redisClient, prometheus.NewRegistry(), logger)

	lambda.Start(func(ctx context.Context, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		return handle(ctx, dispatcher, cfg.AuthJWTSecret, logger, evt)
	})
}

// handle serves one API Gateway request. The caller is identified by the same
// HMAC bearer token the HTTP API accepts, never by the request body.
func handle(ctx context.Context, runner handlers.Runner, secret string, logger *logging.Logger, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	method := strings.ToUpper(strings.TrimSpace(evt.RequestContext.HTTP.Method))
	path := strings.TrimSpace(evt.RawPath)
	if path == "" {
		path = strings.TrimSpace(evt.RequestContext.HTTP.Path)
	}

	if path == "/health" {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusOK, Body: "ok"}, nil
	}
	campaignID, ok := campaignFromPath(path)
	if !ok {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusNotFound}, nil
	}
	if method != http.MethodPost {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusMethodNotAllowed}, nil
	}

	userID, err := middleware.ParseUserToken(secret, headerValue(evt.Headers, "Authorization"))
	if err != nil {
		logger.Warn("rejected dispatch request", "campaign_id", campaignID, "error", err)
		return errorResponse(http.StatusUnauthorized, "unauthorized"), nil
	}

	body, err := decodeBody(evt)
	if err != nil {
		return errorResponse(http.StatusBadRequest, "invalid body"), nil
	}
	var req dispatchEvent
	if err := json.Unmarshal(body, &req); err != nil {
		return errorResponse(http.StatusBadRequest, "invalid body"), nil
	}
	target, err := dispatch.ParseTarget(req.Channel)
	if err != nil {
		return errorResponse(http.StatusBadRequest, err.Error()), nil
	}

	outcome, err := runner.Run(ctx, campaignID, userID, target)
	if err != nil {
		logger.Error("dispatch run failed", "campaign_id", campaignID, "error", err)
		if errors.Is(err, dispatch.ErrSenderUnavailable) {
			return errorResponse(http.StatusServiceUnavailable, "channel not configured"), nil
		}
		return errorResponse(http.StatusInternalServerError, "dispatch failed"), nil
	}

	status := http.StatusOK
	if !outcome.Ran {
		status = http.StatusUnprocessableEntity
	}
	return jsonResponse(status, outcome), nil
}

// campaignFromPath extracts the ID from /campaigns/{id}/dispatch.
func campaignFromPath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 || parts[0] != "campaigns" || parts[2] != "dispatch" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// headerValue looks a header up case-insensitively; API Gateway lowercases
// names in v2 payloads.
func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

func decodeBody(evt events.APIGatewayV2HTTPRequest) ([]byte, error) {
	if !evt.IsBase64Encoded {
		return []byte(evt.Body), nil
	}
	return base64.StdEncoding.DecodeString(evt.Body)
}

func jsonResponse(status int, payload any) events.APIGatewayV2HTTPResponse {
	body, err := json.Marshal(payload)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusInternalServerError}
	}
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Body:       string(body),
		Headers:    map[string]string{"content-type": "application/json"},
	}
}

func errorResponse(status int, message string) events.APIGatewayV2HTTPResponse {
	return jsonResponse(status, map[string]string{"error": message})
}
