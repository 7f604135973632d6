// Package submission sends completed application drafts to the grants backend.
package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"grant-portal/internal/common/config"
	"grant-portal/internal/common/errors"
	httpclient "grant-portal/internal/common/http"
	"grant-portal/internal/common/logger"
	"grant-portal/internal/common/observability"
	"grant-portal/internal/form"

	"go.opentelemetry.io/otel/attribute"
)

const (
	serviceName     = "submission"
	DefaultEndpoint = "/grants/submit"
)

type Config struct {
	Endpoint string
	// Timeout bounds each submit request. Zero keeps the client's timeout.
	Timeout time.Duration
}

func ConfigFrom(cfg *config.Config) *Config {
	endpoint := cfg.API.Endpoints.Submit
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Config{Endpoint: endpoint, Timeout: config.GetDuration(cfg.API.SubmitTimeout)}
}

type ServiceDependencies struct {
	Client        *httpclient.Client
	Logger        logger.Logger
	Observability *observability.Observability
}

// Service posts multipart payloads. It implements form.SubmissionClient.
type Service struct {
	client *httpclient.Client
	logger logger.Logger
	obs    *observability.Observability
	config *Config
}

var _ form.SubmissionClient = (*Service)(nil)

func NewService(deps ServiceDependencies, config *Config) *Service {
	if config == nil {
		config = &Config{}
	}
	if config.Endpoint == "" {
		config = &Config{Endpoint: DefaultEndpoint, Timeout: config.Timeout}
	}
	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	client := deps.Client
	if client != nil && config.Timeout > 0 {
		client = client.WithTimeout(config.Timeout)
	}
	return &Service{
		client: client,
		logger: log.WithFields(map[string]interface{}{"component": serviceName}),
		obs:    deps.Observability,
		config: config,
	}
}

// Submit sends payload once. A 2xx answer yields its JSON body; any other
// status yields *form.Rejection. Transport failures come back as
// NETWORK_ERROR or REQUEST_TIMEOUT.
func (s *Service) Submit(ctx context.Context, payload *form.Payload) (resp *form.Response, err error) {
	ctx, span := s.obs.StartSpan(ctx, "submission.post",
		attribute.String("http.route", s.config.Endpoint),
		attribute.String("request.id", payload.RequestID),
	)
	defer func() { observability.EndSpan(span, err) }()

	var body bytes.Buffer
	contentType, err := payload.WriteMultipart(&body)
	if err != nil {
		return nil, errors.NewInvalidFieldValueError("payload", "multipart encodable", err.Error())
	}

	req, err := s.client.NewRequest(ctx, http.MethodPost, s.config.Endpoint, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	if payload.RequestID != "" {
		req.Header.Set("X-Request-ID", payload.RequestID)
	}

	s.logger.Debug("Posting application", map[string]interface{}{
		"requestId": payload.RequestID,
		"url":       req.URL.String(),
		"bytes":     body.Len(),
	})

	status, respBody, err := s.client.Send(req, serviceName)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("http.status_code", status))

	if !httpclient.IsSuccess(status) {
		apiErr := httpclient.ParseErrorBody(status, respBody)
		s.logger.Warn("Application rejected", map[string]interface{}{
			"requestId": payload.RequestID,
			"status":    status,
			"message":   apiErr.Message,
			"fields":    len(apiErr.FieldErrors),
		})
		return nil, &form.Rejection{
			Status:      status,
			Message:     apiErr.Message,
			FieldErrors: apiErr.FieldErrors,
		}
	}

	return &form.Response{Status: status, Body: decodeBody(respBody)}, nil
}

// decodeBody returns the JSON object in body. The server has already
// accepted the application, so a body that is not an object is kept as
// text under "raw" rather than failing the submission.
func decodeBody(body []byte) map[string]interface{} {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return map[string]interface{}{}
	}
	var out map[string]interface{}
	if err := json.Unmarshal(trimmed, &out); err != nil || out == nil {
		return map[string]interface{}{"raw": string(trimmed)}
	}
	return out
}
