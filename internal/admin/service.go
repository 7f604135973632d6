package admin

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"grant-portal/internal/common/config"
	"grant-portal/internal/common/errors"
	httpclient "grant-portal/internal/common/http"
	"grant-portal/internal/common/logger"
	"grant-portal/internal/common/metrics"
	"grant-portal/internal/common/observability"

	"go.opentelemetry.io/otel/attribute"
)

const (
	serviceName     = "admin"
	DefaultEndpoint = "/admin/applications"
)

type Config struct {
	Endpoint string
}

func ConfigFrom(cfg *config.Config) *Config {
	endpoint := cfg.API.Endpoints.AdminApplications
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Config{Endpoint: strings.TrimSuffix(endpoint, "/")}
}

type ServiceDependencies struct {
	Client        *httpclient.Client
	Logger        logger.Logger
	Observability *observability.Observability
}

// Service calls the review endpoints. Every call needs an admin session;
// the bearer token comes from the client's TokenSource.
type Service struct {
	client *httpclient.Client
	logger logger.Logger
	obs    *observability.Observability
	config *Config
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	if config == nil || config.Endpoint == "" {
		config = &Config{Endpoint: DefaultEndpoint}
	}
	config.Endpoint = strings.TrimSuffix(config.Endpoint, "/")
	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Service{
		client: deps.Client,
		logger: log.WithFields(map[string]interface{}{"component": serviceName}),
		obs:    deps.Observability,
		config: config,
	}
}

// ListApplications fetches one page of the server side listing.
func (s *Service) ListApplications(ctx context.Context, q Query) (page *Page, err error) {
	ctx, span := s.obs.StartSpan(ctx, "admin.list",
		attribute.Int("page", q.Page),
		attribute.String("status", string(q.Status)),
	)
	defer func() { observability.EndSpan(span, err) }()

	params := url.Values{}
	if q.Page > 0 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	if q.Status != "" {
		params.Set("status", string(q.Status))
	}
	if q.Search != "" {
		params.Set("search", q.Search)
	}
	path := s.config.Endpoint
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var out Page
	if err := s.client.DoJSON(ctx, http.MethodGet, path, serviceName, nil, &out); err != nil {
		return nil, mapError(err, "Failed to fetch applications")
	}
	if out.CurrentPage == 0 {
		out.CurrentPage = 1
	}
	if out.TotalPages == 0 {
		out.TotalPages = 1
	}

	s.logger.Debug("Fetched applications", map[string]interface{}{
		"page":   out.CurrentPage,
		"pages":  out.TotalPages,
		"count":  len(out.Applications),
		"status": string(q.Status),
	})
	return &out, nil
}

// GetApplication fetches one application by id.
func (s *Service) GetApplication(ctx context.Context, id string) (*Application, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.NewInvalidFieldValueError("id", "application id", id)
	}

	var resp statusResponse
	if err := s.client.DoJSON(ctx, http.MethodGet, s.itemPath(id), serviceName, nil, &resp); err != nil {
		return nil, mapError(err, "Failed to fetch application")
	}
	app := resp.application()
	return &app, nil
}

// UpdateStatus moves an application to status with optional reviewer
// notes and returns the updated record. When the server answers without
// a body the returned application carries only id and status.
func (s *Service) UpdateStatus(ctx context.Context, id string, status Status, notes string) (app *Application, err error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.NewInvalidFieldValueError("id", "application id", id)
	}
	st, ok := ParseStatus(string(status))
	if !ok {
		return nil, errors.NewInvalidFieldValueError("status", "one of PENDING, APPROVED, REJECTED", status)
	}
	status = st

	ctx, span := s.obs.StartSpan(ctx, "admin.update_status",
		attribute.String("application.id", id),
		attribute.String("status", string(status)),
	)
	defer func() { observability.EndSpan(span, err) }()

	var resp statusResponse
	body := statusUpdate{Status: status, AdminNotes: notes}
	if err := s.client.DoJSON(ctx, http.MethodPatch, s.itemPath(id)+"/status", serviceName, body, &resp); err != nil {
		return nil, mapError(err, "Failed to update application status")
	}

	updated := resp.application()
	if updated.ID == "" {
		updated.ID = id
	}
	if updated.Status == "" {
		updated.Status = status
	}

	metrics.AdminStatusUpdates.WithLabelValues(string(status)).Inc()
	s.logger.Info("Application status updated", map[string]interface{}{
		"applicationId": id,
		"status":        string(status),
		"hasNotes":      notes != "",
	})
	return &updated, nil
}

func (s *Service) itemPath(id string) string {
	return fmt.Sprintf("%s/%s", s.config.Endpoint, url.PathEscape(id))
}

// mapError keeps transport errors as they are. A 401/403 becomes
// SESSION_EXPIRED so the CLI asks for an admin login; other statuses
// become ADMIN_REQUEST_FAILED with the server message.
func mapError(err error, fallback string) error {
	var apiErr *httpclient.APIError
	if !stderrors.As(err, &apiErr) {
		return err
	}
	if apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden {
		return errors.NewSessionExpiredError(apiErr.MessageOr("admin session required"))
	}
	return errors.NewAdminRequestFailedError(apiErr.MessageOr(fallback), apiErr.Status)
}
