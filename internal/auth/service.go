package auth

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"grant-portal/internal/common/config"
	"grant-portal/internal/common/errors"
	httpclient "grant-portal/internal/common/http"
	"grant-portal/internal/common/logger"
	"grant-portal/internal/common/validation"
)

const serviceName = "auth"

type Config struct {
	LoginPath          string
	AdminLoginPath     string
	ProfilePath        string
	RegisterPath       string
	ForgotPasswordPath string
	ResetPasswordPath  string
}

func DefaultConfig() *Config {
	return &Config{
		LoginPath:          "/auth/login",
		AdminLoginPath:     "/auth/admin/login",
		ProfilePath:        "/auth/profile",
		RegisterPath:       "/auth/register",
		ForgotPasswordPath: "/auth/forgot-password",
		ResetPasswordPath:  "/auth/reset-password",
	}
}

func ConfigFrom(cfg *config.Config) *Config {
	c := DefaultConfig()
	e := cfg.API.Endpoints
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.LoginPath, e.Login)
	set(&c.AdminLoginPath, e.AdminLogin)
	set(&c.ProfilePath, e.Profile)
	set(&c.RegisterPath, e.Register)
	set(&c.ForgotPasswordPath, e.ForgotPassword)
	set(&c.ResetPasswordPath, e.ResetPassword)
	return c
}

// Sessions wraps a TokenStore and drops sessions whose token has expired.
// It implements the HTTP client's TokenSource.
type Sessions struct {
	store  TokenStore
	logger logger.Logger
	now    func() time.Time
}

func NewSessions(store TokenStore, log logger.Logger) *Sessions {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Sessions{store: store, logger: log, now: time.Now}
}

// Current returns the stored session. A missing session yields ErrNoSession;
// an expired one is cleared and reported as SESSION_EXPIRED.
func (s *Sessions) Current(ctx context.Context) (*Session, error) {
	sess, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if sess.Expired(s.now()) {
		s.logger.Info("Stored session expired", map[string]interface{}{
			"email":     sess.User.Email,
			"expiredAt": sess.ExpiresAt,
		})
		if err := s.store.Clear(ctx); err != nil {
			s.logger.Warn("Failed to clear expired session", map[string]interface{}{"error": err})
		}
		return nil, errors.NewSessionExpiredError("token expired at " + sess.ExpiresAt.Format(time.RFC3339))
	}
	return sess, nil
}

// Token returns the bearer token of a live session, or "" when there is none.
// An unreadable store is cleared so the request goes out anonymously and a
// fresh login can replace it.
func (s *Sessions) Token(ctx context.Context) (string, error) {
	sess, err := s.Current(ctx)
	if err == nil {
		return sess.Token, nil
	}
	if stderrors.Is(err, ErrNoSession) || stderrors.Is(err, &errors.StandardError{Code: errors.ErrCodeSessionExpired}) {
		return "", nil
	}
	s.logger.Warn("Stored session unreadable, continuing without a token", map[string]interface{}{"error": err.Error()})
	if clearErr := s.store.Clear(ctx); clearErr != nil {
		s.logger.Warn("Failed to clear unreadable session", map[string]interface{}{"error": clearErr.Error()})
	}
	return "", nil
}

func (s *Sessions) Save(ctx context.Context, sess *Session) error { return s.store.Save(ctx, sess) }
func (s *Sessions) Clear(ctx context.Context) error               { return s.store.Clear(ctx) }

type ServiceDependencies struct {
	Client   *httpclient.Client
	Sessions *Sessions
	Logger   logger.Logger
}

// Service is the client for the backend's account endpoints.
type Service struct {
	client   *httpclient.Client
	sessions *Sessions
	logger   logger.Logger
	config   *Config
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	if config == nil {
		config = DefaultConfig()
	}
	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	sessions := deps.Sessions
	if sessions == nil {
		sessions = NewSessions(NewMemoryStore(), log)
	}
	return &Service{
		client:   deps.Client,
		sessions: sessions,
		logger:   log.WithFields(map[string]interface{}{"component": serviceName}),
		config:   config,
	}
}

func (s *Service) Sessions() *Sessions { return s.sessions }

// Login exchanges credentials for a token and stores the session.
func (s *Service) Login(ctx context.Context, creds Credentials) (*Session, error) {
	return s.login(ctx, s.config.LoginPath, creds, false, "Login failed")
}

// AdminLogin is Login against the administrator endpoint.
func (s *Service) AdminLogin(ctx context.Context, creds Credentials) (*Session, error) {
	return s.login(ctx, s.config.AdminLoginPath, creds, true, "Admin login failed")
}

func (s *Service) login(ctx context.Context, path string, creds Credentials, admin bool, fallback string) (*Session, error) {
	if errs := credentialErrors(creds); len(errs) > 0 {
		return nil, errors.NewFieldValidationFailedError(errs)
	}

	var resp loginResponse
	if err := s.client.DoJSON(ctx, http.MethodPost, path, serviceName, creds, &resp); err != nil {
		return nil, s.mapError(err, fallback)
	}
	if resp.Token == "" {
		return nil, errors.NewResponseParseFailedError(serviceName, stderrors.New("login response has no token"))
	}

	sess := &Session{Token: resp.Token, User: resp.user(), Admin: admin}
	if exp, ok := ExpiryOf(resp.Token); ok {
		sess.ExpiresAt = exp
	}
	if sess.User.Email == "" {
		sess.User.Email = creds.Email
	}

	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}

	s.logger.Info("Logged in", map[string]interface{}{
		"email": sess.User.Email,
		"admin": admin,
	})
	return sess, nil
}

func credentialErrors(creds Credentials) map[string]string {
	errs := map[string]string{}
	if creds.Email == "" {
		errs["email"] = "Email is required"
	}
	if creds.Password == "" {
		errs["password"] = "Password is required"
	}
	return errs
}

// Profile fetches the current user. A rejected token clears the session.
func (s *Service) Profile(ctx context.Context) (*User, error) {
	sess, err := s.sessions.Current(ctx)
	if stderrors.Is(err, ErrNoSession) {
		return nil, errors.NewSessionExpiredError("not logged in")
	}
	if err != nil {
		return nil, err
	}

	var user User
	err = s.client.DoJSON(ctx, http.MethodGet, s.config.ProfilePath, serviceName, nil, &user)
	var apiErr *httpclient.APIError
	if stderrors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden) {
		if clearErr := s.sessions.Clear(ctx); clearErr != nil {
			s.logger.Warn("Failed to clear rejected session", map[string]interface{}{"error": clearErr})
		}
		return nil, errors.NewSessionExpiredError(apiErr.MessageOr("token rejected"))
	}
	if err != nil {
		return nil, s.mapError(err, "Failed to load profile")
	}

	if user.Email == "" {
		user = sess.User
	}
	return &user, nil
}

// Register validates the form locally and creates the account. Field
// errors from either side come back as FIELD_VALIDATION_FAILED.
func (s *Service) Register(ctx context.Context, form RegistrationForm) (string, error) {
	if errs := form.Validate(); len(errs) > 0 {
		return "", errors.NewFieldValidationFailedError(errs)
	}

	if err := s.client.DoJSON(ctx, http.MethodPost, s.config.RegisterPath, serviceName, form.Normalized(), nil); err != nil {
		var apiErr *httpclient.APIError
		if stderrors.As(err, &apiErr) && len(apiErr.FieldErrors) > 0 {
			fe := errors.NewFieldValidationFailedError(apiErr.FieldErrors)
			fe.Message = apiErr.MessageOr("Registration failed")
			return "", fe
		}
		return "", s.mapError(err, "Registration failed")
	}

	s.logger.Info("Account registered", map[string]interface{}{"email": form.Email})
	return "Account created successfully", nil
}

// ForgotPassword asks the backend to email a reset link.
func (s *Service) ForgotPassword(ctx context.Context, email string) (string, error) {
	if email == "" {
		return "", errors.NewFieldValidationFailedError(map[string]string{"email": "Email is required"})
	}
	if !validEmail(email) {
		return "", errors.NewFieldValidationFailedError(map[string]string{"email": "Please enter a valid email address"})
	}

	var resp struct {
		Message string `json:"message"`
	}
	if err := s.client.DoJSON(ctx, http.MethodPost, s.config.ForgotPasswordPath, serviceName,
		map[string]string{"email": email}, &resp); err != nil {
		return "", s.mapError(err, "Failed to send reset link")
	}
	if resp.Message == "" {
		resp.Message = "Password reset link sent to your email"
	}
	return resp.Message, nil
}

// ResetPassword sets a new password using the emailed reset token.
func (s *Service) ResetPassword(ctx context.Context, token, password, confirm string) (string, error) {
	errs := map[string]string{}
	if token == "" {
		errs["token"] = "Reset token is required"
	}
	if ok, msg := validation.IsStrongPassword(password); !ok {
		errs["password"] = msg
	}
	if confirm != password {
		errs["confirmPassword"] = "Passwords must match exactly"
	}
	if len(errs) > 0 {
		return "", errors.NewFieldValidationFailedError(errs)
	}

	var resp struct {
		Message string `json:"message"`
	}
	body := map[string]string{"token": token, "password": password}
	if err := s.client.DoJSON(ctx, http.MethodPost, s.config.ResetPasswordPath, serviceName, body, &resp); err != nil {
		return "", s.mapError(err, "Password reset failed")
	}
	if resp.Message == "" {
		resp.Message = "Password has been reset"
	}
	return resp.Message, nil
}

// Logout forgets the stored session. The backend keeps no session state.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.sessions.Clear(ctx); err != nil {
		return err
	}
	s.logger.Info("Logged out", nil)
	return nil
}

// mapError turns a backend rejection into AUTH_FAILED carrying the server's
// message; transport errors pass through unchanged.
func (s *Service) mapError(err error, fallback string) error {
	var apiErr *httpclient.APIError
	if !stderrors.As(err, &apiErr) {
		return err
	}
	authErr := errors.NewAuthFailedError(apiErr.MessageOr(fallback), apiErr.Status)
	if len(apiErr.FieldErrors) > 0 {
		authErr.WithMetadata("errors", apiErr.FieldErrors)
	}
	return authErr
}
