// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grant-portal/internal/admin"
	"grant-portal/internal/audit"
	"grant-portal/internal/auth"
	"grant-portal/internal/common/config"
	"grant-portal/internal/common/database"
	httpclient "grant-portal/internal/common/http"
	"grant-portal/internal/common/logger"
	"grant-portal/internal/common/observability"
	"grant-portal/internal/form"
	"grant-portal/internal/options"
	"grant-portal/internal/submission"
)

// The suite runs against a live backend (and Postgres/Redis when the
// config names them). Set GRANT_E2E=1 plus the account variables below.
const (
	envEnabled       = "GRANT_E2E"
	envEmail         = "GRANT_E2E_EMAIL"
	envPassword      = "GRANT_E2E_PASSWORD"
	envAdminEmail    = "GRANT_E2E_ADMIN_EMAIL"
	envAdminPassword = "GRANT_E2E_ADMIN_PASSWORD"
)

type env struct {
	cfg      *config.Config
	log      logger.Logger
	obs      *observability.Observability
	client   *httpclient.Client
	sessions *auth.Sessions
	auth     *auth.Service
}

func requireLive(t testing.TB) *env {
	t.Helper()
	if os.Getenv(envEnabled) == "" {
		t.Skipf("%s not set; skipping live end-to-end tests", envEnabled)
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	log := logger.NewFromConfig(cfg.Logging)
	obs := observability.New(cfg.App.Name, log, observability.WithRegisterer(prometheus.NewRegistry()))
	t.Cleanup(func() { _ = obs.Shutdown(context.Background()) })

	sessions := auth.NewSessions(auth.NewMemoryStore(), log)
	client := httpclient.NewClient(config.GetDuration(cfg.API.Timeout),
		httpclient.WithBaseURL(cfg.API.BaseURL),
		httpclient.WithTokenSource(sessions),
	)
	return &env{
		cfg:      cfg,
		log:      log,
		obs:      obs,
		client:   client,
		sessions: sessions,
		auth: auth.NewService(auth.ServiceDependencies{
			Client:   client,
			Sessions: sessions,
			Logger:   log,
		}, auth.ConfigFrom(cfg)),
	}
}

func credentials(t *testing.T, emailVar, passwordVar string) auth.Credentials {
	t.Helper()
	creds := auth.Credentials{Email: os.Getenv(emailVar), Password: os.Getenv(passwordVar)}
	if creds.Email == "" || creds.Password == "" {
		t.Skipf("%s and %s are required", emailVar, passwordVar)
	}
	return creds
}

func TestFullE2E(t *testing.T) {
	e := requireLive(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	t.Log("🚀 Starting E2E run against", e.cfg.API.BaseURL)

	// 1. Backing services
	assertConnectivity(ctx, t, e.cfg)

	// 2. Applicant journey
	requestID := submitApplication(ctx, t, e)

	// 3. Audit trail
	if e.cfg.Audit.Enabled {
		assertAudited(ctx, t, e, requestID)
	}

	// 4. Review
	reviewApplications(ctx, t, e)

	t.Log("✅ Full E2E run passed")
}

func assertConnectivity(ctx context.Context, t *testing.T, cfg *config.Config) {
	t.Log("🔍 Checking service connectivity...")

	if cfg.Database.Redis.Address != "" {
		rdb := database.NewRedis(cfg.Database.Redis)
		defer rdb.Close()
		assert.NoError(t, rdb.Ping(ctx), "❌ Redis ping failed")
		t.Log("✅ Redis connected")
	}

	if cfg.Audit.Enabled {
		pg, err := database.NewPostgres(cfg.Database.Postgres)
		require.NoError(t, err, "❌ PostgreSQL connection failed")
		defer pg.Close()
		assert.NoError(t, pg.Ping(ctx), "❌ PostgreSQL ping failed")
		t.Log("✅ PostgreSQL connected")
	}
}

// recordingObserver keeps the last finished submission.
type recordingObserver struct {
	last form.Record
}

func (r *recordingObserver) SubmissionFinished(_ context.Context, record form.Record) {
	r.last = record
}

func submitApplication(ctx context.Context, t *testing.T, e *env) string {
	t.Log("📝 Submitting an application...")

	_, err := e.auth.Login(ctx, credentials(t, envEmail, envPassword))
	require.NoError(t, err, "❌ applicant login failed")

	provider, err := options.NewProvider(options.ProviderDependencies{
		Client: e.client,
		Logger: e.log,
	}, options.ConfigFrom(e.cfg))
	require.NoError(t, err)
	set, source, err := provider.Load(ctx)
	require.NoError(t, err)
	t.Logf("✅ Options loaded from %s", source)

	observer := &recordingObserver{}
	observers := []form.Observer{observer}
	if e.cfg.Audit.Enabled {
		pg, err := database.NewPostgres(e.cfg.Database.Postgres)
		require.NoError(t, err)
		t.Cleanup(func() { _ = pg.Close() })
		rec, err := audit.NewRecorder(pg, e.log, audit.ConfigFrom(e.cfg))
		require.NoError(t, err)
		require.NoError(t, rec.EnsureSchema(ctx))
		observers = append(observers, rec)
	}

	engine, err := form.NewEngine(form.EngineDependencies{
		Client: submission.NewService(submission.ServiceDependencies{
			Client:        e.client,
			Logger:        e.log,
			Observability: e.obs,
		}, submission.ConfigFrom(e.cfg)),
		Logger:        e.log,
		Observability: e.obs,
		Observers:     observers,
	}, form.ConfigFrom(e.cfg, set))
	require.NoError(t, err)

	fillApplication(t, engine, set)

	outcome, err := engine.Submit(ctx)
	require.NoError(t, err, "❌ submission failed: %v", engine.Errors())
	assert.True(t, outcome.Succeeded())
	assert.Equal(t, form.FirstStep, engine.Step(), "form resets after success")
	t.Logf("✅ Application accepted (request %s): %v", outcome.RequestID, outcome.Response)

	return observer.last.RequestID
}

func fillApplication(t testing.TB, engine *form.Engine, set options.Set) {
	t.Helper()
	first := func(category string) string {
		values := set.Values(category)
		require.NotEmpty(t, values, "no options for %s", category)
		return values[0]
	}

	for f, v := range map[form.Field]string{
		form.FieldFirstName:      "E2E",
		form.FieldLastName:       fmt.Sprintf("Run%d", time.Now().Unix()),
		form.FieldSSN:            "123-45-6789",
		form.FieldDateOfBirth:    "1985-03-02",
		form.FieldEmail:          "e2e@example.com",
		form.FieldPhoneNumber:    "+15551234567",
		form.FieldStreetAddress:  "1 Test Way",
		form.FieldCity:           "Springfield",
		form.FieldState:          "Illinois",
		form.FieldZip:            "62701",
		form.FieldFundingType:    first(options.CategoryFundingType),
		form.FieldFundingAmount:  "100000",
		form.FieldFundingPurpose: "End-to-end verification",
		form.FieldTimeframe:      first(options.CategoryTimeframe),
	} {
		require.NoError(t, engine.UpdateField(f, v))
	}
	require.True(t, engine.AdvanceStep(), "step 1: %v", engine.Errors())

	require.NoError(t, engine.Attach(form.FieldIDCardFront, "front.png", "image/png", []byte("\x89PNG\r\n\x1a\nfront")))
	require.NoError(t, engine.Attach(form.FieldIDCardBack, "back.png", "image/png", []byte("\x89PNG\r\n\x1a\nback")))
	require.True(t, engine.AdvanceStep(), "step 2: %v", engine.Errors())

	for _, f := range form.StepFields(3) {
		require.NoError(t, engine.UpdateField(f, first(string(f))))
	}
	require.True(t, engine.AdvanceStep(), "step 3: %v", engine.Errors())

	require.NoError(t, engine.UpdateField(form.FieldAgreeToCommunication, true))
	require.NoError(t, engine.UpdateField(form.FieldTermsAccepted, true))
}

func assertAudited(ctx context.Context, t *testing.T, e *env, requestID string) {
	t.Log("🔍 Checking the audit trail...")

	pg, err := database.NewPostgres(e.cfg.Database.Postgres)
	require.NoError(t, err)
	defer pg.Close()
	rec, err := audit.NewRecorder(pg, e.log, audit.ConfigFrom(e.cfg))
	require.NoError(t, err)

	entries, err := rec.Recent(ctx, 10)
	require.NoError(t, err)
	for _, entry := range entries {
		if entry.RequestID == requestID {
			assert.Equal(t, form.StateSucceeded.String(), entry.Status)
			t.Log("✅ Submission audited")
			return
		}
	}
	t.Errorf("❌ no audit row for request %s", requestID)
}

func reviewApplications(ctx context.Context, t *testing.T, e *env) {
	t.Log("🗂  Reviewing applications...")

	_, err := e.auth.AdminLogin(ctx, credentials(t, envAdminEmail, envAdminPassword))
	require.NoError(t, err, "❌ admin login failed")

	svc := admin.NewService(admin.ServiceDependencies{
		Client:        e.client,
		Logger:        e.log,
		Observability: e.obs,
	}, admin.ConfigFrom(e.cfg))

	page, err := svc.ListApplications(ctx, admin.Query{Page: 1, Status: admin.StatusPending})
	require.NoError(t, err)
	require.NotEmpty(t, page.Applications, "❌ the submitted application should be pending")
	t.Logf("✅ %d pending applications on page %d/%d", len(page.Applications), page.CurrentPage, page.TotalPages)

	target := page.Applications[0]
	got, err := svc.GetApplication(ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, target.ID, got.ID)

	updated, err := svc.UpdateStatus(ctx, target.ID, admin.StatusPending, "e2e check")
	require.NoError(t, err)
	assert.Equal(t, admin.StatusPending, updated.Status)
	t.Log("✅ Status update round-tripped")
}

// ==========================
// Benchmarks
// ==========================

type nopClient struct{}

func (nopClient) Submit(context.Context, *form.Payload) (*form.Response, error) {
	return &form.Response{Status: 201}, nil
}

func newBenchEngine(b *testing.B) *form.Engine {
	b.Helper()
	engine, err := form.NewEngine(form.EngineDependencies{
		Client: nopClient{},
		Logger: logger.NewNoOpLogger(),
	}, form.DefaultConfig())
	require.NoError(b, err)
	return engine
}

func BenchmarkEngine_FillAndSubmit(b *testing.B) {
	ctx := context.Background()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		engine := newBenchEngine(b)
		fillApplication(b, engine, options.Defaults())
		if _, err := engine.Submit(ctx); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEngine_ValidateStep(b *testing.B) {
	engine := newBenchEngine(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		engine.ValidateStep(form.FirstStep)
	}
}

func BenchmarkAdmin_FilterSortPaginate(b *testing.B) {
	apps := make([]admin.Application, 500)
	for i := range apps {
		apps[i] = admin.Application{
			ID:     fmt.Sprintf("app-%d", i),
			Status: admin.Statuses[i%len(admin.Statuses)],
			PersonalInfo: admin.PersonalInfo{
				FirstName: fmt.Sprintf("Name%d", i%37),
				Email:     fmt.Sprintf("user%d@example.com", i),
			},
			FundingInfo: admin.FundingInfo{FundingAmount: admin.Amount(75000 + i*100)},
		}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		filtered := admin.Filter{Search: "name1"}.Apply(apps)
		sorted := admin.Sort(filtered, admin.SortByFundingAmount, true)
		_ = admin.Paginate(sorted, 2, admin.DefaultPageSize)
	}
}
