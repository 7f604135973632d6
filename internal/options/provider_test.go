package options

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"grant-portal/internal/common/config"
	"grant-portal/internal/common/database"
	"grant-portal/internal/common/errors"
	httpclient "grant-portal/internal/common/http"
	"grant-portal/internal/common/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Helpers
// ==========================

func optionsServer(t *testing.T, status int, body interface{}) (*httptest.Server, *int32) {
	var hits int32
	r := chi.NewRouter()
	r.Get("/grants/options", func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, &hits
}

func writeOptionsFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "options.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newProvider(t *testing.T, srv *httptest.Server, cache *database.RedisClient, cfg *Config) *Provider {
	deps := ProviderDependencies{Cache: cache, Logger: logger.NewTestLogger(t)}
	if srv != nil {
		deps.Client = httpclient.NewClient(2*time.Second, httpclient.WithBaseURL(srv.URL))
	}
	p, err := NewProvider(deps, cfg)
	require.NoError(t, err)
	return p
}

// ==========================
// Set
// ==========================

func TestSet_MergeKeepsBaseForEmptyCategories(t *testing.T) {
	base := Defaults()
	merged := base.Merge(Set{CategoryTimeframe: {"ASAP"}, CategoryGender: nil})

	assert.Equal(t, []string{"ASAP"}, merged.Values(CategoryTimeframe))
	assert.Equal(t, base.Values(CategoryGender), merged.Values(CategoryGender))
	assert.Len(t, base.Values(CategoryTimeframe), 3, "base must not be mutated")
}

func TestSet_ContainsAndUnknown(t *testing.T) {
	s := Set{CategoryGender: {"Male"}, "favouriteColour": {"Blue"}}

	assert.True(t, s.Contains(CategoryGender, "Male"))
	assert.False(t, s.Contains(CategoryGender, "male"))
	assert.False(t, Set(nil).Contains(CategoryGender, "Male"))
	assert.Equal(t, []string{"favouriteColour"}, s.UnknownCategories())
}

func TestDefaults_CoverEveryCategory(t *testing.T) {
	d := Defaults()
	for _, c := range Categories {
		assert.NotEmpty(t, d.Values(c), c)
	}
	assert.Empty(t, d.UnknownCategories())
}

// ==========================
// Provider
// ==========================

func TestProvider_DefaultsOnly(t *testing.T) {
	p := newProvider(t, nil, nil, DefaultConfig())

	set, source, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceDefaults, source)
	assert.Equal(t, Defaults(), set)
}

func TestProvider_FileOverridesDefaults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.File = writeOptionsFile(t, "timeframe: [Now, Later]\n")
	p := newProvider(t, nil, nil, cfg)

	set, source, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceFile, source)
	assert.Equal(t, []string{"Now", "Later"}, set.Values(CategoryTimeframe))
	assert.Equal(t, Defaults().Values(CategoryGender), set.Values(CategoryGender))
}

func TestProvider_BadFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.File = writeOptionsFile(t, "timeframe: [unterminated\n")
	p := newProvider(t, nil, nil, cfg)

	_, _, err := p.Load(context.Background())
	require.Error(t, err)
	se, ok := errors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeOptionsLoadFailed, se.Code)
}

func TestProvider_ServerThenCache(t *testing.T) {
	srv, hits := optionsServer(t, http.StatusOK, map[string][]string{
		"fundingType": {"Personal Grant", "Startup Grant"},
	})
	mr := miniredis.RunT(t)
	cache := database.NewRedis(config.RedisConfig{Address: mr.Addr()})
	t.Cleanup(func() { _ = cache.Close() })

	cfg := DefaultConfig()
	cfg.FetchRemote = true
	p := newProvider(t, srv, cache, cfg)
	ctx := context.Background()

	set, source, err := p.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, SourceServer, source)
	assert.Equal(t, []string{"Personal Grant", "Startup Grant"}, set.Values(CategoryFundingType))
	assert.True(t, mr.Exists(cfg.CacheKey))

	set, source, err = p.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, SourceCache, source)
	assert.Equal(t, []string{"Personal Grant", "Startup Grant"}, set.Values(CategoryFundingType))
	assert.EqualValues(t, 1, atomic.LoadInt32(hits))
}

func TestProvider_ServerFailureFallsBack(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   interface{}
	}{
		{"server error", http.StatusInternalServerError, map[string]string{"message": "boom"}},
		{"wrong shape", http.StatusOK, map[string]interface{}{"gender": "Male"}},
		{"empty category", http.StatusOK, map[string]interface{}{"gender": []string{}}},
		{"duplicate values", http.StatusOK, map[string]interface{}{"gender": []string{"Male", "Male"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := optionsServer(t, tt.status, tt.body)
			cfg := DefaultConfig()
			cfg.FetchRemote = true
			p := newProvider(t, srv, nil, cfg)

			set, source, err := p.Load(context.Background())
			require.NoError(t, err)
			assert.Equal(t, SourceDefaults, source)
			assert.Equal(t, Defaults(), set)
		})
	}
}

func TestProvider_FetchSchemaError(t *testing.T) {
	srv, _ := optionsServer(t, http.StatusOK, map[string]interface{}{"gender": []int{1, 2}})
	cfg := DefaultConfig()
	cfg.FetchRemote = true
	p := newProvider(t, srv, nil, cfg)

	_, err := p.Fetch(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, &errors.StandardError{Code: errors.ErrCodeOptionsSchemaInvalid})
}

func TestNewProvider_RequiresClientForRemote(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FetchRemote = true
	_, err := NewProvider(ProviderDependencies{}, cfg)
	assert.Error(t, err)
}

func TestLoadFile_ShippedOptions(t *testing.T) {
	set, err := LoadFile(filepath.Join("..", "..", "configs", "options.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), set)
}
