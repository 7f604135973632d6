package options

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"

	"grant-portal/internal/common/database"
	"grant-portal/internal/common/errors"
	httpclient "grant-portal/internal/common/http"
	"grant-portal/internal/common/logger"
	"grant-portal/internal/common/metrics"
	"grant-portal/internal/common/validation"

	"gopkg.in/yaml.v3"
)

// documentSchema describes the options document served by the backend:
// an object of category name to a non-empty list of distinct strings.
var documentSchema = map[string]interface{}{
	"type": "object",
	"additionalProperties": map[string]interface{}{
		"type":        "array",
		"minItems":    1,
		"uniqueItems": true,
		"items": map[string]interface{}{
			"type":      "string",
			"minLength": 1,
		},
	},
}

type ProviderDependencies struct {
	Client *httpclient.Client
	Cache  *database.RedisClient
	Logger logger.Logger
}

// Provider resolves the option Set. Built-in defaults are the base; a
// configured file overrides them; when remote fetching is on, a cached
// or freshly fetched server document overrides both.
type Provider struct {
	client *httpclient.Client
	cache  *database.RedisClient
	logger logger.Logger
	config *Config
	schema *validation.Schema
}

func NewProvider(deps ProviderDependencies, config *Config) (*Provider, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.NewConfigInvalidError(err.Error())
	}
	if config.FetchRemote && deps.Client == nil {
		return nil, errors.NewConfigInvalidError("options client is required when fetching remotely")
	}
	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	schema, err := validation.CompileSchema(documentSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to compile options schema: %w", err)
	}

	return &Provider{
		client: deps.Client,
		cache:  deps.Cache,
		logger: log.WithFields(map[string]interface{}{"component": "options"}),
		config: config,
		schema: schema,
	}, nil
}

// Load returns the effective Set and the source of its highest-priority
// layer. Remote failures are logged and fall back to the local layers; an
// unreadable options file is returned as an error.
func (p *Provider) Load(ctx context.Context) (Set, Source, error) {
	set := Defaults()
	source := SourceDefaults

	if p.config.File != "" {
		fromFile, err := LoadFile(p.config.File)
		if err != nil {
			return nil, "", err
		}
		set = set.Merge(fromFile)
		source = SourceFile
	}

	if p.config.FetchRemote {
		if remote, src, ok := p.loadRemote(ctx); ok {
			set = set.Merge(remote)
			source = src
		}
	}

	if unknown := set.UnknownCategories(); len(unknown) > 0 {
		p.logger.Debug("ignoring unknown option categories", map[string]interface{}{"categories": unknown})
	}

	metrics.OptionsLoads.WithLabelValues(string(source)).Inc()
	p.logger.Info("options loaded", map[string]interface{}{"source": string(source)})
	return set, source, nil
}

func (p *Provider) loadRemote(ctx context.Context) (Set, Source, bool) {
	if cached, ok := p.readCache(ctx); ok {
		return cached, SourceCache, true
	}

	fetched, err := p.Fetch(ctx)
	if err != nil {
		p.logger.Warn("failed to fetch options, using local values", map[string]interface{}{"error": err})
		return nil, "", false
	}

	p.writeCache(ctx, fetched)
	return fetched, SourceServer, true
}

// Fetch retrieves and validates the options document from the backend.
func (p *Provider) Fetch(ctx context.Context) (Set, error) {
	var raw map[string]interface{}
	if err := p.client.DoJSON(ctx, http.MethodGet, p.config.Endpoint, "options", nil, &raw); err != nil {
		return nil, errors.NewOptionsLoadFailedError(string(SourceServer), err)
	}
	return p.decode(raw)
}

func (p *Provider) decode(raw map[string]interface{}) (Set, error) {
	result, err := p.schema.Validate(raw)
	if err != nil {
		return nil, errors.NewOptionsSchemaInvalidError(err.Error())
	}
	if !result.Valid {
		first := result.Errors[0]
		return nil, errors.NewOptionsSchemaInvalidError(fmt.Sprintf("%s: %s", first.Field, first.Message)).
			WithMetadata("errors", result.Errors)
	}

	set := make(Set, len(raw))
	for category, values := range raw {
		list, _ := values.([]interface{})
		for _, v := range list {
			set[category] = append(set[category], v.(string))
		}
	}
	return set, nil
}

func (p *Provider) readCache(ctx context.Context) (Set, bool) {
	if p.cache == nil {
		return nil, false
	}
	var set Set
	err := p.cache.GetJSON(ctx, p.config.CacheKey, &set)
	if err != nil {
		if !stderrors.Is(err, database.ErrCacheMiss) {
			p.logger.Warn("options cache read failed", map[string]interface{}{"error": err})
		}
		return nil, false
	}
	return set, true
}

func (p *Provider) writeCache(ctx context.Context, set Set) {
	if p.cache == nil {
		return
	}
	if err := p.cache.SetJSON(ctx, p.config.CacheKey, set, p.config.CacheTTL); err != nil {
		p.logger.Warn("options cache write failed", map[string]interface{}{"error": err})
	}
}

// LoadFile reads a YAML document of category to values.
func LoadFile(path string) (Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewOptionsLoadFailedError(string(SourceFile), err)
	}
	var set Set
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, errors.NewOptionsLoadFailedError(string(SourceFile), err)
	}
	return set, nil
}
