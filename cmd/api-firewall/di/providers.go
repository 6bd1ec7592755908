package di

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/samber/do/v2"

	"api-firewall/internal/cache"
	"api-firewall/internal/config"
	"api-firewall/internal/health"
	"api-firewall/internal/providers"
	"api-firewall/internal/proxy"
	"api-firewall/internal/ratelimit"
	"api-firewall/internal/redact"
	"api-firewall/internal/relay"
	"api-firewall/internal/retry"
	"api-firewall/internal/security"
	"api-firewall/internal/upstream"
)

// Service wrapper types keep registrations distinguishable in the
// container.

// ConfigService wraps the loaded configuration.
type ConfigService struct {
	Config *config.Config
}

// LoggerService wraps the zerolog logger.
type LoggerService struct {
	Logger *zerolog.Logger
}

// CacheService wraps the response cache.
type CacheService struct {
	Cache cache.Cache
}

// TargetsService holds the configured upstream targets.
type TargetsService struct {
	OpenAI          providers.Target
	Anthropic       providers.Target
	Cerebras        providers.Target
	CerebrasEnabled bool
}

// LimitersService holds the admission controllers.
type LimitersService struct {
	Requests ratelimit.RequestAdmitter
	Tokens   ratelimit.TokenAdmitter
}

// FilterService wraps the security filter.
type FilterService struct {
	Filter *security.Filter
}

// UpstreamService wraps the outbound client set.
type UpstreamService struct {
	Client *upstream.Client
}

// HealthTrackerService wraps the circuit breaker tracker.
type HealthTrackerService struct {
	Tracker *health.Tracker
}

// HandlerService wraps the assembled HTTP handler tree.
type HandlerService struct {
	Handler http.Handler
}

// ServerService wraps the HTTP server.
type ServerService struct {
	Server *proxy.Server
}

// RegisterSingletons registers all providers in dependency order.
func RegisterSingletons(i do.Injector) {
	do.Provide(i, NewConfig)
	do.Provide(i, NewLogger)
	do.Provide(i, NewCache)
	do.Provide(i, NewTargets)
	do.Provide(i, NewLimiters)
	do.Provide(i, NewFilter)
	do.Provide(i, NewUpstream)
	do.Provide(i, NewHealthTracker)
	do.Provide(i, NewHandler)
	do.Provide(i, NewHTTPServer)
}

// NewConfig loads configuration from the container's config path.
func NewConfig(i do.Injector) (*ConfigService, error) {
	path := do.MustInvokeNamed[string](i, ConfigPathKey)

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	return &ConfigService{Config: cfg}, nil
}

// NewLogger creates the process logger from configuration.
func NewLogger(i do.Injector) (*LoggerService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)

	logger, err := proxy.NewLogger(cfgSvc.Config.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return &LoggerService{Logger: &logger}, nil
}

// NewCache creates the response cache.
func NewCache(i do.Injector) (*CacheService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)

	c, err := cache.New(cfgSvc.Config.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}
	return &CacheService{Cache: c}, nil
}

// Shutdown closes the cache backend.
func (s *CacheService) Shutdown() error {
	return s.Cache.Close()
}

// NewTargets builds the upstream targets from provider configuration.
func NewTargets(i do.Injector) (*TargetsService, error) {
	cfg := do.MustInvoke[*ConfigService](i).Config

	return &TargetsService{
		OpenAI:          providers.NewOpenAITarget(cfg.Providers.OpenAI),
		Anthropic:       providers.NewAnthropicTarget(cfg.Providers.Anthropic),
		Cerebras:        providers.NewCerebrasTarget(cfg.Providers.Cerebras),
		CerebrasEnabled: cfg.Providers.Cerebras.APIKey != "",
	}, nil
}

// NewLimiters builds the request and token admitters per the configured
// strategy.
func NewLimiters(i do.Injector) (*LimitersService, error) {
	filters := do.MustInvoke[*ConfigService](i).Config.Filters

	if filters.GetEffectiveStrategy() == "token_bucket" {
		bucket := ratelimit.NewTokenBucketLimiter(filters.RequestsPerMinute, filters.TokensPerMinute)
		return &LimitersService{Requests: bucket, Tokens: bucket}, nil
	}

	return &LimitersService{
		Requests: ratelimit.NewRequestLimiter(filters.RequestsPerMinute),
		Tokens:   ratelimit.NewTokenLimiter(filters.TokensPerMinute),
	}, nil
}

// NewFilter builds the security filter over the request admitter.
func NewFilter(i do.Injector) (*FilterService, error) {
	cfg := do.MustInvoke[*ConfigService](i).Config
	limiters := do.MustInvoke[*LimitersService](i)

	return &FilterService{
		Filter: security.NewFilter(cfg.Filters, limiters.Requests),
	}, nil
}

// NewUpstream builds the outbound client set.
func NewUpstream(i do.Injector) (*UpstreamService, error) {
	cfg := do.MustInvoke[*ConfigService](i).Config

	client, err := upstream.New(cfg.Outbound, cfg.Server.GetTimeoutOption())
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream client: %w", err)
	}
	return &UpstreamService{Client: client}, nil
}

// NewHealthTracker builds the per-target circuit breaker tracker.
func NewHealthTracker(i do.Injector) (*HealthTrackerService, error) {
	cfg := do.MustInvoke[*ConfigService](i).Config
	logSvc := do.MustInvoke[*LoggerService](i)

	return &HealthTrackerService{
		Tracker: health.NewTracker(cfg.Health, logSvc.Logger),
	}, nil
}

// NewHandler assembles the forwarding pipeline and route tree.
func NewHandler(i do.Injector) (*HandlerService, error) {
	cfg := do.MustInvoke[*ConfigService](i).Config
	logSvc := do.MustInvoke[*LoggerService](i)
	targets := do.MustInvoke[*TargetsService](i)
	limiters := do.MustInvoke[*LimitersService](i)
	filterSvc := do.MustInvoke[*FilterService](i)
	upstreamSvc := do.MustInvoke[*UpstreamService](i)
	trackerSvc := do.MustInvoke[*HealthTrackerService](i)
	cacheSvc := do.MustInvoke[*CacheService](i)

	handler := proxy.NewHandler(proxy.HandlerOptions{
		Dispatch: proxy.NewDispatcher(
			targets.OpenAI, targets.Anthropic, targets.Cerebras,
			targets.CerebrasEnabled, trackerSvc.Tracker),
		Filter:    filterSvc.Filter,
		Tokens:    limiters.Tokens,
		Estimator: ratelimit.HeuristicEstimator{},
		Client:    upstreamSvc.Client,
		Retry:     retry.NewController(),
		Relay:     newRelay(cfg.Server),
		Health:    trackerSvc.Tracker,
		Cache:     cacheSvc.Cache,
		CacheTTL:  cfg.Cache.GetTTL(),
		Audit:     redact.NewLogger(*logSvc.Logger),
		Mock:      cfg.Server.Mock,
	})

	limiter := proxy.NewConcurrencyLimiter(int64(cfg.Server.MaxConcurrent))
	return &HandlerService{
		Handler: proxy.Routes(handler, limiter, trackerSvc.Tracker),
	}, nil
}

func newRelay(server config.ServerConfig) *relay.Relay {
	if server.StreamEventsPerSec > 0 {
		return relay.New(relay.WithThrottle(int64(server.StreamEventsPerSec)))
	}
	return relay.New()
}

// NewHTTPServer builds the gateway server.
func NewHTTPServer(i do.Injector) (*ServerService, error) {
	cfg := do.MustInvoke[*ConfigService](i).Config
	handlerSvc := do.MustInvoke[*HandlerService](i)

	return &ServerService{
		Server: proxy.NewServer(cfg.Server.Listen, handlerSvc.Handler, cfg.Server.EnableHTTP2),
	}, nil
}
