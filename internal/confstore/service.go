package confstore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/sabrina-ksks/shaberina/internal/entity"
	"github.com/sabrina-ksks/shaberina/internal/observe"
)

// Default cache capacities per scope. User records churn faster than guild
// records, so the user cache is larger.
const (
	DefaultUserCacheSize  = 100
	DefaultGuildCacheSize = 50
)

// Service is the read-through, write-through configuration service. Reads
// consult the scope cache first and fall back to the store; reads for ids
// that were never configured create a default record. Writes hit the store
// first and refresh the cache only after the store accepted the change.
//
// Each scope has its own mutex, so user and guild operations never contend
// with each other.
type Service struct {
	store Store
	log   *slog.Logger

	userMu     sync.Mutex
	users      *Cache[entity.UserConfig]
	userWarned bool

	guildMu     sync.Mutex
	guilds      *Cache[entity.GuildConfig]
	guildWarned bool

	metrics *observe.Metrics
}

// Option configures a [Service].
type Option func(*Service)

// WithCacheSizes overrides the per-scope cache capacities.
func WithCacheSizes(users, guilds int) Option {
	return func(s *Service) {
		s.users = NewCache[entity.UserConfig](users)
		s.guilds = NewCache[entity.GuildConfig](guilds)
	}
}

// WithLogger sets the logger used for cache lifecycle events.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithMetrics enables cache instrumentation.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService creates a configuration service over store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		log:    slog.Default(),
		users:  NewCache[entity.UserConfig](DefaultUserCacheSize),
		guilds: NewCache[entity.GuildConfig](DefaultGuildCacheSize),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FetchUser returns the user's configuration, creating and persisting a
// randomized default when the user was never seen before.
func (s *Service) FetchUser(ctx context.Context, ref entity.Ref) (entity.UserConfig, error) {
	s.userMu.Lock()
	defer s.userMu.Unlock()

	if cfg, ok := s.users.Get(ref.ID); ok {
		s.count(ctx, s.metricOrNil().CacheHits, entity.ScopeUser)
		return cfg, nil
	}
	s.count(ctx, s.metricOrNil().CacheMisses, entity.ScopeUser)

	cfg, found, err := s.store.GetUser(ctx, ref.ID)
	if err != nil {
		return entity.UserConfig{}, err
	}
	if !found {
		cfg = entity.RandomUser()
		if err := s.store.CreateUser(ctx, ref, cfg); err != nil {
			return entity.UserConfig{}, err
		}
		s.log.Info("created default user config", "user_id", ref.ID, "speaker", cfg.Speaker)
	}
	s.putUser(ctx, ref.ID, cfg)
	return cfg, nil
}

// FetchGuild returns the guild's configuration, creating and persisting the
// fixed default when the guild was never seen before.
func (s *Service) FetchGuild(ctx context.Context, ref entity.Ref) (entity.GuildConfig, error) {
	s.guildMu.Lock()
	defer s.guildMu.Unlock()

	if cfg, ok := s.guilds.Get(ref.ID); ok {
		s.count(ctx, s.metricOrNil().CacheHits, entity.ScopeGuild)
		return cfg, nil
	}
	s.count(ctx, s.metricOrNil().CacheMisses, entity.ScopeGuild)

	cfg, found, err := s.store.GetGuild(ctx, ref.ID)
	if err != nil {
		return entity.GuildConfig{}, err
	}
	if !found {
		cfg = entity.DefaultGuild()
		if err := s.store.CreateGuild(ctx, ref, cfg); err != nil {
			return entity.GuildConfig{}, err
		}
		s.log.Info("created default guild config", "guild_id", ref.ID)
	}
	s.putGuild(ctx, ref.ID, cfg)
	return cfg, nil
}

// SetUser persists a full replacement of the user's configuration and then
// refreshes the cache. The record must already exist; fetch before set.
func (s *Service) SetUser(ctx context.Context, id string, cfg entity.UserConfig) error {
	s.userMu.Lock()
	defer s.userMu.Unlock()

	found, err := s.store.UpdateUser(ctx, id, cfg)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("confstore: set user %q: no record", id)
	}
	s.putUser(ctx, id, cfg)
	return nil
}

// SetGuild persists a full replacement of the guild's configuration and then
// refreshes the cache. The record must already exist; fetch before set.
func (s *Service) SetGuild(ctx context.Context, id string, cfg entity.GuildConfig) error {
	s.guildMu.Lock()
	defer s.guildMu.Unlock()

	found, err := s.store.UpdateGuild(ctx, id, cfg)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("confstore: set guild %q: no record", id)
	}
	s.putGuild(ctx, id, cfg)
	return nil
}

// GuildTargets returns the persisted target channel per guild id.
func (s *Service) GuildTargets(ctx context.Context) (map[string]string, error) {
	return s.store.ListGuildTargets(ctx)
}

func (s *Service) putUser(ctx context.Context, id string, cfg entity.UserConfig) {
	if s.users.Put(id, cfg) {
		s.count(ctx, s.metricOrNil().CacheEvictions, entity.ScopeUser)
	}
	if s.users.Saturated() && !s.userWarned {
		s.userWarned = true
		s.log.Warn("user config cache saturated", "capacity", s.users.Len())
		s.count(ctx, s.metricOrNil().CacheSaturations, entity.ScopeUser)
	}
}

func (s *Service) putGuild(ctx context.Context, id string, cfg entity.GuildConfig) {
	if s.guilds.Put(id, cfg) {
		s.count(ctx, s.metricOrNil().CacheEvictions, entity.ScopeGuild)
	}
	if s.guilds.Saturated() && !s.guildWarned {
		s.guildWarned = true
		s.log.Warn("guild config cache saturated", "capacity", s.guilds.Len())
		s.count(ctx, s.metricOrNil().CacheSaturations, entity.ScopeGuild)
	}
}

func (s *Service) metricOrNil() *observe.Metrics {
	if s.metrics == nil {
		return &observe.Metrics{}
	}
	return s.metrics
}

func (s *Service) count(ctx context.Context, c metric.Int64Counter, scope entity.Scope) {
	if c == nil {
		return
	}
	c.Add(ctx, 1, metric.WithAttributes(attribute.String("scope", scope.String())))
}
