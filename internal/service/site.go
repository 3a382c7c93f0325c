package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sumire/bebop/internal/client"
	"github.com/sumire/bebop/internal/domain"
)

// ConfigFetcher loads the forum's public configuration.
type ConfigFetcher interface {
	Config(ctx context.Context) (*domain.SiteConfig, error)
}

// ChainReader reads CovenantSQL chain data for a database.
type ChainReader interface {
	Head(ctx context.Context, dbID string) (json.RawMessage, error)
	Request(ctx context.Context, dbID, hash string) (json.RawMessage, error)
	Block(ctx context.Context, dbID string, height int64) (json.RawMessage, error)
}

// Cache stores explorer documents locally.
type Cache interface {
	Defaults(ctx context.Context) error
	Get(ctx context.Context, key string) (json.RawMessage, error)
	Set(ctx context.Context, key string, doc json.RawMessage) error
	Append(ctx context.Context, key string, item json.RawMessage) error
}

// SiteService holds the forum configuration and mirrors the chain head of the
// forum database into the local cache. It plays no part in authentication.
type SiteService struct {
	config ConfigFetcher
	chain  ChainReader
	cache  Cache

	mu   sync.RWMutex
	site domain.SiteConfig
	dbID string
}

// NewSiteService creates a new SiteService.
func NewSiteService(config ConfigFetcher, chain ChainReader, cache Cache) *SiteService {
	return &SiteService{config: config, chain: chain, cache: cache}
}

// Init writes the cache defaults.
func (s *SiteService) Init(ctx context.Context) error {
	if err := s.cache.Defaults(ctx); err != nil {
		return fmt.Errorf("init cache: %w", err)
	}
	return nil
}

// LoadConfig fetches config.json and derives the database id from it.
func (s *SiteService) LoadConfig(ctx context.Context) error {
	cfg, err := s.config.Config(ctx)
	if err != nil {
		return err
	}
	dbID := client.DatabaseID(cfg.Raw)

	s.mu.Lock()
	s.site = *cfg
	s.dbID = dbID
	s.mu.Unlock()

	slog.Info("forum config loaded", "title", cfg.Title, "providers", cfg.OAuth, "db_id", dbID)
	return nil
}

// Site returns the last loaded configuration.
func (s *SiteService) Site() domain.SiteConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.site
}

// DatabaseID returns the forum database id, or "" before LoadConfig succeeded.
func (s *SiteService) DatabaseID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dbID
}

// RefreshHead fetches the head block and caches it. It is a no-op without a
// database id.
func (s *SiteService) RefreshHead(ctx context.Context) (domain.HeadBlock, error) {
	dbID := s.DatabaseID()
	if dbID == "" {
		return nil, nil
	}

	head, err := s.chain.Head(ctx, dbID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, domain.CacheKeyHead, head); err != nil {
		return nil, err
	}
	slog.Debug("current head block", "db_id", dbID, "head", string(head))
	return domain.HeadBlock(head), nil
}

// Head returns the cached head block.
func (s *SiteService) Head(ctx context.Context) (domain.HeadBlock, error) {
	head, err := s.cache.Get(ctx, domain.CacheKeyHead)
	if err != nil {
		return nil, err
	}
	return domain.HeadBlock(head), nil
}

// FetchRequest loads the query recorded under hash and appends it to the sql cache.
func (s *SiteService) FetchRequest(ctx context.Context, hash string) (json.RawMessage, error) {
	dbID := s.DatabaseID()
	if dbID == "" {
		return nil, fmt.Errorf("%w: no database configured", domain.ErrNotFound)
	}
	doc, err := s.chain.Request(ctx, dbID, hash)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Append(ctx, domain.CacheKeySQL, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// FetchBlock loads block height and appends it to the blocks cache.
func (s *SiteService) FetchBlock(ctx context.Context, height int64) (json.RawMessage, error) {
	dbID := s.DatabaseID()
	if dbID == "" {
		return nil, fmt.Errorf("%w: no database configured", domain.ErrNotFound)
	}
	doc, err := s.chain.Block(ctx, dbID, height)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Append(ctx, domain.CacheKeyBlocks, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// PollHead refreshes the head block every interval until ctx is done.
// Failures are logged and the next tick tries again.
func (s *SiteService) PollHead(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RefreshHead(ctx); err != nil {
				slog.Error("refresh head block", "error", err)
			}
		}
	}
}
