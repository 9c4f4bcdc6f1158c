package schema

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"ingestion-portal/internal/cache"
	"ingestion-portal/internal/logger"
	"ingestion-portal/internal/model"
)

// Submitter runs a job in the background. It must not block the caller.
type Submitter interface {
	Submit(job func(context.Context) error) bool
}

// Service serves warehouse schemas cache-aside. Misses are answered from the source and
// the cache is filled in the background.
type Service struct {
	source Source
	cache  cache.Cache
	keys   cache.Keys
	ttl    time.Duration
	jobs   Submitter
	log    zerolog.Logger
}

func NewService(source Source, c cache.Cache, keys cache.Keys, ttl time.Duration, jobs Submitter) *Service {
	return &Service{
		source: source,
		cache:  c,
		keys:   keys,
		ttl:    ttl,
		jobs:   jobs,
		log:    logger.Component("schema"),
	}
}

func (s *Service) List(ctx context.Context) ([]string, error) {
	var names []string
	if s.lookup(ctx, s.keys.Schemas(), &names) {
		return names, nil
	}

	names, err := s.source.ListSchemas(ctx)
	if err != nil {
		return nil, err
	}
	s.populate(s.keys.Schemas(), names)
	return names, nil
}

func (s *Service) Get(ctx context.Context, name string) (*model.Schema, error) {
	var schema model.Schema
	if s.lookup(ctx, s.keys.Schema(name), &schema) {
		return &schema, nil
	}

	found, err := s.source.GetSchema(ctx, name)
	if err != nil {
		return nil, err
	}
	s.populate(s.keys.Schema(name), found)
	return found, nil
}

// Refresh rewrites the schema list and every schema entry from the source. It returns the
// number of schemas refreshed; a schema that fails is logged and skipped.
func (s *Service) Refresh(ctx context.Context) (int, error) {
	names, err := s.source.ListSchemas(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list schemas: %w", err)
	}
	if err := s.cache.Set(ctx, s.keys.Schemas(), names, s.ttl); err != nil {
		return 0, fmt.Errorf("failed to cache schema list: %w", err)
	}

	refreshed := 0
	for _, name := range names {
		schema, err := s.source.GetSchema(ctx, name)
		if err != nil {
			s.log.Error().Err(err).Str("schema", name).Msg("Failed to load schema")
			continue
		}
		if err := s.cache.Set(ctx, s.keys.Schema(name), schema, s.ttl); err != nil {
			s.log.Error().Err(err).Str("schema", name).Msg("Failed to cache schema")
			continue
		}
		refreshed++
	}
	return refreshed, nil
}

// lookup treats cache errors as misses.
func (s *Service) lookup(ctx context.Context, key string, dest interface{}) bool {
	ok, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Cache read failed")
		return false
	}
	return ok
}

func (s *Service) populate(key string, value interface{}) {
	queued := s.jobs.Submit(func(ctx context.Context) error {
		return s.cache.Set(ctx, key, value, s.ttl)
	})
	if !queued {
		s.log.Debug().Str("key", key).Msg("Skipped cache population")
	}
}
