package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/opopir/opopir-backend/internal/config"
	"github.com/opopir/opopir-backend/internal/model"
)

const catalogTTL = time.Hour

// ScaleStore lists the scale catalog from durable storage.
type ScaleStore interface {
	List(ctx context.Context) ([]model.Scale, error)
}

// CatalogService serves the scale catalog with a Redis cache in front of
// the database. The engine only needs stable ids out of it.
type CatalogService struct {
	scales ScaleStore
	rdb    *redis.Client
	log    zerolog.Logger
}

// NewCatalogService creates a CatalogService.
func NewCatalogService(scales ScaleStore, rdb *redis.Client, log zerolog.Logger) *CatalogService {
	return &CatalogService{
		scales: scales,
		rdb:    rdb,
		log:    log.With().Str("component", "catalog").Logger(),
	}
}

// List returns the scale catalog, cache first.
func (s *CatalogService) List(ctx context.Context) ([]model.Scale, error) {
	key := config.CacheKey.ScaleCatalogKey()

	raw, err := s.rdb.Get(ctx, key).Result()
	if err == nil {
		var cached []model.Scale
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			return cached, nil
		}
		// Corrupt cache entry; fall through to the database.
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Msg("Catalog cache read failed")
	}

	scales, err := s.scales.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list scales: %w", err)
	}

	if payload, err := json.Marshal(scales); err == nil {
		if err := s.rdb.Set(ctx, key, payload, catalogTTL).Err(); err != nil {
			s.log.Warn().Err(err).Msg("Catalog cache write failed")
		}
	}

	return scales, nil
}

// Prewarm loads the catalog into the cache before traffic arrives.
func (s *CatalogService) Prewarm(ctx context.Context) error {
	scales, err := s.List(ctx)
	if err != nil {
		return err
	}
	s.log.Info().Int("scales", len(scales)).Msg("Catalog prewarmed")
	return nil
}

// Exists reports whether a scale id is in the loaded catalog. Implements
// ScaleCatalog for the configuration builder.
func (s *CatalogService) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	scales, err := s.List(ctx)
	if err != nil {
		return false, err
	}
	for _, sc := range scales {
		if sc.ID == id {
			return true, nil
		}
	}
	return false, nil
}
