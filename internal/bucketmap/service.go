// Package bucketmap resolves vendor-specific status vocabulary to canonical
// buckets through a cache-backed mapping table with a keyword fallback.
package bucketmap

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/parceldesk/courierhub/internal/cache"
	"github.com/parceldesk/courierhub/internal/store"
	"github.com/parceldesk/courierhub/internal/telemetry"
	"github.com/parceldesk/courierhub/pkg/courier"
)

const (
	// keyPrefix namespaces mapping entries in the shared cache.
	keyPrefix = "bucketmap:"

	// positiveTTL bounds how long a resolved mapping is cached. Mappings
	// change only through admin writes, which invalidate explicitly; the
	// TTL is a backstop against missed invalidations.
	positiveTTL = 7 * 24 * time.Hour

	// negativeTTL bounds the unmapped sentinel so a mapping added for a
	// new status takes effect within the hour even without invalidation.
	negativeTTL = time.Hour

	// unmappedSentinel marks a status known to have no active mapping.
	unmappedSentinel = -1
)

// MappingStore is the slice of the persistence layer the service consumes.
// *store.MappingRepo satisfies it.
type MappingStore interface {
	FindActive(ctx context.Context, courierName, statusCode string) (*store.CourierStatusMapping, error)
	Upsert(ctx context.Context, m *store.CourierStatusMapping) error
	Deactivate(ctx context.Context, courierName, statusCode string) error
	List(ctx context.Context, f store.MappingFilter) ([]store.CourierStatusMapping, error)
	UpsertUnmapped(ctx context.Context, courierName, statusCode string) error
	ListUnmapped(ctx context.Context, courierName string, limit int) ([]store.UnmappedStatus, error)
}

// Resolution is the outcome of one status resolution.
type Resolution struct {
	Bucket courier.Bucket
	// Source names the ladder step that answered: "cache", "store",
	// "heuristic", or "default".
	Source string
	// Matched is false when the ladder fell all the way through and the
	// bucket is the NEW default.
	Matched bool
}

// CacheStats summarizes the mapping cache population.
type CacheStats struct {
	Keys      int `json:"keys"`
	Sentinels int `json:"sentinels"`
}

// Service resolves vendor statuses to buckets and owns the mapping admin
// surface.
type Service struct {
	cache   cache.Cache
	repo    MappingStore
	metrics *telemetry.Metrics
	logger  *otelzap.Logger
}

// New creates a bucket mapping service.
func New(c cache.Cache, repo MappingStore, metrics *telemetry.Metrics, logger *otelzap.Logger) *Service {
	return &Service{cache: c, repo: repo, metrics: metrics, logger: logger}
}

// normalize canonicalizes a courier name or status code for keying. The
// mapping table is case-insensitive by convention; vendors disagree on
// casing between documentation and live payloads.
func normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func key(courierName, statusCode string) string {
	return keyPrefix + normalize(courierName) + ":" + normalize(statusCode)
}

// Resolve maps one vendor scan to a bucket. The ladder is cache, mapping
// table, mapping table keyed by the status text, then keyword heuristics.
// It never returns an error: a full fall-through yields NEW with
// Matched=false so tracking callers can drop the event.
func (s *Service) Resolve(ctx context.Context, courierName, statusCode, statusText string) Resolution {
	if b, src, ok := s.lookup(ctx, courierName, statusCode); ok {
		return Resolution{Bucket: b, Source: src, Matched: true}
	}

	// Some vendors report a human phrase where others report a code; retry
	// the table with the text before falling back to keywords.
	if t := strings.TrimSpace(statusText); t != "" && !strings.EqualFold(t, statusCode) {
		if b, src, ok := s.lookup(ctx, courierName, t); ok {
			return Resolution{Bucket: b, Source: src, Matched: true}
		}
	}

	if b, ok := courier.ClassifyStatusText(statusText); ok {
		s.heuristicHit(courierName, statusCode, statusText, b)
		return Resolution{Bucket: b, Source: "heuristic", Matched: true}
	}
	if b, ok := courier.ClassifyStatusText(statusCode); ok {
		s.heuristicHit(courierName, statusCode, statusText, b)
		return Resolution{Bucket: b, Source: "heuristic", Matched: true}
	}

	s.logger.Ctx(ctx).Warn("Status resolution fell through to default",
		zap.String("courier", courierName),
		zap.String("status_code", statusCode),
		zap.String("status_text", statusText),
	)
	return Resolution{Bucket: courier.BucketNew, Source: "default", Matched: false}
}

func (s *Service) heuristicHit(courierName, statusCode, statusText string, b courier.Bucket) {
	s.metrics.RecordHeuristicHit(normalize(courierName))
	s.logger.Info("Status resolved by keyword heuristic",
		zap.String("courier", courierName),
		zap.String("status_code", statusCode),
		zap.String("status_text", statusText),
		zap.String("bucket", b.String()),
	)
}

// lookup runs the cache-aside table read for one (courier, status) pair.
// A table miss routes the status to the review backlog and negative-caches
// the sentinel so repeated polls skip the table for an hour.
func (s *Service) lookup(ctx context.Context, courierName, status string) (courier.Bucket, string, bool) {
	k := key(courierName, status)

	val, hit, err := cache.Through(ctx, s.cache, k, func(ctx context.Context) (int, time.Duration, error) {
		m, err := s.repo.FindActive(ctx, normalize(courierName), normalize(status))
		if errors.Is(err, store.ErrNotFound) {
			s.metrics.RecordUnmappedStatus(normalize(courierName))
			if err := s.repo.UpsertUnmapped(ctx, normalize(courierName), normalize(status)); err != nil {
				s.logger.Ctx(ctx).Error("Failed to record unmapped status", zap.Error(err))
			}
			return unmappedSentinel, negativeTTL, nil
		}
		if err != nil {
			return 0, 0, err
		}
		return m.Bucket, positiveTTL, nil
	})
	if err != nil {
		s.logger.Ctx(ctx).Error("Mapping lookup failed",
			zap.String("courier", courierName),
			zap.String("status", status),
			zap.Error(err),
		)
		return 0, "", false
	}

	switch {
	case val == unmappedSentinel:
		if hit {
			s.metrics.RecordCacheLookup("bucketmap", "sentinel")
			// The sentinel suppresses the table read, not the review
			// accounting: every sighting of an unmapped status bumps its
			// counter so the backlog reflects real traffic.
			s.metrics.RecordUnmappedStatus(normalize(courierName))
			if err := s.repo.UpsertUnmapped(ctx, normalize(courierName), normalize(status)); err != nil {
				s.logger.Ctx(ctx).Error("Failed to record unmapped status", zap.Error(err))
			}
		} else {
			s.metrics.RecordCacheLookup("bucketmap", "miss")
		}
		return 0, "", false
	case hit:
		s.metrics.RecordCacheLookup("bucketmap", "hit")
		return courier.Bucket(val), "cache", courier.Bucket(val).Valid()
	default:
		s.metrics.RecordCacheLookup("bucketmap", "miss")
		return courier.Bucket(val), "store", courier.Bucket(val).Valid()
	}
}

// ErrInvalidBucket rejects mapping writes outside the closed enumeration.
var ErrInvalidBucket = errors.New("bucket outside the canonical enumeration")

// GetMapping returns the active mapping row for one (courier, status code).
func (s *Service) GetMapping(ctx context.Context, courierName, statusCode string) (*store.CourierStatusMapping, error) {
	return s.repo.FindActive(ctx, normalize(courierName), normalize(statusCode))
}

// UpdateMapping writes a mapping through to the table and the cache:
// upsert, drop the stale key, then repopulate it.
func (s *Service) UpdateMapping(ctx context.Context, m *store.CourierStatusMapping) error {
	if !courier.Bucket(m.Bucket).Valid() {
		return ErrInvalidBucket
	}
	m.CourierName = normalize(m.CourierName)
	m.StatusCode = normalize(m.StatusCode)
	m.IsActive = true
	m.IsMapped = true

	if err := s.repo.Upsert(ctx, m); err != nil {
		return err
	}

	k := key(m.CourierName, m.StatusCode)
	if err := s.cache.Del(ctx, k); err != nil {
		s.logger.Ctx(ctx).Warn("Failed to drop stale mapping key", zap.String("key", k), zap.Error(err))
	}
	if err := s.setCached(ctx, m.CourierName, m.StatusCode, m.Bucket); err != nil {
		s.logger.Ctx(ctx).Warn("Failed to repopulate mapping key", zap.String("key", k), zap.Error(err))
	}

	s.logger.Ctx(ctx).Info("Bucket mapping updated",
		zap.String("courier", m.CourierName),
		zap.String("status_code", m.StatusCode),
		zap.String("bucket", courier.Bucket(m.Bucket).String()),
	)
	return nil
}

// RemoveMapping deactivates a mapping and drops its cache key. The next
// resolution negative-caches the sentinel and re-files the status for
// review.
func (s *Service) RemoveMapping(ctx context.Context, courierName, statusCode string) error {
	if err := s.repo.Deactivate(ctx, normalize(courierName), normalize(statusCode)); err != nil {
		return err
	}
	return s.cache.Del(ctx, key(courierName, statusCode))
}

// UnmappedStatuses returns the review backlog, most recently seen first.
func (s *Service) UnmappedStatuses(ctx context.Context, courierName string, limit int) ([]store.UnmappedStatus, error) {
	return s.repo.ListUnmapped(ctx, normalize(courierName), limit)
}

// AllMappings lists mapping rows matching the filter.
func (s *Service) AllMappings(ctx context.Context, f store.MappingFilter) ([]store.CourierStatusMapping, error) {
	if f.CourierName != "" {
		f.CourierName = normalize(f.CourierName)
	}
	return s.repo.List(ctx, f)
}

// InvalidateAll drops every mapping key in one batched delete, then warms
// the cache back from the full active table.
func (s *Service) InvalidateAll(ctx context.Context) error {
	if err := s.dropPrefix(ctx, keyPrefix); err != nil {
		return err
	}
	return s.warm(ctx, store.MappingFilter{OnlyActive: true})
}

// InvalidateCourier drops one courier's mapping keys and rewarms them.
func (s *Service) InvalidateCourier(ctx context.Context, courierName string) error {
	if err := s.dropPrefix(ctx, keyPrefix+normalize(courierName)+":"); err != nil {
		return err
	}
	return s.warm(ctx, store.MappingFilter{CourierName: normalize(courierName), OnlyActive: true})
}

func (s *Service) dropPrefix(ctx context.Context, prefix string) error {
	keys, err := s.cache.KeysByPrefix(ctx, prefix)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.cache.Del(ctx, keys...)
}

func (s *Service) warm(ctx context.Context, f store.MappingFilter) error {
	mappings, err := s.repo.List(ctx, f)
	if err != nil {
		return err
	}
	for _, m := range mappings {
		if !m.IsMapped {
			continue
		}
		if err := s.setCached(ctx, m.CourierName, m.StatusCode, m.Bucket); err != nil {
			s.logger.Ctx(ctx).Warn("Cache warm write failed",
				zap.String("courier", m.CourierName),
				zap.String("status_code", m.StatusCode),
				zap.Error(err),
			)
		}
	}
	s.logger.Ctx(ctx).Info("Mapping cache warmed", zap.Int("entries", len(mappings)))
	return nil
}

// setCached writes the bucket in the same shape Through stores it, so
// warmed keys and read-through keys are interchangeable.
func (s *Service) setCached(ctx context.Context, courierName, statusCode string, bucket int) error {
	return s.cache.Set(ctx, key(courierName, statusCode), strconv.Itoa(bucket), positiveTTL)
}

// Stats counts the cached mapping population, splitting out negative
// sentinels.
func (s *Service) Stats(ctx context.Context) (CacheStats, error) {
	keys, err := s.cache.KeysByPrefix(ctx, keyPrefix)
	if err != nil {
		return CacheStats{}, err
	}
	stats := CacheStats{Keys: len(keys)}
	for _, k := range keys {
		if raw, ok, err := s.cache.Get(ctx, k); err == nil && ok && raw == "-1" {
			stats.Sentinels++
		}
	}
	return stats, nil
}
