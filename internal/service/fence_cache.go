package service

import (
	"context"
	"sync"
	"time"

	"github.com/TIPmigs/sikad-server/internal/geo"
	"github.com/TIPmigs/sikad-server/internal/metrics"
	"github.com/TIPmigs/sikad-server/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Fence - геозона со скомпилированным замкнутым кольцом
type Fence struct {
	Geofence models.Geofence
	Ring     geo.Ring
}

// FenceCache - кеш активных геозон с ограниченным временем жизни поколения.
// Обновление выполняется в режиме single-flight: конкурентные вызовы с
// устаревшим поколением не порождают лишних запросов к хранилищу.
type FenceCache struct {
	repo   GeofenceRepository
	ttl    time.Duration
	logger *logrus.Logger

	mu          sync.RWMutex
	generation  []Fence
	refreshedAt time.Time

	sf singleflight.Group
}

func NewFenceCache(repo GeofenceRepository, ttl time.Duration, logger *logrus.Logger) *FenceCache {
	return &FenceCache{
		repo:   repo,
		ttl:    ttl,
		logger: logger,
	}
}

// ActiveFences возвращает текущее поколение геозон. Если поколение моложе TTL
// и непустое, хранилище не трогается. При ошибке обновления возвращается
// устаревшее поколение: доступность важнее свежести.
func (c *FenceCache) ActiveFences(ctx context.Context) []Fence {
	c.mu.RLock()
	if time.Since(c.refreshedAt) < c.ttl && len(c.generation) > 0 {
		gen := c.generation
		c.mu.RUnlock()
		return gen
	}
	c.mu.RUnlock()

	gen, _, _ := c.sf.Do("refresh", func() (interface{}, error) {
		return c.refresh(ctx), nil
	})
	return gen.([]Fence)
}

// refresh запрашивает хранилище и заменяет поколение целиком
func (c *FenceCache) refresh(ctx context.Context) []Fence {
	log := c.logger.WithField("service", "fence_cache")

	// Другой вызов мог успеть обновить поколение, пока мы ждали single-flight
	c.mu.RLock()
	if time.Since(c.refreshedAt) < c.ttl && len(c.generation) > 0 {
		gen := c.generation
		c.mu.RUnlock()
		return gen
	}
	c.mu.RUnlock()

	geofences, err := c.repo.ListActive(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to refresh geofences, serving stale generation")
		metrics.FenceCacheRefreshes.WithLabelValues("failed").Inc()
		c.mu.RLock()
		gen := c.generation
		c.mu.RUnlock()
		return gen
	}

	compiled := make([]Fence, 0, len(geofences))
	for _, gf := range geofences {
		points := make([]geo.Point, len(gf.Points))
		for i, p := range gf.Points {
			points[i] = geo.Point{Lat: p.Lat, Lon: p.Lng}
		}
		ring, err := geo.NewRing(points)
		if err != nil {
			// Некорректная геозона не должна ломать оценку остальных
			log.WithError(err).WithField("geofence", gf.Name).Warn("Skipping malformed geofence ring")
			continue
		}
		compiled = append(compiled, Fence{Geofence: gf, Ring: ring})
	}

	c.mu.Lock()
	c.generation = compiled
	c.refreshedAt = time.Now()
	c.mu.Unlock()

	metrics.FenceCacheRefreshes.WithLabelValues("ok").Inc()
	log.WithField("count", len(compiled)).Debug("Geofence generation refreshed")
	return compiled
}
