package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/TIPmigs/sikad-server/internal/models"
	"github.com/TIPmigs/sikad-server/internal/service"
	"github.com/redis/go-redis/v9"
)

const (
	latestPosKeyPrefix = "device:lastpos:"
	latestPosGlobalKey = "device:lastpos:latest"
	latestPosTTL       = 24 * time.Hour
)

// PositionStore хранит последние снимки позиций устройств в Redis.
// Это side-channel: ошибки записи не влияют на обработку телеметрии.
type PositionStore struct {
	redisClient *redis.Client
}

func NewPositionStore(redisClient *redis.Client) service.PositionStore {
	return &PositionStore{redisClient: redisClient}
}

// SaveLatest сохраняет последний снимок позиции устройства и общий последний снимок
func (s *PositionStore) SaveLatest(ctx context.Context, report *models.PositionReport) error {
	val, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal position snapshot: %w", err)
	}
	key := latestPosKeyPrefix + report.DeviceID
	if err := s.redisClient.Set(ctx, key, val, latestPosTTL).Err(); err != nil {
		return fmt.Errorf("failed to save position snapshot: %w", err)
	}
	if err := s.redisClient.Set(ctx, latestPosGlobalKey, val, latestPosTTL).Err(); err != nil {
		return fmt.Errorf("failed to save global position snapshot: %w", err)
	}
	return nil
}

// Latest возвращает последний снимок позиции устройства.
// При пустом deviceID возвращается последний снимок по всем устройствам.
// Если снимка нет, возвращается (nil, nil).
func (s *PositionStore) Latest(ctx context.Context, deviceID string) (*models.PositionReport, error) {
	key := latestPosGlobalKey
	if deviceID != "" {
		key = latestPosKeyPrefix + deviceID
	}
	val, err := s.redisClient.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get position snapshot: %w", err)
	}

	report := &models.PositionReport{}
	if err := json.Unmarshal(val, report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal position snapshot: %w", err)
	}
	return report, nil
}
