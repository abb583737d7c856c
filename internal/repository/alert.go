package repository

import (
	"context"
	"fmt"

	"github.com/TIPmigs/sikad-server/internal/models"
	"github.com/TIPmigs/sikad-server/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AlertRepository сохраняет записи об оповещениях
type AlertRepository struct {
	db *pgxpool.Pool
}

func NewAlertRepository(db *pgxpool.Pool) service.AlertRepository {
	return &AlertRepository{db: db}
}

// Create создает новую запись об оповещении. Запись создается один раз
// и ядром больше не изменяется.
func (r *AlertRepository) Create(ctx context.Context, alert *models.Alert) error {
	query := `
		INSERT INTO alerts (device_id, kind, message, resolved)
		VALUES ($1, $2, $3, $4) RETURNING id, created_at;
	`
	err := r.db.QueryRow(ctx, query,
		alert.DeviceID,
		alert.Kind,
		alert.Message,
		alert.Resolved,
	).Scan(&alert.ID, &alert.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}
	return nil
}
