package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/TIPmigs/sikad-server/internal/models"
	"github.com/TIPmigs/sikad-server/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GeofenceRepository - адаптер хранилища полигонов
type GeofenceRepository struct {
	db *pgxpool.Pool
}

func NewGeofenceRepository(db *pgxpool.Pool) service.GeofenceRepository {
	return &GeofenceRepository{db: db}
}

// ListActive возвращает все активные геозоны из хранилища
func (r *GeofenceRepository) ListActive(ctx context.Context) ([]models.Geofence, error) {
	query := `
		SELECT
			id,
			name,
			description,
			color,
			points,
			active,
			created_at,
			updated_at
		FROM geofences
		WHERE active = TRUE;
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active geofences: %w", err)
	}
	defer rows.Close()

	geofences := make([]models.Geofence, 0)
	for rows.Next() {
		var gf models.Geofence
		var rawPoints []byte
		err := rows.Scan(
			&gf.ID,
			&gf.Name,
			&gf.Description,
			&gf.Color,
			&rawPoints,
			&gf.Active,
			&gf.CreatedAt,
			&gf.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan geofence row: %w", err)
		}
		if err := json.Unmarshal(rawPoints, &gf.Points); err != nil {
			return nil, fmt.Errorf("failed to unmarshal geofence points for %s: %w", gf.Name, err)
		}
		geofences = append(geofences, gf)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error geofence list iteration: %w", err)
	}
	return geofences, nil
}
