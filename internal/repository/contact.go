package repository

import (
	"context"
	"fmt"

	"github.com/TIPmigs/sikad-server/internal/models"
	"github.com/TIPmigs/sikad-server/internal/notify"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ContactRepository - справочник получателей SMS-оповещений
type ContactRepository struct {
	db *pgxpool.Pool
}

func NewContactRepository(db *pgxpool.Pool) notify.RecipientDirectory {
	return &ContactRepository{db: db}
}

// ListRecipients возвращает активных получателей оповещений
func (r *ContactRepository) ListRecipients(ctx context.Context) ([]models.Contact, error) {
	query := `
		SELECT id, name, phone, active
		FROM contacts
		WHERE active = TRUE;
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipients: %w", err)
	}
	defer rows.Close()

	contacts := make([]models.Contact, 0)
	for rows.Next() {
		var c models.Contact
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Active); err != nil {
			return nil, fmt.Errorf("failed to scan contact row: %w", err)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error contact list iteration: %w", err)
	}
	return contacts, nil
}
