package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ShailySarker/digital-wallet-backend/internal/apperr"
	"github.com/ShailySarker/digital-wallet-backend/internal/models"
)

type ContactRepository interface {
	Create(ctx context.Context, m *models.ContactMessage) error
	List(ctx context.Context, page, limit int) ([]models.ContactMessage, *models.PageMeta, error)
}

type PostgresContactRepository struct {
	db *sql.DB
}

func NewPostgresContactRepository(db *sql.DB) *PostgresContactRepository {
	return &PostgresContactRepository{db: db}
}

func (r *PostgresContactRepository) Create(ctx context.Context, m *models.ContactMessage) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO contact_messages (id, name, email, subject, message, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.Name, m.Email, m.Subject, m.Message, m.CreatedAt)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "internal server error", fmt.Errorf("insert contact message: %w", err))
	}
	return nil
}

func (r *PostgresContactRepository) List(ctx context.Context, page, limit int) ([]models.ContactMessage, *models.PageMeta, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contact_messages`).Scan(&total); err != nil {
		return nil, nil, apperr.Wrap(apperr.KindInternal, "internal server error", fmt.Errorf("count contact messages: %w", err))
	}

	page, limit = normalizePage(page, limit)
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, email, subject, message, created_at
		 FROM contact_messages ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, (page-1)*limit)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.KindInternal, "internal server error", fmt.Errorf("list contact messages: %w", err))
	}
	defer rows.Close()

	var msgs []models.ContactMessage
	for rows.Next() {
		var m models.ContactMessage
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Subject, &m.Message, &m.CreatedAt); err != nil {
			return nil, nil, apperr.Wrap(apperr.KindInternal, "internal server error", fmt.Errorf("scan contact message: %w", err))
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, apperr.Wrap(apperr.KindInternal, "internal server error", fmt.Errorf("list contact messages: %w", err))
	}

	meta := &models.PageMeta{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: (total + int64(limit) - 1) / int64(limit),
	}
	return msgs, meta, nil
}
