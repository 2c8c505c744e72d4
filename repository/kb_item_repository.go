package repository

import (
	"context"
	"fmt"

	"autombs-backend/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// KBItemRepository handles database operations for knowledge-base items
type KBItemRepository struct {
	db *pgxpool.Pool
}

// NewKBItemRepository creates a new KB item repository
func NewKBItemRepository(db *pgxpool.Pool) *KBItemRepository {
	return &KBItemRepository{db: db}
}

// Upsert inserts or replaces a KB item keyed by item number
func (r *KBItemRepository) Upsert(ctx context.Context, item *models.KBItem) error {
	query := `
		INSERT INTO kb_items (
			item_number, description, schedule_fee, effective_from, effective_to, hard_gates
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (item_number) DO UPDATE SET
			description = EXCLUDED.description,
			schedule_fee = EXCLUDED.schedule_fee,
			effective_from = EXCLUDED.effective_from,
			effective_to = EXCLUDED.effective_to,
			hard_gates = EXCLUDED.hard_gates,
			updated_at = NOW()`

	_, err := r.db.Exec(
		ctx, query,
		item.ItemNumber,
		item.Description,
		item.ScheduleFee,
		nullableDate(item.EffectiveFrom),
		nullableDate(item.EffectiveTo),
		item.HardGates,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert KB item %s: %w", item.ItemNumber, err)
	}

	return nil
}

// ListAll retrieves every KB item in item-number order
func (r *KBItemRepository) ListAll(ctx context.Context) ([]models.KBItem, error) {
	query := `
		SELECT item_number, description, schedule_fee,
			COALESCE(effective_from::text, ''), COALESCE(effective_to::text, ''), hard_gates
		FROM kb_items
		ORDER BY item_number ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query KB items: %w", err)
	}
	defer rows.Close()

	var items []models.KBItem
	for rows.Next() {
		var item models.KBItem
		err := rows.Scan(
			&item.ItemNumber,
			&item.Description,
			&item.ScheduleFee,
			&item.EffectiveFrom,
			&item.EffectiveTo,
			&item.HardGates,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan KB item: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// Count returns the number of stored KB items
func (r *KBItemRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM kb_items`).Scan(&n)
	return n, err
}

func nullableDate(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
