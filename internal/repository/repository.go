package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eterdtx/pointage-worker/internal/db"
)

// Tx is an alias for pgx.Tx
type Tx = pgx.Tx

// Repository handles database operations
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// BeginTx starts a new transaction
func (r *Repository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// GetOrCreateEngagementTx retrieves an engagement by its numero or creates
// it, updating last_seen_at on every hit.
func (r *Repository) GetOrCreateEngagementTx(ctx context.Context, tx pgx.Tx, numero, chantier, supplierName string, periodStart, periodEnd *time.Time) (*db.Engagement, error) {
	query := `
		SELECT id, numero, chantier, supplier_name, period_start, period_end, first_seen_at, last_seen_at
		FROM engagements
		WHERE numero = $1
	`

	var eng db.Engagement
	err := tx.QueryRow(ctx, query, numero).Scan(
		&eng.ID,
		&eng.Numero,
		&eng.Chantier,
		&eng.SupplierName,
		&eng.PeriodStart,
		&eng.PeriodEnd,
		&eng.FirstSeenAt,
		&eng.LastSeenAt,
	)

	if err == nil {
		updateQuery := `
			UPDATE engagements
			SET last_seen_at = $1
			WHERE id = $2
		`
		now := time.Now()
		_, err = tx.Exec(ctx, updateQuery, now, eng.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to update engagement last_seen_at: %w", err)
		}
		eng.LastSeenAt = now
		return &eng, nil
	}

	if err != pgx.ErrNoRows {
		return nil, fmt.Errorf("failed to query engagement: %w", err)
	}

	insertQuery := `
		INSERT INTO engagements (numero, chantier, supplier_name, period_start, period_end, first_seen_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING id, numero, chantier, supplier_name, period_start, period_end, first_seen_at, last_seen_at
	`

	now := time.Now()
	err = tx.QueryRow(ctx, insertQuery, numero, chantier, supplierName, periodStart, periodEnd, now).Scan(
		&eng.ID,
		&eng.Numero,
		&eng.Chantier,
		&eng.SupplierName,
		&eng.PeriodStart,
		&eng.PeriodEnd,
		&eng.FirstSeenAt,
		&eng.LastSeenAt,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to create engagement: %w", err)
	}

	return &eng, nil
}

// InsertGeneratedDocumentTx appends one row to the generation ledger within
// a transaction.
func (r *Repository) InsertGeneratedDocumentTx(ctx context.Context, tx pgx.Tx, doc *db.GeneratedDocument) error {
	query := `
		INSERT INTO generated_documents (
			engagement_id, fiche_number, period_start, period_end,
			filename, byte_size, total_amount, entry_count, output_mode,
			urgency_tier, generated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := tx.Exec(ctx, query,
		doc.EngagementID,
		doc.FicheNumber,
		doc.PeriodStart,
		doc.PeriodEnd,
		doc.Filename,
		doc.ByteSize,
		doc.TotalAmount,
		doc.EntryCount,
		doc.OutputMode,
		doc.UrgencyTier,
		doc.GeneratedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to insert generated document: %w", err)
	}

	return nil
}

// GetRecentDocumentsForFiche lists the latest ledger rows for one fiche.
func (r *Repository) GetRecentDocumentsForFiche(ctx context.Context, ficheNumber string, limit int) ([]db.GeneratedDocument, error) {
	query := `
		SELECT id, engagement_id, fiche_number, period_start, period_end,
		       filename, byte_size, total_amount, entry_count, output_mode,
		       urgency_tier, generated_at
		FROM generated_documents
		WHERE fiche_number = $1
		ORDER BY generated_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, ficheNumber, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent documents: %w", err)
	}
	defer rows.Close()

	var docs []db.GeneratedDocument
	for rows.Next() {
		var doc db.GeneratedDocument
		if err := rows.Scan(
			&doc.ID,
			&doc.EngagementID,
			&doc.FicheNumber,
			&doc.PeriodStart,
			&doc.PeriodEnd,
			&doc.Filename,
			&doc.ByteSize,
			&doc.TotalAmount,
			&doc.EntryCount,
			&doc.OutputMode,
			&doc.UrgencyTier,
			&doc.GeneratedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return docs, nil
}

// CountDocumentsSince reports how many documents were generated after the
// given time, used by the health endpoint.
func (r *Repository) CountDocumentsSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM generated_documents WHERE generated_at >= $1`, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}
