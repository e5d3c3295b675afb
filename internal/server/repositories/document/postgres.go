package document

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sharepad/sharepad/internal/dbx"
	"github.com/sharepad/sharepad/internal/server/models"
)

// PostgresRepository stores the document in the document and
// document_history tables. Write runs inside a transaction and relies on
// the row lock taken by the UPDATE to serialize concurrent writers, so
// version increments stay gap-free without a process-level mutex.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Read(ctx context.Context) (models.DocumentState, error) {
	query := `SELECT content, version FROM document WHERE id = 1;`

	var state models.DocumentState
	if err := r.db.QueryRowContext(ctx, query).Scan(&state.Content, &state.Version); err != nil {
		return models.DocumentState{}, fmt.Errorf("select document: %w", err)
	}
	return state, nil
}

func (r *PostgresRepository) Write(ctx context.Context, content []byte, clientID string) (int64, error) {
	var version int64

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		update := `UPDATE document SET content = $1, version = version + 1 WHERE id = 1 RETURNING version;`
		if err := tx.QueryRowContext(ctx, update, content).Scan(&version); err != nil {
			return fmt.Errorf("update document: %w", err)
		}

		insert := `INSERT INTO document_history (version, client_id, ts) VALUES ($1, $2, now());`
		if _, err := tx.ExecContext(ctx, insert, version, clientID); err != nil {
			return fmt.Errorf("insert history: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return version, nil
}

func (r *PostgresRepository) HistorySince(ctx context.Context, after int64) ([]models.HistoryEntry, error) {
	query := `SELECT version, client_id, ts FROM document_history WHERE version > $1 ORDER BY version;`

	rows, err := r.db.QueryContext(ctx, query, after)
	if err != nil {
		return nil, fmt.Errorf("select history: %w", err)
	}
	defer rows.Close()

	var result []models.HistoryEntry
	for rows.Next() {
		var item models.HistoryEntry
		if err := rows.Scan(&item.Version, &item.ClientID, &item.Timestamp); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
