package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"benefitflow/internal/documents/models"
	id "benefitflow/pkg/domain"
	"benefitflow/pkg/platform/sentinel"
)

// PostgresStore persists held-document metadata in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed document store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const documentColumns = `id, profile_id, doc_type, issued_at, expires_at, verification, superseded_by`

func (s *PostgresStore) ListByProfile(ctx context.Context, profileID id.ProfileID) ([]*models.HeldDocument, error) {
	query := `SELECT ` + documentColumns + ` FROM held_documents WHERE profile_id = $1 ORDER BY issued_at`
	rows, err := s.db.QueryContext(ctx, query, profileID.String())
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []*models.HeldDocument
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Get(ctx context.Context, docID uuid.UUID) (*models.HeldDocument, error) {
	query := `SELECT ` + documentColumns + ` FROM held_documents WHERE id = $1`
	doc, err := scanDocument(s.db.QueryRowContext(ctx, query, docID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", docID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	return doc, nil
}

// Renew inserts the renewal and flips the superseded pointer in one
// transaction so readers never observe a half-applied renewal.
func (s *PostgresStore) Renew(ctx context.Context, oldID uuid.UUID, renewal *models.HeldDocument) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin renew: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	res, err := tx.ExecContext(ctx,
		`UPDATE held_documents SET superseded_by = $1 WHERE id = $2 AND superseded_by IS NULL`,
		renewal.ID, oldID,
	)
	if err != nil {
		return fmt.Errorf("supersede document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("supersede document: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("document %s missing or already renewed: %w", oldID, sentinel.ErrInvalidState)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO held_documents (id, profile_id, doc_type, issued_at, expires_at, verification)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		renewal.ID,
		renewal.ProfileID.String(),
		renewal.Type.String(),
		renewal.IssuedAt,
		renewal.ExpiresAt,
		string(renewal.Verification),
	)
	if err != nil {
		return fmt.Errorf("insert renewal: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit renew: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*models.HeldDocument, error) {
	var (
		doc          models.HeldDocument
		rawProfile   uuid.UUID
		rawType      string
		expiresAt    sql.NullTime
		verification string
		superseded   uuid.NullUUID
	)
	err := row.Scan(&doc.ID, &rawProfile, &rawType, &doc.IssuedAt, &expiresAt, &verification, &superseded)
	if err != nil {
		return nil, err
	}
	doc.ProfileID = id.ProfileID(rawProfile)
	doc.Type = id.DocumentTypeID(rawType)
	doc.Verification = models.VerificationStatus(verification)
	if expiresAt.Valid {
		t := expiresAt.Time
		doc.ExpiresAt = &t
	}
	if superseded.Valid {
		u := superseded.UUID
		doc.SupersededBy = &u
	}
	return &doc, nil
}
