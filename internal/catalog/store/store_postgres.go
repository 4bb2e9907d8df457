package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"benefitflow/internal/catalog/models"
	id "benefitflow/pkg/domain"
	"benefitflow/pkg/platform/sentinel"
)

// PostgresStore serves catalog reads from PostgreSQL. The authoring pipeline
// owns writes; this store is strictly read-only.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed catalog store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// schemeRow mirrors the catalog_schemes JSONB columns.
type schemeRow struct {
	Criteria     []criterionRow   `json:"criteria"`
	RequiredDocs []requiredDocRow `json:"required_docs"`
	Categories   []string         `json:"categories"`
}

type criterionRow struct {
	Field     string         `json:"field"`
	Operator  string         `json:"operator"`
	Value     id.FieldValue  `json:"value"`
	RangeHigh *id.FieldValue `json:"range_high,omitempty"`
	Weight    float64        `json:"weight"`
	Optional  bool           `json:"optional,omitempty"`
}

type requiredDocRow struct {
	Type      string `json:"type"`
	Mandatory bool   `json:"mandatory"`
}

const schemeColumns = `id, name, payload, estimated_benefit, updated_at`

func (s *PostgresStore) Scheme(ctx context.Context, schemeID id.SchemeID) (*models.Scheme, error) {
	query := `SELECT ` + schemeColumns + ` FROM catalog_schemes WHERE id = $1`
	row := s.db.QueryRowContext(ctx, query, schemeID.String())
	scheme, err := scanScheme(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("scheme %s: %w", schemeID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load scheme: %w", err)
	}
	return scheme, nil
}

func (s *PostgresStore) Schemes(ctx context.Context, schemeIDs []id.SchemeID) ([]*models.Scheme, error) {
	out := make([]*models.Scheme, 0, len(schemeIDs))
	for _, sid := range schemeIDs {
		scheme, err := s.Scheme(ctx, sid)
		if err != nil {
			return nil, err
		}
		out = append(out, scheme)
	}
	return out, nil
}

func (s *PostgresStore) SchemesByCategory(ctx context.Context, category string) ([]*models.Scheme, error) {
	query := `SELECT ` + schemeColumns + ` FROM catalog_schemes WHERE payload->'categories' ? $1`
	rows, err := s.db.QueryContext(ctx, query, category)
	if err != nil {
		return nil, fmt.Errorf("list schemes by category: %w", err)
	}
	defer rows.Close()
	return collectSchemes(rows)
}

func (s *PostgresStore) AllSchemes(ctx context.Context) ([]*models.Scheme, error) {
	query := `SELECT ` + schemeColumns + ` FROM catalog_schemes`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list schemes: %w", err)
	}
	defer rows.Close()
	return collectSchemes(rows)
}

func (s *PostgresStore) DocumentType(ctx context.Context, docTypeID id.DocumentTypeID) (*models.DocumentType, error) {
	query := `
		SELECT id, category, validity_seconds, prerequisites,
		       requires_authority, automatable, estimated_effort_seconds
		FROM catalog_document_types WHERE id = $1
	`
	var (
		rawID        string
		category     string
		validitySecs sql.NullInt64
		prereqJSON   []byte
		requiresAuth bool
		automatable  bool
		effortSecs   int64
	)
	err := s.db.QueryRowContext(ctx, query, docTypeID.String()).Scan(
		&rawID, &category, &validitySecs, &prereqJSON, &requiresAuth, &automatable, &effortSecs,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document type %s: %w", docTypeID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load document type: %w", err)
	}

	var prereqs []string
	if len(prereqJSON) > 0 {
		if err := json.Unmarshal(prereqJSON, &prereqs); err != nil {
			return nil, fmt.Errorf("decode prerequisites: %w", err)
		}
	}

	dt := &models.DocumentType{
		ID:                id.DocumentTypeID(rawID),
		Category:          category,
		RequiresAuthority: requiresAuth,
		Automatable:       automatable,
		EstimatedEffort:   time.Duration(effortSecs) * time.Second,
	}
	if validitySecs.Valid {
		d := time.Duration(validitySecs.Int64) * time.Second
		dt.Validity = &d
	}
	for _, p := range prereqs {
		dt.Prerequisites = append(dt.Prerequisites, id.DocumentTypeID(p))
	}
	return dt, nil
}

func (s *PostgresStore) Version(ctx context.Context) (string, error) {
	var version string
	err := s.db.QueryRowContext(ctx, `SELECT version FROM catalog_meta LIMIT 1`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("catalog version: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("load catalog version: %w", err)
	}
	return version, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScheme(row rowScanner) (*models.Scheme, error) {
	var (
		rawID     string
		name      string
		payload   []byte
		benefit   float64
		updatedAt time.Time
	)
	if err := row.Scan(&rawID, &name, &payload, &benefit, &updatedAt); err != nil {
		return nil, err
	}

	var body schemeRow
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("decode scheme payload: %w", err)
	}

	scheme := &models.Scheme{
		ID:               id.SchemeID(rawID),
		Name:             name,
		Categories:       body.Categories,
		EstimatedBenefit: benefit,
		UpdatedAt:        updatedAt,
	}
	for _, c := range body.Criteria {
		op, err := models.ParseOperator(c.Operator)
		if err != nil {
			return nil, fmt.Errorf("scheme %s: %w", rawID, err)
		}
		criterion := models.Criterion{
			Field:    c.Field,
			Operator: op,
			Value:    c.Value,
			Weight:   c.Weight,
			Optional: c.Optional,
		}
		if c.RangeHigh != nil {
			criterion.RangeHigh = *c.RangeHigh
		}
		scheme.Criteria = append(scheme.Criteria, criterion)
	}
	for _, d := range body.RequiredDocs {
		scheme.RequiredDocs = append(scheme.RequiredDocs, models.RequiredDocument{
			Type:      id.DocumentTypeID(d.Type),
			Mandatory: d.Mandatory,
		})
	}
	return scheme, nil
}

func collectSchemes(rows *sql.Rows) ([]*models.Scheme, error) {
	var out []*models.Scheme
	for rows.Next() {
		scheme, err := scanScheme(rows)
		if err != nil {
			return nil, fmt.Errorf("scan scheme: %w", err)
		}
		out = append(out, scheme)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schemes: %w", err)
	}
	return out, nil
}
