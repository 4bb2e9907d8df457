package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"benefitflow/internal/requirement"
	"benefitflow/internal/workflow/models"
	id "benefitflow/pkg/domain"
	"benefitflow/pkg/platform/sentinel"
)

// PostgresStore persists workflows in PostgreSQL. The aggregate spans two
// tables (workflows, workflow_steps); every mutation runs in one transaction
// guarded by a compare-and-swap on workflows.version, so a crash or a lost
// race never leaves a half-written aggregate visible.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, wf *models.Workflow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create workflow: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	schemeIDs, edges, err := encodeAggregate(wf)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO workflows (id, profile_id, scheme_ids, edges, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.UUID(wf.ID), uuid.UUID(wf.ProfileID), schemeIDs, edges,
		wf.Version, wf.CreatedAt, wf.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert workflow: %w", err)
	}
	if err := insertSteps(ctx, tx, wf); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create workflow: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, workflowID id.WorkflowID) (*models.Workflow, error) {
	wf, err := s.scanWorkflow(ctx, s.db.QueryRowContext(ctx, `
		SELECT id, profile_id, scheme_ids, edges, version, created_at, updated_at
		FROM workflows WHERE id = $1`, uuid.UUID(workflowID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("workflow %s: %w", workflowID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadSteps(ctx, wf); err != nil {
		return nil, err
	}
	return wf, nil
}

// Update rewrites the aggregate under a version compare-and-swap. Steps are
// replaced wholesale: the step set is small and bounded by the requirement
// graph, and replacement keeps the write path free of per-field diffing.
func (s *PostgresStore) Update(ctx context.Context, wf *models.Workflow, expectedVersion int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update workflow: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	schemeIDs, edges, err := encodeAggregate(wf)
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE workflows
		SET scheme_ids = $1, edges = $2, version = $3, updated_at = $4
		WHERE id = $5 AND version = $6`,
		schemeIDs, edges, expectedVersion+1, wf.UpdatedAt,
		uuid.UUID(wf.ID), expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update workflow: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update workflow: %w", err)
	}
	if affected == 0 {
		// Either gone or at another version; disambiguate for callers.
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM workflows WHERE id = $1)`,
			uuid.UUID(wf.ID)).Scan(&exists); err != nil {
			return fmt.Errorf("update workflow: %w", err)
		}
		if !exists {
			return fmt.Errorf("workflow %s: %w", wf.ID, sentinel.ErrNotFound)
		}
		return fmt.Errorf("workflow %s expected version %d: %w",
			wf.ID, expectedVersion, sentinel.ErrConflict)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM workflow_steps WHERE workflow_id = $1`, uuid.UUID(wf.ID)); err != nil {
		return fmt.Errorf("clear workflow steps: %w", err)
	}
	if err := insertSteps(ctx, tx, wf); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update workflow: %w", err)
	}
	wf.Version = expectedVersion + 1
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, workflowID id.WorkflowID) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM workflows WHERE id = $1`, uuid.UUID(workflowID))
	if err != nil {
		return fmt.Errorf("delete workflow: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete workflow: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("workflow %s: %w", workflowID, sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) ListByProfile(ctx context.Context, profileID id.ProfileID) ([]*models.Workflow, error) {
	return s.list(ctx, `
		SELECT id, profile_id, scheme_ids, edges, version, created_at, updated_at
		FROM workflows WHERE profile_id = $1 ORDER BY created_at, id`,
		uuid.UUID(profileID))
}

func (s *PostgresStore) ListAwaitingBefore(ctx context.Context, cutoff time.Time) ([]*models.Workflow, error) {
	return s.list(ctx, `
		SELECT DISTINCT w.id, w.profile_id, w.scheme_ids, w.edges, w.version, w.created_at, w.updated_at
		FROM workflows w
		JOIN workflow_steps st ON st.workflow_id = w.id
		WHERE st.state = 'awaiting_authority'
		  AND NOT st.escalation_required
		  AND st.last_external_update < $1
		ORDER BY w.id`, cutoff)
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*models.Workflow, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	defer rows.Close()

	var out []*models.Workflow
	for rows.Next() {
		wf, err := s.scanWorkflow(ctx, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, wf)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workflows: %w", err)
	}
	for _, wf := range out {
		if err := s.loadSteps(ctx, wf); err != nil {
			return nil, err
		}
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) scanWorkflow(_ context.Context, row rowScanner) (*models.Workflow, error) {
	var (
		wf           models.Workflow
		rawID        uuid.UUID
		rawProfile   uuid.UUID
		rawSchemeIDs []byte
		rawEdges     []byte
	)
	err := row.Scan(&rawID, &rawProfile, &rawSchemeIDs, &rawEdges,
		&wf.Version, &wf.CreatedAt, &wf.UpdatedAt)
	if err != nil {
		return nil, err
	}
	wf.ID = id.WorkflowID(rawID)
	wf.ProfileID = id.ProfileID(rawProfile)
	if err := json.Unmarshal(rawSchemeIDs, &wf.SchemeIDs); err != nil {
		return nil, fmt.Errorf("decode workflow scheme ids: %w", err)
	}
	if err := json.Unmarshal(rawEdges, &wf.Edges); err != nil {
		return nil, fmt.Errorf("decode workflow edges: %w", err)
	}
	return &wf, nil
}

const stepColumns = `id, doc_type, state, decision, mandatory, estimated_duration_seconds,
	automatable, requires_authority, retry_count, next_attempt_at, failure_reason,
	escalation_required, last_external_update`

func (s *PostgresStore) loadSteps(ctx context.Context, wf *models.Workflow) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+stepColumns+` FROM workflow_steps WHERE workflow_id = $1 ORDER BY position`,
		uuid.UUID(wf.ID))
	if err != nil {
		return fmt.Errorf("load workflow steps: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		step, err := scanStep(rows)
		if err != nil {
			return fmt.Errorf("scan workflow step: %w", err)
		}
		wf.Steps = append(wf.Steps, step)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate workflow steps: %w", err)
	}
	return nil
}

func scanStep(row rowScanner) (*models.Step, error) {
	var (
		step          models.Step
		rawID         uuid.UUID
		rawType       string
		state         string
		decision      string
		effortSeconds int64
		nextAttempt   sql.NullTime
		failureReason sql.NullString
		lastExtUpdate sql.NullTime
	)
	err := row.Scan(&rawID, &rawType, &state, &decision, &step.Mandatory,
		&effortSeconds, &step.Automatable, &step.RequiresAuthority,
		&step.RetryCount, &nextAttempt, &failureReason,
		&step.EscalationRequired, &lastExtUpdate)
	if err != nil {
		return nil, err
	}
	step.ID = id.StepID(rawID)
	step.DocumentType = id.DocumentTypeID(rawType)
	step.State = models.StepState(state)
	step.Decision = requirement.ReuseDecision(decision)
	step.EstimatedDuration = time.Duration(effortSeconds) * time.Second
	if nextAttempt.Valid {
		t := nextAttempt.Time
		step.NextAttemptAt = &t
	}
	if failureReason.Valid {
		step.FailureReason = failureReason.String
	}
	if lastExtUpdate.Valid {
		t := lastExtUpdate.Time
		step.LastExternalUpdate = &t
	}
	return &step, nil
}

func insertSteps(ctx context.Context, tx *sql.Tx, wf *models.Workflow) error {
	for position, step := range wf.Steps {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO workflow_steps (
				workflow_id, position, id, doc_type, state, decision, mandatory,
				estimated_duration_seconds, automatable, requires_authority,
				retry_count, next_attempt_at, failure_reason,
				escalation_required, last_external_update
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			uuid.UUID(wf.ID), position,
			uuid.UUID(step.ID), step.DocumentType.String(),
			string(step.State), string(step.Decision), step.Mandatory,
			int64(step.EstimatedDuration/time.Second),
			step.Automatable, step.RequiresAuthority,
			step.RetryCount, step.NextAttemptAt, nullString(step.FailureReason),
			step.EscalationRequired, step.LastExternalUpdate,
		)
		if err != nil {
			return fmt.Errorf("insert workflow step %s: %w", step.DocumentType, err)
		}
	}
	return nil
}

func encodeAggregate(wf *models.Workflow) (schemeIDs, edges []byte, err error) {
	schemeIDs, err = json.Marshal(wf.SchemeIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("encode workflow scheme ids: %w", err)
	}
	edges, err = json.Marshal(wf.Edges)
	if err != nil {
		return nil, nil, fmt.Errorf("encode workflow edges: %w", err)
	}
	return schemeIDs, edges, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
