package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"benefitflow/internal/platform/metrics"
	"benefitflow/internal/platform/tracer"
	"benefitflow/internal/requirement"
	"benefitflow/internal/workflow/models"
	"benefitflow/internal/workflow/ports"
	id "benefitflow/pkg/domain"
	dErrors "benefitflow/pkg/domain-errors"
	"benefitflow/pkg/platform/audit"
	"benefitflow/pkg/platform/sentinel"
)

// Service orchestrates workflow lifecycles. All writes go through the store's
// compare-and-swap: concurrent mutations of one workflow race on the version
// and exactly one wins.
type Service struct {
	store       Store
	directory   ports.AuthorityDirectory
	submitter   ports.SubmissionClient
	auditor     ports.AuditEmitter
	maxRetries  int
	backoffBase time.Duration
	staleAfter  time.Duration
	now         func() time.Time
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      tracer.Tracer
}

// Option configures the Service.
type Option func(*Service)

func WithAuthorityDirectory(d ports.AuthorityDirectory) Option {
	return func(s *Service) { s.directory = d }
}

func WithSubmissionClient(c ports.SubmissionClient) Option {
	return func(s *Service) { s.submitter = c }
}

func WithAuditEmitter(a ports.AuditEmitter) Option {
	return func(s *Service) { s.auditor = a }
}

func WithMaxRetries(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

func WithRetryBackoffBase(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.backoffBase = d
		}
	}
}

func WithStaleAfter(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.staleAfter = d
		}
	}
}

// WithClock overrides the wall clock. Test hook.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("workflow store is required")
	}
	svc := &Service{
		store:       store,
		maxRetries:  3,
		backoffBase: time.Hour,
		staleAfter:  30 * 24 * time.Hour,
		now:         time.Now,
		logger:      slog.Default(),
		tracer:      tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CreateWorkflow seeds a workflow from a requirement graph and its reuse
// resolutions. Reuse-existing nodes become skipped steps; steps whose
// prerequisites are all skipped (or absent) start ready, the rest blocked.
func (s *Service) CreateWorkflow(
	ctx context.Context,
	profileID id.ProfileID,
	schemeIDs []id.SchemeID,
	graph *requirement.Graph,
	resolutions []requirement.Resolution,
) (*models.Workflow, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanCreateFlow,
		tracer.Int(tracer.AttrNodeCount, len(graph.Nodes)),
	)
	var retErr error
	defer func() { span.End(retErr) }()

	if profileID.IsNil() {
		retErr = dErrors.New(dErrors.CodeBadRequest, "profile id is required")
		return nil, retErr
	}

	decisions := make(map[id.DocumentTypeID]requirement.ReuseDecision, len(resolutions))
	for _, r := range resolutions {
		decisions[r.Type] = r.Decision
	}

	now := s.now().UTC()
	wf := &models.Workflow{
		ID:        id.NewWorkflowID(),
		ProfileID: profileID,
		SchemeIDs: sortedSchemes(schemeIDs),
		Edges:     copyEdges(graph.Edges),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	for _, docType := range graph.TopoOrder {
		node := graph.Nodes[docType]
		step := &models.Step{
			ID:                id.NewStepID(),
			DocumentType:      docType,
			State:             models.StatePending,
			Decision:          decisions[docType],
			Mandatory:         node.Mandatory,
			EstimatedDuration: node.EstimatedEffort,
			Automatable:       node.Automatable,
			RequiresAuthority: node.RequiresAuthority,
		}
		if step.Decision == "" {
			step.Decision = requirement.DecisionFetchNew
		}
		if step.Decision == requirement.DecisionReuseExisting {
			step.State = models.StateSkipped
		}
		wf.Steps = append(wf.Steps, step)
	}
	deriveReadiness(wf)

	if err := s.store.Create(ctx, wf); err != nil {
		retErr = translateStoreErr(err)
		return nil, retErr
	}

	if s.metrics != nil {
		s.metrics.WorkflowsCreated.Inc()
	}
	s.emit(ctx, audit.Event{
		ProfileID:  profileID,
		WorkflowID: wf.ID,
		Action:     string(audit.EventWorkflowCreated),
	})
	s.logger.InfoContext(ctx, "workflow created",
		"workflow_id", wf.ID,
		"profile_id", profileID,
		"steps", len(wf.Steps),
	)
	return wf, nil
}

// AdvanceStep drives one ready step forward under optimistic concurrency.
//
// The caller names the workflow version it read; a mismatch, observed either
// up front or on the eventual compare-and-swap write, is a conflict and
// nothing changes. Automatable steps go through the submission client; steps
// needing an authority move to awaiting_authority with the directory contact
// attached; manual steps move to in_progress, and a later call on the
// in-progress step completes it.
func (s *Service) AdvanceStep(ctx context.Context, workflowID id.WorkflowID, stepID id.StepID, expectedVersion int64) (*models.Workflow, *ports.Contact, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanAdvanceStep,
		tracer.String(tracer.AttrWorkflowID, workflowID.String()),
		tracer.String(tracer.AttrStepID, stepID.String()),
	)
	var retErr error
	defer func() { span.End(retErr) }()

	wf, err := s.loadAtVersion(ctx, workflowID, expectedVersion)
	if err != nil {
		retErr = err
		return nil, nil, retErr
	}

	step := wf.StepByID(stepID)
	if step == nil {
		retErr = dErrors.New(dErrors.CodeNotFound,
			fmt.Sprintf("step %s not in workflow %s", stepID, workflowID))
		return nil, nil, retErr
	}

	var contact *ports.Contact
	switch step.State {
	case models.StateReady:
		contact, err = s.startStep(ctx, wf, step)
		if err != nil {
			retErr = err
			return nil, nil, retErr
		}
	case models.StateInProgress:
		// Manual completion path: the user reports the document obtained.
		s.completeStep(ctx, wf, step)
	default:
		retErr = dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("step %s is %s; only ready steps may start", stepID, step.State))
		return nil, nil, retErr
	}

	if err := s.persist(ctx, wf, expectedVersion); err != nil {
		retErr = err
		return nil, nil, retErr
	}
	span.SetAttributes(tracer.String(tracer.AttrStepState, string(step.State)))
	return wf, contact, nil
}

// startStep transitions one ready step according to its nature. Mutates the
// in-memory aggregate only; the caller persists.
func (s *Service) startStep(ctx context.Context, wf *models.Workflow, step *models.Step) (*ports.Contact, error) {
	if step.RequiresAuthority {
		return s.startAuthorityStep(ctx, wf, step)
	}
	if step.Automatable && s.submitter != nil {
		return nil, s.submitStep(ctx, wf, step)
	}

	s.transition(ctx, wf, step, models.StateInProgress, audit.EventStepStarted, "")
	return nil, nil
}

func (s *Service) startAuthorityStep(ctx context.Context, wf *models.Workflow, step *models.Step) (*ports.Contact, error) {
	if s.directory == nil {
		return nil, dErrors.New(dErrors.CodeAuthorityUnavailable,
			"no authority directory configured")
	}
	contact, err := s.directory.Contact(ctx, step.DocumentType)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeAuthorityUnavailable,
				fmt.Sprintf("no authority registered for document type %s", step.DocumentType))
		}
		return nil, dErrors.Wrap(err, dErrors.CodeAuthorityUnavailable,
			"authority directory lookup failed")
	}

	now := s.now().UTC()
	step.LastExternalUpdate = &now
	s.transition(ctx, wf, step, models.StateAwaitingAuthority, audit.EventStepAwaiting, contact.Authority)
	return contact, nil
}

// submitStep files the automated request and books the outcome.
//
// Transient failures return the step to ready with an exponential backoff
// hint (base * 2^attempt) until the retry budget is spent; the attempt after
// that is a terminal failure that cascades. Permanent failures are terminal
// immediately.
func (s *Service) submitStep(ctx context.Context, wf *models.Workflow, step *models.Step) error {
	result, err := s.submitter.Submit(ctx, ports.SubmissionRequest{
		ProfileID:    wf.ProfileID,
		WorkflowID:   wf.ID,
		StepID:       step.ID,
		DocumentType: step.DocumentType,
	})
	if err != nil {
		// The attempt itself never reached the downstream; treat as transient.
		result = ports.SubmissionResult{Outcome: ports.SubmissionTransient, Reason: err.Error()}
	}

	switch result.Outcome {
	case ports.SubmissionAccepted:
		s.completeStep(ctx, wf, step)
		return nil

	case ports.SubmissionTransient:
		if step.RetryCount >= s.maxRetries {
			s.failStep(ctx, wf, step,
				fmt.Sprintf("submission failed after %d retries: %s", step.RetryCount, result.Reason))
			return nil
		}
		step.RetryCount++
		next := s.now().UTC().Add(s.backoff(step.RetryCount))
		step.NextAttemptAt = &next
		step.FailureReason = result.Reason
		s.transition(ctx, wf, step, models.StateReady, audit.EventStepRetried, result.Reason)
		if s.metrics != nil {
			s.metrics.StepRetries.Inc()
		}
		return nil

	case ports.SubmissionPermanent:
		s.failStep(ctx, wf, step, result.Reason)
		return nil

	default:
		return dErrors.New(dErrors.CodeInternal,
			fmt.Sprintf("submission client returned unknown outcome %q", result.Outcome))
	}
}

// ConfirmAuthority records an external authority's verdict on an awaiting
// step. Confirmations arrive from outside; the orchestrator never retries
// them on its own.
func (s *Service) ConfirmAuthority(ctx context.Context, workflowID id.WorkflowID, stepID id.StepID, expectedVersion int64, approved bool, reason string) (*models.Workflow, error) {
	wf, err := s.loadAtVersion(ctx, workflowID, expectedVersion)
	if err != nil {
		return nil, err
	}

	step := wf.StepByID(stepID)
	if step == nil {
		return nil, dErrors.New(dErrors.CodeNotFound,
			fmt.Sprintf("step %s not in workflow %s", stepID, workflowID))
	}
	if step.State != models.StateAwaitingAuthority {
		return nil, dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("step %s is %s, not awaiting authority", stepID, step.State))
	}

	now := s.now().UTC()
	step.LastExternalUpdate = &now
	step.EscalationRequired = false

	if approved {
		s.transition(ctx, wf, step, models.StateCompleted, audit.EventStepConfirmed, reason)
		s.unlockDependents(ctx, wf, step)
	} else {
		s.failStep(ctx, wf, step, reason)
	}

	if err := s.persist(ctx, wf, expectedVersion); err != nil {
		return nil, err
	}
	return wf, nil
}

// Get loads a workflow with its derived status.
func (s *Service) Get(ctx context.Context, workflowID id.WorkflowID) (*models.Workflow, models.Status, error) {
	wf, err := s.store.Get(ctx, workflowID)
	if err != nil {
		return nil, models.Status{}, translateStoreErr(err)
	}
	return wf, wf.DeriveStatus(), nil
}

// ListByProfile enumerates a profile's workflows, oldest first.
func (s *Service) ListByProfile(ctx context.Context, profileID id.ProfileID) ([]*models.Workflow, error) {
	if profileID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "profile id is required")
	}
	wfs, err := s.store.ListByProfile(ctx, profileID)
	if err != nil {
		return nil, translateStoreErr(err)
	}
	return wfs, nil
}

// Delete abandons a workflow. Held documents gathered along the way stay
// with the profile; only the execution plan goes away.
func (s *Service) Delete(ctx context.Context, workflowID id.WorkflowID) error {
	wf, err := s.store.Get(ctx, workflowID)
	if err != nil {
		return translateStoreErr(err)
	}
	if err := s.store.Delete(ctx, workflowID); err != nil {
		return translateStoreErr(err)
	}
	if s.metrics != nil {
		s.metrics.WorkflowsDeleted.Inc()
	}
	s.emit(ctx, audit.Event{
		ProfileID:  wf.ProfileID,
		WorkflowID: workflowID,
		Action:     string(audit.EventWorkflowDeleted),
	})
	return nil
}

// SweepStale flags awaiting_authority steps with no external update since the
// stale cutoff. The step stays awaiting; a human takes over. Returns how many
// steps were flagged.
func (s *Service) SweepStale(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().Add(-s.staleAfter)
	stale, err := s.store.ListAwaitingBefore(ctx, cutoff)
	if err != nil {
		return 0, translateStoreErr(err)
	}

	flagged := 0
	for _, wf := range stale {
		version := wf.Version
		changed := false
		for _, step := range wf.Steps {
			if step.State != models.StateAwaitingAuthority || step.EscalationRequired {
				continue
			}
			if step.LastExternalUpdate == nil || !step.LastExternalUpdate.Before(cutoff) {
				continue
			}
			step.EscalationRequired = true
			changed = true
			flagged++
			s.emit(ctx, audit.Event{
				ProfileID:  wf.ProfileID,
				WorkflowID: wf.ID,
				StepID:     step.ID,
				Action:     string(audit.EventStepEscalated),
				Reason:     fmt.Sprintf("no authority update since %s", step.LastExternalUpdate.Format(time.RFC3339)),
			})
			if s.metrics != nil {
				s.metrics.StaleEscalations.Inc()
			}
		}
		if !changed {
			continue
		}
		if err := s.persist(ctx, wf, version); err != nil {
			// A concurrent mutation beat the sweep; the next run picks the
			// workflow up again.
			if dErrors.HasCode(err, dErrors.CodeConflict) {
				s.logger.WarnContext(ctx, "stale sweep lost a version race",
					"workflow_id", wf.ID)
				continue
			}
			return flagged, err
		}
	}
	return flagged, nil
}

// completeStep marks a step done and re-derives dependent readiness.
func (s *Service) completeStep(ctx context.Context, wf *models.Workflow, step *models.Step) {
	step.FailureReason = ""
	step.NextAttemptAt = nil
	s.transition(ctx, wf, step, models.StateCompleted, audit.EventStepCompleted, "")
	s.unlockDependents(ctx, wf, step)
}

// failStep marks a terminal failure and cascades it: every transitive
// dependent can no longer be satisfied and fails with it.
func (s *Service) failStep(ctx context.Context, wf *models.Workflow, step *models.Step, reason string) {
	step.FailureReason = reason
	step.NextAttemptAt = nil
	s.transition(ctx, wf, step, models.StateFailed, audit.EventStepFailed, reason)

	queue := []id.DocumentTypeID{step.DocumentType}
	for len(queue) > 0 {
		docType := queue[0]
		queue = queue[1:]
		for _, dependentType := range wf.Edges[docType] {
			dependent := wf.StepByType(dependentType)
			if dependent == nil || dependent.State.Terminal() {
				continue
			}
			dependent.FailureReason = fmt.Sprintf("prerequisite %s failed", docType)
			s.transition(ctx, wf, dependent, models.StateFailed, audit.EventStepFailed, dependent.FailureReason)
			queue = append(queue, dependentType)
		}
	}
}

// unlockDependents re-derives readiness after a completion or skip.
func (s *Service) unlockDependents(ctx context.Context, wf *models.Workflow, step *models.Step) {
	for _, dependentType := range wf.Edges[step.DocumentType] {
		dependent := wf.StepByType(dependentType)
		if dependent == nil || dependent.State != models.StateBlocked {
			continue
		}
		if prerequisitesDone(wf, dependentType) {
			s.transition(ctx, wf, dependent, models.StateReady, "", "")
		}
	}
}

// transition applies a state change with its bookkeeping. An empty event
// means a derived transition not worth an audit record on its own.
func (s *Service) transition(ctx context.Context, wf *models.Workflow, step *models.Step, to models.StepState, event audit.AuditEvent, reason string) {
	step.State = to
	if s.metrics != nil {
		s.metrics.StepTransitions.WithLabelValues(string(to)).Inc()
	}
	if event == "" {
		return
	}
	s.emit(ctx, audit.Event{
		ProfileID:  wf.ProfileID,
		WorkflowID: wf.ID,
		StepID:     step.ID,
		Action:     string(event),
		Reason:     reason,
	})
}

func (s *Service) loadAtVersion(ctx context.Context, workflowID id.WorkflowID, expectedVersion int64) (*models.Workflow, error) {
	wf, err := s.store.Get(ctx, workflowID)
	if err != nil {
		return nil, translateStoreErr(err)
	}
	if wf.Version != expectedVersion {
		if s.metrics != nil {
			s.metrics.VersionConflicts.Inc()
		}
		return nil, dErrors.New(dErrors.CodeConflict,
			fmt.Sprintf("workflow %s is at version %d, request expected %d",
				workflowID, wf.Version, expectedVersion))
	}
	return wf, nil
}

func (s *Service) persist(ctx context.Context, wf *models.Workflow, expectedVersion int64) error {
	wf.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, wf, expectedVersion); err != nil {
		if errors.Is(err, sentinel.ErrConflict) && s.metrics != nil {
			s.metrics.VersionConflicts.Inc()
		}
		return translateStoreErr(err)
	}
	return nil
}

func (s *Service) backoff(attempt int) time.Duration {
	return time.Duration(float64(s.backoffBase) * math.Pow(2, float64(attempt)))
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed",
			"action", event.Action,
			"error", err,
		)
	}
}

// deriveReadiness assigns initial ready/blocked states after seeding.
func deriveReadiness(wf *models.Workflow) {
	for _, step := range wf.Steps {
		if step.State != models.StatePending {
			continue
		}
		if prerequisitesDone(wf, step.DocumentType) {
			step.State = models.StateReady
		} else {
			step.State = models.StateBlocked
		}
	}
}

func prerequisitesDone(wf *models.Workflow, docType id.DocumentTypeID) bool {
	for _, prereq := range wf.Prerequisites(docType) {
		prereqStep := wf.StepByType(prereq)
		if prereqStep == nil {
			continue
		}
		if prereqStep.State != models.StateCompleted && prereqStep.State != models.StateSkipped {
			return false
		}
	}
	return true
}

func translateStoreErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, err.Error())
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, err.Error())
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeTransientFailure, err.Error())
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "workflow store operation failed")
	}
}

func sortedSchemes(ids []id.SchemeID) []id.SchemeID {
	out := append([]id.SchemeID(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func copyEdges(edges map[id.DocumentTypeID][]id.DocumentTypeID) map[id.DocumentTypeID][]id.DocumentTypeID {
	out := make(map[id.DocumentTypeID][]id.DocumentTypeID, len(edges))
	for k, v := range edges {
		out[k] = append([]id.DocumentTypeID(nil), v...)
	}
	return out
}
