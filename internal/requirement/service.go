package requirement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"benefitflow/internal/catalog"
	"benefitflow/internal/documents"
	"benefitflow/internal/platform/metrics"
	"benefitflow/internal/platform/tracer"
	id "benefitflow/pkg/domain"
	dErrors "benefitflow/pkg/domain-errors"
	"benefitflow/pkg/platform/sentinel"
)

// Service exposes graph building and reuse resolution over the catalog and
// held-document stores.
type Service struct {
	catalog     catalog.Store
	documents   documents.Store
	graceWindow time.Duration
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      tracer.Tracer
}

// Option configures the Service.
type Option func(*Service)

func WithGraceWindow(window time.Duration) Option {
	return func(s *Service) {
		if window > 0 {
			s.graceWindow = window
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

func New(catalogStore catalog.Store, documentStore documents.Store, opts ...Option) (*Service, error) {
	if catalogStore == nil {
		return nil, fmt.Errorf("catalog store is required")
	}
	if documentStore == nil {
		return nil, fmt.Errorf("document store is required")
	}
	svc := &Service{
		catalog:     catalogStore,
		documents:   documentStore,
		graceWindow: 30 * 24 * time.Hour,
		logger:      slog.Default(),
		tracer:      tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// BuildGraph loads the named schemes and assembles their requirement graph.
func (s *Service) BuildGraph(ctx context.Context, schemeIDs []id.SchemeID) (*Graph, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanBuildGraph,
		tracer.Int(tracer.AttrSchemeCount, len(schemeIDs)),
	)
	var retErr error
	defer func() { span.End(retErr) }()

	if len(schemeIDs) == 0 {
		retErr = dErrors.New(dErrors.CodeBadRequest, "at least one scheme id is required")
		return nil, retErr
	}

	schemes, err := s.catalog.Schemes(ctx, schemeIDs)
	if err != nil {
		retErr = translateStoreErr(err, "scheme lookup failed")
		return nil, retErr
	}

	graph, err := Build(ctx, schemes, s.catalog)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeCycleDetected) {
			if s.metrics != nil {
				s.metrics.CyclesDetected.Inc()
			}
			s.logger.ErrorContext(ctx, "requirement graph rejected",
				"error", err,
				"schemes", schemeIDs,
			)
		}
		retErr = err
		return nil, retErr
	}

	span.SetAttributes(tracer.Int(tracer.AttrNodeCount, len(graph.Nodes)))
	if s.metrics != nil {
		s.metrics.GraphsBuilt.Inc()
	}
	return graph, nil
}

// ResolveReuse builds the graph for the schemes and classifies each node against
// the profile's held documents.
func (s *Service) ResolveReuse(ctx context.Context, profileID id.ProfileID, schemeIDs []id.SchemeID, asOf time.Time) (*Graph, []Resolution, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanResolveReuse,
		tracer.Int(tracer.AttrSchemeCount, len(schemeIDs)),
	)
	var retErr error
	defer func() { span.End(retErr) }()

	if profileID.IsNil() {
		retErr = dErrors.New(dErrors.CodeBadRequest, "profile id is required")
		return nil, nil, retErr
	}

	graph, err := s.BuildGraph(ctx, schemeIDs)
	if err != nil {
		retErr = err
		return nil, nil, retErr
	}

	held, err := s.documents.ListByProfile(ctx, profileID)
	if err != nil {
		retErr = translateStoreErr(err, "held document lookup failed")
		return nil, nil, retErr
	}

	resolutions := Resolve(graph, held, asOf, s.graceWindow)
	if s.metrics != nil {
		for _, r := range resolutions {
			s.metrics.ReuseDecisions.WithLabelValues(string(r.Decision)).Inc()
		}
	}
	return graph, resolutions, nil
}

func translateStoreErr(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, err.Error())
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
