package eligibility

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"benefitflow/internal/catalog"
	"benefitflow/internal/catalog/models"
	"benefitflow/internal/eligibility/cache"
	"benefitflow/internal/platform/metrics"
	"benefitflow/internal/platform/tracer"
	id "benefitflow/pkg/domain"
	dErrors "benefitflow/pkg/domain-errors"
	"benefitflow/pkg/platform/sentinel"
)

// Service evaluates profiles against the scheme catalog and suggests
// alternatives. Stateless apart from the optional result cache.
type Service struct {
	catalog     catalog.Store
	cache       cache.Backend
	cacheTTL    time.Duration
	weights     SimilarityWeights
	floor       float64
	parallelism int
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      tracer.Tracer
}

// Option configures the Service.
type Option func(*Service)

func WithCache(backend cache.Backend, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = backend
		s.cacheTTL = ttl
	}
}

func WithSimilarityWeights(w SimilarityWeights) Option {
	return func(s *Service) {
		s.weights = w
	}
}

func WithConfidenceFloor(floor float64) Option {
	return func(s *Service) {
		s.floor = floor
	}
}

func WithParallelism(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.parallelism = n
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

func New(catalogStore catalog.Store, opts ...Option) (*Service, error) {
	if catalogStore == nil {
		return nil, fmt.Errorf("catalog store is required")
	}
	svc := &Service{
		catalog:     catalogStore,
		weights:     DefaultSimilarityWeights(),
		floor:       0.3,
		parallelism: 8,
		logger:      slog.Default(),
		tracer:      tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// EvaluateEligibility evaluates the profile against every named scheme, in
// parallel, and returns ranked results. Completion order never affects the
// output: determinism is guaranteed by the ranking stage.
func (s *Service) EvaluateEligibility(ctx context.Context, profile *Profile, schemeIDs []id.SchemeID, asOf time.Time) ([]Result, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanEvaluate,
		tracer.Int(tracer.AttrSchemeCount, len(schemeIDs)),
	)
	var retErr error
	defer func() { span.End(retErr) }()

	if profile == nil {
		retErr = dErrors.New(dErrors.CodeBadRequest, "profile is required")
		return nil, retErr
	}
	if len(schemeIDs) == 0 {
		return []Result{}, nil
	}

	schemes, err := s.catalog.Schemes(ctx, schemeIDs)
	if err != nil {
		retErr = translateCatalogErr(err)
		return nil, retErr
	}

	key, err := s.cacheKey(ctx, profile, schemes)
	if err == nil && s.cache != nil {
		if cached, ok := s.cacheGet(ctx, key); ok {
			span.SetAttributes(tracer.Bool(tracer.AttrCacheHit, true))
			return cached, nil
		}
		span.SetAttributes(tracer.Bool(tracer.AttrCacheHit, false))
	}

	results := make([]Result, len(schemes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for i, scheme := range schemes {
		i, scheme := i, scheme
		g.Go(func() error {
			_, evalSpan := s.tracer.Start(gctx, tracer.SpanEvaluateOne,
				tracer.String(tracer.AttrSchemeID, scheme.ID.String()),
			)
			outcome, err := Evaluate(profile, scheme.Criteria, asOf)
			evalSpan.End(err)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeValidation,
					fmt.Sprintf("scheme %s failed validation", scheme.ID))
			}
			results[i] = Result{
				SchemeID:         scheme.ID,
				Eligible:         outcome.Eligible,
				Confidence:       outcome.Confidence,
				Failing:          outcome.Failing,
				EstimatedBenefit: scheme.EstimatedBenefit,
				SchemeUpdatedAt:  scheme.UpdatedAt,
				EvaluatedAt:      asOf,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		retErr = err
		return nil, retErr
	}

	ranked := Rank(results)
	if s.metrics != nil {
		for _, r := range ranked {
			outcome := "ineligible"
			if r.Eligible {
				outcome = "eligible"
			}
			s.metrics.EvaluationsTotal.WithLabelValues(outcome).Inc()
		}
	}

	if s.cache != nil && key != "" {
		s.cacheSet(ctx, key, ranked)
	}
	return ranked, nil
}

// FindAlternatives suggests schemes similar to a rejected one. The candidate
// pool is every catalog scheme sharing a category tag with the rejected
// scheme.
func (s *Service) FindAlternatives(ctx context.Context, rejectedID id.SchemeID, profile *Profile, maxResults int, asOf time.Time) ([]Alternative, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanAlternatives,
		tracer.String(tracer.AttrSchemeID, rejectedID.String()),
	)
	var retErr error
	defer func() { span.End(retErr) }()

	if profile == nil {
		retErr = dErrors.New(dErrors.CodeBadRequest, "profile is required")
		return nil, retErr
	}

	rejected, err := s.catalog.Scheme(ctx, rejectedID)
	if err != nil {
		retErr = translateCatalogErr(err)
		return nil, retErr
	}

	candidates, err := s.candidatePool(ctx, rejected)
	if err != nil {
		retErr = translateCatalogErr(err)
		return nil, retErr
	}

	alternatives := FindAlternatives(rejected, profile, candidates, asOf, s.weights, s.floor, maxResults)
	if s.metrics != nil {
		s.metrics.AlternativesServed.Add(float64(len(alternatives)))
	}
	if len(alternatives) == 0 {
		s.logger.InfoContext(ctx, "no alternatives cleared the confidence floor",
			"scheme_id", rejectedID,
			"floor", s.floor,
		)
	}
	return alternatives, nil
}

// candidatePool unions per-category lookups, deduplicated by scheme id with a
// deterministic order.
func (s *Service) candidatePool(ctx context.Context, rejected *models.Scheme) ([]*models.Scheme, error) {
	seen := make(map[id.SchemeID]*models.Scheme)
	for _, category := range rejected.Categories {
		batch, err := s.catalog.SchemesByCategory(ctx, category)
		if err != nil {
			return nil, err
		}
		for _, sc := range batch {
			seen[sc.ID] = sc
		}
	}
	ids := make([]id.SchemeID, 0, len(seen))
	for sid := range seen {
		ids = append(ids, sid)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]*models.Scheme, 0, len(ids))
	for _, sid := range ids {
		out = append(out, seen[sid])
	}
	return out, nil
}

// cacheKey addresses results by profile content and catalog version plus the
// requested scheme set. A catalog version bump invalidates every entry.
func (s *Service) cacheKey(ctx context.Context, profile *Profile, schemes []*models.Scheme) (string, error) {
	version, err := s.catalog.Version(ctx)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write([]byte(profile.CanonicalFields()))
	h.Write([]byte{0})
	h.Write([]byte(version))
	h.Write([]byte{0})
	ids := make([]string, 0, len(schemes))
	for _, sc := range schemes {
		ids = append(ids, sc.ID.String())
	}
	sort.Strings(ids)
	for _, sid := range ids {
		h.Write([]byte(sid))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (s *Service) cacheGet(ctx context.Context, key string) ([]Result, bool) {
	payload, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			s.logger.WarnContext(ctx, "eligibility cache read failed", "error", err)
		}
		if s.metrics != nil {
			s.metrics.CacheMisses.Inc()
		}
		return nil, false
	}
	var results []Result
	if err := json.Unmarshal(payload, &results); err != nil {
		s.logger.WarnContext(ctx, "eligibility cache entry corrupt", "error", err)
		return nil, false
	}
	if s.metrics != nil {
		s.metrics.CacheHits.Inc()
	}
	return results, true
}

func (s *Service) cacheSet(ctx context.Context, key string, results []Result) {
	payload, err := json.Marshal(results)
	if err != nil {
		s.logger.WarnContext(ctx, "eligibility cache encode failed", "error", err)
		return
	}
	if err := s.cache.Set(ctx, key, payload, s.cacheTTL); err != nil {
		s.logger.WarnContext(ctx, "eligibility cache write failed", "error", err)
	}
}

func translateCatalogErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, err.Error())
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "catalog lookup failed")
}
