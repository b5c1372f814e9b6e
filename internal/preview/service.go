// Package preview sequences a guideline preview: it normalizes the request,
// resolves the guideline version, evaluates and combines the applicable rules
// and attaches the anthropometry and RIR enrichments to the debug trace.
package preview

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"trainrx/internal/engine"
	"trainrx/internal/logging"
	"trainrx/internal/normalize"
	"trainrx/internal/types"
)

// RuleRepository supplies guideline versions and their rules, already ordered
// by priority and creation time.
type RuleRepository interface {
	ResolveVersion(ctx context.Context, tenant, id string) (types.Version, error)
	ListRules(ctx context.Context, tenant, versionID string) ([]types.Rule, error)
}

// AnthropometryCalculator computes the body-composition snapshot.
type AnthropometryCalculator interface {
	Calculate(ctx context.Context, req types.AnthroRequest, subject *types.Subject) (interface{}, error)
}

// RIRCalculator computes the repetitions-in-reserve reference.
type RIRCalculator interface {
	Calculate(ctx context.Context, in types.RIRInput) (interface{}, error)
}

// Warning sources.
const (
	SourceAnthropometry = "anthropometry"
	SourceRIR           = "rir"
)

// errNoCalculator is downgraded to a warning like any calculator failure.
var errNoCalculator = errors.New("no calculator configured")

// Service runs previews. It holds no per-request state and is safe for
// concurrent use.
type Service struct {
	normalizer *normalize.Normalizer
	repo       RuleRepository
	anthro     AnthropometryCalculator
	rir        RIRCalculator
	resolver   *engine.AerobicResolver
	now        func() time.Time
	newID      func() string
}

// Option configures a Service.
type Option func(*Service)

// WithAnthropometry sets the anthropometry calculator.
func WithAnthropometry(c AnthropometryCalculator) Option {
	return func(s *Service) { s.anthro = c }
}

// WithRIR sets the RIR calculator.
func WithRIR(c RIRCalculator) Option {
	return func(s *Service) { s.rir = c }
}

// WithNormalizer replaces the default normalizer (FCR default method).
func WithNormalizer(n *normalize.Normalizer) Option {
	return func(s *Service) { s.normalizer = n }
}

// WithAerobicResolver replaces the default resolver (beta-blocker caution only).
func WithAerobicResolver(r *engine.AerobicResolver) Option {
	return func(s *Service) { s.resolver = r }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides request ID generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

// NewService returns a Service reading rules from repo.
func NewService(repo RuleRepository, opts ...Option) *Service {
	s := &Service{
		normalizer: normalize.New(types.MethodFCR),
		repo:       repo,
		resolver:   engine.NewAerobicResolver(nil),
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	logging.Preview("preview service ready: anthropometry=%t rir=%t", s.anthro != nil, s.rir != nil)
	return s
}

// Normalize validates a raw JSON payload with the service's normalizer.
func (s *Service) Normalize(raw []byte) (*types.Request, error) {
	return s.normalizer.Normalize(raw)
}

// NormalizeYAML validates a YAML request document.
func (s *Service) NormalizeYAML(raw []byte) (*types.Request, error) {
	return s.normalizer.NormalizeYAML(raw)
}

// Preview normalizes raw and runs PreviewRequest.
func (s *Service) Preview(ctx context.Context, tenant, versionID string, raw []byte) (*types.Preview, error) {
	req, err := s.normalizer.Normalize(raw)
	if err != nil {
		logging.PreviewDebug("request for %s/%s rejected: %v", tenant, versionID, err)
		return nil, err
	}
	return s.PreviewRequest(ctx, tenant, versionID, req)
}

// enrichment holds the fixed result slots filled concurrently.
type enrichment struct {
	rules       []types.Rule
	anthro      interface{}
	anthroWarn  error
	rirRef      interface{}
	rirWarn     error
	hasRIRInput bool
}

// PreviewRequest runs a preview for an already normalized request.
// Errors are *types.NotFoundError or *types.InternalError.
func (s *Service) PreviewRequest(ctx context.Context, tenant, versionID string, req *types.Request) (*types.Preview, error) {
	start := s.now()
	requestID := s.newID()
	log := logging.Get(logging.CategoryPreview).WithContext(map[string]interface{}{
		"request_id": requestID,
		"tenant":     tenant,
		"version":    versionID,
	})
	log.Debug("request: %s", normalize.Describe(req))

	version, err := s.repo.ResolveVersion(ctx, tenant, versionID)
	if err != nil {
		var nf *types.NotFoundError
		if errors.As(err, &nf) {
			return nil, err
		}
		return nil, s.internal(log, "resolve version", err)
	}

	res, err := s.gather(ctx, tenant, version.ID, req)
	if err != nil {
		return nil, s.internal(log, "list rules", err)
	}

	if len(res.rules) == 0 {
		// An empty version short-circuits: no method defaults, no cautions and
		// no enrichments, only the warning.
		trace := types.EmptyTrace()
		trace.Warnings = []string{"no rules found for guideline version " + version.ID}
		log.Info("preview: version %s has no rules", version.ID)
		return s.finish(start, requestID, version.ID, req, types.EmptyGuideline(), trace), nil
	}

	applicable := engine.Select(res.rules, req.Facts)
	guideline := engine.Combine(engine.Fragments(applicable))
	// The trace records what the rules contributed, before method defaults
	// and medication cautions are filled in.
	trace := engine.BuildTrace(applicable, guideline)
	s.resolver.Resolve(&guideline, req.AerobicMethod, req.Facts)

	var warnings []string
	if res.anthroWarn != nil {
		warnings = append(warnings, res.anthroWarn.Error())
	}
	if res.rirWarn != nil {
		warnings = append(warnings, res.rirWarn.Error())
	}
	trace.Warnings = append(warnings, trace.Warnings...)
	if trace.Warnings == nil {
		trace.Warnings = []string{}
	}

	trace.AnthroSnapshot = res.anthro
	if res.hasRIRInput && res.rirWarn == nil {
		trace.RIRRefs = []interface{}{res.rirRef}
	}

	log.Info("preview: %d of %d rules applied, %d warnings", len(applicable), len(res.rules), len(trace.Warnings))
	return s.finish(start, requestID, version.ID, req, guideline, trace), nil
}

func (s *Service) finish(start time.Time, requestID, versionID string, req *types.Request, g types.Guideline, trace types.Trace) *types.Preview {
	finished := s.now()
	return &types.Preview{
		Guideline:   g,
		Debug:       trace,
		GeneratedAt: finished.UTC(),
		Meta: types.Meta{
			RequestID: requestID,
			VersionID: versionID,
			ElapsedMS: finished.Sub(start).Milliseconds(),
			Readiness: req.Readiness,
		},
	}
}

// gather lists the rules and runs the calculators concurrently. Only a
// repository failure is returned; calculator failures land in the warning slots.
func (s *Service) gather(ctx context.Context, tenant, versionID string, req *types.Request) (*enrichment, error) {
	res := &enrichment{hasRIRInput: req.RIR != nil}
	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		rules, err := s.repo.ListRules(egCtx, tenant, versionID)
		if err != nil {
			return err
		}
		res.rules = rules
		return nil
	})

	if req.Anthro != nil {
		eg.Go(func() error {
			if s.anthro == nil {
				res.anthroWarn = &types.ComputationWarning{Source: SourceAnthropometry, Err: errNoCalculator}
				return nil
			}
			snapshot, err := s.anthro.Calculate(egCtx, *req.Anthro, req.Subject)
			if err != nil {
				res.anthroWarn = &types.ComputationWarning{Source: SourceAnthropometry, Err: err}
				return nil
			}
			res.anthro = snapshot
			return nil
		})
	}

	if req.RIR != nil {
		eg.Go(func() error {
			if s.rir == nil {
				res.rirWarn = &types.ComputationWarning{Source: SourceRIR, Err: errNoCalculator}
				return nil
			}
			ref, err := s.rir.Calculate(egCtx, *req.RIR)
			if err != nil {
				res.rirWarn = &types.ComputationWarning{Source: SourceRIR, Err: err}
				return nil
			}
			res.rirRef = ref
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Service) internal(log *logging.Logger, op string, err error) error {
	ierr := &types.InternalError{Op: op, Err: err}
	log.Error("preview failed: %s", ierr.Cause())
	return ierr
}
