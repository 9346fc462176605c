// Package pipeline runs the two-stage camera-trap identification:
//
//	START -> STAGE1 -> STAGE1_REJECTED -> DONE
//	               \-> STAGE2 ---------> DONE
//
// Stage 1 screens the image for an animal and usable quality. Stage 2 names
// the species with Stage 1's findings in its prompt, then the result is
// resolved against the taxonomy and calibrated. A Pipeline holds no
// per-request state and is safe for concurrent use.
package pipeline

import (
	"context"
	"time"

	"github.com/tphakala/trapcam/internal/calibrate"
	"github.com/tphakala/trapcam/internal/errors"
	"github.com/tphakala/trapcam/internal/extract"
	"github.com/tphakala/trapcam/internal/imaging"
	"github.com/tphakala/trapcam/internal/logger"
	"github.com/tphakala/trapcam/internal/observability/metrics"
	"github.com/tphakala/trapcam/internal/prompt"
	"github.com/tphakala/trapcam/internal/resolver"
	"github.com/tphakala/trapcam/internal/schema"
	"github.com/tphakala/trapcam/internal/taxonomy"
)

// Invoker is the model gateway as seen by the pipeline
type Invoker interface {
	Invoke(ctx context.Context, prompt string, image imaging.Payload) (string, error)
	Name() string
}

// State is a step of the per-request state machine
type State string

const (
	StateStart          State = "START"
	StateStage1         State = "STAGE1"
	StateStage1Rejected State = "STAGE1_REJECTED"
	StateStage2         State = "STAGE2"
	StateDone           State = "DONE"
)

// Request is one identification. Image is a data-URL or bare base64 string.
type Request struct {
	Image   string
	Station string
}

// Config tunes a Pipeline
type Config struct {
	Normalizer imaging.Normalizer
	Policy     calibrate.Policy
	// CacheTTL enables the result cache when positive
	CacheTTL time.Duration
}

// Pipeline wires the identification components together
type Pipeline struct {
	registry   *taxonomy.Registry
	stations   *taxonomy.Stations
	normalizer imaging.Normalizer
	prompts    *prompt.Builder
	gateway    Invoker
	resolver   *resolver.Resolver
	calibrator *calibrate.Calibrator
	cache      *resultCache
	metrics    *metrics.PipelineMetrics
}

// New builds a Pipeline. stations and m may be nil.
func New(registry *taxonomy.Registry, stations *taxonomy.Stations, gateway Invoker, cfg Config, m *metrics.PipelineMetrics) *Pipeline {
	p := &Pipeline{
		registry:   registry,
		stations:   stations,
		normalizer: cfg.Normalizer,
		prompts:    prompt.NewBuilder(registry),
		gateway:    gateway,
		resolver:   resolver.New(registry),
		calibrator: calibrate.New(cfg.Policy),
		metrics:    m,
	}
	if cfg.CacheTTL > 0 {
		p.cache = newResultCache(cfg.CacheTTL)
	}
	return p
}

// Model returns the name of the backend behind the gateway
func (p *Pipeline) Model() string {
	return p.gateway.Name()
}

// Registry returns the taxonomy the pipeline resolves against
func (p *Pipeline) Registry() *taxonomy.Registry {
	return p.registry
}

// Stations returns the known camera stations, possibly nil
func (p *Pipeline) Stations() *taxonomy.Stations {
	return p.stations
}

// Identify runs the full pipeline for req. Errors are EnhancedErrors in the
// validation, configuration or upstream categories; everything else degrades
// to a result flagged for review.
func (p *Pipeline) Identify(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	done := p.metrics.TrackInFlight()
	defer done()

	run := &run{p: p, state: StateStart, log: GetLogger().WithContext(ctx)}

	payload, err := p.normalizer.Normalize(req.Image)
	if err != nil {
		p.metrics.RecordRequest(metrics.OutcomeError, time.Since(start).Seconds())
		return nil, err
	}

	res, err := run.execute(ctx, payload, req.Station)
	p.finish(res, err, start)
	return res, err
}

// IdentifyPayload runs the pipeline for an already decoded image
func (p *Pipeline) IdentifyPayload(ctx context.Context, payload imaging.Payload, station string) (*Result, error) {
	start := time.Now()
	done := p.metrics.TrackInFlight()
	defer done()

	run := &run{p: p, state: StateStart, log: GetLogger().WithContext(ctx)}
	res, err := run.execute(ctx, payload, station)
	p.finish(res, err, start)
	return res, err
}

func (p *Pipeline) finish(res *Result, err error, start time.Time) {
	elapsed := time.Since(start)
	if err != nil {
		p.metrics.RecordRequest(metrics.OutcomeError, elapsed.Seconds())
		return
	}
	res.Duration = elapsed

	outcome := metrics.OutcomeIdentified
	switch res.Outcome {
	case OutcomeNoAnimal, OutcomeRejected:
		outcome = metrics.OutcomeRejected
	case OutcomeReview:
		outcome = metrics.OutcomeReview
	}
	p.metrics.RecordRequest(outcome, elapsed.Seconds())
	if res.NeedsReview {
		p.metrics.RecordReview(string(res.Stage1.ImageType))
	}
}

// run carries the state of one request through the machine
type run struct {
	p     *Pipeline
	state State
	log   logger.Logger
}

func (r *run) transition(to State, fields ...logger.Field) {
	r.log.Debug("pipeline transition",
		append([]logger.Field{logger.String("from", string(r.state)), logger.String("to", string(to))}, fields...)...)
	r.state = to
}

func (r *run) execute(ctx context.Context, payload imaging.Payload, stationID string) (*Result, error) {
	p := r.p
	p.metrics.ObserveImageSize(payload.Size())

	station, err := p.lookupStation(stationID)
	if err != nil {
		return nil, err
	}

	key := cacheKey(payload.Digest, p.gateway.Name())
	if p.cache != nil {
		if cached, ok := p.cache.get(key); ok {
			p.metrics.RecordCache(true)
			r.log.Debug("result served from cache", logger.String("digest", payload.Digest))
			return cached.withStation(station), nil
		}
		p.metrics.RecordCache(false)
	}

	r.transition(StateStage1, logger.Int("image_bytes", payload.Size()), logger.String("mime", payload.MIMEType))
	s1, parsed, err := r.stage1(ctx, payload)
	if err != nil {
		return nil, err
	}

	var res *Result
	partial := false
	switch {
	case !parsed:
		r.transition(StateStage1Rejected, logger.String("reason", ReasonStage1Unparseable))
		res = rejectedResult(s1, ReasonStage1Unparseable)
		res.Outcome = OutcomeReview
		partial = true
	case !s1.AnimalPresent:
		r.transition(StateStage1Rejected, logger.String("reason", ReasonNoAnimal))
		res = noAnimalResult(s1)
	case !s1.ProceedToIdentification:
		r.transition(StateStage1Rejected, logger.String("reason", s1.RejectionReason))
		res = rejectedResult(s1, s1.RejectionReason)
	default:
		r.transition(StateStage2, logger.String("image_type", string(s1.ImageType)), logger.Int("animal_count", s1.AnimalCount))
		res, partial, err = r.stage2(ctx, payload, s1)
		if err != nil {
			return nil, err
		}
	}

	res.Model = p.gateway.Name()
	r.transition(StateDone,
		logger.String("outcome", string(res.Outcome)),
		logger.String("species", res.SpeciesID()),
		logger.Float64("confidence", res.Confidence),
		logger.Bool("needs_review", res.NeedsReview))

	if p.cache != nil && !partial {
		p.cache.set(key, res)
	}
	return res.withStation(station), nil
}

// stage1 returns the assessment and whether the model output held any JSON
func (r *run) stage1(ctx context.Context, payload imaging.Payload) (schema.StageOne, bool, error) {
	p := r.p
	text, err := p.invoke(ctx, metrics.StageStage1, payload, p.prompts.Stage1)
	if err != nil {
		return schema.StageOne{}, false, err
	}

	obj, strategy := extract.ExtractWithStrategy(text)
	p.metrics.RecordExtraction(metrics.StageStage1, string(strategy))
	if obj == nil {
		r.log.Warn("stage 1 response held no JSON, continuing with defaults",
			logger.Int("response_length", len(text)))
	}
	return schema.NormalizeStage1(obj), obj != nil, nil
}

// stage2 returns the assembled result and whether it is a partial failure that
// must not be cached
func (r *run) stage2(ctx context.Context, payload imaging.Payload, s1 schema.StageOne) (*Result, bool, error) {
	p := r.p
	text, err := p.invoke(ctx, metrics.StageStage2, payload, func() (string, error) {
		return p.prompts.Stage2(s1)
	})
	if err != nil {
		return nil, false, err
	}

	obj, strategy := extract.ExtractWithStrategy(text)
	p.metrics.RecordExtraction(metrics.StageStage2, string(strategy))

	s2 := schema.NormalizeStage2(obj)
	partial := obj == nil
	if partial {
		r.log.Warn("stage 2 response held no JSON", logger.Int("response_length", len(text)))
		s2.FlagReview(ReasonStage2Unparseable)
	} else if s2.SpeciesID == nil {
		s2.FlagReview(ReasonNoSpeciesSuggested)
	}

	s2 = p.resolver.Resolve(s2)
	s2 = p.calibrator.Apply(s2, s1)
	p.metrics.ObserveConfidence(s2.Confidence)

	return identificationResult(s1, s2, p.registry), partial, nil
}

// invoke renders a prompt and calls the gateway, timing the stage
func (p *Pipeline) invoke(ctx context.Context, stage string, payload imaging.Payload, render func() (string, error)) (string, error) {
	text, err := render()
	if err != nil {
		return "", err
	}

	start := time.Now()
	out, err := p.gateway.Invoke(ctx, text, payload)
	p.metrics.ObserveStage(stage, time.Since(start).Seconds())
	if err != nil {
		GetLogger().WithContext(ctx).Error("model call failed",
			logger.String("stage", stage),
			logger.Error(err))
		return "", err
	}
	return out, nil
}

// lookupStation validates an optional station id
func (p *Pipeline) lookupStation(id string) (*taxonomy.Station, error) {
	if id == "" {
		return nil, nil
	}
	if p.stations != nil {
		if st, ok := p.stations.Station(id); ok {
			return &st, nil
		}
	}
	return nil, errors.Newf("unknown camera station %q", id).
		Component("pipeline").
		Category(errors.CategoryValidation).
		Priority(errors.PriorityLow).
		Context("station", id).
		Build()
}

// withStation returns a shallow copy carrying the request's station. Cached
// results are shared, so they are never modified in place.
func (r *Result) withStation(st *taxonomy.Station) *Result {
	out := *r
	out.Station = st
	return &out
}

// GetLogger returns the pipeline module logger
func GetLogger() logger.Logger {
	return logger.Global().Module("pipeline")
}
