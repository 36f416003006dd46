package classify

import (
	"context"
	"hash/fnv"
	"image"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Fused combines the template matcher with an optional learned model behind
// one decision rule:
//
//   - a template score at or above the match threshold is decisive;
//   - a score inside the ambiguous band [floor, threshold) consults the
//     model, whose verdict wins when it is confident and agrees with the
//     template leaning;
//   - everything else is Unknown.
//
// Identical frames within the cache TTL reuse the previous verdict instead
// of re-running correlation and inference.
type Fused struct {
	template       *TemplateMatcher
	model          ActiveScorer
	matchThreshold float64
	ambiguousFloor float64
	modelThreshold float64
	cache          *expirable.LRU[uint64, Result]
	logger         *slog.Logger
}

// FusedOptions configures the fused decision rule and its cache.
type FusedOptions struct {
	MatchThreshold float64
	AmbiguousFloor float64
	ModelThreshold float64
	CacheSize      int
	CacheTTL       time.Duration
}

// NewFused builds the fused classifier. model may be nil, in which case
// ambiguous frames classify as Unknown without a second opinion.
func NewFused(template *TemplateMatcher, model ActiveScorer, opts FusedOptions, logger *slog.Logger) *Fused {
	var cache *expirable.LRU[uint64, Result]
	if opts.CacheSize > 0 && opts.CacheTTL > 0 {
		cache = expirable.NewLRU[uint64, Result](opts.CacheSize, nil, opts.CacheTTL)
	}
	return &Fused{
		template:       template,
		model:          model,
		matchThreshold: opts.MatchThreshold,
		ambiguousFloor: opts.AmbiguousFloor,
		modelThreshold: opts.ModelThreshold,
		cache:          cache,
		logger:         logger,
	}
}

// Classify applies the fused decision rule to one frame.
func (f *Fused) Classify(ctx context.Context, frame *image.RGBA) (Result, error) {
	now := time.Now()
	var key uint64
	if f.cache != nil {
		key = hashFrame(frame)
		if cached, ok := f.cache.Get(key); ok {
			return Result{State: cached.State, Confidence: cached.Confidence, At: now}, nil
		}
	}

	res, err := f.decide(ctx, frame, now)
	if err != nil {
		return res, err
	}
	if f.cache != nil {
		f.cache.Add(key, res)
	}
	return res, nil
}

func (f *Fused) decide(ctx context.Context, frame *image.RGBA, now time.Time) (Result, error) {
	leaning, score := f.template.Match(frame)
	if score >= f.matchThreshold {
		return Result{State: leaning, Confidence: score, At: now}, nil
	}
	if score < f.ambiguousFloor || f.model == nil {
		return Result{State: StateUnknown, Confidence: score, At: now}, nil
	}

	p, err := f.model.PredictActive(ctx, frame)
	if err != nil {
		// Transient inference failure: report it, classify Unknown.
		return Result{State: StateUnknown, Confidence: score, At: now}, err
	}
	verdict, conf := StateActive, p
	if p < 0.5 {
		verdict, conf = StateInactive, 1-p
	}
	if conf < f.modelThreshold || verdict != leaning {
		if f.logger != nil {
			f.logger.Debug("ambiguous frame unresolved", "template", leaning.String(), "score", score, "model", verdict.String(), "model_confidence", conf)
		}
		return Result{State: StateUnknown, Confidence: score, At: now}, nil
	}
	return Result{State: verdict, Confidence: conf, At: now}, nil
}

// hashFrame fingerprints the frame pixels for the result cache.
func hashFrame(frame *image.RGBA) uint64 {
	h := fnv.New64a()
	w4 := frame.Bounds().Dx() * 4
	rows := frame.Bounds().Dy()
	for y := 0; y < rows; y++ {
		_, _ = h.Write(frame.Pix[y*frame.Stride : y*frame.Stride+w4])
	}
	return h.Sum64()
}

var _ Classifier = (*Fused)(nil)
