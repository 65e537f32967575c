// Package orchestrator implements the Analysis Orchestrator (C8): the
// per-request driver that normalizes the input, fans the feature
// extraction, network probe, and domain reputation stages out
// concurrently, runs the model stage once its input is ready, folds
// everything into a verdict, and enforces an overall wall-clock budget
// independent of any single stage's own timeout. Grounded on the
// reference service's analyzer/threat_analyzer.go (per-category circuit
// breakers, AnalysisCache, weighted component fan-out) restructured
// around sourcegraph/conc's structured concurrency instead of manual
// goroutine/channel bookkeeping.
package orchestrator

import (
	"context"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/cyberzilla/urlsentinel/internal/cache"
	"github.com/cyberzilla/urlsentinel/internal/features"
	"github.com/cyberzilla/urlsentinel/internal/metrics"
	"github.com/cyberzilla/urlsentinel/internal/mlpredictor"
	"github.com/cyberzilla/urlsentinel/internal/models"
	"github.com/cyberzilla/urlsentinel/internal/netprobe"
	"github.com/cyberzilla/urlsentinel/internal/normalize"
	"github.com/cyberzilla/urlsentinel/internal/reputation"
	"github.com/cyberzilla/urlsentinel/internal/riskfactors"
	"github.com/cyberzilla/urlsentinel/internal/verdict"
	"github.com/cyberzilla/urlsentinel/pkg/trace"
)

// Config tunes the orchestrator's own behavior, separate from the
// per-stage budgets each component already owns.
type Config struct {
	OverallBudget       time.Duration
	WhoisEnabled        bool
	CircuitMaxFailures  int
	CircuitResetTimeout time.Duration
}

// DefaultConfig mirrors section 6's orchestrator-level defaults.
func DefaultConfig() Config {
	return Config{
		OverallBudget:       8 * time.Second,
		WhoisEnabled:        false,
		CircuitMaxFailures:  5,
		CircuitResetTimeout: 30 * time.Second,
	}
}

// Orchestrator wires every pipeline component together behind a single
// Scan entry point. One instance is shared across all requests.
type Orchestrator struct {
	cfg        Config
	normalizer *normalize.Normalizer
	prober     *netprobe.Prober
	reputation *reputation.Table
	model      *mlpredictor.Model
	cache      cache.Store
	metrics    *metrics.Registry
	breakers   map[string]*CircuitBreaker
}

// New assembles an Orchestrator from its already-constructed components.
// store and reg may be nil, in which case caching and instrumentation are
// skipped entirely.
func New(cfg Config, normalizer *normalize.Normalizer, prober *netprobe.Prober, repTable *reputation.Table, model *mlpredictor.Model, store cache.Store, reg *metrics.Registry) *Orchestrator {
	breakers := map[string]*CircuitBreaker{
		"dns":   NewCircuitBreaker(cfg.CircuitMaxFailures, cfg.CircuitResetTimeout),
		"whois": NewCircuitBreaker(cfg.CircuitMaxFailures, cfg.CircuitResetTimeout),
		"ssl":   NewCircuitBreaker(cfg.CircuitMaxFailures, cfg.CircuitResetTimeout),
		"http":  NewCircuitBreaker(cfg.CircuitMaxFailures, cfg.CircuitResetTimeout),
	}
	return &Orchestrator{
		cfg:        cfg,
		normalizer: normalizer,
		prober:     prober,
		reputation: repTable,
		model:      model,
		cache:      store,
		metrics:    reg,
		breakers:   breakers,
	}
}

// Scan runs the full pipeline for one raw URL. A non-nil error means the
// input itself could not be processed (malformed URL, unsupported scheme);
// every other failure mode degrades gracefully into a partial ScanResult.
func (o *Orchestrator) Scan(ctx context.Context, rawURL string) (models.ScanResult, error) {
	normalized, err := o.normalizer.Normalize(rawURL)
	if err != nil {
		return models.ScanResult{}, err
	}

	cacheKey := normalized.String()
	if o.cache != nil {
		if cached, ok := o.cache.Get(ctx, cacheKey); ok {
			if o.metrics != nil {
				o.metrics.CacheHits.Inc()
			}
			return cached, nil
		}
		if o.metrics != nil {
			o.metrics.CacheMisses.Inc()
		}
	}

	start := time.Now()
	reqCtx, cancel := context.WithTimeout(ctx, o.cfg.OverallBudget)
	defer cancel()

	var fv models.FeatureVector
	var obs models.NetworkObservation
	var domain models.DomainTrust

	scanSpan := trace.StartSpan("pipeline.scan")
	scanSpan.SetTag("host", normalized.Host)
	defer scanSpan.End()

	var wg conc.WaitGroup
	wg.Go(func() {
		span := trace.StartSpan("pipeline.features")
		defer span.End()
		fv = features.Extract(normalized)
	})
	wg.Go(func() {
		span := trace.StartSpan("pipeline.probe")
		defer span.End()
		obs = o.probeWithBreaker(reqCtx, normalized)
	})
	wg.Go(func() {
		span := trace.StartSpan("pipeline.reputation")
		defer span.End()
		domain = o.reputationWithBreaker(reqCtx, normalized.Host, normalized.RegisteredDomain)
	})
	wg.Wait()

	o.recordCircuitGauges()

	select {
	case <-reqCtx.Done():
		result := verdict.TimedOut()
		ms := time.Since(start).Milliseconds()
		result.AnalysisMS = &ms
		o.finish(ctx, cacheKey, result, start, false)
		return result, nil
	default:
	}

	ml, err := o.model.Predict(reqCtx, fv)
	if err != nil {
		ml = models.MLDetails{ModelAvailable: false}
	}

	factors := riskfactors.Evaluate(riskfactors.Input{URL: normalized, Network: obs, Domain: domain, ML: ml})
	result := verdict.Compose(normalized, ml, domain, obs, factors)
	if !ml.ModelAvailable {
		result.Message = "ML unavailable"
	}
	ms := time.Since(start).Milliseconds()
	result.AnalysisMS = &ms

	o.finish(ctx, cacheKey, result, start, true)
	return result, nil
}

// finish records metrics for a completed scan and, when cacheable is true,
// stores the result; timed-out results are never cached.
func (o *Orchestrator) finish(ctx context.Context, cacheKey string, result models.ScanResult, start time.Time, cacheable bool) {
	if cacheable && o.cache != nil {
		o.cache.Set(ctx, cacheKey, result)
	}
	if o.metrics != nil {
		o.metrics.RequestsTotal.WithLabelValues(string(result.Status)).Inc()
		o.metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
	}
}

func (o *Orchestrator) probeWithBreaker(ctx context.Context, n models.NormalizedURL) models.NetworkObservation {
	if !o.breakers["dns"].Allow() && !o.breakers["http"].Allow() {
		return models.NetworkObservation{}
	}

	obs := o.prober.Probe(ctx, n)

	if obs.DNSResolved != nil {
		if *obs.DNSResolved {
			o.breakers["dns"].RecordSuccess()
		} else {
			o.breakers["dns"].RecordFailure()
		}
	}
	if n.Scheme == "https" {
		if obs.SSLValid != nil && *obs.SSLValid {
			o.breakers["ssl"].RecordSuccess()
		} else if obs.SSLValid != nil {
			o.breakers["ssl"].RecordFailure()
		}
	}
	if obs.HTTPStatus != nil {
		o.breakers["http"].RecordSuccess()
	} else {
		o.breakers["http"].RecordFailure()
	}

	return obs
}

func (o *Orchestrator) reputationWithBreaker(ctx context.Context, host, registeredDomain string) models.DomainTrust {
	lookupCtx := ctx
	if !o.breakers["whois"].Allow() {
		cancelledCtx, cancel := context.WithCancel(ctx)
		cancel()
		lookupCtx = cancelledCtx
	}

	dt := o.reputation.Lookup(lookupCtx, host, registeredDomain)

	if dt.AgeDays != nil {
		o.breakers["whois"].RecordSuccess()
	} else if o.cfg.WhoisEnabled && dt.ReputationTier == models.TierUnknown {
		o.breakers["whois"].RecordFailure()
	}

	return dt
}

func (o *Orchestrator) recordCircuitGauges() {
	if o.metrics == nil {
		return
	}
	for category, b := range o.breakers {
		o.metrics.CircuitState.WithLabelValues(category).Set(b.StateCode())
	}
}
