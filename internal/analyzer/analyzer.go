// Package analyzer implements the Analyzer (spec §4.D): it runs the enabled
// detectors over a ToolCallContext, merges their results deterministically,
// and selects the action to report.
package analyzer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/clawsec/core/internal/clock"
	"github.com/clawsec/core/internal/detect"
	"github.com/gowebpki/jcs"
)

// RuleActions maps each category to the action configured for its rule plus
// an optional CEL gate (SPEC_FULL.md §1.2).
type RuleActions struct {
	Action Action
	Gate   *RuleGate
}

// Action re-exports detect.Action so callers of this package don't need to
// import internal/detect just to name an action.
type Action = detect.Action

// CacheBackend optionally backs the Analyzer's fingerprint cache with
// distributed storage (SPEC_FULL.md §1.2) instead of the default in-process
// map, so a fleet of clawsecd instances shares one cache. Get's second
// return reports a hit; errors are treated as a miss (the analyzer always
// has a correct, if slower, fallback: re-running detectors).
type CacheBackend interface {
	Get(ctx context.Context, key string) (detect.AnalysisResult, bool, error)
	Set(ctx context.Context, key string, result detect.AnalysisResult, ttl time.Duration) error
}

// Config wires the Analyzer's dependencies: the enabled detector list (in
// registration order, spec §9 "registered list of implementations"), the
// per-category action/gate table, and whether the engine is globally
// enabled.
type Config struct {
	Enabled     bool
	Detectors   []detect.Detector
	RuleActions map[detect.Category]RuleActions
	CacheTTL    time.Duration
	// Cache, when non-nil, replaces the built-in in-memory cache map with a
	// distributed CacheBackend (e.g. Redis). Optional; defaults to the
	// in-memory map when nil.
	Cache CacheBackend
}

// Analyzer runs detect.Detector implementations and produces one
// detect.AnalysisResult per call.
type Analyzer struct {
	cfg    Config
	clock  clock.Clock
	logger *slog.Logger

	cacheMu sync.Mutex
	cache   map[string]cacheEntry
}

type cacheEntry struct {
	result  detect.AnalysisResult
	expires time.Time
}

func New(cfg Config, c clock.Clock, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		cfg:    cfg,
		clock:  c,
		logger: logger,
		cache:  make(map[string]cacheEntry),
	}
}

// Analyze implements spec §4.D's five steps.
func (a *Analyzer) Analyze(ctx context.Context, tc detect.ToolCallContext) detect.AnalysisResult {
	start := a.clock.Now()

	if !a.cfg.Enabled {
		return detect.NewAnalysisResult(detect.ActionAllow, nil, false, elapsedMs(a.clock, start))
	}

	fingerprint := a.fingerprint(tc)
	if a.cfg.CacheTTL > 0 {
		if cached, ok := a.lookupCache(ctx, fingerprint); ok {
			cached.Cached = true
			return cached
		}
	}

	detections := a.runDetectors(ctx, tc)
	detect.SortByMergeOrder(detections)

	action := a.selectAction(tc, detections)
	result := detect.NewAnalysisResult(action, detections, false, elapsedMs(a.clock, start))

	if a.cfg.CacheTTL > 0 {
		a.storeCache(ctx, fingerprint, result)
	}
	return result
}

// runDetectors fans the enabled detectors out concurrently (they are
// CPU-bound over small inputs; concurrency here is for uniformity with the
// server's multi-request concurrency, not throughput). A detector that
// errors or panics is isolated (DetectorFault, spec §7): it contributes no
// Detection and every other detector still runs.
func (a *Analyzer) runDetectors(ctx context.Context, tc detect.ToolCallContext) []detect.Detection {
	results := make([]*detect.Detection, len(a.cfg.Detectors))
	var wg sync.WaitGroup
	wg.Add(len(a.cfg.Detectors))
	for i, det := range a.cfg.Detectors {
		i, det := i, det
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					a.logger.Error("detector panicked", "detector", det.Name(), "panic", r)
				}
			}()
			d, err := det.Detect(ctx, tc)
			if err != nil {
				a.logger.Error("detector faulted", "detector", det.Name(), "error", err)
				return
			}
			results[i] = d
		}()
	}
	wg.Wait()

	var detections []detect.Detection
	for _, d := range results {
		if d == nil {
			continue
		}
		ra, ok := a.cfg.RuleActions[d.Category]
		if ok && ra.Gate != nil && !ra.Gate.Evaluate(string(d.Category), string(d.Severity), d.Confidence, tc.ToolName) {
			continue
		}
		detections = append(detections, *d)
	}
	return detections
}

// selectAction maps the primary detection's category to its configured rule
// action, per spec §4.D step 4: a website category hit escalates severity
// (already folded into the Detection by the website detector itself) rather
// than the action; an exceededLimit on the purchase detector preserves the
// rule's configured action (no special-casing needed: purchase's rule action
// is already typically block).
func (a *Analyzer) selectAction(tc detect.ToolCallContext, detections []detect.Detection) detect.Action {
	if len(detections) == 0 {
		return detect.ActionAllow
	}
	primary := detections[0]
	ra, ok := a.cfg.RuleActions[primary.Category]
	if !ok {
		return detect.ActionAllow
	}
	return ra.Action
}

func elapsedMs(c clock.Clock, start time.Time) float64 {
	return float64(c.Now().Sub(start).Microseconds()) / 1000.0
}

// fingerprint computes toolName + a JCS-canonicalized hash of toolInput
// (SPEC_FULL.md §1.2, adapted from the teacher's canonicalize package) so
// semantically identical requests with differently-ordered map keys share a
// cache entry.
func (a *Analyzer) fingerprint(tc detect.ToolCallContext) string {
	raw, err := json.Marshal(tc.ToolInput)
	if err != nil {
		return tc.ToolName
	}
	canon, err := jcs.Transform(raw)
	if err != nil {
		canon = raw
	}
	sum := sha256.Sum256(canon)
	return tc.ToolName + ":" + hex.EncodeToString(sum[:])
}

func (a *Analyzer) lookupCache(ctx context.Context, fingerprint string) (detect.AnalysisResult, bool) {
	if a.cfg.Cache != nil {
		result, ok, err := a.cfg.Cache.Get(ctx, fingerprint)
		if err != nil {
			a.logger.Error("cache backend get failed", "error", err)
			return detect.AnalysisResult{}, false
		}
		return result, ok
	}
	a.cacheMu.Lock()
	defer a.cacheMu.Unlock()
	entry, ok := a.cache[fingerprint]
	if !ok || a.clock.Now().After(entry.expires) {
		return detect.AnalysisResult{}, false
	}
	return entry.result, true
}

func (a *Analyzer) storeCache(ctx context.Context, fingerprint string, result detect.AnalysisResult) {
	if a.cfg.Cache != nil {
		if err := a.cfg.Cache.Set(ctx, fingerprint, result, a.cfg.CacheTTL); err != nil {
			a.logger.Error("cache backend set failed", "error", err)
		}
		return
	}
	a.cacheMu.Lock()
	defer a.cacheMu.Unlock()
	a.cache[fingerprint] = cacheEntry{result: result, expires: a.clock.Now().Add(a.cfg.CacheTTL)}
}
