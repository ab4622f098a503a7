package pii

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

// DetectorObserver receives per-detector timings and failures.
type DetectorObserver interface {
	ObserveDetection(detector string, duration time.Duration, err error)
}

// EnsembleDetector runs several detectors concurrently and concatenates
// their entities. A detector that fails is logged and skipped so one
// unreachable model does not take the whole service down.
type EnsembleDetector struct {
	detectors []Detector
	timeout   time.Duration
	observer  DetectorObserver
}

// NewEnsembleDetector creates an ensemble. A zero timeout means detection
// is bounded only by the caller's context.
func NewEnsembleDetector(timeout time.Duration, detectors ...Detector) *EnsembleDetector {
	return &EnsembleDetector{
		detectors: detectors,
		timeout:   timeout,
	}
}

// SetObserver installs an observer for detector timings.
func (e *EnsembleDetector) SetObserver(o DetectorObserver) {
	e.observer = o
}

// GetName returns the name of this detector
func (e *EnsembleDetector) GetName() string {
	return "ensemble"
}

// Detectors returns the member detectors.
func (e *EnsembleDetector) Detectors() []Detector {
	return e.detectors
}

// SupportedEntities returns the union of labels of the members that can
// list them.
func (e *EnsembleDetector) SupportedEntities() []string {
	seen := make(map[string]bool)
	for _, d := range e.detectors {
		lister, ok := d.(EntityLister)
		if !ok {
			continue
		}
		for _, l := range lister.SupportedEntities() {
			seen[l] = true
		}
	}
	labels := make([]string, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

// Detect processes the input with every member detector
func (e *EnsembleDetector) Detect(ctx context.Context, input DetectorInput) (DetectorOutput, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	results := make([][]Entity, len(e.detectors))
	failures := make([]error, len(e.detectors))

	g, gctx := errgroup.WithContext(ctx)
	for i, d := range e.detectors {
		g.Go(func() error {
			start := time.Now()
			out, err := d.Detect(gctx, input)
			if e.observer != nil {
				e.observer.ObserveDetection(d.GetName(), time.Since(start), err)
			}
			if err != nil {
				failures[i] = err
				return nil
			}
			results[i] = out.Entities
			return nil
		})
	}
	_ = g.Wait()

	// the caller gave up: no partial answer
	if err := ctx.Err(); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return DetectorOutput{}, err
	}

	var entities []Entity
	succeeded := 0
	for i, d := range e.detectors {
		if errors.Is(failures[i], ErrDetectorUnavailable) {
			continue
		}
		if failures[i] != nil {
			log.Printf("[Ensemble] ⚠️  Detector %s failed: %v", d.GetName(), failures[i])
			continue
		}
		succeeded++
		entities = append(entities, results[i]...)
	}

	if succeeded == 0 && len(e.detectors) > 0 {
		return DetectorOutput{}, fmt.Errorf("all %d detectors failed: %w", len(e.detectors), errors.Join(failures...))
	}

	return DetectorOutput{
		Text:     input.Text,
		Entities: entities,
	}, nil
}

// Close closes every member detector
func (e *EnsembleDetector) Close() error {
	var errs []error
	for _, d := range e.detectors {
		if err := d.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.GetName(), err))
		}
	}
	return errors.Join(errs...)
}
