// File: internal/analyzer/analyzer.go
// Brief: Runs all registered detectors over a repository and merges findings.

// Package analyzer coordinates the per-ecosystem detectors. Detectors run
// concurrently, but merge order follows registration order so output is
// deterministic regardless of scheduling.
package analyzer

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/autopipe/internal/detect"
	"github.com/example/autopipe/internal/model"
)

// Options controls a repository analysis pass.
type Options struct {
	// Recursive walks subdirectories looking for nested projects. When false
	// only the root directory itself is probed.
	Recursive bool
}

// Analyzer fans a repository out to its registered detectors. The zero value
// is unusable; construct with New.
type Analyzer struct {
	detectors []detect.Detector
	log       *zap.Logger
}

// New returns an analyzer with the standard detector set registered in
// priority order. The order matters: it decides output order for directories
// claimed by more than one ecosystem.
func New(log *zap.Logger) *Analyzer {
	return NewWithPolicy(log, detect.DefaultScanPolicy())
}

// NewWithPolicy is New with an explicit scan policy for the detectors.
func NewWithPolicy(log *zap.Logger, policy detect.ScanPolicy) *Analyzer {
	if log == nil {
		log = zap.NewNop()
	}
	a := &Analyzer{log: log}
	a.Register(
		detect.NewJavaDetector(policy),
		detect.NewPythonDetector(policy),
		detect.NewNodeDetector(policy),
		detect.NewGoDetector(policy),
		detect.NewDotNetDetector(policy),
		detect.NewPHPDetector(policy),
	)
	return a
}

// Register appends detectors. Later registrations sort after earlier ones in
// the merged output.
func (a *Analyzer) Register(detectors ...detect.Detector) {
	a.detectors = append(a.detectors, detectors...)
}

// Analyze probes rootPath with every detector and returns the merged,
// deduplicated findings. A detector that fails is logged and skipped; the
// analysis only fails when the root itself is unusable.
func (a *Analyzer) Analyze(ctx context.Context, rootPath string, opts Options) ([]*model.DetectedStack, error) {
	info, err := os.Stat(rootPath)
	if err != nil {
		return nil, errors.Wrapf(err, "analyze %s", rootPath)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("analyze %s: not a directory", rootPath)
	}

	results := make([][]*model.DetectedStack, len(a.detectors))
	g, ctx := errgroup.WithContext(ctx)
	for i, d := range a.detectors {
		i, d := i, d
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			stacks, err := a.runDetector(d, rootPath, opts)
			if err != nil {
				a.log.Warn("detector failed",
					zap.String("detector", d.Name()),
					zap.String("path", rootPath),
					zap.Error(err))
				return nil
			}
			results[i] = stacks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Merge in registration order, dropping duplicate (language, root) pairs.
	seen := make(map[string]struct{})
	var merged []*model.DetectedStack
	for _, stacks := range results {
		for _, s := range stacks {
			key := s.DedupKey()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, s)
		}
	}

	a.log.Debug("analysis complete",
		zap.String("path", rootPath),
		zap.Int("stacks", len(merged)))
	return merged, nil
}

func (a *Analyzer) runDetector(d detect.Detector, rootPath string, opts Options) ([]*model.DetectedStack, error) {
	if !opts.Recursive {
		stack, err := d.Detect(rootPath)
		if err != nil || stack == nil {
			return nil, err
		}
		return []*model.DetectedStack{stack}, nil
	}
	return d.DetectAll(rootPath)
}

// AnalyzePath is the single-directory convenience used by callers that have
// already located a project root: it probes only that directory and returns
// the first detector's finding, or nil when nothing matches.
func (a *Analyzer) AnalyzePath(ctx context.Context, dir string) (*model.DetectedStack, error) {
	stacks, err := a.Analyze(ctx, dir, Options{Recursive: false})
	if err != nil {
		return nil, err
	}
	if len(stacks) == 0 {
		return nil, nil
	}
	return stacks[0], nil
}
