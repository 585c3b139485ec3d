// Package quality is the C11 Quality Reporter: an offline, read-only
// report over each enabled learner's checkpoint file stats and live
// counters (spec §4.11). It accepts only the learner.MetricsSource
// capability, never the full learner.Learner interface, so "MUST NOT
// mutate state" and "MUST NOT trigger saves" are compile-time properties
// of what this package can even hold, not documented promises.
package quality

import (
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"chessai/learner"
	"chessai/selfplay"
)

// LearnerReport is one learner kind's entry in a QualityReport.
type LearnerReport struct {
	Kind                string
	Metrics             map[string]float64
	CheckpointExists    bool
	CheckpointSizeBytes int64
	CheckpointModTime   time.Time
	Score               float64
}

// QualityReport is the C11 output: one entry per enabled learner plus the
// supplemented opening-book diversity metric.
type QualityReport struct {
	GeneratedAt         time.Time
	Learners            []LearnerReport
	BookSeededFraction  float64
	BookSeededEpisodes  uint64
	RandomStartEpisodes uint64
}

// Reporter reads checkpoint file stats from stateDir and each learner's
// live Metrics() snapshot. It never calls SaveSnapshot.
type Reporter struct {
	stateDir string
}

// NewReporter constructs a Reporter rooted at stateDir (the same directory
// the Checkpoint Manager writes `<kind>.state` files into).
func NewReporter(stateDir string) *Reporter {
	return &Reporter{stateDir: stateDir}
}

func (r *Reporter) pathForKind(kind string) string {
	return filepath.Join(r.stateDir, kind+".state")
}

// Generate produces a QualityReport for sources, collecting per-learner
// file stats concurrently via errgroup since stat'ing N checkpoint files
// is pure I/O with no shared state to race over.
func (r *Reporter) Generate(sources map[string]learner.MetricsSource) (*QualityReport, error) {
	kinds := make([]string, 0, len(sources))
	for kind := range sources {
		kinds = append(kinds, kind)
	}

	reports := make([]LearnerReport, len(kinds))
	g := new(errgroup.Group)
	for i, kind := range kinds {
		i, kind := i, kind
		source := sources[kind]
		g.Go(func() error {
			reports[i] = r.reportFor(kind, source)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	bookSeeded, randomStart := selfplay.DiversityStats()
	fraction := 0.0
	if total := bookSeeded + randomStart; total > 0 {
		fraction = float64(bookSeeded) / float64(total)
	}

	return &QualityReport{
		GeneratedAt:         time.Now(),
		Learners:            reports,
		BookSeededFraction:  fraction,
		BookSeededEpisodes:  bookSeeded,
		RandomStartEpisodes: randomStart,
	}, nil
}

func (r *Reporter) reportFor(kind string, source learner.MetricsSource) LearnerReport {
	report := LearnerReport{
		Kind:    kind,
		Metrics: source.Metrics(),
	}

	if info, err := os.Stat(r.pathForKind(kind)); err == nil {
		report.CheckpointExists = true
		report.CheckpointSizeBytes = info.Size()
		report.CheckpointModTime = info.ModTime()
	}

	report.Score = score(report.Metrics, report.CheckpointExists)
	return report
}

// score is one reasonable, documented-as-implementation-detail formula
// per spec §4.11 ("the scoring formulae are implementation detail"): a
// 50-point baseline, up to +20 for training volume, +/-15 for running
// reward sign and magnitude, -25 for a Degraded status, -10 for a missing
// checkpoint, clamped to [0,100].
func score(metrics map[string]float64, checkpointExists bool) float64 {
	total := 50.0

	if episodes, ok := metrics["episodes"]; ok {
		total += clamp(episodes/1000.0*20.0, 0, 20)
	}
	if avgReward, ok := metrics["avgReward"]; ok {
		total += clamp(avgReward*15.0, -15, 15)
	}
	if status, ok := metrics["status"]; ok && status == float64(learner.Degraded) {
		total -= 25
	}
	if !checkpointExists {
		total -= 10
	}

	return clamp(total, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
