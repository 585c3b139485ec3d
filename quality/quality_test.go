package quality

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"chessai/learner"
)

type fakeSource struct {
	kind    string
	metrics map[string]float64
}

func (f fakeSource) Kind() string                   { return f.kind }
func (f fakeSource) Metrics() map[string]float64 { return f.metrics }

func TestGenerateReportsOneEntryPerSource(t *testing.T) {
	Convey("Given two metrics sources", t, func() {
		r := NewReporter(t.TempDir())
		sources := map[string]learner.MetricsSource{
			"qtable":   fakeSource{kind: "qtable", metrics: map[string]float64{"episodes": 100, "avgReward": 0.2, "status": 0}},
			"valuenet": fakeSource{kind: "valuenet", metrics: map[string]float64{"episodes": 0, "avgReward": 0, "status": 0}},
		}

		report, err := r.Generate(sources)
		Convey("the report has one entry per source, each scored in [0,100]", func() {
			So(err, ShouldBeNil)
			So(len(report.Learners), ShouldEqual, 2)
			for _, lr := range report.Learners {
				So(lr.Score, ShouldBeGreaterThanOrEqualTo, 0)
				So(lr.Score, ShouldBeLessThanOrEqualTo, 100)
			}
		})
	})
}

func TestGenerateDetectsExistingCheckpointFile(t *testing.T) {
	Convey("Given a checkpoint file already on disk for one kind", t, func() {
		dir := t.TempDir()
		So(os.WriteFile(filepath.Join(dir, "qtable.state"), []byte("abc"), 0o644), ShouldBeNil)

		r := NewReporter(dir)
		sources := map[string]learner.MetricsSource{
			"qtable": fakeSource{kind: "qtable", metrics: map[string]float64{"episodes": 10, "status": 0}},
		}

		report, err := r.Generate(sources)
		Convey("the report reflects the file's existence and size", func() {
			So(err, ShouldBeNil)
			So(report.Learners[0].CheckpointExists, ShouldBeTrue)
			So(report.Learners[0].CheckpointSizeBytes, ShouldEqual, int64(3))
		})
	})
}

func TestDegradedStatusLowersScore(t *testing.T) {
	Convey("Given a healthy and a degraded learner with identical other metrics", t, func() {
		r := NewReporter(t.TempDir())

		healthyScore := score(map[string]float64{"episodes": 500, "avgReward": 0.5, "status": float64(learner.Healthy)}, true)
		degradedScore := score(map[string]float64{"episodes": 500, "avgReward": 0.5, "status": float64(learner.Degraded)}, true)

		Convey("the degraded learner scores lower", func() {
			So(degradedScore, ShouldBeLessThan, healthyScore)
		})
		_ = r
	})
}

func TestMissingCheckpointLowersScore(t *testing.T) {
	Convey("Comparing scoring with and without a checkpoint present", t, func() {
		withCheckpoint := score(map[string]float64{"episodes": 10}, true)
		withoutCheckpoint := score(map[string]float64{"episodes": 10}, false)

		Convey("the missing-checkpoint score is lower", func() {
			So(withoutCheckpoint, ShouldBeLessThan, withCheckpoint)
		})
	})
}
