package coordinator

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"chessai/config"
)

func testConfig(dir string) *config.RuntimeConfig {
	cfg := config.Default()
	cfg.StateDir = dir
	cfg.AsyncIO = false
	cfg.StopTimeoutSeconds = 1
	cfg.PeriodicSaveMinutes = 60
	cfg.Learners = []config.LearnerConfig{
		{Kind: "qtable", EpisodeBudget: 0},
	}
	return cfg
}

func TestNewBuildsConfiguredLearners(t *testing.T) {
	Convey("Given a config naming one learner kind", t, func() {
		c, err := New(testConfig(t.TempDir()), nil)
		So(err, ShouldBeNil)

		Convey("the coordinator holds that learner", func() {
			_, ok := c.Learner("qtable")
			So(ok, ShouldBeTrue)
		})
	})
}

func TestNewRejectsUnknownLearnerKind(t *testing.T) {
	Convey("Given a config naming an unregistered kind", t, func() {
		cfg := testConfig(t.TempDir())
		cfg.Learners = []config.LearnerConfig{{Kind: "not-a-real-kind"}}

		_, err := New(cfg, nil)
		Convey("New returns an error", func() {
			So(err, ShouldNotBeNil)
		})
	})
}

func TestStopTrainingWithoutStartIsANoOp(t *testing.T) {
	Convey("Given a coordinator that was never started", t, func() {
		c, err := New(testConfig(t.TempDir()), nil)
		So(err, ShouldBeNil)

		Convey("StopTraining does not panic and leaves the coordinator inactive", func() {
			So(func() { c.StopTraining() }, ShouldNotPanic)
			So(c.IsActive(), ShouldBeFalse)
		})
	})
}

func TestStartTrainingIsIdempotentWhileActive(t *testing.T) {
	Convey("Given an already-active coordinator", t, func() {
		c, err := New(testConfig(t.TempDir()), nil)
		So(err, ShouldBeNil)

		c.StartTraining()
		defer c.StopTraining()

		Convey("a second StartTraining call is a no-op", func() {
			So(func() { c.StartTraining() }, ShouldNotPanic)
			So(c.IsActive(), ShouldBeTrue)
		})
	})
}

func TestStartThenStopTrainingClearsActiveAndThreadMap(t *testing.T) {
	Convey("Given a coordinator started against a qtable learner", t, func() {
		c, err := New(testConfig(t.TempDir()), nil)
		So(err, ShouldBeNil)

		c.StartTraining()
		So(c.IsActive(), ShouldBeTrue)

		Convey("StopTraining returns promptly, clears active, and empties the thread map", func() {
			done := make(chan struct{})
			go func() {
				c.StopTraining()
				close(done)
			}()

			select {
			case <-done:
			case <-time.After(10 * time.Second):
				t.Fatal("StopTraining did not return within 10s")
			}

			So(c.IsActive(), ShouldBeFalse)
			c.mu.Lock()
			threadCount := len(c.perKindThreads)
			c.mu.Unlock()
			So(threadCount, ShouldEqual, 0)
		})
	})
}

func TestShutdownForbidsFutureStart(t *testing.T) {
	Convey("Given a coordinator that has been shut down", t, func() {
		c, err := New(testConfig(t.TempDir()), nil)
		So(err, ShouldBeNil)

		c.Shutdown()

		Convey("a subsequent StartTraining call is ignored", func() {
			c.StartTraining()
			So(c.IsActive(), ShouldBeFalse)
		})
	})
}
