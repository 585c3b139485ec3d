package learner

import (
	"bytes"
	"sort"
	"testing"

	"chessai/config"
	"chessai/rules"

	. "github.com/smartystreets/goconvey/convey"
)

var allKinds = []string{
	"qtable", "valuenet", "policycnn", "duelingdqn", "mctsnn",
	"mctslite", "dualhead", "a3c", "diffusion", "evolutionary",
}

func TestRegistryHasEveryLearnerKind(t *testing.T) {
	Convey("Given the package-level registry after init()", t, func() {
		registered := Kinds()
		sort.Strings(registered)
		expected := append([]string(nil), allKinds...)
		sort.Strings(expected)

		Convey("Every named kind is registered", func() {
			So(registered, ShouldResemble, expected)
		})
	})
}

func TestNewRejectsUnknownKind(t *testing.T) {
	Convey("Given a config naming an unregistered kind", t, func() {
		_, err := New(config.LearnerConfig{Kind: "not-a-real-kind"})

		Convey("New returns an error", func() {
			So(err, ShouldNotBeNil)
		})
	})
}

func TestEveryKindSelectsALegalMoveFromTheStartingPosition(t *testing.T) {
	Convey("Given the starting position", t, func() {
		pos := rules.NewGame()
		legal := rules.LegalMoves(pos, rules.White)

		for _, kind := range allKinds {
			kind := kind
			Convey("For kind "+kind+", SelectMove returns one of the legal moves", func() {
				l, err := New(config.LearnerConfig{Kind: kind})
				So(err, ShouldBeNil)

				move := l.SelectMove(pos, legal, false)
				So(legal, ShouldContain, move)
			})
		}
	})
}

func TestEveryKindRoundTripsThroughItsSnapshot(t *testing.T) {
	Convey("Given a freshly constructed learner of each kind", t, func() {
		for _, kind := range allKinds {
			kind := kind
			Convey("For kind "+kind+", SaveSnapshot then LoadSnapshot succeeds", func() {
				l, err := New(config.LearnerConfig{Kind: kind})
				So(err, ShouldBeNil)

				var buf bytes.Buffer
				So(l.SaveSnapshot(&buf), ShouldBeNil)

				l2, err := New(config.LearnerConfig{Kind: kind})
				So(err, ShouldBeNil)
				So(l2.LoadSnapshot(&buf), ShouldBeNil)
			})
		}
	})
}

func TestStopTrainingWithoutStartIsANoOp(t *testing.T) {
	Convey("Given a learner that was never started", t, func() {
		l, err := New(config.LearnerConfig{Kind: "qtable"})
		So(err, ShouldBeNil)

		Convey("StopTraining does not panic", func() {
			So(func() { l.StopTraining() }, ShouldNotPanic)
		})
	})
}

func TestStartThenStopTrainingReturnsPromptly(t *testing.T) {
	Convey("Given a learner started against an already-closed stop token", t, func() {
		l, err := New(config.LearnerConfig{Kind: "qtable"})
		So(err, ShouldBeNil)

		stop := make(chan struct{})
		close(stop)
		l.StartTraining(TrainConfig{StopToken: stop, MaxPlies: 4})

		Convey("StopTraining returns without hanging", func() {
			So(func() { l.StopTraining() }, ShouldNotPanic)
		})
	})
}

func TestMetricsReportsHealthyStatusInitially(t *testing.T) {
	Convey("Given a qtable learner", t, func() {
		l, err := New(config.LearnerConfig{Kind: "qtable"})
		So(err, ShouldBeNil)

		Convey("Metrics initially reports Healthy", func() {
			m := l.Metrics()
			So(m["status"], ShouldEqual, float64(Healthy))
		})
	})
}
