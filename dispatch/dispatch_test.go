package dispatch

import (
	"io"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"chessai/learner"
	"chessai/replay"
	"chessai/rules"
)

// fakeLearner implements learner.Learner as a test double so this file
// does not need any of the real, registered learner kinds to exercise
// dispatch in isolation.
type fakeLearner struct {
	move     rules.Move
	delay    time.Duration
	degraded bool
}

func (f *fakeLearner) SelectMove(position *rules.Position, legalMoves []rules.Move, isTraining bool) rules.Move {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.move
}
func (f *fakeLearner) StartTraining(cfg learner.TrainConfig)                {}
func (f *fakeLearner) StopTraining()                                       {}
func (f *fakeLearner) AddHumanGame(traj replay.Trajectory, outcome float64) {}
func (f *fakeLearner) SaveSnapshot(w io.Writer) error                       { return nil }
func (f *fakeLearner) LoadSnapshot(r io.Reader) error                       { return nil }
func (f *fakeLearner) Metrics() map[string]float64                         { return nil }
func (f *fakeLearner) Kind() string                                        { return "fake" }
func (f *fakeLearner) MarkDegraded()                                       { f.degraded = true }
func (f *fakeLearner) ClearDegraded()                                      { f.degraded = false }

func TestSelectMoveReturnsLearnerChoiceWhenFast(t *testing.T) {
	Convey("Given the starting position and a fast learner", t, func() {
		pos := rules.NewGame()
		legal := rules.LegalMoves(pos, rules.White)
		want := legal[0]

		l := &fakeLearner{move: want}
		Convey("SelectMove returns the learner's move within the timeout", func() {
			got := SelectMove(l, pos, legal, rules.White, 2*time.Second)
			So(got, ShouldResemble, want)
			So(l.degraded, ShouldBeFalse)
		})
	})
}

func TestSelectMoveFallsBackToFirstLegalMoveOnTimeout(t *testing.T) {
	Convey("Given a learner that never returns within the timeout", t, func() {
		pos := rules.NewGame()
		legal := rules.LegalMoves(pos, rules.White)

		l := &fakeLearner{move: legal[len(legal)-1], delay: 200 * time.Millisecond}
		Convey("SelectMove falls back to the first legal move and marks the learner degraded", func() {
			got := SelectMove(l, pos, legal, rules.White, 20*time.Millisecond)
			So(got, ShouldResemble, legal[0])
			So(l.degraded, ShouldBeTrue)
		})
	})
}

func TestSelectMoveWithNoLegalMovesReturnsZeroValue(t *testing.T) {
	Convey("Given no legal moves", t, func() {
		pos := rules.NewGame()
		l := &fakeLearner{}

		Convey("SelectMove returns the zero-value move without consulting the learner", func() {
			got := SelectMove(l, pos, nil, rules.White, time.Second)
			So(got, ShouldResemble, rules.Move{})
		})
	})
}
