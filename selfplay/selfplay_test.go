package selfplay

import (
	"testing"

	"chessai/rules"

	. "github.com/smartystreets/goconvey/convey"
)

type firstMoveSelector struct{}

func (firstMoveSelector) SelectMove(position *rules.Position, legalMoves []rules.Move, isTraining bool) rules.Move {
	return legalMoves[0]
}

func TestRunEpisodeStopsAtMaxPlies(t *testing.T) {
	Convey("Given a selector that always plays the first legal move", t, func() {
		traj := RunEpisode(firstMoveSelector{}, nil, 4, nil)

		Convey("The trajectory has at most maxPlies steps", func() {
			So(len(traj), ShouldBeLessThanOrEqualTo, 4)
			So(len(traj), ShouldBeGreaterThan, 0)
		})

		Convey("Each step records a before/after position and the move played", func() {
			for _, step := range traj {
				So(step.Position, ShouldNotBeNil)
				So(step.NextPosition, ShouldNotBeNil)
			}
		})
	})
}

func TestRunEpisodeReturnsEmptyTrajectoryWhenStoppedImmediately(t *testing.T) {
	Convey("Given a stop token that is already closed", t, func() {
		stop := make(chan struct{})
		close(stop)

		traj := RunEpisode(firstMoveSelector{}, nil, 10, stop)

		Convey("No plies are played", func() {
			So(traj, ShouldBeEmpty)
		})
	})
}
