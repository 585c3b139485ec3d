// Package selfplay is the C7 Self-Play Driver: it plays one game to
// completion (or interruption) against itself using whatever move
// selector a learner supplies, and returns the resulting trajectory (spec
// §4.7). It never consults the Arbiter — arbiter.BestDefense biases a
// move choice toward safety, and self-play data must reflect the
// learner's own unassisted policy, not a tactically-corrected one.
package selfplay

import (
	"chessai/atomicstate"
	"chessai/logx"
	"chessai/replay"
	"chessai/rules"
	"chessai/virtualgame"
)

// bookSeeded and randomStart back the supplemented self-play diversity
// metric: the fraction of this process's episode starts drawn from the opening
// book versus the standard position (book-absent or book-seed-failure
// fallback). They are process-wide rather than per-learner, since the
// driver itself has no notion of which learner is calling it.
var (
	bookSeeded  atomicstate.Counter
	randomStart atomicstate.Counter
)

// DiversityStats reports how many self-play episodes in this process
// started from a book-seeded position versus the standard one.
func DiversityStats() (bookSeededCount, randomStartCount uint64) {
	return bookSeeded.Load(), randomStart.Load()
}

// MoveSelector is the minimal capability RunEpisode needs from a learner:
// just enough to drive a game, not the full training/snapshot contract.
// Defining it here (rather than depending on the learner package's
// interface) keeps selfplay a leaf package that learner can import
// without a cycle.
type MoveSelector interface {
	SelectMove(position *rules.Position, legalMoves []rules.Move, isTraining bool) rules.Move
}

// RunEpisode plays at most maxPlies plies (0 means unbounded, bounded only
// by the game's own termination), seeding from book if non-nil, and
// returns the trajectory played. Terminal rewards (+1 win / 0 draw / -1
// loss, from the perspective of whichever side made the final recorded
// move) are filled in by the driver; all other step rewards are left at
// zero for the learner's own shaping. If stopToken fires mid-game, the
// partial trajectory is returned with its last step left non-terminal.
func RunEpisode(selector MoveSelector, book *virtualgame.OpeningBook, maxPlies int, stopToken <-chan struct{}) replay.Trajectory {
	game := newGame(book)

	var traj replay.Trajectory
	for ply := 0; maxPlies <= 0 || ply < maxPlies; ply++ {
		select {
		case <-stopToken:
			return traj
		default:
		}

		if over, result := game.IsGameOver(); over {
			applyTerminalReward(traj, result)
			return traj
		}

		side := game.SideToMove()
		legal := game.ValidMovesForSide(side)
		if len(legal) == 0 {
			logx.Infof("selfplay: no legal moves but position not terminal, recording as draw")
			applyTerminalReward(traj, rules.TerminalState{Status: rules.DrawByRule, Reason: "no legal moves"})
			return traj
		}

		before := game.Board().Copy()
		move := selector.SelectMove(before, legal, true)
		if err := game.MakeMove(move); err != nil {
			logx.Warnf("selfplay: selector proposed an illegal move, ending episode: %v", err)
			applyTerminalReward(traj, rules.TerminalState{Status: rules.DrawByRule, Reason: "illegal move from selector"})
			return traj
		}
		after := game.Board().Copy()
		over, _ := game.IsGameOver()

		traj = append(traj, replay.TrajectoryStep{
			Position:     before,
			Move:         move,
			NextPosition: after,
			Terminal:     over,
		})
	}
	return traj
}

func newGame(book *virtualgame.OpeningBook) *virtualgame.Game {
	if book == nil {
		randomStart.Add(1)
		return virtualgame.New()
	}
	g, err := virtualgame.FromOpeningBook(book)
	if err != nil {
		logx.Warnf("selfplay: opening book seed failed, falling back to standard start: %v", err)
		randomStart.Add(1)
		return virtualgame.New()
	}
	bookSeeded.Add(1)
	return g
}

// applyTerminalReward sets the last step's reward to +1/0/-1 from the
// perspective of whoever made that move, based on result.
func applyTerminalReward(traj replay.Trajectory, result rules.TerminalState) {
	if len(traj) == 0 {
		return
	}
	last := &traj[len(traj)-1]
	last.Terminal = true

	if result.Status != rules.Checkmate {
		last.Reward = 0
		return
	}
	mover := last.Position.SideToMove
	if result.Winner == mover {
		last.Reward = 1
	} else {
		last.Reward = -1
	}
}
