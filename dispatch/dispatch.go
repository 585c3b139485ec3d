// Package dispatch is the C10 Move Dispatcher: for one live-game turn it
// consults the Tactical Arbiter first, then bounds the chosen learner's
// move selection by a timeout, falling back to the Arbiter's proposal or
// the first legal move on expiry (spec §4.10).
package dispatch

import (
	"context"
	"time"

	"chessai/arbiter"
	"chessai/learner"
	"chessai/logx"
	"chessai/rules"
)

// DefaultTimeout is spec §4.10's default per-move budget.
const DefaultTimeout = 30 * time.Second

// SelectMove runs spec §4.10's five-step sequence for one turn. l is the
// already-selected learner (policy for choosing among configured learners
// is out of this package's scope, per spec). timeout overrides
// DefaultTimeout when positive.
func SelectMove(l learner.Learner, position *rules.Position, legalMoves []rules.Move, selfSide rules.Color, timeout time.Duration) rules.Move {
	if len(legalMoves) == 0 {
		return rules.Move{}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	defense, hasDefense := arbiter.BestDefense(position, legalMoves, selfSide)

	// Step 2: a critical (mate) defense cannot be overruled by the
	// learner at all — it is returned directly without consulting it.
	if hasDefense && defense.IsCriticalDefense() {
		return defense.Move
	}

	// Step 3: bound the learner call.
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	result := make(chan rules.Move, 1)
	go func() {
		result <- l.SelectMove(position, legalMoves, false)
	}()

	select {
	case move := <-result:
		return move
	case <-ctx.Done():
		l.MarkDegraded()
		logx.Warnf("dispatch: learner %s did not select a move within %s, falling back", l.Kind(), timeout)
		if hasDefense {
			return defense.Move
		}
		return legalMoves[0]
	}
}
