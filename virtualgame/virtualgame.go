package virtualgame

import (
	"math/rand"

	"chessai/board"
	"chessai/rules"
)

const minBookPlies, maxBookPlies = 1, 15

// Game is a mutable handle wrapping a Position plus the repetition history
// needed to detect threefold repetition, which chessrules itself does not
// track (it is a pure, position-only oracle per spec §4.2). A Game must
// never produce a board state unreachable by legal play (spec §4.3): every
// mutation goes through MakeMove, which consults rules.LegalMoves.
type Game struct {
	current  *rules.Position
	repeats  map[string]int
	plyCount int
}

// New returns a Game at the standard starting position.
func New() *Game {
	return newGame(rules.NewGame())
}

// From returns a Game seeded with a caller-supplied position.
func From(pos *rules.Position) *Game {
	return newGame(pos.Copy())
}

func newGame(pos *rules.Position) *Game {
	g := &Game{current: pos, repeats: make(map[string]int)}
	g.repeats[board.Hash(g.current)]++
	return g
}

// FromOpeningBook picks a variation uniformly at random from book and
// advances it by a random 1-15 plies, per spec §4.3.
func FromOpeningBook(book *OpeningBook) (*Game, error) {
	rec, err := book.randomVariation()
	if err != nil {
		return nil, err
	}

	g := New()
	plies := minBookPlies + rand.Intn(maxBookPlies-minBookPlies+1)
	if plies > len(rec.Moves) {
		plies = len(rec.Moves)
	}
	for i := 0; i < plies; i++ {
		if err := g.MakeMove(rec.Moves[i]); err != nil {
			break
		}
	}
	return g, nil
}

// MakeMove applies move if it is legal for the side to move, else returns
// an error without mutating the game.
func (g *Game) MakeMove(move rules.Move) error {
	legal := rules.LegalMoves(g.current, g.current.SideToMove)
	found := false
	for _, m := range legal {
		if m == move {
			found = true
			break
		}
	}
	if !found {
		return errIllegalMove(move)
	}

	g.current = rules.ApplyMove(g.current, move)
	g.plyCount++
	g.repeats[board.Hash(g.current)]++
	return nil
}

// Board returns the current position. Callers must not mutate it.
func (g *Game) Board() *rules.Position { return g.current }

// MoveCount returns the number of plies played so far.
func (g *Game) MoveCount() int { return g.plyCount }

// SideToMove returns the side on the move.
func (g *Game) SideToMove() rules.Color { return g.current.SideToMove }

// ValidMovesForSide returns the legal moves for side in the current position.
func (g *Game) ValidMovesForSide(side rules.Color) []rules.Move {
	return rules.LegalMoves(g.current, side)
}

// IsGameOver reports whether the game has ended, by the rules engine's
// terminal test or by threefold repetition (which chessrules cannot see,
// since it has no notion of game history).
func (g *Game) IsGameOver() (bool, rules.TerminalState) {
	result := rules.IsTerminal(g.current)
	if result.Status != rules.Ongoing {
		return true, result
	}
	if g.repeats[board.Hash(g.current)] >= 3 {
		return true, rules.TerminalState{Status: rules.DrawByRule, Reason: "threefold repetition"}
	}
	return false, result
}

type errIllegalMove rules.Move

func (e errIllegalMove) Error() string {
	return "virtualgame: illegal move"
}
