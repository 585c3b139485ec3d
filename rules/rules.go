// Package rules is the C2 Rules Adapter: a uniform, side-effect-free wrapper
// over chessrules, per spec §4.2. Every exported function here is a thin
// delegation; the adapter never caches or mutates a *chessrules.Position.
package rules

import "chessai/chessrules"

// Position, Move, Color, Square, Piece and PieceType are re-exported so
// callers depend only on this package, not on chessrules directly.
type (
	Position  = chessrules.Position
	Move      = chessrules.Move
	Color     = chessrules.Color
	Square    = chessrules.Square
	Piece     = chessrules.Piece
	PieceType = chessrules.PieceType
)

const (
	White = chessrules.White
	Black = chessrules.Black
)

const (
	None   = chessrules.None
	Pawn   = chessrules.Pawn
	Knight = chessrules.Knight
	Bishop = chessrules.Bishop
	Rook   = chessrules.Rook
	Queen  = chessrules.Queen
	King   = chessrules.King
)

// TerminalState mirrors spec §4.2's {Ongoing, Checkmate(winner), Stalemate,
// Draw(reason)}.
type TerminalState = chessrules.TerminalResult

// TerminalStatus is re-exported so callers can match on it without
// importing chessrules directly.
type TerminalStatus = chessrules.TerminalStatus

const (
	Ongoing    = chessrules.Ongoing
	Checkmate  = chessrules.Checkmate
	Stalemate  = chessrules.Stalemate
	DrawByRule = chessrules.DrawByRule
)

// LegalMoves returns every legal move for side in pos.
func LegalMoves(pos *Position, side Color) []Move {
	return chessrules.LegalMoves(pos, side)
}

// ApplyMove returns the position resulting from playing move in pos.
func ApplyMove(pos *Position, move Move) *Position {
	return chessrules.ApplyMove(pos, move)
}

// IsTerminal classifies pos.
func IsTerminal(pos *Position) TerminalState {
	return chessrules.IsTerminal(pos)
}

// AttackersOf returns the squares from which bySide attacks target.
func AttackersOf(pos *Position, target Square, bySide Color) []Square {
	return chessrules.AttackersOf(pos, target, bySide)
}

// IsInCheck reports whether side's king is attacked in pos.
func IsInCheck(pos *Position, side Color) bool {
	return chessrules.IsInCheck(pos, side)
}

// ParseFEN parses a Forsyth-Edwards string into a Position.
func ParseFEN(fen string) (*Position, error) {
	return chessrules.ParseFEN(fen)
}

// NewGame returns the standard starting position.
func NewGame() *Position {
	return chessrules.NewGame()
}
