package chessrules

var knightOffsets = [8][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
var kingOffsets = [8][2]int{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}
var bishopDirs = [4][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
var rookDirs = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}

// LegalMoves returns every legal move for side in pos: pseudo-legal moves
// that do not leave side's own king in check after being played.
func LegalMoves(pos *Position, side Color) []Move {
	pseudo := pseudoLegalMoves(pos, side)
	legal := make([]Move, 0, len(pseudo))
	for _, m := range pseudo {
		next := ApplyMove(pos, m)
		if !IsInCheck(next, side) {
			legal = append(legal, m)
		}
	}
	return legal
}

func pseudoLegalMoves(pos *Position, side Color) []Move {
	var moves []Move
	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			pc := pos.Board[r][c]
			if pc.IsEmpty() || pc.Color != side {
				continue
			}
			from := Square{r, c}
			switch pc.Type {
			case Pawn:
				moves = append(moves, pawnMoves(pos, from, side)...)
			case Knight:
				moves = append(moves, stepMoves(pos, from, side, knightOffsets[:])...)
			case King:
				moves = append(moves, stepMoves(pos, from, side, kingOffsets[:])...)
				moves = append(moves, castlingMoves(pos, from, side)...)
			case Bishop:
				moves = append(moves, slideMoves(pos, from, side, bishopDirs[:])...)
			case Rook:
				moves = append(moves, slideMoves(pos, from, side, rookDirs[:])...)
			case Queen:
				moves = append(moves, slideMoves(pos, from, side, bishopDirs[:])...)
				moves = append(moves, slideMoves(pos, from, side, rookDirs[:])...)
			}
		}
	}
	return moves
}

func pawnMoves(pos *Position, from Square, side Color) []Move {
	var moves []Move
	dir, startRow, promoRow := 1, 1, 7
	if side == Black {
		dir, startRow, promoRow = -1, 6, 0
	}

	addWithPromotion := func(to Square) {
		if to.Row == promoRow {
			for _, pt := range [...]PieceType{Queen, Rook, Bishop, Knight} {
				moves = append(moves, Move{from, to, pt})
			}
		} else {
			moves = append(moves, Move{from, to, None})
		}
	}

	one := Square{from.Row + dir, from.Col}
	if one.Valid() && pos.PieceAt(one).IsEmpty() {
		addWithPromotion(one)
		two := Square{from.Row + 2*dir, from.Col}
		if from.Row == startRow && two.Valid() && pos.PieceAt(two).IsEmpty() {
			moves = append(moves, Move{from, two, None})
		}
	}

	for _, dc := range [2]int{-1, 1} {
		to := Square{from.Row + dir, from.Col + dc}
		if !to.Valid() {
			continue
		}
		target := pos.PieceAt(to)
		if !target.IsEmpty() && target.Color != side {
			addWithPromotion(to)
		} else if target.IsEmpty() && pos.EnPassantCol == to.Col && to.Row == from.Row+dir {
			// capturing pawn must sit beside the en-passant pawn, on the same rank
			if from.Row == startRow+3*dir {
				moves = append(moves, Move{from, to, None})
			}
		}
	}
	return moves
}

func stepMoves(pos *Position, from Square, side Color, offsets [][2]int) []Move {
	var moves []Move
	for _, o := range offsets {
		to := Square{from.Row + o[0], from.Col + o[1]}
		if !to.Valid() {
			continue
		}
		target := pos.PieceAt(to)
		if target.IsEmpty() || target.Color != side {
			moves = append(moves, Move{from, to, None})
		}
	}
	return moves
}

func slideMoves(pos *Position, from Square, side Color, dirs [][2]int) []Move {
	var moves []Move
	for _, d := range dirs {
		to := Square{from.Row + d[0], from.Col + d[1]}
		for to.Valid() {
			target := pos.PieceAt(to)
			if target.IsEmpty() {
				moves = append(moves, Move{from, to, None})
				to = Square{to.Row + d[0], to.Col + d[1]}
				continue
			}
			if target.Color != side {
				moves = append(moves, Move{from, to, None})
			}
			break
		}
	}
	return moves
}

func castlingMoves(pos *Position, from Square, side Color) []Move {
	var moves []Move
	row := 0
	if side == Black {
		row = 7
	}
	if from != (Square{row, 4}) || IsInCheck(pos, side) {
		return nil
	}
	king, queen := WhiteKingside, WhiteQueenside
	if side == Black {
		king, queen = BlackKingside, BlackQueenside
	}
	opp := side.Other()
	if pos.Castling.has(king) &&
		pos.PieceAt(Square{row, 5}).IsEmpty() && pos.PieceAt(Square{row, 6}).IsEmpty() &&
		len(AttackersOf(pos, Square{row, 5}, opp)) == 0 && len(AttackersOf(pos, Square{row, 6}, opp)) == 0 {
		moves = append(moves, Move{from, Square{row, 6}, None})
	}
	if pos.Castling.has(queen) &&
		pos.PieceAt(Square{row, 1}).IsEmpty() && pos.PieceAt(Square{row, 2}).IsEmpty() && pos.PieceAt(Square{row, 3}).IsEmpty() &&
		len(AttackersOf(pos, Square{row, 2}, opp)) == 0 && len(AttackersOf(pos, Square{row, 3}, opp)) == 0 {
		moves = append(moves, Move{from, Square{row, 2}, None})
	}
	return moves
}

// AttackersOf returns every square occupied by a bySide piece that attacks
// target, per spec §4.2.
func AttackersOf(pos *Position, target Square, bySide Color) []Square {
	var attackers []Square
	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			pc := pos.Board[r][c]
			if pc.IsEmpty() || pc.Color != bySide {
				continue
			}
			from := Square{r, c}
			if attacksSquare(pos, pc, from, target) {
				attackers = append(attackers, from)
			}
		}
	}
	return attackers
}

func attacksSquare(pos *Position, pc Piece, from, target Square) bool {
	dr := target.Row - from.Row
	dc := target.Col - from.Col
	switch pc.Type {
	case Pawn:
		dir := 1
		if pc.Color == Black {
			dir = -1
		}
		return dr == dir && (dc == 1 || dc == -1)
	case Knight:
		for _, o := range knightOffsets {
			if o[0] == dr && o[1] == dc {
				return true
			}
		}
		return false
	case King:
		for _, o := range kingOffsets {
			if o[0] == dr && o[1] == dc {
				return true
			}
		}
		return false
	case Bishop:
		return abs(dr) == abs(dc) && dr != 0 && clearPath(pos, from, target)
	case Rook:
		return (dr == 0) != (dc == 0) && clearPath(pos, from, target)
	case Queen:
		diag := abs(dr) == abs(dc) && dr != 0
		straight := (dr == 0) != (dc == 0)
		return (diag || straight) && clearPath(pos, from, target)
	}
	return false
}

func clearPath(pos *Position, from, to Square) bool {
	dr := sign(to.Row - from.Row)
	dc := sign(to.Col - from.Col)
	r, c := from.Row+dr, from.Col+dc
	for (r != to.Row || c != to.Col) {
		if !pos.PieceAt(Square{r, c}).IsEmpty() {
			return false
		}
		r += dr
		c += dc
	}
	return true
}

func sign(x int) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// IsInCheck reports whether side's king is currently attacked.
func IsInCheck(pos *Position, side Color) bool {
	king := pos.KingSquare(side)
	if !king.Valid() {
		return false
	}
	return len(AttackersOf(pos, king, side.Other())) > 0
}

// TerminalStatus describes the outcome of a position, per spec §4.2.
type TerminalStatus int

const (
	Ongoing TerminalStatus = iota
	Checkmate
	Stalemate
	DrawByRule
)

// TerminalResult carries the status plus the winner (for Checkmate) and a
// human-readable reason (for DrawByRule).
type TerminalResult struct {
	Status TerminalStatus
	Winner Color
	Reason string
}

// IsTerminal classifies pos per spec §4.2's {Ongoing, Checkmate(winner),
// Stalemate, Draw(reason)}.
func IsTerminal(pos *Position) TerminalResult {
	if pos.HalfMoveClock >= 100 {
		return TerminalResult{Status: DrawByRule, Reason: "fifty-move rule"}
	}
	moves := LegalMoves(pos, pos.SideToMove)
	if len(moves) > 0 {
		return TerminalResult{Status: Ongoing}
	}
	if IsInCheck(pos, pos.SideToMove) {
		return TerminalResult{Status: Checkmate, Winner: pos.SideToMove.Other()}
	}
	return TerminalResult{Status: Stalemate}
}
