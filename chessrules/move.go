package chessrules

// Move is the 4-tuple (fromRow, fromCol, toRow, toCol) plus an optional
// promotion piece, per spec §3's data model.
type Move struct {
	From      Square
	To        Square
	Promotion PieceType // None unless this move promotes a pawn
}

func (m Move) String() string {
	s := m.From.String() + m.To.String()
	switch m.Promotion {
	case Queen:
		s += "q"
	case Rook:
		s += "r"
	case Bishop:
		s += "b"
	case Knight:
		s += "n"
	}
	return s
}

// ApplyMove returns a new position with move applied. It does not validate
// that move is legal for pos; callers are expected to only apply moves
// drawn from LegalMoves. ApplyMove is pure: pos is never mutated.
func ApplyMove(pos *Position, move Move) *Position {
	next := pos.Copy()
	piece := next.Board[move.From.Row][move.From.Col]

	isPawn := piece.Type == Pawn
	isCapture := !next.Board[move.To.Row][move.To.Col].IsEmpty()

	// En passant capture: pawn moves diagonally into an empty square that
	// is the recorded en passant file on the rank it left from.
	if isPawn && move.From.Col != move.To.Col && next.Board[move.To.Row][move.To.Col].IsEmpty() {
		isCapture = true
		capturedRow := move.From.Row
		next.Board[capturedRow][move.To.Col] = Piece{}
	}

	next.Board[move.To.Row][move.To.Col] = piece
	next.Board[move.From.Row][move.From.Col] = Piece{}

	if move.Promotion != None {
		next.Board[move.To.Row][move.To.Col] = Piece{move.Promotion, piece.Color}
	}

	// Castling: move the rook along with the king.
	if piece.Type == King {
		dc := move.To.Col - move.From.Col
		if dc == 2 {
			next.Board[move.From.Row][5] = next.Board[move.From.Row][7]
			next.Board[move.From.Row][7] = Piece{}
		} else if dc == -2 {
			next.Board[move.From.Row][3] = next.Board[move.From.Row][0]
			next.Board[move.From.Row][0] = Piece{}
		}
	}

	next.Castling = updateCastlingRights(next.Castling, move, piece)

	// En passant target file for the *next* move.
	next.EnPassantCol = -1
	if isPawn {
		dr := move.To.Row - move.From.Row
		if dr == 2 || dr == -2 {
			next.EnPassantCol = move.From.Col
		}
	}

	if isPawn || isCapture {
		next.HalfMoveClock = 0
	} else {
		next.HalfMoveClock++
	}

	if piece.Color == Black {
		next.FullMoveNumber++
	}
	next.SideToMove = piece.Color.Other()

	return next
}

func updateCastlingRights(cr CastlingRights, move Move, moved Piece) CastlingRights {
	clear := func(sq Square) {
		switch {
		case sq == (Square{0, 0}):
			cr &^= WhiteQueenside
		case sq == (Square{0, 7}):
			cr &^= WhiteKingside
		case sq == (Square{7, 0}):
			cr &^= BlackQueenside
		case sq == (Square{7, 7}):
			cr &^= BlackKingside
		}
	}
	if moved.Type == King {
		if moved.Color == White {
			cr &^= WhiteKingside | WhiteQueenside
		} else {
			cr &^= BlackKingside | BlackQueenside
		}
	}
	clear(move.From)
	clear(move.To)
	return cr
}
