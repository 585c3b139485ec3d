package chessrules

import (
	"fmt"
	"strconv"
	"strings"
)

var pieceRunes = map[rune]PieceType{
	'p': Pawn, 'n': Knight, 'b': Bishop, 'r': Rook, 'q': Queen, 'k': King,
}

// ParseFEN parses a Forsyth-Edwards string into a Position, for Virtual
// Game's "seeded from arbitrary FEN" construction variant (spec §4.3).
func ParseFEN(fen string) (*Position, error) {
	fields := strings.Fields(fen)
	if len(fields) < 4 {
		return nil, fmt.Errorf("chessrules: malformed FEN %q", fen)
	}

	pos := &Position{EnPassantCol: -1, FullMoveNumber: 1}
	ranks := strings.Split(fields[0], "/")
	if len(ranks) != 8 {
		return nil, fmt.Errorf("chessrules: FEN must have 8 ranks, got %d", len(ranks))
	}
	for i, rank := range ranks {
		row := 7 - i
		col := 0
		for _, ch := range rank {
			if n, err := strconv.Atoi(string(ch)); err == nil {
				col += n
				continue
			}
			pt, ok := pieceRunes[toLower(ch)]
			if !ok {
				return nil, fmt.Errorf("chessrules: invalid piece rune %q", ch)
			}
			color := Black
			if isUpper(ch) {
				color = White
			}
			if col >= 8 {
				return nil, fmt.Errorf("chessrules: rank %d overflows", i)
			}
			pos.Board[row][col] = Piece{pt, color}
			col++
		}
	}

	if fields[1] == "b" {
		pos.SideToMove = Black
	} else {
		pos.SideToMove = White
	}

	for _, ch := range fields[2] {
		switch ch {
		case 'K':
			pos.Castling |= WhiteKingside
		case 'Q':
			pos.Castling |= WhiteQueenside
		case 'k':
			pos.Castling |= BlackKingside
		case 'q':
			pos.Castling |= BlackQueenside
		}
	}

	if fields[3] != "-" && len(fields[3]) >= 1 {
		pos.EnPassantCol = int(fields[3][0] - 'a')
	}

	if len(fields) >= 6 {
		if hm, err := strconv.Atoi(fields[4]); err == nil {
			pos.HalfMoveClock = hm
		}
		if fm, err := strconv.Atoi(fields[5]); err == nil {
			pos.FullMoveNumber = fm
		}
	}

	return pos, nil
}

func toLower(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}

func isUpper(r rune) bool {
	return r >= 'A' && r <= 'Z'
}

// StartFEN is the standard starting position in FEN notation.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
