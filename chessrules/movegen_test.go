package chessrules

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLegalMovesFromStart(t *testing.T) {
	Convey("Given the standard starting position", t, func() {
		pos := NewGame()

		Convey("White has exactly 20 legal moves", func() {
			moves := LegalMoves(pos, White)
			So(len(moves), ShouldEqual, 20)
		})

		Convey("Neither king is in check", func() {
			So(IsInCheck(pos, White), ShouldBeFalse)
			So(IsInCheck(pos, Black), ShouldBeFalse)
		})

		Convey("The position is Ongoing", func() {
			result := IsTerminal(pos)
			So(result.Status, ShouldEqual, Ongoing)
		})
	})
}

func TestFoolsMate(t *testing.T) {
	Convey("Given fool's mate move sequence", t, func() {
		pos := NewGame()
		seq := []Move{
			{Square{1, 5}, Square{2, 5}, None}, // f3
			{Square{6, 4}, Square{4, 4}, None}, // e5
			{Square{1, 6}, Square{3, 6}, None}, // g4
			{Square{7, 3}, Square{3, 7}, None}, // Qh4#
		}
		for _, m := range seq {
			pos = ApplyMove(pos, m)
		}

		Convey("Black has delivered checkmate", func() {
			result := IsTerminal(pos)
			So(result.Status, ShouldEqual, Checkmate)
			So(result.Winner, ShouldEqual, Black)
		})
	})
}

func TestApplyMoveFlipsSideToMove(t *testing.T) {
	Convey("Given any legal move from the starting position", t, func() {
		pos := NewGame()
		moves := LegalMoves(pos, White)

		Convey("Applying it produces a position with the mover's side flipped", func() {
			for _, m := range moves {
				next := ApplyMove(pos, m)
				So(next.SideToMove, ShouldEqual, Black)
			}
		})
	})
}

func TestEnPassantCapture(t *testing.T) {
	Convey("Given a position with an en passant opportunity", t, func() {
		pos, err := ParseFEN("rnbqkbnr/ppp1pppp/8/3pP3/8/8/PPPP1PPP/RNBQKBNR w KQkq d6 0 3")
		So(err, ShouldBeNil)

		Convey("exd6 en passant is among White's legal moves", func() {
			moves := LegalMoves(pos, White)
			found := false
			for _, m := range moves {
				if m.From == (Square{4, 4}) && m.To == (Square{5, 3}) {
					found = true
				}
			}
			So(found, ShouldBeTrue)
		})
	})
}

func TestCastling(t *testing.T) {
	Convey("Given a position with clear kingside castling for White", t, func() {
		pos, err := ParseFEN("r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")
		So(err, ShouldBeNil)

		Convey("O-O is a legal move", func() {
			moves := LegalMoves(pos, White)
			found := false
			for _, m := range moves {
				if m.From == (Square{0, 4}) && m.To == (Square{0, 6}) {
					found = true
				}
			}
			So(found, ShouldBeTrue)
		})
	})
}
