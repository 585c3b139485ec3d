package rules

import (
	"testing"

	"chessai/chessrules"

	. "github.com/smartystreets/goconvey/convey"
)

func TestAdapterDelegatesToRulesEngine(t *testing.T) {
	Convey("Given the standard starting position via the adapter", t, func() {
		pos := chessrules.NewGame()

		Convey("LegalMoves matches the underlying engine's count", func() {
			So(len(LegalMoves(pos, White)), ShouldEqual, 20)
		})

		Convey("IsTerminal reports Ongoing", func() {
			So(IsTerminal(pos).Status, ShouldEqual, chessrules.Ongoing)
		})

		Convey("Neither side is in check", func() {
			So(IsInCheck(pos, White), ShouldBeFalse)
			So(IsInCheck(pos, Black), ShouldBeFalse)
		})

		Convey("ApplyMove advances side to move without mutating the original", func() {
			moves := LegalMoves(pos, White)
			next := ApplyMove(pos, moves[0])
			So(next.SideToMove, ShouldEqual, Black)
			So(pos.SideToMove, ShouldEqual, White)
		})
	})
}
