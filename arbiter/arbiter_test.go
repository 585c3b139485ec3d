package arbiter

import (
	"testing"

	"chessai/rules"

	. "github.com/smartystreets/goconvey/convey"
)

func TestBestDefenseFindsForcedBlockAgainstMateThreat(t *testing.T) {
	Convey("Given a boxed Black king threatened by Qxf7# next move", t, func() {
		pos, err := rules.ParseFEN("3qkbn1/3ppp2/8/4N3/8/5Q2/8/4K3 b - - 0 1")
		So(err, ShouldBeNil)
		legal := rules.LegalMoves(pos, rules.Black)

		Convey("BestDefense finds a blocking move at CheckmateIn1 severity", func() {
			defense, ok := BestDefense(pos, legal, rules.Black)
			So(ok, ShouldBeTrue)
			So(defense.Severity, ShouldEqual, SeverityCheckmateIn1)
			So(defense.IsCriticalDefense(), ShouldBeTrue)

			Convey("Playing it leaves White with no mate-in-1", func() {
				next := rules.ApplyMove(pos, defense.Move)
				So(matingMoves(next, rules.White), ShouldBeEmpty)
			})
		})
	})
}

func TestBestDefenseReturnsNoneFromStandardOpening(t *testing.T) {
	Convey("Given the standard starting position", t, func() {
		pos := rules.NewGame()
		legal := rules.LegalMoves(pos, rules.White)

		Convey("No threat crosses the severity threshold", func() {
			_, ok := BestDefense(pos, legal, rules.White)
			So(ok, ShouldBeFalse)
		})
	})
}

func TestBestDefenseFindsHangingQueenDefense(t *testing.T) {
	Convey("Given a Black queen attacked by an undefended White rook", t, func() {
		pos, err := rules.ParseFEN("4k3/8/8/3q4/8/3R4/8/4K3 b - - 0 1")
		So(err, ShouldBeNil)
		legal := rules.LegalMoves(pos, rules.Black)

		Convey("BestDefense proposes a move that removes the hanging status", func() {
			defense, ok := BestDefense(pos, legal, rules.Black)
			So(ok, ShouldBeTrue)
			So(defense.Severity, ShouldEqual, SeverityMajorPieceHanging)

			next := rules.ApplyMove(pos, defense.Move)
			newSquare := defense.Move.To
			So(isHanging(next, newSquare, rules.Black), ShouldBeFalse)
		})
	})
}

func TestIsCriticalDefenseFalseForLesserSeverities(t *testing.T) {
	Convey("Given a hanging-queen-only scenario", t, func() {
		pos, err := rules.ParseFEN("4k3/8/8/3q4/8/3R4/8/4K3 b - - 0 1")
		So(err, ShouldBeNil)
		legal := rules.LegalMoves(pos, rules.Black)
		defense, ok := BestDefense(pos, legal, rules.Black)
		So(ok, ShouldBeTrue)

		Convey("IsCriticalDefense is false", func() {
			So(defense.IsCriticalDefense(), ShouldBeFalse)
		})
	})
}
