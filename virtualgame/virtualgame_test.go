package virtualgame

import (
	"testing"

	"chessai/rules"

	. "github.com/smartystreets/goconvey/convey"
)

func TestNewGameStartsAtStandardPosition(t *testing.T) {
	Convey("Given a freshly constructed Game", t, func() {
		g := New()

		Convey("White is to move and the game is not over", func() {
			So(g.SideToMove(), ShouldEqual, rules.White)
			over, _ := g.IsGameOver()
			So(over, ShouldBeFalse)
		})

		Convey("There are 20 valid moves for White", func() {
			So(len(g.ValidMovesForSide(rules.White)), ShouldEqual, 20)
		})
	})
}

func TestMakeMoveRejectsIllegalMoves(t *testing.T) {
	Convey("Given a freshly constructed Game", t, func() {
		g := New()

		Convey("An illegal move is rejected and the ply count is unchanged", func() {
			err := g.MakeMove(rules.Move{From: rules.Square{Row: 0, Col: 0}, To: rules.Square{Row: 7, Col: 7}})
			So(err, ShouldNotBeNil)
			So(g.MoveCount(), ShouldEqual, 0)
		})

		Convey("A legal move advances the ply count and flips side to move", func() {
			moves := g.ValidMovesForSide(rules.White)
			err := g.MakeMove(moves[0])
			So(err, ShouldBeNil)
			So(g.MoveCount(), ShouldEqual, 1)
			So(g.SideToMove(), ShouldEqual, rules.Black)
		})
	})
}

func TestFromSeedsAnArbitraryPosition(t *testing.T) {
	Convey("Given a position with only kings on the board", t, func() {
		pos, err := rules.ParseFEN("4k3/8/8/8/8/8/8/4K3 w - - 0 1")
		So(err, ShouldBeNil)
		g := From(pos)

		Convey("The game reports that position's side to move", func() {
			So(g.SideToMove(), ShouldEqual, rules.White)
		})
	})
}

func TestOpeningBookSeedsAndAdvancesPlies(t *testing.T) {
	Convey("Given a book seeded with one short variation", t, func() {
		dir := t.TempDir()
		book, err := OpenOpeningBook(dir)
		So(err, ShouldBeNil)
		defer book.Close()

		e4 := rules.Move{From: rules.Square{Row: 1, Col: 4}, To: rules.Square{Row: 3, Col: 4}}
		e5 := rules.Move{From: rules.Square{Row: 6, Col: 4}, To: rules.Square{Row: 4, Col: 4}}
		So(book.Seed([]variationRecord{{Name: "open game", Moves: []rules.Move{e4, e5}}}), ShouldBeNil)

		Convey("FromOpeningBook produces a game advanced by at least one ply", func() {
			g, err := FromOpeningBook(book)
			So(err, ShouldBeNil)
			So(g.MoveCount(), ShouldBeGreaterThan, 0)
		})
	})
}
