package board

import (
	"testing"

	"chessai/rules"

	. "github.com/smartystreets/goconvey/convey"
)

func TestBitplaneEncodingPlacesStartingPieces(t *testing.T) {
	Convey("Given the starting position encoded as bitplanes", t, func() {
		c := NewCodec(ShapeBitplanes, ActionSimple)
		tensor := c.Encode(rules.NewGame())

		Convey("The tensor has 12*8*8 entries", func() {
			So(len(tensor.Data), ShouldEqual, 12*8*8)
		})

		Convey("White pawns occupy plane 0 rank 2", func() {
			for col := 0; col < 8; col++ {
				So(tensor.Data[0*64+1*8+col], ShouldEqual, 1.0)
			}
		})

		Convey("Black king occupies its own plane", func() {
			kingPlane := 5 + 6
			So(tensor.Data[kingPlane*64+7*8+4], ShouldEqual, 1.0)
		})
	})
}

func TestFlatEncodingSignsByColor(t *testing.T) {
	Convey("Given the starting position encoded as a flat vector", t, func() {
		c := NewCodec(ShapeFlat, ActionSimple)
		tensor := c.Encode(rules.NewGame())

		Convey("White pieces are positive, Black pieces are negative", func() {
			So(tensor.Data[0*8+0], ShouldBeGreaterThan, 0)  // a1 rook
			So(tensor.Data[7*8+0], ShouldBeLessThan, 0)     // a8 rook
		})
	})
}

func TestSimpleActionSpaceRoundTrip(t *testing.T) {
	Convey("Given every legal move from the starting position", t, func() {
		c := NewCodec(ShapeFlat, ActionSimple)
		pos := rules.NewGame()
		moves := rules.LegalMoves(pos, rules.White)

		Convey("move_to_index then index_to_move recovers the same from/to squares", func() {
			for _, m := range moves {
				idx, err := c.MoveToIndex(m)
				So(err, ShouldBeNil)
				So(idx, ShouldBeLessThan, uint32(4096))

				back, err := c.IndexToMove(idx)
				So(err, ShouldBeNil)
				So(back.From, ShouldEqual, m.From)
				So(back.To, ShouldEqual, m.To)
			}
		})
	})
}

func TestExtendedActionSpaceRoundTrip(t *testing.T) {
	Convey("Given every legal move from the starting position", t, func() {
		c := NewCodec(ShapeBitplanes, ActionExtended)
		pos := rules.NewGame()
		moves := rules.LegalMoves(pos, rules.White)

		Convey("move_to_index then index_to_move recovers the same from/to squares", func() {
			for _, m := range moves {
				idx, err := c.MoveToIndex(m)
				So(err, ShouldBeNil)
				So(idx, ShouldBeLessThan, uint32(64*73))

				back, err := c.IndexToMove(idx)
				So(err, ShouldBeNil)
				So(back.From, ShouldEqual, m.From)
				So(back.To, ShouldEqual, m.To)
			}
		})

		Convey("The reserved underpromotion plane always decodes as BadIndex", func() {
			_, err := c.IndexToMove(uint32(0*73 + 72))
			So(err, ShouldEqual, ErrBadIndex)
		})

		Convey("An out-of-range index decodes as BadIndex", func() {
			_, err := c.IndexToMove(uint32(64 * 73))
			So(err, ShouldEqual, ErrBadIndex)
		})
	})
}

func TestHashDiffersAcrossDistinctPositions(t *testing.T) {
	Convey("Given the starting position and one move played from it", t, func() {
		pos := rules.NewGame()
		moves := rules.LegalMoves(pos, rules.White)
		next := rules.ApplyMove(pos, moves[0])

		Convey("Their hashes differ", func() {
			So(Hash(pos), ShouldNotEqual, Hash(next))
		})

		Convey("Hashing the same position twice is stable", func() {
			So(Hash(pos), ShouldEqual, Hash(pos))
		})
	})
}
