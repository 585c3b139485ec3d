package board

import "chessai/rules"

// squareIndex packs a (row,col) into [0,64).
func squareIndex(sq rules.Square) int { return sq.Row*8 + sq.Col }

func squareFromIndex(i int) rules.Square { return rules.Square{Row: i / 8, Col: i % 8} }

// directions enumerates the 8 compass directions in a fixed order shared by
// encode and decode, clockwise from north.
var directions = [8][2]int{
	{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1},
}

// knightOffsets enumerates the 8 knight jumps in a fixed order.
var knightOffsets = [8][2]int{
	{2, 1}, {1, 2}, {-1, 2}, {-2, 1}, {-2, -1}, {-1, -2}, {1, -2}, {2, -1},
}

const (
	slidingPlanes   = 64 // 8 directions x 8 distance slots (distance 8 unused)
	knightPlaneBase = 64
	knightPlanes    = 8
	reservedPlane   = 72
	planesPerSquare = 73
)

// MoveToIndex maps m into the codec's action space. ActionSimple's
// from*64+to addressing never fails; ActionExtended returns ErrBadIndex for
// a from/to pair that is neither a knight jump nor a straight or diagonal
// line of 1-7 squares, which never happens for ordinary moves (promotions
// collapse onto their destination square, matching how IndexToMove
// reconstructs them).
func (c *Codec) MoveToIndex(m rules.Move) (uint32, error) {
	from := squareIndex(m.From)
	to := squareIndex(m.To)
	if c.Space == ActionSimple {
		return uint32(from*64 + to), nil
	}
	return c.extendedIndex(m, from, to)
}

func (c *Codec) extendedIndex(m rules.Move, from, to int) (uint32, error) {
	dr := m.To.Row - m.From.Row
	dc := m.To.Col - m.From.Col

	if plane, ok := knightPlane(dr, dc); ok {
		return uint32(from*planesPerSquare + knightPlaneBase + plane), nil
	}
	plane, ok := slidingPlane(dr, dc)
	if !ok {
		return 0, ErrBadIndex
	}
	return uint32(from*planesPerSquare + plane), nil
}

func knightPlane(dr, dc int) (int, bool) {
	for i, off := range knightOffsets {
		if off[0] == dr && off[1] == dc {
			return i, true
		}
	}
	return 0, false
}

func slidingPlane(dr, dc int) (int, bool) {
	dist := maxAbs(dr, dc)
	if dist == 0 || dist > 7 {
		return 0, false
	}
	dirR, dirC := sign(dr), sign(dc)
	for i, d := range directions {
		if d[0] == dirR && d[1] == dirC {
			return i*8 + (dist - 1), true
		}
	}
	return 0, false
}

func maxAbs(a, b int) int {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	if a > b {
		return a
	}
	return b
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// IndexToMove decodes idx back to a move. The decoded move carries no
// promotion piece; callers that need promotion disambiguation must resolve
// it against the set of legal moves at the from/to pair, since both action
// spaces collapse all promotion choices onto one destination index.
func (c *Codec) IndexToMove(idx uint32) (rules.Move, error) {
	if c.Space == ActionSimple {
		return c.decodeSimple(idx)
	}
	return c.decodeExtended(idx)
}

func (c *Codec) decodeSimple(idx uint32) (rules.Move, error) {
	if idx >= 4096 {
		return rules.Move{}, ErrBadIndex
	}
	from := int(idx) / 64
	to := int(idx) % 64
	return rules.Move{From: squareFromIndex(from), To: squareFromIndex(to)}, nil
}

func (c *Codec) decodeExtended(idx uint32) (rules.Move, error) {
	total := uint32(64 * planesPerSquare)
	if idx >= total {
		return rules.Move{}, ErrBadIndex
	}
	from := int(idx) / planesPerSquare
	plane := int(idx) % planesPerSquare

	fromSq := squareFromIndex(from)

	switch {
	case plane == reservedPlane:
		return rules.Move{}, ErrBadIndex
	case plane >= knightPlaneBase:
		off := knightOffsets[plane-knightPlaneBase]
		to := rules.Square{Row: fromSq.Row + off[0], Col: fromSq.Col + off[1]}
		if !to.Valid() {
			return rules.Move{}, ErrBadIndex
		}
		return rules.Move{From: fromSq, To: to}, nil
	default:
		dir := directions[plane/8]
		dist := plane%8 + 1
		to := rules.Square{Row: fromSq.Row + dir[0]*dist, Col: fromSq.Col + dir[1]*dist}
		if !to.Valid() {
			return rules.Move{}, ErrBadIndex
		}
		return rules.Move{From: fromSq, To: to}, nil
	}
}
