// Package arbiter is the C4 Tactical Arbiter: a pure, stateless function
// that ranks threats against a side by severity and proposes the
// highest-severity defensive move, per spec §4.4. It is consulted only for
// live-game moves, never during self-play (spec §4.4's bias-avoidance
// rule) — selfplay and coordinator never import this package.
package arbiter

import "chessai/rules"

// Severity is the threat-ladder rank from spec §4.4, descending from
// CheckmateIn1 (most severe) to None (nothing crosses the threshold).
type Severity int

const (
	SeverityNone Severity = iota
	SeverityPositional
	SeverityTacticalPattern
	SeverityMinorPieceHanging
	SeverityMajorPieceHanging
	SeverityCheckmateIn1
)

func (s Severity) String() string {
	switch s {
	case SeverityCheckmateIn1:
		return "CheckmateIn1"
	case SeverityMajorPieceHanging:
		return "MajorPieceHanging"
	case SeverityMinorPieceHanging:
		return "MinorPieceHanging"
	case SeverityTacticalPattern:
		return "TacticalPattern"
	case SeverityPositional:
		return "Positional"
	default:
		return "None"
	}
}

// Defense is the result of BestDefense: a move plus the severity of the
// threat it addresses.
type Defense struct {
	Move     rules.Move
	Severity Severity
}

// IsCriticalDefense reports whether d is defending against an immediate
// mate threat, per spec §4.10 step 2. Only at this severity does the
// Dispatcher forbid the learner from overruling the Arbiter.
func (d Defense) IsCriticalDefense() bool {
	return d.Severity == SeverityCheckmateIn1
}

// pieceValue mirrors the board package's K=10,Q=9,R=5,B=N=3,P=1 table, per
// spec §6 ("the piece-value table"). Arbiter and board deliberately keep
// separate copies: arbiter works in chessrules.PieceType directly, board
// works in its own plane/index space, and neither should import the other
// for a five-entry lookup table.
func pieceValue(pt rules.PieceType) float64 {
	switch pt {
	case rules.King:
		return 10
	case rules.Queen:
		return 9
	case rules.Rook:
		return 5
	case rules.Bishop, rules.Knight:
		return 3
	case rules.Pawn:
		return 1
	default:
		return 0
	}
}

func isSliding(pt rules.PieceType) bool {
	return pt == rules.Bishop || pt == rules.Rook || pt == rules.Queen
}

// BestDefense enumerates threats of the opposing side against
// sideToProtect in position and returns the highest-severity defensive
// move among legalMoves, or ok=false if nothing crosses the threshold.
func BestDefense(position *rules.Position, legalMoves []rules.Move, sideToProtect rules.Color) (Defense, bool) {
	opponent := sideToProtect.Other()

	if move, ok := findMateDefense(position, legalMoves, sideToProtect, opponent); ok {
		return Defense{Move: move, Severity: SeverityCheckmateIn1}, true
	}
	if move, ok := findHangingDefense(position, legalMoves, sideToProtect, opponent, rules.Queen, rules.Rook); ok {
		return Defense{Move: move, Severity: SeverityMajorPieceHanging}, true
	}
	if move, ok := findHangingDefense(position, legalMoves, sideToProtect, opponent, rules.Bishop, rules.Knight); ok {
		return Defense{Move: move, Severity: SeverityMinorPieceHanging}, true
	}
	if move, ok := findForkDefense(position, legalMoves, sideToProtect, opponent); ok {
		return Defense{Move: move, Severity: SeverityTacticalPattern}, true
	}
	return Defense{}, false
}

// matingMoves returns opponent's moves that would deliver checkmate if it
// were opponent's turn to move right now in position.
func matingMoves(position *rules.Position, opponent rules.Color) []rules.Move {
	hypothetical := position.Copy()
	hypothetical.SideToMove = opponent

	var mates []rules.Move
	for _, m := range rules.LegalMoves(hypothetical, opponent) {
		next := rules.ApplyMove(hypothetical, m)
		result := rules.IsTerminal(next)
		if result.Status == rules.Checkmate && result.Winner == opponent {
			mates = append(mates, m)
		}
	}
	return mates
}

// findMateDefense implements severity 1 of spec §4.4: Scholar's,
// Fool's/back-rank/smothered/Légal are all instances of "opponent has a
// move delivering mate" — this detector is general over that whole class,
// rather than pattern-matching each named configuration separately.
func findMateDefense(position *rules.Position, legalMoves []rules.Move, sideToProtect, opponent rules.Color) (rules.Move, bool) {
	threats := matingMoves(position, opponent)
	if len(threats) == 0 {
		return rules.Move{}, false
	}

	kingSquare := position.KingSquare(sideToProtect)
	primary := threats[0]

	var between map[rules.Square]bool
	if isSliding(position.PieceAt(primary.From).Type) {
		between = squaresBetween(primary.From, primary.To)
	}

	escape, block, capture, other := bucketMoves(legalMoves, kingSquare, between, primary.From)

	stillMated := func(next *rules.Position) bool {
		return len(matingMoves(next, opponent)) > 0
	}

	for _, group := range [][]rules.Move{escape, block, capture, other} {
		for _, m := range group {
			next := rules.ApplyMove(position, m)
			if !stillMated(next) {
				return m, true
			}
		}
	}
	return rules.Move{}, false
}

func bucketMoves(legalMoves []rules.Move, kingSquare rules.Square, between map[rules.Square]bool, attackerSquare rules.Square) (escape, block, capture, other []rules.Move) {
	for _, m := range legalMoves {
		switch {
		case m.From == kingSquare:
			escape = append(escape, m)
		case between != nil && between[m.To]:
			block = append(block, m)
		case m.To == attackerSquare:
			capture = append(capture, m)
		default:
			other = append(other, m)
		}
	}
	return
}

// squaresBetween returns the squares strictly between a and b if they lie
// on a common rank, file, or diagonal (the geometry a sliding piece
// travels along); nil otherwise.
func squaresBetween(a, b rules.Square) map[rules.Square]bool {
	dr := sign(b.Row - a.Row)
	dc := sign(b.Col - a.Col)
	if dr == 0 && dc == 0 {
		return nil
	}
	if dr != 0 && dc != 0 && abs(b.Row-a.Row) != abs(b.Col-a.Col) {
		return nil
	}
	if dr == 0 && dc != 0 && a.Row != b.Row {
		return nil
	}
	if dc == 0 && dr != 0 && a.Col != b.Col {
		return nil
	}

	squares := map[rules.Square]bool{}
	r, c := a.Row+dr, a.Col+dc
	for (r != b.Row || c != b.Col) && rules.Square{Row: r, Col: c}.Valid() {
		squares[rules.Square{Row: r, Col: c}] = true
		r += dr
		c += dc
	}
	return squares
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

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// isHanging reports whether the piece sideToProtect owns at square is
// attacked and has no defender, grounded on hailam-chessplay's
// Worker.detectSeriousThreats attack-set-difference technique
// (ourPieces & enemyAttacks &^ ourDefenses), reimplemented over
// rules.AttackersOf instead of bitboards.
func isHanging(position *rules.Position, square rules.Square, sideToProtect rules.Color) bool {
	attackers := rules.AttackersOf(position, square, sideToProtect.Other())
	if len(attackers) == 0 {
		return false
	}
	defenders := rules.AttackersOf(position, square, sideToProtect)
	return len(defenders) == 0
}

// findHangingDefense implements severities 2 and 3: scan sideToProtect's
// pieces of the given kinds for a hanging one, and search a defense for
// the most valuable hanging piece found.
func findHangingDefense(position *rules.Position, legalMoves []rules.Move, sideToProtect, opponent rules.Color, kinds ...rules.PieceType) (rules.Move, bool) {
	var targetSquare rules.Square
	found := false
	bestValue := -1.0

	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			sq := rules.Square{Row: r, Col: c}
			pc := position.PieceAt(sq)
			if pc.IsEmpty() || pc.Color != sideToProtect {
				continue
			}
			if !containsKind(kinds, pc.Type) {
				continue
			}
			if !isHanging(position, sq, sideToProtect) {
				continue
			}
			if v := pieceValue(pc.Type); v > bestValue {
				bestValue = v
				targetSquare = sq
				found = true
			}
		}
	}
	if !found {
		return rules.Move{}, false
	}

	attackers := rules.AttackersOf(position, targetSquare, opponent)
	var between map[rules.Square]bool
	if len(attackers) > 0 && isSliding(position.PieceAt(attackers[0]).Type) {
		between = squaresBetween(attackers[0], targetSquare)
	}
	var attackerSq rules.Square
	if len(attackers) > 0 {
		attackerSq = attackers[0]
	}

	escape, block, capture, _ := bucketMoves(legalMoves, targetSquare, between, attackerSq)
	for _, group := range [][]rules.Move{escape, block, capture} {
		for _, m := range group {
			if m.To == attackerSq {
				capturerValue := pieceValue(position.PieceAt(m.From).Type)
				attackerValue := pieceValue(position.PieceAt(attackerSq).Type)
				defendedValue := pieceValue(position.PieceAt(targetSquare).Type)
				if !(attackerValue >= capturerValue || defendedValue > capturerValue) {
					continue
				}
			}
			next := rules.ApplyMove(position, m)
			newSquare := targetSquare
			if m.From == targetSquare {
				newSquare = m.To
			}
			if !isHanging(next, newSquare, sideToProtect) {
				return m, true
			}
		}
	}
	return rules.Move{}, false
}

func containsKind(kinds []rules.PieceType, pt rules.PieceType) bool {
	for _, k := range kinds {
		if k == pt {
			return true
		}
	}
	return false
}

// findForkDefense implements a real (not merely pattern-shaped) subset of
// severity 4: a single opponent piece simultaneously attacking two or more
// of sideToProtect's pieces each worth at least as much as the attacker.
// Full skewer/pin/discovered-attack detection is not attempted; spec §4.4
// only requires the ladder's presence, not exhaustive tactical coverage.
func findForkDefense(position *rules.Position, legalMoves []rules.Move, sideToProtect, opponent rules.Color) (rules.Move, bool) {
	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			forkerSq := rules.Square{Row: r, Col: c}
			forker := position.PieceAt(forkerSq)
			if forker.IsEmpty() || forker.Color != opponent || forker.Type == rules.King {
				continue
			}
			forkerValue := pieceValue(forker.Type)
			victims := forkedVictims(position, forkerSq, sideToProtect, forkerValue)
			if len(victims) < 2 {
				continue
			}
			target := victims[0]
			var between map[rules.Square]bool
			if isSliding(forker.Type) {
				between = squaresBetween(forkerSq, target)
			}
			escape, block, capture, _ := bucketMoves(legalMoves, target, between, forkerSq)
			for _, group := range [][]rules.Move{escape, block, capture} {
				for _, m := range group {
					next := rules.ApplyMove(position, m)
					if len(forkedVictims(next, forkerSq, sideToProtect, forkerValue)) < 2 {
						return m, true
					}
				}
			}
		}
	}
	return rules.Move{}, false
}

func forkedVictims(position *rules.Position, forkerSq rules.Square, sideToProtect rules.Color, forkerValue float64) []rules.Square {
	var victims []rules.Square
	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			sq := rules.Square{Row: r, Col: c}
			pc := position.PieceAt(sq)
			if pc.IsEmpty() || pc.Color != sideToProtect || pc.Type == rules.King {
				continue
			}
			if pieceValue(pc.Type) < forkerValue {
				continue
			}
			for _, a := range rules.AttackersOf(position, sq, pc.Color.Other()) {
				if a == forkerSq {
					victims = append(victims, sq)
					break
				}
			}
		}
	}
	return victims
}
