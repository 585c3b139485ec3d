package learner

import (
	"encoding/json"
	"io"
	"math/rand"
	"sync"

	"chessai/board"
	"chessai/config"
	"chessai/replay"
	"chessai/rules"
)

func init() {
	Register("mctslite", newMCTSLiteLearner)
}

// mctsLiteLearner is MCTS-NN's raw-rollout sibling: no parametric
// value/policy head, just random-playout scoring averaged per candidate
// move, exactly the "same but without neural priors" distinction spec
// §4.5 draws between the two kinds.
type mctsLiteLearner struct {
	baseLearner

	rolloutDepth int
	rolloutCount int

	mu    sync.Mutex
	stats map[string]rolloutStats
}

type rolloutStats struct {
	Visits int     `json:"visits"`
	Total  float64 `json:"total"`
}

func newMCTSLiteLearner(cfg config.LearnerConfig) Learner {
	return &mctsLiteLearner{
		baseLearner:  newBaseLearner("mctslite"),
		rolloutDepth: int(cfg.GetHyperParamOrDefault("rolloutDepth", 4)),
		rolloutCount: int(cfg.GetHyperParamOrDefault("rolloutCount", 8)),
		stats:        make(map[string]rolloutStats),
	}
}

// randomRollout plays rolloutDepth random plies from position and scores
// the result: +1/-1 on checkmate, 0 otherwise (a material count would be
// more informative but adds no contract coverage this stand-in needs).
func (m *mctsLiteLearner) randomRollout(position *rules.Position, mover rules.Color) float64 {
	current := position
	for i := 0; i < m.rolloutDepth; i++ {
		result := rules.IsTerminal(current)
		if result.Status == rules.Checkmate {
			if result.Winner == mover {
				return 1
			}
			return -1
		}
		if result.Status != rules.Ongoing {
			return 0
		}
		legal := rules.LegalMoves(current, current.SideToMove)
		if len(legal) == 0 {
			return 0
		}
		current = rules.ApplyMove(current, legal[rand.Intn(len(legal))])
	}
	return 0
}

func (m *mctsLiteLearner) SelectMove(position *rules.Position, legalMoves []rules.Move, isTraining bool) rules.Move {
	if len(legalMoves) == 0 {
		return rules.Move{}
	}

	mover := position.SideToMove
	best := legalMoves[0]
	bestAvg := math64MinValue
	for _, move := range legalMoves {
		next := rules.ApplyMove(position, move)
		total := 0.0
		for r := 0; r < m.rolloutCount; r++ {
			total += m.randomRollout(next, mover)
		}
		avg := total / float64(m.rolloutCount)

		key := board.Hash(next)
		m.mu.Lock()
		s := m.stats[key]
		s.Visits++
		s.Total += avg
		m.stats[key] = s
		m.mu.Unlock()

		if avg > bestAvg {
			bestAvg = avg
			best = move
		}
	}
	return best
}

const math64MinValue = -1e18

func (m *mctsLiteLearner) StartTraining(cfg TrainConfig) {
	m.runTrainingLoop(cfg, m, m.update)
}

func (m *mctsLiteLearner) StopTraining() { m.stopTrainingLoop() }

func (m *mctsLiteLearner) update(traj replay.Trajectory) {
	m.steps.Add(uint64(len(traj)))
}

func (m *mctsLiteLearner) AddHumanGame(traj replay.Trajectory, outcome float64) {
	m.steps.Add(uint64(len(traj)))
}

type mctsLiteSnapshot struct {
	baseSnapshot
	Stats map[string]rolloutStats `json:"stats"`
}

func (m *mctsLiteLearner) SaveSnapshot(w io.Writer) error {
	m.mu.Lock()
	stats := make(map[string]rolloutStats, len(m.stats))
	for k, v := range m.stats {
		stats[k] = v
	}
	snap := mctsLiteSnapshot{baseSnapshot: m.snapshot(), Stats: stats}
	m.mu.Unlock()
	return json.NewEncoder(w).Encode(snap)
}

func (m *mctsLiteLearner) LoadSnapshot(r io.Reader) error {
	var snap mctsLiteSnapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return err
	}
	m.restore(snap.baseSnapshot)
	m.mu.Lock()
	if snap.Stats != nil {
		m.stats = snap.Stats
	}
	m.mu.Unlock()
	return nil
}

func (m *mctsLiteLearner) Metrics() map[string]float64 {
	mm := m.baseMetrics()
	m.mu.Lock()
	mm["visitedStates"] = float64(len(m.stats))
	m.mu.Unlock()
	return mm
}
