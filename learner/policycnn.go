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
	Register("policycnn", newPolicyCNNLearner)
}

// policyCNNLearner stands in for the convolutional policy head spec
// §4.5 names: the bitplane tensor is reduced by one learned per-plane
// weight (a 1x1 "convolution" over the 12 planes, the cheapest
// dimensionality-preserving stand-in for a real conv stack) into a
// single per-square activation map, which scores each candidate move by
// its destination square.
type policyCNNLearner struct {
	baseLearner

	codec *board.Codec
	lr    float64

	mu          sync.Mutex
	planeWeight []float64
}

func newPolicyCNNLearner(cfg config.LearnerConfig) Learner {
	p := &policyCNNLearner{
		baseLearner: newBaseLearner("policycnn"),
		codec:       board.NewCodec(board.ShapeBitplanes, board.ActionExtended),
		lr:          cfg.GetHyperParamOrDefault("learningRate", 0.01),
		planeWeight: make([]float64, 12),
	}
	for i := range p.planeWeight {
		p.planeWeight[i] = (rand.Float64() - 0.5) * 0.1
	}
	return p
}

// activationMap collapses the 12x8x8 tensor into a 64-length per-square
// score using the learned per-plane weights.
func (p *policyCNNLearner) activationMap(position *rules.Position) []float64 {
	tensor := p.codec.Encode(position)
	p.mu.Lock()
	weights := append([]float64(nil), p.planeWeight...)
	p.mu.Unlock()

	scores := make([]float64, 64)
	for plane := 0; plane < 12; plane++ {
		base := plane * 64
		for sq := 0; sq < 64; sq++ {
			scores[sq] += tensor.Data[base+sq] * weights[plane]
		}
	}
	return scores
}

func (p *policyCNNLearner) SelectMove(position *rules.Position, legalMoves []rules.Move, isTraining bool) rules.Move {
	if len(legalMoves) == 0 {
		return rules.Move{}
	}
	if isTraining && rand.Float64() < 0.1 {
		return legalMoves[rand.Intn(len(legalMoves))]
	}

	scores := p.activationMap(position)
	best := legalMoves[0]
	bestScore := scores[best.To.Row*8+best.To.Col]
	for _, m := range legalMoves[1:] {
		if s := scores[m.To.Row*8+m.To.Col]; s > bestScore {
			bestScore = s
			best = m
		}
	}
	return best
}

func (p *policyCNNLearner) StartTraining(cfg TrainConfig) {
	p.runTrainingLoop(cfg, p, p.update)
}

func (p *policyCNNLearner) StopTraining() { p.stopTrainingLoop() }

func (p *policyCNNLearner) update(traj replay.Trajectory) {
	for _, step := range traj {
		p.gradientStep(step.Position, step.Move, step.Reward)
		p.steps.Add(1)
	}
}

func (p *policyCNNLearner) gradientStep(position *rules.Position, move rules.Move, reward float64) {
	tensor := p.codec.Encode(position)
	toIdx := move.To.Row*8 + move.To.Col

	p.mu.Lock()
	defer p.mu.Unlock()
	for plane := 0; plane < 12; plane++ {
		activation := tensor.Data[plane*64+toIdx]
		p.planeWeight[plane] += p.lr * reward * activation
	}
}

func (p *policyCNNLearner) AddHumanGame(traj replay.Trajectory, outcome float64) {
	for _, step := range traj {
		p.gradientStep(step.Position, step.Move, outcome)
	}
}

type policyCNNSnapshot struct {
	baseSnapshot
	PlaneWeight []float64 `json:"planeWeight"`
}

func (p *policyCNNLearner) SaveSnapshot(w io.Writer) error {
	p.mu.Lock()
	snap := policyCNNSnapshot{baseSnapshot: p.snapshot(), PlaneWeight: append([]float64(nil), p.planeWeight...)}
	p.mu.Unlock()
	return json.NewEncoder(w).Encode(snap)
}

func (p *policyCNNLearner) LoadSnapshot(r io.Reader) error {
	var snap policyCNNSnapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return err
	}
	p.restore(snap.baseSnapshot)
	p.mu.Lock()
	if snap.PlaneWeight != nil {
		p.planeWeight = snap.PlaneWeight
	}
	p.mu.Unlock()
	return nil
}

func (p *policyCNNLearner) Metrics() map[string]float64 {
	return p.baseMetrics()
}
