package learner

import (
	"encoding/json"
	"io"
	"math"
	"math/rand"
	"sync"

	"chessai/board"
	"chessai/config"
	"chessai/replay"
	"chessai/rules"
)

func init() {
	Register("dualhead", newDualHeadLearner)
}

// dualHeadLearner stands in for the Leela-style separate policy/value
// networks spec §4.5 names, plus its temperature schedule: policy scores
// are softmax-sampled at a temperature that anneals toward zero (greedy)
// as episodes accumulate, the attention-style "rescoring on legal moves"
// reduced to a temperature-controlled softmax over per-move policy
// weights rather than a full attention mechanism.
type dualHeadLearner struct {
	baseLearner

	codec *board.Codec
	lr    float64

	mu            sync.Mutex
	policyWeights []float64
	valueWeights  []float64
}

func newDualHeadLearner(cfg config.LearnerConfig) Learner {
	d := &dualHeadLearner{
		baseLearner:   newBaseLearner("dualhead"),
		codec:         board.NewCodec(board.ShapeFlat, board.ActionSimple),
		lr:            cfg.GetHyperParamOrDefault("learningRate", 0.01),
		policyWeights: make([]float64, 64),
		valueWeights:  make([]float64, 64),
	}
	for i := range d.policyWeights {
		d.policyWeights[i] = (rand.Float64() - 0.5) * 0.1
		d.valueWeights[i] = (rand.Float64() - 0.5) * 0.1
	}
	return d
}

func (d *dualHeadLearner) policyScore(position *rules.Position) float64 {
	tensor := d.codec.Encode(position)
	d.mu.Lock()
	defer d.mu.Unlock()
	sum := 0.0
	for i, x := range tensor.Data {
		if i < len(d.policyWeights) {
			sum += x * d.policyWeights[i]
		}
	}
	return sum
}

// temperature decays from 1.0 toward a floor of 0.05 as episodes increase.
func (d *dualHeadLearner) temperature() float64 {
	episodes := float64(d.episodes.Load())
	t := 1.0 / (1.0 + episodes/500.0)
	if t < 0.05 {
		return 0.05
	}
	return t
}

func (d *dualHeadLearner) SelectMove(position *rules.Position, legalMoves []rules.Move, isTraining bool) rules.Move {
	if len(legalMoves) == 0 {
		return rules.Move{}
	}

	temperature := 0.05
	if isTraining {
		temperature = d.temperature()
	}

	scores := make([]float64, len(legalMoves))
	maxScore := math.Inf(-1)
	for i, move := range legalMoves {
		scores[i] = d.policyScore(rules.ApplyMove(position, move))
		if scores[i] > maxScore {
			maxScore = scores[i]
		}
	}

	weights := make([]float64, len(legalMoves))
	total := 0.0
	for i, s := range scores {
		weights[i] = math.Exp((s - maxScore) / temperature)
		total += weights[i]
	}

	if !isTraining || temperature <= 0.05 {
		best := 0
		for i := range scores {
			if scores[i] > scores[best] {
				best = i
			}
		}
		return legalMoves[best]
	}

	target := rand.Float64() * total
	running := 0.0
	for i, w := range weights {
		running += w
		if running >= target {
			return legalMoves[i]
		}
	}
	return legalMoves[len(legalMoves)-1]
}

func (d *dualHeadLearner) StartTraining(cfg TrainConfig) {
	d.runTrainingLoop(cfg, d, d.update)
}

func (d *dualHeadLearner) StopTraining() { d.stopTrainingLoop() }

func (d *dualHeadLearner) update(traj replay.Trajectory) {
	for _, step := range traj {
		d.gradientStep(step.Position, step.Reward)
		d.steps.Add(1)
	}
}

func (d *dualHeadLearner) gradientStep(position *rules.Position, target float64) {
	tensor := d.codec.Encode(position)
	d.mu.Lock()
	defer d.mu.Unlock()
	predicted := 0.0
	for i, x := range tensor.Data {
		if i < len(d.valueWeights) {
			predicted += x * d.valueWeights[i]
		}
	}
	err := target - predicted
	for i, x := range tensor.Data {
		if i < len(d.valueWeights) {
			d.valueWeights[i] += d.lr * err * x
			d.policyWeights[i] += d.lr * err * x * 0.5
		}
	}
}

func (d *dualHeadLearner) AddHumanGame(traj replay.Trajectory, outcome float64) {
	for _, step := range traj {
		d.gradientStep(step.Position, outcome)
	}
}

type dualHeadSnapshot struct {
	baseSnapshot
	PolicyWeights []float64 `json:"policyWeights"`
	ValueWeights  []float64 `json:"valueWeights"`
}

func (d *dualHeadLearner) SaveSnapshot(w io.Writer) error {
	d.mu.Lock()
	snap := dualHeadSnapshot{
		baseSnapshot:  d.snapshot(),
		PolicyWeights: append([]float64(nil), d.policyWeights...),
		ValueWeights:  append([]float64(nil), d.valueWeights...),
	}
	d.mu.Unlock()
	return json.NewEncoder(w).Encode(snap)
}

func (d *dualHeadLearner) LoadSnapshot(r io.Reader) error {
	var snap dualHeadSnapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return err
	}
	d.restore(snap.baseSnapshot)
	d.mu.Lock()
	if snap.PolicyWeights != nil {
		d.policyWeights = snap.PolicyWeights
	}
	if snap.ValueWeights != nil {
		d.valueWeights = snap.ValueWeights
	}
	d.mu.Unlock()
	return nil
}

func (d *dualHeadLearner) Metrics() map[string]float64 {
	m := d.baseMetrics()
	m["temperature"] = d.temperature()
	return m
}
