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
	Register("valuenet", newValueNetLearner)
}

// valueNetLearner stands in for the single value-head regressor spec
// §4.5 names: a flat-tensor input reduced to one scalar by a fixed
// weight vector, trained by running MSE-gradient-style updates against
// the blended self-play/terminal signal. Full backprop is out of scope
// (spec §1); the weight vector is still a real parameter blob that
// round-trips through SaveSnapshot/LoadSnapshot and is touched by every
// update, exercising the whole contract.
type valueNetLearner struct {
	baseLearner

	codec *board.Codec
	lr    float64

	mu      sync.Mutex
	weights []float64
}

func newValueNetLearner(cfg config.LearnerConfig) Learner {
	v := &valueNetLearner{
		baseLearner: newBaseLearner("valuenet"),
		codec:       board.NewCodec(board.ShapeFlat, board.ActionSimple),
		lr:          cfg.GetHyperParamOrDefault("learningRate", 0.01),
		weights:     make([]float64, 64),
	}
	for i := range v.weights {
		v.weights[i] = (rand.Float64() - 0.5) * 0.1
	}
	return v
}

func (v *valueNetLearner) predict(position *rules.Position) float64 {
	tensor := v.codec.Encode(position)
	v.mu.Lock()
	defer v.mu.Unlock()
	sum := 0.0
	for i, x := range tensor.Data {
		if i < len(v.weights) {
			sum += x * v.weights[i]
		}
	}
	return sum
}

// SelectMove picks the legal move whose resulting position the value net
// rates highest for the side to move.
func (v *valueNetLearner) SelectMove(position *rules.Position, legalMoves []rules.Move, isTraining bool) rules.Move {
	if len(legalMoves) == 0 {
		return rules.Move{}
	}
	if isTraining && rand.Float64() < 0.1 {
		return legalMoves[rand.Intn(len(legalMoves))]
	}

	best := legalMoves[0]
	bestValue := v.predict(rules.ApplyMove(position, best))
	for _, m := range legalMoves[1:] {
		if val := v.predict(rules.ApplyMove(position, m)); val > bestValue {
			bestValue = val
			best = m
		}
	}
	return best
}

func (v *valueNetLearner) StartTraining(cfg TrainConfig) {
	v.runTrainingLoop(cfg, v, v.update)
}

func (v *valueNetLearner) StopTraining() { v.stopTrainingLoop() }

func (v *valueNetLearner) update(traj replay.Trajectory) {
	for _, step := range traj {
		target := step.Reward
		if !step.Terminal {
			target += v.predict(step.NextPosition)
		}
		v.gradientStep(step.Position, target)
		v.steps.Add(1)
	}
}

func (v *valueNetLearner) gradientStep(position *rules.Position, target float64) {
	tensor := v.codec.Encode(position)
	v.mu.Lock()
	defer v.mu.Unlock()
	predicted := 0.0
	for i, x := range tensor.Data {
		if i < len(v.weights) {
			predicted += x * v.weights[i]
		}
	}
	err := target - predicted
	for i, x := range tensor.Data {
		if i < len(v.weights) {
			v.weights[i] += v.lr * err * x
		}
	}
}

func (v *valueNetLearner) AddHumanGame(traj replay.Trajectory, outcome float64) {
	for _, step := range traj {
		v.gradientStep(step.Position, outcome)
	}
}

type valueNetSnapshot struct {
	baseSnapshot
	Weights []float64 `json:"weights"`
}

func (v *valueNetLearner) SaveSnapshot(w io.Writer) error {
	v.mu.Lock()
	snap := valueNetSnapshot{baseSnapshot: v.snapshot(), Weights: append([]float64(nil), v.weights...)}
	v.mu.Unlock()
	return json.NewEncoder(w).Encode(snap)
}

func (v *valueNetLearner) LoadSnapshot(r io.Reader) error {
	var snap valueNetSnapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return err
	}
	v.restore(snap.baseSnapshot)
	v.mu.Lock()
	if snap.Weights != nil {
		v.weights = snap.Weights
	}
	v.mu.Unlock()
	return nil
}

func (v *valueNetLearner) Metrics() map[string]float64 {
	return v.baseMetrics()
}
