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
	Register("duelingdqn", newDuelingDQNLearner)
}

// duelingDQNLearner is the one learner kind spec §4.5 explicitly marks as
// a Replay Store consumer. The full distributional (51-atom categorical)
// double-DQN target is out of algorithmic scope; what survives is the
// shape that exercises every piece named in the table: a replay buffer
// fed n-step-aggregated transitions, sampled with importance weights, and
// a value/advantage parameter pair touched by every sampled update.
type duelingDQNLearner struct {
	baseLearner

	codec  *board.Codec
	lr     float64
	nStep  int
	buffer *replay.Buffer

	mu           sync.Mutex
	valueWeights []float64
	advWeights   []float64
}

func newDuelingDQNLearner(cfg config.LearnerConfig) Learner {
	capacity := cfg.ReplayCapacity
	if capacity <= 0 {
		capacity = 10000
	}
	d := &duelingDQNLearner{
		baseLearner:  newBaseLearner("duelingdqn"),
		codec:        board.NewCodec(board.ShapeFlat, board.ActionSimple),
		lr:           cfg.GetHyperParamOrDefault("learningRate", 0.01),
		nStep:        3,
		buffer:       replay.NewBuffer(capacity, cfg.GetHyperParamOrDefault("alpha", 0.6), cfg.GetHyperParamOrDefault("beta", 0.4)),
		valueWeights: make([]float64, 64),
		advWeights:   make([]float64, 64),
	}
	for i := range d.valueWeights {
		d.valueWeights[i] = (rand.Float64() - 0.5) * 0.1
		d.advWeights[i] = (rand.Float64() - 0.5) * 0.1
	}
	return d
}

func (d *duelingDQNLearner) qValue(position *rules.Position) float64 {
	tensor := d.codec.Encode(position)
	d.mu.Lock()
	defer d.mu.Unlock()
	value, advantage := 0.0, 0.0
	for i, x := range tensor.Data {
		if i < len(d.valueWeights) {
			value += x * d.valueWeights[i]
			advantage += x * d.advWeights[i]
		}
	}
	return value + advantage
}

func (d *duelingDQNLearner) SelectMove(position *rules.Position, legalMoves []rules.Move, isTraining bool) rules.Move {
	if len(legalMoves) == 0 {
		return rules.Move{}
	}
	if isTraining && rand.Float64() < 0.1 {
		return legalMoves[rand.Intn(len(legalMoves))]
	}

	best := legalMoves[0]
	bestValue := d.qValue(rules.ApplyMove(position, best))
	for _, m := range legalMoves[1:] {
		if v := d.qValue(rules.ApplyMove(position, m)); v > bestValue {
			bestValue = v
			best = m
		}
	}
	return best
}

func (d *duelingDQNLearner) StartTraining(cfg TrainConfig) {
	d.runTrainingLoop(cfg, d, d.onEpisode)
}

func (d *duelingDQNLearner) StopTraining() { d.stopTrainingLoop() }

// onEpisode stores each step (n-step return aggregated over d.nStep
// transitions) in the replay buffer, then runs one sampled gradient
// update pass, per the "Replay Store (prioritized)" facility column.
func (d *duelingDQNLearner) onEpisode(traj replay.Trajectory) {
	for i, step := range traj {
		nStepReturn := 0.0
		steps := 0
		for j := i; j < len(traj) && steps < d.nStep; j++ {
			nStepReturn += math.Pow(0.99, float64(steps)) * traj[j].Reward
			steps++
		}
		// The n-step aggregate is folded into Reward before storing, since
		// the buffer persists a plain TrajectoryStep; StepCount travels
		// alongside it via the discount already baked into nStepReturn.
		step.Reward = nStepReturn
		d.buffer.Store(step, 1.0+math.Abs(nStepReturn))
		d.steps.Add(1)
	}

	if d.buffer.Size() == 0 {
		return
	}
	batch := d.buffer.Sample(minInt(32, d.buffer.Size()))
	for i, exp := range batch.Experiences {
		target := exp.Reward
		if !exp.Terminal {
			target += 0.99 * d.qValue(exp.NextPosition)
		}
		d.gradientStep(exp.Position, target, batch.Weights[i])
		d.buffer.UpdatePriority(exp.ID, math.Abs(target)+1e-3)
	}
}

func (d *duelingDQNLearner) gradientStep(position *rules.Position, target, weight float64) {
	tensor := d.codec.Encode(position)
	d.mu.Lock()
	defer d.mu.Unlock()
	predicted := 0.0
	for i, x := range tensor.Data {
		if i < len(d.valueWeights) {
			predicted += x*d.valueWeights[i] + x*d.advWeights[i]
		}
	}
	err := weight * (target - predicted)
	for i, x := range tensor.Data {
		if i < len(d.valueWeights) {
			d.valueWeights[i] += d.lr * err * x * 0.5
			d.advWeights[i] += d.lr * err * x * 0.5
		}
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func (d *duelingDQNLearner) AddHumanGame(traj replay.Trajectory, outcome float64) {
	for _, step := range traj {
		step.Reward = outcome
		d.buffer.Store(step, 1.0)
	}
}

type duelingDQNSnapshot struct {
	baseSnapshot
	ValueWeights []float64 `json:"valueWeights"`
	AdvWeights   []float64 `json:"advWeights"`
}

func (d *duelingDQNLearner) SaveSnapshot(w io.Writer) error {
	d.mu.Lock()
	snap := duelingDQNSnapshot{
		baseSnapshot: d.snapshot(),
		ValueWeights: append([]float64(nil), d.valueWeights...),
		AdvWeights:   append([]float64(nil), d.advWeights...),
	}
	d.mu.Unlock()
	return json.NewEncoder(w).Encode(snap)
}

func (d *duelingDQNLearner) LoadSnapshot(r io.Reader) error {
	var snap duelingDQNSnapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return err
	}
	d.restore(snap.baseSnapshot)
	d.mu.Lock()
	if snap.ValueWeights != nil {
		d.valueWeights = snap.ValueWeights
	}
	if snap.AdvWeights != nil {
		d.advWeights = snap.AdvWeights
	}
	d.mu.Unlock()
	return nil
}

func (d *duelingDQNLearner) Metrics() map[string]float64 {
	m := d.baseMetrics()
	m["bufferSize"] = float64(d.buffer.Size())
	return m
}
