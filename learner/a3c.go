package learner

import (
	"encoding/json"
	"io"
	"math/rand"
	"sync"

	"chessai/atomicstate"
	"chessai/board"
	"chessai/config"
	"chessai/replay"
	"chessai/rules"
)

func init() {
	Register("a3c", newA3CLearner)
}

// a3cLearner is the sole kind spec §4.5 names as both a Self-Play Driver
// consumer and a parameter-sync-lock owner: N local workers each run
// their own self-play episodes (via baseLearner.runTrainingLoopN) and
// fold their gradient into one mutex-guarded shared weight vector, the
// same "N workers, one lock around shared parameter blobs" shape spec
// describes, with GAE(λ=0.95,γ=0.99) advantages and a decaying entropy
// coefficient standing in for the real actor-critic loss.
type a3cLearner struct {
	baseLearner

	codec         *board.Codec
	lr            float64
	workers       int
	gamma         float64
	gaeLambda     float64
	syncFrequency int

	entropy     atomicstate.Float64
	syncCounter atomicstate.Counter

	globalMu sync.Mutex
	weights  []float64
}

func newA3CLearner(cfg config.LearnerConfig) Learner {
	a := &a3cLearner{
		baseLearner:   newBaseLearner("a3c"),
		codec:         board.NewCodec(board.ShapeFlat, board.ActionSimple),
		lr:            cfg.GetHyperParamOrDefault("learningRate", 0.01),
		workers:       int(cfg.GetHyperParamOrDefault("workers", 4)),
		gamma:         0.99,
		gaeLambda:     0.95,
		syncFrequency: int(cfg.GetHyperParamOrDefault("syncFrequency", 50)),
		weights:       make([]float64, 64),
	}
	a.entropy.Set(cfg.GetHyperParamOrDefault("entropy", 0.1))
	for i := range a.weights {
		a.weights[i] = (rand.Float64() - 0.5) * 0.1
	}
	if a.workers < 1 {
		a.workers = 1
	}
	return a
}

func (a *a3cLearner) valueEstimate(position *rules.Position) float64 {
	tensor := a.codec.Encode(position)
	a.globalMu.Lock()
	defer a.globalMu.Unlock()
	sum := 0.0
	for i, x := range tensor.Data {
		if i < len(a.weights) {
			sum += x * a.weights[i]
		}
	}
	return sum
}

func (a *a3cLearner) SelectMove(position *rules.Position, legalMoves []rules.Move, isTraining bool) rules.Move {
	if len(legalMoves) == 0 {
		return rules.Move{}
	}
	if isTraining && rand.Float64() < a.entropy.Load() {
		return legalMoves[rand.Intn(len(legalMoves))]
	}

	best := legalMoves[0]
	bestValue := a.valueEstimate(rules.ApplyMove(position, best))
	for _, m := range legalMoves[1:] {
		if v := a.valueEstimate(rules.ApplyMove(position, m)); v > bestValue {
			bestValue = v
			best = m
		}
	}
	return best
}

func (a *a3cLearner) StartTraining(cfg TrainConfig) {
	a.runTrainingLoopN(cfg, a.workers, a, a.onEpisode)
}

func (a *a3cLearner) StopTraining() { a.stopTrainingLoop() }

// onEpisode computes GAE(λ,γ) advantages backward over the trajectory and
// applies one gradient step per ply against the shared weight vector,
// then, every syncFrequency calls, decays the entropy coefficient.
func (a *a3cLearner) onEpisode(traj replay.Trajectory) {
	advantages := make([]float64, len(traj))
	runningGAE := 0.0
	nextValue := 0.0
	for i := len(traj) - 1; i >= 0; i-- {
		value := a.valueEstimate(traj[i].Position)
		next := nextValue
		if traj[i].Terminal {
			next = 0
		}
		delta := traj[i].Reward + a.gamma*next - value
		runningGAE = delta + a.gamma*a.gaeLambda*runningGAE
		advantages[i] = runningGAE
		nextValue = value
	}

	for i, step := range traj {
		a.gradientStep(step.Position, advantages[i])
		a.steps.Add(1)
	}

	if n := a.syncCounter.Add(1); int(n)%a.syncFrequency == 0 {
		a.decayEntropy()
	}
}

func (a *a3cLearner) gradientStep(position *rules.Position, advantage float64) {
	tensor := a.codec.Encode(position)
	a.globalMu.Lock()
	defer a.globalMu.Unlock()
	for i, x := range tensor.Data {
		if i < len(a.weights) {
			a.weights[i] += a.lr * advantage * x
		}
	}
}

func (a *a3cLearner) decayEntropy() {
	current := a.entropy.Load()
	next := current * 0.98
	if next < 0.01 {
		next = 0.01
	}
	a.entropy.Set(next)
}

func (a *a3cLearner) AddHumanGame(traj replay.Trajectory, outcome float64) {
	for _, step := range traj {
		a.gradientStep(step.Position, outcome)
	}
}

type a3cSnapshot struct {
	baseSnapshot
	Weights []float64 `json:"weights"`
	Entropy float64   `json:"entropy"`
}

func (a *a3cLearner) SaveSnapshot(w io.Writer) error {
	a.globalMu.Lock()
	snap := a3cSnapshot{
		baseSnapshot: a.snapshot(),
		Weights:      append([]float64(nil), a.weights...),
		Entropy:      a.entropy.Load(),
	}
	a.globalMu.Unlock()
	return json.NewEncoder(w).Encode(snap)
}

func (a *a3cLearner) LoadSnapshot(r io.Reader) error {
	var snap a3cSnapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return err
	}
	a.restore(snap.baseSnapshot)
	a.globalMu.Lock()
	if snap.Weights != nil {
		a.weights = snap.Weights
	}
	a.globalMu.Unlock()
	a.entropy.Set(snap.Entropy)
	return nil
}

func (a *a3cLearner) Metrics() map[string]float64 {
	m := a.baseMetrics()
	m["entropy"] = a.entropy.Load()
	m["workers"] = float64(a.workers)
	return m
}
