package learner

import (
	"encoding/json"
	"io"
	"math/rand"
	"sort"
	"sync"

	"chessai/board"
	"chessai/config"
	"chessai/replay"
	"chessai/rules"
)

func init() {
	Register("evolutionary", newEvolutionaryLearner)
}

type individual struct {
	Weights []float64 `json:"weights"`
	Fitness float64   `json:"fitness"`
}

// evolutionaryLearner is the fixed-size population spec §4.5 names:
// tournament selection, Gaussian mutation, and elitism across a
// population of flat weight vectors, each scored by the self-play
// episode it plays while "active". A full round-robin pairwise
// tournament is approximated by rotating which individual plays each
// self-play episode and evolving the population once every
// populationSize episodes, since a genuine pairwise tournament would
// require two learners playing each other rather than one self-play
// driver.
type evolutionaryLearner struct {
	baseLearner

	codec       *board.Codec
	mutationStd float64
	eliteCount  int

	mu            sync.Mutex
	population    []individual
	activeIdx     int
	roundEpisodes int
}

func newEvolutionaryLearner(cfg config.LearnerConfig) Learner {
	populationSize := int(cfg.GetHyperParamOrDefault("populationSize", 8))
	if populationSize < 2 {
		populationSize = 2
	}
	eliteCount := int(cfg.GetHyperParamOrDefault("eliteCount", 2))
	if eliteCount < 1 {
		eliteCount = 1
	}
	if eliteCount >= populationSize {
		eliteCount = populationSize - 1
	}

	population := make([]individual, populationSize)
	for i := range population {
		population[i] = individual{Weights: randomWeights(64)}
	}

	return &evolutionaryLearner{
		baseLearner: newBaseLearner("evolutionary"),
		codec:       board.NewCodec(board.ShapeFlat, board.ActionSimple),
		mutationStd: cfg.GetHyperParamOrDefault("mutationStd", 0.05),
		eliteCount:  eliteCount,
		population:  population,
	}
}

func randomWeights(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = (rand.Float64() - 0.5) * 0.1
	}
	return w
}

func (e *evolutionaryLearner) score(weights []float64, position *rules.Position) float64 {
	tensor := e.codec.Encode(position)
	sum := 0.0
	for i, x := range tensor.Data {
		if i < len(weights) {
			sum += x * weights[i]
		}
	}
	return sum
}

func (e *evolutionaryLearner) activeWeights() []float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.population[e.activeIdx].Weights
}

func (e *evolutionaryLearner) SelectMove(position *rules.Position, legalMoves []rules.Move, isTraining bool) rules.Move {
	if len(legalMoves) == 0 {
		return rules.Move{}
	}
	weights := e.activeWeights()

	best := legalMoves[0]
	bestScore := e.score(weights, rules.ApplyMove(position, best))
	for _, m := range legalMoves[1:] {
		if s := e.score(weights, rules.ApplyMove(position, m)); s > bestScore {
			bestScore = s
			best = m
		}
	}
	return best
}

func (e *evolutionaryLearner) StartTraining(cfg TrainConfig) {
	e.runTrainingLoop(cfg, e, e.onEpisode)
}

func (e *evolutionaryLearner) StopTraining() { e.stopTrainingLoop() }

func (e *evolutionaryLearner) onEpisode(traj replay.Trajectory) {
	reward := 0.0
	if len(traj) > 0 {
		reward = traj[len(traj)-1].Reward
	}
	e.steps.Add(uint64(len(traj)))

	e.mu.Lock()
	defer e.mu.Unlock()

	ind := &e.population[e.activeIdx]
	ind.Fitness = ind.Fitness + 0.1*(reward-ind.Fitness)

	e.roundEpisodes++
	if e.roundEpisodes >= len(e.population) {
		e.evolveLocked()
		e.roundEpisodes = 0
	}
	e.activeIdx = (e.activeIdx + 1) % len(e.population)
}

// evolveLocked performs tournament selection, mutation, and elitism over
// the current population. Caller must hold e.mu.
func (e *evolutionaryLearner) evolveLocked() {
	ranked := append([]individual(nil), e.population...)
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].Fitness > ranked[j].Fitness })

	next := make([]individual, 0, len(e.population))
	for i := 0; i < e.eliteCount; i++ {
		next = append(next, individual{
			Weights: append([]float64(nil), ranked[i].Weights...),
			Fitness: ranked[i].Fitness,
		})
	}

	for len(next) < len(e.population) {
		a := ranked[rand.Intn(len(ranked))]
		b := ranked[rand.Intn(len(ranked))]
		winner := a
		if b.Fitness > a.Fitness {
			winner = b
		}
		next = append(next, individual{Weights: mutate(winner.Weights, e.mutationStd), Fitness: winner.Fitness})
	}
	e.population = next
}

func mutate(weights []float64, std float64) []float64 {
	child := make([]float64, len(weights))
	for i, w := range weights {
		child[i] = w + rand.NormFloat64()*std
	}
	return child
}

func (e *evolutionaryLearner) AddHumanGame(traj replay.Trajectory, outcome float64) {
	e.mu.Lock()
	ind := &e.population[e.activeIdx]
	ind.Fitness = ind.Fitness + 0.1*(outcome-ind.Fitness)
	e.mu.Unlock()
	e.steps.Add(uint64(len(traj)))
}

type evolutionarySnapshot struct {
	baseSnapshot
	Population []individual `json:"population"`
	ActiveIdx  int          `json:"activeIdx"`
}

func (e *evolutionaryLearner) SaveSnapshot(w io.Writer) error {
	e.mu.Lock()
	population := make([]individual, len(e.population))
	for i, ind := range e.population {
		population[i] = individual{
			Weights: append([]float64(nil), ind.Weights...),
			Fitness: ind.Fitness,
		}
	}
	snap := evolutionarySnapshot{
		baseSnapshot: e.snapshot(),
		Population:   population,
		ActiveIdx:    e.activeIdx,
	}
	e.mu.Unlock()
	return json.NewEncoder(w).Encode(snap)
}

func (e *evolutionaryLearner) LoadSnapshot(r io.Reader) error {
	var snap evolutionarySnapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return err
	}
	e.restore(snap.baseSnapshot)
	e.mu.Lock()
	if snap.Population != nil {
		e.population = snap.Population
		e.activeIdx = snap.ActiveIdx % len(e.population)
	}
	e.mu.Unlock()
	return nil
}

func (e *evolutionaryLearner) Metrics() map[string]float64 {
	m := e.baseMetrics()
	e.mu.Lock()
	best := e.population[0].Fitness
	for _, ind := range e.population {
		if ind.Fitness > best {
			best = ind.Fitness
		}
	}
	m["populationSize"] = float64(len(e.population))
	m["bestFitness"] = best
	e.mu.Unlock()
	return m
}
