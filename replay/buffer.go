// Package replay is the C6 Replay/Experience Store: a bounded, prioritized
// sampling buffer shared by the RL learner kinds that need one (spec
// §4.6). The buffer is single-owner, not concurrent — each learner worker
// that needs replay constructs and owns its own Buffer; nothing in this
// package synchronizes access, by spec's own design.
package replay

import (
	"math"
	"math/rand"
	"sort"

	"chessai/rules"
)

// priorityEpsilon is the minimum priority spec §4.6 requires
// update_priority (and store) to clamp to.
const priorityEpsilon = 1e-6

// TrajectoryStep is one quintuple of a Trajectory, per spec §3.
type TrajectoryStep struct {
	Position     *rules.Position
	Move         rules.Move
	Reward       float64
	NextPosition *rules.Position
	Terminal     bool
}

// Trajectory is the ordered sequence a Self-Play episode produces.
type Trajectory []TrajectoryStep

// Experience is a replay entry: a TrajectoryStep plus the bookkeeping
// fields spec §3 names for prioritized, n-step learners.
type Experience struct {
	TrajectoryStep
	ID          uint64
	Priority    float64
	NStepReturn float64
	StepCount   int
}

// Buffer is the fixed-capacity C prioritized circular buffer. Insertion
// order drives FIFO eviction (spec invariant 5); an id->slot index keeps
// UpdatePriority O(1) by experience id.
type Buffer struct {
	capacity int
	alpha    float64
	beta     float64

	slots    []*Experience
	idToSlot map[uint64]int
	nextSlot int
	nextID   uint64
	size     int
}

// NewBuffer constructs a Buffer of the given capacity. alpha controls how
// strongly priority skews sampling (0 = uniform); beta controls the
// strength of the importance-weight correction and may be annealed
// externally by re-constructing or via SetBeta.
func NewBuffer(capacity int, alpha, beta float64) *Buffer {
	return &Buffer{
		capacity: capacity,
		alpha:    alpha,
		beta:     beta,
		slots:    make([]*Experience, capacity),
		idToSlot: make(map[uint64]int, capacity),
	}
}

// SetBeta updates the importance-weight exponent, for external annealing
// schedules (spec §4.6: "β may be annealed externally").
func (b *Buffer) SetBeta(beta float64) { b.beta = beta }

func clampPriority(p float64) float64 {
	if p < priorityEpsilon {
		return priorityEpsilon
	}
	return p
}

// Store inserts step at the given priority, evicting the oldest entry by
// insertion order if the buffer is full, and returns the new entry's id.
func (b *Buffer) Store(step TrajectoryStep, priority float64) uint64 {
	priority = clampPriority(priority)
	id := b.nextID
	b.nextID++

	slot := b.nextSlot
	if old := b.slots[slot]; old != nil {
		delete(b.idToSlot, old.ID)
	} else {
		b.size++
	}

	b.slots[slot] = &Experience{TrajectoryStep: step, ID: id, Priority: priority}
	b.idToSlot[id] = slot
	b.nextSlot = (b.nextSlot + 1) % b.capacity

	return id
}

// Size returns the current number of stored experiences.
func (b *Buffer) Size() int { return b.size }

// UpdatePriority sets a new priority for id, clamped to [ε, ∞), reporting
// whether id was found (it may already have been evicted).
func (b *Buffer) UpdatePriority(id uint64, priority float64) bool {
	slot, ok := b.idToSlot[id]
	if !ok {
		return false
	}
	b.slots[slot].Priority = clampPriority(priority)
	return true
}

// Sample is the result of a Sample(k) draw.
type Sample struct {
	Experiences []*Experience
	Weights     []float64
	IDs         []uint64
}

// Sample draws k experiences with probability proportional to
// priority^alpha, returning normalized importance weights
// w_i = (N*p_i)^-beta / max(w). The cumulative distribution is rebuilt
// fresh on every call (O(C)); each of the k draws then binary-searches it
// in O(log C), which is the dominant per-draw cost spec §4.6 names.
func (b *Buffer) Sample(k int) Sample {
	if b.size == 0 || k <= 0 {
		return Sample{}
	}

	cumulative := make([]float64, 0, b.size)
	exps := make([]*Experience, 0, b.size)
	running := 0.0
	for _, exp := range b.slots {
		if exp == nil {
			continue
		}
		running += math.Pow(exp.Priority, b.alpha)
		cumulative = append(cumulative, running)
		exps = append(exps, exp)
	}
	total := running

	result := Sample{
		Experiences: make([]*Experience, 0, k),
		Weights:     make([]float64, 0, k),
		IDs:         make([]uint64, 0, k),
	}

	rawWeights := make([]float64, 0, k)
	maxWeight := 0.0
	for i := 0; i < k; i++ {
		target := rand.Float64() * total
		idx := sort.SearchFloat64s(cumulative, target)
		if idx >= len(cumulative) {
			idx = len(cumulative) - 1
		}
		prob := math.Pow(exps[idx].Priority, b.alpha) / total
		w := math.Pow(float64(b.size)*prob, -b.beta)
		rawWeights = append(rawWeights, w)
		if w > maxWeight {
			maxWeight = w
		}
		result.Experiences = append(result.Experiences, exps[idx])
		result.IDs = append(result.IDs, exps[idx].ID)
	}

	for _, w := range rawWeights {
		if maxWeight > 0 {
			result.Weights = append(result.Weights, w/maxWeight)
		} else {
			result.Weights = append(result.Weights, 0)
		}
	}
	return result
}

// IterAll returns a snapshot slice of every stored experience, for
// persistence (spec §4.6's iter_all).
func (b *Buffer) IterAll() []*Experience {
	out := make([]*Experience, 0, b.size)
	for _, exp := range b.slots {
		if exp != nil {
			out = append(out, exp)
		}
	}
	return out
}
