package learner

import (
	"sync"
	"sync/atomic"
	"time"

	"chessai/atomicstate"
	"chessai/logx"
	"chessai/replay"
	"chessai/selfplay"
)

// baseLearner carries the counters, status flag, and training-loop
// plumbing every concrete learner kind shares, grounded on the teacher's
// atomic_float.AtomicFloat64 CAS pattern (generalized into atomicstate)
// for the running averages, and on reinforcement/learning.go's
// agent_worker goroutine shape for the training loop itself.
type baseLearner struct {
	kind string

	episodes  atomicstate.Counter
	steps     atomicstate.Counter
	avgReward atomicstate.Float64
	degraded  atomicstate.Bool

	mu        sync.Mutex
	stop      chan struct{}
	done      chan struct{}
	closeStop *sync.Once
}

func newBaseLearner(kind string) baseLearner {
	return baseLearner{kind: kind}
}

func (b *baseLearner) Kind() string { return b.kind }

func (b *baseLearner) MarkDegraded()  { b.degraded.Store(true) }
func (b *baseLearner) ClearDegraded() { b.degraded.Store(false) }

// baseMetrics returns the fields every learner reports, for a concrete
// kind to extend with its own entries.
func (b *baseLearner) baseMetrics() map[string]float64 {
	status := float64(Healthy)
	if b.degraded.Load() {
		status = float64(Degraded)
	}
	return map[string]float64{
		"episodes":  float64(b.episodes.Load()),
		"steps":     float64(b.steps.Load()),
		"avgReward": b.avgReward.Load(),
		"status":    status,
	}
}

// recordEpisodeReward folds a completed episode's terminal reward into
// the running average, using the same incremental-mean update shape the
// teacher's estimator uses for its state-value table.
func (b *baseLearner) recordEpisodeReward(reward float64) {
	n := b.episodes.Load() + 1
	old := b.avgReward.Load()
	b.avgReward.Set(old + (reward-old)/float64(n))
}

// runTrainingLoop spawns the background worker that repeatedly plays a
// self-play episode via selector and hands the resulting trajectory to
// update, until cfg.EpisodeBudget episodes have run (0 = unbounded) or
// StopTraining is called. Calling it while already training is a no-op,
// matching spec §4.8's single-run invariant extended down to the learner
// level.
func (b *baseLearner) runTrainingLoop(cfg TrainConfig, selector selfplay.MoveSelector, update func(replay.Trajectory)) {
	b.mu.Lock()
	if b.stop != nil {
		b.mu.Unlock()
		logx.Warnf("learner[%s]: start_training called while already training, ignoring", b.kind)
		return
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	once := &sync.Once{}
	closeStop := func() { once.Do(func() { close(stop) }) }
	b.stop, b.done, b.closeStop = stop, done, once
	b.mu.Unlock()

	maxPlies := cfg.MaxPlies
	if maxPlies <= 0 {
		maxPlies = 512
	}

	// A single long-lived forwarder, not one per episode, relays an
	// externally supplied stop token onto the internal stop channel so
	// mid-episode cancellation works without leaking a goroutine per
	// episode played.
	if cfg.StopToken != nil {
		go func() {
			select {
			case <-cfg.StopToken:
				closeStop()
			case <-stop:
			}
		}()
	}

	go func() {
		defer close(done)
		var n uint64
		for cfg.EpisodeBudget == 0 || n < cfg.EpisodeBudget {
			select {
			case <-stop:
				return
			default:
			}

			traj := selfplay.RunEpisode(selector, cfg.OpeningBook, maxPlies, stop)
			update(traj)
			if len(traj) > 0 {
				b.recordEpisodeReward(traj[len(traj)-1].Reward)
			}
			b.episodes.Add(1)
			n++
		}
	}()
}

// runTrainingLoopN is runTrainingLoop generalized to n concurrent local
// workers sharing one episode budget, for A3C's "N local workers" design
// (spec §4.5). done closes only once every worker has exited.
func (b *baseLearner) runTrainingLoopN(cfg TrainConfig, n int, selector selfplay.MoveSelector, update func(replay.Trajectory)) {
	b.mu.Lock()
	if b.stop != nil {
		b.mu.Unlock()
		logx.Warnf("learner[%s]: start_training called while already training, ignoring", b.kind)
		return
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	once := &sync.Once{}
	closeStop := func() { once.Do(func() { close(stop) }) }
	b.stop, b.done, b.closeStop = stop, done, once
	b.mu.Unlock()

	maxPlies := cfg.MaxPlies
	if maxPlies <= 0 {
		maxPlies = 512
	}

	if cfg.StopToken != nil {
		go func() {
			select {
			case <-cfg.StopToken:
				closeStop()
			case <-stop:
			}
		}()
	}

	go func() {
		defer close(done)
		var completed uint64
		var wg sync.WaitGroup
		wg.Add(n)
		for i := 0; i < n; i++ {
			go func() {
				defer wg.Done()
				for {
					select {
					case <-stop:
						return
					default:
					}
					if cfg.EpisodeBudget != 0 && atomic.LoadUint64(&completed) >= cfg.EpisodeBudget {
						return
					}
					traj := selfplay.RunEpisode(selector, cfg.OpeningBook, maxPlies, stop)
					update(traj)
					if len(traj) > 0 {
						b.recordEpisodeReward(traj[len(traj)-1].Reward)
					}
					b.episodes.Add(1)
					atomic.AddUint64(&completed, 1)
				}
			}()
		}
		wg.Wait()
	}()
}

// stopTrainingLoop signals the worker and waits up to one second for it
// to exit, per spec §4.5's "must return promptly (<=1s after next safe
// point)".
func (b *baseLearner) stopTrainingLoop() {
	b.mu.Lock()
	stop, done, closeStop := b.stop, b.done, b.closeStop
	b.mu.Unlock()
	if stop == nil {
		return
	}

	closeStop()
	select {
	case <-done:
	case <-time.After(time.Second):
		logx.Warnf("learner[%s]: stop_training did not observe worker exit within 1s", b.kind)
	}

	b.mu.Lock()
	b.stop, b.done, b.closeStop = nil, nil, nil
	b.mu.Unlock()
}

// baseSnapshot is the portion of every learner's persisted state that
// base.go owns; a concrete learner's own envelope embeds this alongside
// its kind-specific fields.
type baseSnapshot struct {
	Episodes  uint64  `json:"episodes"`
	Steps     uint64  `json:"steps"`
	AvgReward float64 `json:"avgReward"`
	Degraded  bool    `json:"degraded"`
}

func (b *baseLearner) snapshot() baseSnapshot {
	return baseSnapshot{
		Episodes:  b.episodes.Load(),
		Steps:     b.steps.Load(),
		AvgReward: b.avgReward.Load(),
		Degraded:  b.degraded.Load(),
	}
}

// restore re-seeds the counters from a loaded snapshot. It assumes the
// receiver is freshly constructed (counters at zero), which is how every
// LoadSnapshot implementation in this package uses it.
func (b *baseLearner) restore(s baseSnapshot) {
	b.episodes.Add(s.Episodes)
	b.steps.Add(s.Steps)
	b.avgReward.Set(s.AvgReward)
	b.degraded.Store(s.Degraded)
}
