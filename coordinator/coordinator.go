// Package coordinator implements the process-wide training coordinator
// spec §4.8 names: it starts and stops one worker goroutine per enabled
// learner kind, runs the periodic checkpoint saver, and enforces the
// single-run invariant (repeated start/stop while already in that state is
// a logged no-op).
package coordinator

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"

	"chessai/atomicstate"
	"chessai/checkpoint"
	"chessai/config"
	"chessai/learner"
	"chessai/logx"
	"chessai/virtualgame"
)

// workerHandle is the coordinator's record of one running training worker.
// The map holding these is mutated only by the coordinator goroutine
// (start_training/stop_training callers), per spec's ownership rule; the
// fields themselves are channels, safe to read from any goroutine.
type workerHandle struct {
	kind string
	stop chan struct{}
	exit chan string // closed, carrying kind, when the worker goroutine returns
}

// Coordinator is the process-wide singleton state spec §4.8 describes.
type Coordinator struct {
	cfg              *config.RuntimeConfig
	resolvedLearners []config.LearnerConfig
	checkpointMgr    *checkpoint.Manager
	learners         map[string]learner.Learner
	book             *virtualgame.OpeningBook

	active           atomicstate.Bool
	stopRequested    atomicstate.Bool
	shutdownFinished atomicstate.Bool

	mu             sync.Mutex
	perKindThreads map[string]*workerHandle
	periodicSaver  *checkpoint.PeriodicSaver

	stopTimeout            time.Duration
	finalCheckpointTimeout time.Duration
}

// New constructs a Coordinator and its learners from cfg. book may be nil;
// self-play then always starts from the standard position.
func New(cfg *config.RuntimeConfig, book *virtualgame.OpeningBook) (*Coordinator, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	resolvedLearners, err := cfg.ResolvedLearners()
	if err != nil {
		return nil, fmt.Errorf("coordinator: %w", err)
	}

	learners := make(map[string]learner.Learner, len(resolvedLearners))
	for _, lc := range resolvedLearners {
		l, err := learner.New(lc)
		if err != nil {
			return nil, fmt.Errorf("coordinator: constructing learner %q: %w", lc.Kind, err)
		}
		learners[lc.Kind] = l
	}

	c := &Coordinator{
		cfg:                    cfg,
		resolvedLearners:       resolvedLearners,
		checkpointMgr:          checkpoint.NewManager(cfg.AsyncIO, 64),
		learners:               learners,
		book:                   book,
		perKindThreads:         make(map[string]*workerHandle),
		stopTimeout:            5 * time.Second,
		finalCheckpointTimeout: 30 * time.Second,
	}
	if cfg.StopTimeoutSeconds > 0 {
		c.stopTimeout = time.Duration(cfg.StopTimeoutSeconds) * time.Second
	}

	c.periodicSaver = checkpoint.NewPeriodicSaver(
		c.checkpointMgr,
		periodicInterval(cfg.PeriodicSaveMinutes),
		c.snapshotKind,
		c.pathForKind,
	)
	return c, nil
}

func periodicInterval(minutes int) time.Duration {
	if minutes <= 0 {
		minutes = 30
	}
	return time.Duration(minutes) * time.Minute
}

func (c *Coordinator) pathForKind(kind string) string {
	return filepath.Join(c.cfg.StateDir, kind+".state")
}

// snapshotKind asks the named learner for an independent serialized view of
// its current state, satisfying the periodic saver's "must be independent
// of subsequent mutations" contract by relying on each learner's own
// snapshot/restore copy-out.
func (c *Coordinator) snapshotKind(kind string) ([]byte, error) {
	l, ok := c.learners[kind]
	if !ok {
		return nil, fmt.Errorf("coordinator: unknown learner kind %q", kind)
	}
	var buf bytes.Buffer
	if err := l.SaveSnapshot(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// IsActive reports whether training is currently running.
func (c *Coordinator) IsActive() bool { return c.active.Load() }

// StartTraining spawns one worker goroutine per enabled learner plus the
// periodic saver, and returns immediately. Calling it while already active
// is a logged no-op, per spec's single-run invariant.
func (c *Coordinator) StartTraining() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.shutdownFinished.Load() {
		logx.Warnf("coordinator: start_training called after shutdown, ignoring")
		return
	}
	if c.active.Load() {
		logx.Infof("coordinator: start_training called while already active, no-op")
		return
	}

	c.active.Store(true)
	c.stopRequested.Store(false)

	c.periodicSaver.Start()

	for kind, l := range c.learners {
		kind, l := kind, l
		lc := c.findLearnerConfig(kind)
		l.ClearDegraded()

		handle := &workerHandle{
			kind: kind,
			stop: make(chan struct{}),
			exit: make(chan string, 1),
		}
		c.perKindThreads[kind] = handle

		go func() {
			defer func() {
				handle.exit <- kind
				close(handle.exit)
			}()
			l.StartTraining(learner.TrainConfig{
				EpisodeBudget: lc.EpisodeBudget,
				StopToken:     handle.stop,
				OpeningBook:   c.book,
				MaxPlies:      200,
			})
		}()
	}

	go c.logWorkerExits()
}

func (c *Coordinator) findLearnerConfig(kind string) config.LearnerConfig {
	for _, lc := range c.resolvedLearners {
		if lc.Kind == kind {
			return lc
		}
	}
	return config.LearnerConfig{Kind: kind}
}

// logWorkerExits fans in every running worker's exit signal via
// channerics.Merge and logs each as it happens, giving an observable,
// single point of cross-kind training status independent of any one
// worker's own lifetime.
func (c *Coordinator) logWorkerExits() {
	c.mu.Lock()
	exits := make([]<-chan string, 0, len(c.perKindThreads))
	for _, h := range c.perKindThreads {
		exits = append(exits, h.exit)
	}
	c.mu.Unlock()

	never := make(chan struct{})
	merged := channerics.Merge(never, exits...)
	for kind := range merged {
		logx.Infof("coordinator: worker %s-Training exited", kind)
	}
}

// StopTraining runs spec §4.8's 6-step stop sequence. Calling it while not
// active is a logged no-op.
func (c *Coordinator) StopTraining() {
	c.mu.Lock()
	if !c.active.Load() {
		c.mu.Unlock()
		logx.Infof("coordinator: stop_training called while inactive, no-op")
		return
	}
	handles := make([]*workerHandle, 0, len(c.perKindThreads))
	for _, h := range c.perKindThreads {
		handles = append(handles, h)
	}
	c.mu.Unlock()

	// 1. stopRequested before active, so any observer polling active sees
	// the intent-to-stop flag first.
	c.stopRequested.Store(true)
	c.active.Store(false)

	// 2. Cancel queued async saves.
	c.checkpointMgr.DrainQueue()

	// 3. Interrupt the periodic saver.
	c.periodicSaver.Stop()

	// 4. Stop each learner under a bounded per-learner timeout.
	c.stopLearnersBounded(handles)

	// 5. Final synchronous checkpoint, outer-bounded.
	c.finalCheckpoint()

	// 6. Clear the thread map.
	c.mu.Lock()
	c.perKindThreads = make(map[string]*workerHandle)
	c.mu.Unlock()
}

// stopLearnersBounded calls learner.StopTraining() on every handle's
// learner concurrently, each under its own bounded context, so one hung
// learner cannot delay the others (grounded on the teacher's
// WithTrainingDeadline context pattern, generalized from one deadline to N
// concurrent bounded ones).
func (c *Coordinator) stopLearnersBounded(handles []*workerHandle) {
	g, _ := errgroup.WithContext(context.Background())
	for _, h := range handles {
		h := h
		l, ok := c.learners[h.kind]
		if !ok {
			continue
		}
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), c.stopTimeout)
			defer cancel()

			close(h.stop)
			done := make(chan struct{})
			go func() {
				l.StopTraining()
				close(done)
			}()

			select {
			case <-done:
			case <-ctx.Done():
				logx.Warnf("coordinator: learner %s did not stop within %s, abandoning", h.kind, c.stopTimeout)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// finalCheckpoint saves every learner's current state synchronously, bounded
// by an outer 30s timeout; on timeout it logs and returns without blocking
// the caller further.
func (c *Coordinator) finalCheckpoint() {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for kind := range c.learners {
			data, err := c.snapshotKind(kind)
			if err != nil {
				logx.Errorf("coordinator: final snapshot of %s failed: %v", kind, err)
				continue
			}
			if err := c.checkpointMgr.Save(kind, data, c.pathForKind(kind)); err != nil {
				logx.Errorf("coordinator: final checkpoint of %s failed: %v", kind, err)
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(c.finalCheckpointTimeout):
		logx.Warnf("coordinator: final checkpoint did not complete within %s, returning", c.finalCheckpointTimeout)
	}
}

// Shutdown runs the same sequence as StopTraining and additionally forbids
// any future start_training call.
func (c *Coordinator) Shutdown() {
	c.StopTraining()
	c.shutdownFinished.Store(true)
	c.checkpointMgr.Shutdown()
}

// Learner returns the named learner, for the Quality Reporter and Move
// Dispatcher to consume without a reverse dependency on this package.
func (c *Coordinator) Learner(kind string) (learner.Learner, bool) {
	l, ok := c.learners[kind]
	return l, ok
}

// Learners returns every configured learner, keyed by kind.
func (c *Coordinator) Learners() map[string]learner.Learner {
	return c.learners
}

// StateDir returns the configured checkpoint directory, for components
// (quality) that need to stat files alongside it.
func (c *Coordinator) StateDir() string { return c.cfg.StateDir }
