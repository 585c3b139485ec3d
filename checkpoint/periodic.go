package checkpoint

import (
	"sync"
	"time"

	"chessai/atomicstate"
	"chessai/logx"
)

// PeriodicSaver drains the Manager's dirty-flag table on a fixed interval
// (spec §4.9: "every 30 minutes, configurable"), asking snapshot for an
// independent, deep-copied view of each dirty kind's state before saving it.
type PeriodicSaver struct {
	manager  *Manager
	interval time.Duration
	snapshot func(kind string) ([]byte, error)
	pathFor  func(kind string) string

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	startOnce sync.Once
	started   atomicstate.Bool
}

// NewPeriodicSaver constructs a saver. snapshot must return a copy of kind's
// state independent of subsequent mutations; pathFor maps a kind to its
// checkpoint file path.
func NewPeriodicSaver(manager *Manager, interval time.Duration, snapshot func(string) ([]byte, error), pathFor func(string) string) *PeriodicSaver {
	return &PeriodicSaver{
		manager:  manager,
		interval: interval,
		snapshot: snapshot,
		pathFor:  pathFor,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the periodic loop in its own goroutine. Calling Start more
// than once has no additional effect.
func (p *PeriodicSaver) Start() {
	p.startOnce.Do(func() {
		p.started.Store(true)
		go func() {
			defer close(p.done)
			ticker := time.NewTicker(p.interval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					p.runOnce()
				case <-p.stop:
					return
				}
			}
		}()
	})
}

func (p *PeriodicSaver) runOnce() {
	for _, kind := range p.manager.DirtyKinds() {
		data, err := p.snapshot(kind)
		if err != nil {
			logx.Errorf("checkpoint: periodic snapshot of %s failed: %v", kind, err)
			continue
		}
		if err := p.manager.Save(kind, data, p.pathFor(kind)); err != nil {
			logx.Errorf("checkpoint: periodic save of %s failed: %v", kind, err)
		}
	}
}

// Stop interrupts the periodic loop and waits for it to exit. Safe to call
// more than once and safe to call on a saver that was never started.
func (p *PeriodicSaver) Stop() {
	p.closeOnce.Do(func() { close(p.stop) })
	if p.started.Load() {
		<-p.done
	}
}
