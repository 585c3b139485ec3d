package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"chessai/logx"
)

// Manager is the process-wide checkpoint facility spec §4.9 names: a single
// public save/load surface fronting a synchronous atomic-rename path and an
// optional bounded-queue async path, plus the dirty-flag table the periodic
// saver drains.
type Manager struct {
	asyncIO   bool
	queueSize int

	dirty sync.Map // kind string -> struct{}

	queue     chan saveRequest
	workersWG sync.WaitGroup
	stopOnce  sync.Once
	stopCh    chan struct{}
}

type saveRequest struct {
	kind string
	data []byte
	path string
}

// NewManager constructs a Manager. asyncIO enables the async path and
// starts its worker pool; queueSize bounds the pending-save queue.
func NewManager(asyncIO bool, queueSize int) *Manager {
	if queueSize <= 0 {
		queueSize = 32
	}
	m := &Manager{
		asyncIO:   asyncIO,
		queueSize: queueSize,
		queue:     make(chan saveRequest, queueSize),
		stopCh:    make(chan struct{}),
	}
	if asyncIO {
		m.startWorkers(2)
	}
	return m
}

func (m *Manager) startWorkers(n int) {
	for i := 0; i < n; i++ {
		m.workersWG.Add(1)
		go func() {
			defer m.workersWG.Done()
			for {
				select {
				case req, ok := <-m.queue:
					if !ok {
						return
					}
					if err := m.writeAtomic(req.kind, req.data, req.path); err != nil {
						logx.Errorf("checkpoint: async save of %s failed: %v", req.kind, err)
						continue
					}
					m.ClearDirty(req.kind)
				case <-m.stopCh:
					return
				}
			}
		}()
	}
}

// MarkDirty records that kind has unsaved state worth persisting.
func (m *Manager) MarkDirty(kind string) { m.dirty.Store(kind, struct{}{}) }

// ClearDirty clears kind's dirty flag after a successful save.
func (m *Manager) ClearDirty(kind string) { m.dirty.Delete(kind) }

// IsDirty reports whether kind has a pending, unsaved mutation.
func (m *Manager) IsDirty(kind string) bool {
	_, ok := m.dirty.Load(kind)
	return ok
}

// DirtyKinds returns the kinds currently marked dirty.
func (m *Manager) DirtyKinds() []string {
	var kinds []string
	m.dirty.Range(func(k, _ interface{}) bool {
		kinds = append(kinds, k.(string))
		return true
	})
	return kinds
}

// Save performs the synchronous save path: write-to-scratch, fsync, atomic
// rename, with retry-with-backoff (3 attempts, base 100ms, doubling) for
// the supplemented IoFailure behavior.
func (m *Manager) Save(kind string, data []byte, path string) error {
	var err error
	backoff := 100 * time.Millisecond
	for attempt := 1; attempt <= 3; attempt++ {
		if err = m.writeAtomic(kind, data, path); err == nil {
			m.ClearDirty(kind)
			return nil
		}
		if attempt < 3 {
			logx.Warnf("checkpoint: save of %s failed (attempt %d/3): %v", kind, attempt, err)
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	return fmt.Errorf("checkpoint: save of %s failed after 3 attempts: %w", kind, err)
}

// SaveAsync enqueues a save for the worker pool. If the queue is full, it
// returns ErrBackpressure immediately and performs no save; the caller is
// expected to fall back to Save.
func (m *Manager) SaveAsync(kind string, data []byte, path string) error {
	if !m.asyncIO {
		return m.Save(kind, data, path)
	}
	select {
	case m.queue <- saveRequest{kind: kind, data: data, path: path}:
		return nil
	default:
		return ErrBackpressure
	}
}

// writeAtomic encodes data and writes it via scratch-file + fsync + rename.
func (m *Manager) writeAtomic(kind string, data []byte, path string) error {
	encoded, err := encode(kind, path, data)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	scratch := fmt.Sprintf("%s.tmp.%d.%d", path, os.Getpid(), time.Now().UnixNano())
	f, err := os.OpenFile(scratch, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(encoded); err != nil {
		f.Close()
		os.Remove(scratch)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(scratch)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(scratch)
		return err
	}
	if err := os.Rename(scratch, path); err != nil {
		os.Remove(scratch)
		return err
	}
	return nil
}

// Load reads and decodes a checkpoint. On schema mismatch it returns
// ErrIncompatible; on any other decode failure it renames the file aside
// (path.corrupt.<epoch>) and returns ErrCorrupt.
func (m *Manager) Load(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data, err := decode(path, raw)
	if err == nil {
		return data, nil
	}
	if err == ErrIncompatible {
		return nil, ErrIncompatible
	}
	corruptPath := fmt.Sprintf("%s.corrupt.%d", path, time.Now().Unix())
	if renameErr := os.Rename(path, corruptPath); renameErr != nil {
		logx.Errorf("checkpoint: failed to rename corrupt file %s aside: %v", path, renameErr)
	}
	return nil, ErrCorrupt
}

// DrainQueue discards any save requests currently queued on the async
// path without executing them, per spec §4.8 step 2 ("cancels any queued
// async save operations"). Requests already handed to a worker are not
// affected.
func (m *Manager) DrainQueue() {
	for {
		select {
		case <-m.queue:
		default:
			return
		}
	}
}

// Shutdown stops the async worker pool, if running, and waits for
// in-flight saves to finish.
func (m *Manager) Shutdown() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	m.workersWG.Wait()
}
