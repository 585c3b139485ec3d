package checkpoint

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSaveThenLoadRoundTripsPlainFile(t *testing.T) {
	Convey("Given a Manager and a plain (uncompressed) path", t, func() {
		dir := t.TempDir()
		m := NewManager(false, 4)
		path := filepath.Join(dir, "qtable.state")

		Convey("Save then Load returns the original bytes", func() {
			So(m.Save("qtable", []byte("hello world"), path), ShouldBeNil)
			data, err := m.Load(path)
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, "hello world")
		})
	})
}

func TestSaveThenLoadRoundTripsGzipPath(t *testing.T) {
	Convey("Given a .gz path", t, func() {
		dir := t.TempDir()
		m := NewManager(false, 4)
		path := filepath.Join(dir, "valuenet.state.gz")

		Convey("the stored bytes decompress back to the original", func() {
			So(m.Save("valuenet", []byte("some weights blob"), path), ShouldBeNil)
			data, err := m.Load(path)
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, "some weights blob")
		})
	})
}

func TestSaveThenLoadRoundTripsZipPath(t *testing.T) {
	Convey("Given a .zip path", t, func() {
		dir := t.TempDir()
		m := NewManager(false, 4)
		path := filepath.Join(dir, "dualhead.state.zip")

		Convey("the stored bytes decompress back to the original", func() {
			So(m.Save("dualhead", []byte("another blob"), path), ShouldBeNil)
			data, err := m.Load(path)
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, "another blob")
		})
	})
}

func TestLoadWithWrongSchemaVersionReturnsIncompatible(t *testing.T) {
	Convey("Given a checkpoint written with a newer schema version", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "qtable.state")

		raw := make([]byte, 8)
		raw[0], raw[1], raw[2], raw[3] = 0x4C, 0x43, 0x50, 0x31
		raw[4], raw[5] = 0x00, 0x02 // schemaVersion = 2, Manager expects 1
		So(os.WriteFile(path, raw, 0o644), ShouldBeNil)

		m := NewManager(false, 4)
		Convey("Load returns ErrIncompatible", func() {
			_, err := m.Load(path)
			So(err, ShouldEqual, ErrIncompatible)
		})
	})
}

func TestLoadWithGarbageBytesReturnsCorruptAndRenamesAside(t *testing.T) {
	Convey("Given a file that isn't a valid checkpoint", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "qtable.state")
		So(os.WriteFile(path, []byte("not a checkpoint"), 0o644), ShouldBeNil)

		m := NewManager(false, 4)
		Convey("Load returns ErrCorrupt and the original file no longer exists at path", func() {
			_, err := m.Load(path)
			So(err, ShouldEqual, ErrCorrupt)

			_, statErr := os.Stat(path)
			So(os.IsNotExist(statErr), ShouldBeTrue)
		})
	})
}

func TestMarkDirtyAndClearDirtyTrackIndependently(t *testing.T) {
	Convey("Given a fresh Manager", t, func() {
		m := NewManager(false, 4)

		Convey("MarkDirty then DirtyKinds reports it, ClearDirty removes it", func() {
			m.MarkDirty("qtable")
			So(m.IsDirty("qtable"), ShouldBeTrue)
			So(m.DirtyKinds(), ShouldContain, "qtable")

			m.ClearDirty("qtable")
			So(m.IsDirty("qtable"), ShouldBeFalse)
		})
	})
}

func TestSaveClearsDirtyFlagOnSuccess(t *testing.T) {
	Convey("Given a dirty kind", t, func() {
		dir := t.TempDir()
		m := NewManager(false, 4)
		m.MarkDirty("qtable")

		Convey("a successful Save clears the flag", func() {
			So(m.Save("qtable", []byte("x"), filepath.Join(dir, "q.state")), ShouldBeNil)
			So(m.IsDirty("qtable"), ShouldBeFalse)
		})
	})
}

func TestSaveAsyncReturnsBackpressureWhenQueueFull(t *testing.T) {
	Convey("Given an async Manager whose one-slot queue is full and not being drained", t, func() {
		dir := t.TempDir()
		m := NewManager(true, 1)
		m.Shutdown() // stop the worker pool so nothing drains the queue

		m.queue <- saveRequest{kind: "blocker", data: nil, path: filepath.Join(dir, "blocker.state")}

		Convey("a further SaveAsync call returns ErrBackpressure", func() {
			err := m.SaveAsync("qtable", []byte("x"), filepath.Join(dir, "q.state"))
			So(err, ShouldEqual, ErrBackpressure)
		})
	})
}

func TestPeriodicSaverDrainsDirtyKindsOnTick(t *testing.T) {
	Convey("Given a PeriodicSaver with a short interval and one dirty kind", t, func() {
		dir := t.TempDir()
		m := NewManager(false, 4)
		m.MarkDirty("qtable")

		saver := NewPeriodicSaver(m, 10*time.Millisecond,
			func(kind string) ([]byte, error) { return []byte("snapshot-" + kind), nil },
			func(kind string) string { return filepath.Join(dir, kind+".state") },
		)
		saver.Start()

		Convey("the dirty kind gets saved and cleared, and Stop returns without hanging", func() {
			deadline := time.Now().Add(500 * time.Millisecond)
			for m.IsDirty("qtable") && time.Now().Before(deadline) {
				time.Sleep(5 * time.Millisecond)
			}
			So(m.IsDirty("qtable"), ShouldBeFalse)

			data, err := os.ReadFile(filepath.Join(dir, "qtable.state"))
			So(err, ShouldBeNil)
			decoded, err := decode(filepath.Join(dir, "qtable.state"), data)
			So(err, ShouldBeNil)
			So(string(decoded), ShouldEqual, "snapshot-qtable")

			So(func() { saver.Stop() }, ShouldNotPanic)
		})
	})
}

func TestPeriodicSaverStopWithoutStartDoesNotHang(t *testing.T) {
	Convey("Given a PeriodicSaver that was never started", t, func() {
		m := NewManager(false, 4)
		saver := NewPeriodicSaver(m, time.Hour, nil, nil)

		Convey("Stop returns immediately", func() {
			So(func() { saver.Stop() }, ShouldNotPanic)
		})
	})
}
