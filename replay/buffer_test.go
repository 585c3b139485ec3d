package replay

import (
	"testing"

	"chessai/rules"

	. "github.com/smartystreets/goconvey/convey"
)

func dummyStep(reward float64) TrajectoryStep {
	pos := rules.NewGame()
	return TrajectoryStep{Position: pos, Reward: reward, NextPosition: pos}
}

func TestBufferEvictsOldestOnOverflow(t *testing.T) {
	Convey("Given a buffer of capacity 2", t, func() {
		b := NewBuffer(2, 0.6, 0.4)

		firstID := b.Store(dummyStep(1), 1.0)
		b.Store(dummyStep(2), 1.0)
		So(b.Size(), ShouldEqual, 2)

		Convey("Storing a third entry evicts the first", func() {
			b.Store(dummyStep(3), 1.0)
			So(b.Size(), ShouldEqual, 2)
			So(b.UpdatePriority(firstID, 5.0), ShouldBeFalse)
		})
	})
}

func TestStoreClampsPriorityToEpsilon(t *testing.T) {
	Convey("Given a buffer", t, func() {
		b := NewBuffer(4, 0.6, 0.4)

		Convey("Storing at a non-positive priority clamps to epsilon", func() {
			id := b.Store(dummyStep(1), -3.0)
			all := b.IterAll()
			So(len(all), ShouldEqual, 1)
			So(all[0].ID, ShouldEqual, id)
			So(all[0].Priority, ShouldEqual, priorityEpsilon)
		})
	})
}

func TestUpdatePriorityClampsAndReportsMissingIDs(t *testing.T) {
	Convey("Given a buffer with one entry", t, func() {
		b := NewBuffer(4, 0.6, 0.4)
		id := b.Store(dummyStep(1), 1.0)

		Convey("Updating the known id succeeds and clamps below epsilon", func() {
			So(b.UpdatePriority(id, -1.0), ShouldBeTrue)
			So(b.IterAll()[0].Priority, ShouldEqual, priorityEpsilon)
		})

		Convey("Updating an unknown id reports false", func() {
			So(b.UpdatePriority(id+100, 1.0), ShouldBeFalse)
		})
	})
}

func TestSampleReturnsRequestedCountAndNormalizedWeights(t *testing.T) {
	Convey("Given a buffer with several entries of differing priority", t, func() {
		b := NewBuffer(8, 0.6, 0.4)
		for i := 0; i < 5; i++ {
			b.Store(dummyStep(float64(i)), float64(i+1))
		}

		Convey("Sample(3) returns 3 experiences with weights in (0,1]", func() {
			s := b.Sample(3)
			So(len(s.Experiences), ShouldEqual, 3)
			So(len(s.Weights), ShouldEqual, 3)
			maxSeen := 0.0
			for _, w := range s.Weights {
				So(w, ShouldBeGreaterThan, 0)
				So(w, ShouldBeLessThanOrEqualTo, 1.0)
				if w > maxSeen {
					maxSeen = w
				}
			}
			So(maxSeen, ShouldEqual, 1.0)
		})
	})
}

func TestSampleOnEmptyBufferReturnsEmptyResult(t *testing.T) {
	Convey("Given an empty buffer", t, func() {
		b := NewBuffer(4, 0.6, 0.4)

		Convey("Sample returns no experiences", func() {
			s := b.Sample(3)
			So(s.Experiences, ShouldBeEmpty)
		})
	})
}

func TestIterAllReflectsCurrentContents(t *testing.T) {
	Convey("Given a buffer with two stored entries", t, func() {
		b := NewBuffer(4, 0.6, 0.4)
		b.Store(dummyStep(1), 1.0)
		b.Store(dummyStep(2), 1.0)

		Convey("IterAll returns exactly those entries", func() {
			So(len(b.IterAll()), ShouldEqual, 2)
		})
	})
}
