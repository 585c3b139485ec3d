package config

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestResolvedLearnersFallsBackToLearnersWhenEnabledIsEmpty(t *testing.T) {
	Convey("Given a config with no ai.enabled list", t, func() {
		cfg := Default()
		cfg.Learners = []LearnerConfig{{Kind: "qtable"}, {Kind: "valuenet"}}

		Convey("ResolvedLearners returns every learners: entry", func() {
			resolved, err := cfg.ResolvedLearners()
			So(err, ShouldBeNil)
			So(len(resolved), ShouldEqual, 2)
		})
	})
}

func TestResolvedLearnersHonorsEnabledAsTheAuthoritativeSet(t *testing.T) {
	Convey("Given ai.enabled naming a kind absent from learners:", t, func() {
		cfg := Default()
		cfg.Enabled = []string{"qtable", "mctslite"}
		cfg.Learners = []LearnerConfig{{Kind: "qtable", EpisodeBudget: 500}}

		Convey("ResolvedLearners instantiates both, defaulting the unconfigured one", func() {
			resolved, err := cfg.ResolvedLearners()
			So(err, ShouldBeNil)
			So(len(resolved), ShouldEqual, 2)

			byKind := map[string]LearnerConfig{}
			for _, lc := range resolved {
				byKind[lc.Kind] = lc
			}
			So(byKind["qtable"].EpisodeBudget, ShouldEqual, uint64(500))
			So(byKind["mctslite"].Kind, ShouldEqual, "mctslite")
		})

		Convey("a kind named only in learners:, not in enabled, is dropped", func() {
			cfg.Learners = append(cfg.Learners, LearnerConfig{Kind: "dualhead"})
			resolved, err := cfg.ResolvedLearners()
			So(err, ShouldBeNil)
			for _, lc := range resolved {
				So(lc.Kind, ShouldNotEqual, "dualhead")
			}
		})
	})
}

func TestResolvedLearnersRejectsDuplicateKinds(t *testing.T) {
	Convey("Given learners: with a repeated kind", t, func() {
		cfg := Default()
		cfg.Learners = []LearnerConfig{{Kind: "qtable"}, {Kind: "qtable"}}

		Convey("ResolvedLearners errors instead of collapsing them", func() {
			_, err := cfg.ResolvedLearners()
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Given ai.enabled with a repeated kind", t, func() {
		cfg := Default()
		cfg.Enabled = []string{"qtable", "qtable"}

		Convey("ResolvedLearners errors", func() {
			_, err := cfg.ResolvedLearners()
			So(err, ShouldNotBeNil)
		})
	})
}

func TestResolvedLearnersAppliesRuntimeDefaults(t *testing.T) {
	Convey("Given runtime-level replayCapacity and a3c settings", t, func() {
		cfg := Default()
		cfg.ReplayCapacity = 2048
		cfg.A3CWorkers = 6
		cfg.A3CSyncFrequency = 77
		cfg.Learners = []LearnerConfig{
			{Kind: "duelingdqn"},
			{Kind: "a3c"},
		}
		cfg.Enabled = nil

		Convey("an unset per-learner replayCapacity inherits the runtime default", func() {
			resolved, err := cfg.ResolvedLearners()
			So(err, ShouldBeNil)
			for _, lc := range resolved {
				if lc.Kind == "duelingdqn" {
					So(lc.ReplayCapacity, ShouldEqual, 2048)
				}
			}
		})

		Convey("the a3c kind inherits workers/syncFrequency as hyperparameters", func() {
			resolved, err := cfg.ResolvedLearners()
			So(err, ShouldBeNil)
			for _, lc := range resolved {
				if lc.Kind == "a3c" {
					So(lc.GetHyperParamOrDefault("workers", -1), ShouldEqual, 6)
					So(lc.GetHyperParamOrDefault("syncFrequency", -1), ShouldEqual, 77)
				}
			}
		})
	})
}
