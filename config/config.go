// Package config loads the runtime's configuration the way the teacher's
// reinforcement.FromYaml does: an outer viper-read envelope whose "def"
// payload is re-marshaled and unmarshaled into a concrete struct. Viper
// is deliberately used as a one-shot reader per file rather than a global,
// per the teacher's own critique of viper's statefulness.
package config

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// outerEnvelope mirrors the teacher's OuterConfig: a kind tag plus an
// untyped payload that gets re-marshaled into the real config type.
type outerEnvelope struct {
	Kind string      `mapstructure:"kind"`
	Def  interface{} `mapstructure:"def"`
}

// HyperParameter is a single named training hyperparameter, following the
// teacher's TrainingConfig.HyperParams shape.
type HyperParameter struct {
	Key string  `yaml:"key"`
	Val float64 `yaml:"val"`
}

// LearnerConfig carries the per-kind knobs a learner factory reads at
// start_training time (spec §4.5, §4.8).
type LearnerConfig struct {
	Kind           string           `yaml:"kind"`
	HyperParams    []HyperParameter `yaml:"hyperParams"`
	EpisodeBudget  uint64           `yaml:"episodeBudget"`
	ReplayCapacity int              `yaml:"replayCapacity"`
}

// GetHyperParamOrDefault returns the named hyperparameter or a default,
// exactly as the teacher's TrainingConfig does.
func (lc *LearnerConfig) GetHyperParamOrDefault(param string, defaultVal float64) float64 {
	for _, kvp := range lc.HyperParams {
		if kvp.Key == param {
			return kvp.Val
		}
	}
	return defaultVal
}

// RuntimeConfig is the top-level `ai.*` configuration from spec §6.
type RuntimeConfig struct {
	Enabled              []string        `yaml:"enabled"`
	StateDir             string          `yaml:"stateDir"`
	PeriodicSaveMinutes  int             `yaml:"periodicSaveMinutes"`
	MoveTimeoutSeconds   int             `yaml:"moveTimeoutSeconds"`
	StopTimeoutSeconds   int             `yaml:"stopTimeoutSeconds"`
	AsyncIO              bool            `yaml:"asyncIo"`
	ReplayCapacity       int             `yaml:"replayCapacity"`
	A3CWorkers           int             `yaml:"a3cWorkers"`
	A3CSyncFrequency     int             `yaml:"a3cSyncFrequency"`
	LogLevel             string          `yaml:"logLevel"`
	Learners             []LearnerConfig `yaml:"learners"`
	TrainingDeadline     map[string]string `yaml:"trainingDeadline"`
}

// Default returns the spec §6 defaults.
func Default() *RuntimeConfig {
	return &RuntimeConfig{
		StateDir:            "./state",
		PeriodicSaveMinutes: 30,
		MoveTimeoutSeconds:  30,
		StopTimeoutSeconds:  5,
		AsyncIO:             true,
		ReplayCapacity:      10000,
		A3CWorkers:          maxInt(2, runtime.NumCPU()/2),
		A3CSyncFrequency:    50,
		LogLevel:            "info",
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// FromYaml loads a RuntimeConfig from path, following the teacher's
// envelope -> re-marshal -> unmarshal two-step.
func FromYaml(path string) (*RuntimeConfig, error) {
	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")
	vp.AddConfigPath(filepath.Dir(path))

	if err := vp.ReadInConfig(); err != nil {
		return nil, err
	}

	envelope := &outerEnvelope{}
	if err := vp.Unmarshal(envelope); err != nil {
		return nil, err
	}

	spec, err := yaml.Marshal(envelope.Def)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(spec, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ResolvedLearners determines the set of learners the Training Coordinator
// should construct, honoring `ai.enabled` (spec §6: "set of learner kinds
// to instantiate") as the authoritative enabled set whenever it is
// non-empty: each enabled kind is matched against a `learners:` entry of
// the same kind for its hyperparameters, or given a zero-value
// LearnerConfig{Kind: kind} if `learners:` never mentions it. When
// `ai.enabled` is empty, every entry under `learners:` is enabled — the
// config's own `learners:` block doubles as the enabled set, so configs
// written before `ai.enabled` existed keep behaving exactly as they did.
// A kind repeated in `learners:` or in `ai.enabled` is a ConfigurationError
// (spec §7: "fatal at startup only"), not a silent last-one-wins collapse,
// per spec §4.5's "error to enable two learners with the same kind."
//
// The runtime-level `ai.replayCapacity` is applied as each resolved
// learner's default when its own `replayCapacity` is unset, and
// `ai.a3c.workers`/`ai.a3c.syncFrequency` are injected as the "workers"/
// "syncFrequency" hyperparameters for the "a3c" kind specifically, unless
// that learner's own hyperParams already name them — the per-learner
// hyperparameter always wins over the runtime-wide default.
func (cfg *RuntimeConfig) ResolvedLearners() ([]LearnerConfig, error) {
	byKind := make(map[string]LearnerConfig, len(cfg.Learners))
	for _, lc := range cfg.Learners {
		if _, dup := byKind[lc.Kind]; dup {
			return nil, fmt.Errorf("config: duplicate learner kind %q in learners", lc.Kind)
		}
		byKind[lc.Kind] = lc
	}

	kinds := cfg.Enabled
	if len(kinds) == 0 {
		kinds = make([]string, 0, len(cfg.Learners))
		for _, lc := range cfg.Learners {
			kinds = append(kinds, lc.Kind)
		}
	}

	seen := make(map[string]bool, len(kinds))
	resolved := make([]LearnerConfig, 0, len(kinds))
	for _, kind := range kinds {
		if seen[kind] {
			return nil, fmt.Errorf("config: duplicate learner kind %q in enabled", kind)
		}
		seen[kind] = true

		lc, ok := byKind[kind]
		if !ok {
			lc = LearnerConfig{Kind: kind}
		}
		if lc.ReplayCapacity <= 0 {
			lc.ReplayCapacity = cfg.ReplayCapacity
		}
		if kind == "a3c" {
			lc.HyperParams = withA3CDefaults(lc.HyperParams, cfg.A3CWorkers, cfg.A3CSyncFrequency)
		}
		resolved = append(resolved, lc)
	}
	return resolved, nil
}

func withA3CDefaults(params []HyperParameter, workers, syncFrequency int) []HyperParameter {
	hasWorkers, hasSync := false, false
	for _, p := range params {
		switch p.Key {
		case "workers":
			hasWorkers = true
		case "syncFrequency":
			hasSync = true
		}
	}
	out := append([]HyperParameter(nil), params...)
	if !hasWorkers && workers > 0 {
		out = append(out, HyperParameter{Key: "workers", Val: float64(workers)})
	}
	if !hasSync && syncFrequency > 0 {
		out = append(out, HyperParameter{Key: "syncFrequency", Val: float64(syncFrequency)})
	}
	return out
}

// WithTrainingDeadline extends ctx by the configured duration, if any,
// exactly as the teacher's TrainingConfig.WithTrainingDeadline does.
func (cfg *RuntimeConfig) WithTrainingDeadline(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if val, ok := cfg.TrainingDeadline["duration"]; ok {
		duration, err := time.ParseDuration(val)
		if err != nil {
			return nil, nil, err
		}
		innerCtx, cancel := context.WithTimeout(ctx, duration)
		return innerCtx, cancel, nil
	}
	innerCtx, cancel := context.WithCancel(ctx)
	return innerCtx, cancel, nil
}
