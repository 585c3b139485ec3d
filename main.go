/*
chessai is the AI orchestration and training runtime for a chess
application that hosts a heterogeneous stable of learning and search
engines. This binary wires the runtime's process-wide singletons
(configuration, opening book, checkpoint manager, training coordinator)
and drives a single live game loop against whichever learner a turn's
configuration names, falling back through the tactical arbiter and a
deterministic move when a learner times out.

The WebSocket transport, REST surface, and UI that would normally sit in
front of this runtime are explicitly out of scope (spec §1); this binary
performs the same process-start wiring a server would, minus the
network-facing layer.
*/
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chessai/arbiter"
	"chessai/config"
	"chessai/coordinator"
	"chessai/dispatch"
	"chessai/learner"
	"chessai/logx"
	"chessai/quality"
	"chessai/rules"
	"chessai/virtualgame"
)

var (
	configPath = flag.String("config", "", "path to ai.yaml configuration (defaults built-in if omitted)")
	trainFlag  = flag.Bool("train", false, "start training on boot and run until interrupted")
	playFlag   = flag.Bool("play", false, "run an interactive move-dispatch loop reading FEN lines from stdin")
)

func main() {
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.FromYaml(*configPath)
		if err != nil {
			logx.Errorf("main: loading config %s: %v", *configPath, err)
			os.Exit(1)
		}
		cfg = loaded
	}
	logx.SetLevel(cfg.LogLevel)

	if err := os.MkdirAll(cfg.StateDir, 0o755); err != nil {
		logx.Errorf("main: creating state dir %s: %v", cfg.StateDir, err)
		os.Exit(1)
	}

	book, err := virtualgame.OpenOpeningBook(cfg.StateDir + "/openingbook")
	if err != nil {
		logx.Warnf("main: opening book unavailable, self-play will use the standard position: %v", err)
		book = nil
	} else {
		defer book.Close()
	}

	coord, err := coordinator.New(cfg, book)
	if err != nil {
		logx.Errorf("main: constructing coordinator: %v", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	switch {
	case *trainFlag:
		logx.Infof("main: starting training for %d enabled learner kinds", len(coord.Learners()))
		coord.StartTraining()
		<-sigCh
		logx.Infof("main: shutdown signal received, stopping training")
		coord.Shutdown()
		printQuality(coord)
	case *playFlag:
		runPlayLoop(cfg, coord)
	default:
		// Training in the background while serving moves on demand is the
		// runtime's normal operating mode; the network front end that would
		// drive move requests is out of scope here, so the default mode
		// just reports readiness and waits for a signal.
		coord.StartTraining()
		logx.Infof("main: runtime ready, state dir %s, %d learners enabled", cfg.StateDir, len(coord.Learners()))
		<-sigCh
		coord.Shutdown()
	}
}

// runPlayLoop reads one FEN per line from stdin, dispatches a move using
// the first enabled learner kind plus the tactical arbiter, and prints the
// result. It never starts training; it is a narrow CLI stand-in for the
// REST surface spec §1 places out of scope.
func runPlayLoop(cfg *config.RuntimeConfig, coord *coordinator.Coordinator) {
	resolved, err := cfg.ResolvedLearners()
	if err != nil || len(resolved) == 0 {
		logx.Errorf("main: -play requires at least one enabled learner")
		os.Exit(1)
	}
	kind := resolved[0].Kind
	l, ok := coord.Learner(kind)
	if !ok {
		logx.Errorf("main: learner %q not constructed", kind)
		os.Exit(1)
	}

	moveTimeout := time.Duration(cfg.MoveTimeoutSeconds) * time.Second

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		pos, err := rules.ParseFEN(line)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		legal := rules.LegalMoves(pos, pos.SideToMove)
		if len(legal) == 0 {
			fmt.Println("no legal moves")
			continue
		}
		if defense, found := arbiter.BestDefense(pos, legal, pos.SideToMove); found {
			logx.Infof("main: arbiter found severity %s for this position", defense.Severity)
		}
		move := dispatch.SelectMove(l, pos, legal, pos.SideToMove, moveTimeout)
		fmt.Printf("%s\n", move)
	}
}

// printQuality runs one offline quality pass and logs each learner's
// score. Calling it right after Shutdown is safe because the Quality
// Reporter's contract forbids mutating learner state or triggering a save
// (spec §4.11) — there is nothing left for it to revive.
func printQuality(coord *coordinator.Coordinator) {
	learners := coord.Learners()
	sources := make(map[string]learner.MetricsSource, len(learners))
	for kind, l := range learners {
		sources[kind] = l
	}

	reporter := quality.NewReporter(coord.StateDir())
	report, err := reporter.Generate(sources)
	if err != nil {
		logx.Warnf("main: quality report: %v", err)
		return
	}
	for _, lr := range report.Learners {
		logx.Infof("main: quality %s score=%.1f", lr.Kind, lr.Score)
	}
}
