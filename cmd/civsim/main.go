// Command civsim runs the civilization simulator from a scenario and
// prints the resulting world.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/talgya/civsim/internal/config"
	"github.com/talgya/civsim/internal/engine"
	"github.com/talgya/civsim/internal/persistence"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		slog.Error("civsim failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("civsim", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to a YAML scenario file")
	turns := fs.Int("turns", -1, "turns to play (overrides scenario)")
	years := fs.Int("years", 0, "years to play; adds 4 turns per year")
	safety := fs.String("safety", "", "true/false: use the lower consumption need")
	seed := fs.Int64("seed", 0, "seed for tile generation and spawning (overrides scenario)")
	dbPath := fs.String("db", "", "run history database path (overrides scenario; \"-\" disables)")
	tracePath := fs.String("trace", "", "turn trace output path (overrides scenario)")
	interval := fs.Duration("interval", -1, "delay between turns (overrides scenario)")
	tail := fs.Int("tail", 12, "log lines to print at the end")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// ── Configuration ────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *turns >= 0 {
		cfg.Turns = *turns
	}
	cfg.Turns += *years * engine.NumSeasons
	switch *safety {
	case "":
	case "true":
		cfg.Safety = true
	case "false":
		cfg.Safety = false
	default:
		return fmt.Errorf("invalid -safety %q", *safety)
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}
	switch *dbPath {
	case "":
	case "-":
		cfg.DBPath = ""
	default:
		cfg.DBPath = *dbPath
	}
	if *tracePath != "" {
		cfg.TracePath = *tracePath
	}
	if *interval >= 0 {
		cfg.Interval = *interval
	}

	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	// ── World ────────────────────────────────────────────────────────
	initial := cfg.WorldState()
	slog.Info("world ready",
		"people", len(initial.People),
		"adults", initial.AdultCount(),
		"tile", initial.Tile.String(),
		"safety", cfg.Safety,
		"turns", cfg.Turns,
	)

	eng := engine.NewTurnEngine(cfg.Safety)
	sim := engine.NewSimulation(eng, initial)

	// ── Run history ──────────────────────────────────────────────────
	if cfg.DBPath != "" || cfg.TracePath != "" {
		rec, err := openRecorder(cfg, initial)
		if err != nil {
			return err
		}
		defer rec.Close()
		sim.OnTurn = rec.record
	}

	// ── Clock ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := engine.NewClock(sim)
	clock.Interval = cfg.Interval
	clock.MaxTurns = uint64(cfg.Turns)
	clock.OnYear = func(turn uint64, year int) {
		st := sim.Stats()
		slog.Info("new year",
			"year", year,
			"turn", turn,
			"alive", st.Population,
			"deaths", st.Deaths,
			"water", fmt.Sprintf("%.2f", st.Water),
			"fruits", fmt.Sprintf("%.2f", st.Fruits),
			"hearth", st.HasHearth,
		)
	}

	if cfg.Turns > 0 {
		if err := clock.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
	}

	printStatus(out, sim.State(), *tail)
	return nil
}

// recorder fans each turn out to the run history store and trace.
type recorder struct {
	db    *persistence.DB
	trace *persistence.TraceWriter
	runID string
	seen  int // Log lines already recorded
}

func openRecorder(cfg config.Config, initial engine.WorldState) (*recorder, error) {
	r := &recorder{seen: len(initial.Log)}

	if cfg.DBPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
		db, err := persistence.Open(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
		r.db = db
		run, err := db.StartRun(cfg.Safety, cfg.Seed, len(initial.People))
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("start run: %w", err)
		}
		r.runID = run.ID
		slog.Info("run history opened", "path", cfg.DBPath, "run_id", run.ID)
	}

	if cfg.TracePath != "" {
		tw, err := persistence.CreateTrace(cfg.TracePath)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("create trace: %w", err)
		}
		r.trace = tw
		slog.Info("turn trace opened", "path", cfg.TracePath)
	}
	return r, nil
}

func (r *recorder) record(turn uint64, s engine.WorldState, report engine.TurnReport) {
	lines := newLines(s.Log, r.seen, report.Rained)
	r.seen = len(s.Log)

	if r.db != nil {
		if err := r.db.RecordTurn(r.runID, turn, s, report, lines); err != nil {
			slog.Error("record turn failed", "turn", turn, "error", err)
		}
	}
	if r.trace != nil {
		if err := r.trace.Write(persistence.NewTraceEntry(turn, s, report)); err != nil {
			slog.Error("trace write failed", "turn", turn, "error", err)
		}
	}
}

// newLines returns the lines a turn appended. Once the log is at its cap
// the length stops growing, so fall back to the count a turn appends.
func newLines(log []string, seen int, rained bool) []string {
	n := len(log) - seen
	if len(log) >= engine.MaxLogLines {
		n = 1
		if rained {
			n = 2
		}
	}
	n = max(0, min(n, len(log)))
	return log[len(log)-n:]
}

// Close releases the store and flushes the trace.
func (r *recorder) Close() {
	if r.trace != nil {
		if err := r.trace.Close(); err != nil {
			slog.Error("trace close failed", "error", err)
		}
	}
	if r.db != nil {
		if err := r.db.Close(); err != nil {
			slog.Error("history close failed", "error", err)
		}
	}
}

func printStatus(out io.Writer, s engine.WorldState, tail int) {
	fmt.Fprintf(out, "\nYear %d • %s\n", s.Year, s.Season)
	fmt.Fprintf(out, "Water %.2f | Fruits %.2f | Wood %.2f\n",
		s.Water(), s.Fruits(), s.Inventory[engine.ResourceWood])
	fmt.Fprintf(out, "OBS %.1f/%.1f%s | FIRE %.1f/%.1f%s | Hearth %t\n",
		s.Obs.Progress, s.Obs.Complexity, discoveredMark(s.Obs),
		s.Fire.Progress, s.Fire.Complexity, discoveredMark(s.Fire),
		s.HasHearth)
	fmt.Fprintf(out, "Tile: %s\n", s.Tile)

	fmt.Fprintln(out, "\nPopulation:")
	for _, p := range s.People {
		dead := ""
		if !p.Alive {
			dead = " (dead)"
		}
		fmt.Fprintf(out, "  • %s (%s) — %.1f yrs — %s — HP %d — morale %d%s\n",
			p.Name, p.Sex, p.Age, p.Role, p.HP, p.Morale, dead)
	}

	fmt.Fprintln(out, "\nLog:")
	start := max(0, len(s.Log)-tail)
	for _, line := range s.Log[start:] {
		fmt.Fprintf(out, "  %s\n", line)
	}
}

func discoveredMark(t engine.Tech) string {
	if t.Discovered {
		return " ✓"
	}
	return ""
}
