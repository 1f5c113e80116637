/*
Copyright (C) 2026  d4 Contributors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// d4 searches a sharded-document-database physical design space for the
// cheapest (disk, skew, network) tradeoff against a recorded workload
// (spec.md §1). It loads a collection catalog and workload from disk, runs
// the branch-and-bound search, writes a JSON result report, and drops into
// an interactive prompt to re-run the search under different cost weights.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/dc0d/onexit"

	"github.com/launix-de/d4/catalog"
	"github.com/launix-de/d4/config"
	"github.com/launix-de/d4/costmodel"
	"github.com/launix-de/d4/designcandidates"
	"github.com/launix-de/d4/initialdesigner"
	"github.com/launix-de/d4/report"
	"github.com/launix-de/d4/search"
	"github.com/launix-de/d4/workload"
)

func main() {
	fmt.Print(`d4 Copyright (C) 2026  d4 Contributors
    This program comes with ABSOLUTELY NO WARRANTY;
    This is free software, and you are welcome to redistribute it
    under certain conditions;
`)

	catalogPath := flag.String("catalog", "catalog.json", "collection catalog JSON file")
	workloadPath := flag.String("workload", "workload.json", "recorded workload JSON file")
	configPath := flag.String("config", "cluster.json", "cluster cost config JSON file")
	outputPath := flag.String("out", "result.json", "where to write the winning design's JSON report")
	parallel := flag.Bool("parallel", true, "fan the search out across goroutines (search.RunParallel)")
	flag.Parse()

	cat, err := loadCatalog(*catalogPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "loading catalog:", err)
		os.Exit(1)
	}
	wl, err := loadWorkload(*workloadPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "loading workload:", err)
		os.Exit(1)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "loading config:", err)
		os.Exit(1)
	}

	onexit.Register(func() {
		fmt.Println("d4: shutting down, last report written to", *outputPath)
	})

	state := &runState{
		cat:        cat,
		wl:         wl,
		cfg:        cfg,
		outputPath: *outputPath,
		parallel:   *parallel,
	}
	state.run(context.Background())
	repl(state)
}

// runState holds everything one search run needs, so the interactive
// "reweight" command can re-run without re-reading the catalog/workload
// from disk.
type runState struct {
	cat        *catalog.Catalog
	wl         *workload.Workload
	cfg        *config.Config
	outputPath string
	parallel   bool

	last *report.Result
}

func (s *runState) run(ctx context.Context) {
	candidates := designcandidates.Generate(s.cat, s.wl)
	seed := initialdesigner.Build(s.cat, candidates)

	opts := search.Options{LeaderboardSize: s.cfg.LeaderboardSize}

	started := time.Now()
	var best = seed
	var cost float64
	var board *search.Leaderboard
	runID := search.NewRunID()

	if s.parallel {
		newModel := func() *costmodel.Model {
			return costmodel.New(s.cfg.Weights, s.cfg.WindowSize, s.cfg.SkewWindows, s.cfg.NumNodes)
		}
		best, cost = search.RunParallel(ctx, s.cat, s.wl, candidates, seed, opts, newModel)
	} else {
		model := costmodel.New(s.cfg.Weights, s.cfg.WindowSize, s.cfg.SkewWindows, s.cfg.NumNodes)
		bb := search.New(s.cat, s.wl, candidates, model, opts)
		best, cost = bb.Run(ctx, seed)
		board = bb.Leaderboard()
	}

	result := report.NewResult(runID, started.UTC(), s.cfg.Weights, best, cost, board)
	s.last = result

	raw, err := result.ToJSON()
	if err != nil {
		fmt.Fprintln(os.Stderr, "rendering report:", err)
		return
	}
	if err := os.WriteFile(s.outputPath, raw, 0o644); err != nil {
		fmt.Fprintln(os.Stderr, "writing report:", err)
		return
	}
	fmt.Printf("d4: run %s found cost %.4f in %s (written to %s)\n", runID, cost, time.Since(started), s.outputPath)
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cols []*catalog.Collection
	if err := json.Unmarshal(data, &cols); err != nil {
		return nil, err
	}
	cat := catalog.New()
	for _, c := range cols {
		cat.Add(c)
	}
	return cat, nil
}

func loadWorkload(path string) (*workload.Workload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var wl workload.Workload
	if err := json.Unmarshal(data, &wl); err != nil {
		return nil, err
	}
	return &wl, nil
}

// repl is an interactive prompt for re-running the search under different
// cost weights without restarting the process. Adapted from scm/prompt.go's
// Repl: same readline config and continuation-on-panic shape, minus the
// s-expression reader (commands here are a small fixed vocabulary instead
// of a language).
func repl(state *runState) {
	l, err := readline.NewEx(&readline.Config{
		Prompt:            "\033[32md4>\033[0m ",
		HistoryFile:       ".d4-history.tmp",
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		panic(err)
	}
	defer l.Close()
	l.CaptureExitSignal()

	for {
		line, err := l.Readline()
		if err == readline.ErrInterrupt {
			continue
		} else if err == io.EOF {
			break
		} else if err != nil {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					fmt.Println("panic:", r, string(debug.Stack()))
				}
			}()
			handleCommand(state, line)
		}()
	}
}

func handleCommand(state *runState, line string) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "quit", "exit":
		os.Exit(0)
	case "show":
		if state.last == nil {
			fmt.Println("no run yet")
			return
		}
		var buf bytes.Buffer
		raw, _ := state.last.ToJSON()
		buf.Write(raw)
		fmt.Println(buf.String())
	case "reweight":
		weights, err := parseWeights(fields[1:], state.cfg.Weights)
		if err != nil {
			fmt.Println("reweight:", err)
			return
		}
		state.cfg.Weights = weights
		state.run(context.Background())
	default:
		fmt.Println("commands: show | reweight disk=.. skew=.. network=.. | quit")
	}
}

// parseWeights parses "disk=0.5 skew=0.2 network=0.3"-style arguments,
// starting from current and overriding only the fields named.
func parseWeights(args []string, current costmodel.Weights) (costmodel.Weights, error) {
	w := current
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok {
			return w, fmt.Errorf("expected key=value, got %q", arg)
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return w, fmt.Errorf("%q: %w", arg, err)
		}
		switch k {
		case "disk":
			w.Disk = f
		case "skew":
			w.Skew = f
		case "network":
			w.Network = f
		default:
			return w, fmt.Errorf("unknown weight %q", k)
		}
	}
	return w, nil
}
