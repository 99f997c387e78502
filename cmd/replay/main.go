package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"tilewalk.ai/internal/protocol"
	"tilewalk.ai/internal/sim/scenario"
	"tilewalk.ai/internal/sim/tuning"
	"tilewalk.ai/internal/sim/world"
)

func main() {
	var (
		scenarioPath = flag.String("scenario", "", "scenario file the trace was recorded from")
		traceDir     = flag.String("trace", "", "trace dir containing ticks-*.jsonl.zst")
		tuningPath   = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml (defaults apply when missing)")
		toTick       = flag.Uint64("to_tick", 0, "stop at tick (inclusive, optional)")
	)
	flag.Parse()

	if *scenarioPath == "" || *traceDir == "" {
		fmt.Fprintln(os.Stderr, "missing -scenario or -trace")
		os.Exit(2)
	}

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintln(os.Stderr, "load tuning:", err)
			os.Exit(1)
		}
		tune = tuning.Defaults()
	}
	sc, err := scenario.Load(*scenarioPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load scenario:", err)
		os.Exit(1)
	}
	w, err := sc.Build(world.Config{ID: sc.ID, Tuning: tune})
	if err != nil {
		fmt.Fprintln(os.Stderr, "world:", err)
		os.Exit(1)
	}
	if err := sc.Apply(w); err != nil {
		fmt.Fprintln(os.Stderr, "apply:", err)
		os.Exit(1)
	}

	files, err := listTraceFiles(*traceDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list trace:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no trace files found in", *traceDir)
		os.Exit(1)
	}

	var checked uint64
	for _, path := range files {
		if err := replayFile(w, path, *toTick, &checked); err != nil {
			fmt.Fprintln(os.Stderr, "replay:", err)
			os.Exit(1)
		}
		if *toTick != 0 && w.CurrentTick() > *toTick {
			break
		}
	}
	fmt.Printf("replay ok: scenario=%s checked=%d ticks\n", sc.ID, checked)
}

func listTraceFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "ticks-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

func replayFile(w *world.World, path string, toTick uint64, checked *uint64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)

	for sc.Scan() {
		var want world.TickLogEntry
		if err := json.Unmarshal(sc.Bytes(), &want); err != nil {
			return fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
		}
		if toTick != 0 && want.Tick > toTick {
			return nil
		}
		if want.Tick != w.CurrentTick() {
			return fmt.Errorf("tick mismatch: trace=%d world=%d (file=%s)", want.Tick, w.CurrentTick(), filepath.Base(path))
		}
		got := w.Step()
		if err := compareEntry(got, want); err != nil {
			return fmt.Errorf("tick %d: %w", want.Tick, err)
		}
		*checked++
	}
	return sc.Err()
}

// compareEntry checks mover rows exactly and events by type, code and order.
// Recorded codes must be ones the protocol defines.
func compareEntry(got, want world.TickLogEntry) error {
	if len(got.Movers) != len(want.Movers) {
		return fmt.Errorf("movers: got %d want %d", len(got.Movers), len(want.Movers))
	}
	for i := range got.Movers {
		if got.Movers[i] != want.Movers[i] {
			return fmt.Errorf("mover %s: got %+v want %+v", want.Movers[i].ID, got.Movers[i], want.Movers[i])
		}
	}
	if len(got.Events) != len(want.Events) {
		return fmt.Errorf("events: got %d want %d", len(got.Events), len(want.Events))
	}
	for i := range got.Events {
		if got.Events[i].Type() != want.Events[i].Type() {
			return fmt.Errorf("event %d: got %s want %s", i, got.Events[i].Type(), want.Events[i].Type())
		}
		wantCode := eventCode(want.Events[i])
		if !protocol.IsKnownCode(wantCode) {
			return fmt.Errorf("event %d: unknown code %q in trace", i, wantCode)
		}
		if gotCode := eventCode(got.Events[i]); gotCode != wantCode {
			return fmt.Errorf("event %d: got code %q want %q", i, gotCode, wantCode)
		}
	}
	return nil
}

func eventCode(e protocol.Event) string {
	s, _ := e["code"].(string)
	return s
}
