package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"tilewalk.ai/internal/persistence/indexdb"
	persistlog "tilewalk.ai/internal/persistence/log"
	"tilewalk.ai/internal/sim/scenario"
	"tilewalk.ai/internal/sim/tuning"
	"tilewalk.ai/internal/sim/world"
	"tilewalk.ai/internal/transport/observer"
)

func main() {
	var (
		tuningPath   = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml (defaults apply when missing)")
		scenarioPath = flag.String("scenario", "./configs/scenarios/courtyard.yaml", "scenario file")
		ticks        = flag.Int("ticks", 0, "ticks to run (default: the scenario's own count)")
		realtime     = flag.Bool("realtime", false, "tick at tick_rate_hz instead of as fast as possible")
		dataDir      = flag.String("data", "./data", "runtime data directory")
		trace        = flag.Bool("trace", true, "write the zstd JSONL tick trace under <data>/runs/<scenario>/<start>/trace")
		segmentTicks = flag.Uint64("trace_segment_ticks", persistlog.DefaultSegmentTicks, "ticks per trace file")
		index        = flag.Bool("index", false, "write the SQLite index under <data>/runs/<scenario>/<start>/index.db")
		observeAddr  = flag.String("observe", "", "serve the observer websocket on this address (e.g. 127.0.0.1:8081)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[movesim] ", log.LstdFlags|log.Lmicroseconds)

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", *tuningPath)
		tune = tuning.Defaults()
	}

	sc, err := scenario.Load(*scenarioPath)
	if err != nil {
		logger.Fatalf("load scenario: %v", err)
	}
	w, err := sc.Build(world.Config{ID: sc.ID, Tuning: tune, Logger: log.New(os.Stdout, "[world] ", log.LstdFlags|log.Lmicroseconds)})
	if err != nil {
		logger.Fatalf("build world: %v", err)
	}
	if err := sc.Apply(w); err != nil {
		logger.Fatalf("apply scenario: %v", err)
	}

	runDir := filepath.Join(*dataDir, "runs", sc.ID, time.Now().UTC().Format("20060102T150405Z"))
	if *trace {
		tl := persistlog.NewTraceLoggerSegmented(runDir, *segmentTicks)
		defer tl.Close()
		w.AddSink(tl)
	}
	if *index {
		idx, err := indexdb.OpenSQLite(filepath.Join(runDir, "index.db"))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
		if err := idx.UpsertTuning(tune); err != nil {
			logger.Printf("index: upsert tuning: %v", err)
		}
		w.AddSink(idx)
	}

	ctx, cancel := signalContext()
	defer cancel()

	if strings.TrimSpace(*observeAddr) != "" {
		hub := observer.NewHub(w.ID(), tune.TickRateHz, log.New(os.Stdout, "[observer] ", log.LstdFlags|log.Lmicroseconds))
		w.AddSink(hub)
		srv := &http.Server{Addr: *observeAddr, Handler: hub.Mux(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Printf("observer listening on %s", *observeAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Printf("observer: %v", err)
			}
		}()
		defer func() {
			sctx, scancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer scancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	n := *ticks
	if n <= 0 {
		n = sc.RunTicks()
	}
	logger.Printf("scenario=%s ticks=%d tick_rate_hz=%d realtime=%v run_dir=%s", sc.ID, n, tune.TickRateHz, *realtime, runDir)

	if *realtime {
		runRealtime(ctx, w, n, logger)
	} else {
		for i := 0; i < n && ctx.Err() == nil; i++ {
			w.Step()
		}
	}
	summarize(w, logger)
}

// tickLimit stops the run loop once the last wanted tick has been written.
type tickLimit struct {
	last   uint64
	cancel context.CancelFunc
}

func (t tickLimit) WriteTick(e world.TickLogEntry) error {
	if e.Tick >= t.last {
		t.cancel()
	}
	return nil
}

func runRealtime(ctx context.Context, w *world.World, n int, logger *log.Logger) {
	if n <= 0 {
		return
	}
	rctx, cancel := context.WithCancel(ctx)
	defer cancel()
	w.AddSink(tickLimit{last: w.CurrentTick() + uint64(n) - 1, cancel: cancel})
	if err := w.Run(rctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Printf("world stopped: %v", err)
	}
}

func summarize(w *world.World, logger *log.Logger) {
	outs := w.Outcomes()
	counts := map[string]int{}
	for _, o := range outs {
		counts[string(o.Result)]++
		logger.Printf("tick=%d task=%s mover=%s kind=%s outcome=%s", o.Tick, o.TaskID, o.MoverID, o.Kind, o.Result)
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+strconv.Itoa(counts[k]))
	}
	logger.Printf("done: tick=%d tasks=%d %s", w.CurrentTick(), len(outs), strings.Join(parts, " "))
	for _, id := range w.EntityIDs() {
		e := w.Entity(id)
		logger.Printf("mover %s at %s", id, e.Pos)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
