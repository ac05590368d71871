// Command spm-spots measures the spots of scanning-probe scans: it traces
// contours, filters them by area and circularity, pairs each spot with its
// nearest neighbour and writes the results next to each scan.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"spm-spots/internal/batch"
	"spm-spots/internal/config"
	"spm-spots/internal/export"
	"spm-spots/internal/preprocess"
	"spm-spots/internal/store"
	"spm-spots/internal/version"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	os.Exit(run(os.Args[1:]))
}

// run executes the command and returns its exit status: 1 when it could not
// start, 2 when some units failed.
func run(args []string) int {
	flags := flag.NewFlagSet("spm-spots", flag.ContinueOnError)
	configPath := flags.String("config", "", "Path to JSON configuration (default "+config.DefaultPath()+" when present)")
	threshold := flags.Float64("threshold", -1, "Binary threshold on the 0-255 scale (overrides config)")
	blur := flags.Int("blur", 0, "Gaussian blur kernel size, odd (overrides config)")
	circLow := flags.Float64("circ-low", -1, "Lower circularity bound (overrides config)")
	circHigh := flags.Float64("circ-high", -1, "Upper circularity bound (overrides config)")
	minArea := flags.Float64("min-area", -1, "Minimum spot area in nm^2 (overrides config)")
	maxArea := flags.Float64("max-area", -1, "Maximum spot area in nm^2 (overrides config)")
	dbPath := flags.String("db", "", "Results database path (overrides config)")
	noDB := flags.Bool("no-db", false, "Do not record results in the database")
	sessionPath := flags.String("session", batch.SessionFile, "Session file to write")
	showVersion := flags.Bool("version", false, "Print version and exit")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	if *showVersion {
		fmt.Println(version.String("spm-spots"))
		return 0
	}
	if flags.NArg() == 0 {
		fmt.Println("Usage: spm-spots [-config path] [-threshold 128] [-circ-low 0.1] [-circ-high 1.5] <scan files...>")
		return 1
	}

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	if *threshold >= 0 {
		cfg.SetThreshold(*threshold)
	}
	if *blur > 0 {
		cfg.SetBlurKernel(*blur)
	}
	if *circLow >= 0 || *circHigh >= 0 {
		low, high := cfg.GetCircularityLow(), cfg.GetCircularityHigh()
		if *circLow >= 0 {
			low = *circLow
		}
		if *circHigh >= 0 {
			high = *circHigh
		}
		cfg.SetCircularity(low, high)
	}
	if *minArea >= 0 || *maxArea >= 0 {
		lo, hi := cfg.GetMinAreaNm2(), cfg.GetMaxAreaNm2()
		if *minArea >= 0 {
			lo = *minArea
		}
		if *maxArea >= 0 {
			hi = *maxArea
		}
		cfg.SetAreaNm2(lo, hi)
	}
	if *dbPath != "" {
		cfg.SetDatabasePath(*dbPath)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		return 1
	}

	chain, err := preprocess.NewChain(preprocessParams(cfg))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build preprocessing chain: %v\n", err)
		return 1
	}
	fmt.Printf("Preprocessing: %v\n", chain.Steps())
	fmt.Printf("Circularity: %.2f - %.2f\n", cfg.GetCircularityLow(), cfg.GetCircularityHigh())

	sess := batch.NewSession(cfg)
	runner := &batch.Runner{
		Session:  sess,
		Config:   cfg,
		Detector: chain,
		Tracer:   preprocess.CVTracer{},
		Sinks:    []batch.Sink{export.Sink{LabelScale: cfg.GetLabelFontScale()}},
	}

	var db *store.Store
	if !*noDB {
		db, err = store.Open(cfg.GetDatabasePath())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open results database: %v\n", err)
			return 1
		}
		defer db.Close()
		if err := db.SaveSession(sess); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to record session: %v\n", err)
			return 1
		}
		runner.Sinks = append(runner.Sinks, store.Sink{Store: db, SessionID: sess.ID})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rep, err := runner.Spots(ctx, flags.Args())
	if err != nil {
		log.Printf("Batch interrupted: %v", err)
	}

	fmt.Printf("\n%-40s %8s %14s\n", "Unit", "Spots", "Avg area nm^2")
	for _, u := range sess.Spots {
		fmt.Printf("%-40s %8d %14.3f\n", u.Unit, len(u.Records), u.AverageAreaNm2)
	}
	fmt.Printf("\nProcessed %d unit(s), %d failure(s)\n", rep.Processed, len(rep.Failures))
	for _, f := range rep.Failures {
		fmt.Printf("  %s: %s\n", f.Unit, f.Error)
	}

	if err := sess.Save(*sessionPath); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to save session: %v\n", err)
		return 1
	}
	if db != nil {
		if err := db.SaveSession(sess); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to record session: %v\n", err)
			return 1
		}
	}
	if len(rep.Failures) > 0 {
		return 2
	}
	return 0
}

// preprocessParams maps the configured filter settings onto the chain.
func preprocessParams(cfg *config.Config) preprocess.Params {
	return preprocess.Params{
		Steps:            cfg.GetSteps(),
		BlurKernel:       cfg.GetBlurKernel(),
		Threshold:        cfg.GetThreshold(),
		CannyLow:         cfg.GetCannyLow(),
		CannyHigh:        cfg.GetCannyHigh(),
		ErodeIterations:  cfg.GetErodeIterations(),
		DilateIterations: cfg.GetDilateIterations(),
	}
}
