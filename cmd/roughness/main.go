// Command roughness computes the l0 roughness of scan files and appends one
// line per file or frame to the l0 log.
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
	"spm-spots/internal/roughness"
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
	flags := flag.NewFlagSet("roughness", flag.ContinueOnError)
	configPath := flags.String("config", "", "Path to JSON configuration (default "+config.DefaultPath()+" when present)")
	iset := flags.Float64("iset", 0, "Reference level for the squared deviation map (overrides config)")
	logPath := flags.String("log", "", "l0 log path (default: l0/l0.txt next to the first scan)")
	dbPath := flags.String("db", "", "Results database path (overrides config)")
	noDB := flags.Bool("no-db", false, "Do not record results in the database")
	showVersion := flags.Bool("version", false, "Print version and exit")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	if *showVersion {
		fmt.Println(version.String("roughness"))
		return 0
	}
	if flags.NArg() == 0 {
		fmt.Println("Usage: roughness [-iset level] [-log path] <scan files...>")
		return 1
	}

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	flags.Visit(func(f *flag.Flag) {
		if f.Name == "iset" {
			cfg.SetISET(*iset)
		}
	})
	if *dbPath != "" {
		cfg.SetDatabasePath(*dbPath)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		return 1
	}

	if *logPath == "" {
		*logPath = export.NewLayout(flags.Arg(0)).L0Log()
	}
	if level, ok := cfg.GetISET(); ok {
		fmt.Printf("ISET: %g\n", level)
	}
	fmt.Printf("Log: %s\n", *logPath)

	sess := batch.NewSession(cfg)
	runner := &batch.Runner{
		Session: sess,
		Config:  cfg,
		Log:     roughness.NewLog(*logPath),
		Sinks:   []batch.Sink{export.Sink{}},
	}

	if !*noDB {
		db, err := store.Open(cfg.GetDatabasePath())
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

	rep, err := runner.Roughness(ctx, flags.Args())
	if err != nil {
		log.Printf("Batch interrupted: %v", err)
	}

	for _, u := range sess.Roughness {
		fmt.Print(roughness.Line(u.Source, u.Frame, u.L0))
	}
	fmt.Printf("\nProcessed %d unit(s), %d failure(s)\n", rep.Processed, len(rep.Failures))
	for _, f := range rep.Failures {
		fmt.Printf("  %s: %s\n", f.Unit, f.Error)
	}
	if len(rep.Failures) > 0 {
		return 2
	}
	return 0
}
