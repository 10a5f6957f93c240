package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"podscribe/internal/bootstrap"
	"podscribe/internal/config"
	"podscribe/internal/domain"
	"podscribe/internal/jobs"
	"podscribe/internal/recognize"
)

// Exit codes.
const (
	exitOK          = 0
	exitFailure     = 1
	exitUsage       = 2
	exitNoSubtitles = 3
)

const usage = `usage: podscribe [-config path] <command> [args]

commands:
  transcribe <source> [output]   extract audio, recognize speech, write transcript
  watch                          transcribe media files as they appear in input_dir
  doctor                         check tools, directories, and model
  init [-force] [path]           write a config template
  models                         list known recognition models
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("podscribe", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := fs.String("config", "", "path to config file (default: ~/.config/podscribe/config.yaml)")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return exitUsage
	}
	if *configPath == "" {
		*configPath = config.DefaultConfigPath()
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "init":
		return runInit(rest, *configPath, stdout, stderr)
	case "models":
		return runModels(stdout)
	case "transcribe", "watch", "doctor":
	default:
		fmt.Fprintf(stderr, "podscribe: unknown command %q\n\n", cmd)
		fs.Usage()
		return exitUsage
	}

	cfg, err := config.NewYAMLStore(*configPath).Load()
	if err != nil {
		fmt.Fprintf(stderr, "podscribe: config: %v\n", err)
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(stderr, "run 'podscribe init' to create %s\n", *configPath)
		}
		return exitFailure
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "podscribe",
		Level:  cfg.Level(),
		Output: stderr,
	})

	app, err := bootstrap.New(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		return exitFailure
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "doctor":
		return runDoctor(app, stdout)
	case "watch":
		return runWatch(ctx, app, logger)
	default:
		return runTranscribe(ctx, app, logger, rest, stdout, stderr)
	}
}

func runTranscribe(ctx context.Context, app *bootstrap.App, logger hclog.Logger, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 || len(args) > 2 {
		fmt.Fprint(stderr, usage)
		return exitUsage
	}
	source, output := args[0], ""
	if len(args) == 2 {
		output = args[1]
	}

	var result bootstrap.JobResult
	events := app.Events.Subscribe("cli", 256)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for event := range events {
			logEvent(logger, event)
		}
		return nil
	})
	g.Go(func() error {
		defer app.Events.Unsubscribe("cli")
		var err error
		result, err = app.Transcribe(gctx, source, output)
		return err
	})

	if err := g.Wait(); err != nil {
		reportFailure(stderr, err)
		return exitFailure
	}
	if result.Transcript.NoSubtitles() {
		fmt.Fprintf(stderr, "podscribe: %s has no subtitle stream; no transcript written\n", result.Source.Path)
		return exitNoSubtitles
	}
	fmt.Fprintln(stdout, result.TextPath)
	return exitOK
}

func runWatch(ctx context.Context, app *bootstrap.App, logger hclog.Logger) int {
	events := app.Events.Subscribe("cli", 256)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for event := range events {
			logEvent(logger, event)
		}
		return nil
	})
	g.Go(func() error {
		defer app.Events.Unsubscribe("cli")
		return app.Watch(gctx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("watch failed", "error", err)
		return exitFailure
	}
	return exitOK
}

func runDoctor(app *bootstrap.App, stdout io.Writer) int {
	report := app.Doctor()
	w := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	for _, item := range report.Items {
		fmt.Fprintf(w, "[%s]\t%s\t%s\n", strings.ToUpper(string(item.Status)), item.Name, item.Message)
		if item.Hint != "" && item.Status != domain.DiagnosticStatusPass {
			fmt.Fprintf(w, "\t\t%s\n", item.Hint)
		}
	}
	_ = w.Flush()

	if report.HasFailures {
		fmt.Fprintf(stdout, "\n%d check(s) failed\n", len(report.Failures()))
		return exitFailure
	}
	return exitOK
}

func runInit(args []string, configPath string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.SetOutput(stderr)
	force := fs.Bool("force", false, "overwrite an existing config file")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	path := configPath
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}

	if err := bootstrap.InitConfig(config.NewYAMLStore(path), *force); err != nil {
		fmt.Fprintf(stderr, "podscribe: init: %v\n", err)
		return exitFailure
	}
	fmt.Fprintf(stdout, "wrote %s\n", path)
	return exitOK
}

func runModels(stdout io.Writer) int {
	w := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSIZE\tDESCRIPTION")
	for _, m := range recognize.Models() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.ID, m.Name, m.SizeLabel, m.Description)
	}
	_ = w.Flush()
	return exitOK
}

// logEvent renders one bus event. Raw tool output is debug-level noise.
func logEvent(logger hclog.Logger, e jobs.Event) {
	switch e.Type {
	case jobs.EventTypeProgress:
		if e.Kind == domain.EventLine {
			logger.Debug(e.Message, "stage", e.Stage, "stream", e.Stream)
			return
		}
		logger.Info(e.Message, "stage", e.Stage, "event", e.Kind)
	case jobs.EventTypeStatus:
		logger.Info(e.Message, "job", e.JobID, "status", e.Status)
	case jobs.EventTypeResult:
		if e.TextPath != "" {
			logger.Info(e.Message, "job", e.JobID, "transcript", e.TextPath)
			return
		}
		logger.Info(e.Message, "job", e.JobID)
	case jobs.EventTypeError:
		logger.Error("stage failed", "job", e.JobID, "stage", e.Stage, "command", e.Command, "exit_code", e.ExitCode)
	}
}

// reportFailure prints the failed stage and the tool's diagnostics.
func reportFailure(w io.Writer, err error) {
	if errors.Is(err, domain.ErrCancelled) || errors.Is(err, context.Canceled) {
		fmt.Fprintln(w, "podscribe: cancelled")
		return
	}
	stage, ok := domain.FailedStage(err)
	if !ok {
		fmt.Fprintf(w, "podscribe: %v\n", err)
		return
	}
	fmt.Fprintf(w, "podscribe: %s stage failed: %v\n", stage, err)
}
