// Command transcriptcheck audits published video transcripts.
//
//	transcriptcheck serve                 HTTP API on server.port
//	transcriptcheck worker                consume validation requests from kafka
//	transcriptcheck validate -video ID    audit one video and print the verdict
//	transcriptcheck index -video ID       transcribe, chunk and publish one video
//	transcriptcheck version               print the build version
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kbukum/transcriptcheck/audit"
	"github.com/kbukum/transcriptcheck/bootstrap"
	"github.com/kbukum/transcriptcheck/config"
	apperrors "github.com/kbukum/transcriptcheck/errors"
	"github.com/kbukum/transcriptcheck/logger"
	"github.com/kbukum/transcriptcheck/version"
)

const (
	modeServe    = "serve"
	modeWorker   = "worker"
	modeValidate = "validate"
	modeIndex    = "index"
	modeVersion  = "version"
)

// Exit codes of the validate command.
const (
	exitOK           = 0
	exitError        = 1
	exitUsage        = 2
	exitInvalid      = 3
	exitInconclusive = 4
)

// command is a parsed command line.
type command struct {
	mode       string
	videoID    string
	configFile string
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	if cmd.mode == modeVersion {
		fmt.Fprintln(stdout, serviceName, version.Get())
		return exitOK
	}

	cfg, err := loadConfig(cmd.configFile)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}

	opts := []bootstrap.Option{}
	if cmd.mode == modeValidate || cmd.mode == modeIndex {
		// stdout carries the JSON result
		opts = append(opts, bootstrap.WithSummaryOutput(io.Discard))
	}
	a, err := bootstrap.NewApp(cfg, opts...)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	a.Summary.SetMode(cmd.mode)

	initTelemetry(ctx, a)

	in, err := registerInfra(a)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	var svc *services
	a.OnConfigure(configureMode(cmd.mode, in, &svc))

	switch cmd.mode {
	case modeServe, modeWorker:
		if err := a.Run(ctx); err != nil {
			a.Logger.Error("Application stopped with error", logger.MergeWithError(nil, err))
			return exitError
		}
		return exitOK

	case modeValidate:
		var verdict *audit.Verdict
		err := a.RunTask(ctx, func(ctx context.Context) error {
			var err error
			verdict, err = svc.validator.Validate(ctx, cmd.videoID)
			return err
		})
		if verdict != nil && verdict.Status != "" {
			writeJSON(stdout, verdict)
			return verdictExitCode(verdict.Status)
		}
		fmt.Fprintln(stderr, err)
		return exitError

	case modeIndex:
		err := a.RunTask(ctx, func(ctx context.Context) error {
			rows, err := svc.indexer.IndexVideo(ctx, cmd.videoID)
			if err != nil {
				return err
			}
			writeJSON(stdout, rows)
			return nil
		})
		if err != nil {
			fmt.Fprintln(stderr, err)
			return exitError
		}
		return exitOK
	}
	return exitUsage
}

// parseArgs reads `<mode> [-config path] [-video id]`.
func parseArgs(args []string, stderr io.Writer) (command, error) {
	usage := fmt.Sprintf("usage: %s serve|worker|validate -video ID|index -video ID|version [-config path]", serviceName)
	if len(args) == 0 {
		return command{}, errors.New(usage)
	}

	cmd := command{mode: args[0]}
	switch cmd.mode {
	case modeVersion:
		return cmd, nil
	case modeServe, modeWorker, modeValidate, modeIndex:
	case "-h", "-help", "--help", "help":
		fmt.Fprintln(stderr, usage)
		return command{}, flag.ErrHelp
	default:
		return command{}, fmt.Errorf("unknown command %q\n%s", cmd.mode, usage)
	}

	fs := flag.NewFlagSet(serviceName+" "+cmd.mode, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cmd.configFile, "config", "", "config file (default: search ./cmd/transcriptcheck, ./config, .)")
	if cmd.mode == modeValidate || cmd.mode == modeIndex {
		fs.StringVar(&cmd.videoID, "video", "", "video id")
	}
	if err := fs.Parse(args[1:]); err != nil {
		return command{}, err
	}
	if fs.NArg() > 0 {
		return command{}, fmt.Errorf("unexpected arguments %v\n%s", fs.Args(), usage)
	}

	cmd.videoID = strings.TrimSpace(cmd.videoID)
	if (cmd.mode == modeValidate || cmd.mode == modeIndex) && cmd.videoID == "" {
		return command{}, fmt.Errorf("%s requires -video\n%s", cmd.mode, usage)
	}
	return cmd, nil
}

func loadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	var opts []config.LoaderOption
	if path != "" {
		opts = append(opts, config.WithConfigFile(path))
	}
	if err := config.LoadConfig(serviceName, &cfg, opts...); err != nil {
		return nil, apperrors.Configuration(err.Error()).WithCause(err)
	}
	if cfg.Version == "" {
		cfg.Version = version.Get().Short()
	}
	return &cfg, nil
}

func verdictExitCode(status audit.Status) int {
	switch status {
	case audit.StatusValid:
		return exitOK
	case audit.StatusInvalid:
		return exitInvalid
	default:
		return exitInconclusive
	}
}

func writeJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
