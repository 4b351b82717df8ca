package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/lmittmann/tint"
	cli "github.com/spf13/pflag"
	log "log/slog"

	"voxscribe/internal/config"
	"voxscribe/internal/phoneme"
	"voxscribe/internal/phoneme/espeak"
	"voxscribe/internal/pipeline"
	"voxscribe/pkg/stt"
)

const (
	exitOK    = 0
	exitFatal = 1
	exitUsage = 2
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	path, err := parseArgs(args, stderr)
	if err != nil {
		return exitUsage
	}

	cfg, err := config.Load()
	if err != nil {
		setupLogger(stderr, config.DefaultLogLevel)
		log.Error("Failed to load config", "err", err)
		return exitFatal
	}
	setupLogger(stderr, cfg.LogLevel)

	set, err := cfg.Limits.Apply()
	if err != nil {
		log.Error("Failed to apply resource limits", "err", err)
		return exitFatal
	}
	for _, v := range set {
		log.Debug("Resource limit", "env", v.Key, "value", v.Value)
	}

	if _, err := os.Stat(path); err != nil {
		log.Error("Failed to open audio", "path", path, "err", err)
		return exitFatal
	}

	whisper, err := stt.NewTranscriber(stt.Config{
		ModelPath:  cfg.ModelPath,
		Threads:    cfg.Limits.EngineThreads(),
		MaxSamples: stt.SampleLimit(cfg.MaxDuration),
	})
	if err != nil {
		log.Error("Failed to init whisper", "err", err)
		return exitFatal
	}
	defer whisper.Close()

	log.Debug("Loaded whisper", "model", cfg.ModelPath)

	es := espeak.New()
	defer es.Close()

	conv := phoneme.NewConverter(phoneme.Options{Punctuation: config.Punctuation})
	conv.Register(phoneme.BackendESpeak, es)

	p := pipeline.New(whisper, conv, pipeline.Config{
		Language: config.Language,
		Dialect:  config.Dialect,
		Backend:  config.Backend,
	})

	res, err := p.Run(context.Background(), path)
	if err != nil {
		log.Error("Failed to transcribe", "path", path, "err", err)
		return exitFatal
	}

	if err := res.Encode(stdout); err != nil {
		log.Error("Failed to write result", "err", err)
		return exitFatal
	}
	return exitOK
}

var errUsage = errors.New("usage: voxscribe <audio-file>")

// parseArgs accepts exactly one positional argument and no flags.
func parseArgs(args []string, stderr io.Writer) (string, error) {
	fs := cli.NewFlagSet("voxscribe", cli.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(stderr, "%v\n%v\n", err, errUsage)
		return "", err
	}
	if fs.NArg() != 1 || fs.Arg(0) == "" {
		fmt.Fprintln(stderr, errUsage)
		return "", errUsage
	}
	return fs.Arg(0), nil
}

func setupLogger(w io.Writer, level string) {
	lvl, ok := logLevelMap[level]
	if !ok {
		lvl = log.LevelWarn
	}
	log.SetDefault(log.New(tint.NewHandler(w, &tint.Options{
		Level: lvl,
	})))
	if !ok {
		log.Warn("Unknown log level, using warn", "level", level)
	}
}
