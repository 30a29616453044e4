package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"

	"github.com/tradingzbotem/sparks/pkg/config"
	"github.com/tradingzbotem/sparks/pkg/feed"
	"github.com/tradingzbotem/sparks/pkg/llm"
	"github.com/tradingzbotem/sparks/pkg/repository"
	"github.com/tradingzbotem/sparks/pkg/service"
	"github.com/tradingzbotem/sparks/server"
)

// Opts with all CLI options
type Opts struct {
	Config string `short:"c" long:"config" env:"CONFIG" default:"sparks.yml" description:"config file path"`

	// Common options
	Debug   bool `long:"dbg" env:"DEBUG" description:"debug mode"`
	Version bool `short:"V" long:"version" description:"show version info"`
	NoColor bool `long:"no-color" env:"NO_COLOR" description:"disable color output"`
}

var revision = "unknown"

func main() {
	var opts Opts
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Printf("Version: %s\nGolang: %s\n", revision, runtime.Version())
		os.Exit(0)
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		log.Fatalf("[ERROR] can't load config %s: %v", opts.Config, err)
	}

	setupLog(opts.Debug, opts.NoColor, cfg.Jobs.Secret, cfg.LLM.APIKey)

	log.Printf("[INFO] starting sparks version %s", revision)

	ctx, cancel := context.WithCancel(context.Background())

	// handle termination signals
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Print("[INFO] termination signal received")
		cancel()
	}()

	if err := run(ctx, cfg, opts.Debug); err != nil {
		log.Printf("[ERROR] %v", err)
		cancel()
		os.Exit(1)
	}

	cancel()
	log.Print("[INFO] shutdown complete")
}

// run wires the pipeline and serves HTTP until the context is canceled
func run(ctx context.Context, cfg *config.Config, debug bool) error {
	stores, err := repository.NewStores(ctx, repository.Config{
		Backend:         cfg.Storage.Backend,
		DSN:             cfg.Storage.DSN,
		MaxOpenConns:    cfg.Storage.MaxOpenConns,
		MaxIdleConns:    cfg.Storage.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Storage.ConnMaxLifetime) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer func() {
		if err := stores.Close(); err != nil {
			log.Printf("[WARN] failed to close storage: %v", err)
		}
	}()

	feedParser := feed.NewParser(cfg.Collector.FeedTimeout, cfg.Collector.UserAgent)
	collector := feed.NewCollector(feedParser, cfg.FeedSources(), cfg.Collector.FeedTimeout)

	synthesizer, err := llm.NewSynthesizer(cfg.LLM, stores.News, cfg.Brief.MaxItems)
	if err != nil {
		return fmt.Errorf("init synthesizer: %w", err)
	}
	enricher, err := llm.NewEnricher(cfg.LLM)
	if err != nil {
		return fmt.Errorf("init enricher: %w", err)
	}

	pipeline := service.NewPipeline(stores.News, stores.Brief, collector, synthesizer, enricher, cfg.Enrich.BatchSize)

	srv := server.New(cfg, stores.News, stores.Brief, pipeline, revision, debug)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func setupLog(dbg, noColor bool, secs ...string) {
	logOpts := []lgr.Option{lgr.Out(os.Stdout), lgr.Err(os.Stderr)}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}

	if !noColor {
		colorizer := lgr.Mapper{
			ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
			WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
			InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
			DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
			CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
			TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
		}
		logOpts = append(logOpts, lgr.Map(colorizer))
	}

	var secrets []string
	for _, s := range secs {
		if s != "" {
			secrets = append(secrets, s)
		}
	}
	if len(secrets) > 0 {
		logOpts = append(logOpts, lgr.Secret(secrets...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
