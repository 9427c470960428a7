// Copyright 2025 The Autocomplete Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main runs the autocomplete server.

The server loads a word frequency corpus into memory and answers prefix queries over a
plain text TCP protocol. Each query returns up to ten words starting with the prefix,
most frequent first.

# Usage

Start the server with the default corpus (word_freq.txt) on port 10000:

	autocomplete

Use another corpus, port and debug logging:

	autocomplete -corpus /data/words.msgpack -port 9000 -d

Query it with the bundled client or any line oriented tool:

	$ printf 'get app\n' | nc localhost 10000
	This is autocomplete service.
	Service accepts commands, which
	matches 'get <prefix>' pattern
	-> apply
	-> app
	-> apple

# Corpus

The corpus is a text file of "word frequency" lines, or a msgpack snapshot written by
corpusgen. Malformed lines abort startup unless -skip-malformed is set. Matching is case
sensitive; -fold-case makes it case insensitive.

# Configuration

An optional TOML or YAML file (-config) sets the same values as the flags, plus
connection limits and cache size:

	[server]
	host = "0.0.0.0"
	port = 10000
	idle_timeout_sec = 300
	max_connections = 256

	[suggest]
	cache_size = 100000

Without -config, config.toml in the user config directory is used if present. Flags that
are set explicitly win over the file.

# Local modes

	-c      interactive REPL against the in-process engine, printing frequencies
	-stdio  speak the wire protocol on stdin/stdout instead of a socket

# Command Line Flags

	-host string
	    Interface to listen on (default "0.0.0.0")
	-port int
	    TCP port (default 10000)
	-corpus string
	    Corpus file, .txt or .msgpack (default "word_freq.txt")
	-config string
	    Config file path
	-d  Enable debug logging
	-skip-malformed
	    Skip malformed corpus lines instead of failing
	-fold-case
	    Match prefixes case insensitively
	-version
	    Show current version
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bastiangx/autocomplete/internal/cli"
	"github.com/bastiangx/autocomplete/internal/logger"
	"github.com/bastiangx/autocomplete/internal/utils"
	"github.com/bastiangx/autocomplete/pkg/config"
	"github.com/bastiangx/autocomplete/pkg/corpus"
	"github.com/bastiangx/autocomplete/pkg/server"
	"github.com/bastiangx/autocomplete/pkg/suggest"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

const (
	Version = "1.0.0"
	AppName = "autocomplete"
	gh      = "https://github.com/bastiangx/autocomplete"

	shutdownTimeout = 5 * time.Second
)

// sigHandler cancels the returned context on the first interrupt and exits on the second.
func sigHandler() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		cancel()
		<-c
		os.Exit(1)
	}()
	return ctx
}

// main wires the packages together and only manages the flow.
func main() {
	ctx := sigHandler()
	defaults := config.DefaultConfig()

	showVersion := flag.Bool("version", false, "Show current version")
	host := flag.String("host", defaults.Server.Host, "Interface to listen on")
	port := flag.Int("port", defaults.Server.Port, "TCP port")
	corpusPath := flag.String("corpus", defaults.Corpus.Path, "Corpus file, .txt or .msgpack")
	configPath := flag.String("config", "", "Config file path (TOML or YAML)")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	cliMode := flag.Bool("c", false, "Run the interactive CLI -- useful for testing and debugging")
	stdioMode := flag.Bool("stdio", false, "Serve the protocol on stdin/stdout")
	skipMalformed := flag.Bool("skip-malformed", defaults.Corpus.SkipMalformed, "Skip malformed corpus lines instead of failing")
	foldCase := flag.Bool("fold-case", defaults.Suggest.FoldCase, "Match prefixes case insensitively")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	logger.Setup(defaults.Log.Level, *debugMode)

	pathResolver, err := utils.NewPathResolver(AppName)
	if err != nil {
		log.Fatalf("Failed to initialize path resolver: %v", err)
	}

	cfg, usedConfig, err := config.LoadConfigWithPriority(*configPath, pathResolver.GetConfigPath("config.toml"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if usedConfig != "" {
		log.Debugf("Using config file: (%s)", usedConfig)
	} else {
		log.Debugf("No config file, looked in: (%s)", pathResolver.GetConfigDir())
	}

	// explicitly set flags win over the config file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host":
			cfg.Server.Host = *host
		case "port":
			cfg.Server.Port = *port
		case "corpus":
			cfg.Corpus.Path = *corpusPath
		case "skip-malformed":
			cfg.Corpus.SkipMalformed = *skipMalformed
		case "fold-case":
			cfg.Suggest.FoldCase = *foldCase
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	logger.Setup(cfg.Log.Level, *debugMode)

	resolvedCorpus := pathResolver.GetCorpusPath(cfg.Corpus.Path)
	log.Debugf("Loading corpus from: %s", resolvedCorpus)

	start := time.Now()
	store, err := corpus.LoadFile(resolvedCorpus, corpus.LoadOptions{SkipMalformed: cfg.Corpus.SkipMalformed})
	if err != nil {
		log.Fatalf("Failed to load corpus: %v", err)
	}
	log.Debugf("Corpus loaded in %v", time.Since(start))

	engine := suggest.NewEngine(store, suggest.Options{
		Limit:     cfg.Suggest.Limit,
		FoldCase:  cfg.Suggest.FoldCase,
		CacheSize: cfg.Suggest.CacheSize,
	})

	switch {
	case *cliMode:
		replLog := logger.NewWithConfig("", log.GetLevel(), false, false, log.TextFormatter)
		inputHandler := cli.NewInputHandler(engine, os.Stdin, replLog)
		if err := inputHandler.Start(); err != nil {
			log.Fatalf("CLI error: %v", err)
		}
		return

	case *stdioMode:
		serveStdio(ctx, server.NewHandler(engine, logger.New("stdio"), 0))
		return
	}

	srv := server.New(engine, server.Config{
		IdleTimeout:    cfg.Server.IdleTimeout(),
		MaxConnections: cfg.Server.MaxConnections,
	}, logger.New("server"))

	showStartupInfo(resolvedCorpus, cfg.Server.Addr(), engine)

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe(ctx, cfg.Server.Addr())
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, server.ErrServerClosed) && !errors.Is(err, context.Canceled) {
			log.Fatalf("Failed to start server: %v", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warnf("Shutdown incomplete: %v", err)
	}
	log.Debug("Server stopped", "stats", srv.Stats())
}

// serveStdio runs handler on stdin/stdout. A terminal stdin may not support read
// deadlines, so after cancellation the handler gets a grace period before main returns.
func serveStdio(ctx context.Context, handler *server.Handler) {
	done := make(chan error, 1)
	go func() {
		done <- handler.Serve(ctx, server.FileStream{In: os.Stdin, Out: os.Stdout})
	}()

	select {
	case err := <-done:
		if err != nil {
			log.Fatalf("stdio error: %v", err)
		}
	case <-ctx.Done():
		select {
		case <-done:
		case <-time.After(time.Second):
			log.Debug("stdin read not interrupted, exiting anyway")
		}
	}
}

func printVersion() {
	vlog := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    false,
		ReportTimestamp: false,
		Prefix:          "",
	})

	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"}).
		Background(lipgloss.AdaptiveColor{Light: "#f2e9e1", Dark: "#26233a"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	vlog.SetStyles(styles)

	vlog.Print("")
	vlog.Print("[ Autocomplete ] prefix completions over TCP")
	vlog.Print("", "version", Version)
	vlog.Print("")
	vlog.Print("use -h or --help to see available options")
	vlog.Print("Github Repo", "gh", gh)
}

// showStartupInfo displays some basic info about the init process.
func showStartupInfo(corpusPath, addr string, engine *suggest.Engine) {
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)

	stats := engine.Stats()
	println("==============")
	println(" Autocomplete ")
	println("==============")
	log.Infof("Version: %s", Version)
	log.Infof("Process ID: [ %d ]", os.Getpid())
	log.Infof("corpus: ( %s )", utils.AbsPath(corpusPath))
	log.Infof("words: %s distinct, max frequency %s",
		utils.FormatWithCommas(stats["distinctWords"]), utils.FormatWithCommas(stats["maxFrequency"]))
	if skipped := stats["skippedLines"]; skipped > 0 {
		log.Warnf("skipped %s malformed lines", utils.FormatWithCommas(skipped))
	}
	log.Infof("listening on: %s", addr)
	log.Info("status: ready")
	println("==============")
	println("Press Ctrl+C to exit")

	log.SetLevel(currentLevel)
}
