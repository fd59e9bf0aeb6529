// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/osa030/cuebox/internal/api/connect"
	"github.com/osa030/cuebox/internal/app/controller"
	"github.com/osa030/cuebox/internal/app/guard"
	"github.com/osa030/cuebox/internal/app/trigger"
	"github.com/osa030/cuebox/internal/infra/config"
	"github.com/osa030/cuebox/internal/infra/logger"
	"github.com/osa030/cuebox/internal/infra/metrics"
)

var (
	app        = kingpin.New("cuebox-server", "cuebox playout control server")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: from config)").String()

	// list-guards command
	listGuardsCmd = app.Command("list-guards", "List available guards and exit")
)

func init() {
	app.Command("start", "Start the server (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if command == listGuardsCmd.FullCommand() {
		printGuards()
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	loggerConfig := logger.Config{
		Output:  cfg.Log.Output,
		Level:   cfg.Log.Level,
		Service: "cuebox-server",
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	closeLog, err := logger.Init(loggerConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer func() { _ = closeLog() }()

	zlog.Info().Msgf("Loaded config from %s", *configPath)

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		_ = closeLog()
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	rd, err := cfg.BuildRundown()
	if err != nil {
		return errors.Wrap(err, "invalid rundown")
	}

	guards, err := buildGuards(cfg)
	if err != nil {
		return errors.Wrap(err, "invalid guard config")
	}

	triggers, err := buildTriggers(cfg)
	if err != nil {
		return errors.Wrap(err, "invalid trigger config")
	}

	m := metrics.New()
	ctrl, err := controller.New(rd, controller.Config{
		Guards:                guards,
		Triggers:              triggers,
		UndoDepth:             cfg.Playout.UndoDepth,
		EventBuffer:           cfg.Playout.EventBuffer,
		ScheduleCheckInterval: cfg.ScheduleCheckInterval(),
		Metrics:               m,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create controller")
	}
	zlog.Info().Msgf("Rundown %s loaded: groups=%d triggers=%d", rd.ID, rd.Len(), len(triggers.Labels()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctrl.Start(ctx)

	mux := http.NewServeMux()
	playoutPath, playoutHandler := apiconnect.NewPlayoutServiceHandler(
		apiconnect.NewPlayoutService(ctrl),
		connect.WithInterceptors(apiconnect.NewLoggingInterceptor(m)),
	)
	mux.Handle(playoutPath, playoutHandler)
	mux.Handle(cfg.Server.MetricsPath, m.Handler(func() {
		m.SetPlayingGroups(ctrl.PlayingGroups())
		m.SetSubscribers(ctrl.SubscriberCount())
	}))

	serverAddr := cfg.Server.Addr
	// h2c (HTTP/2 cleartext) keeps event streams multiplexed without TLS
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrCh := make(chan error, 1)
	serverStartedCh := make(chan struct{})

	go func() {
		zlog.Info().Msgf("Starting server: addr=%s metrics=%s", serverAddr, cfg.Server.MetricsPath)
		close(serverStartedCh)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	<-serverStartedCh
	// Give the server a moment to fully initialize
	time.Sleep(100 * time.Millisecond)

	executeHooks(cfg.Server.Hooks.OnStarted, "on_started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		ctrl.Close()
		return errors.Wrap(err, "server error")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Close the controller first so event streams terminate
	ctrl.Close()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Server stopped")

	executeHooks(cfg.Server.Hooks.OnStopped, "on_stopped")

	return nil
}

// printGuards prints available guards.
func printGuards() {
	registry := guard.GetRegistered()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("Available Guards:")
	for _, name := range names {
		g := registry[name]()
		codes := strings.Join(g.ReturnCodes(), ", ")
		fmt.Printf("  %-30s - %s [codes: %s]\n", g.Name(), g.Description(), codes)
	}
}

// buildGuards creates the enabled guards in name order and validates their settings.
func buildGuards(cfg *config.Config) (*guard.Chain, error) {
	registry := guard.GetRegistered()

	names := make([]string, 0, len(cfg.Guards))
	for name, guardCfg := range cfg.Guards {
		if guardCfg.Enabled {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	chain := guard.NewChain()
	for _, name := range names {
		factory, exists := registry[name]
		if !exists {
			return nil, errors.Newf("unknown guard: %s", name)
		}

		g := factory()
		if err := g.ValidateConfig(cfg.Guards[name].Settings); err != nil {
			return nil, errors.Wrapf(err, "guard %s", name)
		}
		chain.Add(g)
		zlog.Info().Msgf("Guard enabled: %s", name)
	}

	return chain, nil
}

// buildTriggers converts the configured triggers into a trigger set.
func buildTriggers(cfg *config.Config) (*trigger.Set, error) {
	configs := make([]trigger.Config, 0, len(cfg.Triggers))
	for _, t := range cfg.Triggers {
		configs = append(configs, trigger.Config{
			Label:    t.Label,
			Action:   t.Action,
			GroupID:  t.Group,
			PartID:   t.Part,
			Settings: t.Settings,
		})
	}
	return trigger.NewSet(configs)
}

// executeHooks runs a list of shell commands.
func executeHooks(hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		// Use sh -c to allow shell features like redirection or pipes
		cmd := exec.Command("sh", "-c", hook)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}
