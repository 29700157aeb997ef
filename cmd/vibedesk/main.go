package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"

	"github.com/joho/godotenv"

	"vibedesk/internal/adapter/agent"
	"vibedesk/internal/adapter/store"
	"vibedesk/internal/domain"
	"vibedesk/internal/infra/config"
	"vibedesk/internal/infra/logger"
	"vibedesk/internal/infra/tracer"
	"vibedesk/internal/usecase"
	"vibedesk/internal/usecase/eventbus"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config file")
	sessionID := flag.String("session", "cli-default", "chat session identifier")
	reap := flag.Bool("reap", false, "finalize stale streaming messages and exit")
	flag.Parse()

	// Local development convenience; a missing .env is fine.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrConfigLoad, err)
	}

	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		return err
	}
	defer closeLog()

	shutdownTracer, err := tracer.Setup(context.Background(), cfg.Tracer)
	if err != nil {
		return err
	}
	defer shutdownTracer(context.Background())

	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	if *reap {
		reaper := usecase.NewReaper(db, config.ParseDuration(cfg.Reaper.MaxAge, 0), log)
		n, err := reaper.Sweep(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("finalized %d stale message(s)\n", n)
		return nil
	}

	prompt := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if prompt == "" {
		return fmt.Errorf("usage: vibedesk [flags] <prompt>")
	}

	bus := eventbus.New(log)
	defer bus.Close()

	client := agent.NewClient(
		cfg.Agent.URL,
		agent.NewHTTPClient(
			config.ParseDuration(cfg.Agent.ConnTimeout, 0),
			config.ParseDuration(cfg.Agent.HeaderTimeout, 0),
		),
		agent.BreakerConfig{
			MaxFailures: cfg.Agent.Breaker.MaxFailures,
			Timeout:     config.ParseDuration(cfg.Agent.Breaker.Timeout, 0),
			Interval:    config.ParseDuration(cfg.Agent.Breaker.Interval, 0),
		},
		log,
	)

	service := usecase.NewChatService(client, db, db, bus, usecase.ChatConfig{
		Debounce:       config.ParseDuration(cfg.Chat.Debounce, 0),
		RequestsPerMin: cfg.Chat.RequestsPerMin,
		Burst:          cfg.Chat.Burst,
	}, log)

	// Print transcript growth as it streams. Deltas carry the full content,
	// so only the unseen suffix is written.
	var printMu sync.Mutex
	printed := 0
	unsubscribe := bus.Subscribe(domain.EventStreamDelta, func(_ context.Context, ev domain.Event) {
		var payload domain.StreamDeltaPayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return
		}
		printMu.Lock()
		defer printMu.Unlock()
		if len(payload.Content) > printed {
			fmt.Print(payload.Content[printed:])
			printed = len(payload.Content)
		}
	})
	defer unsubscribe()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Reap in the background while the stream runs.
	if cfg.Reaper.Enabled {
		reaper := usecase.NewReaper(db, config.ParseDuration(cfg.Reaper.MaxAge, 0), log)
		stopReaper, err := reaper.Start(cfg.Reaper.Schedule)
		if err != nil {
			return err
		}
		defer stopReaper()
	}

	result, err := service.SendMessage(ctx, *sessionID, prompt)
	fmt.Println()
	if err != nil {
		if errors.Is(err, domain.ErrStreamCancelled) {
			fmt.Println(usecase.CancelledMarker)
			return nil
		}
		return err
	}

	if len(result.Files) > 0 {
		paths := make([]string, 0, len(result.Files))
		for p := range result.Files {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		fmt.Printf("\n%d file(s) generated:\n", len(paths))
		for _, p := range paths {
			fmt.Printf("  - %s\n", p)
		}
	}
	return nil
}
