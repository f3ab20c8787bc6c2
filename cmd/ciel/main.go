package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/cieldm/ciel/internal/config"
	"github.com/cieldm/ciel/internal/dispatch"
	"github.com/cieldm/ciel/internal/domain"
	"github.com/cieldm/ciel/internal/engine"
	"github.com/cieldm/ciel/internal/log"
	"github.com/cieldm/ciel/internal/registry"
	"github.com/cieldm/ciel/internal/scheduler"
	"github.com/cieldm/ciel/internal/settings"
	"github.com/cieldm/ciel/internal/store"
	"github.com/cieldm/ciel/internal/tui"
	"github.com/cieldm/ciel/internal/tui/styles"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	var showVersion bool
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.Parse()

	if showVersion {
		fmt.Printf("ciel %s\n", Version)
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("ciel needs an interactive terminal")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Setup logger
	logger, err := log.Setup(cfg.Logging.File, cfg.Logging.Level)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = log.Null()
	}
	slog.SetDefault(logger)

	logger.Info("starting ciel", "version", Version, "engine", cfg.Engine.URL)

	// Warm-start cache
	cache, err := store.NewCacheStore(cfg.CacheDir())
	if err != nil {
		logger.Warn("cache unavailable, continuing without it", "error", err)
		cache, _ = store.NewCacheStore("")
	}
	defer cache.Close()

	// Engine client and core services
	client := engine.NewClient(cfg.Engine.URL, logger)
	reg := registry.New(logger)
	sync := settings.New(client, logger)
	dispatcher := dispatch.New(client, reg, cache, logger)

	// Seed from cache so the first frame has content, then converge.
	if snap, ok := cache.GetSettings(); ok {
		sync.Seed(snap)
	}
	dispatcher.WarmStart()

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// TUI model first: the reconciler needs its autocatch handler.
	styles.ApplyTheme(cfg.UI.Theme)
	model := tui.NewModel(dispatcher, reg, sync, cfg.UI, logger)

	reconciler := registry.NewReconciler(reg, sync, dispatcher.Refresh, logger)
	reconciler.SetCatchHandler(model.CatchHandler())
	reconciler.SetSoundNotifier(func(domain.Download) {
		fmt.Print("\a") // terminal bell
	})

	// Initial settings load. Failure keeps defaults or the cached seed;
	// the engine may still be starting up.
	startupCtx, startupCancel := context.WithTimeout(rootCtx, 10*time.Second)
	if err := sync.Load(startupCtx); err != nil {
		logger.Warn("initial settings load failed", "error", err)
	} else if snap := sync.Current(); len(snap) > 0 {
		if err := cache.SaveSettings(snap); err != nil {
			logger.Warn("settings cache write failed", "error", err)
		}
	}
	startupCancel()

	// Resume queued work at launch when the user wants downloads to start
	// on their own.
	if sync.Current().Bool(domain.SettingAutoStart, false) {
		go dispatcher.ResumeAll(rootCtx)
	}

	// Keep settings cache in step with future changes.
	sync.Subscribe(func(snap domain.Snapshot) {
		if err := cache.SaveSettings(snap); err != nil {
			logger.Warn("settings cache write failed", "error", err)
		}
	})

	// Run the TUI
	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
	)

	// Event stream pump with reconnect.
	go runEventLoop(rootCtx, client, reconciler, logger, func() {
		p.Send(tui.EventStreamClosedMsg{})
	})

	// Timed download window.
	sched := scheduler.New(dispatcher, sync, logger)
	go sched.Run(rootCtx)

	logger.Info("starting TUI")

	if _, err := p.Run(); err != nil {
		logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	logger.Info("shutting down")
	return nil
}

// runEventLoop keeps one event subscription alive, resubscribing with
// backoff when the stream drops.
func runEventLoop(ctx context.Context, src domain.EventSource, rec *registry.Reconciler, logger *slog.Logger, onDrop func()) {
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for ctx.Err() == nil {
		sub, err := src.Subscribe(ctx)
		if err != nil {
			logger.Warn("event subscribe failed, retrying", "error", err, "backoff", backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < maxBackoff {
				backoff *= 2
			}
			continue
		}

		backoff = time.Second
		logger.Info("engine event stream connected")
		rec.Run(ctx, sub)
		sub.Close()

		if ctx.Err() == nil {
			logger.Warn("engine event stream dropped, reconnecting")
			if onDrop != nil {
				onDrop()
			}
		}
	}
}
