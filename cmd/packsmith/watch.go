package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/packsmith/internal/build"
	"git.home.luguber.info/inful/packsmith/internal/config"
	apperrors "git.home.luguber.info/inful/packsmith/internal/errors"
	"git.home.luguber.info/inful/packsmith/internal/history"
	"git.home.luguber.info/inful/packsmith/internal/metrics"
	"git.home.luguber.info/inful/packsmith/internal/notify"
	"git.home.luguber.info/inful/packsmith/internal/watch"
)

func runWatch(project *build.Project) error {
	text := "Watching project..."
	if CLI.Watch.Link != "" {
		text = "Linking and watching project..."
	}
	done := printFence(text)

	if CLI.Watch.Link != "" {
		summary, err := project.Link(CLI.Watch.Link, "", "", "")
		if err != nil {
			return err
		}
		fmt.Println(summary)
	}

	cfg, err := project.Config()
	if err != nil {
		return err
	}

	if CLI.Watch.MetricsAddr != "" {
		stopMetrics := serveMetrics(project, CLI.Watch.MetricsAddr)
		defer stopMetrics()
	}

	store := openHistory(project)
	if store != nil {
		defer func() { _ = store.Close() }()
	}

	publisher := openPublisher(cfg)
	defer func() {
		if err := publisher.Close(); err != nil {
			slog.Warn("Failed to close event publisher", "error", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	watcher, err := project.Watcher(CLI.Watch.Interval)
	if err != nil {
		return err
	}
	defer watcher.Close()
	go func() {
		if err := watcher.Run(ctx); err != nil {
			slog.Error("Watcher stopped", "error", err)
			cancel()
		}
	}()

	forced := make(chan struct{}, 1)
	if period := cfg.Watch.RebuildEveryDuration(); period > 0 {
		scheduler, err := watch.NewScheduler()
		if err != nil {
			return err
		}
		if err := scheduler.EveryDuration("forced-rebuild", period, func() {
			select {
			case forced <- struct{}{}:
			default:
			}
		}); err != nil {
			return err
		}
		scheduler.Start()
		defer func() {
			if err := scheduler.Stop(); err != nil {
				slog.Warn("Failed to stop scheduler", "error", err)
			}
		}()
	}

	buildAndReport(project, store, publisher)

	for {
		select {
		case <-ctx.Done():
			done()
			return nil
		case changes, ok := <-watcher.Changes():
			if !ok {
				done()
				return nil
			}
			echoChanges(changes)
			buildAndReport(project, store, publisher)
		case <-forced:
			fmt.Printf("%s Forced rebuild\n", time.Now().Format("15:04:05"))
			buildAndReport(project, store, publisher)
		}
	}
}

// buildAndReport runs one watch-mode build. Failures are reported and
// recorded but never stop the watch loop.
func buildAndReport(project *build.Project, store history.Store, publisher notify.Publisher) {
	project.Reset()

	projectID := ""
	if cfg, err := project.Config(); err == nil {
		projectID = cfg.ID
	}
	publishEvent(publisher, notify.Event{
		Type:    notify.EventBuildStarted,
		Project: projectID,
		Time:    time.Now(),
	})

	started := time.Now()
	buildCtx, err := project.Build(CLI.Watch.NoLink)
	recordBuild(store, buildCtx, started, err)

	event := notify.Event{Type: notify.EventBuildCompleted, Project: projectID, Time: time.Now()}
	if buildCtx != nil {
		event.BuildID = buildCtx.BuildID
	}
	if err != nil {
		event.Type = notify.EventBuildFailed
		event.Detail = map[string]string{"error": err.Error()}
	}
	publishEvent(publisher, event)

	if err != nil {
		adapter := apperrors.NewCLIErrorAdapter(CLI.Verbose, nil)
		fmt.Fprintln(os.Stderr, adapter.FormatError(err))
	}
}

func echoChanges(changes watch.Changes) {
	text := fmt.Sprintf("%d changes detected", len(changes))
	if len(changes) == 1 {
		for file, op := range changes {
			text = fmt.Sprintf("%s '%s'", actionWord(op), file)
		}
	}
	fmt.Printf("%s %s\n", time.Now().Format("15:04:05"), text)
}

func actionWord(op fsnotify.Op) string {
	switch {
	case op&fsnotify.Create != 0:
		return "Created"
	case op&(fsnotify.Remove|fsnotify.Rename) != 0:
		return "Removed"
	case op&fsnotify.Write != 0:
		return "Modified"
	default:
		return "Changed"
	}
}

func publishEvent(publisher notify.Publisher, event notify.Event) {
	if err := publisher.Publish(context.Background(), event); err != nil {
		slog.Debug("Failed to publish build event", "error", err)
	}
}

func openPublisher(cfg *config.Config) notify.Publisher {
	if cfg.Notify.URL == "" {
		return notify.NopPublisher{}
	}
	publisher, err := notify.NewNATSPublisher(cfg.Notify.URL, cfg.Notify.Subject)
	if err != nil {
		slog.Warn("Build notifications disabled", "error", err)
		return notify.NopPublisher{}
	}
	return publisher
}

// serveMetrics swaps the project recorder for a Prometheus one and exposes it
// over HTTP until the returned stop function runs.
func serveMetrics(project *build.Project, addr string) func() {
	registry := prom.NewRegistry()
	project.Recorder = metrics.NewPrometheusRecorder(registry)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(registry))
	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		slog.Info("Serving metrics", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server failed", "error", err)
		}
	}()
	return func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Metrics server shutdown failed", "error", err)
		}
	}
}
