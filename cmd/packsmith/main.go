package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/packsmith/internal/build"
	"git.home.luguber.info/inful/packsmith/internal/cache"
	"git.home.luguber.info/inful/packsmith/internal/config"
	apperrors "git.home.luguber.info/inful/packsmith/internal/errors"
	"git.home.luguber.info/inful/packsmith/internal/history"
	"git.home.luguber.info/inful/packsmith/internal/version"
)

var CLI struct {
	Config  string `short:"c" help:"Project configuration file" type:"path"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Build struct {
		Link   string `short:"l" help:"Link the project to a world save before building" placeholder:"WORLD"`
		NoLink bool   `short:"n" help:"Don't copy the output to linked directories"`
	} `cmd:"" help:"Build the current project"`

	Watch struct {
		Link        string        `short:"l" help:"Link the project to a world save before watching" placeholder:"WORLD"`
		NoLink      bool          `short:"n" help:"Don't copy the output to linked directories"`
		Interval    time.Duration `short:"i" help:"Debounce interval for file changes (default from config)"`
		MetricsAddr string        `help:"Serve Prometheus metrics on this address" placeholder:"ADDR"`
	} `cmd:"" help:"Watch the project directory and rebuild on file changes"`

	Cache struct {
		Patterns []string `arg:"" optional:"" help:"Cache bucket name patterns"`
		Clear    bool     `short:"c" help:"Clear matching cache buckets"`
	} `cmd:"" help:"Inspect or clear the project cache"`

	Link struct {
		World        string `arg:"" optional:"" help:"World save receiving the data pack"`
		AppDir       string `help:"Path to the Minecraft installation directory" placeholder:"DIRECTORY"`
		DataPack     string `help:"Path to the data packs directory" placeholder:"DIRECTORY"`
		ResourcePack string `help:"Path to the resource packs directory" placeholder:"DIRECTORY"`
		Clear        bool   `short:"c" help:"Clear the link"`
	} `cmd:"" help:"Link the generated packs to Minecraft directories"`

	Init struct {
		Force bool `help:"Overwrite an existing configuration file"`
	} `cmd:"" help:"Initialize a new project configuration"`

	History struct {
		Limit int `short:"l" help:"Number of builds to show" default:"10"`
	} `cmd:"" help:"Show recent build history"`

	Version struct{} `cmd:"" help:"Print the packsmith version"`
}

func main() {
	parsed := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	adapter := apperrors.NewCLIErrorAdapter(CLI.Verbose, nil)
	project := &build.Project{ConfigPath: CLI.Config}

	// Commands with positional arguments report them as part of the command
	// path, so dispatch on the leading token only.
	switch strings.Fields(parsed.Command())[0] {
	case "build":
		adapter.HandleError(runBuild(project))
	case "watch":
		adapter.HandleError(runWatch(project))
	case "cache":
		adapter.HandleError(runCache(project))
	case "link":
		adapter.HandleError(runLink(project))
	case "init":
		adapter.HandleError(runInit())
	case "history":
		adapter.HandleError(runHistory(project))
	case "version":
		fmt.Printf("packsmith %s (%s, built %s)\n", version.Version, version.GitCommit, version.BuildTime)
	}
}

// printFence opens a message fence around a command and returns the closer
// that prints the trailing confirmation.
func printFence(message string) func() {
	fmt.Println(message)
	fmt.Println()
	return func() {
		fmt.Println("Done!")
	}
}

func runBuild(project *build.Project) error {
	text := "Building project..."
	if CLI.Build.Link != "" {
		text = "Linking and building project..."
	}
	done := printFence(text)

	if CLI.Build.Link != "" {
		summary, err := project.Link(CLI.Build.Link, "", "", "")
		if err != nil {
			return err
		}
		fmt.Println(summary)
	}

	store := openHistory(project)
	if store != nil {
		defer func() { _ = store.Close() }()
	}

	started := time.Now()
	buildCtx, err := project.Build(CLI.Build.NoLink)
	recordBuild(store, buildCtx, started, err)
	if err != nil {
		return err
	}
	done()
	return nil
}

func runCache(project *build.Project) error {
	patterns := CLI.Cache.Patterns
	if CLI.Cache.Clear {
		done := printFence("Clearing cache...")
		names, err := project.ClearCache(patterns...)
		if err != nil {
			return err
		}
		switch {
		case len(names) > 0:
			fmt.Printf("Cache cleared successfully: %s.\n", strings.Join(names, ", "))
		case len(patterns) > 0:
			fmt.Println("No matching results.")
		default:
			fmt.Println("The cache is already cleared.")
		}
		done()
		return nil
	}

	done := printFence("Inspecting cache...")
	summaries, err := project.InspectCache(patterns...)
	if err != nil {
		return err
	}
	switch {
	case len(summaries) > 0:
		fmt.Println(strings.Join(summaries, "\n"))
	case len(patterns) > 0:
		fmt.Println("No matching results.")
	default:
		fmt.Println("The cache is completely clear.")
	}
	done()
	return nil
}

func runLink(project *build.Project) error {
	if CLI.Link.Clear {
		done := printFence("Clearing project link...")
		if err := project.ClearLink(); err != nil {
			return err
		}
		done()
		return nil
	}

	done := printFence("Linking project...")
	summary, err := project.Link(CLI.Link.World, CLI.Link.AppDir, CLI.Link.DataPack, CLI.Link.ResourcePack)
	if err != nil {
		return err
	}
	fmt.Println(summary)
	done()
	return nil
}

func runInit() error {
	path := CLI.Config
	if path == "" {
		path = config.FileNames[0]
	}
	done := printFence("Initializing project...")
	if err := config.Init(path, CLI.Init.Force); err != nil {
		return err
	}
	fmt.Println("Configuration file created: " + path)
	done()
	return nil
}

func runHistory(project *build.Project) error {
	cfg, err := project.Config()
	if err != nil {
		return err
	}
	store, err := history.NewSQLiteStore(historyPath(cfg))
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	records, err := store.Recent(context.Background(), CLI.History.Limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No builds recorded yet.")
		return nil
	}
	for _, record := range records {
		line := fmt.Sprintf("%s  %-7s  %8s  cache %d/%d  %s",
			record.StartedAt.Format("2006-01-02 15:04:05"),
			record.Outcome,
			record.Duration.Round(time.Millisecond),
			record.CacheHits, record.CacheHits+record.CacheMisses,
			record.BuildID)
		if record.Error != "" {
			line += "  " + record.Error
		}
		fmt.Println(line)
	}
	return nil
}

func historyPath(cfg *config.Config) string {
	return filepath.Join(cfg.Directory, cache.DefaultDirName, history.DefaultFileName)
}

// openHistory opens the build history store. History is best-effort: any
// failure disables it for the invocation instead of failing the command.
func openHistory(project *build.Project) history.Store {
	cfg, err := project.Config()
	if err != nil {
		return nil
	}
	path := historyPath(cfg)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		slog.Warn("Build history disabled", "error", err)
		return nil
	}
	store, err := history.NewSQLiteStore(path)
	if err != nil {
		slog.Warn("Build history disabled", "error", err)
		return nil
	}
	return store
}

func recordBuild(store history.Store, buildCtx *build.Context, started time.Time, buildErr error) {
	if store == nil {
		return
	}
	record := history.Record{
		StartedAt: started,
		Duration:  time.Since(started),
		Outcome:   "success",
	}
	if buildCtx != nil {
		record.BuildID = buildCtx.BuildID
		record.CacheHits, record.CacheMisses = buildCtx.CacheStats()
	}
	if buildErr != nil {
		record.Outcome = "failed"
		record.Error = buildErr.Error()
	}
	if err := store.Append(context.Background(), record); err != nil {
		slog.Warn("Failed to record build history", "error", err)
	}
}
