package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kansho/kansho/internal/config"
	"github.com/kansho/kansho/internal/downloads"
	"github.com/kansho/kansho/internal/kv"
	"github.com/kansho/kansho/internal/library"
	"github.com/kansho/kansho/internal/providers/manga"
	"github.com/kansho/kansho/internal/providers/manga/mangadex"
	"github.com/kansho/kansho/internal/providers/manga/mangapill"
	"github.com/kansho/kansho/internal/storage"
	"github.com/kansho/kansho/internal/ui"
)

func main() {
	verboseFlag := flag.Bool("verbose", false, "show verbose logs")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *verboseFlag {
		cfg.Verbose = true
	}

	dataRoot, err := cfg.DataRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving data dir: %v\n", err)
		os.Exit(1)
	}
	if err := storage.EnsureDir(dataRoot); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating data dir: %v\n", err)
		os.Exit(1)
	}

	httpClient := newHTTPClient()
	sources := manga.NewRegistry(
		mangadex.New(httpClient, cfg.Providers.MangaDexAPIKey),
		mangapill.New(httpClient, cfg.Providers.MangapillBaseURL),
	)

	kvStore := kv.NewFileStore(filepath.Join(dataRoot, "state.json"))
	layout := downloads.Layout{Root: dataRoot}
	fetcher := storage.NewHTTPFetcher(httpClient, "kansho/0.1")

	manager := downloads.NewManager(kvStore, layout, sources, fetcher)
	if err := manager.Initialize(); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing downloads: %v\n", err)
		os.Exit(1)
	}
	defer manager.Close()

	deps := ui.Dependencies{
		Sources:   sources,
		Downloads: manager,
		Library:   library.NewService(kvStore),
	}
	program := tea.NewProgram(ui.NewModel(cfg, deps), tea.WithAltScreen())

	// Bridge queue mutations into the TUI. Snapshots are defensive copies,
	// so Send is safe from the store's notification path.
	unsubscribe := manager.Subscribe(func(tasks []downloads.Task) {
		program.Send(ui.TasksMsg(tasks))
	})
	defer unsubscribe()

	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
		os.Exit(1)
	}
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}
