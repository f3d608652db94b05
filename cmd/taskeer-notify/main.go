// Command taskeer-notify is the terminal notification center for the
// Taskeer collaborative to-do service.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/JCampos05/taskeer-notify/internal/app"
	"github.com/JCampos05/taskeer-notify/internal/client"
	"github.com/JCampos05/taskeer-notify/internal/localstore"
	"github.com/JCampos05/taskeer-notify/internal/model"
)

func main() {
	configPath := flag.String("config", model.DefaultConfigPath(), "path to the config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if err := run(*configPath, *debug); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, debug bool) error {
	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return err
	}

	logger, closeLog, err := openLogger(cfg.Storage.LogPath, debug)
	if err != nil {
		return err
	}
	defer closeLog()

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DBPath), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	store, err := localstore.NewSQLiteStore(cfg.Storage.DBPath, logger)
	if err != nil {
		return fmt.Errorf("opening local store: %w", err)
	}
	defer store.Close()

	bridge := app.NewBridge()
	c := client.New(cfg, store, bridge, bridge, nil, logger)
	c.Subscribe(bridge.OnUpdate)
	c.OnStateChange(bridge.OnStateChange)

	p := tea.NewProgram(app.New(c, store, bridge), tea.WithAltScreen())
	bridge.Wire(p.Send)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}

// openLogger writes diagnostics to a file so they never corrupt the
// terminal UI.
func openLogger(path string, debug bool) (*log.Logger, func(), error) {
	var w io.Writer = io.Discard
	closeLog := func() {}

	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating log directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		w = f
		closeLog = func() { f.Close() }
	}

	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}

	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Level:           level,
	})
	return logger, closeLog, nil
}
