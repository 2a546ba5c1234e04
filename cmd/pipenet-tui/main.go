// Command pipenet-tui is an interactive terminal browser for a pipe-network
// dataset.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dd0wney/cluso-pipenet/pkg/config"
	"github.com/dd0wney/cluso-pipenet/pkg/dataset"
	"github.com/dd0wney/cluso-pipenet/pkg/pipenet"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "pipenet-tui: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "YAML config file")
	envFile := flag.String("env-file", ".env", "optional .env file")
	location := flag.String("dataset", "", "dataset location (overrides PIPENET_DATASET)")
	flag.Parse()

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		return err
	}
	if *location != "" {
		cfg.Dataset.Location = *location
	} else if flag.NArg() > 0 {
		cfg.Dataset.Location = flag.Arg(0)
	}
	if cfg.Dataset.Location == "" {
		return errors.New("no dataset: pass -dataset or set PIPENET_DATASET")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Dataset.LoadTimeout)
	defer cancel()
	snap, err := dataset.Load(ctx, cfg.Dataset.Location, cfg.DatasetOptions())
	if err != nil {
		return err
	}

	// Skipped-record warnings go nowhere here; the overview shows the count.
	svc, err := pipenet.FromRecords(snap.Records, pipenet.WithLimits(cfg.Limits))
	if err != nil {
		return err
	}

	p := tea.NewProgram(initialModel(svc, snap.Origin), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run program: %w", err)
	}
	return nil
}
