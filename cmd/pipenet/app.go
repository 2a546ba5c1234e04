package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dd0wney/cluso-pipenet/pkg/config"
	"github.com/dd0wney/cluso-pipenet/pkg/dataset"
	"github.com/dd0wney/cluso-pipenet/pkg/logging"
	"github.com/dd0wney/cluso-pipenet/pkg/pipenet"
	"github.com/dd0wney/cluso-pipenet/pkg/tools"
)

// errToolFailed marks a call whose Result was printed but not successful.
var errToolFailed = errors.New("tool call failed")

type app struct {
	configPath string
	envFile    string
	location   string
	compact    bool
	verbose    bool

	cfg        *config.Config
	logger     logging.Logger
	dispatcher *tools.Dispatcher
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath, a.envFile)
	if err != nil {
		return err
	}
	if a.location != "" {
		cfg.Dataset.Location = a.location
	}
	a.cfg = cfg

	level := logging.WarnLevel
	if a.verbose {
		level = logging.DebugLevel
	}
	a.logger = logging.New(os.Stderr, level, logging.FormatConsole)
	return nil
}

// open loads the dataset and builds the dispatcher. With allowEmpty an
// unset location yields an empty dataset instead of an error.
func (a *app) open(ctx context.Context, allowEmpty bool) error {
	var records []json.RawMessage
	switch {
	case a.cfg.Dataset.Location != "":
		ctx, cancel := context.WithTimeout(ctx, a.cfg.Dataset.LoadTimeout)
		defer cancel()
		snap, err := dataset.Load(ctx, a.cfg.Dataset.Location, a.cfg.DatasetOptions())
		if err != nil {
			return err
		}
		a.logger.Debug("dataset loaded",
			logging.String("origin", snap.Origin),
			logging.Count(len(snap.Records)),
			logging.Latency(snap.Duration),
		)
		records = snap.Records
	case !allowEmpty:
		return errors.New("no dataset: pass --dataset or set PIPENET_DATASET")
	}

	svc, err := pipenet.FromRecords(records,
		pipenet.WithLimits(a.cfg.Limits),
		pipenet.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}
	a.dispatcher = tools.NewDispatcher(tools.NewPipenetRegistry(svc), tools.WithLogger(a.logger))
	return nil
}

func (a *app) printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	if !a.compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

// call runs a tool and prints its Result.
func (a *app) call(ctx context.Context, w io.Writer, name string, args map[string]any) error {
	return a.report(w, a.dispatcher.CallMap(ctx, name, args))
}

// report prints res and turns an unsuccessful call into an error so the
// process exits non-zero.
func (a *app) report(w io.Writer, res *tools.Result) error {
	if err := a.printJSON(w, res); err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("%w: %s: %s", errToolFailed, res.ErrorKind, res.Error)
	}
	return nil
}
