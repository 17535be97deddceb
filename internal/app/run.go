package app

import (
	"context"
	"fmt"
	"io"

	"github.com/karst-sim/karst/internal/ctxlog"
	"github.com/karst-sim/karst/internal/driver"
	"github.com/karst-sim/karst/internal/scenario"
)

// Run executes a full simulation: load the scenario, bring the state
// registry through setup and initialization, then cycle the driver from
// start to stop.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	sc, err := scenario.Load(ctx, a.registry, a.config.ScenarioPath)
	if err != nil {
		return fmt.Errorf("failed to load scenario: %w", err)
	}

	if err := sc.State.Setup(); err != nil {
		return fmt.Errorf("failed to set up state registry: %w", err)
	}
	if err := sc.State.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize state registry: %w", err)
	}

	d, err := driver.New(sc.State, driver.Config{
		Start:    sc.Time.Start,
		Stop:     sc.Time.Stop,
		Step:     sc.Time.Step,
		Observed: sc.Observed,
	})
	if err != nil {
		return err
	}
	if err := d.Run(ctx); err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}

// Graph loads the scenario and writes its evaluator dependency graph in
// DOT form to w. Initial conditions are not applied; the graph needs
// only declared shapes, so an incomplete scenario still renders.
func (a *App) Graph(ctx context.Context, w io.Writer) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	sc, err := scenario.Load(ctx, a.registry, a.config.ScenarioPath)
	if err != nil {
		return fmt.Errorf("failed to load scenario: %w", err)
	}
	if err := sc.State.Setup(); err != nil {
		return fmt.Errorf("failed to set up state registry: %w", err)
	}
	return sc.State.WriteDependencyGraph(w)
}
