package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/copyleftdev/bayesopt/internal/api"
	"github.com/copyleftdev/bayesopt/internal/config"
	"github.com/copyleftdev/bayesopt/internal/optimization"
	"github.com/copyleftdev/bayesopt/internal/optimization/objectives"
	"github.com/copyleftdev/bayesopt/internal/optimization/space"
	"github.com/copyleftdev/bayesopt/internal/remote"
)

type demoOptions struct {
	objective  string
	iterations int
	configName string
	seed       int64
	keep       bool

	volumeSamples int
}

func demoCmd(c *cli) *cobra.Command {
	o := demoOptions{}

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Optimize a synthetic objective function against the server",
		Long: fmt.Sprintf(`Run a suggest, evaluate and register loop on a synthetic objective
function and print the best observation. Available functions: %s.`, strings.Join(objectives.Names(), ", ")),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return c.runDemo(ctx, cmd, o)
		},
	}

	cmd.Flags().StringVar(&o.objective, "objective", "quadratic", "Objective function")
	cmd.Flags().IntVarP(&o.iterations, "iterations", "n", 20, "Number of suggestions to evaluate")
	cmd.Flags().StringVar(&o.configName, "config", "", "Named optimizer config on the server")
	cmd.Flags().Int64Var(&o.seed, "seed", 0, "Random seed")
	cmd.Flags().IntVar(&o.volumeSamples, "volume-samples", 10000, "Monte Carlo samples for the Pareto volume of multi-objective functions")
	cmd.Flags().BoolVar(&o.keep, "keep", false, "Keep the optimizer on the server afterwards")

	return cmd
}

func (c *cli) runDemo(ctx context.Context, cmd *cobra.Command, o demoOptions) error {
	if o.iterations <= 0 {
		return fmt.Errorf("--iterations must be positive")
	}
	fn, err := objectives.New(o.objective)
	if err != nil {
		return err
	}
	if fn.Problem.HasContext() {
		return fmt.Errorf("objective %s has a context space, which remote optimizers do not support", fn.Name)
	}

	t, err := c.dial()
	if err != nil {
		return err
	}
	defer t.Close()

	configName := o.configName
	if configName == "" && fn.Problem.MultiObjective() {
		configName = config.MultiObjectiveConfigName
	}
	opts := []remote.Option{remote.WithLogger(c.logger.Zap()), remote.WithConfigName(configName)}
	if cmd.Flags().Changed("seed") {
		opts = append(opts, remote.WithSeed(o.seed))
	}

	step := func(f func(ctx context.Context) error) error {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		return f(ctx)
	}

	var opt *remote.Optimizer
	if err := step(func(ctx context.Context) error {
		opt, err = remote.Create(ctx, t, fn.Problem, nil, opts...)
		return err
	}); err != nil {
		return fmt.Errorf("failed to create optimizer: %w", err)
	}
	if !o.keep {
		defer func() {
			if err := step(opt.Delete); err != nil {
				c.logger.Warn("Failed to delete demo optimizer", map[string]interface{}{
					"optimizer_id": opt.ID(),
					"error":        err.Error(),
				})
			}
		}()
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Optimizing %s with %s\n", fn.Name, opt.ID())

	for i := 1; i <= o.iterations; i++ {
		var suggestion space.Point
		if err := step(func(ctx context.Context) error {
			suggestion, err = opt.Suggest(ctx, nil)
			return err
		}); err != nil {
			return fmt.Errorf("iteration %d: %w", i, err)
		}

		value := fn.Evaluate(suggestion, nil)
		if err := step(func(ctx context.Context) error {
			return opt.Register(ctx, space.TableFromPoints(suggestion), space.TableFromPoints(value), nil)
		}); err != nil {
			return fmt.Errorf("iteration %d: %w", i, err)
		}
		c.logger.Debug("Evaluated suggestion", map[string]interface{}{
			"iteration":  i,
			"suggestion": suggestion,
			"value":      value,
		})
	}

	if fn.Problem.MultiObjective() {
		var vol *api.ParetoVolumeResult
		if err := step(func(ctx context.Context) error {
			vol, err = opt.ParetoVolume(ctx, o.volumeSamples, 0)
			return err
		}); err != nil {
			return err
		}
		fmt.Fprintf(out, "Pareto volume after %d iterations: %.4g [%.4g, %.4g] from %d frontier points\n",
			o.iterations, vol.Estimate, vol.Interval.Lower, vol.Interval.Upper, vol.FrontierSize)
		return nil
	}

	var best *optimization.Optimum
	if err := step(func(ctx context.Context) error {
		best, err = opt.Optimum(ctx, optimization.OptimumQuery{Definition: optimization.BestObservation})
		return err
	}); err != nil {
		return err
	}
	fmt.Fprintf(out, "Best after %d iterations: %s=%g at %s\n", o.iterations, best.Objective, best.Value, formatPoint(best.Config))
	return nil
}

func formatPoint(p space.Point) string {
	parts := make([]string, 0, len(p))
	for _, k := range p.Keys() {
		parts = append(parts, fmt.Sprintf("%s=%v", k, p[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
