package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/copyleftdev/bayesopt/internal/api"
	"github.com/copyleftdev/bayesopt/internal/config"
	"github.com/copyleftdev/bayesopt/internal/optimization"
	"github.com/copyleftdev/bayesopt/internal/remote"
)

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// call issues a single service-level RPC that is not tied to an optimizer.
func (c *cli) call(cmd *cobra.Command, method string, params, result interface{}) error {
	t, err := c.dial()
	if err != nil {
		return err
	}
	defer t.Close()
	ctx, cancel := c.context(cmd)
	defer cancel()
	return t.Call(ctx, method, params, result)
}

func createCmd(c *cli) *cobra.Command {
	var (
		problemPath string
		configName  string
		configPath  string
		seed        int64
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an optimizer",
		Long: `Create an optimizer for the problem described in a YAML or JSON file.
The optimizer uses the named server config unless --config-file is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			problem, err := loadProblem(problemPath, cmd.InOrStdin())
			if err != nil {
				return err
			}
			var cfg *config.OptimizerConfig
			if configPath != "" {
				if cfg, err = loadOptimizerConfig(configPath, cmd.InOrStdin()); err != nil {
					return err
				}
			}

			opts := []remote.Option{remote.WithLogger(c.logger.Zap()), remote.WithConfigName(configName)}
			if cmd.Flags().Changed("seed") {
				opts = append(opts, remote.WithSeed(seed))
			}

			t, err := c.dial()
			if err != nil {
				return err
			}
			defer t.Close()
			ctx, cancel := c.context(cmd)
			defer cancel()

			opt, err := remote.Create(ctx, t, problem, cfg, opts...)
			if err != nil {
				return fmt.Errorf("failed to create optimizer: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), opt.ID())
			return nil
		},
	}

	cmd.Flags().StringVarP(&problemPath, "problem", "p", "", "Problem definition file (- for stdin)")
	cmd.Flags().StringVar(&configName, "config", "", "Named optimizer config on the server")
	cmd.Flags().StringVar(&configPath, "config-file", "", "Optimizer config file, overrides --config")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed")
	_ = cmd.MarkFlagRequired("problem")

	return cmd
}

func describeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <optimizer-id>",
		Short: "Show an optimizer's problem, config and state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var info api.OptimizerInfo
			if err := c.call(cmd, api.MethodDescribe, api.IDParams{ID: args[0]}, &info); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), info)
		},
	}
}

func listCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the optimizers on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var res api.ListResult
			if err := c.call(cmd, api.MethodList, nil, &res); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(res.Optimizers) == 0 {
				fmt.Fprintln(out, "No optimizers found.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tOBJECTIVES\tOBSERVATIONS\tTRAINED")
			for _, info := range res.Optimizers {
				names := make([]string, len(info.Problem.Objectives))
				for i, o := range info.Problem.Objectives {
					names[i] = o.Name
				}
				fmt.Fprintf(w, "%s\t%v\t%d\t%t\n", info.ID, names, info.Observations, info.Trained)
			}
			return w.Flush()
		},
	}
}

func suggestCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <optimizer-id>",
		Short: "Ask for the next configuration to evaluate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.context(cmd)
			defer cancel()
			opt, done, err := c.attach(ctx, args[0])
			if err != nil {
				return err
			}
			defer done()

			suggestion, err := opt.Suggest(ctx, nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), suggestion)
		},
	}
}

func registerCmd(c *cli) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "register <optimizer-id>",
		Short: "Register observed configurations and their objective values",
		Long: `Register observations read from a YAML or JSON file of the form

  observations:
    - parameters: {x_1: 0.5, x_2: -1}
      targets: {y: 1.25}`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, targets, err := loadObservations(path, cmd.InOrStdin())
			if err != nil {
				return err
			}

			ctx, cancel := c.context(cmd)
			defer cancel()
			opt, done, err := c.attach(ctx, args[0])
			if err != nil {
				return err
			}
			defer done()

			if err := opt.Register(ctx, params, targets, nil); err != nil {
				return err
			}
			info, err := opt.Describe(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %d observation(s), %d total\n", params.Len(), info.Observations)
			return nil
		},
	}

	cmd.Flags().StringVarP(&path, "file", "f", "-", "Observations file (- for stdin)")

	return cmd
}

func optimumCmd(c *cli) *cobra.Command {
	var (
		definition string
		alpha      float64
	)

	cmd := &cobra.Command{
		Use:   "optimum <optimizer-id>",
		Short: "Report the best configuration found so far",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := optimization.ParseOptimumDefinition(definition)
			if err != nil {
				return err
			}

			ctx, cancel := c.context(cmd)
			defer cancel()
			opt, done, err := c.attach(ctx, args[0])
			if err != nil {
				return err
			}
			defer done()

			optimum, err := opt.Optimum(ctx, optimization.OptimumQuery{Definition: def, Alpha: alpha})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), optimum)
		},
	}

	cmd.Flags().StringVar(&definition, "definition", string(optimization.BestObservation), "Optimum definition")
	cmd.Flags().Float64Var(&alpha, "alpha", 0, "Confidence-bound alpha (0 for the default)")

	return cmd
}

func observationsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "observations <optimizer-id>",
		Short: "Print the registered observations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.context(cmd)
			defer cancel()
			opt, done, err := c.attach(ctx, args[0])
			if err != nil {
				return err
			}
			defer done()

			obs, err := opt.AllObservations(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), obs)
		},
	}
}

func configsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "configs [name]",
		Short: "List the server's optimizer configs or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var p api.ConfigGetParams
			if len(args) == 1 {
				p.Name = args[0]
			}
			var res api.ConfigGetResult
			if err := c.call(cmd, api.MethodConfigGet, p, &res); err != nil {
				return err
			}
			if res.Config != nil {
				return printJSON(cmd.OutOrStdout(), res.Config)
			}
			for _, name := range res.Names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func snapshotCmd(c *cli) *cobra.Command {
	var (
		store  bool
		output string
	)

	cmd := &cobra.Command{
		Use:   "snapshot <optimizer-id>",
		Short: "Snapshot an optimizer",
		Long: `Snapshot an optimizer's state. With --store the server keeps the snapshot
and its ID is printed; otherwise the encoded state is written to --output.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !store && output == "" {
				return fmt.Errorf("must specify either --store or --output")
			}

			ctx, cancel := c.context(cmd)
			defer cancel()
			opt, done, err := c.attach(ctx, args[0])
			if err != nil {
				return err
			}
			defer done()

			res, err := opt.Snapshot(ctx, store)
			if err != nil {
				return err
			}
			if store {
				fmt.Fprintln(cmd.OutOrStdout(), res.SnapshotID)
				return nil
			}
			if err := os.WriteFile(output, res.Data, 0o644); err != nil {
				return fmt.Errorf("failed to write snapshot: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d bytes to %s\n", len(res.Data), output)
			return nil
		},
	}

	cmd.Flags().BoolVar(&store, "store", false, "Keep the snapshot in the server's snapshot store")
	cmd.Flags().StringVarP(&output, "output", "o", "", "File to write the snapshot to")

	return cmd
}

func deleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <optimizer-id>",
		Short: "Delete an optimizer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.context(cmd)
			defer cancel()
			opt, done, err := c.attach(ctx, args[0])
			if err != nil {
				return err
			}
			defer done()

			if err := opt.Delete(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", opt.ID())
			return nil
		},
	}
}
