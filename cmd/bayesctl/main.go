// Command bayesctl drives a bayesopt server over JSON-RPC or gRPC.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/copyleftdev/bayesopt/internal/config"
	"github.com/copyleftdev/bayesopt/internal/logging"
	"github.com/copyleftdev/bayesopt/internal/remote"
)

// cli holds the global flags and the state built from them.
type cli struct {
	server    string
	transport string
	timeout   time.Duration
	logLevel  string

	logger *logging.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:   "bayesctl",
		Short: "Client for the bayesopt optimizer service",
		Long: `bayesctl creates optimizers on a bayesopt server, registers observations,
asks for suggestions and queries optima. It talks JSON-RPC over HTTP or gRPC.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.NewLogger(&logging.Config{
				Level:  c.logLevel,
				Format: "text",
				Output: "stderr",
			})
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			c.logger = logger
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&c.server, "server", config.GetEnv("BAYESOPT_SERVER", "http://localhost:8080"),
		"Server address: a base URL for jsonrpc, host:port for grpc")
	flags.StringVar(&c.transport, "transport", config.GetEnv("BAYESOPT_TRANSPORT", "jsonrpc"),
		"Transport (jsonrpc, grpc)")
	flags.DurationVar(&c.timeout, "timeout", config.GetEnvAsDuration("BAYESOPT_TIMEOUT", remote.DefaultTimeout),
		"Timeout for each call")
	flags.StringVar(&c.logLevel, "log-level", config.GetEnv("LOG_LEVEL", "warn"),
		"Log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		createCmd(c),
		describeCmd(c),
		listCmd(c),
		suggestCmd(c),
		registerCmd(c),
		optimumCmd(c),
		observationsCmd(c),
		configsCmd(c),
		snapshotCmd(c),
		deleteCmd(c),
		demoCmd(c),
	)

	return rootCmd
}

// dial opens the configured transport.
func (c *cli) dial() (remote.Transport, error) {
	switch c.transport {
	case "jsonrpc":
		return remote.NewJSONRPCTransport(c.server, c.timeout), nil
	case "grpc":
		return remote.NewGRPCTransport(c.server, c.timeout)
	default:
		return nil, fmt.Errorf("unknown transport %q, expected jsonrpc or grpc", c.transport)
	}
}

// context bounds a whole command by the call timeout.
func (c *cli) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, c.timeout)
}

// attach dials the server and attaches to optimizer id. The returned close
// function releases the transport.
func (c *cli) attach(ctx context.Context, id string) (*remote.Optimizer, func(), error) {
	t, err := c.dial()
	if err != nil {
		return nil, nil, err
	}
	opt, err := remote.Attach(ctx, t, id, remote.WithLogger(c.logger.Zap()))
	if err != nil {
		t.Close()
		return nil, nil, err
	}
	return opt, func() { t.Close() }, nil
}
