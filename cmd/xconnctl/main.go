package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/danmuck/xconn/internal/config"
	logs "github.com/danmuck/xconn/internal/logging"
	"github.com/danmuck/xconn/internal/protocol/session"
)

type globalFlags struct {
	configPath string
	display    string
	logLevel   string
}

func main() {
	logs.ConfigureRuntime()

	var g globalFlags
	rootCmd := &cobra.Command{
		Use:   "xconnctl",
		Short: "Inspect and exercise an X11 display",
		Long: `xconnctl speaks the X11 core protocol directly.

It connects to the display named by --display, $DISPLAY or the config file,
authenticates with the matching Xauthority entry and runs one command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if g.logLevel != "" && !logs.SetLevel(g.logLevel) {
				return fmt.Errorf("unknown log level %q", g.logLevel)
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "TOML config file")
	rootCmd.PersistentFlags().StringVarP(&g.display, "display", "d", "", "display target host:display[.screen]")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level (trace, debug, info, warn, error, off)")

	rootCmd.AddCommand(
		infoCmd(&g),
		authCmd(&g),
		fontsCmd(&g),
		atomCmd(&g),
		watchCmd(&g),
		configCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "xconnctl: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// resolve merges defaults, the config file and command-line overrides.
func (g *globalFlags) resolve() (config.Config, error) {
	cfg := config.Default()
	if g.configPath != "" {
		var err error
		if cfg, err = config.Load(g.configPath); err != nil {
			return config.Config{}, err
		}
	}
	if g.display != "" {
		cfg.Display = g.display
	}
	if g.logLevel == "" && cfg.LogLevel != "" {
		logs.SetLevel(cfg.LogLevel)
	}
	return cfg, nil
}

func (g *globalFlags) connect(cmd *cobra.Command) (*session.Conn, config.Config, error) {
	cfg, err := g.resolve()
	if err != nil {
		return nil, config.Config{}, err
	}
	c, err := session.Connect(cmd.Context(), cfg.Display, cfg.Session)
	if err != nil {
		return nil, config.Config{}, err
	}
	return c, cfg, nil
}

func closeConn(c *session.Conn) {
	if err := c.Close(); err != nil {
		logs.Warnf("xconnctl: close: %v", err)
	}
}
