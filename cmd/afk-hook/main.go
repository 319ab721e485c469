package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/agent-relay/afk/internal/hook"
)

const (
	exitOK          = 0
	exitUnreachable = 1
	exitTimeout     = 2
	exitInterrupted = 130
)

func main() {
	var (
		configPath string
		server     string
		timeout    int
		disabled   bool
	)
	code := exitOK

	rootCmd := &cobra.Command{
		Use:   "afk-hook",
		Short: "Relay a blocked agent prompt to a remote operator",
		Long: `afk-hook reads one notification event from stdin, registers it with
the relay hub and waits for an operator's reply, which it injects back
into the agent's tmux pane.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := hook.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if server != "" {
				cfg.Server = server
			}
			if timeout > 0 {
				cfg.TimeoutSeconds = timeout
			}
			if disabled {
				cfg.Enabled = false
			}

			in, err := hook.ReadInput(cmd.InOrStdin())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			client := hook.NewClient(cfg, nil)
			result, err := client.Run(ctx, in, cmd.OutOrStdout())
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("[Hook] %v", err)
			}
			code = exitCode(result)
			return nil
		},
	}

	rootCmd.Flags().StringVar(&configPath, "config", "", "config file (default ~/.config/afk/config.yaml)")
	rootCmd.Flags().StringVar(&server, "server", "", "relay hub WebSocket URL")
	rootCmd.Flags().IntVar(&timeout, "timeout", 0, "seconds to wait for an operator response")
	rootCmd.Flags().BoolVar(&disabled, "disabled", false, "register nothing and exit immediately")

	if err := rootCmd.Execute(); err != nil {
		log.Printf("[Hook] %v", err)
		os.Exit(exitUnreachable)
	}
	os.Exit(code)
}

func exitCode(r hook.Result) int {
	switch r {
	case hook.ResultDelivered, hook.ResultNoOp:
		return exitOK
	case hook.ResultTimeout:
		return exitTimeout
	case hook.ResultInterrupted:
		return exitInterrupted
	default:
		return exitUnreachable
	}
}
