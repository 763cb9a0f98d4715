// lanchat is a two-peer LAN text chat for the terminal.
//
// One side listens, the other connects; both exchange display names once and
// then trade newline-delimited lines over the same connection.
//
// Usage:
//
//	lanchat server [port]          # Listen on the local IP (default port 8888)
//	lanchat client [addr]          # Connect to addr (default 127.0.0.1:8888)
//	lanchat --name alice server    # Skip the name prompt
//	lanchat --config chat.yaml ... # Use a specific config file
//	lanchat --version              # Print version and exit
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/daviddao/lanchat/internal/lan"
)

// Version is set via ldflags at build time (e.g. -X main.Version=v0.1.0).
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "lanchat: %v\n", err)
		os.Exit(1)
	}
}

// options collects the flags shared by both subcommands.
type options struct {
	configPath string
	name       string
	width      int
	height     int
	logFile    string
	logLevel   string
	bind       string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "lanchat",
		Short: "Chat with one peer on the local network",
		Long: `lanchat connects two terminals on the same network. Run "lanchat server"
on one machine and "lanchat client <addr>" on the other, then type away.
Press Esc to leave the chat.`,
		Version: Version,
		// Errors are printed once by main.
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate(`{{printf "lanchat %s\n" .Version}}`)

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "path to config.yaml (default: auto-discover .lanchat/config.yaml)")
	pf.StringVar(&opts.name, "name", "", "display name sent to the peer (default: prompt)")
	pf.IntVar(&opts.width, "width", 0, "chat region width in columns")
	pf.IntVar(&opts.height, "height", 0, "chat region height in rows")
	pf.StringVar(&opts.logFile, "log-file", "", "write a session log to this file")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level (debug|info|warn|error)")

	root.AddCommand(newServerCmd(opts), newClientCmd(opts))
	return root
}

func newServerCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server [port]",
		Short: "Wait for a peer to connect",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.close()
			if len(args) == 1 {
				s.cfg.Port = lan.ParsePort(args[0])
			}
			return s.serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&opts.bind, "bind", "", "host to listen on (default: local IP)")
	return cmd
}

func newClientCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "client [addr]",
		Short: "Connect to a waiting peer",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.close()
			if len(args) == 1 {
				s.cfg.Server = args[0]
			}
			return s.connect(cmd.Context())
		},
	}
}

// exitMessage describes how a finished session ended.
func exitMessage(err error) string {
	if err == nil {
		return "Connection ended."
	}
	if errors.Is(err, context.Canceled) {
		return "Interrupted."
	}
	return fmt.Sprintf("Connection ended: %v", err)
}
