package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/glamour"
	"github.com/set-night/promptforge/internal/repl"
	"github.com/set-night/promptforge/internal/session"
	"github.com/spf13/cobra"
)

var replSession string

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Engineer a prompt interactively in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runREPL(cmd.Context(), replSession)
	},
}

func init() {
	replCmd.Flags().StringVarP(&replSession, "session", "s", "default", "name of the saved session to resume")
}

func runREPL(parent context.Context, name string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogging(os.Stderr, cfg.Level())

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, session.Hooks{})
	if err != nil {
		return err
	}
	defer a.Close()

	console := repl.New(os.Stdin, os.Stdout, a.sessions.Get(ctx, "cli:"+name))
	console.Copy = clipboard.WriteAll

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return fmt.Errorf("create markdown renderer: %w", err)
	}
	console.Render = renderer.Render

	return console.Run(ctx)
}
