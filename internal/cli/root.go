// Package cli implements the promptrelay commands.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/promptrelay/config"
	"github.com/jonwraymond/promptrelay/internal/app"
)

// Version is set at build time.
var Version = "dev"

var configPath string

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:           "promptrelay",
	Short:         "Chat-completion relay that fills prompt placeholders",
	Long:          "promptrelay sits between a chat client and an OpenAI-compatible API. It substitutes placeholders, captions inline images, relays the reply and saves diary entries found in it.",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "dotenv settings file")
}

// openApp loads settings and builds the application. validate requires the
// settings the server needs.
func openApp(ctx context.Context, validate bool) (*app.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if validate {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return app.New(ctx, cfg, Version)
}
