package commands

import (
	"github.com/urfave/cli/v3"

	"github.com/mnemo-ai/mnemo/internal/config"
)

// NewRootCommand returns the top-level CLI command.
func NewRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "mnemo",
		Usage: "Conversational assistant with consolidated long-term memory",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   config.ConfigPath(),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			NewGatewayCommand(),
			NewAskCommand(),
			NewMemoryCommand(),
			NewConsolidateCommand(),
			NewStatusCommand(),
		},
	}
}
