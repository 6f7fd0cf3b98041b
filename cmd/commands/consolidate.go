package commands

import (
	"context"
	"fmt"
	"net/url"

	"github.com/urfave/cli/v3"
)

// NewConsolidateCommand returns the consolidate subcommand.
func NewConsolidateCommand() *cli.Command {
	return &cli.Command{
		Name:      "consolidate",
		Usage:     "Run a consolidation pass over a source now",
		ArgsUsage: "<source>",
		Flags: []cli.Flag{
			gatewayFlag(),
		},
		Action: runConsolidate,
	}
}

func runConsolidate(ctx context.Context, cmd *cli.Command) error {
	sourceID := cmd.Args().First()
	if sourceID == "" {
		return fmt.Errorf("usage: mnemo consolidate <source>")
	}

	var resp struct {
		Status string `json:"status"`
		Source string `json:"source"`
	}
	path := "/api/consolidate/" + url.PathEscape(sourceID)
	if err := apiCall(ctx, "POST", cmd.String("gateway"), path, nil, &resp); err != nil {
		return err
	}

	fmt.Printf("Consolidation pass over %s: %s\n", resp.Source, resp.Status)
	return nil
}
