package commands

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/mnemo-ai/mnemo/internal/memory"
)

// NewMemoryCommand returns the memory subcommand.
func NewMemoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "memory",
		Usage: "Inspect and manage long-term memory",
		Flags: []cli.Flag{
			gatewayFlag(),
		},
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List stored facts",
				Action: runMemoryList,
			},
			{
				Name:      "search",
				Usage:     "Search facts by similarity",
				ArgsUsage: "<query>",
				Action:    runMemorySearch,
			},
			{
				Name:      "forget",
				Usage:     "Delete a fact",
				ArgsUsage: "<id>",
				Action:    runMemoryForget,
			},
		},
		DefaultCommand: "list",
	}
}

func runMemoryList(ctx context.Context, cmd *cli.Command) error {
	var facts []memory.Fact
	if err := apiCall(ctx, "GET", cmd.String("gateway"), "/api/memories", nil, &facts); err != nil {
		return err
	}

	if len(facts) == 0 {
		fmt.Println("No facts stored.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSER\tTOPIC\tUPDATED\tTEXT")
	for _, f := range facts {
		topic := f.Topic
		if topic == "" {
			topic = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			f.ID, f.UserID, topic, f.UpdatedAt.Format("2006-01-02 15:04"), f.Text)
	}
	return w.Flush()
}

func runMemorySearch(ctx context.Context, cmd *cli.Command) error {
	query := cmd.Args().First()
	if query == "" {
		return fmt.Errorf("usage: mnemo memory search <query>")
	}

	var hits []memory.SearchHit
	path := "/api/memories/search?q=" + url.QueryEscape(query)
	if err := apiCall(ctx, "GET", cmd.String("gateway"), path, nil, &hits); err != nil {
		return err
	}

	if len(hits) == 0 {
		fmt.Println("No matching facts found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tID\tUSER\tTEXT")
	for _, h := range hits {
		fmt.Fprintf(w, "%.2f\t%s\t%s\t%s\n",
			h.Similarity, h.Fact.ID, h.Fact.UserID, h.Fact.Text)
	}
	return w.Flush()
}

func runMemoryForget(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("usage: mnemo memory forget <id>")
	}

	if err := apiCall(ctx, "DELETE", cmd.String("gateway"), "/api/memories/"+url.PathEscape(id), nil, nil); err != nil {
		return err
	}

	fmt.Printf("Fact %s deleted.\n", id)
	return nil
}
