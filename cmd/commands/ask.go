package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
)

// NewAskCommand returns the ask subcommand.
func NewAskCommand() *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Send a message to the assistant and print the answer",
		ArgsUsage: "<message>",
		Flags: []cli.Flag{
			gatewayFlag(),
			&cli.StringFlag{
				Name:  "conversation",
				Usage: "Conversation ID",
				Value: "cli",
			},
			&cli.StringFlag{
				Name:  "user",
				Usage: "Requester ID",
				Value: "cli-user",
			},
			&cli.IntFlag{
				Name:  "timeout",
				Usage: "Response timeout in seconds",
				Value: 120,
			},
		},
		Action: runAsk,
	}
}

func runAsk(_ context.Context, cmd *cli.Command) error {
	message := strings.Join(cmd.Args().Slice(), " ")
	if strings.TrimSpace(message) == "" {
		return fmt.Errorf("usage: mnemo ask <message>")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cmd.Int("timeout"))*time.Second)
	defer cancel()

	var resp struct {
		Answer string `json:"answer"`
	}
	err := apiCall(ctx, "POST", cmd.String("gateway"), "/api/chat", map[string]string{
		"conversation_id": cmd.String("conversation"),
		"requester_id":    cmd.String("user"),
		"text":            message,
	}, &resp)
	if err != nil {
		return err
	}

	fmt.Println(resp.Answer)
	return nil
}
