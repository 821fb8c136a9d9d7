package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thebluefowl/parley/internal/chat"
	"github.com/thebluefowl/parley/internal/keystore"
)

var chatCmd = &cobra.Command{
	Use:   "chat <conversation>",
	Short: "Open a conversation interactively",
	Long: `Shows the conversation and reads messages from stdin, one per line.
The unlocked key is held until the session ends.

Commands: /lock, /unlock, /status, /history, /quit`,
	Args: cobra.ExactArgs(1),
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	convID := args[0]

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := showHistory(ctx, a, convID); err != nil {
		return err
	}
	printState(a.enc.State(ctx))

	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(color.CyanString("> "))
		if !in.Scan() {
			fmt.Println()
			return in.Err()
		}
		line := strings.TrimSpace(in.Text())
		if line == "" {
			continue
		}

		switch line {
		case "/quit", "/exit":
			return nil
		case "/lock":
			a.enc.Lock()
			printState(a.enc.State(ctx))
		case "/unlock":
			if err := a.unlockInteractive(ctx); err != nil && !errors.Is(err, keystore.ErrKeyMismatch) {
				return err
			}
			if err := showHistory(ctx, a, convID); err != nil {
				return err
			}
		case "/status":
			printState(a.enc.State(ctx))
		case "/history":
			if err := showHistory(ctx, a, convID); err != nil {
				return err
			}
		default:
			if strings.HasPrefix(line, "/") {
				color.Yellow("ℹ Unknown command %s", line)
				continue
			}
			res, err := a.chat.Send(ctx, chat.SendRequest{ConversationID: convID, Text: line})
			if err != nil {
				return err
			}
			if res.Warning != "" {
				printWarning(res.Warning)
			}
		}
	}
}

func showHistory(ctx context.Context, a *app, convID string) error {
	shown, err := a.chat.History(ctx, convID)
	if err != nil {
		return err
	}
	for _, d := range shown {
		printDisplay(d)
	}
	return nil
}
