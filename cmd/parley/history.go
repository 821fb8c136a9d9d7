package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var jsonFlag bool

var historyCmd = &cobra.Command{
	Use:   "history <conversation>",
	Short: "Show a conversation",
	Long:  `Shows a conversation. Encrypted messages are decrypted when the key is unlocked (--unlock) and shown as locked otherwise.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

var contextCmd = &cobra.Command{
	Use:   "context <conversation>",
	Short: "Print a conversation as model input",
	Long:  `Prints the turns that would be replayed to the model, as JSON.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runContext,
}

var conversationsCmd = &cobra.Command{
	Use:   "conversations",
	Short: "List conversations",
	Args:  cobra.NoArgs,
	RunE:  runConversations,
}

func init() {
	historyCmd.Flags().BoolVar(&jsonFlag, "json", false, "print display messages as JSON")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	shown, err := a.chat.History(ctx, args[0])
	if err != nil {
		return err
	}

	if jsonFlag {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(shown)
	}

	if len(shown) == 0 {
		color.Yellow("ℹ No messages in %s", args[0])
		return nil
	}
	for _, d := range shown {
		printDisplay(d)
	}
	return nil
}

func runContext(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	turns, err := a.chat.ModelContext(ctx, args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(turns)
}

func runConversations(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	ids, err := a.chat.Conversations(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}
