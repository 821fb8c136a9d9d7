package main

import (
	"context"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thebluefowl/parley/internal/chat"
	"github.com/thebluefowl/parley/internal/conversation"
)

var (
	roleFlag   string
	senderFlag string
)

var sendCmd = &cobra.Command{
	Use:   "send <conversation> <text>...",
	Short: "Store a message in a conversation",
	Long:  `Stores one message. With encryption on and the key unlocked (--unlock) it is encrypted first.`,
	Args:  cobra.MinimumNArgs(2),
	RunE:  runSend,
}

func init() {
	sendCmd.Flags().StringVar(&roleFlag, "role", string(conversation.RoleUser), "message role: user, assistant or system")
	sendCmd.Flags().StringVar(&senderFlag, "sender", "", "persona name for assistant messages")
}

func runSend(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.chat.Send(ctx, chat.SendRequest{
		ConversationID: args[0],
		Role:           conversation.Role(roleFlag),
		Sender:         senderFlag,
		Text:           strings.Join(args[1:], " "),
	})
	if err != nil {
		return err
	}

	printSendResult(res)
	return nil
}

func printSendResult(res chat.SendResult) {
	if res.Warning != "" {
		printWarning(res.Warning)
	}
	if res.WasEncrypted {
		color.Green("✓ Sent %s (encrypted)", res.Message.ID)
		return
	}
	color.Green("✓ Sent %s", res.Message.ID)
}
