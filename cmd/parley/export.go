package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thebluefowl/parley/internal/archive"
	"github.com/thebluefowl/parley/internal/enc"
	"github.com/thebluefowl/parley/internal/export"
)

var (
	recipientFlags  []string
	passphraseFlag  bool
	armorFlag       bool
	outFlag         string
	storeFlag       bool
	compressFlag    string
	identityFlags   []string
	newIdentityFlag bool
)

var exportCmd = &cobra.Command{
	Use:   "export <conversation>",
	Short: "Export a conversation to an age-encrypted transcript",
	Long: `Writes the conversation as it currently displays to an age-encrypted file, or to the store
with --store. Unlock first (--unlock) to export decrypted text; locked messages are exported as
placeholders.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

var exportShowCmd = &cobra.Command{
	Use:   "show <file>",
	Short: "Decrypt and print a transcript",
	Args:  cobra.ExactArgs(1),
	RunE:  runExportShow,
}

func init() {
	exportCmd.Flags().StringSliceVarP(&recipientFlags, "recipient", "r", nil, "age recipient (repeatable)")
	exportCmd.Flags().BoolVarP(&passphraseFlag, "passphrase", "p", false, "encrypt with a passphrase instead of recipients")
	exportCmd.Flags().BoolVar(&newIdentityFlag, "new-identity", false, "generate an age identity for this export and print it")
	exportCmd.Flags().BoolVarP(&armorFlag, "armor", "a", false, "ASCII-armor the output")
	exportCmd.Flags().StringVarP(&outFlag, "out", "o", "", "output file (default <conversation>.age)")
	exportCmd.Flags().BoolVar(&storeFlag, "store", false, "write the transcript to the configured store instead of a file")
	exportCmd.Flags().StringVar(&compressFlag, "compress", string(archive.ModeAuto), "compression: auto, zstd or none")

	exportShowCmd.Flags().StringSliceVarP(&identityFlags, "identity", "i", nil, "age identity or identity file (repeatable)")
	exportShowCmd.Flags().BoolVarP(&passphraseFlag, "passphrase", "p", false, "decrypt with a passphrase")

	exportCmd.AddCommand(exportShowCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	convID := args[0]

	seal, err := exportSealConfig()
	if err != nil {
		return err
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	shown, err := a.chat.History(ctx, convID)
	if err != nil {
		return err
	}
	locked := 0
	for _, d := range shown {
		if d.IsEncrypted {
			locked++
		}
	}
	if locked > 0 {
		printWarning(fmt.Sprintf("%d message(s) could not be decrypted and are exported as placeholders.", locked))
	}

	opts := export.Options{
		Seal:        seal,
		Compression: archive.Options{Mode: archive.Mode(compressFlag)},
		Progress:    os.Stderr,
		Logger:      a.log,
	}

	if storeFlag {
		res, err := export.ToStorage(ctx, a.objects, convID, shown, opts)
		if err != nil {
			return err
		}
		color.Green("✓ Exported %d messages to %s", res.Messages, res.Key)
		return nil
	}

	out := outFlag
	if out == "" {
		out = convID + ".age"
	}
	f, err := os.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	res, err := export.Write(ctx, f, shown, opts)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(out)
		return err
	}

	color.Green("✓ Exported %d messages to %s (%.0f%% smaller)", res.Messages, out, res.Compression.Saving()*100)
	return nil
}

func exportSealConfig() (enc.SealConfig, error) {
	cfg := enc.SealConfig{Armor: armorFlag, Recipients: recipientFlags}

	if newIdentityFlag {
		recipient, identity, err := enc.GenerateIdentity()
		if err != nil {
			return cfg, err
		}
		cfg.Recipients = append(cfg.Recipients, recipient)
		fmt.Println(infoBox.Render(fmt.Sprintf("Public Key: %s\nSecret Key: %s", recipient, identity)))
		color.Yellow(Wrap("⚠ Keep the secret key. It is the only way to read this export.", 60))
	}

	if passphraseFlag {
		pass, err := askNewExportPassphrase()
		if err != nil {
			return cfg, err
		}
		cfg.Passphrase = pass
	}
	return cfg, nil
}

func askNewExportPassphrase() (string, error) {
	pass, err := askKey("Export Passphrase:")
	if err != nil {
		return "", err
	}
	confirm, err := askKey("Confirm Export Passphrase:")
	if err != nil {
		return "", err
	}
	if pass != confirm {
		color.Red("Passphrases do not match")
		return "", fmt.Errorf("passphrases do not match")
	}
	return pass, nil
}

func runExportShow(cmd *cobra.Command, args []string) error {
	open := enc.OpenConfig{Identities: identityFlags}
	if passphraseFlag {
		pass, err := askKey("Export Passphrase:")
		if err != nil {
			return err
		}
		open.Passphrase = pass
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open transcript: %w", err)
	}
	defer f.Close()

	recs, err := export.Read(f, open)
	if err != nil {
		return err
	}
	for _, r := range recs {
		who := string(r.Role)
		if r.Sender != "" {
			who = r.Sender
		}
		fmt.Printf("%s %s\n%s\n\n", color.New(color.Bold).Sprint(who),
			color.New(color.Faint).Sprint(r.CreatedAt.Local().Format("2006-01-02 15:04")), Wrap(r.Text, 76))
	}
	return nil
}
