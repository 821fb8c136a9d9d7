package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thebluefowl/parley/internal/encryption"
	"github.com/thebluefowl/parley/internal/keystore"
)

var encryptionCmd = &cobra.Command{
	Use:   "encryption",
	Short: "Manage message encryption",
}

var encryptionSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Turn on message encryption with a new key",
	Long:  `Turns on encryption. New messages are encrypted with the key before they are stored. Only a hash of the key is kept.`,
	Args:  cobra.NoArgs,
	RunE:  runEncryptionSetup,
}

var encryptionCheckCmd = &cobra.Command{
	Use:   "unlock-check",
	Short: "Check a key against the stored hash",
	Args:  cobra.NoArgs,
	RunE:  runEncryptionCheck,
}

var encryptionDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Turn off message encryption",
	Long:  `Turns off encryption after checking the key. Messages already encrypted stay encrypted and will no longer be shown decrypted.`,
	Args:  cobra.NoArgs,
	RunE:  runEncryptionDisable,
}

var encryptionStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether encryption is on",
	Args:  cobra.NoArgs,
	RunE:  runEncryptionStatus,
}

func init() {
	encryptionCmd.AddCommand(encryptionSetupCmd)
	encryptionCmd.AddCommand(encryptionCheckCmd)
	encryptionCmd.AddCommand(encryptionDisableCmd)
	encryptionCmd.AddCommand(encryptionStatusCmd)
}

func runEncryptionSetup(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if s := a.enc.State(ctx); s == encryption.Locked || s == encryption.Unlocked {
		color.Yellow("ℹ Encryption is already enabled. Disable it first to change the key.")
		return encryption.ErrAlreadyEnabled
	}

	color.New(color.BgWhite).Println("Set up encryption key")
	key, err := askNewKey()
	if err != nil {
		return err
	}
	if err := a.enc.Setup(ctx, key); err != nil {
		return fmt.Errorf("failed to enable encryption: %w", err)
	}

	color.Green("✓ Encryption enabled. New messages will be encrypted before they are stored.")
	return nil
}

func runEncryptionCheck(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.keys.Enabled(ctx) {
		return encryption.ErrNotEnabled
	}
	key, err := askKey("Encryption Key:")
	if err != nil {
		return err
	}
	if !a.keys.VerifyKey(ctx, key) {
		color.Red("✗ Key does not match")
		return keystore.ErrKeyMismatch
	}
	color.Green("✓ Key matches")
	return nil
}

func runEncryptionDisable(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.keys.Enabled(ctx) {
		color.Yellow("ℹ Encryption is not enabled.")
		return nil
	}

	key, err := askKey("Current Encryption Key:")
	if err != nil {
		return err
	}
	if err := a.enc.Disable(ctx, key); err != nil {
		if errors.Is(err, keystore.ErrKeyMismatch) {
			color.Red("✗ Invalid encryption key, encryption is still enabled")
		}
		return err
	}

	color.Green("✓ Encryption disabled")
	printWarning("Messages that were encrypted stay encrypted. They will show as raw ciphertext from now on.")
	return nil
}

func runEncryptionStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	printState(a.enc.State(ctx))
	return nil
}
