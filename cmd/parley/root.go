package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	unlockFlag bool
)

var rootCmd = &cobra.Command{
	Use:           "parley",
	Short:         "Persona chat with client-side message encryption",
	Long:          `A CLI for persona chat conversations whose messages can be encrypted on this machine before they are stored.`,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $PARLEY_CONFIG or <user config dir>/parley/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&unlockFlag, "unlock", "u", false, "prompt for the encryption key before running")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(encryptionCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(contextCmd)
	rootCmd.AddCommand(conversationsCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(exportCmd)
}
