package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"

	"github.com/thebluefowl/parley/internal/encryption"
	"github.com/thebluefowl/parley/internal/keystore"
)

func askKey(message string) (string, error) {
	question := []*survey.Question{
		{
			Name: "key",
			Prompt: &survey.Password{
				Message: message,
			},
			Validate: survey.Required,
		},
	}

	var key string
	if err := survey.Ask(question, &key); err != nil {
		return "", err
	}
	return key, nil
}

func askNewKey() (string, error) {
	color.Yellow(Wrap("⚠ Forgetting your encryption key makes every encrypted message unreadable. There is no recovery. Write it down somewhere safe.", 60))
	fmt.Println()

	questions := []*survey.Question{
		{
			Name: "key",
			Prompt: &survey.Password{
				Message: "Encryption Key:",
			},
			Validate: survey.Required,
		},
		{
			Name: "confirm",
			Prompt: &survey.Password{
				Message: "Confirm Encryption Key:",
			},
			Validate: survey.Required,
		},
	}

	var answers struct {
		Key     string
		Confirm string
	}
	if err := survey.Ask(questions, &answers); err != nil {
		return "", err
	}

	if answers.Key != answers.Confirm {
		color.Red("Keys do not match")
		return "", errors.New("keys do not match")
	}
	return answers.Key, nil
}

// unlockInteractive prompts for the key and holds it for the rest of the process.
func (a *app) unlockInteractive(ctx context.Context) error {
	switch a.enc.State(ctx) {
	case encryption.Disabled:
		color.Yellow("ℹ Encryption is not enabled, nothing to unlock.")
		return nil
	case encryption.SetupPending:
		return errors.New("encryption is enabled but has no key; run `parley encryption setup`")
	case encryption.Unlocked:
		return nil
	}

	key, err := askKey("Encryption Key:")
	if err != nil {
		return fmt.Errorf("failed to get encryption key: %w", err)
	}
	if err := a.enc.Unlock(ctx, key); err != nil {
		if errors.Is(err, keystore.ErrKeyMismatch) {
			color.Red("✗ Invalid encryption key")
		}
		return err
	}
	color.Green("✓ Unlocked")
	return nil
}
