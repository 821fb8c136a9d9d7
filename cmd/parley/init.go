package main

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thebluefowl/parley/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file",
	Long:  `Asks where conversations are stored and writes the config file.`,
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	path, err := resolveConfigPath()
	if err != nil {
		return err
	}
	if config.Exists(path) {
		overwrite := false
		if err := survey.AskOne(&survey.Confirm{
			Message: fmt.Sprintf("%s exists. Overwrite?", path),
		}, &overwrite); err != nil {
			return err
		}
		if !overwrite {
			return nil
		}
	}

	color.New(color.BgWhite).Println("Set up config")
	fmt.Println()

	cfg := config.Default()
	if err := survey.AskOne(&survey.Select{
		Message: "Storage backend:",
		Options: []string{config.BackendBadger, config.BackendS3},
		Default: config.BackendBadger,
		Description: func(value string, _ int) string {
			if value == config.BackendS3 {
				return "any S3-compatible bucket"
			}
			return "local database"
		},
	}, &cfg.Storage.Backend); err != nil {
		return err
	}

	switch cfg.Storage.Backend {
	case config.BackendS3:
		if err := askS3(&cfg.Storage.S3); err != nil {
			return err
		}
	default:
		if err := survey.AskOne(&survey.Input{
			Message: "Database directory:",
			Default: cfg.Storage.Badger.Path,
		}, &cfg.Storage.Badger.Path, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(cfg, path); err != nil {
		return err
	}

	color.Green("✓ Configuration saved to %s", path)
	fmt.Println(infoBox.Render("Next: parley encryption setup"))
	return nil
}

func askS3(s3 *config.S3) error {
	questions := []*survey.Question{
		{
			Name:     "bucket",
			Prompt:   &survey.Input{Message: "Bucket Name:"},
			Validate: survey.Required,
		},
		{
			Name: "region",
			Prompt: &survey.Input{
				Message: "Region:",
				Default: s3.Region,
				Help:    "e.g., us-east-1, us-west-002, auto",
			},
			Validate: survey.Required,
		},
		{
			Name: "endpoint",
			Prompt: &survey.Input{
				Message: "Endpoint (empty for AWS):",
				Help:    "e.g., https://s3.us-west-002.backblazeb2.com, http://localhost:9000",
			},
		},
		{
			Name:   "keyid",
			Prompt: &survey.Input{Message: "Access Key ID (empty for the default credential chain):"},
		},
		{
			Name:   "secret",
			Prompt: &survey.Password{Message: "Secret Access Key:"},
		},
		{
			Name:   "pathstyle",
			Prompt: &survey.Confirm{Message: "Use path-style addressing?", Default: false},
		},
	}

	var answers struct {
		Bucket    string
		Region    string
		Endpoint  string
		KeyID     string
		Secret    string
		PathStyle bool
	}
	if err := survey.Ask(questions, &answers); err != nil {
		return err
	}

	s3.Bucket = answers.Bucket
	s3.Region = answers.Region
	s3.Endpoint = answers.Endpoint
	s3.AccessKeyID = answers.KeyID
	s3.SecretAccessKey = answers.Secret
	s3.PathStyle = answers.PathStyle
	return nil
}
