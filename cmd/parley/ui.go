package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"

	"github.com/thebluefowl/parley/internal/encryption"
	"github.com/thebluefowl/parley/internal/history"
)

var (
	infoBox = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1).
		BorderForeground(lipgloss.Color("63"))

	warnBox = lipgloss.NewStyle().
		Border(lipgloss.ThickBorder()).
		Padding(0, 1).
		Bold(true).
		Foreground(lipgloss.Color("214")).
		BorderForeground(lipgloss.Color("196"))
)

// printWarning makes a plaintext fallback hard to miss.
func printWarning(msg string) {
	fmt.Println(warnBox.Render(Wrap("⚠ "+msg, 56)))
}

func printState(s encryption.State) {
	var line string
	switch s {
	case encryption.Disabled:
		line = color.New(color.FgWhite).Sprint("Encryption: disabled")
	case encryption.SetupPending:
		line = color.YellowString("Encryption: enabled, key not set up")
	case encryption.Locked:
		line = color.YellowString("Encryption: enabled, locked 🔒")
	case encryption.Unlocked:
		line = color.GreenString("Encryption: enabled, unlocked")
	}
	fmt.Println(infoBox.Render(line))
}

func printDisplay(d history.Display) {
	who := string(d.Role)
	if d.Sender != "" {
		who = d.Sender
	}

	header := color.New(color.Bold).Sprint(who)
	switch {
	case d.WasEncrypted:
		header += color.GreenString(" 🔐")
	case d.IsEncrypted:
		header += color.RedString(" [unreadable]")
	}

	text := Wrap(d.Text, 76)
	if d.IsEncrypted {
		text = color.New(color.Faint).Sprint(text)
	}
	fmt.Printf("%s %s\n%s\n\n", header, color.New(color.Faint).Sprint(d.CreatedAt.Local().Format("2006-01-02 15:04")), text)
}
