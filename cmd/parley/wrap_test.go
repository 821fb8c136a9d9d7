package main

import "testing"

func TestWrap(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  string
	}{
		{"empty", "", 10, ""},
		{"fits", "hello world", 20, "hello world"},
		{"breaks at space", "hello world", 7, "hello \nworld"},
		{"breaks on the space itself", "hello world", 5, "hello\nworld"},
		{"keeps inner spacing", "a  b", 10, "a  b"},
		{"keeps newlines", "a\nb", 10, "a\nb"},
		{"splits long word", "abcdefgh", 3, "abc\ndef\ngh"},
		{"drops leading space", "aaaa bbbb", 4, "aaaa\nbbbb"},
		{"width one is a no-op", "a b", 1, "a b"},
		{"counts runes", "🔒🔒🔒 ok", 3, "🔒🔒🔒\nok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Wrap(tt.text, tt.width); got != tt.want {
				t.Errorf("Wrap(%q, %d) = %q, want %q", tt.text, tt.width, got, tt.want)
			}
		})
	}
}
