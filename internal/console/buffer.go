package console

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Buffer holds command text waiting to be executed, one command per entry.
// It is owned by the frame loop and is not safe for concurrent use.
type Buffer struct {
	pending []string
}

// AddText appends text to the buffer. Commands are separated by newlines
// or by semicolons outside double quotes. Blank commands and // comments
// are dropped. Text is NFC-normalized so variable names typed on different
// terminals compare equal.
func (b *Buffer) AddText(text string) {
	text = norm.NFC.String(text)
	for _, cmd := range splitCommands(text) {
		if i := strings.Index(cmd, "//"); i >= 0 && !inQuotes(cmd[:i]) {
			cmd = cmd[:i]
		}
		cmd = strings.TrimSpace(cmd)
		if cmd == "" {
			continue
		}
		b.pending = append(b.pending, cmd)
	}
}

// Next pops the front command.
func (b *Buffer) Next() (string, bool) {
	if len(b.pending) == 0 {
		return "", false
	}
	cmd := b.pending[0]
	b.pending[0] = ""
	b.pending = b.pending[1:]
	return cmd, true
}

// Clear drops every pending command.
func (b *Buffer) Clear() {
	b.pending = nil
}

// Len returns the number of pending commands.
func (b *Buffer) Len() int {
	return len(b.pending)
}

func splitCommands(text string) []string {
	var (
		cmds   []string
		start  int
		quoted bool
	)
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '"':
			quoted = !quoted
		case ';':
			if !quoted {
				cmds = append(cmds, text[start:i])
				start = i + 1
			}
		case '\n', '\r':
			cmds = append(cmds, text[start:i])
			start = i + 1
			quoted = false
		}
	}
	return append(cmds, text[start:])
}

func inQuotes(s string) bool {
	return strings.Count(s, `"`)%2 == 1
}

// Tokenize splits a command into arguments. Double quotes group words and
// are removed.
func Tokenize(cmd string) []string {
	var (
		args   []string
		cur    strings.Builder
		quoted bool
		inArg  bool
	)
	for _, r := range cmd {
		switch {
		case r == '"':
			quoted = !quoted
			inArg = true
		case !quoted && (r == ' ' || r == '\t'):
			if inArg {
				args = append(args, cur.String())
				cur.Reset()
				inArg = false
			}
		default:
			cur.WriteRune(r)
			inArg = true
		}
	}
	if inArg {
		args = append(args, cur.String())
	}
	return args
}
