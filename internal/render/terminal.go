package render

import (
	"bytes"
	"io"
	"os"

	"github.com/mdp/qrterminal/v3"
)

// Terminal draws QR codes with block characters on a writer
type Terminal struct {
	w         io.Writer
	halfBlock bool
}

// TerminalOption configures a Terminal renderer
type TerminalOption func(*Terminal)

// WithFullBlocks draws two characters per module instead of half blocks
func WithFullBlocks() TerminalOption {
	return func(t *Terminal) {
		t.halfBlock = false
	}
}

// NewTerminal creates a renderer printing to w (stdout when nil)
func NewTerminal(w io.Writer, opts ...TerminalOption) *Terminal {
	if w == nil {
		w = os.Stdout
	}
	t := &Terminal{w: w, halfBlock: true}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Render prints the code and returns the printed text. Format and Size are ignored.
func (t *Terminal) Render(payload string, opts Options, dest string) (Output, error) {
	if payload == "" {
		return Output{}, ErrEmptyPayload
	}
	opts = opts.WithDefaults()

	var buf bytes.Buffer
	w := io.MultiWriter(t.w, &buf)
	if t.halfBlock {
		qrterminal.GenerateHalfBlock(payload, terminalLevel(opts.Level), w)
	} else {
		qrterminal.Generate(payload, terminalLevel(opts.Level), w)
	}

	out := Output{Format: FormatText, Data: buf.Bytes()}
	if dest != "" {
		if err := os.WriteFile(dest, out.Data, 0o644); err != nil {
			return Output{}, err
		}
		out.Path = dest
	}
	return out, nil
}
