// Package view renders entities as terminal text. Components are functions of
// their props and an explicit Context; they hold no state of their own.
package view

import (
	"os"

	"github.com/mattn/go-isatty"
)

// Translator renders message keys. *i18n.Translator satisfies it.
type Translator interface {
	T(key string, params map[string]any) string
}

// Palette holds ANSI sequences for one theme.
type Palette struct {
	Title string
	Muted string
	OK    string
	Warn  string
	Error string
	Reset string
}

var (
	lightPalette = Palette{Title: "\x1b[1;34m", Muted: "\x1b[90m", OK: "\x1b[32m", Warn: "\x1b[33m", Error: "\x1b[31m", Reset: "\x1b[0m"}
	darkPalette  = Palette{Title: "\x1b[1;96m", Muted: "\x1b[37m", OK: "\x1b[92m", Warn: "\x1b[93m", Error: "\x1b[91m", Reset: "\x1b[0m"}
)

// Context carries rendering dependencies.
type Context struct {
	Tr      Translator
	Palette Palette // Zero value renders plain text
}

// NewContext picks the palette for the resolved theme. color=false renders plain text.
func NewContext(tr Translator, dark, color bool) Context {
	ctx := Context{Tr: tr}
	if !color {
		return ctx
	}
	if dark {
		ctx.Palette = darkPalette
	} else {
		ctx.Palette = lightPalette
	}
	return ctx
}

// ColorEnabled reports whether f is a terminal and NO_COLOR is unset.
func ColorEnabled(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// T translates through the context translator, falling back to the key.
func (c Context) T(key string, params map[string]any) string {
	if c.Tr == nil {
		return key
	}
	return c.Tr.T(key, params)
}

func (c Context) paint(code, text string) string {
	if code == "" {
		return text
	}
	return code + text + c.Palette.Reset
}
