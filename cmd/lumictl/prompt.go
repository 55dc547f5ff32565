package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/dokzlo13/lumictl/internal/form"
)

// prompter asks for missing form values on an interactive reader.
type prompter struct {
	in  *bufio.Reader
	out io.Writer

	// readSecret reads one line without echo; nil when stdin is not a terminal
	readSecret func() (string, error)
}

func newPrompter() *prompter {
	p := &prompter{in: bufio.NewReader(os.Stdin), out: os.Stderr}
	if fd := int(os.Stdin.Fd()); term.IsTerminal(fd) {
		p.readSecret = func() (string, error) {
			b, err := term.ReadPassword(fd)
			fmt.Fprintln(p.out)
			return string(b), err
		}
	}
	return p
}

func (p *prompter) readLine(secret bool) (string, error) {
	if secret && p.readSecret != nil {
		return p.readSecret()
	}
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// fill asks for every empty field, re-asking until the field validates.
// Values already set (e.g. from flags) are validated but not asked for.
func (p *prompter) fill(f *form.Form) error {
	for _, field := range f.Fields() {
		for attempt := 0; f.Value(field.Name) == "" || f.Error(field.Name) != ""; attempt++ {
			if attempt >= 3 {
				return errors.New(f.Error(field.Name))
			}
			if msg := f.Error(field.Name); msg != "" {
				fmt.Fprintln(p.out, msg)
			}
			label := field.Label
			if label == "" {
				label = field.Name
			}
			fmt.Fprintf(p.out, "%s: ", label)

			line, err := p.readLine(field.Secret)
			if err != nil {
				return fmt.Errorf("reading %s: %w", field.Name, err)
			}
			f.SetValue(field.Name, line)
			if f.Value(field.Name) == "" && f.Error(field.Name) == "" {
				// Optional field left blank
				break
			}
		}
	}
	return nil
}

// submit validates the whole form and returns the first problem as an error.
func submit(f *form.Form) error {
	if f.Submit() {
		return nil
	}
	for _, field := range f.Fields() {
		if msg := f.Error(field.Name); msg != "" {
			return errors.New(msg)
		}
	}
	return errors.New("invalid input")
}

// presetForm copies flag values into the form.
func presetForm(f *form.Form, values map[string]string) {
	for name, v := range values {
		if v != "" {
			f.SetValue(name, v)
		}
	}
}
