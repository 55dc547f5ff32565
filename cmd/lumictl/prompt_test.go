package main

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/dokzlo13/lumictl/internal/form"
)

func TestPrompter_SecretFieldsBypassEchoedInput(t *testing.T) {
	var out bytes.Buffer
	var secretReads int
	p := &prompter{
		in:  bufio.NewReader(strings.NewReader("user@example.com\n")),
		out: &out,
		readSecret: func() (string, error) {
			secretReads++
			return "hunter22", nil
		},
	}
	f := form.New(nil,
		form.Field{Name: "email", Label: "Email", Rules: []form.Rule{form.Required(), form.Email()}},
		form.Field{Name: "password", Label: "Password", Rules: []form.Rule{form.Required()}, Secret: true},
	)

	if err := p.fill(f); err != nil {
		t.Fatalf("fill() error = %v", err)
	}
	if f.Value("email") != "user@example.com" || f.Value("password") != "hunter22" {
		t.Errorf("values = %v", f.Values())
	}
	if secretReads != 1 {
		t.Errorf("secret reader used %d times, want 1", secretReads)
	}
	if strings.Contains(out.String(), "hunter22") {
		t.Error("secret value written to the prompt output")
	}
}

func TestPrompter_SecretWithoutTerminalReadsLine(t *testing.T) {
	p := &prompter{
		in:  bufio.NewReader(strings.NewReader("piped-secret\n")),
		out: &bytes.Buffer{},
	}
	f := form.New(nil, form.Field{Name: "password", Rules: []form.Rule{form.Required()}, Secret: true})

	if err := p.fill(f); err != nil {
		t.Fatalf("fill() error = %v", err)
	}
	if f.Value("password") != "piped-secret" {
		t.Errorf("password = %q", f.Value("password"))
	}
}

func TestPrompter_GivesUpAfterThreeAttempts(t *testing.T) {
	p := &prompter{
		in:  bufio.NewReader(strings.NewReader("\n\n\n\n")),
		out: &bytes.Buffer{},
	}
	f := form.New(nil, form.Field{Name: "email", Rules: []form.Rule{form.Required()}})

	if err := p.fill(f); err == nil {
		t.Error("fill() should fail when a required field stays empty")
	}
}
