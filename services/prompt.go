// ABOUTME: Interactive Steam Guard code prompt for accounts without a shared secret
// ABOUTME: Line-based huh input reading one code from the operator console

package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/huh"
)

// Prompter asks the operator for a two-factor code. Prompt blocks until
// a code is entered or ctx is cancelled.
type Prompter interface {
	Prompt(ctx context.Context, domain string) (string, error)
}

// ConsolePrompter reads codes with an accessible (line-based) huh form.
type ConsolePrompter struct {
	in  io.Reader
	out io.Writer
}

// NewConsolePrompter creates a prompter reading from in and writing the
// prompt to out.
func NewConsolePrompter(in io.Reader, out io.Writer) *ConsolePrompter {
	return &ConsolePrompter{in: in, out: out}
}

// Prompt asks for a code, naming the email domain when one is known.
func (p *ConsolePrompter) Prompt(ctx context.Context, domain string) (string, error) {
	var code string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(guardPromptTitle(domain)).
				CharLimit(16).
				Value(&code).
				Validate(validateGuardCode),
		),
	).
		WithAccessible(true).
		WithInput(p.in).
		WithOutput(p.out)

	if err := form.RunWithContext(ctx); err != nil {
		return "", fmt.Errorf("read Steam Guard code: %w", err)
	}
	return strings.TrimSpace(code), nil
}

// guardPromptTitle formats the question shown to the operator.
func guardPromptTitle(domain string) string {
	title := "Enter Steam Guard code"
	if domain != "" {
		title += " for email at " + domain
	}
	return title + ":"
}

func validateGuardCode(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("code cannot be empty")
	}
	return nil
}
