package setup

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// prompter wraps interactive input for the wizard.
type prompter struct {
	scanner *bufio.Scanner
	out     io.Writer
	eof     bool
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{
		scanner: bufio.NewScanner(in),
		out:     out,
	}
}

// ask prints a prompt and reads one line of input.
func (p *prompter) ask(prompt string) string {
	fmt.Fprintf(p.out, "%s ", prompt)
	if p.scanner.Scan() {
		return strings.TrimSpace(p.scanner.Text())
	}
	p.eof = true
	return ""
}

// askDefault prints a prompt with a default value shown in brackets.
func (p *prompter) askDefault(prompt, defaultVal string) string {
	answer := p.ask(fmt.Sprintf("%s [%s]:", prompt, defaultVal))
	if answer == "" {
		return defaultVal
	}
	return answer
}

// askYesNo prints a y/n prompt and returns true for yes.
func (p *prompter) askYesNo(prompt string, defaultYes bool) bool {
	suffix := "[y/N]"
	if defaultYes {
		suffix = "[Y/n]"
	}
	answer := strings.ToLower(p.ask(fmt.Sprintf("%s %s:", prompt, suffix)))
	switch answer {
	case "y", "yes":
		return true
	case "n", "no":
		return false
	default:
		return defaultYes
	}
}

// askChoice prints numbered options and returns the selected 0-based index.
// An empty answer picks def. Input that ends early also picks def.
func (p *prompter) askChoice(prompt string, options []string, def int) int {
	fmt.Fprintln(p.out, prompt)
	for i, opt := range options {
		fmt.Fprintf(p.out, "  [%d] %s\n", i+1, opt)
	}
	for {
		answer := p.ask(fmt.Sprintf("Choice [%d]:", def+1))
		if answer == "" {
			return def
		}
		n, err := strconv.Atoi(answer)
		if err == nil && n >= 1 && n <= len(options) {
			return n - 1
		}
		fmt.Fprintf(p.out, "Please enter a number between 1 and %d.\n", len(options))
	}
}

// askValid repeats askDefault until check accepts the answer. Once input
// runs out the default is returned unchecked.
func (p *prompter) askValid(prompt, defaultVal string, check func(string) error) string {
	for {
		answer := p.askDefault(prompt, defaultVal)
		if p.eof {
			return defaultVal
		}
		err := check(answer)
		if err == nil {
			return answer
		}
		fmt.Fprintf(p.out, "  %v\n", err)
	}
}

// askBaseURL asks for the address of the student server, without a
// trailing slash.
func (p *prompter) askBaseURL(prompt, defaultVal string) string {
	base := p.askValid(prompt, defaultVal, func(s string) error {
		u, err := url.Parse(s)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%q is not an http:// or https:// URL with a host", s)
		}
		return nil
	})
	return strings.TrimRight(base, "/")
}

// askTimeout asks for a positive duration such as 3s or 500ms.
func (p *prompter) askTimeout(prompt string, defaultVal time.Duration) time.Duration {
	answer := p.askValid(prompt, defaultVal.String(), func(s string) error {
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("%q is not a duration like 3s or 500ms", s)
		}
		if d <= 0 {
			return fmt.Errorf("timeout must be positive, got %s", d)
		}
		return nil
	})
	d, err := time.ParseDuration(answer)
	if err != nil {
		return defaultVal
	}
	return d
}
