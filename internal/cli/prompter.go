package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
)

// TerminalPrompter asks questions on Out and reads answers from In.
type TerminalPrompter struct {
	Out io.Writer

	mu  sync.Mutex
	in  *bufio.Reader
	raw io.Reader
}

// NewTerminalPrompter reads answers from in and writes prompts to out.
func NewTerminalPrompter(in io.Reader, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{Out: out, raw: in}
}

func (p *TerminalPrompter) readLine() (string, error) {
	if p.in == nil {
		p.in = bufio.NewReader(p.raw)
	}
	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Confirm asks question until it is answered with y or n. An empty answer
// is no.
func (p *TerminalPrompter) Confirm(question string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		fmt.Fprintf(p.Out, "%s [y/N] ", question)
		line, err := p.readLine()
		if err == io.EOF {
			return false, fmt.Errorf("confirm: no answer: %w", err)
		}
		if err != nil {
			return false, fmt.Errorf("confirm: %w", err)
		}
		switch strings.ToLower(line) {
		case "y", "yes":
			return true, nil
		case "", "n", "no":
			return false, nil
		}
		fmt.Fprintln(p.Out, "Please answer y or n.")
	}
}

// WaitForEnter shows message and waits for a line of input.
func (p *TerminalPrompter) WaitForEnter(message string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.Out, "%s\nPress enter when done. ", message)
	if _, err := p.readLine(); err != nil {
		return fmt.Errorf("wait for enter: %w", err)
	}
	return nil
}
