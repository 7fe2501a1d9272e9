// Package operator implements the kiosk's terminal-side enrollment prompts.
package operator

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// TerminalPrompter reads answers line by line. Reads block the caller, so
// the recognition loop is paused while the operator types.
type TerminalPrompter struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

func NewTerminalPrompter(in io.Reader, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{in: bufio.NewReader(in), out: out}
}

func (p *TerminalPrompter) Name(ctx context.Context) (string, error) {
	return p.ask(ctx, "Name: ")
}

func (p *TerminalPrompter) Profile(ctx context.Context) (string, error) {
	return p.ask(ctx, "Type 1/2/3: ")
}

func (p *TerminalPrompter) Notify(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, msg)
}

func (p *TerminalPrompter) ask(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprint(p.out, prompt)
	line, err := p.in.ReadString('\n')
	if err != nil {
		// A last line without a newline is still an answer.
		if err == io.EOF && line != "" {
			return strings.TrimRight(line, "\r"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
