package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// TerminalPresenter shows notices on a terminal and reads answers from in.
type TerminalPresenter struct {
	out     io.Writer
	in      *bufio.Reader
	baseURL string
}

func NewTerminalPresenter(in io.Reader, out io.Writer, baseURL string) *TerminalPresenter {
	return &TerminalPresenter{
		out:     out,
		in:      bufio.NewReader(in),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (p *TerminalPresenter) Alert(message string) {
	fmt.Fprintln(p.out, message)
}

// Confirm asks a y/N question. Anything but y or yes declines,
// including EOF.
func (p *TerminalPresenter) Confirm(message string) bool {
	fmt.Fprintf(p.out, "%s [y/N]: ", message)

	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(p.out)
		return false
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// Navigate prints the absolute address to open.
func (p *TerminalPresenter) Navigate(path string) {
	fmt.Fprintf(p.out, "브라우저에서 %s%s 을(를) 여세요.\n", p.baseURL, path)
}
