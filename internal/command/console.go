package command

import (
	"bufio"
	"context"
	"io"
	"strings"
)

// ConsoleSource reads line-oriented commands from a reader, typically
// stdin. "analyze" and "stop" map to their commands; anything else is
// dropped.
type ConsoleSource struct {
	r io.Reader
}

// NewConsoleSource creates a console command source.
func NewConsoleSource(r io.Reader) *ConsoleSource {
	return &ConsoleSource{r: r}
}

func (s *ConsoleSource) Commands(ctx context.Context) <-chan Command {
	ch := make(chan Command)

	go func() {
		defer close(ch)
		scanner := bufio.NewScanner(s.r)
		for scanner.Scan() {
			var cmd Command
			switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
			case "analyze", "a":
				cmd = Analyze
			case "stop", "s":
				cmd = Stop
			default:
				continue
			}
			select {
			case <-ctx.Done():
				return
			case ch <- cmd:
			}
		}
	}()

	return ch
}
