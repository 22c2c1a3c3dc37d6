package command

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePilot records the order of pilot operations.
type fakePilot struct {
	mu  sync.Mutex
	ops []string
}

func (p *fakePilot) SetPilotEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if enabled {
		p.ops = append(p.ops, "enable")
	} else {
		p.ops = append(p.ops, "disable")
	}
}

func (p *fakePilot) TriggerOnce() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ops = append(p.ops, "trigger")
}

func (p *fakePilot) StopLive() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ops = append(p.ops, "stop")
}

func (p *fakePilot) operations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.ops))
	copy(out, p.ops)
	return out
}

func TestConsoleSourceParsesLines(t *testing.T) {
	tests := map[string]struct {
		input  string
		expect []Command
	}{
		"Full words map to commands": {
			input:  "analyze\nstop\n",
			expect: []Command{Analyze, Stop},
		},
		"Single-letter shortcuts work": {
			input:  "a\ns\n",
			expect: []Command{Analyze, Stop},
		},
		"Case and surrounding whitespace are ignored": {
			input:  "  ANALYZE  \n\tStop\n",
			expect: []Command{Analyze, Stop},
		},
		"Unknown lines and blanks are dropped": {
			input:  "play\n\nanalyze\nquit\n",
			expect: []Command{Analyze},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			src := NewConsoleSource(strings.NewReader(test.input))

			var got []Command
			for cmd := range src.Commands(context.Background()) {
				got = append(got, cmd)
			}
			assert.Equal(t, test.expect, got)
		})
	}
}

func TestDispatcherAppliesCommandsInOrder(t *testing.T) {
	pilot := &fakePilot{}
	src := NewConsoleSource(strings.NewReader("analyze\nstop\n"))
	d := NewDispatcher(src, pilot, nil)

	// The source closes after the reader drains, so Run returns nil.
	err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"enable", "trigger", "disable", "stop"}, pilot.operations())
}

func TestDispatcherStopsOnContextCancel(t *testing.T) {
	pilot := &fakePilot{}
	// A blocking reader keeps the source open for the whole test.
	blocked := blockingReader{release: make(chan struct{})}
	defer close(blocked.release)
	d := NewDispatcher(NewConsoleSource(blocked), pilot, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- d.Run(ctx) }()

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	assert.Empty(t, pilot.operations())
}

type blockingReader struct {
	release chan struct{}
}

func (r blockingReader) Read(p []byte) (int, error) {
	<-r.release
	return 0, io.EOF
}
