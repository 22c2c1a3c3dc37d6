// Package command turns an inbound command stream (console today, voice
// recognition behind the same interface) into scheduler operations.
package command

import (
	"context"
	"log/slog"
)

// Command is a discrete inbound instruction.
type Command string

const (
	Analyze Command = "analyze"
	Stop    Command = "stop"
)

// Source emits commands until its context ends.
type Source interface {
	Commands(ctx context.Context) <-chan Command
}

// Pilot is the scheduler surface the dispatcher drives.
type Pilot interface {
	SetPilotEnabled(bool)
	TriggerOnce()
	StopLive()
}

// Dispatcher applies commands to the pilot.
type Dispatcher struct {
	source Source
	pilot  Pilot
	logger *slog.Logger
}

// NewDispatcher creates a dispatcher over the given source and pilot.
func NewDispatcher(source Source, pilot Pilot, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		source: source,
		pilot:  pilot,
		logger: logger.With("svc", "command.Dispatcher"),
	}
}

// Run consumes commands until the context ends or the source closes.
func (d *Dispatcher) Run(ctx context.Context) error {
	ch := d.source.Commands(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd, ok := <-ch:
			if !ok {
				return nil
			}
			d.apply(cmd)
		}
	}
}

func (d *Dispatcher) apply(cmd Command) {
	switch cmd {
	case Analyze:
		d.logger.Info("Command received", "command", cmd)
		d.pilot.SetPilotEnabled(true)
		d.pilot.TriggerOnce()
	case Stop:
		d.logger.Info("Command received", "command", cmd)
		d.pilot.SetPilotEnabled(false)
		d.pilot.StopLive()
	default:
		d.logger.Debug("Ignoring unknown command", "command", cmd)
	}
}
