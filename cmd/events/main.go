// Command events prints every committed ledger entry published on the configured Redis or
// Kafka event bus as one JSON line, until interrupted.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/amirasaad/cashfake/infra/initializer"
	"github.com/amirasaad/cashfake/pkg/config"
	"github.com/amirasaad/cashfake/pkg/domain/ledger"
	"github.com/amirasaad/cashfake/pkg/eventbus"
	"github.com/fatih/color"
)

func main() {
	group := flag.String("group", "", "consumer group (default: EVENT_BUS_GROUP with a -tail suffix)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, *group); err != nil {
		color.New(color.FgRed, color.Bold).Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, group string) error {
	cfg, err := config.Load(".env")
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.EventBus == nil || cfg.EventBus.Driver == "" || cfg.EventBus.Driver == "memory" {
		return errors.New("EVENT_BUS_DRIVER must be redis or kafka; the memory bus has no remote subscribers")
	}
	// a separate group gets its own copy of every event
	if group == "" {
		group = cfg.EventBus.Group + "-tail"
	}
	cfg.EventBus.Group = group

	logger := initializer.SetupLogger(cfg.Log)
	bus, closeBus, err := initializer.NewEventBus(cfg, logger)
	if err != nil {
		return err
	}
	defer closeBus() //nolint:errcheck

	tail(bus, os.Stdout)
	color.New(color.Faint).Fprintf(os.Stderr, "Tailing %s events (group %s)\n", cfg.EventBus.Driver, group)
	<-ctx.Done()
	return nil
}

// tail registers a handler that writes each ledger event to out as a JSON line.
func tail(bus eventbus.Bus, out io.Writer) {
	var mu sync.Mutex
	enc := json.NewEncoder(out)
	bus.Register(ledger.EntryRecordedType, func(_ context.Context, e eventbus.Event) error {
		mu.Lock()
		defer mu.Unlock()
		return enc.Encode(struct {
			Type  string         `json:"type"`
			Event eventbus.Event `json:"event"`
		}{e.Type(), e})
	})
}
