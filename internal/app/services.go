// Package app owns the daemon's service container: construction,
// start order and shutdown of the store, lamp, decoder, monitor and
// link feed.
package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/physic"

	"github.com/madsing98/coachlightd/internal/config"
	"github.com/madsing98/coachlightd/internal/decoder"
	"github.com/madsing98/coachlightd/internal/lamp"
	"github.com/madsing98/coachlightd/internal/link"
	"github.com/madsing98/coachlightd/internal/monitor"
	"github.com/madsing98/coachlightd/internal/nvram"
	"github.com/madsing98/coachlightd/internal/scenario"
)

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	// Core infrastructure
	Store nvram.Store
	Lamp  lamp.Output

	// Decoder core
	Decoder *decoder.Decoder

	// High-level services
	Monitor *monitor.Server

	// Background goroutines joined on Stop
	wg sync.WaitGroup

	armReset bool
}

// NewServices creates all services with proper dependency injection.
func NewServices(cfg *config.Config) (*Services, error) {
	s := &Services{cfg: cfg}

	// Initialize the non-volatile store
	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	s.Store = store

	// Initialize the lamp output
	out, err := openLamp(cfg)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Lamp = out

	// Initialize the decoder core
	dec, err := decoder.New(decoder.DefaultSchema(), s.Store, s.Lamp, decoder.Options{})
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Decoder = dec

	// Initialize the monitor server
	if cfg.Monitor.Enabled {
		deviceID := ""
		if sq, ok := s.Store.(*nvram.SQLite); ok {
			deviceID = sq.DeviceID()
		}
		s.Monitor = monitor.NewServer(cfg.Monitor.Host, cfg.Monitor.Port, deviceID)
		s.Decoder.OnState(s.Monitor.Publish)
	}

	return s, nil
}

// ArmFactoryReset schedules a factory reset for startup, applied right
// after the decoder boots. Backs the --factory-reset flag.
func (s *Services) ArmFactoryReset() {
	s.armReset = true
}

// openStore builds the configured store backend.
func openStore(cfg *config.Config) (nvram.Store, error) {
	path := config.ExpandEnvString(cfg.Store.Path)

	switch cfg.Store.Backend {
	case "memory":
		return nvram.NewMemory(cfg.Store.Size), nil
	case "file":
		return nvram.OpenFile(path, cfg.Store.Size)
	case "sqlite":
		return nvram.OpenSQLite(path, cfg.Store.Size)
	default:
		return nil, fmt.Errorf("unknown store backend: %q", cfg.Store.Backend)
	}
}

// openLamp builds the configured lamp backend.
func openLamp(cfg *config.Config) (lamp.Output, error) {
	switch cfg.Lamp.Backend {
	case "console":
		return lamp.NewConsole(), nil
	case "periph":
		freq := physic.Frequency(cfg.Lamp.PWMHz) * physic.Hertz
		return lamp.NewPWM(cfg.Lamp.WarmPin, cfg.Lamp.CoolPin, freq)
	default:
		return nil, fmt.Errorf("unknown lamp backend: %q", cfg.Lamp.Backend)
	}
}

// Start starts all services in the correct order: boot the decoder
// from the store, expose the monitor, run the startup scenario to
// completion, then hand the decoder to the protocol link.
// The onFatalError callback is called when a fatal error occurs.
func (s *Services) Start(ctx context.Context, onFatalError func(error)) error {
	if err := s.Decoder.Boot(); err != nil {
		return fmt.Errorf("decoder boot failed: %w", err)
	}

	if s.armReset {
		s.Decoder.FactoryResetRequested()
	}

	if s.Monitor != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.Monitor.Run(ctx, s.cfg.ShutdownTimeout.Duration()); err != nil {
				onFatalError(err)
			}
		}()
	}

	// The scenario script runs before the link feed starts, so its
	// calls reach the decoder from the same goroutine sequence.
	if s.cfg.Scenario.Script != "" {
		eng := scenario.NewEngine(s.Decoder)
		if err := eng.RunFile(config.ExpandEnvString(s.cfg.Scenario.Script)); err != nil {
			return err
		}
	}

	return s.startLink(ctx, onFatalError)
}

// startLink brings up the configured link transport.
func (s *Services) startLink(ctx context.Context, onFatalError func(error)) error {
	interval := s.cfg.Link.PollInterval.Duration()

	switch s.cfg.Link.Transport {
	case "serial":
		if s.cfg.Link.Port == "" {
			return fmt.Errorf("serial link requires a port")
		}
		port, err := link.OpenSerial(config.ExpandEnvString(s.cfg.Link.Port), s.cfg.Link.Baud)
		if err != nil {
			return err
		}
		feed := link.NewFeed(port, s.Decoder, interval)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := feed.Run(ctx); err != nil {
				onFatalError(err)
			}
		}()

	case "tcp":
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := link.ServeTCP(ctx, s.cfg.Link.Listen, s.Decoder, interval); err != nil {
				onFatalError(err)
			}
		}()

	case "none":
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			_ = link.TickLoop(ctx, s.Decoder, interval)
		}()

	default:
		return fmt.Errorf("unknown link transport: %q", s.cfg.Link.Transport)
	}

	return nil
}

// Stop gracefully stops all services. The context handed to Start must
// already be cancelled; Stop joins the background goroutines and then
// releases resources.
func (s *Services) Stop() error {
	s.wg.Wait()
	s.Close()
	return nil
}

// Close releases all resources.
func (s *Services) Close() {
	if s.Lamp != nil {
		if err := s.Lamp.Close(); err != nil {
			log.Error().Err(err).Msg("Lamp close error")
		}
	}
	if s.Store != nil {
		if err := s.Store.Close(); err != nil {
			log.Error().Err(err).Msg("Store close error")
		}
	}
}
