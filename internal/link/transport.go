package link

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

// OpenSerial opens the port the DCC front end hangs off. 8N1 framing,
// matching the front end firmware.
func OpenSerial(port string, baud int) (serial.Port, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(port, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", port, err)
	}
	log.Info().Str("port", port).Int("baud", baud).Msg("Serial link open")
	return p, nil
}

// ServeTCP accepts front end connections one at a time and runs a feed
// for each. Between clients the handler still gets PollTick, so an
// armed factory reset keeps stepping with nobody connected.
func ServeTCP(ctx context.Context, addr string, handler Handler, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	defer ln.Close()
	log.Info().Str("addr", addr).Msg("TCP link listening")

	tcpLn := ln.(*net.TCPListener)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if err := tcpLn.SetDeadline(time.Now().Add(interval)); err != nil {
			return fmt.Errorf("failed to set accept deadline: %w", err)
		}
		conn, err := tcpLn.Accept()
		if err != nil {
			var nerr net.Error
			if errors.As(err, &nerr) && nerr.Timeout() {
				handler.PollTick()
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept failed: %w", err)
		}
		log.Info().Str("peer", conn.RemoteAddr().String()).Msg("Link peer connected")
		feed := NewFeed(conn, handler, interval)
		if err := feed.Run(ctx); err != nil {
			log.Warn().Err(err).Msg("Link feed ended")
		}
	}
}

// TickLoop drives PollTick when no link transport is configured, for
// bench setups where only the Lua scenario talks to the decoder.
func TickLoop(ctx context.Context, handler Handler, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			handler.PollTick()
		}
	}
}
