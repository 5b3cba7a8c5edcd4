package main

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"go.bug.st/serial"

	"github.com/madsing98/coachlightd/internal/link"
)

// replyTimeout bounds how long commands wait for a result frame.
const replyTimeout = 2 * time.Second

// Connection provides a common interface for the serial and TCP link
type Connection interface {
	io.Reader
	io.Writer
	io.Closer
}

// OpenLink opens either a serial or TCP connection based on flags.
// Serial wins when both are given.
func OpenLink() (Connection, string, error) {
	if portName != "" {
		mode := &serial.Mode{
			BaudRate: baudRate,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		}
		port, err := serial.Open(portName, mode)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open serial port %s: %v", portName, err)
		}
		// Bounded reads so exchange can enforce its own deadline
		_ = port.SetReadTimeout(100 * time.Millisecond)
		return port, fmt.Sprintf("Serial: %s @ %d baud", portName, baudRate), nil
	}

	conn, err := net.DialTimeout("tcp", connectAddr, replyTimeout)
	if err != nil {
		return nil, "", fmt.Errorf("failed to connect to %s: %v", connectAddr, err)
	}
	return conn, fmt.Sprintf("TCP: %s", connectAddr), nil
}

// send encodes a frame and writes it to the link.
func send(conn Connection, frame *link.Frame) error {
	wire, err := link.EncodeFrame(frame)
	if err != nil {
		return err
	}
	if _, err := conn.Write(wire); err != nil {
		return fmt.Errorf("write failed: %v", err)
	}
	return nil
}

// exchange sends a frame and waits for a result frame of the wanted
// type, discarding anything else on the wire.
func exchange(conn Connection, frame *link.Frame, wantType uint8) (*link.Frame, error) {
	if err := send(conn, frame); err != nil {
		return nil, err
	}

	if nc, ok := conn.(net.Conn); ok {
		_ = nc.SetReadDeadline(time.Now().Add(replyTimeout))
	}

	dec := link.NewFrameDecoder()
	buf := make([]byte, 128)
	deadline := time.Now().Add(replyTimeout)

	for time.Now().Before(deadline) {
		n, err := conn.Read(buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				break
			}
			return nil, err
		}
		for i := 0; i < n; i++ {
			f, err := dec.DecodeByte(buf[i])
			if err != nil {
				continue
			}
			if f != nil && f.Type() == wantType {
				return f, nil
			}
		}
	}
	return nil, fmt.Errorf("timed out waiting for reply")
}
