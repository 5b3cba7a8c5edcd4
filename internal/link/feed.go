package link

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultPollInterval paces PollTick while the link is quiet.
const DefaultPollInterval = 10 * time.Millisecond

// Feed pumps bytes from one connection through the frame decoder and
// dispatches the resulting events to the handler. The feed goroutine
// is the only caller into the handler, which keeps the decoder core
// single-threaded.
type Feed struct {
	conn     io.ReadWriteCloser
	handler  Handler
	interval time.Duration
	dec      *FrameDecoder
}

// NewFeed creates a feed over an open connection. An interval of 0
// uses DefaultPollInterval.
func NewFeed(conn io.ReadWriteCloser, handler Handler, interval time.Duration) *Feed {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Feed{
		conn:     conn,
		handler:  handler,
		interval: interval,
		dec:      NewFrameDecoder(),
	}
}

// Run processes the connection until it fails or the context is
// cancelled. A clean peer disconnect returns nil.
func (f *Feed) Run(ctx context.Context) error {
	chunks := make(chan []byte, 8)
	readErr := make(chan error, 1)

	// Reader goroutine: the raw Read is the only blocking call, so
	// closing the connection is enough to unwind everything.
	go func() {
		buf := make([]byte, 256)
		for {
			n, err := f.conn.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				select {
				case chunks <- chunk:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				readErr <- err
				return
			}
		}
	}()

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			f.conn.Close()
			return nil

		case err := <-readErr:
			f.conn.Close()
			if errors.Is(err, io.EOF) {
				log.Info().Msg("Link peer disconnected")
				return nil
			}
			return err

		case chunk := <-chunks:
			for _, b := range chunk {
				frame, err := f.dec.DecodeByte(b)
				if err != nil {
					log.Warn().Err(err).Msg("Frame discarded")
					continue
				}
				if frame != nil {
					f.dispatch(frame)
				}
			}

		case <-ticker.C:
			f.handler.PollTick()
		}
	}
}

// dispatch routes one frame to the handler and sends result frames for
// queries. Malformed frames are dropped with a log entry; a bad peer
// must never stall the decoder.
func (f *Feed) dispatch(frame *Frame) {
	if err := frame.ParseError(); err != nil {
		log.Warn().Err(err).Msg("Malformed frame payload")
		return
	}
	m := frame.PayloadMap()

	switch frame.Type() {
	case MsgFunctionGroup:
		group, ok1 := GetMapUint(m, KeyGroup)
		bits, ok2 := GetMapUint(m, KeyBits)
		if !ok1 || !ok2 || group > 0xFF || bits > 0xFF {
			f.malformed(frame)
			return
		}
		f.handler.FunctionGroupChanged(uint8(group), uint8(bits))

	case MsgCVWrite:
		nr, ok1 := GetMapUint(m, KeyCV)
		value, ok2 := GetMapUint(m, KeyValue)
		if !ok1 || !ok2 || nr > 0xFFFF || value > 0xFF {
			f.malformed(frame)
			return
		}
		written, err := f.handler.CVWrite(uint16(nr), uint8(value))
		if err != nil {
			log.Warn().Err(err).Uint64("cv", nr).Msg("CV write rejected")
		}
		f.reply(NewCVWriteResult(uint16(nr), written, err == nil))

	case MsgCVRead:
		nr, ok := GetMapUint(m, KeyCV)
		if !ok || nr > 0xFFFF {
			f.malformed(frame)
			return
		}
		value, err := f.handler.CVRead(uint16(nr))
		if err != nil {
			log.Warn().Err(err).Uint64("cv", nr).Msg("CV read rejected")
		}
		f.reply(NewCVReadResult(uint16(nr), value, err == nil))

	case MsgCVValid:
		nr, ok := GetMapUint(m, KeyCV)
		if !ok || nr > 0xFFFF {
			f.malformed(frame)
			return
		}
		forWrite, _ := GetMapBool(m, KeyForWrite)
		valid := f.handler.CVValid(uint16(nr), forWrite)
		f.reply(NewCVValidResult(uint16(nr), forWrite, valid))

	case MsgFactoryReset:
		f.handler.FactoryResetRequested()

	case MsgServiceMode:
		entering, ok := GetMapBool(m, KeyEntering)
		if !ok {
			f.malformed(frame)
			return
		}
		if entering {
			f.handler.ServiceModeEntered()
		} else {
			f.handler.ServiceModeExited()
		}

	case MsgAcknowledge:
		f.handler.AcknowledgeRequested()

	default:
		log.Warn().Uint8("type", frame.Type()).Msg("Unknown message type")
	}
}

func (f *Feed) malformed(frame *Frame) {
	log.Warn().Uint8("type", frame.Type()).Msg("Frame payload missing required keys")
}

// reply encodes and writes a result frame.
func (f *Feed) reply(frame *Frame) {
	wire, err := EncodeFrame(frame)
	if err != nil {
		log.Error().Err(err).Msg("Encode reply failed")
		return
	}
	if _, err := f.conn.Write(wire); err != nil {
		log.Warn().Err(err).Msg("Write reply failed")
	}
}
