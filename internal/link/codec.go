package link

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// CalculateCRC computes the CRC-16-CCITT checksum for the given data.
func CalculateCRC(data []byte) uint16 {
	crc := uint16(crcInitial)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ crcPolynomial
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// EncodeFrame serializes a frame to wire format: framing, byte
// stuffing and CRC included.
func EncodeFrame(f *Frame) ([]byte, error) {
	cborPayload, err := encodeCBORPayload(f.Type(), f.PayloadMap())
	if err != nil {
		return nil, fmt.Errorf("failed to encode CBOR payload: %w", err)
	}

	if len(cborPayload) > MaxPayloadSize {
		return nil, fmt.Errorf("CBOR payload too large: %d bytes (max %d)", len(cborPayload), MaxPayloadSize)
	}

	// Data section: length byte + payload. This is what gets CRC'd
	// and byte-stuffed.
	data := make([]byte, 0, 1+len(cborPayload)+2)
	data = append(data, uint8(len(cborPayload)))
	data = append(data, cborPayload...)

	crc := CalculateCRC(data)
	data = append(data, byte(crc>>8), byte(crc&0xFF))

	stuffed := stuffBytes(data)

	wire := make([]byte, 0, len(stuffed)+2)
	wire = append(wire, StartByte)
	wire = append(wire, stuffed...)
	wire = append(wire, EndByte)

	return wire, nil
}

// encodeCBORPayload builds the CBOR array [msg_type, payload_map].
func encodeCBORPayload(msgType uint8, payloadMap map[int]interface{}) ([]byte, error) {
	var msg interface{}
	if len(payloadMap) == 0 {
		msg = []interface{}{uint64(msgType), nil}
	} else {
		msg = []interface{}{uint64(msgType), payloadMap}
	}
	return cbor.Marshal(msg)
}

// stuffBytes escapes framing bytes inside the data section.
func stuffBytes(data []byte) []byte {
	result := make([]byte, 0, len(data)*2)
	for _, b := range data {
		if b == StartByte || b == EndByte || b == EscByte {
			result = append(result, EscByte, b^EscXor)
		} else {
			result = append(result, b)
		}
	}
	return result
}

// FrameDecoder is the byte-stream state machine that reassembles
// frames. Feed it one byte at a time; it resynchronizes on the next
// START byte after any error.
type FrameDecoder struct {
	state  int
	escape bool
	body   []byte // unstuffed length byte + payload, for the CRC check
	frame  *Frame
}

// NewFrameDecoder creates a decoder in the idle state.
func NewFrameDecoder() *FrameDecoder {
	return &FrameDecoder{
		state: stateIdle,
		body:  make([]byte, 0, MaxFrameSize),
	}
}

// Reset drops any partial frame and returns to idle.
func (d *FrameDecoder) Reset() {
	d.state = stateIdle
	d.escape = false
	d.body = d.body[:0]
	d.frame = nil
}

// DecodeByte processes one wire byte. It returns a completed frame, or
// nil while a frame is still in progress, and an error when a frame
// had to be discarded.
func (d *FrameDecoder) DecodeByte(b byte) (*Frame, error) {
	if d.escape {
		d.escape = false
		return d.accept(b ^ EscXor)
	}

	switch b {
	case EscByte:
		d.escape = true
		return nil, nil
	case StartByte:
		// A bare START always begins a new frame, discarding any
		// partial one. This is the resynchronization point.
		d.Reset()
		d.state = stateLength
		return nil, nil
	case EndByte:
		return d.finish()
	default:
		return d.accept(b)
	}
}

// accept consumes one unstuffed data byte in the current state.
func (d *FrameDecoder) accept(b byte) (*Frame, error) {
	switch d.state {
	case stateIdle:
		// Garbage between frames, ignore.
		return nil, nil

	case stateLength:
		if b > MaxPayloadSize {
			d.Reset()
			return nil, fmt.Errorf("invalid length: %d (max %d)", b, MaxPayloadSize)
		}
		d.frame = &Frame{length: b, cborPayload: make([]byte, 0, b)}
		d.body = append(d.body, b)
		if b == 0 {
			d.state = stateCRC1
		} else {
			d.state = statePayload
		}
		return nil, nil

	case statePayload:
		d.frame.cborPayload = append(d.frame.cborPayload, b)
		d.body = append(d.body, b)
		if len(d.frame.cborPayload) >= int(d.frame.length) {
			d.state = stateCRC1
		}
		return nil, nil

	case stateCRC1:
		d.frame.crc = uint16(b) << 8
		d.state = stateCRC2
		return nil, nil

	case stateCRC2:
		d.frame.crc |= uint16(b)
		d.state = stateDone
		return nil, nil

	case stateDone:
		d.Reset()
		return nil, fmt.Errorf("data byte after CRC, expected END")

	default:
		d.Reset()
		return nil, fmt.Errorf("invalid state: %d", d.state)
	}
}

// finish validates and emits the frame on an END byte.
func (d *FrameDecoder) finish() (*Frame, error) {
	if d.state != stateDone {
		state := d.state
		d.Reset()
		if state == stateIdle {
			// END with no frame in progress, ignore.
			return nil, nil
		}
		return nil, fmt.Errorf("unexpected END byte in state %d", state)
	}

	frame := d.frame
	calculated := CalculateCRC(d.body)
	d.Reset()

	if frame.crc != calculated {
		return nil, fmt.Errorf("CRC mismatch: expected 0x%04X, got 0x%04X", calculated, frame.crc)
	}
	return frame, nil
}
