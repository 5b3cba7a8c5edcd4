package link

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Frame is one decoded link frame.
type Frame struct {
	length      uint8
	cborPayload []byte // raw CBOR bytes: [msg_type, payload_map]
	crc         uint16

	// Cached parsed values (lazy parsing)
	msgType    uint8
	payloadMap map[int]interface{}
	parsed     bool
	parseErr   error
}

// NewFrame creates a frame from message type and payload map. The CBOR
// encoding and CRC are computed when the frame is encoded.
func NewFrame(msgType uint8, payload map[int]interface{}) *Frame {
	return &Frame{
		msgType:    msgType,
		payloadMap: payload,
		parsed:     true,
	}
}

// ensureParsed parses the CBOR payload if not already done.
func (f *Frame) ensureParsed() {
	if f.parsed {
		return
	}
	f.parsed = true
	if len(f.cborPayload) == 0 {
		return
	}
	f.msgType, f.payloadMap, f.parseErr = parseCBORMessage(f.cborPayload)
}

// Type returns the frame's message type.
func (f *Frame) Type() uint8 {
	f.ensureParsed()
	return f.msgType
}

// PayloadMap returns the decoded payload map, nil for empty payloads.
func (f *Frame) PayloadMap() map[int]interface{} {
	f.ensureParsed()
	return f.payloadMap
}

// ParseError returns any error from parsing the CBOR payload.
func (f *Frame) ParseError() error {
	f.ensureParsed()
	return f.parseErr
}

// CRC returns the received checksum.
func (f *Frame) CRC() uint16 {
	return f.crc
}

// Command builders. These pin down the payload key usage so both ends
// of the link agree.

// NewFunctionGroup builds a function group update (0x01).
func NewFunctionGroup(group, bits uint8) *Frame {
	return NewFrame(MsgFunctionGroup, map[int]interface{}{
		KeyGroup: uint64(group),
		KeyBits:  uint64(bits),
	})
}

// NewCVWrite builds a CV write command (0x02).
func NewCVWrite(nr uint16, value uint8) *Frame {
	return NewFrame(MsgCVWrite, map[int]interface{}{
		KeyCV:    uint64(nr),
		KeyValue: uint64(value),
	})
}

// NewCVRead builds a CV read query (0x03).
func NewCVRead(nr uint16) *Frame {
	return NewFrame(MsgCVRead, map[int]interface{}{
		KeyCV: uint64(nr),
	})
}

// NewCVValid builds a CV validity probe (0x04).
func NewCVValid(nr uint16, forWrite bool) *Frame {
	return NewFrame(MsgCVValid, map[int]interface{}{
		KeyCV:       uint64(nr),
		KeyForWrite: forWrite,
	})
}

// NewFactoryReset builds a factory reset request (0x05).
func NewFactoryReset() *Frame {
	return NewFrame(MsgFactoryReset, nil)
}

// NewServiceMode builds a service mode transition (0x06).
func NewServiceMode(entering bool) *Frame {
	return NewFrame(MsgServiceMode, map[int]interface{}{
		KeyEntering: entering,
	})
}

// NewAcknowledge builds an ack pulse request (0x07).
func NewAcknowledge() *Frame {
	return NewFrame(MsgAcknowledge, nil)
}

// NewCVReadResult builds a CV read reply (0x81).
func NewCVReadResult(nr uint16, value uint8, ok bool) *Frame {
	return NewFrame(MsgCVReadResult, map[int]interface{}{
		KeyCV:    uint64(nr),
		KeyValue: uint64(value),
		KeyOK:    ok,
	})
}

// NewCVValidResult builds a validity probe reply (0x82).
func NewCVValidResult(nr uint16, forWrite, valid bool) *Frame {
	return NewFrame(MsgCVValidResult, map[int]interface{}{
		KeyCV:       uint64(nr),
		KeyForWrite: forWrite,
		KeyValid:    valid,
	})
}

// NewCVWriteResult builds a CV write reply (0x83).
func NewCVWriteResult(nr uint16, value uint8, ok bool) *Frame {
	return NewFrame(MsgCVWriteResult, map[int]interface{}{
		KeyCV:    uint64(nr),
		KeyValue: uint64(value),
		KeyOK:    ok,
	})
}

// parseCBORMessage parses a link message: [msg_type, payload_map].
// Returns the message type and decoded payload map, nil for empty
// payloads.
func parseCBORMessage(data []byte) (msgType uint8, payload map[int]interface{}, err error) {
	if len(data) == 0 {
		return 0, nil, fmt.Errorf("empty CBOR payload")
	}

	var msg []interface{}
	if err := cbor.Unmarshal(data, &msg); err != nil {
		return 0, nil, fmt.Errorf("failed to decode CBOR: %w", err)
	}

	if len(msg) != 2 {
		return 0, nil, fmt.Errorf("expected 2-element array, got %d elements", len(msg))
	}

	switch v := msg[0].(type) {
	case uint64:
		if v > 255 {
			return 0, nil, fmt.Errorf("message type out of range: %d", v)
		}
		msgType = uint8(v)
	default:
		return 0, nil, fmt.Errorf("expected uint for message type, got %T", msg[0])
	}

	if msg[1] == nil {
		return msgType, nil, nil
	}

	switch v := msg[1].(type) {
	case map[interface{}]interface{}:
		payload = make(map[int]interface{})
		for key, val := range v {
			switch k := key.(type) {
			case uint64:
				payload[int(k)] = val
			case int64:
				payload[int(k)] = val
			default:
				return 0, nil, fmt.Errorf("expected integer map key, got %T", key)
			}
		}
	default:
		return 0, nil, fmt.Errorf("expected map or nil for payload, got %T", msg[1])
	}

	return msgType, payload, nil
}

// GetMapUint extracts a uint64 from a payload map by key.
func GetMapUint(m map[int]interface{}, key int) (uint64, bool) {
	if m == nil {
		return 0, false
	}
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	switch val := v.(type) {
	case uint64:
		return val, true
	case int64:
		if val >= 0 {
			return uint64(val), true
		}
		return 0, false
	}
	return 0, false
}

// GetMapBool extracts a bool from a payload map by key.
func GetMapBool(m map[int]interface{}, key int) (bool, bool) {
	if m == nil {
		return false, false
	}
	v, ok := m[key]
	if !ok {
		return false, false
	}
	if val, ok := v.(bool); ok {
		return val, true
	}
	return false, false
}
