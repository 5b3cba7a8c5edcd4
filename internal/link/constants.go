// Package link carries decoder events between the track-side front end
// and the decoder core over a framed byte protocol.
//
// The front end owns DCC bit timing and address matching; only events
// for this decoder cross the link. A frame is
//
//	START length payload... crcHi crcLo END
//
// with the payload a CBOR array [msg_type, {key: value}], byte-stuffed
// so the framing bytes never appear inside a frame, and a CRC-16-CCITT
// over length plus payload.
package link

// Framing bytes.
const (
	StartByte = 0x7E
	EndByte   = 0x7F
	EscByte   = 0x7D
	EscXor    = 0x20
)

// Size limits.
const (
	MaxPayloadSize = 64
	MaxFrameSize   = 128
)

// CRC-16-CCITT configuration.
const (
	crcPolynomial = 0x1021
	crcInitial    = 0xFFFF
)

// Message types - events into the decoder 0x01-0x0F.
const (
	MsgFunctionGroup = 0x01
	MsgCVWrite       = 0x02
	MsgCVRead        = 0x03
	MsgCVValid       = 0x04
	MsgFactoryReset  = 0x05
	MsgServiceMode   = 0x06
	MsgAcknowledge   = 0x07
)

// Message types - results out of the decoder 0x81-0x8F.
const (
	MsgCVReadResult  = 0x81
	MsgCVValidResult = 0x82
	MsgCVWriteResult = 0x83
)

// Payload keys, shared by commands and their results.
const (
	KeyGroup    = 0
	KeyBits     = 1
	KeyCV       = 0
	KeyValue    = 1
	KeyForWrite = 1
	KeyEntering = 0
	KeyOK       = 2
	KeyValid    = 2
)

// Frame decoder states.
const (
	stateIdle = iota
	stateLength
	statePayload
	stateCRC1
	stateCRC2
	stateDone
)
