// Package lamp drives the two white LED channels of the coach light.
package lamp

// Channel selects one of the two LED strings.
type Channel int

const (
	Warm Channel = iota
	Cool
)

// ChannelCount is the number of output channels.
const ChannelCount = 2

// String returns a human-readable channel name.
func (c Channel) String() string {
	switch c {
	case Warm:
		return "warm"
	case Cool:
		return "cool"
	default:
		return "unknown"
	}
}

// Output is a dimmable two-channel light sink. Duty 0 is dark, 255 is
// full on. Implementations must tolerate repeated writes of the same
// value.
type Output interface {
	SetDuty(ch Channel, duty uint8) error
	Close() error
}
