package lamp

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// Console is an Output that only logs duty changes. It stands in for
// the PWM hardware on development machines.
type Console struct {
	duties [ChannelCount]uint8
}

// NewConsole creates a console-backed output.
func NewConsole() *Console {
	return &Console{}
}

// SetDuty records and logs the new duty value.
func (c *Console) SetDuty(ch Channel, duty uint8) error {
	if ch < 0 || int(ch) >= ChannelCount {
		return fmt.Errorf("no such channel: %d", ch)
	}
	if c.duties[ch] == duty {
		return nil
	}
	c.duties[ch] = duty
	log.Debug().Str("channel", ch.String()).Uint8("duty", duty).Msg("Lamp duty")
	return nil
}

// Duty returns the last value written to a channel.
func (c *Console) Duty(ch Channel) uint8 {
	if ch < 0 || int(ch) >= ChannelCount {
		return 0
	}
	return c.duties[ch]
}

// Close is a no-op for the console output.
func (c *Console) Close() error {
	return nil
}
