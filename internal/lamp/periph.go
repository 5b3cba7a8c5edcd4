package lamp

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// DefaultPWMFrequency is the carrier frequency used when the config
// leaves it unset.
const DefaultPWMFrequency = 1 * physic.KiloHertz

// PWM drives the two channels through GPIO pins with hardware or
// kernel PWM, via periph.io.
type PWM struct {
	pins [ChannelCount]gpio.PinIO
	freq physic.Frequency
}

// NewPWM initializes the periph host and resolves the two pins by
// name (for example "GPIO18" or "PWM0").
func NewPWM(warmPin, coolPin string, freq physic.Frequency) (*PWM, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	if freq == 0 {
		freq = DefaultPWMFrequency
	}

	p := &PWM{freq: freq}
	for i, name := range []string{warmPin, coolPin} {
		pin := gpioreg.ByName(name)
		if pin == nil {
			return nil, fmt.Errorf("no such pin: %q", name)
		}
		p.pins[i] = pin
	}
	return p, nil
}

// SetDuty scales the 0..255 duty to the periph duty range and applies
// it to the channel's pin.
func (p *PWM) SetDuty(ch Channel, duty uint8) error {
	if ch < 0 || int(ch) >= ChannelCount {
		return fmt.Errorf("no such channel: %d", ch)
	}
	scaled := gpio.Duty(int64(duty) * int64(gpio.DutyMax) / 255)
	if err := p.pins[ch].PWM(scaled, p.freq); err != nil {
		return fmt.Errorf("pwm %s: %w", p.pins[ch].Name(), err)
	}
	return nil
}

// Close halts both pins.
func (p *PWM) Close() error {
	var firstErr error
	for _, pin := range p.pins {
		if pin == nil {
			continue
		}
		if err := pin.Halt(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
