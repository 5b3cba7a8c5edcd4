package decoder

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/madsing98/coachlightd/internal/lamp"
	"github.com/madsing98/coachlightd/internal/nvram"
)

// AckPulse is how long both channels are driven to full duty when the
// command station asks for a basic acknowledgment. The resulting
// current pulse is what the station measures.
const AckPulse = 6 * time.Millisecond

// Options carries the firmware identity reported through CV7 and CV8.
// Zero values fall back to the package constants.
type Options struct {
	Manufacturer uint8
	Version      uint8
}

// Snapshot is the externally visible light state after a recompute.
type Snapshot struct {
	Selection   Selection
	Warm        uint8
	Cool        uint8
	TestMode    bool
	ServiceMode bool
	Groups      FunctionStates
	Profile1    Profile
	Profile2    Profile
}

// Decoder is the light decoder core. It reacts to protocol events,
// persists configuration and function state, and drives the two PWM
// channels. All entry points must be called from a single goroutine;
// the decoder itself holds no locks.
type Decoder struct {
	registry *Registry
	funcs    FunctionStates
	seq      ResetSequencer
	store    nvram.Store
	out      lamp.Output
	opts     Options

	serviceMode bool
	last        Snapshot
	onState     func(Snapshot)
}

// New creates a decoder over the given store and output. The store
// must have room for the CV block at the front and the function block
// at the tail.
func New(schema Schema, store nvram.Store, out lamp.Output, opts Options) (*Decoder, error) {
	if opts.Manufacturer == 0 {
		opts.Manufacturer = ManufacturerDIY
	}
	if opts.Version == 0 {
		opts.Version = FirmwareVersion
	}
	if store.Size() < len(schema)+GroupCount {
		return nil, fmt.Errorf("store too small: %d bytes, need %d", store.Size(), len(schema)+GroupCount)
	}
	return &Decoder{
		registry: NewRegistry(schema, store),
		store:    store,
		out:      out,
		opts:     opts,
	}, nil
}

// OnState registers a callback fired after every output push. It is
// invoked from the decoder's goroutine and must not block.
func (d *Decoder) OnState(fn func(Snapshot)) {
	d.onState = fn
}

// State returns the last pushed snapshot.
func (d *Decoder) State() Snapshot {
	return d.last
}

// funcBlockAddr is where the five function group bytes live: the last
// five cells of the store.
func (d *Decoder) funcBlockAddr() int {
	return d.store.Size() - GroupCount
}

// Boot restores persisted state and drives the lights to match it, so
// the coach lights come back the way they were before power-off, ahead
// of any track packet. An unprogrammed store arms an automatic factory
// reset.
func (d *Decoder) Boot() error {
	block, err := d.store.ReadBlock(d.funcBlockAddr(), GroupCount)
	if err != nil {
		return fmt.Errorf("read function block: %w", err)
	}
	d.funcs.LoadBytes(block)

	if err := d.registry.Load(); err != nil {
		return err
	}

	if changed, err := d.registry.seed(CVVersionID, d.opts.Version); err != nil {
		return err
	} else if changed {
		log.Info().Uint8("version", d.opts.Version).Msg("Seeded firmware version CV")
	}
	if changed, err := d.registry.seed(CVManufacturerID, d.opts.Manufacturer); err != nil {
		return err
	} else if changed {
		log.Info().Uint8("manufacturer", d.opts.Manufacturer).Msg("Seeded manufacturer CV")
	}

	// A primary address of 0 or 255 only occurs on erased or corrupt
	// storage; restore factory defaults over the next poll ticks.
	if addr := d.registry.valueOf(CVPrimaryAddress); addr == 0 || addr == 255 {
		d.seq.Arm(d.registry.Len())
		log.Warn().Uint8("address", addr).Msg("Unprogrammed store, factory reset armed")
	}

	d.recompute()
	log.Info().
		Str("selection", d.last.Selection.String()).
		Uint8("warm", d.last.Warm).
		Uint8("cool", d.last.Cool).
		Msg("Decoder booted")
	return nil
}

// CVValid reports whether a CV access would be accepted.
func (d *Decoder) CVValid(nr uint16, forWrite bool) bool {
	return d.registry.IsValid(nr, forWrite)
}

// CVRead returns the cached value of a CV.
func (d *Decoder) CVRead(nr uint16) (uint8, error) {
	return d.registry.Read(nr)
}

// CVWrite stores a new CV value and returns the value now held.
// Repeated writes of the same value change nothing and trigger no
// recompute.
func (d *Decoder) CVWrite(nr uint16, value uint8) (uint8, error) {
	changed, err := d.registry.Write(nr, value)
	if err != nil {
		return 0, err
	}
	if changed {
		d.recompute()
	}
	return value, nil
}

// FunctionGroupChanged takes a fresh group byte from the track. The
// whole five-byte block is persisted on any change, then the lights
// are recomputed.
func (d *Decoder) FunctionGroupChanged(group uint8, bits uint8) {
	if !d.funcs.SetGroup(group, bits) {
		return
	}
	log.Debug().Uint8("group", group).Uint8("bits", bits).Msg("Function group updated")
	if err := d.store.WriteBlock(d.funcBlockAddr(), d.funcs.Bytes()); err != nil {
		log.Error().Err(err).Msg("Persist function block failed")
	}
	d.recompute()
}

// FactoryResetRequested arms the reset sequencer; the actual restores
// are spread over the following poll ticks, one CV per tick.
func (d *Decoder) FactoryResetRequested() {
	d.seq.Arm(d.registry.Len())
	log.Info().Int("entries", d.registry.Len()).Msg("Factory reset requested")
}

// ServiceModeEntered blanks both channels for the duration of the
// programming session.
func (d *Decoder) ServiceModeEntered() {
	d.serviceMode = true
	log.Info().Msg("Service mode entered")
	d.recompute()
}

// ServiceModeExited restores normal light output.
func (d *Decoder) ServiceModeExited() {
	d.serviceMode = false
	log.Info().Msg("Service mode exited")
	d.recompute()
}

// AcknowledgeRequested emits the basic ack current pulse: both
// channels full for AckPulse, then dark. The logical light state is
// untouched; the next recompute restores the output.
func (d *Decoder) AcknowledgeRequested() {
	d.setDuty(lamp.Warm, 255)
	d.setDuty(lamp.Cool, 255)
	time.Sleep(AckPulse)
	d.setDuty(lamp.Warm, 0)
	d.setDuty(lamp.Cool, 0)
}

// PollTick advances background work. Each tick performs at most one
// non-volatile write.
func (d *Decoder) PollTick() {
	if !d.seq.Active() {
		return
	}
	idx, ok := d.seq.Next()
	if !ok {
		return
	}
	changed, err := d.registry.ApplyFactoryDefault(idx)
	if err != nil {
		log.Error().Err(err).Int("index", idx).Msg("Factory default failed")
		return
	}
	if changed {
		d.recompute()
	}
	if !d.seq.Active() {
		log.Info().Msg("Factory reset complete")
	}
}

// recompute re-derives the channel duties from the CV and function
// caches and pushes them to the output.
func (d *Decoder) recompute() {
	p1 := Profile{
		Brightness: d.registry.valueOf(CVBrightness1),
		ColorTemp:  d.registry.valueOf(CVColorTemp1),
		Trigger:    d.registry.valueOf(CVTrigger1),
	}
	p2 := Profile{
		Brightness: d.registry.valueOf(CVBrightness2),
		ColorTemp:  d.registry.valueOf(CVColorTemp2),
		Trigger:    d.registry.valueOf(CVTrigger2),
	}
	testMode := d.registry.valueOf(CVLightTest) != 0

	sel := Select(&d.funcs, p1, p2, testMode)

	var res MixResult
	switch {
	case d.serviceMode:
		res = Off
	case sel == SelectionOff:
		res = Off
	case sel == SelectionTest:
		// Test mode treats the profile 1 CVs as raw duty values,
		// bypassing the gamma tables for hardware bring-up.
		res = MixResult{Warm: p1.Brightness, Cool: p1.ColorTemp}
	case sel == SelectionProfile2:
		res = Mix(p2.Brightness, p2.ColorTemp, &WarmWhiteTable, &CoolWhiteTable)
	default:
		res = Mix(p1.Brightness, p1.ColorTemp, &WarmWhiteTable, &CoolWhiteTable)
	}

	d.setDuty(lamp.Warm, res.Warm)
	d.setDuty(lamp.Cool, res.Cool)

	d.last = Snapshot{
		Selection:   sel,
		Warm:        res.Warm,
		Cool:        res.Cool,
		TestMode:    testMode,
		ServiceMode: d.serviceMode,
		Groups:      d.funcs,
		Profile1:    p1,
		Profile2:    p2,
	}
	log.Debug().
		Str("selection", sel.String()).
		Uint8("warm", res.Warm).
		Uint8("cool", res.Cool).
		Msg("Lights recomputed")
	if d.onState != nil {
		d.onState(d.last)
	}
}

// setDuty drives one channel, logging instead of failing: output
// errors must never stall packet processing.
func (d *Decoder) setDuty(ch lamp.Channel, duty uint8) {
	if err := d.out.SetDuty(ch, duty); err != nil {
		log.Error().Err(err).Str("channel", ch.String()).Msg("Set duty failed")
	}
}
