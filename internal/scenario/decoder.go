package scenario

import (
	"time"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/madsing98/coachlightd/internal/decoder"
)

// DecoderModule exposes the decoder entry points to Lua.
type DecoderModule struct {
	dec *decoder.Decoder
}

// NewDecoderModule creates a new decoder module.
func NewDecoderModule(dec *decoder.Decoder) *DecoderModule {
	return &DecoderModule{dec: dec}
}

// Loader is the module loader for Lua.
func (m *DecoderModule) Loader(L *lua.LState) int {
	mod := L.NewTable()

	L.SetField(mod, "fn", L.NewFunction(m.fn))
	L.SetField(mod, "group", L.NewFunction(m.group))
	L.SetField(mod, "cv_write", L.NewFunction(m.cvWrite))
	L.SetField(mod, "cv_read", L.NewFunction(m.cvRead))
	L.SetField(mod, "cv_valid", L.NewFunction(m.cvValid))
	L.SetField(mod, "reset", L.NewFunction(m.reset))
	L.SetField(mod, "service", L.NewFunction(m.service))
	L.SetField(mod, "ack", L.NewFunction(m.ack))
	L.SetField(mod, "tick", L.NewFunction(m.tick))
	L.SetField(mod, "sleep_ms", L.NewFunction(m.sleepMs))
	L.SetField(mod, "state", L.NewFunction(m.state))

	L.Push(mod)
	return 1
}

// fn(number, on) -> nil
// Turns one function key on or off, keeping the other functions in its
// group untouched.
func (m *DecoderModule) fn(L *lua.LState) int {
	fn := L.CheckInt(1)
	on := L.CheckBool(2)

	if fn < 0 || fn > int(decoder.MaxFunction) {
		L.ArgError(1, "function number out of range")
		return 0
	}

	snap := m.dec.State()
	group, bits, ok := snap.Groups.GroupWith(uint8(fn), on)
	if !ok {
		L.ArgError(1, "function number out of range")
		return 0
	}

	m.dec.FunctionGroupChanged(group, bits)
	return 0
}

// group(number, bits) -> nil
// Replaces one raw function group byte.
func (m *DecoderModule) group(L *lua.LState) int {
	group := L.CheckInt(1)
	bits := L.CheckInt(2)

	if group < 0 || group >= decoder.GroupCount {
		L.ArgError(1, "group number out of range")
		return 0
	}
	if bits < 0 || bits > 255 {
		L.ArgError(2, "group bits out of range")
		return 0
	}

	m.dec.FunctionGroupChanged(uint8(group), uint8(bits))
	return 0
}

// cv_write(cv, value) -> value | nil
func (m *DecoderModule) cvWrite(L *lua.LState) int {
	nr := L.CheckInt(1)
	value := L.CheckInt(2)

	if nr < 0 || nr > 0xFFFF {
		L.ArgError(1, "cv number out of range")
		return 0
	}
	if value < 0 || value > 255 {
		L.ArgError(2, "cv value out of range")
		return 0
	}

	written, err := m.dec.CVWrite(uint16(nr), uint8(value))
	if err != nil {
		log.Warn().Err(err).Int("cv", nr).Msg("Scenario CV write rejected")
		L.Push(lua.LNil)
		return 1
	}

	L.Push(lua.LNumber(written))
	return 1
}

// cv_read(cv) -> value | nil
func (m *DecoderModule) cvRead(L *lua.LState) int {
	nr := L.CheckInt(1)

	if nr < 0 || nr > 0xFFFF {
		L.ArgError(1, "cv number out of range")
		return 0
	}

	value, err := m.dec.CVRead(uint16(nr))
	if err != nil {
		log.Warn().Err(err).Int("cv", nr).Msg("Scenario CV read rejected")
		L.Push(lua.LNil)
		return 1
	}

	L.Push(lua.LNumber(value))
	return 1
}

// cv_valid(cv, for_write) -> bool
func (m *DecoderModule) cvValid(L *lua.LState) int {
	nr := L.CheckInt(1)
	forWrite := L.OptBool(2, false)

	if nr < 0 || nr > 0xFFFF {
		L.Push(lua.LFalse)
		return 1
	}

	L.Push(lua.LBool(m.dec.CVValid(uint16(nr), forWrite)))
	return 1
}

// reset() -> nil
// Arms a factory reset. Follow with tick() calls to step through it.
func (m *DecoderModule) reset(L *lua.LState) int {
	m.dec.FactoryResetRequested()
	return 0
}

// service(entering) -> nil
func (m *DecoderModule) service(L *lua.LState) int {
	entering := L.CheckBool(1)

	if entering {
		m.dec.ServiceModeEntered()
	} else {
		m.dec.ServiceModeExited()
	}
	return 0
}

// ack() -> nil
// Emits the acknowledgment current pulse. Blocks for its duration.
func (m *DecoderModule) ack(L *lua.LState) int {
	m.dec.AcknowledgeRequested()
	return 0
}

// tick(n) -> nil
// Runs n poll ticks, default 1. A factory reset restores one CV per
// tick, so tick(20) is enough to complete one.
func (m *DecoderModule) tick(L *lua.LState) int {
	n := L.OptInt(1, 1)

	for i := 0; i < n; i++ {
		m.dec.PollTick()
	}
	return 0
}

// sleep_ms(n) -> nil
func (m *DecoderModule) sleepMs(L *lua.LState) int {
	n := L.CheckInt(1)
	if n > 0 {
		time.Sleep(time.Duration(n) * time.Millisecond)
	}
	return 0
}

// state() -> table
// Returns the current light state for script assertions.
func (m *DecoderModule) state(L *lua.LState) int {
	snap := m.dec.State()

	tbl := L.NewTable()
	L.SetField(tbl, "selection", lua.LString(snap.Selection.String()))
	L.SetField(tbl, "warm", lua.LNumber(snap.Warm))
	L.SetField(tbl, "cool", lua.LNumber(snap.Cool))
	L.SetField(tbl, "test_mode", lua.LBool(snap.TestMode))
	L.SetField(tbl, "service_mode", lua.LBool(snap.ServiceMode))

	groups := L.NewTable()
	for i := 0; i < decoder.GroupCount; i++ {
		groups.RawSetInt(i+1, lua.LNumber(snap.Groups.Group(uint8(i))))
	}
	L.SetField(tbl, "groups", groups)

	L.Push(tbl)
	return 1
}
