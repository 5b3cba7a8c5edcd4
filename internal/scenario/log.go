package scenario

import (
	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"
)

// LogModule provides logging functions to Lua.
type LogModule struct{}

// NewLogModule creates a new log module.
func NewLogModule() *LogModule {
	return &LogModule{}
}

// Loader is the module loader for Lua.
func (m *LogModule) Loader(L *lua.LState) int {
	mod := L.NewTable()

	L.SetField(mod, "debug", L.NewFunction(m.debug))
	L.SetField(mod, "info", L.NewFunction(m.info))
	L.SetField(mod, "warn", L.NewFunction(m.warn))
	L.SetField(mod, "error", L.NewFunction(m.errorLog))

	L.Push(mod)
	return 1
}

func (m *LogModule) debug(L *lua.LState) int {
	msg := L.CheckString(1)
	fields := m.parseFields(L, 2)

	event := log.Debug().Str("source", "scenario")
	for k, v := range fields {
		event = event.Interface(k, v)
	}
	event.Msg(msg)

	return 0
}

func (m *LogModule) info(L *lua.LState) int {
	msg := L.CheckString(1)
	fields := m.parseFields(L, 2)

	event := log.Info().Str("source", "scenario")
	for k, v := range fields {
		event = event.Interface(k, v)
	}
	event.Msg(msg)

	return 0
}

func (m *LogModule) warn(L *lua.LState) int {
	msg := L.CheckString(1)
	fields := m.parseFields(L, 2)

	event := log.Warn().Str("source", "scenario")
	for k, v := range fields {
		event = event.Interface(k, v)
	}
	event.Msg(msg)

	return 0
}

func (m *LogModule) errorLog(L *lua.LState) int {
	msg := L.CheckString(1)
	fields := m.parseFields(L, 2)

	event := log.Error().Str("source", "scenario")
	for k, v := range fields {
		event = event.Interface(k, v)
	}
	event.Msg(msg)

	return 0
}

func (m *LogModule) parseFields(L *lua.LState, argIndex int) map[string]interface{} {
	fields := make(map[string]interface{})

	arg := L.Get(argIndex)
	if arg == lua.LNil {
		return fields
	}

	if tbl, ok := arg.(*lua.LTable); ok {
		tbl.ForEach(func(key, value lua.LValue) {
			keyStr := lua.LVAsString(key)
			fields[keyStr] = luaToGo(value)
		})
	}

	return fields
}

// luaToGo converts a Lua value to a Go value for log fields.
func luaToGo(v lua.LValue) interface{} {
	switch val := v.(type) {
	case lua.LString:
		return string(val)
	case lua.LNumber:
		return float64(val)
	case lua.LBool:
		return bool(val)
	case *lua.LTable:
		obj := make(map[string]interface{})
		val.ForEach(func(k, v lua.LValue) {
			obj[lua.LVAsString(k)] = luaToGo(v)
		})
		return obj
	case *lua.LNilType:
		return nil
	default:
		return v.String()
	}
}
