// Package scenario runs a Lua script against the decoder at startup.
// Scripts drive the same entry points the protocol link does, which
// makes them useful for bench bring-up and layout-specific presets
// without a command station attached.
package scenario

import (
	"fmt"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/madsing98/coachlightd/internal/decoder"
)

// Engine executes scenario scripts on a fresh Lua state per run. A
// script runs to completion before the link feed starts, so module
// calls reach the decoder from a single goroutine.
type Engine struct {
	dec *decoder.Decoder
}

// NewEngine creates an engine bound to the decoder.
func NewEngine(dec *decoder.Decoder) *Engine {
	return &Engine{dec: dec}
}

// RunFile loads and executes a script file.
func (e *Engine) RunFile(path string) error {
	log.Info().Str("path", path).Msg("Running scenario script")

	L := e.newState()
	defer L.Close()

	if err := L.DoFile(path); err != nil {
		return fmt.Errorf("failed to execute scenario script: %w", err)
	}

	log.Info().Str("path", path).Msg("Scenario script finished")
	return nil
}

// RunString executes an inline script.
func (e *Engine) RunString(script string) error {
	L := e.newState()
	defer L.Close()

	if err := L.DoString(script); err != nil {
		return fmt.Errorf("failed to execute scenario script: %w", err)
	}
	return nil
}

// newState builds a Lua state with the scenario modules preloaded.
func (e *Engine) newState() *lua.LState {
	L := lua.NewState()

	logModule := NewLogModule()
	L.PreloadModule("log", logModule.Loader)

	decModule := NewDecoderModule(e.dec)
	L.PreloadModule("decoder", decModule.Loader)

	return L
}
