package decoder

import (
	"bytes"
	"errors"
	"testing"

	"github.com/madsing98/coachlightd/internal/lamp"
	"github.com/madsing98/coachlightd/internal/nvram"
)

// recordingOutput keeps the full duty history so tests can assert on
// the exact drive sequence, not just the final values.
type recordingOutput struct {
	duties [lamp.ChannelCount]uint8
	events []dutyEvent
}

type dutyEvent struct {
	ch   lamp.Channel
	duty uint8
}

func (o *recordingOutput) SetDuty(ch lamp.Channel, duty uint8) error {
	o.duties[ch] = duty
	o.events = append(o.events, dutyEvent{ch, duty})
	return nil
}

func (o *recordingOutput) Close() error { return nil }

func (o *recordingOutput) Duty(ch lamp.Channel) uint8 {
	return o.duties[ch]
}

// programStore writes factory values into a fresh store so Boot sees a
// configured decoder with all functions off instead of blank hardware.
func programStore(t *testing.T, store nvram.Store) {
	t.Helper()
	schema := DefaultSchema()
	values := make([]byte, len(schema))
	for i, spec := range schema {
		switch spec.Number {
		case CVVersionID:
			values[i] = FirmwareVersion
		case CVManufacturerID:
			values[i] = ManufacturerDIY
		default:
			values[i] = spec.Default
		}
	}
	if err := store.WriteBlock(0, values); err != nil {
		t.Fatalf("program cv block: %v", err)
	}
	if err := store.WriteBlock(store.Size()-GroupCount, make([]byte, GroupCount)); err != nil {
		t.Fatalf("program function block: %v", err)
	}
}

// newTestDecoder boots a decoder over a factory-programmed store.
func newTestDecoder(t *testing.T) (*Decoder, *countingStore, *recordingOutput) {
	t.Helper()
	store := newCountingStore(64)
	programStore(t, store)
	out := &recordingOutput{}
	dec, err := New(DefaultSchema(), store, out, Options{})
	if err != nil {
		t.Fatalf("new decoder: %v", err)
	}
	if err := dec.Boot(); err != nil {
		t.Fatalf("boot: %v", err)
	}
	return dec, store, out
}

// setFunction flips one function through the group byte path, keeping
// the other functions as they are.
func setFunction(t *testing.T, dec *Decoder, fn uint8, on bool) {
	t.Helper()
	snap := dec.State()
	group, bits, ok := snap.Groups.GroupWith(fn, on)
	if !ok {
		t.Fatalf("function %d out of range", fn)
	}
	dec.FunctionGroupChanged(group, bits)
}

func TestDecoder_New_StoreTooSmall(t *testing.T) {
	schema := DefaultSchema()
	store := nvram.NewMemory(len(schema) + GroupCount - 1)
	if _, err := New(schema, store, &recordingOutput{}, Options{}); err == nil {
		t.Error("expected error for undersized store")
	}
}

func TestDecoder_Boot_ProgrammedStore(t *testing.T) {
	dec, _, out := newTestDecoder(t)

	if dec.State().Selection != SelectionOff {
		t.Errorf("all functions off should select off, got %s", dec.State().Selection)
	}
	if out.Duty(lamp.Warm) != 0 || out.Duty(lamp.Cool) != 0 {
		t.Errorf("lights should be dark, got warm=%d cool=%d", out.Duty(lamp.Warm), out.Duty(lamp.Cool))
	}

	version, err := dec.CVRead(CVVersionID)
	if err != nil || version != FirmwareVersion {
		t.Errorf("CV 7 should read %d, got %d (%v)", FirmwareVersion, version, err)
	}
	manufacturer, err := dec.CVRead(CVManufacturerID)
	if err != nil || manufacturer != ManufacturerDIY {
		t.Errorf("CV 8 should read %d, got %d (%v)", ManufacturerDIY, manufacturer, err)
	}
}

func TestDecoder_Boot_BlankStoreArmsReset(t *testing.T) {
	store := newCountingStore(64)
	dec, err := New(DefaultSchema(), store, &recordingOutput{}, Options{})
	if err != nil {
		t.Fatalf("new decoder: %v", err)
	}
	if err := dec.Boot(); err != nil {
		t.Fatalf("boot: %v", err)
	}

	// The restore runs one entry per tick, never more than one cell
	// write each
	for i := 0; i < dec.registry.Len(); i++ {
		before := store.writes
		dec.PollTick()
		if store.writes > before+1 {
			t.Fatalf("tick %d performed %d writes", i, store.writes-before)
		}
	}

	checks := []struct {
		nr   uint16
		want uint8
	}{
		{CVPrimaryAddress, 3},
		{CVVersionID, FirmwareVersion},
		{CVManufacturerID, ManufacturerDIY},
		{CVModeControl, 2},
		{CVBrightness1, 50},
		{CVColorTemp1, 255},
		{CVTrigger1, 1},
		{CVBrightness2, 30},
		{CVTrigger2, 20},
		{CVLightTest, 0},
	}
	for _, c := range checks {
		value, err := dec.CVRead(c.nr)
		if err != nil {
			t.Fatalf("read cv %d: %v", c.nr, err)
		}
		if value != c.want {
			t.Errorf("cv %d mismatch after reset: expected %d, got %d", c.nr, c.want, value)
		}
	}

	// The sequence is done; further ticks write nothing
	before := store.writes
	dec.PollTick()
	if store.writes != before {
		t.Error("drained reset should not keep writing")
	}
}

func TestDecoder_Profile1Drive(t *testing.T) {
	dec, _, out := newTestDecoder(t)

	setFunction(t, dec, 1, true)

	if dec.State().Selection != SelectionProfile1 {
		t.Errorf("F1 should select profile 1, got %s", dec.State().Selection)
	}
	want := Mix(50, 255, &WarmWhiteTable, &CoolWhiteTable)
	if out.Duty(lamp.Warm) != want.Warm || out.Duty(lamp.Cool) != want.Cool {
		t.Errorf("duty mismatch: expected warm=%d cool=%d, got warm=%d cool=%d",
			want.Warm, want.Cool, out.Duty(lamp.Warm), out.Duty(lamp.Cool))
	}

	setFunction(t, dec, 1, false)
	if dec.State().Selection != SelectionOff {
		t.Errorf("F1 off should select off, got %s", dec.State().Selection)
	}
	if out.Duty(lamp.Warm) != 0 || out.Duty(lamp.Cool) != 0 {
		t.Error("lights should go dark when the master function drops")
	}
}

func TestDecoder_Profile2Override(t *testing.T) {
	dec, _, out := newTestDecoder(t)

	setFunction(t, dec, 1, true)
	setFunction(t, dec, 20, true)

	if dec.State().Selection != SelectionProfile2 {
		t.Errorf("F20 should select profile 2, got %s", dec.State().Selection)
	}
	want := Mix(30, 255, &WarmWhiteTable, &CoolWhiteTable)
	if out.Duty(lamp.Warm) != want.Warm || out.Duty(lamp.Cool) != want.Cool {
		t.Errorf("duty mismatch: expected warm=%d cool=%d, got warm=%d cool=%d",
			want.Warm, want.Cool, out.Duty(lamp.Warm), out.Duty(lamp.Cool))
	}

	setFunction(t, dec, 20, false)
	if dec.State().Selection != SelectionProfile1 {
		t.Errorf("F20 off should fall back to profile 1, got %s", dec.State().Selection)
	}
}

func TestDecoder_Trigger2UnusedDisablesOverride(t *testing.T) {
	dec, _, _ := newTestDecoder(t)

	if _, err := dec.CVWrite(CVTrigger2, TriggerUnused); err != nil {
		t.Fatalf("write trigger 2: %v", err)
	}
	setFunction(t, dec, 1, true)
	setFunction(t, dec, 20, true)

	if dec.State().Selection != SelectionProfile1 {
		t.Errorf("unused trigger 2 should never override, got %s", dec.State().Selection)
	}
}

func TestDecoder_CustomTriggers(t *testing.T) {
	dec, _, _ := newTestDecoder(t)

	// Move the master switch to the headlight function
	if _, err := dec.CVWrite(CVTrigger1, 0); err != nil {
		t.Fatalf("write trigger 1: %v", err)
	}

	setFunction(t, dec, 1, true)
	if dec.State().Selection != SelectionOff {
		t.Errorf("F1 no longer gates the lights, got %s", dec.State().Selection)
	}

	setFunction(t, dec, 0, true)
	if dec.State().Selection != SelectionProfile1 {
		t.Errorf("F0 should now gate the lights, got %s", dec.State().Selection)
	}
}

func TestDecoder_MasterGateBeatsTestMode(t *testing.T) {
	dec, _, out := newTestDecoder(t)

	if _, err := dec.CVWrite(CVLightTest, 1); err != nil {
		t.Fatalf("write light test: %v", err)
	}
	if dec.State().Selection != SelectionOff {
		t.Errorf("test mode with the master off should stay off, got %s", dec.State().Selection)
	}
	if out.Duty(lamp.Warm) != 0 || out.Duty(lamp.Cool) != 0 {
		t.Error("lights should stay dark with the master off")
	}

	setFunction(t, dec, 1, true)
	if dec.State().Selection != SelectionTest {
		t.Errorf("master on should enter test mode, got %s", dec.State().Selection)
	}
}

func TestDecoder_TestModeRawDuties(t *testing.T) {
	dec, _, out := newTestDecoder(t)

	if _, err := dec.CVWrite(CVBrightness1, 123); err != nil {
		t.Fatalf("write brightness: %v", err)
	}
	if _, err := dec.CVWrite(CVColorTemp1, 45); err != nil {
		t.Fatalf("write color temp: %v", err)
	}
	if _, err := dec.CVWrite(CVLightTest, 1); err != nil {
		t.Fatalf("write light test: %v", err)
	}
	setFunction(t, dec, 1, true)

	// Raw CV values drive the channels, no gamma applied
	if out.Duty(lamp.Warm) != 123 || out.Duty(lamp.Cool) != 45 {
		t.Errorf("test mode duty mismatch: expected warm=123 cool=45, got warm=%d cool=%d",
			out.Duty(lamp.Warm), out.Duty(lamp.Cool))
	}
	if !dec.State().TestMode {
		t.Error("snapshot should flag test mode")
	}

	if _, err := dec.CVWrite(CVLightTest, 0); err != nil {
		t.Fatalf("clear light test: %v", err)
	}
	if dec.State().Selection != SelectionProfile1 {
		t.Errorf("clearing test mode should return to profile 1, got %s", dec.State().Selection)
	}
	want := Mix(123, 45, &WarmWhiteTable, &CoolWhiteTable)
	if out.Duty(lamp.Warm) != want.Warm || out.Duty(lamp.Cool) != want.Cool {
		t.Errorf("duty mismatch after test mode: expected warm=%d cool=%d, got warm=%d cool=%d",
			want.Warm, want.Cool, out.Duty(lamp.Warm), out.Duty(lamp.Cool))
	}
}

func TestDecoder_ServiceModeBlanksOutput(t *testing.T) {
	dec, _, out := newTestDecoder(t)

	setFunction(t, dec, 1, true)
	if out.Duty(lamp.Cool) == 0 {
		t.Fatal("profile 1 should light the cool channel")
	}

	dec.ServiceModeEntered()
	if out.Duty(lamp.Warm) != 0 || out.Duty(lamp.Cool) != 0 {
		t.Error("service mode should blank both channels")
	}
	if !dec.State().ServiceMode {
		t.Error("snapshot should flag service mode")
	}

	// Programming happens mid-session; the result shows after exit
	if _, err := dec.CVWrite(CVBrightness1, 99); err != nil {
		t.Fatalf("write brightness: %v", err)
	}
	if out.Duty(lamp.Cool) != 0 {
		t.Error("lights must stay dark during the programming session")
	}

	dec.ServiceModeExited()
	want := Mix(99, 255, &WarmWhiteTable, &CoolWhiteTable)
	if out.Duty(lamp.Warm) != want.Warm || out.Duty(lamp.Cool) != want.Cool {
		t.Errorf("duty mismatch after service mode: expected warm=%d cool=%d, got warm=%d cool=%d",
			want.Warm, want.Cool, out.Duty(lamp.Warm), out.Duty(lamp.Cool))
	}
}

func TestDecoder_AcknowledgePulse(t *testing.T) {
	dec, _, out := newTestDecoder(t)
	before := dec.State()

	out.events = nil
	dec.AcknowledgeRequested()

	want := []dutyEvent{
		{lamp.Warm, 255},
		{lamp.Cool, 255},
		{lamp.Warm, 0},
		{lamp.Cool, 0},
	}
	if len(out.events) != len(want) {
		t.Fatalf("pulse event count mismatch: expected %d, got %d", len(want), len(out.events))
	}
	for i, ev := range want {
		if out.events[i] != ev {
			t.Errorf("pulse event %d mismatch: expected %v, got %v", i, ev, out.events[i])
		}
	}

	if dec.State() != before {
		t.Error("ack pulse should not change the logical state")
	}
}

func TestDecoder_CVWriteSameValueNoRecompute(t *testing.T) {
	dec, _, out := newTestDecoder(t)

	out.events = nil
	if _, err := dec.CVWrite(CVBrightness1, 50); err != nil {
		t.Fatalf("write brightness: %v", err)
	}
	if len(out.events) != 0 {
		t.Errorf("unchanged CV should not push output, got %d events", len(out.events))
	}

	if _, err := dec.CVWrite(CVBrightness1, 60); err != nil {
		t.Fatalf("write brightness: %v", err)
	}
	if len(out.events) == 0 {
		t.Error("changed CV should push output")
	}
}

func TestDecoder_FunctionGroupPersisted(t *testing.T) {
	dec, store, out := newTestDecoder(t)

	setFunction(t, dec, 5, true)

	block, err := store.ReadBlock(store.Size()-GroupCount, GroupCount)
	if err != nil {
		t.Fatalf("read function block: %v", err)
	}
	if !bytes.Equal(block, []byte{0, 0x01, 0, 0, 0}) {
		t.Errorf("function block mismatch: got %v", block)
	}

	// The same group byte again is a no-op end to end
	writes := store.writes
	out.events = nil
	dec.FunctionGroupChanged(1, 0x01)
	if store.writes != writes {
		t.Error("unchanged group byte should not touch the store")
	}
	if len(out.events) != 0 {
		t.Error("unchanged group byte should not push output")
	}
}

func TestDecoder_FunctionStateSurvivesReboot(t *testing.T) {
	dec, store, _ := newTestDecoder(t)
	setFunction(t, dec, 1, true)

	out := &recordingOutput{}
	rebooted, err := New(DefaultSchema(), store, out, Options{})
	if err != nil {
		t.Fatalf("new decoder: %v", err)
	}
	if err := rebooted.Boot(); err != nil {
		t.Fatalf("boot: %v", err)
	}

	if rebooted.State().Selection != SelectionProfile1 {
		t.Errorf("lights should come back on after reboot, got %s", rebooted.State().Selection)
	}
	want := Mix(50, 255, &WarmWhiteTable, &CoolWhiteTable)
	if out.Duty(lamp.Warm) != want.Warm || out.Duty(lamp.Cool) != want.Cool {
		t.Errorf("duty mismatch after reboot: expected warm=%d cool=%d, got warm=%d cool=%d",
			want.Warm, want.Cool, out.Duty(lamp.Warm), out.Duty(lamp.Cool))
	}
}

func TestDecoder_FactoryResetRestoresDefaults(t *testing.T) {
	dec, store, _ := newTestDecoder(t)

	if _, err := dec.CVWrite(CVPrimaryAddress, 9); err != nil {
		t.Fatalf("write address: %v", err)
	}
	if _, err := dec.CVWrite(CVBrightness1, 80); err != nil {
		t.Fatalf("write brightness: %v", err)
	}
	setFunction(t, dec, 1, true)

	dec.FactoryResetRequested()
	for i := 0; i < dec.registry.Len(); i++ {
		before := store.writes
		dec.PollTick()
		if store.writes > before+1 {
			t.Fatalf("tick %d performed %d writes", i, store.writes-before)
		}
	}

	if value, _ := dec.CVRead(CVPrimaryAddress); value != 3 {
		t.Errorf("CV 1 should restore to 3, got %d", value)
	}
	if value, _ := dec.CVRead(CVBrightness1); value != 50 {
		t.Errorf("CV 1000 should restore to 50, got %d", value)
	}

	// The function cache is not part of the reset
	if dec.State().Selection != SelectionProfile1 {
		t.Errorf("F1 should still be on after reset, got %s", dec.State().Selection)
	}
}

func TestDecoder_CVErrors(t *testing.T) {
	dec, _, _ := newTestDecoder(t)

	if _, err := dec.CVRead(5000); !errors.Is(err, ErrUnknownCV) {
		t.Errorf("expected ErrUnknownCV, got %v", err)
	}
	if _, err := dec.CVWrite(5000, 1); !errors.Is(err, ErrUnknownCV) {
		t.Errorf("expected ErrUnknownCV, got %v", err)
	}
	if _, err := dec.CVWrite(CVManufacturerID, 1); !errors.Is(err, ErrReadOnlyCV) {
		t.Errorf("expected ErrReadOnlyCV, got %v", err)
	}

	if !dec.CVValid(CVPrimaryAddress, true) {
		t.Error("CV 1 should be valid for write")
	}
	if dec.CVValid(CVVersionID, true) {
		t.Error("CV 7 should not be valid for write")
	}
	if !dec.CVValid(CVVersionID, false) {
		t.Error("CV 7 should be valid for read")
	}
	if dec.CVValid(5000, false) {
		t.Error("CV 5000 should not be valid")
	}
}

func TestDecoder_OnStateCallback(t *testing.T) {
	store := newCountingStore(64)
	programStore(t, store)
	dec, err := New(DefaultSchema(), store, &recordingOutput{}, Options{})
	if err != nil {
		t.Fatalf("new decoder: %v", err)
	}

	var snaps []Snapshot
	dec.OnState(func(s Snapshot) { snaps = append(snaps, s) })

	if err := dec.Boot(); err != nil {
		t.Fatalf("boot: %v", err)
	}
	if len(snaps) != 1 {
		t.Fatalf("boot should push one snapshot, got %d", len(snaps))
	}

	setFunction(t, dec, 1, true)
	if len(snaps) != 2 {
		t.Fatalf("group change should push a snapshot, got %d", len(snaps))
	}

	last := snaps[len(snaps)-1]
	if last != dec.State() {
		t.Error("pushed snapshot should match State()")
	}
	if !last.Groups.Active(1) {
		t.Error("snapshot should carry the new function state")
	}
}
