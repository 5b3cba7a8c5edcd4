package decoder

// Profile is one brightness/color-temperature preset with the function
// number that activates it.
type Profile struct {
	Brightness uint8
	ColorTemp  uint8
	Trigger    uint8
}

// Selection identifies which output the lights should follow.
type Selection int

const (
	SelectionOff Selection = iota
	SelectionProfile1
	SelectionProfile2
	SelectionTest
)

// String returns a human-readable name for the selection.
func (s Selection) String() string {
	switch s {
	case SelectionOff:
		return "off"
	case SelectionProfile1:
		return "profile1"
	case SelectionProfile2:
		return "profile2"
	case SelectionTest:
		return "test"
	default:
		return "unknown"
	}
}

// Select decides which profile drives the lights.
//
// The profile 1 trigger doubles as the master light switch: while it is
// inactive the output is off no matter what else is set, test mode
// included. With the master on, test mode takes the raw CV values,
// profile 2 overrides profile 1 when its trigger is active, and a
// trigger CV of 255 disables the profile 2 override entirely.
func Select(funcs *FunctionStates, p1, p2 Profile, testMode bool) Selection {
	if !funcs.Active(p1.Trigger) {
		return SelectionOff
	}
	if testMode {
		return SelectionTest
	}
	if p2.Trigger != TriggerUnused && funcs.Active(p2.Trigger) {
		return SelectionProfile2
	}
	return SelectionProfile1
}
