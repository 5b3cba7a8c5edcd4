package decoder

// Function numbers run F0..F28, delivered by the track protocol in five
// group bytes. Group 0 is the odd one out: F1..F4 sit in bits 0..3 and
// the headlight function F0 sits in bit 4.
const (
	MaxFunction uint8 = 28
	GroupCount        = 5
)

// FunctionStates caches the on/off state of all 29 functions as the
// five raw group bytes, so it can be persisted and reloaded verbatim.
type FunctionStates [GroupCount]uint8

// placement maps a function number to its group byte and bit mask.
func placement(fn uint8) (int, uint8) {
	switch {
	case fn == 0:
		return 0, 0x10
	case fn <= 4:
		return 0, 1 << (fn - 1)
	case fn <= 8:
		return 1, 1 << (fn - 5)
	case fn <= 12:
		return 2, 1 << (fn - 9)
	case fn <= 20:
		return 3, 1 << (fn - 13)
	default:
		return 4, 1 << (fn - 21)
	}
}

// Active reports whether function fn is on. Out-of-range numbers are
// treated as inactive rather than failing, so a trigger CV misconfigured
// beyond F28 simply never fires.
func (s *FunctionStates) Active(fn uint8) bool {
	if fn > MaxFunction {
		return false
	}
	group, mask := placement(fn)
	return s[group]&mask != 0
}

// SetGroup replaces one group byte and reports whether it changed.
func (s *FunctionStates) SetGroup(group uint8, bits uint8) bool {
	if int(group) >= GroupCount {
		return false
	}
	if s[group] == bits {
		return false
	}
	s[group] = bits
	return true
}

// GroupWith computes the group byte that turns function fn on or off,
// without mutating the cache, and reports which group it belongs to.
// Out-of-range numbers report ok false.
func (s *FunctionStates) GroupWith(fn uint8, on bool) (group uint8, bits uint8, ok bool) {
	if fn > MaxFunction {
		return 0, 0, false
	}
	g, mask := placement(fn)
	bits = s[g]
	if on {
		bits |= mask
	} else {
		bits &^= mask
	}
	return uint8(g), bits, true
}

// Group returns one raw group byte.
func (s *FunctionStates) Group(group uint8) uint8 {
	if int(group) >= GroupCount {
		return 0
	}
	return s[group]
}

// Bytes returns the five group bytes in persistence order.
func (s *FunctionStates) Bytes() []byte {
	b := make([]byte, GroupCount)
	for i := range s {
		b[i] = s[i]
	}
	return b
}

// LoadBytes restores the cache from persisted group bytes.
func (s *FunctionStates) LoadBytes(b []byte) {
	for i := 0; i < GroupCount && i < len(b); i++ {
		s[i] = b[i]
	}
}
