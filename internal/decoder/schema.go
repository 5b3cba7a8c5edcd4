package decoder

// Configuration variable numbers. CVs 1..29 follow the NMRA assignments
// for multi-function decoders; the 1000 range is manufacturer space.
const (
	CVPrimaryAddress     uint16 = 1
	CVVersionID          uint16 = 7
	CVManufacturerID     uint16 = 8
	CVExtendedAddressMSB uint16 = 17
	CVExtendedAddressLSB uint16 = 18
	CVConsistAddress     uint16 = 19
	CVModeControl        uint16 = 29

	CVBrightness1 uint16 = 1000
	CVColorTemp1  uint16 = 1001
	CVTrigger1    uint16 = 1002
	CVBrightness2 uint16 = 1003
	CVColorTemp2  uint16 = 1004
	CVTrigger2    uint16 = 1005
	CVLightTest   uint16 = 1010
)

// ManufacturerDIY is the NMRA manufacturer id for home-built decoders.
const ManufacturerDIY uint8 = 13

// FirmwareVersion is reported through CV7.
const FirmwareVersion uint8 = 2

// TriggerUnused in a trigger CV disables that profile's override.
const TriggerUnused uint8 = 255

// CVSpec describes one configuration variable.
type CVSpec struct {
	Number         uint16
	Writable       bool
	RestoreOnReset bool
	Default        uint8
}

// Schema is the fixed CV table. The position of a spec in the table is
// its storage address: values are persisted one byte per CV at the
// schema index, not at the CV number (numbers up to 1010 would not fit
// a small non-volatile part).
type Schema []CVSpec

// DefaultSchema returns the CV table for this decoder.
func DefaultSchema() Schema {
	return Schema{
		{Number: CVPrimaryAddress, Writable: true, RestoreOnReset: true, Default: 3},
		{Number: CVVersionID, Writable: false, RestoreOnReset: false, Default: 0},
		{Number: CVManufacturerID, Writable: false, RestoreOnReset: false, Default: 0},
		{Number: CVExtendedAddressMSB, Writable: true, RestoreOnReset: true, Default: 0},
		{Number: CVExtendedAddressLSB, Writable: true, RestoreOnReset: true, Default: 0},
		{Number: CVConsistAddress, Writable: true, RestoreOnReset: true, Default: 0},
		{Number: CVModeControl, Writable: true, RestoreOnReset: true, Default: 2},
		{Number: CVBrightness1, Writable: true, RestoreOnReset: true, Default: 50},
		{Number: CVColorTemp1, Writable: true, RestoreOnReset: true, Default: 255},
		{Number: CVTrigger1, Writable: true, RestoreOnReset: true, Default: 1},
		{Number: CVBrightness2, Writable: true, RestoreOnReset: true, Default: 30},
		{Number: CVColorTemp2, Writable: true, RestoreOnReset: true, Default: 255},
		{Number: CVTrigger2, Writable: true, RestoreOnReset: true, Default: 20},
		{Number: CVLightTest, Writable: true, RestoreOnReset: true, Default: 0},
	}
}

// Lookup returns the schema index for a CV number.
func (s Schema) Lookup(nr uint16) (int, bool) {
	for i := range s {
		if s[i].Number == nr {
			return i, true
		}
	}
	return 0, false
}
