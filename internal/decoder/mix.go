package decoder

// MixResult is a pair of PWM duty values, one per channel.
type MixResult struct {
	Warm uint8
	Cool uint8
}

// Off is the all-dark output.
var Off = MixResult{}

// Mix splits a brightness level across the warm and cool channels
// according to the color temperature setting, then maps each share
// through its gamma table. cct=0 is pure warm, cct=255 pure cool.
// The split runs in 16-bit space and divides by 256 with truncation,
// so the two linear shares never sum to more than the brightness.
func Mix(brightness, cct uint8, warm, cool *GammaTable) MixResult {
	warmStep := uint16(brightness) * uint16(255-cct) / 256
	coolStep := uint16(brightness) * uint16(cct) / 256
	return MixResult{
		Warm: warm.Apply(uint8(warmStep)),
		Cool: cool.Apply(uint8(coolStep)),
	}
}
