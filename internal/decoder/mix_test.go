package decoder

import "testing"

func TestMix_Split(t *testing.T) {
	tests := []struct {
		name       string
		brightness uint8
		cct        uint8
		warmStep   uint8
		coolStep   uint8
	}{
		{
			name:       "pure warm",
			brightness: 255,
			cct:        0,
			warmStep:   254, // 255*255/256, truncated
			coolStep:   0,
		},
		{
			name:       "pure cool",
			brightness: 255,
			cct:        255,
			warmStep:   0,
			coolStep:   254,
		},
		{
			name:       "even split",
			brightness: 80,
			cct:        128,
			warmStep:   39, // 80*127/256
			coolStep:   40, // 80*128/256
		},
		{
			name:       "warm leaning",
			brightness: 200,
			cct:        64,
			warmStep:   149, // 200*191/256
			coolStep:   50,  // 200*64/256
		},
		{
			name:       "dark",
			brightness: 0,
			cct:        128,
			warmStep:   0,
			coolStep:   0,
		},
		{
			name:       "dim light stays lit",
			brightness: 10,
			cct:        128,
			warmStep:   4,
			coolStep:   5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Mix(tt.brightness, tt.cct, &WarmWhiteTable, &CoolWhiteTable)
			if want := WarmWhiteTable.Apply(tt.warmStep); res.Warm != want {
				t.Errorf("warm duty mismatch: expected %d, got %d", want, res.Warm)
			}
			if want := CoolWhiteTable.Apply(tt.coolStep); res.Cool != want {
				t.Errorf("cool duty mismatch: expected %d, got %d", want, res.Cool)
			}
		})
	}
}

func TestMix_ColorTempSweep(t *testing.T) {
	// Raising the color temperature at fixed brightness must never
	// brighten the warm channel or dim the cool channel.
	prev := Mix(255, 0, &WarmWhiteTable, &CoolWhiteTable)
	for cct := 1; cct < 256; cct++ {
		res := Mix(255, uint8(cct), &WarmWhiteTable, &CoolWhiteTable)
		if res.Warm > prev.Warm {
			t.Errorf("warm duty rose at cct %d: %d > %d", cct, res.Warm, prev.Warm)
		}
		if res.Cool < prev.Cool {
			t.Errorf("cool duty fell at cct %d: %d < %d", cct, res.Cool, prev.Cool)
		}
		prev = res
	}
}

func TestMix_SharesBounded(t *testing.T) {
	// The linear shares never sum past the brightness.
	for _, brightness := range []uint8{1, 10, 80, 128, 255} {
		for cct := 0; cct < 256; cct++ {
			warmStep := uint16(brightness) * uint16(255-uint8(cct)) / 256
			coolStep := uint16(brightness) * uint16(cct) / 256
			if warmStep+coolStep > uint16(brightness) {
				t.Fatalf("shares exceed brightness at b=%d cct=%d: %d+%d",
					brightness, cct, warmStep, coolStep)
			}
		}
	}
}

func TestOff_IsDark(t *testing.T) {
	if Off.Warm != 0 || Off.Cool != 0 {
		t.Errorf("Off should be all dark, got warm=%d cool=%d", Off.Warm, Off.Cool)
	}
}
