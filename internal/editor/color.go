package editor

import "math"

// AdjustPixel applies brightness and saturation in HSL space, then linear
// contrast around the RGB midpoint. All three are percentages where 100 is
// the identity.
func AdjustPixel(r, g, b uint8, brightness, contrast, saturation int) (uint8, uint8, uint8) {
	if brightness != 100 || saturation != 100 {
		h, s, l := rgbToHSL(r, g, b)
		l = clamp01(l * float64(brightness) / 100)
		s = clamp01(s * float64(saturation) / 100)
		r, g, b = hslToRGB(h, s, l)
	}
	if contrast != 100 {
		factor := contrastFactor(contrast)
		r = applyContrast(r, factor)
		g = applyContrast(g, factor)
		b = applyContrast(b, factor)
	}
	return r, g, b
}

// contrastFactor maps a contrast percentage to the multiplier
// 259(c+255) / 255(259-c), with c scaled to [-255, 255].
func contrastFactor(contrast int) float64 {
	c := float64(contrast-100) * 2.55
	return 259 * (c + 255) / (255 * (259 - c))
}

func applyContrast(v uint8, factor float64) uint8 {
	return toByte(factor*(float64(v)-128) + 128)
}

func rgbToHSL(r8, g8, b8 uint8) (h, s, l float64) {
	r := float64(r8) / 255
	g := float64(g8) / 255
	b := float64(b8) / 255
	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	l = (maxC + minC) / 2
	if maxC == minC {
		return 0, 0, l
	}
	d := maxC - minC
	if l > 0.5 {
		s = d / (2 - maxC - minC)
	} else {
		s = d / (maxC + minC)
	}
	switch maxC {
	case r:
		h = (g - b) / d
		if g < b {
			h += 6
		}
	case g:
		h = (b-r)/d + 2
	default:
		h = (r-g)/d + 4
	}
	return h / 6, s, l
}

func hslToRGB(h, s, l float64) (uint8, uint8, uint8) {
	if s == 0 {
		v := toByte(l * 255)
		return v, v, v
	}
	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	return toByte(hueToRGB(p, q, h+1.0/3) * 255),
		toByte(hueToRGB(p, q, h) * 255),
		toByte(hueToRGB(p, q, h-1.0/3) * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6:
		return p + (q-p)*6*t
	case t < 1.0/2:
		return q
	case t < 2.0/3:
		return p + (q-p)*(2.0/3-t)*6
	}
	return p
}

func toByte(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
