package audio

import "math"

// SyntheticIntensity is the default intensity signal: a smooth periodic
// function of elapsed time in [0,1]. It does not look at the audio.
func SyntheticIntensity(t float64) float64 {
	return math.Sin(t*2)*0.5 + 0.5
}

// Smoothstep returns the smoothstep interpolation for t in [0,1].
// Formula: 3t^2 - 2t^3.
func Smoothstep(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	return t * t * (3 - 2*t)
}

// EnvelopeIntensity builds an intensity function from decoded PCM. The RMS
// energy of each window (seconds) is normalized to the loudest window and
// eased between window centers with Smoothstep. Silence and times outside
// the audio map to 0.
func EnvelopeIntensity(samples []int16, sampleRate, channels int, window float64) func(t float64) float64 {
	frameLen := int(float64(sampleRate) * window)
	if frameLen <= 0 || channels <= 0 {
		return func(float64) float64 { return 0 }
	}
	step := frameLen * channels

	var levels []float64
	peak := 0.0
	for start := 0; start < len(samples); start += step {
		end := min(start+step, len(samples))
		var sum float64
		for _, s := range samples[start:end] {
			v := float64(s) / 32768
			sum += v * v
		}
		rms := math.Sqrt(sum / float64(end-start))
		levels = append(levels, rms)
		peak = max(peak, rms)
	}
	if peak > 0 {
		for i := range levels {
			levels[i] /= peak
		}
	}

	return func(t float64) float64 {
		if len(levels) == 0 || t < 0 {
			return 0
		}
		pos := t/window - 0.5
		if pos <= 0 {
			return levels[0]
		}
		i := int(pos)
		if i >= len(levels)-1 {
			if i >= len(levels) {
				return 0
			}
			return levels[len(levels)-1]
		}
		f := Smoothstep(pos - float64(i))
		return levels[i]*(1-f) + levels[i+1]*f
	}
}
