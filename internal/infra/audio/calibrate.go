package audio

import (
	"fmt"
	"math"
	"time"
)

const (
	initialEnergyThreshold = 300.0
	energyDamping          = 0.15
	energyRatio            = 1.5
	samplesPerBuffer       = 1024
	// silenceFloor is the RMS below which a buffer counts as silent. Steady
	// hiss and room tone sit well under it.
	silenceFloor           = 60.0
)

// Calibration is the outcome of measuring ambient noise at the start of a clip.
// Threshold is the ambient energy level learned from the leading window.
// Speech reports whether any buffer of the clip rises above the silence
// floor, so quiet speakers and speech from the first sample still count.
type Calibration struct {
	Threshold  float64
	PeakEnergy float64
	Speech     bool
}

// Calibrator estimates the ambient energy threshold from the leading window
// of a clip and measures the loudest buffer of the whole clip.
type Calibrator struct {
	window time.Duration
}

func NewCalibrator(window time.Duration) *Calibrator {
	if window <= 0 {
		window = 500 * time.Millisecond
	}
	return &Calibrator{window: window}
}

func (c *Calibrator) Calibrate(wavData []byte) (Calibration, error) {
	buf, err := decodeWAV(wavData)
	if err != nil {
		return Calibration{}, err
	}

	samples := downmix(buf.Data, buf.Format.NumChannels)
	secondsPerBuffer := float64(samplesPerBuffer) / float64(buf.Format.SampleRate)
	damping := math.Pow(energyDamping, secondsPerBuffer)

	threshold := initialEnergyThreshold
	elapsed := 0.0
	var peak float64

	for offset := 0; offset < len(samples); offset += samplesPerBuffer {
		end := min(offset+samplesPerBuffer, len(samples))
		energy := rms(samples[offset:end])
		peak = max(peak, energy)

		elapsed += secondsPerBuffer
		if elapsed <= c.window.Seconds() {
			threshold = threshold*damping + energy*energyRatio*(1-damping)
		}
	}

	cal := Calibration{
		Threshold:  threshold,
		PeakEnergy: peak,
		Speech:     peak > silenceFloor,
	}
	return cal, nil
}

func downmix(data []int, channels int) []float64 {
	if channels <= 0 {
		return nil
	}
	out := make([]float64, len(data)/channels)
	for i := range out {
		var sum float64
		for ch := 0; ch < channels; ch++ {
			sum += float64(data[i*channels+ch])
		}
		out[i] = sum / float64(channels)
	}
	return out
}

func rms(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(samples)))
}

func (c Calibration) String() string {
	return fmt.Sprintf("threshold=%.1f peak=%.1f speech=%t", c.Threshold, c.PeakEnergy, c.Speech)
}
