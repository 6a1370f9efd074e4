package audio_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raaee/internal/domain"
	"raaee/internal/infra/audio"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func silence(n int) []int16 {
	return make([]int16, n)
}

func noise(n int, amplitude int) []int16 {
	r := rand.New(rand.NewSource(1))
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(r.Intn(2*amplitude+1) - amplitude)
	}
	return out
}

func tone(n, sampleRate int, amplitude float64) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(amplitude * math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate)))
	}
	return out
}

func speechWAV(samples ...[]int16) []byte {
	var all []int16
	for _, s := range samples {
		all = append(all, s...)
	}
	return audio.EncodeWAV(audio.SamplesToPCM(all), domain.SpeechFormat())
}

func requireFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}
}

func TestEncodeWAV_RoundTrip(t *testing.T) {
	samples := []int16{0, 1, -1, 32767, -32768, 1234}
	data := audio.EncodeWAV(audio.SamplesToPCM(samples), domain.SpeechFormat())

	assert.True(t, audio.IsFormat(data, domain.SpeechFormat()))

	d := wav.NewDecoder(bytes.NewReader(data))
	buf, err := d.FullPCMBuffer()
	require.NoError(t, err)
	assert.Equal(t, 16000, buf.Format.SampleRate)
	assert.Equal(t, 1, buf.Format.NumChannels)

	got := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		got[i] = int16(v)
	}
	assert.Equal(t, samples, got)
}

func TestIsFormat(t *testing.T) {
	stereo := audio.EncodeWAV(audio.SamplesToPCM(silence(200)), domain.AudioFormat{SampleRate: 16000, Channels: 2, BitDepth: 16})
	cd := audio.EncodeWAV(audio.SamplesToPCM(silence(200)), domain.AudioFormat{SampleRate: 44100, Channels: 1, BitDepth: 16})

	assert.False(t, audio.IsFormat(stereo, domain.SpeechFormat()))
	assert.False(t, audio.IsFormat(cd, domain.SpeechFormat()))
	assert.False(t, audio.IsFormat([]byte("\x1aE\xdf\xa3 definitely webm"), domain.SpeechFormat()))
	assert.False(t, audio.IsFormat(nil, domain.SpeechFormat()))
}

func TestNormalizer_PassesThroughSpeechWAV(t *testing.T) {
	n := audio.NewNormalizer("ffmpeg-not-installed-here", 16000, discardLogger())
	data := speechWAV(tone(1600, 16000, 4000))

	out, err := n.Normalize(context.Background(), domain.Clip{Data: data, Filename: "clip.wav"})
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestNormalizer_EmptyClip(t *testing.T) {
	n := audio.NewNormalizer("", 16000, discardLogger())

	_, err := n.Normalize(context.Background(), domain.Clip{Filename: "recording.webm"})
	assert.ErrorIs(t, err, domain.ErrEmptyAudio)
}

func TestNormalizer_MissingFFmpeg(t *testing.T) {
	n := audio.NewNormalizer("ffmpeg-not-installed-here", 16000, discardLogger())

	out, err := n.Normalize(context.Background(), domain.Clip{
		Data:        []byte("\x1aE\xdf\xa3 not really webm"),
		Filename:    "recording.webm",
		ContentType: "audio/webm",
	})
	assert.ErrorIs(t, err, domain.ErrConversionFailed)
	assert.Nil(t, out)
}

func TestNormalizer_GarbageInput(t *testing.T) {
	requireFFmpeg(t)
	n := audio.NewNormalizer("ffmpeg", 16000, discardLogger())

	out, err := n.Normalize(context.Background(), domain.Clip{
		Data:     bytes.Repeat([]byte{0xde, 0xad, 0xbe, 0xef}, 256),
		Filename: "recording.webm",
	})
	assert.ErrorIs(t, err, domain.ErrConversionFailed)
	assert.Nil(t, out)
}

func TestNormalizer_ResamplesAndDownmixes(t *testing.T) {
	requireFFmpeg(t)
	n := audio.NewNormalizer("ffmpeg", 16000, discardLogger())

	cdFormat := domain.AudioFormat{SampleRate: 44100, Channels: 2, BitDepth: 16}
	input := audio.EncodeWAV(audio.SamplesToPCM(tone(44100*2, 44100, 6000)), cdFormat)

	out, err := n.Normalize(context.Background(), domain.Clip{Data: input, Filename: "clip.wav"})
	require.NoError(t, err)
	assert.True(t, audio.IsFormat(out, domain.SpeechFormat()))
}

func TestCalibrator_Silence(t *testing.T) {
	c := audio.NewCalibrator(500 * time.Millisecond)

	cal, err := c.Calibrate(speechWAV(silence(16000 * 2)))
	require.NoError(t, err)
	assert.False(t, cal.Speech)
	assert.Greater(t, cal.Threshold, 0.0)
}

func TestCalibrator_SteadyBackgroundNoise(t *testing.T) {
	c := audio.NewCalibrator(500 * time.Millisecond)

	cal, err := c.Calibrate(speechWAV(noise(16000*2, 50)))
	require.NoError(t, err)
	assert.False(t, cal.Speech, cal.String())
}

func TestCalibrator_SpeechAfterNoise(t *testing.T) {
	c := audio.NewCalibrator(500 * time.Millisecond)

	cal, err := c.Calibrate(speechWAV(noise(8000, 50), tone(16000, 16000, 8000)))
	require.NoError(t, err)
	assert.True(t, cal.Speech, cal.String())
	assert.Greater(t, cal.PeakEnergy, cal.Threshold)
}

func TestCalibrator_ShorterThanWindow(t *testing.T) {
	c := audio.NewCalibrator(500 * time.Millisecond)

	cal, err := c.Calibrate(speechWAV(tone(4000, 16000, 8000)))
	require.NoError(t, err)
	assert.True(t, cal.Speech, cal.String())
}

func TestCalibrator_SpeechFromFirstSample(t *testing.T) {
	c := audio.NewCalibrator(500 * time.Millisecond)

	cal, err := c.Calibrate(speechWAV(tone(16000*3, 16000, 1000)))
	require.NoError(t, err)
	assert.True(t, cal.Speech, cal.String())
	assert.Greater(t, cal.Threshold, cal.PeakEnergy/2, "speech in the leading window raises the threshold")
}

func TestCalibrator_QuietSpeechAfterSilence(t *testing.T) {
	c := audio.NewCalibrator(500 * time.Millisecond)

	cal, err := c.Calibrate(speechWAV(silence(8000), tone(16000*2, 16000, 160)))
	require.NoError(t, err)
	assert.True(t, cal.Speech, cal.String())
}

func TestCalibrator_InvalidInput(t *testing.T) {
	c := audio.NewCalibrator(0)

	_, err := c.Calibrate([]byte("not a wav"))
	assert.Error(t, err)
}

func TestFileSource_LoadFromDirectory(t *testing.T) {
	tmpDir := t.TempDir()

	files := map[string][]byte{
		"a-question.webm": []byte("\x1aE\xdf\xa3 webm bytes"),
		"b-question.wav":  speechWAV(silence(100)),
		"notes.txt":       []byte("ignored"),
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, name), content, 0644))
	}

	source := audio.NewFileSource(tmpDir)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, source.Start(ctx))

	first, err := source.NextClip(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a-question.webm", first.Filename)
	assert.Equal(t, "audio/webm", first.ContentType)
	assert.True(t, first.IsWebM())

	second, err := source.NextClip(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b-question.wav", second.Filename)
	assert.NotEmpty(t, second.Data)

	_, err = os.Stat(filepath.Join(tmpDir, "a-question.webm.processed"))
	assert.NoError(t, err)

	shortCtx, shortCancel := context.WithTimeout(ctx, 700*time.Millisecond)
	defer shortCancel()
	_, err = source.NextClip(shortCtx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
