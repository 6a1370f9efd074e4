package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"raaee/internal/domain"
)

const wavHeaderSize = 44

// EncodeWAV wraps little-endian 16-bit PCM in a canonical RIFF/WAVE header.
func EncodeWAV(pcm []byte, format domain.AudioFormat) []byte {
	var buf bytes.Buffer
	buf.Grow(wavHeaderSize + len(pcm))

	blockAlign := format.Channels * format.BitDepth / 8
	dataSize := len(pcm)

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(format.Channels))
	binary.Write(&buf, binary.LittleEndian, uint32(format.SampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(format.SampleRate*blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(format.BitDepth))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(pcm)

	return buf.Bytes()
}

// SamplesToPCM serializes signed 16-bit samples as little-endian bytes.
func SamplesToPCM(samples []int16) []byte {
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}
	return pcm
}

// IsFormat reports whether data is a PCM WAV file already in format.
func IsFormat(data []byte, format domain.AudioFormat) bool {
	d := wav.NewDecoder(bytes.NewReader(data))
	if !safeValid(d) {
		return false
	}
	return d.WavAudioFormat == 1 &&
		int(d.SampleRate) == format.SampleRate &&
		int(d.NumChans) == format.Channels &&
		int(d.BitDepth) == format.BitDepth
}

// decodeWAV returns the interleaved samples of a PCM WAV file.
func decodeWAV(data []byte) (buf *goaudio.IntBuffer, err error) {
	defer func() {
		if r := recover(); r != nil {
			buf, err = nil, fmt.Errorf("decoding wav: %v", r)
		}
	}()

	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return nil, fmt.Errorf("decoding wav: not a valid wav file")
	}
	buf, err = d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decoding wav: %w", err)
	}
	if buf.Format == nil || buf.Format.SampleRate <= 0 || buf.Format.NumChannels <= 0 {
		return nil, fmt.Errorf("decoding wav: missing format")
	}
	return buf, nil
}

func safeValid(d *wav.Decoder) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return d.IsValidFile()
}
