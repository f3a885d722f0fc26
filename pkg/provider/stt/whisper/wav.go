package whisper

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// decodeWAV parses a RIFF/WAV container holding 16-bit signed little-endian
// PCM audio and returns the raw sample data together with the sample rate and
// channel count. Compressed or non-16-bit formats are rejected.
func decodeWAV(data []byte) (pcm []byte, sampleRate, channels int, err error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, 0, errors.New("not a RIFF/WAVE file")
	}

	var haveFmt bool
	// Walk the chunk list after the 12-byte RIFF header.
	for off := 12; off+8 <= len(data); {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if body+size > len(data) {
			return nil, 0, 0, fmt.Errorf("truncated %q chunk", id)
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, 0, 0, errors.New("fmt chunk too short")
			}
			format := binary.LittleEndian.Uint16(data[body : body+2])
			if format != 1 { // PCM
				return nil, 0, 0, fmt.Errorf("unsupported audio format %d (need PCM)", format)
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bits := binary.LittleEndian.Uint16(data[body+14 : body+16])
			if bits != 16 {
				return nil, 0, 0, fmt.Errorf("unsupported bit depth %d (need 16)", bits)
			}
			haveFmt = true

		case "data":
			if !haveFmt {
				return nil, 0, 0, errors.New("data chunk before fmt chunk")
			}
			return data[body : body+size], sampleRate, channels, nil
		}

		// Chunks are word-aligned; odd sizes carry a pad byte.
		off = body + size
		if size%2 == 1 {
			off++
		}
	}

	return nil, 0, 0, errors.New("no data chunk found")
}

// pcmToFloat32 converts 16-bit signed little-endian PCM audio to float32
// samples normalised to the range [-1.0, 1.0]. The input length must be
// even (two bytes per sample); any trailing odd byte is silently ignored.
func pcmToFloat32(pcm []byte) []float32 {
	n := len(pcm) / 2
	samples := make([]float32, n)
	for i := range n {
		sample := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
		samples[i] = float32(sample) / 32768.0
	}
	return samples
}

// pcmToFloat32Mono down-mixes multi-channel 16-bit PCM to mono float32 by
// averaging all channels per frame. If channels is 1 this is equivalent to
// pcmToFloat32.
func pcmToFloat32Mono(pcm []byte, channels int) []float32 {
	if channels <= 1 {
		return pcmToFloat32(pcm)
	}
	samplesPerChannel := len(pcm) / (2 * channels)
	mono := make([]float32, samplesPerChannel)
	for i := range samplesPerChannel {
		var sum float32
		for ch := range channels {
			idx := (i*channels + ch) * 2
			sample := int16(binary.LittleEndian.Uint16(pcm[idx : idx+2]))
			sum += float32(sample) / 32768.0
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}
