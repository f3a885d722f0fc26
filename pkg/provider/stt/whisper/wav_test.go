package whisper

import (
	"encoding/binary"
	"math"
	"testing"
)

// buildWAV assembles a minimal RIFF/WAV file around the given PCM payload.
func buildWAV(pcm []byte, sampleRate, channels int, bits uint16) []byte {
	byteRate := sampleRate * channels * int(bits) / 8
	blockAlign := channels * int(bits) / 8

	buf := make([]byte, 44+len(pcm))
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+len(pcm)))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1)
	binary.LittleEndian.PutUint16(buf[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], bits)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(len(pcm)))
	copy(buf[44:], pcm)
	return buf
}

func TestDecodeWAV_Valid(t *testing.T) {
	pcm := make([]byte, 8)
	binary.LittleEndian.PutUint16(pcm[0:], uint16(int16(1000)))
	binary.LittleEndian.PutUint16(pcm[2:], uint16(int16(-1000)))

	data := buildWAV(pcm, 16000, 1, 16)
	got, sr, ch, err := decodeWAV(data)
	if err != nil {
		t.Fatalf("decodeWAV returned error: %v", err)
	}
	if sr != 16000 {
		t.Errorf("sample rate = %d; want 16000", sr)
	}
	if ch != 1 {
		t.Errorf("channels = %d; want 1", ch)
	}
	if len(got) != len(pcm) {
		t.Errorf("pcm length = %d; want %d", len(got), len(pcm))
	}
}

func TestDecodeWAV_Stereo(t *testing.T) {
	pcm := make([]byte, 16)
	data := buildWAV(pcm, 44100, 2, 16)
	_, sr, ch, err := decodeWAV(data)
	if err != nil {
		t.Fatalf("decodeWAV returned error: %v", err)
	}
	if sr != 44100 || ch != 2 {
		t.Errorf("got (%d Hz, %d ch); want (44100 Hz, 2 ch)", sr, ch)
	}
}

func TestDecodeWAV_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"too short", []byte("RIFF")},
		{"not riff", append([]byte("JUNKxxxxWAVE"), make([]byte, 44)...)},
		{"no data chunk", buildWAV(nil, 16000, 1, 16)[:36]},
		{"non-pcm format", func() []byte {
			d := buildWAV(make([]byte, 4), 16000, 1, 16)
			binary.LittleEndian.PutUint16(d[20:22], 3) // IEEE float
			return d
		}()},
		{"wrong bit depth", buildWAV(make([]byte, 4), 16000, 1, 8)},
		{"truncated data chunk", func() []byte {
			d := buildWAV(make([]byte, 8), 16000, 1, 16)
			return d[:len(d)-4]
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, _, err := decodeWAV(tt.data); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestPcmToFloat32_FullScale(t *testing.T) {
	tests := []struct {
		name  string
		value int16
		want  float32
	}{
		{"max positive", 32767, 32767.0 / 32768.0},
		{"max negative", -32768, -1.0},
		{"zero", 0, 0.0},
		{"mid positive", 16384, 16384.0 / 32768.0},
		{"mid negative", -16384, -16384.0 / 32768.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pcm := make([]byte, 2)
			binary.LittleEndian.PutUint16(pcm, uint16(tt.value))
			out := pcmToFloat32(pcm)
			if math.Abs(float64(out[0]-tt.want)) > 1e-6 {
				t.Errorf("pcmToFloat32(%d) = %f; want %f", tt.value, out[0], tt.want)
			}
		})
	}
}

func TestPcmToFloat32_OddByteCount(t *testing.T) {
	// 3 bytes → only 1 complete sample (trailing byte ignored)
	pcm := []byte{0x00, 0x40, 0xFF}
	out := pcmToFloat32(pcm)
	if len(out) != 1 {
		t.Fatalf("expected 1 sample from 3-byte input, got %d", len(out))
	}
}

func TestPcmToFloat32Mono_Stereo(t *testing.T) {
	// Two frames of stereo: (1000, 3000) and (-2000, -4000)
	values := []int16{1000, 3000, -2000, -4000}
	pcm := make([]byte, len(values)*2)
	for i, v := range values {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}
	mono := pcmToFloat32Mono(pcm, 2)
	if len(mono) != 2 {
		t.Fatalf("expected 2 mono samples from 4-sample stereo, got %d", len(mono))
	}
	want0 := (float32(1000)/32768.0 + float32(3000)/32768.0) / 2.0
	if math.Abs(float64(mono[0]-want0)) > 1e-6 {
		t.Errorf("mono[0] = %f; want %f", mono[0], want0)
	}
	want1 := (float32(-2000)/32768.0 + float32(-4000)/32768.0) / 2.0
	if math.Abs(float64(mono[1]-want1)) > 1e-6 {
		t.Errorf("mono[1] = %f; want %f", mono[1], want1)
	}
}

func TestPcmToFloat32Mono_SingleChannel(t *testing.T) {
	// channels=1 should be identical to pcmToFloat32
	values := []int16{100, -200, 300}
	pcm := make([]byte, len(values)*2)
	for i, v := range values {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}
	mono := pcmToFloat32Mono(pcm, 1)
	direct := pcmToFloat32(pcm)
	if len(mono) != len(direct) {
		t.Fatalf("length mismatch: mono=%d, direct=%d", len(mono), len(direct))
	}
	for i := range mono {
		if mono[i] != direct[i] {
			t.Errorf("sample[%d]: mono=%f, direct=%f", i, mono[i], direct[i])
		}
	}
}
