package media

import (
	"encoding/binary"
	"fmt"
	"os"
	"time"
)

// wavDuration derives the play length of a PCM WAV file from its fmt and
// data chunks. It only needs the header, but small transcription inputs make
// reading the whole file acceptable.
func wavDuration(path string) (time.Duration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read wav: %w", err)
	}
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return 0, fmt.Errorf("%s: not a RIFF/WAVE file", path)
	}

	var byteRate uint32
	offset := 12
	for offset+8 <= len(data) {
		id := string(data[offset : offset+4])
		size := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		if body+size > len(data) {
			return 0, fmt.Errorf("%s: truncated %q chunk", path, id)
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return 0, fmt.Errorf("%s: short fmt chunk", path)
			}
			byteRate = binary.LittleEndian.Uint32(data[body+8 : body+12])
		case "data":
			if byteRate == 0 {
				return 0, fmt.Errorf("%s: data chunk before fmt chunk", path)
			}
			seconds := float64(size) / float64(byteRate)
			return time.Duration(seconds * float64(time.Second)), nil
		}
		offset = body + size
		if size%2 == 1 {
			offset++ // chunk bodies are word aligned
		}
	}
	return 0, fmt.Errorf("%s: no data chunk", path)
}
