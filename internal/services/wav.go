package services

import (
	"encoding/binary"
	"fmt"
)

// wavDurationMs computes the play time of a RIFF/WAVE file from its fmt
// and data chunks. Returns an error for anything that is not a well-formed
// PCM-style WAV header.
func wavDurationMs(data []byte) (int, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return 0, fmt.Errorf("not a RIFF/WAVE file")
	}

	var byteRate uint32
	var dataSize uint32
	foundFmt := false
	foundData := false

	// Walk the chunk list. Chunks are word-aligned, so odd sizes carry a
	// pad byte.
	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := binary.LittleEndian.Uint32(data[offset+4 : offset+8])
		body := offset + 8

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 || body+16 > len(data) {
				return 0, fmt.Errorf("truncated fmt chunk")
			}
			byteRate = binary.LittleEndian.Uint32(data[body+8 : body+12])
			foundFmt = true
		case "data":
			dataSize = chunkSize
			foundData = true
		}

		if foundFmt && foundData {
			break
		}
		offset = body + int(chunkSize)
		if chunkSize%2 == 1 {
			offset++
		}
	}

	if !foundFmt || !foundData {
		return 0, fmt.Errorf("missing fmt or data chunk")
	}
	if byteRate == 0 {
		return 0, fmt.Errorf("fmt chunk has zero byte rate")
	}

	return int(uint64(dataSize) * 1000 / uint64(byteRate)), nil
}
