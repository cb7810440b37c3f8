package speech

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrUnsupportedFormat is returned for WAV audio the player cannot play
// as-is.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

const wavPCM = 1

// wavFormat is the part of a WAV "fmt " chunk the player cares about.
type wavFormat struct {
	Encoding   uint16
	Channels   int
	SampleRate int
	BitDepth   int
}

// playable reports whether samples in this format can go straight to the
// audio context.
func (f wavFormat) playable() error {
	if f.Encoding != wavPCM || f.Channels != ChannelCount || f.SampleRate != SampleRate || f.BitDepth != BitDepth {
		return fmt.Errorf("%w: encoding=%d channels=%d rate=%d bits=%d (want PCM, %d ch, %d Hz, %d bit)",
			ErrUnsupportedFormat, f.Encoding, f.Channels, f.SampleRate, f.BitDepth, ChannelCount, SampleRate, BitDepth)
	}
	return nil
}

// decodeWAV walks the RIFF chunks and returns the format and the raw
// sample data.
func decodeWAV(wav []byte) (wavFormat, []byte, error) {
	var format wavFormat
	if len(wav) < 12 || string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return format, nil, errors.New("not a RIFF/WAVE stream")
	}

	haveFormat := false
	for pos := 12; pos+8 <= len(wav); {
		id := string(wav[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(wav[pos+4 : pos+8]))
		body := wav[pos+8 : min(pos+8+size, len(wav))]

		switch id {
		case "fmt ":
			if len(body) < 16 {
				return format, nil, errors.New("fmt chunk too short")
			}
			format = wavFormat{
				Encoding:   binary.LittleEndian.Uint16(body[0:2]),
				Channels:   int(binary.LittleEndian.Uint16(body[2:4])),
				SampleRate: int(binary.LittleEndian.Uint32(body[4:8])),
				BitDepth:   int(binary.LittleEndian.Uint16(body[14:16])),
			}
			haveFormat = true
		case "data":
			if !haveFormat {
				return format, nil, errors.New("data chunk before fmt chunk")
			}
			return format, body, nil
		}

		// Chunks are word-aligned.
		pos += 8 + size + size%2
	}
	return format, nil, errors.New("no data chunk")
}
