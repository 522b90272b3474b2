package media

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/mewkiz/flac"
)

var ErrUnplayable = errors.New("unsupported payload for local playback")

// PCM is decoded audio ready for a playback stream.
type PCM struct {
	Samples    []int16 // interleaved
	SampleRate int
	Channels   int
}

func (p *PCM) DurationSeconds() float64 {
	if p.SampleRate == 0 || p.Channels == 0 {
		return 0
	}
	return float64(len(p.Samples)/p.Channels) / float64(p.SampleRate)
}

type wavInfo struct {
	sampleRate    int
	channels      int
	bitsPerSample int
	dataOffset    int
	dataSize      uint32 // as declared in the header, may be 0 or 0xFFFFFFFF for streamed files
}

func parseWAV(data []byte) (*wavInfo, error) {
	if len(data) < 12 || !bytes.Equal(data[0:4], []byte("RIFF")) || !bytes.Equal(data[8:12], []byte("WAVE")) {
		return nil, fmt.Errorf("%w: missing RIFF/WAVE header", ErrUnplayable)
	}
	info := &wavInfo{}
	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := binary.LittleEndian.Uint32(data[pos+4 : pos+8])
		body := pos + 8
		switch id {
		case "fmt ":
			if body+16 > len(data) {
				return nil, fmt.Errorf("%w: truncated fmt chunk", ErrUnplayable)
			}
			info.channels = int(binary.LittleEndian.Uint16(data[body+2:]))
			info.sampleRate = int(binary.LittleEndian.Uint32(data[body+4:]))
			info.bitsPerSample = int(binary.LittleEndian.Uint16(data[body+14:]))
		case "data":
			// Streamed writers leave the size fields unknown; callers
			// treat the rest of the buffer as audio in that case.
			info.dataOffset = body
			info.dataSize = size
			return info, nil
		}
		pos = body + int(size)
		if size%2 == 1 {
			pos++ // chunks are word aligned
		}
	}
	if info.dataOffset == 0 {
		return nil, fmt.Errorf("%w: no data chunk", ErrUnplayable)
	}
	return info, nil
}

// HeaderDuration reads the duration declared by the container metadata
// alone. It returns +Inf when the container does not declare one, which
// is the defect the playback duration-correction procedure exists for.
func HeaderDuration(data []byte, mime string) (float64, error) {
	switch BaseMIME(mime) {
	case "audio/wav":
		info, err := parseWAV(data)
		if err != nil {
			return 0, err
		}
		if info.sampleRate == 0 || info.channels == 0 || info.bitsPerSample == 0 {
			return 0, fmt.Errorf("%w: incomplete fmt chunk", ErrUnplayable)
		}
		size := int(info.dataSize)
		if info.dataSize == 0 || info.dataSize == 0xFFFFFFFF || info.dataOffset+size > len(data) {
			return math.Inf(1), nil
		}
		bytesPerFrame := info.channels * info.bitsPerSample / 8
		return float64(size/bytesPerFrame) / float64(info.sampleRate), nil
	case "audio/flac":
		stream, err := flac.Parse(bytes.NewReader(data))
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrUnplayable, err)
		}
		defer stream.Close()
		if stream.Info.NSamples == 0 {
			return math.Inf(1), nil
		}
		return float64(stream.Info.NSamples) / float64(stream.Info.SampleRate), nil
	default:
		return 0, ErrUnplayable
	}
}

// DecodePCM fully indexes the payload and returns its samples. This is
// the expensive path the duration correction falls back to when the
// header duration is non-finite.
func DecodePCM(data []byte, mime string) (*PCM, error) {
	switch BaseMIME(mime) {
	case "audio/wav":
		return decodeWAV(data)
	case "audio/flac":
		return decodeFLAC(data)
	default:
		return nil, ErrUnplayable
	}
}

func decodeWAV(data []byte) (*PCM, error) {
	info, err := parseWAV(data)
	if err != nil {
		return nil, err
	}
	if info.bitsPerSample != 16 {
		return nil, fmt.Errorf("%w: %d-bit wav", ErrUnplayable, info.bitsPerSample)
	}
	end := len(data)
	if size := int(info.dataSize); info.dataSize != 0 && info.dataSize != 0xFFFFFFFF && info.dataOffset+size <= len(data) {
		end = info.dataOffset + size
	}
	raw := data[info.dataOffset:end]
	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	return &PCM{Samples: samples, SampleRate: info.sampleRate, Channels: info.channels}, nil
}

func decodeFLAC(data []byte) (*PCM, error) {
	stream, err := flac.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnplayable, err)
	}
	defer stream.Close()

	pcm := &PCM{
		SampleRate: int(stream.Info.SampleRate),
		Channels:   int(stream.Info.NChannels),
	}
	for {
		f, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnplayable, err)
		}
		n := f.Subframes[0].NSamples
		for i := 0; i < n; i++ {
			for _, sub := range f.Subframes {
				pcm.Samples = append(pcm.Samples, int16(sub.Samples[i]))
			}
		}
	}
	return pcm, nil
}
