package media

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

// wavFile builds a complete 16-bit mono RIFF/WAVE payload.
func wavFile(t *testing.T, sampleRate int, samples []int16) []byte {
	t.Helper()
	dataSize := len(samples) * 2
	b := make([]byte, 44+dataSize)
	copy(b[0:4], "RIFF")
	binary.LittleEndian.PutUint32(b[4:], uint32(36+dataSize))
	copy(b[8:12], "WAVE")
	copy(b[12:16], "fmt ")
	binary.LittleEndian.PutUint32(b[16:], 16)
	binary.LittleEndian.PutUint16(b[20:], 1)
	binary.LittleEndian.PutUint16(b[22:], 1)
	binary.LittleEndian.PutUint32(b[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(b[28:], uint32(sampleRate*2))
	binary.LittleEndian.PutUint16(b[32:], 2)
	binary.LittleEndian.PutUint16(b[34:], 16)
	copy(b[36:40], "data")
	binary.LittleEndian.PutUint32(b[40:], uint32(dataSize))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(b[44+i*2:], uint16(s))
	}
	return b
}

func TestHeaderDurationWAV(t *testing.T) {
	data := wavFile(t, 16000, make([]int16, 16000))

	dur, err := HeaderDuration(data, "audio/wav")
	if err != nil {
		t.Fatalf("HeaderDuration: %v", err)
	}
	if dur != 1.0 {
		t.Errorf("duration = %v, want 1.0", dur)
	}
}

func TestHeaderDurationStreamedWAV(t *testing.T) {
	// Streamed writers leave the size unknown; the header alone cannot
	// answer, which is what the playback correction procedure handles.
	data := wavFile(t, 16000, make([]int16, 100))
	binary.LittleEndian.PutUint32(data[40:], 0xFFFFFFFF)

	dur, err := HeaderDuration(data, "audio/wav")
	if err != nil {
		t.Fatalf("HeaderDuration: %v", err)
	}
	if !math.IsInf(dur, 1) {
		t.Errorf("duration = %v, want +Inf", dur)
	}
}

func TestHeaderDurationRejectsGarbage(t *testing.T) {
	if _, err := HeaderDuration([]byte("not a riff file at all"), "audio/wav"); !errors.Is(err, ErrUnplayable) {
		t.Errorf("err = %v, want ErrUnplayable", err)
	}
}

func TestHeaderDurationUnsupportedMIME(t *testing.T) {
	if _, err := HeaderDuration([]byte{1, 2, 3}, "audio/mpeg"); !errors.Is(err, ErrUnplayable) {
		t.Errorf("err = %v, want ErrUnplayable", err)
	}
}

func TestDecodeWAVRoundTrip(t *testing.T) {
	samples := []int16{0, 100, -100, 32767, -32768, 7}
	data := wavFile(t, 8000, samples)

	pcm, err := DecodePCM(data, "audio/wav;codecs=1")
	if err != nil {
		t.Fatalf("DecodePCM: %v", err)
	}
	if pcm.SampleRate != 8000 || pcm.Channels != 1 {
		t.Errorf("format = %d Hz %d ch", pcm.SampleRate, pcm.Channels)
	}
	if len(pcm.Samples) != len(samples) {
		t.Fatalf("sample count = %d, want %d", len(pcm.Samples), len(samples))
	}
	for i, s := range samples {
		if pcm.Samples[i] != s {
			t.Errorf("sample %d = %d, want %d", i, pcm.Samples[i], s)
		}
	}
}

func TestDecodeWAVStreamedUsesWholeBuffer(t *testing.T) {
	data := wavFile(t, 8000, make([]int16, 50))
	binary.LittleEndian.PutUint32(data[40:], 0xFFFFFFFF)

	pcm, err := DecodePCM(data, "audio/wav")
	if err != nil {
		t.Fatalf("DecodePCM: %v", err)
	}
	if len(pcm.Samples) != 50 {
		t.Errorf("sample count = %d, want 50", len(pcm.Samples))
	}
}

func TestDurationSeconds(t *testing.T) {
	pcm := &PCM{Samples: make([]int16, 32000), SampleRate: 16000, Channels: 2}
	if got := pcm.DurationSeconds(); got != 1.0 {
		t.Errorf("DurationSeconds = %v, want 1.0", got)
	}
	empty := &PCM{}
	if got := empty.DurationSeconds(); got != 0 {
		t.Errorf("DurationSeconds on empty = %v, want 0", got)
	}
}
