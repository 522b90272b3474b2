package encoder

import (
	"encoding/binary"
	"testing"
)

func TestSupported(t *testing.T) {
	tests := []struct {
		mime string
		want bool
	}{
		{"audio/wav", true},
		{"audio/flac", true},
		{"audio/wav;codecs=1", true},
		{"audio/webm;codecs=opus", false},
		{"audio/mp4", false},
		{"audio/mpeg", false},
	}
	for _, tt := range tests {
		if got := Supported(tt.mime); got != tt.want {
			t.Errorf("Supported(%q) = %v, want %v", tt.mime, got, tt.want)
		}
	}
}

func TestNewRejectsUnknownType(t *testing.T) {
	if _, err := New("audio/ogg"); err == nil {
		t.Error("expected error for unsupported type")
	}
}

func TestWAVHeaderPatchedOnClose(t *testing.T) {
	enc := NewWAV()
	block := make([]int16, 1000)
	for i := range block {
		block[i] = int16(i)
	}
	if err := enc.EncodeBlock(block); err != nil {
		t.Fatalf("EncodeBlock: %v", err)
	}
	if err := enc.EncodeBlock(block); err != nil {
		t.Fatalf("EncodeBlock: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	b := enc.Bytes()
	if string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		t.Fatal("missing RIFF/WAVE markers")
	}
	dataSize := binary.LittleEndian.Uint32(b[40:])
	if want := uint32(2000 * 2); dataSize != want {
		t.Errorf("data size = %d, want %d", dataSize, want)
	}
	riffSize := binary.LittleEndian.Uint32(b[4:])
	if want := 36 + dataSize; riffSize != want {
		t.Errorf("riff size = %d, want %d", riffSize, want)
	}
	if rate := binary.LittleEndian.Uint32(b[24:]); rate != SampleRate {
		t.Errorf("sample rate = %d, want %d", rate, SampleRate)
	}
	if enc.TotalFrames() != 2000 {
		t.Errorf("TotalFrames = %d, want 2000", enc.TotalFrames())
	}
}

func TestWAVSampleBytesLittleEndian(t *testing.T) {
	enc := NewWAV()
	enc.EncodeBlock([]int16{0x1234, -1})
	enc.Close()

	b := enc.Bytes()
	payload := b[44:]
	if len(payload) != 4 {
		t.Fatalf("payload length = %d", len(payload))
	}
	if payload[0] != 0x34 || payload[1] != 0x12 {
		t.Errorf("first sample bytes = % x", payload[0:2])
	}
	if payload[2] != 0xFF || payload[3] != 0xFF {
		t.Errorf("second sample bytes = % x", payload[2:4])
	}
}

func TestWAVCloseIdempotent(t *testing.T) {
	enc := NewWAV()
	enc.EncodeBlock([]int16{1, 2, 3})
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	size := binary.LittleEndian.Uint32(enc.Bytes()[40:])
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	if got := binary.LittleEndian.Uint32(enc.Bytes()[40:]); got != size {
		t.Errorf("size changed on second close: %d -> %d", size, got)
	}
}

func TestFlacEncoderDeclaresMIME(t *testing.T) {
	enc, err := NewFlac()
	if err != nil {
		t.Fatalf("NewFlac: %v", err)
	}
	if enc.MIME() != "audio/flac" {
		t.Errorf("MIME = %q", enc.MIME())
	}
	if err := enc.EncodeBlock(make([]int16, BlockSize)); err != nil {
		t.Fatalf("EncodeBlock: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	b := enc.Bytes()
	if len(b) < 4 || string(b[0:4]) != "fLaC" {
		t.Error("output missing fLaC marker")
	}
}
