package encoder

import (
	"bytes"
	"encoding/binary"
)

const wavHeaderSize = 44

// WAVEncoder accumulates PCM and emits a RIFF/WAVE file with correct
// size fields on Close.
type WAVEncoder struct {
	buf         bytes.Buffer
	totalFrames uint64
	closed      bool
}

func NewWAV() *WAVEncoder {
	e := &WAVEncoder{}
	e.buf.Write(make([]byte, wavHeaderSize)) // patched on Close
	return e
}

func (e *WAVEncoder) EncodeBlock(block []int16) error {
	data := make([]byte, len(block)*2)
	for i, s := range block {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
	}
	e.buf.Write(data)
	e.totalFrames += uint64(len(block))
	return nil
}

func (e *WAVEncoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true

	b := e.buf.Bytes()
	dataSize := uint32(len(b) - wavHeaderSize)
	byteRate := uint32(SampleRate * Channels * BitsPerSample / 8)

	copy(b[0:4], "RIFF")
	binary.LittleEndian.PutUint32(b[4:], 36+dataSize)
	copy(b[8:12], "WAVE")
	copy(b[12:16], "fmt ")
	binary.LittleEndian.PutUint32(b[16:], 16)
	binary.LittleEndian.PutUint16(b[20:], 1) // PCM
	binary.LittleEndian.PutUint16(b[22:], Channels)
	binary.LittleEndian.PutUint32(b[24:], SampleRate)
	binary.LittleEndian.PutUint32(b[28:], byteRate)
	binary.LittleEndian.PutUint16(b[32:], Channels*BitsPerSample/8)
	binary.LittleEndian.PutUint16(b[34:], BitsPerSample)
	copy(b[36:40], "data")
	binary.LittleEndian.PutUint32(b[40:], dataSize)
	return nil
}

func (e *WAVEncoder) Bytes() []byte { return e.buf.Bytes() }

func (e *WAVEncoder) TotalFrames() uint64 { return e.totalFrames }

func (e *WAVEncoder) MIME() string { return "audio/wav" }
