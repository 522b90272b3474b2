package media

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// MaxUploadBytes caps loaded files the same way the transcription
// service does on its side.
const MaxUploadBytes = 100 * 1024 * 1024

var (
	ErrNotAudio = errors.New("not an audio file")
	ErrTooLarge = fmt.Errorf("audio file exceeds %d MB", MaxUploadBytes/(1024*1024))
)

type Origin int

const (
	OriginUploaded Origin = iota
	OriginCaptured
)

func (o Origin) String() string {
	if o == OriginCaptured {
		return "captured"
	}
	return "uploaded"
}

// AudioSource is the single artifact eligible for playback and
// submission. At most one is active at a time; the playable handle
// opened from it belongs to the playback controller.
type AudioSource struct {
	Origin   Origin
	Name     string // original file name for uploaded sources
	MIMEType string
	Data     []byte
}

func (s *AudioSource) ByteSize() int {
	if s == nil {
		return 0
	}
	return len(s.Data)
}

func (s *AudioSource) Empty() bool { return s.ByteSize() == 0 }

// Filename returns the name to use for the upload part: the uploaded
// file's own name, or one synthesized from the negotiated media type.
func (s *AudioSource) Filename() string {
	if s.Origin == OriginUploaded && s.Name != "" {
		return s.Name
	}
	return "recording." + ExtensionForMIME(s.MIMEType)
}

// LoadFile reads an uploaded audio file into an AudioSource.
func LoadFile(path string) (*AudioSource, error) {
	mime, ok := MIMEForExtension(filepath.Ext(path))
	if !ok {
		return nil, ErrNotAudio
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > MaxUploadBytes {
		return nil, ErrTooLarge
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &AudioSource{
		Origin:   OriginUploaded,
		Name:     filepath.Base(path),
		MIMEType: mime,
		Data:     data,
	}, nil
}
