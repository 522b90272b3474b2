package encoder

import "fmt"

const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)

// DefaultMIME is the declared type used when no entry of the encoding
// preference list is supported and capture falls back to the platform
// default.
const DefaultMIME = "audio/wav"

type Encoder interface {
	EncodeBlock(block []int16) error
	Close() error
	Bytes() []byte
	TotalFrames() uint64
	MIME() string
}

var factories = map[string]func() (Encoder, error){
	"audio/wav":  func() (Encoder, error) { return NewWAV(), nil },
	"audio/flac": func() (Encoder, error) { return NewFlac() },
}

// Supported reports whether a local encoder can produce the given media
// type. It is the probe behind the capture engine's encoding
// negotiation.
func Supported(mime string) bool {
	_, ok := factories[baseMIME(mime)]
	return ok
}

func New(mime string) (Encoder, error) {
	f, ok := factories[baseMIME(mime)]
	if !ok {
		return nil, fmt.Errorf("no encoder for %q", mime)
	}
	return f()
}

func baseMIME(mime string) string {
	for i := 0; i < len(mime); i++ {
		if mime[i] == ';' {
			return mime[:i]
		}
	}
	return mime
}
