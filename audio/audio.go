package audio

import (
	"errors"
	"strings"
)

var (
	// ErrNoDevice is returned when the platform reports no usable
	// capture device. The capture engine maps it to DeviceNotFound.
	ErrNoDevice = errors.New("no capture device available")

	// ErrConstraintsRejected is returned when the platform cannot
	// satisfy the preferred constraint set. Callers retry with
	// DefaultConfig.
	ErrConstraintsRejected = errors.New("capture constraints rejected")
)

var btKeywords = []string{
	"airpods", "beats", "bose", "wh-1000", "wf-1000",
	"sony wh-", "sony wf-",
	"jabra", "galaxy buds", "pixel buds", "powerbeats",
	"jbl ", "sennheiser momentum", "plantronics",
	"tozo", "anker soundcore", "skullcandy",
	"bluetooth", " bt ", " bt)", " bt]",
}

// IsBluetooth guesses from the device name whether a microphone is a
// Bluetooth headset, which usually means a low-quality capture profile.
func IsBluetooth(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range btKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

type DataCallback func(data []byte, frameCount uint32)

// CaptureConfig is the preferred constraint set for a capture stream.
// Backends honor what they can; callers fall back to DefaultConfig
// when the preferred set is rejected by the platform.
type CaptureConfig struct {
	SampleRate       uint32
	MinSampleRate    uint32
	Channels         uint32
	EchoCancellation bool
	NoiseSuppression bool
	AutoGain         bool
}

// DefaultConfig is the minimal unconstrained request.
func DefaultConfig() CaptureConfig {
	return CaptureConfig{SampleRate: 16000, Channels: 1}
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	Close()
}

type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
}
