// Package beep plays short audible cues for recording transitions, so
// a hotkey-triggered session is confirmed without looking at the
// screen.
package beep

var disabled bool

// Disable silences all cues for the process.
func Disable() { disabled = true }

type Cue int

const (
	// CueRecordStart: high pitch, short.
	CueRecordStart Cue = iota
	// CueRecordStop: medium pitch, slightly longer.
	CueRecordStop
	// CueError: low pitch double-beep.
	CueError
)

const (
	sampleRate = 44100

	startFreq   = 1200
	startVolume = 0.5
	startDecay  = 60

	stopFreq   = 900
	stopVolume = 0.5
	stopDecay  = 40

	errorFreq   = 350
	errorVolume = 0.6
	errorDecay  = 30
)
