package gate

import "os"

// HostEnvironment is the real process environment. The secure-context
// requirement maps to having a local session: recording over a bare
// remote shell has no audio path and is refused the same way an
// insecure origin would be.
type HostEnvironment struct {
	RemoteSession bool
	HasRecorder   bool
}

func DetectEnvironment(hasRecorder bool) HostEnvironment {
	remote := os.Getenv("SSH_CONNECTION") != "" &&
		os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == ""
	return HostEnvironment{RemoteSession: remote, HasRecorder: hasRecorder}
}

func (e HostEnvironment) SecureContext() bool { return !e.RemoteSession }

func (e HostEnvironment) RecorderAvailable() bool { return e.HasRecorder }
