//go:build !linux

package playback

import "errors"

// Local monitoring output is linux-only for now; elsewhere a play
// attempt surfaces as a typed playback failure and transport reverts
// to stopped.
func newPlayer() (player, error) {
	return nil, errors.New("audio playback not supported on this platform")
}
