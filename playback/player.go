package playback

import "vocatext/media"

// player is the platform audio output behind BufferHandle. start feeds
// samples from startFrame until drained or stopped; progress and done
// are called from the playback goroutine.
type player interface {
	start(pcm *media.PCM, startFrame int, volume func() float64, progress func(frame int), done func(finished bool)) (func(), error)
}
