//go:build linux

package playback

import (
	"fmt"

	"github.com/jfreymuth/pulse"

	"vocatext/media"
)

// pulsePlayer streams decoded PCM to the PulseAudio server.
type pulsePlayer struct{}

func newPlayer() (player, error) {
	return &pulsePlayer{}, nil
}

func (p *pulsePlayer) start(pcm *media.PCM, startFrame int, volume func() float64, progress func(frame int), done func(finished bool)) (func(), error) {
	client, err := pulse.NewClient()
	if err != nil {
		return nil, fmt.Errorf("pulse: %w", err)
	}

	pos := startFrame * pcm.Channels
	finished := false
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if pos >= len(pcm.Samples) {
			finished = true
			return 0, pulse.EndOfData
		}
		n := copy(buf, pcm.Samples[pos:])
		v := volume()
		if v != 1.0 {
			for i := 0; i < n; i++ {
				buf[i] = int16(float64(buf[i]) * v)
			}
		}
		pos += n
		progress(pos / pcm.Channels)
		return n, nil
	})

	opts := []pulse.PlaybackOption{
		pulse.PlaybackSampleRate(pcm.SampleRate),
		pulse.PlaybackLatency(0.1),
	}
	if pcm.Channels == 2 {
		opts = append(opts, pulse.PlaybackStereo)
	} else {
		opts = append(opts, pulse.PlaybackMono)
	}

	stream, err := client.NewPlayback(reader, opts...)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("pulse playback: %w", err)
	}

	stopCh := make(chan struct{})
	go func() {
		stream.Start()
		stream.Drain()
		select {
		case <-stopCh:
			// Stopped by the caller; done already signaled below.
		default:
			stream.Stop()
			stream.Close()
			client.Close()
			done(finished)
		}
	}()

	stop := func() {
		select {
		case <-stopCh:
			return
		default:
			close(stopCh)
		}
		stream.Stop()
		stream.Close()
		client.Close()
		done(false)
	}
	return stop, nil
}
