// Package doctor runs interactive diagnostics for the pieces vocatext
// depends on: the recording environment, the microphone, the
// transcription service, and the clipboard.
package doctor

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"vocatext/audio"
	"vocatext/clipboard"
	"vocatext/encoder"
	"vocatext/gate"
	"vocatext/hotkey"
	"vocatext/i18n"
	"vocatext/media"
	"vocatext/notify"
	"vocatext/transcribe"
)

// Run executes interactive diagnostic checks and returns an exit code (0=all pass, 1=any fail).
func Run(serviceURL string) int {
	resetTerminal()
	setupInterruptHandler()

	fmt.Println("vocatext doctor - interactive system diagnostics")
	fmt.Println("================================================")

	allPass := true

	if !checkEnvironment() {
		allPass = false
	}
	if allPass && !checkHotkey() {
		allPass = false
	}
	if allPass && !checkMicAndService(serviceURL) {
		allPass = false
	}
	if allPass && !checkClipboard() {
		allPass = false
	}

	fmt.Println()
	if allPass {
		fmt.Println("All checks passed!")
	} else {
		fmt.Println("Some checks failed. See details above.")
	}

	if allPass {
		return 0
	}
	return 1
}

func checkEnvironment() bool {
	fmt.Println()
	fmt.Println("[1/4] Recording environment")

	hasRecorder := false
	if ctx, err := audio.NewContext(); err == nil {
		hasRecorder = true
		ctx.Close()
	}
	env := gate.DetectEnvironment(hasRecorder)
	g := gate.New(env, nil, nil, nil, i18n.Default())
	ok, issues := g.CheckEnvironmentSupport()
	if !ok {
		for _, issue := range issues {
			fmt.Printf("  FAIL: %s\n", issue)
		}
		return false
	}
	fmt.Println("  PASS: environment supports recording")
	return true
}

func checkHotkey() bool {
	fmt.Println()
	fmt.Println("[2/4] Hotkey detection")
	fmt.Println("Press Ctrl+Shift+Space...")

	hk := hotkey.New()
	if err := hk.Register(); err != nil {
		fmt.Printf("  FAIL: could not register hotkey: %v\n", err)
		return false
	}
	defer hk.Unregister()

	select {
	case <-hk.Keydown():
		fmt.Println("  PASS: hotkey detected")
		// Wait for keyup to avoid triggering next step
		select {
		case <-hk.Keyup():
		case <-time.After(5 * time.Second):
		}
		// Reset terminal after hotkey - it may leave terminal in raw mode
		resetTerminal()
		return true
	case <-time.After(10 * time.Second):
		fmt.Println("  FAIL: timeout waiting for hotkey")
		return false
	}
}

func checkMicAndService(serviceURL string) bool {
	fmt.Println()
	fmt.Println("[3/4] Microphone and transcription service")

	reader := bufio.NewReader(os.Stdin)

	ctx, err := audio.NewContext()
	if err != nil {
		fmt.Printf("  FAIL: cannot connect to audio: %v\n", err)
		return false
	}
	defer ctx.Close()

	devices, err := ctx.Devices()
	if err != nil {
		fmt.Printf("  FAIL: cannot list devices: %v\n", err)
		return false
	}
	if len(devices) == 0 {
		fmt.Println("  FAIL: no capture devices found")
		return false
	}

	var device *audio.DeviceInfo
	if len(devices) == 1 {
		device = &devices[0]
		fmt.Printf("Using device: %s\n", device.Name)
	} else {
		fmt.Println()
		fmt.Println("Select input device:")
		for i, d := range devices {
			fmt.Printf("  %d. %s\n", i+1, d.Name)
		}
		fmt.Printf("Choice [1-%d]: ", len(devices))

		devChoice, _ := reader.ReadString('\n')
		devChoice = strings.TrimSpace(devChoice)
		idx := 0
		if devChoice != "" {
			fmt.Sscanf(devChoice, "%d", &idx)
			idx--
		}
		if idx < 0 || idx >= len(devices) {
			fmt.Printf("  FAIL: invalid choice\n")
			return false
		}
		device = &devices[idx]
		fmt.Printf("Selected: %s\n", device.Name)
	}

	fmt.Println()
	fmt.Print("Press Enter and speak for 3 seconds...")
	reader.ReadString('\n')

	stop := make(chan struct{})
	go func() {
		time.Sleep(3 * time.Second)
		close(stop)
	}()

	pcm, err := recordAudio(ctx, device, stop)
	if err != nil {
		fmt.Printf("  FAIL: recording error: %v\n", err)
		return false
	}
	if len(pcm) == 0 {
		fmt.Println("  FAIL: no audio captured")
		return false
	}
	fmt.Printf("  Recorded %.1f KB, submitting to %s...\n", float64(len(pcm))/1024, serviceURL)

	src, err := encodeWAV(pcm)
	if err != nil {
		fmt.Printf("  FAIL: encoding error: %v\n", err)
		return false
	}

	pipeline := transcribe.NewPipeline(
		transcribe.NewTracedClient(),
		serviceURL,
		notify.Func(func(n notify.Notification) {
			fmt.Printf("  [%s] %s: %s\n", n.Severity, n.Title, n.Description)
		}),
		i18n.Default(),
		nil,
	)
	if err := pipeline.Submit(context.Background(), src); err != nil {
		fmt.Printf("  FAIL: submit error: %v\n", err)
		return false
	}
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		st := pipeline.Status()
		if st.State == transcribe.StateCompleted || st.State == transcribe.StateFailed {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	res := pipeline.Result()
	if res == nil {
		fmt.Println("  FAIL: no transcription result")
		return false
	}
	text := strings.TrimSpace(res.Corrected)
	if text == "" {
		text = "(no speech detected)"
	}
	fmt.Printf("\n  Transcribed text: %s\n\n", text)

	// Ask user to confirm - fresh reader to clear any buffered input
	confirmReader := bufio.NewReader(os.Stdin)
	fmt.Print("Is this correct? [y/n]: ")
	confirm, _ := confirmReader.ReadString('\n')
	confirm = strings.TrimSpace(strings.ToLower(confirm))

	if confirm == "y" || confirm == "yes" {
		fmt.Println("  PASS: transcription verified by user")
		return true
	}

	fmt.Println("  FAIL: transcription not confirmed")
	return false
}

func recordAudio(ctx audio.Context, device *audio.DeviceInfo, stop <-chan struct{}) ([]byte, error) {
	var pcmBuf []byte
	var bufMu sync.Mutex
	var stopped bool
	done := make(chan struct{})

	config := audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	}

	captureDevice, err := ctx.NewCapture(device, config)
	if err != nil {
		return nil, err
	}

	captureDevice.SetCallback(func(data []byte, frameCount uint32) {
		bufMu.Lock()
		if stopped {
			bufMu.Unlock()
			return
		}
		pcmBuf = append(pcmBuf, data...)
		bufMu.Unlock()
	})

	if err := captureDevice.Start(); err != nil {
		captureDevice.Close()
		return nil, err
	}

	fmt.Print("  Recording")
	ticker := time.NewTicker(500 * time.Millisecond)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	}()

	<-stop
	close(done)

	captureDevice.Stop()
	fmt.Println(" done")
	captureDevice.Close()

	bufMu.Lock()
	stopped = true
	raw := pcmBuf
	bufMu.Unlock()

	return raw, nil
}

func encodeWAV(pcm []byte) (*media.AudioSource, error) {
	enc := encoder.NewWAV()
	block := make([]int16, 0, encoder.BlockSize)
	for i := 0; i+1 < len(pcm); i += 2 {
		block = append(block, int16(uint16(pcm[i])|uint16(pcm[i+1])<<8))
		if len(block) == encoder.BlockSize {
			if err := enc.EncodeBlock(block); err != nil {
				return nil, err
			}
			block = block[:0]
		}
	}
	if len(block) > 0 {
		if err := enc.EncodeBlock(block); err != nil {
			return nil, err
		}
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return &media.AudioSource{
		Origin:   media.OriginCaptured,
		MIMEType: enc.MIME(),
		Data:     enc.Bytes(),
	}, nil
}

func checkClipboard() bool {
	fmt.Println()
	fmt.Println("[4/4] Clipboard")

	testStr := "vocatext-doctor-test"
	if err := clipboard.Copy(testStr); err != nil {
		fmt.Printf("  FAIL: clipboard copy failed: %v\n", err)
		return false
	}
	got, err := clipboard.Read()
	if err != nil {
		fmt.Printf("  FAIL: clipboard read failed: %v\n", err)
		return false
	}
	if got != testStr {
		fmt.Printf("  FAIL: clipboard round-trip (got %q, want %q)\n", got, testStr)
		return false
	}
	fmt.Println("  PASS: clipboard round-trip verified")
	return true
}
