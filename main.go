package main

import (
	"flag"
	"fmt"
	"os"
	"sync"

	"golang.design/x/mainthread"

	"vocatext/audio"
	"vocatext/beep"
	"vocatext/doctor"
	"vocatext/hotkey"
	"vocatext/log"
	"vocatext/shutdown"
)

var version = "dev"

const defaultServiceURL = "http://localhost:5000/transcribe"

var shutdownOnce sync.Once

func gracefulShutdown(program interface{ Quit() }) {
	shutdownOnce.Do(func() {
		log.Close()
		if program != nil {
			program.Quit()
		}
	})
}

func resolveServiceURL(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("VOCATEXT_SERVICE_URL"); env != "" {
		return env
	}
	return defaultServiceURL
}

func deviceLineText(dev *audio.DeviceInfo) string {
	name := "system default"
	suffix := ""
	if dev != nil {
		name = dev.Name
		if audio.IsBluetooth(dev.Name) {
			suffix = " (BT!)"
		}
	}
	return "mic: " + name + suffix
}

// The hotkey library requires the process main thread on some
// platforms.
func main() {
	mainthread.Init(run)
}

func run() {
	serviceFlag := flag.String("service", "", "Transcription service URL (default: VOCATEXT_SERVICE_URL or "+defaultServiceURL+")")
	fileFlag := flag.String("file", "", "Load an audio file instead of recording")
	deviceFlag := flag.String("device", "", "Use named microphone device")
	setupFlag := flag.Bool("setup", false, "Select microphone device (otherwise uses system default)")
	langFlag := flag.String("lang", "en", "Language code noted in exported documents")
	exportFlag := flag.String("export", ".", "Directory for exported transcripts")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	quietFlag := flag.Bool("quiet", false, "Disable audible recording cues")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	doctorFlag := flag.Bool("doctor", false, "Run system diagnostics and exit")
	flag.Parse()

	serviceURL := resolveServiceURL(*serviceFlag)

	if *versionFlag {
		fmt.Printf("vocatext %s\n", version)
		os.Exit(0)
	}

	if *doctorFlag {
		os.Exit(doctor.Run(serviceURL))
	}

	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)
	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	} else {
		log.SessionStart(serviceURL)
	}
	defer log.Close()

	if *quietFlag {
		beep.Disable()
	}
	beep.Init()

	ctx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		fmt.Printf("Error initializing audio context: %v\n", err)
		os.Exit(1)
	}
	defer ctx.Close()

	var selectedDevice *audio.DeviceInfo
	if *deviceFlag != "" {
		if devices, err := ctx.Devices(); err == nil {
			for i := range devices {
				if devices[i].Name == *deviceFlag {
					selectedDevice = &devices[i]
					break
				}
			}
		}
		if selectedDevice == nil {
			fmt.Printf("Warning: device %q not found, using default\n", *deviceFlag)
		}
	} else if *setupFlag {
		selectedDevice, err = audio.SelectDevice(ctx)
		if err != nil {
			log.Warnf("device selection failed: %v", err)
			fmt.Printf("Warning: device selection failed: %v\n", err)
			fmt.Println("Falling back to default device")
			selectedDevice = nil
		}
	}

	app := newApp(appConfig{
		audioCtx:   ctx,
		device:     selectedDevice,
		serviceURL: serviceURL,
		language:   *langFlag,
		exportDir:  *exportFlag,
	})

	program := NewTUIProgram(app, deviceLineText(selectedDevice), "service: "+serviceURL)
	app.AttachSink(tuiSink{program: program})
	app.CheckEnvironment()

	if *fileFlag != "" {
		app.LoadFile(*fileFlag)
	}

	hk := hotkey.New()
	if err := hk.Register(); err != nil {
		log.Warnf("hotkey registration failed: %v", err)
	} else {
		defer hk.Unregister()
		go func() {
			for range hk.Keydown() {
				app.ToggleRecording()
			}
		}()
		go func() {
			for range hk.Keyup() {
			}
		}()
	}

	sig := make(chan os.Signal, 1)
	shutdown.Notify(sig)
	go func() {
		<-sig
		gracefulShutdown(program)
	}()

	if _, err := program.Run(); err != nil {
		log.Errorf("TUI error: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	gracefulShutdown(nil)
}
