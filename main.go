package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"sage/ai"
	"sage/audio"
	"sage/beep"
	"sage/bucket"
	"sage/clipboard"
	"sage/config"
	"sage/dispatch"
	"sage/hotkey"
	"sage/log"
	"sage/transcriber"
)

var version = "dev"

var (
	cfg  *config.Config
	mode config.Mode
	disp *dispatch.Dispatcher
	sink dispatch.Sink

	activeTranscriber transcriber.Transcriber
	audioCtx          audio.Context
	captureDevice     audio.CaptureDevice

	rootCtx    context.Context
	rootCancel context.CancelFunc

	tuiProgram *tea.Program
	tuiMu      sync.Mutex

	guiMode bool
	guiApp  interface{ Quit() }
)

var (
	recordMu   sync.Mutex
	recordSess transcriber.Session
	recordDone chan struct{}
	frozen     bool
	frozenMu   sync.Mutex
)

var shutdownOnce sync.Once

func gracefulShutdown() {
	shutdownOnce.Do(func() {
		stopRecording()
		rootCancel()
		if disp != nil {
			log.SessionEnd(disp.AnswerCount())
		}
		log.Close()
		tuiMu.Lock()
		p := tuiProgram
		tuiMu.Unlock()
		if p != nil {
			p.Quit()
		}
		if guiApp != nil {
			guiApp.Quit()
		}
		os.Exit(0)
	})
}

// startRecording opens a streaming transcription session and feeds it from
// the capture callback. Safe to call when already recording.
func startRecording() {
	recordMu.Lock()
	defer recordMu.Unlock()
	if recordSess != nil || captureDevice == nil || disp == nil {
		return
	}

	sess, err := activeTranscriber.NewSession(rootCtx)
	if err != nil {
		log.Errorf("transcription session: %v", err)
		disp.Notify(dispatch.StatusError, fmt.Sprintf("transcription connect failed: %v", err))
		go beep.PlayError()
		return
	}

	// Flip the dispatcher before the first fragment can arrive.
	disp.SetRecording(true)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for frag := range sess.Updates() {
			disp.OnFragment(frag)
		}
	}()

	captureDevice.SetCallback(func(data []byte, frameCount uint32) {
		if len(data) == 0 {
			return
		}
		// The callback's buffer is reused by the backend.
		pcm := make([]byte, len(data))
		copy(pcm, data)
		sess.Feed(pcm)
	})

	if err := captureDevice.Start(); err != nil {
		captureDevice.ClearCallback()
		sess.Close()
		<-done
		disp.SetRecording(false)
		log.Errorf("capture start: %v", err)
		go beep.PlayError()
		return
	}

	recordSess = sess
	recordDone = done
	log.Info("recording_start: " + captureDevice.DeviceName())
	go beep.PlayStart()
}

func stopRecording() {
	recordMu.Lock()
	defer recordMu.Unlock()
	if recordSess == nil {
		return
	}

	captureDevice.Stop()
	captureDevice.ClearCallback()

	sess := recordSess
	done := recordDone
	recordSess = nil
	recordDone = nil

	// Flip the dispatcher first so fragments still in flight are dropped.
	disp.SetRecording(false)
	go func() {
		if err := sess.Close(); err != nil {
			log.Errorf("transcription close: %v", err)
			disp.Notify(dispatch.StatusError, fmt.Sprintf("transcription failed: %v", err))
			go beep.PlayError()
		}
		<-done
	}()

	log.Info("recording_stop")
	go beep.PlayEnd()
}

func toggleRecording() {
	recordMu.Lock()
	active := recordSess != nil
	recordMu.Unlock()
	if active {
		stopRecording()
	} else {
		startRecording()
	}
}

func toggleFreeze() {
	if disp == nil {
		return
	}
	frozenMu.Lock()
	frozen = !frozen
	now := frozen
	frozenMu.Unlock()
	disp.SetFrozen(now)
}

func clearTranscript() {
	if disp == nil {
		return
	}
	disp.Clear()
}

func copyAnswer(text string) {
	if err := clipboard.Copy(text); err != nil {
		log.Warnf("clipboard: %v", err)
	}
}

func run() {
	flag.Bool("gui", false, "run with the desktop window (handled before flag parsing)")
	modeFlag := flag.String("mode", "", "question sources: audio, image, or combined (default: from configured credentials)")
	tuiFlag := flag.Bool("tui", true, "run with terminal UI")
	nobeepFlag := flag.Bool("nobeep", false, "disable audio cues")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	intervalFlag := flag.Duration("interval", 0, "bucket poll interval (default: CHECK_INTERVAL env, 5s)")
	versionFlag := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("sage %s\n", version)
		os.Exit(0)
	}

	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}

	if *nobeepFlag {
		beep.Disable()
	}

	cfg, err = config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	mode, err = cfg.ResolveMode(*modeFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(mode); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log.SessionStart(string(mode))

	rootCtx, rootCancel = context.WithCancel(context.Background())

	answerer, err := ai.NewGemini(rootCtx, cfg.GeminiAPIKey)
	if err != nil {
		log.Errorf("gemini init: %v", err)
		fmt.Fprintf(os.Stderr, "Error initializing Gemini client: %v\n", err)
		os.Exit(1)
	}

	var lister bucket.Lister
	if mode != config.ModeAudio {
		gcs, err := bucket.NewGCS(rootCtx, cfg.BucketName)
		if err != nil {
			log.Errorf("bucket init: %v", err)
			fmt.Fprintf(os.Stderr, "Error connecting to bucket %s: %v\n", cfg.BucketName, err)
			os.Exit(1)
		}
		defer gcs.Close()
		lister = gcs
	}

	if mode != config.ModeImage {
		activeTranscriber = transcriber.NewAssemblyAI(cfg.AssemblyAIAPIKey)

		audioCtx, err = audio.NewContext()
		if err != nil {
			log.Errorf("audio context init error: %v", err)
			fmt.Fprintf(os.Stderr, "Error initializing audio context: %v\n", err)
			os.Exit(1)
		}
		defer audioCtx.Close()

		captureDevice, err = audioCtx.NewCapture(nil, audio.CaptureConfig{
			SampleRate: audio.SampleRate,
			Channels:   audio.Channels,
		})
		if err != nil {
			log.Errorf("capture device init error: %v", err)
			fmt.Fprintf(os.Stderr, "Error initializing capture device: %v\n", err)
			os.Exit(1)
		}
		defer captureDevice.Close()
	}

	interval := *intervalFlag
	if interval == 0 {
		interval = cfg.CheckInterval()
	}

	ctl := tuiControls{
		startRecording: startRecording,
		stopRecording:  stopRecording,
		clear:          clearTranscript,
		toggleFreeze:   toggleFreeze,
		copyAnswer:     copyAnswer,
	}

	if guiMode {
		// sink was set by initGUI before the Fyne loop started.
	} else if *tuiFlag {
		tuiMu.Lock()
		tuiProgram = NewTUIProgram(ctl)
		tuiMu.Unlock()
		sink = &tuiSink{p: tuiProgram}

		go func() {
			if _, err := tuiProgram.Run(); err != nil {
				log.Errorf("TUI error: %v", err)
				os.Exit(1)
			}
			gracefulShutdown()
		}()
	} else {
		sink = &logSink{}
	}

	disp = dispatch.New(dispatch.Options{
		Answerer:     answerer,
		Lister:       lister,
		Sink:         sink,
		PollInterval: interval,
		DownloadDir:  cfg.DownloadDir,
		StartTime:    time.Now(),
	})
	disp.Start(rootCtx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		gracefulShutdown()
	}()

	go beep.Init()

	if mode != config.ModeImage {
		hk := hotkey.New()
		if err := hk.Register(); err != nil {
			log.Warnf("hotkey register: %v", err)
		} else {
			defer hk.Unregister()
			go func() {
				for range hk.Presses() {
					log.Info("hotkey_toggle")
					toggleRecording()
				}
			}()
		}
	}

	<-rootCtx.Done()
}
