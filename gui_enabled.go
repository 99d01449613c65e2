//go:build gui

package main

import (
	"runtime"

	"sage/gui"
)

func initGUI() {
	guiMode = true

	// Fyne/GLFW must own the main thread.
	runtime.LockOSThread()

	app := gui.NewApp(gui.Controls{
		StartRecording: startRecording,
		StopRecording:  stopRecording,
		Clear:          clearTranscript,
		ToggleFreeze:   toggleFreeze,
		CopyAnswer:     copyAnswer,
	}, func() {
		run()
	})
	guiApp = app
	sink = app
	if err := gui.Run(app); err != nil {
		panic(err)
	}
}
