//go:build gui

package gui

import (
	"fmt"
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"sage/ai"
	"sage/beep"
	"sage/dispatch"
)

// Controls are the callbacks behind the window's buttons, wired by main.
// All of them are invoked on the Fyne event thread and must not block.
type Controls struct {
	StartRecording func()
	StopRecording  func()
	Clear          func()
	ToggleFreeze   func()
	CopyAnswer     func(text string)
}

type App struct {
	fyneApp fyne.App
	window  fyne.Window
	onReady func()

	controls Controls

	status     *canvas.Text
	transcript *widget.Label
	answer     *widget.RichText
	preview    *canvas.Image
	startBtn   *widget.Button
	stopBtn    *widget.Button
	freezeBtn  *widget.Button

	mu         sync.Mutex
	lastAnswer string
}

func NewApp(controls Controls, onReady func()) *App {
	return &App{controls: controls, onReady: onReady}
}

// Run builds the window and enters the Fyne event loop. It must be called
// from the main goroutine and does not return until the app quits.
func Run(a *App) error {
	a.fyneApp = app.NewWithID("io.sage.gui")
	a.fyneApp.Settings().SetTheme(&darkTheme{})

	a.window = a.fyneApp.NewWindow("sage")

	a.status = canvas.NewText("ready", statusColor(dispatch.StatusInfo))
	a.status.TextSize = 14

	a.transcript = widget.NewLabel("")
	a.transcript.Wrapping = fyne.TextWrapWord

	a.answer = widget.NewRichTextFromMarkdown("")
	a.answer.Wrapping = fyne.TextWrapWord

	a.preview = canvas.NewImageFromFile("")
	a.preview.FillMode = canvas.ImageFillContain
	a.preview.SetMinSize(fyne.NewSize(240, 180))
	a.preview.Hide()

	a.startBtn = widget.NewButton("Start Recording", func() {
		a.controls.StartRecording()
	})
	a.stopBtn = widget.NewButton("Stop Recording", func() {
		a.controls.StopRecording()
	})
	a.stopBtn.Disable()
	a.freezeBtn = widget.NewButton("Freeze AI", func() {
		a.controls.ToggleFreeze()
	})
	clearBtn := widget.NewButton("Clear", func() {
		a.controls.Clear()
	})
	copyBtn := widget.NewButton("Copy Answer", func() {
		a.mu.Lock()
		text := a.lastAnswer
		a.mu.Unlock()
		if text != "" {
			a.controls.CopyAnswer(text)
		}
	})

	buttons := container.NewHBox(a.startBtn, a.stopBtn, clearBtn, a.freezeBtn, copyBtn)

	transcriptPane := container.NewBorder(
		widget.NewLabelWithStyle("Transcript", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		a.preview, nil, nil,
		container.NewVScroll(a.transcript),
	)
	answerPane := container.NewBorder(
		widget.NewLabelWithStyle("Answer", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		nil, nil, nil,
		container.NewVScroll(a.answer),
	)
	split := container.NewHSplit(transcriptPane, answerPane)
	split.Offset = 0.35

	a.window.SetContent(container.NewBorder(
		container.NewVBox(buttons, a.status), nil, nil, nil,
		split,
	))
	a.window.Resize(fyne.NewSize(1000, 640))
	a.window.Show()

	go a.onReady()

	a.fyneApp.Run()
	return nil
}

func (a *App) Quit() {
	if a.fyneApp != nil {
		a.fyneApp.Quit()
	}
}

// dispatch.Sink implementation. Every method marshals onto the Fyne thread.

func (a *App) TranscriptUpdate(text string) {
	fyne.Do(func() {
		a.transcript.SetText(text)
	})
}

func (a *App) TranscriptCleared() {
	fyne.Do(func() {
		a.transcript.SetText("")
	})
}

func (a *App) AnswerDelivered(q dispatch.Question, ans ai.Answer) {
	if ans.Relevant {
		beep.PlayAnswer()
	} else {
		beep.PlayError()
	}
	fyne.Do(func() {
		a.mu.Lock()
		a.lastAnswer = ans.Body
		a.mu.Unlock()

		a.answer.ParseMarkdown(answerMarkdown(q, ans))
		if ans.Relevant {
			a.setStatus(dispatch.StatusGood, "answer ready")
		} else {
			a.setStatus(dispatch.StatusError, "AI call failed")
		}
	})
}

func (a *App) ImageDetected(name, localPath string) {
	fyne.Do(func() {
		a.preview.File = localPath
		a.preview.Show()
		a.preview.Refresh()
		a.setStatus(dispatch.StatusNotice, "image: "+name)
	})
}

func (a *App) Status(level dispatch.StatusLevel, message string) {
	fyne.Do(func() {
		a.setStatus(level, message)
	})
}

func (a *App) RecordingState(active bool) {
	fyne.Do(func() {
		if active {
			a.startBtn.Disable()
			a.stopBtn.Enable()
			a.setStatus(dispatch.StatusError, "recording")
		} else {
			a.startBtn.Enable()
			a.stopBtn.Disable()
			a.setStatus(dispatch.StatusInfo, "recording stopped")
		}
	})
}

func (a *App) FrozenState(frozen bool) {
	fyne.Do(func() {
		if frozen {
			a.freezeBtn.SetText("Unfreeze AI")
		} else {
			a.freezeBtn.SetText("Freeze AI")
		}
	})
}

func (a *App) setStatus(level dispatch.StatusLevel, message string) {
	a.status.Text = message
	a.status.Color = statusColor(level)
	a.status.Refresh()
}

func answerMarkdown(q dispatch.Question, ans ai.Answer) string {
	source := "Spoken question"
	if q.Kind == dispatch.KindImage {
		source = "Screenshot " + q.ImageName
	}
	return fmt.Sprintf("##### %s\n\n%s", source, ans.Body)
}

func statusColor(level dispatch.StatusLevel) color.Color {
	switch level {
	case dispatch.StatusGood:
		return color.RGBA{80, 200, 120, 255}
	case dispatch.StatusNotice:
		return color.RGBA{100, 160, 255, 255}
	case dispatch.StatusWarn:
		return color.RGBA{240, 160, 60, 255}
	case dispatch.StatusError:
		return color.RGBA{230, 80, 80, 255}
	}
	return color.RGBA{200, 200, 200, 255}
}
