package main

import (
	"sage/ai"
	"sage/dispatch"
	"sage/log"
)

// logSink is the headless display: answers and state changes go to the
// diagnostics log only. Used with -tui=false.
type logSink struct{}

func (logSink) TranscriptUpdate(text string) {}

func (logSink) TranscriptCleared() {}

func (logSink) AnswerDelivered(q dispatch.Question, a ai.Answer) {
	log.Infof("answer (%s): %s", q.Kind, a.Body)
}

func (logSink) ImageDetected(name, localPath string) {
	log.Infof("image saved: %s -> %s", name, localPath)
}

func (logSink) Status(level dispatch.StatusLevel, message string) {
	if level == dispatch.StatusWarn || level == dispatch.StatusError {
		log.Warn(message)
		return
	}
	log.Info(message)
}

func (logSink) RecordingState(active bool) {
	if active {
		log.Info("recording active")
	} else {
		log.Info("recording inactive")
	}
}

func (logSink) FrozenState(frozen bool) {
	if frozen {
		log.Info("AI frozen")
	} else {
		log.Info("AI unfrozen")
	}
}
