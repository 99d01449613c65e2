// Package beep plays short synthesized cues so the app is usable without
// looking at the window: recording start/stop, answer ready, and errors.
package beep

import (
	"math"
	"sync"
)

var disabled bool

func Disable() { disabled = true }

const (
	sampleRate = 44100

	// Recording start: high pitch, short
	startFreq   = 1150
	startVolume = 0.5
	startDecay  = 50

	// Recording stop: medium pitch, slightly longer
	endFreq   = 880
	endVolume = 0.5
	endDecay  = 40

	// Answer ready: bright double-tick
	answerFreq   = 1320
	answerVolume = 0.4
	answerDecay  = 45

	// Error: low pitch double-beep
	errorFreq   = 350
	errorVolume = 0.6
	errorDecay  = 30
)

var (
	soundOnce     sync.Once
	startSamples  []int16
	endSamples    []int16
	answerSamples []int16
	errorSamples  []int16
)

func initSound() {
	startSamples = tick(startFreq, 0.08, startVolume, startDecay)
	endSamples = tick(endFreq, 0.10, endVolume, endDecay)
	answerSamples = doubleBeep(answerFreq, 0.05, 0.04, answerVolume, answerDecay)
	errorSamples = doubleBeep(errorFreq, 0.08, 0.05, errorVolume, errorDecay)
	initPlayback()
}

// tick synthesizes a mono sine burst with an exponential decay envelope.
func tick(freq, duration, volume, decay float64) []int16 {
	n := int(sampleRate * duration)
	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		t := float64(i) / sampleRate
		envelope := math.Exp(-t * decay)
		samples[i] = int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
	}
	return samples
}

func doubleBeep(freq, beepDur, gapDur, volume, decay float64) []int16 {
	beep := tick(freq, beepDur, volume, decay)
	gap := make([]int16, int(sampleRate*gapDur))
	result := make([]int16, 0, len(beep)*2+len(gap))
	result = append(result, beep...)
	result = append(result, gap...)
	result = append(result, beep...)
	return result
}

func Init() {
	soundOnce.Do(initSound)
}

func PlayStart()  { playCue(&startSamples) }
func PlayEnd()    { playCue(&endSamples) }
func PlayAnswer() { playCue(&answerSamples) }
func PlayError()  { playCue(&errorSamples) }

func playCue(samples *[]int16) {
	if disabled {
		return
	}
	soundOnce.Do(initSound)
	go play(*samples)
}
