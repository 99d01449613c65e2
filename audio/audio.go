// Package audio abstracts microphone capture behind a small device
// interface with a pulse backend on linux and a malgo backend elsewhere.
package audio

const (
	// SampleRate and Channels match what the streaming transcription
	// service expects: 16 kHz mono PCM16.
	SampleRate uint32 = 16000
	Channels   uint32 = 1
)

type DataCallback func(data []byte, frameCount uint32)

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	Close()
}

type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
	DeviceName() string
}
