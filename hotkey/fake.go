package hotkey

type FakeHotkey struct {
	presses chan struct{}
}

func NewFake() *FakeHotkey {
	return &FakeHotkey{presses: make(chan struct{}, 1)}
}

func (f *FakeHotkey) Register() error          { return nil }
func (f *FakeHotkey) Unregister()              {}
func (f *FakeHotkey) Presses() <-chan struct{} { return f.presses }

func (f *FakeHotkey) SimPress() { f.presses <- struct{}{} }
