// Package dispatch multiplexes the two question sources (the live
// transcript stream and the bucket poller) into one serialized
// ask-the-model-then-show-the-answer pipeline.
//
// All run state lives on a single consumer goroutine fed by a typed event
// channel; the capture callback, the poll timer, and the AI worker never
// touch it directly. Answers funnel back through the same channel, so the
// sink sees every mutation in one ordered stream.
package dispatch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"sage/ai"
	"sage/bucket"
	"sage/log"
	"sage/transcriber"
)

type Kind string

const (
	KindAudio Kind = "audio"
	KindImage Kind = "image"
)

// Question is built immediately before an AI call and discarded after.
// Image payloads are downloaded by the AI worker, not held here.
type Question struct {
	Kind       Kind
	Transcript string
	ImageName  string
	ImageKey   string
}

type StatusLevel int

const (
	StatusInfo StatusLevel = iota
	StatusGood
	StatusNotice
	StatusWarn
	StatusError
)

// Sink is the display surface. The dispatcher calls it from its consumer
// goroutine only; implementations marshal onto their own UI thread.
type Sink interface {
	TranscriptUpdate(text string)
	TranscriptCleared()
	AnswerDelivered(q Question, a ai.Answer)
	ImageDetected(name, localPath string)
	Status(level StatusLevel, message string)
	RecordingState(active bool)
	FrozenState(frozen bool)
}

// RunState is the only shared mutable state in the process. SeenImageNames
// only grows; nothing here survives process exit.
type RunState struct {
	RecordingActive bool
	AIFrozen        bool
	SeenImageNames  map[string]struct{}
}

type Options struct {
	Answerer     ai.Answerer
	Lister       bucket.Lister // nil disables the image path
	Sink         Sink
	Boundary     BoundaryPolicy // nil selects DefaultBoundary
	PollInterval time.Duration  // zero selects 5s
	DownloadDir  string         // "" skips local image copies
	StartTime    time.Time      // zero selects time.Now(); older uploads are skipped
}

type event any

type fragmentEvent struct{ frag transcriber.Fragment }
type listingEvent struct{ objects []bucket.Object }
type flushEvent struct{ seq uint64 }
type recordingEvent struct{ on bool }
type frozenEvent struct{ on bool }
type clearEvent struct{}
type statusEvent struct {
	level StatusLevel
	msg   string
}
type imageEvent struct{ name, localPath string }
type answerEvent struct {
	q Question
	a ai.Answer
}

type Dispatcher struct {
	answerer    ai.Answerer
	lister      bucket.Lister
	sink        Sink
	boundary    BoundaryPolicy
	interval    time.Duration
	downloadDir string
	start       time.Time

	events    chan event
	questions chan Question
	pollNow   chan struct{}
	ctx       context.Context
	loopDone  chan struct{}

	// consumer-goroutine state
	state    RunState
	buf      string
	flushSeq uint64

	answered atomic.Int64
}

func New(opts Options) *Dispatcher {
	boundary := opts.Boundary
	if boundary == nil {
		boundary = DefaultBoundary
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	start := opts.StartTime
	if start.IsZero() {
		start = time.Now()
	}
	return &Dispatcher{
		answerer:    opts.Answerer,
		lister:      opts.Lister,
		sink:        opts.Sink,
		boundary:    boundary,
		interval:    interval,
		downloadDir: opts.DownloadDir,
		start:       start,
		events:      make(chan event, 64),
		questions:   make(chan Question, 64),
		pollNow:     make(chan struct{}, 1),
		loopDone:    make(chan struct{}),
		state:       RunState{SeenImageNames: make(map[string]struct{})},
	}
}

// Start launches the consumer loop, the AI worker, and (when a lister is
// configured) the bucket poller. It returns immediately; ctx cancellation
// stops everything.
func (d *Dispatcher) Start(ctx context.Context) {
	d.ctx = ctx
	go d.runLoop(ctx)
	go d.runWorker(ctx)
	if d.lister != nil {
		go d.runPoller(ctx)
	}
}

// Done is closed once the consumer loop has exited.
func (d *Dispatcher) Done() <-chan struct{} { return d.loopDone }

// AnswerCount reports how many answers reached the sink.
func (d *Dispatcher) AnswerCount() int { return int(d.answered.Load()) }

// OnFragment feeds one transcript fragment into the audio path.
func (d *Dispatcher) OnFragment(frag transcriber.Fragment) {
	d.send(fragmentEvent{frag: frag})
}

func (d *Dispatcher) SetRecording(on bool) { d.send(recordingEvent{on: on}) }
func (d *Dispatcher) SetFrozen(on bool)    { d.send(frozenEvent{on: on}) }
func (d *Dispatcher) Clear()               { d.send(clearEvent{}) }

// Notify posts a status line to the sink through the event loop.
func (d *Dispatcher) Notify(level StatusLevel, message string) {
	d.send(statusEvent{level: level, msg: message})
}

// PollNow triggers an immediate bucket poll in addition to the timer.
func (d *Dispatcher) PollNow() {
	select {
	case d.pollNow <- struct{}{}:
	default:
	}
}

func (d *Dispatcher) send(ev event) {
	select {
	case d.events <- ev:
	case <-d.ctx.Done():
	}
}

func (d *Dispatcher) runLoop(ctx context.Context) {
	defer close(d.loopDone)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-d.events:
			switch ev := ev.(type) {
			case fragmentEvent:
				d.onFragment(ev.frag)
			case listingEvent:
				d.onListing(ev.objects)
			case flushEvent:
				d.onFlush(ev.seq)
			case recordingEvent:
				d.onRecording(ev.on)
			case frozenEvent:
				d.onFrozen(ev.on)
			case clearEvent:
				d.buf = ""
				d.flushSeq++
				d.sink.TranscriptCleared()
			case statusEvent:
				d.sink.Status(ev.level, ev.msg)
			case imageEvent:
				d.sink.ImageDetected(ev.name, ev.localPath)
			case answerEvent:
				d.deliver(ev.q, ev.a)
			}
		}
	}
}

func (d *Dispatcher) onFragment(frag transcriber.Fragment) {
	// Fragments that straggle in after stop are dropped whole.
	if !d.state.RecordingActive {
		return
	}

	d.buf += frag.Text
	d.flushSeq++
	d.sink.TranscriptUpdate(d.buf)

	b := d.boundary(d.buf, frag)
	if b.Submit {
		d.submitBuffer()
		return
	}
	if b.FlushAfter > 0 {
		seq := d.flushSeq
		time.AfterFunc(b.FlushAfter, func() {
			d.send(flushEvent{seq: seq})
		})
	}
}

func (d *Dispatcher) onFlush(seq uint64) {
	// A newer fragment, stop, or clear invalidates the pending flush.
	if seq != d.flushSeq || !d.state.RecordingActive {
		return
	}
	d.submitBuffer()
}

func (d *Dispatcher) submitBuffer() {
	text := trimSpeech(d.buf)
	d.buf = ""
	d.flushSeq++
	if text == "" {
		return
	}
	if d.state.AIFrozen {
		// Shown in the transcript pane already; the question is suppressed.
		return
	}
	d.submit(Question{Kind: KindAudio, Transcript: text})
}

func (d *Dispatcher) onListing(objects []bucket.Object) {
	for _, obj := range objects {
		if !bucket.IsPNG(obj.Name) {
			continue
		}
		if _, seen := d.state.SeenImageNames[obj.Name]; seen {
			continue
		}
		// Marked seen before any network call: at-most-once holds even
		// when the download or AI call fails, and overlapping listings
		// cannot double-submit because only this goroutine diffs.
		d.state.SeenImageNames[obj.Name] = struct{}{}

		if !obj.Created.IsZero() && obj.Created.Before(d.start) {
			log.Infof("skipping old upload: %s", obj.Name)
			continue
		}

		d.sink.Status(StatusNotice, "new image detected: "+obj.Name)
		d.submit(Question{Kind: KindImage, ImageName: obj.Name, ImageKey: obj.Key})
	}
}

func (d *Dispatcher) onRecording(on bool) {
	if on == d.state.RecordingActive {
		return
	}
	d.state.RecordingActive = on
	if !on {
		// Unfinalized speech is discarded; no question for partial text.
		d.buf = ""
		d.flushSeq++
	}
	d.sink.RecordingState(on)
}

func (d *Dispatcher) onFrozen(on bool) {
	d.state.AIFrozen = on
	d.sink.FrozenState(on)
	if on {
		d.sink.Status(StatusWarn, "AI responses frozen")
	} else {
		d.sink.Status(StatusGood, "AI responses active")
	}
}

func (d *Dispatcher) submit(q Question) {
	select {
	case d.questions <- q:
		log.QuestionSubmitted(string(q.Kind), q.ImageName)
	default:
		d.sink.Status(StatusWarn, "question queue full, dropping "+string(q.Kind)+" question")
	}
}

// runWorker drains the question queue one call at a time, so at most one
// AI call is in flight and answers come back in submission order.
func (d *Dispatcher) runWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case q := <-d.questions:
			a := d.answer(ctx, q)
			d.send(answerEvent{q: q, a: a})
		}
	}
}

func (d *Dispatcher) answer(ctx context.Context, q Question) ai.Answer {
	start := time.Now()

	var a ai.Answer
	var err error
	switch q.Kind {
	case KindAudio:
		a, err = d.answerer.AnswerText(ctx, q.Transcript)
	case KindImage:
		var data []byte
		data, err = d.lister.Download(ctx, q.ImageKey)
		if err == nil {
			if local := d.saveImage(q.ImageName, data); local != "" {
				d.send(imageEvent{name: q.ImageName, localPath: local})
			}
			a, err = d.answerer.AnswerImage(ctx, q.ImageName, data)
		}
	}

	if err != nil {
		log.Errorf("%s question failed: %v", q.Kind, err)
		return ai.Answer{Relevant: false, Classification: ai.ClassOther, Body: "error: " + err.Error()}
	}
	log.AnswerDelivered(string(q.Kind), string(a.Classification), a.Relevant, time.Since(start))
	return a
}

// saveImage writes a local copy for the preview pane. Failure to save only
// costs the preview, never the answer.
func (d *Dispatcher) saveImage(name string, data []byte) string {
	if d.downloadDir == "" {
		return ""
	}
	if err := os.MkdirAll(d.downloadDir, 0755); err != nil {
		log.Warnf("download dir: %v", err)
		return ""
	}
	local := filepath.Join(d.downloadDir, filepath.Base(name))
	if err := os.WriteFile(local, data, 0644); err != nil {
		log.Warnf("save image %s: %v", name, err)
		return ""
	}
	return local
}

// deliver runs on the consumer goroutine, keeping the sink single-threaded.
func (d *Dispatcher) deliver(q Question, a ai.Answer) {
	if !a.Relevant && a.Body == "" {
		// Off-topic speech: no answer to show, the transcript stays up.
		d.sink.Status(StatusInfo, "not a technical question, ignoring")
		return
	}
	if a.Relevant && q.Kind == KindAudio {
		// A relevant question supersedes the transcript that produced it.
		d.sink.TranscriptCleared()
	}
	d.answered.Add(1)
	d.sink.AnswerDelivered(q, a)
	log.AnswerText(string(q.Kind), firstLine(a.Body))
}

func (d *Dispatcher) runPoller(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-d.pollNow:
		}

		objects, err := d.lister.List(ctx)
		if err != nil {
			// Skipped poll cycle; the next tick tries again.
			log.Warnf("bucket poll: %v", err)
			d.send(statusEvent{level: StatusWarn, msg: fmt.Sprintf("bucket poll failed: %v", err)})
			continue
		}
		d.send(listingEvent{objects: objects})
	}
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
