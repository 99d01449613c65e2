package dispatch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"sage/ai"
	"sage/bucket"
	"sage/transcriber"
)

type deliveredAnswer struct {
	Q Question
	A ai.Answer
}

type recordingSink struct {
	mu          sync.Mutex
	transcripts []string
	answers     []deliveredAnswer
	statuses    []string
	images      []string
	cleared     int

	answerCh  chan deliveredAnswer
	frozenCh  chan bool
	recCh     chan bool
	clearedCh chan struct{}
}

func newRecordingSink() *recordingSink {
	return &recordingSink{
		answerCh:  make(chan deliveredAnswer, 16),
		frozenCh:  make(chan bool, 16),
		recCh:     make(chan bool, 16),
		clearedCh: make(chan struct{}, 16),
	}
}

func (s *recordingSink) TranscriptUpdate(text string) {
	s.mu.Lock()
	s.transcripts = append(s.transcripts, text)
	s.mu.Unlock()
}

func (s *recordingSink) TranscriptCleared() {
	s.mu.Lock()
	s.cleared++
	s.mu.Unlock()
	s.clearedCh <- struct{}{}
}

func (s *recordingSink) AnswerDelivered(q Question, a ai.Answer) {
	s.mu.Lock()
	s.answers = append(s.answers, deliveredAnswer{Q: q, A: a})
	s.mu.Unlock()
	s.answerCh <- deliveredAnswer{Q: q, A: a}
}

func (s *recordingSink) ImageDetected(name, localPath string) {
	s.mu.Lock()
	s.images = append(s.images, name)
	s.mu.Unlock()
}

func (s *recordingSink) Status(level StatusLevel, message string) {
	s.mu.Lock()
	s.statuses = append(s.statuses, message)
	s.mu.Unlock()
}

func (s *recordingSink) RecordingState(active bool) { s.recCh <- active }
func (s *recordingSink) FrozenState(frozen bool)    { s.frozenCh <- frozen }

func (s *recordingSink) lastTranscript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.transcripts) == 0 {
		return ""
	}
	return s.transcripts[len(s.transcripts)-1]
}

func (s *recordingSink) clearedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cleared
}

func (s *recordingSink) imageNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.images...)
}

func (s *recordingSink) waitAnswer(t *testing.T) deliveredAnswer {
	t.Helper()
	select {
	case d := <-s.answerCh:
		return d
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for an answer")
		return deliveredAnswer{}
	}
}

func (s *recordingSink) expectNoAnswer(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case d := <-s.answerCh:
		t.Fatalf("unexpected answer delivered: %+v", d)
	case <-time.After(wait):
	}
}

func waitBool(t *testing.T, ch chan bool, want bool) {
	t.Helper()
	select {
	case got := <-ch:
		if got != want {
			t.Fatalf("state change = %v, want %v", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for state change")
	}
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func startDispatcher(t *testing.T, opts Options) (*Dispatcher, *recordingSink) {
	t.Helper()
	sink := newRecordingSink()
	opts.Sink = sink
	if opts.PollInterval == 0 {
		opts.PollInterval = time.Hour
	}
	d := New(opts)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	d.Start(ctx)
	return d, sink
}

func frag(text string, final bool) transcriber.Fragment {
	return transcriber.Fragment{Text: text, EndOfTurn: final, At: time.Now()}
}

func TestFragmentAssemblySubmitsOneQuestion(t *testing.T) {
	answerer := &ai.FakeAnswerer{Answer: ai.Answer{
		Relevant: true, Classification: ai.ClassCoding, Body: "a sorted tree",
	}}
	d, sink := startDispatcher(t, Options{Answerer: answerer})

	d.SetRecording(true)
	waitBool(t, sink.recCh, true)

	d.OnFragment(frag("What is", false))
	d.OnFragment(frag(" a binary", false))
	d.OnFragment(frag(" search tree?", true))

	got := sink.waitAnswer(t)
	if got.Q.Kind != KindAudio {
		t.Fatalf("question kind = %q, want audio", got.Q.Kind)
	}
	if got.Q.Transcript != "What is a binary search tree?" {
		t.Fatalf("transcript = %q", got.Q.Transcript)
	}
	if texts := answerer.Texts(); len(texts) != 1 {
		t.Fatalf("AI calls = %d, want 1", len(texts))
	}
	if got.A.Body != "a sorted tree" {
		t.Fatalf("answer body = %q", got.A.Body)
	}
	// A relevant spoken answer supersedes its transcript.
	waitUntil(t, func() bool { return sink.clearedCount() == 1 })
}

func TestPartialFragmentsUpdateTranscriptOnly(t *testing.T) {
	never := func(string, transcriber.Fragment) Boundary { return Boundary{} }
	answerer := &ai.FakeAnswerer{Answer: ai.Answer{Relevant: true, Body: "x"}}
	d, sink := startDispatcher(t, Options{Answerer: answerer, Boundary: never})

	d.SetRecording(true)
	waitBool(t, sink.recCh, true)
	d.OnFragment(frag("tell me about", false))
	d.OnFragment(frag(" goroutines", false))

	waitUntil(t, func() bool { return sink.lastTranscript() == "tell me about goroutines" })
	sink.expectNoAnswer(t, 50*time.Millisecond)
	if len(answerer.Texts()) != 0 {
		t.Fatalf("AI calls = %d, want 0", len(answerer.Texts()))
	}
}

func TestBucketDedupeAcrossOverlappingPolls(t *testing.T) {
	created := time.Now().Add(time.Minute)
	q1 := bucket.Object{Name: "q1.png", Key: "screens/q1.png", Created: created}
	q2 := bucket.Object{Name: "q2.png", Key: "screens/q2.png", Created: created}
	lister := bucket.NewFakeLister([]bucket.Object{q1}, []bucket.Object{q1, q2})

	answerer := &ai.FakeAnswerer{Answer: ai.Answer{
		Relevant: true, Classification: ai.ClassMCQ, Body: "B",
	}}
	d, sink := startDispatcher(t, Options{
		Answerer:    answerer,
		Lister:      lister,
		DownloadDir: t.TempDir(),
	})

	d.PollNow()
	first := sink.waitAnswer(t)
	if first.Q.ImageName != "q1.png" {
		t.Fatalf("first answer for %q, want q1.png", first.Q.ImageName)
	}

	d.PollNow()
	second := sink.waitAnswer(t)
	if second.Q.ImageName != "q2.png" {
		t.Fatalf("second answer for %q, want q2.png", second.Q.ImageName)
	}

	// Third poll repeats the last listing: everything already seen.
	d.PollNow()
	sink.expectNoAnswer(t, 100*time.Millisecond)
	if images := answerer.Images(); len(images) != 2 {
		t.Fatalf("AI image calls = %v, want exactly q1 and q2", images)
	}
	if names := sink.imageNames(); len(names) != 2 {
		t.Fatalf("preview images = %v, want 2", names)
	}
}

func TestOldUploadsSkipped(t *testing.T) {
	start := time.Now()
	old := bucket.Object{Name: "old.png", Key: "screens/old.png", Created: start.Add(-time.Hour)}
	fresh := bucket.Object{Name: "fresh.png", Key: "screens/fresh.png", Created: start.Add(time.Minute)}
	// No timestamp at all fails open and is processed.
	bare := bucket.Object{Name: "bare.png", Key: "screens/bare.png"}
	lister := bucket.NewFakeLister([]bucket.Object{old, fresh, bare})

	answerer := &ai.FakeAnswerer{Answer: ai.Answer{Relevant: true, Body: "x"}}
	d, sink := startDispatcher(t, Options{Answerer: answerer, Lister: lister, StartTime: start})

	d.PollNow()
	got := map[string]bool{}
	got[sink.waitAnswer(t).Q.ImageName] = true
	got[sink.waitAnswer(t).Q.ImageName] = true
	sink.expectNoAnswer(t, 100*time.Millisecond)

	if !got["fresh.png"] || !got["bare.png"] || got["old.png"] {
		t.Fatalf("answered images = %v, want fresh.png and bare.png only", got)
	}
}

func TestFreezeSuppressesAudioQuestions(t *testing.T) {
	answerer := &ai.FakeAnswerer{Answer: ai.Answer{Relevant: true, Body: "x"}}
	d, sink := startDispatcher(t, Options{Answerer: answerer})

	d.SetRecording(true)
	waitBool(t, sink.recCh, true)
	d.SetFrozen(true)
	waitBool(t, sink.frozenCh, true)

	d.OnFragment(frag("what is a mutex?", true))
	// Unfreezing is a barrier: the fragment above was already handled.
	d.SetFrozen(false)
	waitBool(t, sink.frozenCh, false)

	sink.expectNoAnswer(t, 50*time.Millisecond)
	if len(answerer.Texts()) != 0 {
		t.Fatalf("AI calls while frozen = %d, want 0", len(answerer.Texts()))
	}
	if sink.lastTranscript() != "what is a mutex?" {
		t.Fatalf("transcript = %q, want the frozen speech still displayed", sink.lastTranscript())
	}

	// Thawed: the next finalized turn goes through.
	d.OnFragment(frag("what is a channel?", true))
	got := sink.waitAnswer(t)
	if got.Q.Transcript != "what is a channel?" {
		t.Fatalf("post-thaw transcript = %q", got.Q.Transcript)
	}
}

func TestAnswersDeliveredInSubmissionOrder(t *testing.T) {
	answerer := &ai.FakeAnswerer{
		Answer: ai.Answer{Relevant: true, Body: "x"},
		Delay:  make(chan struct{}),
	}
	img := bucket.Object{Name: "shot.png", Key: "screens/shot.png", Created: time.Now().Add(time.Minute)}
	lister := bucket.NewFakeLister([]bucket.Object{img})
	d, sink := startDispatcher(t, Options{Answerer: answerer, Lister: lister})

	d.SetRecording(true)
	waitBool(t, sink.recCh, true)
	d.OnFragment(frag("first question?", true))
	// The worker is now blocked inside the audio call.
	waitUntil(t, func() bool { return len(answerer.Texts()) == 1 })

	d.PollNow()
	waitUntil(t, func() bool { return lister.ListCalls() == 1 })

	close(answerer.Delay)

	if got := sink.waitAnswer(t); got.Q.Kind != KindAudio {
		t.Fatalf("first delivery kind = %q, want audio", got.Q.Kind)
	}
	if got := sink.waitAnswer(t); got.Q.Kind != KindImage {
		t.Fatalf("second delivery kind = %q, want image", got.Q.Kind)
	}
}

func TestAIErrorDeliversErrorAnswer(t *testing.T) {
	answerer := &ai.FakeAnswerer{Err: errors.New("model unavailable")}
	img := bucket.Object{Name: "q.png", Key: "screens/q.png", Created: time.Now().Add(time.Minute)}
	lister := bucket.NewFakeLister([]bucket.Object{img})
	d, sink := startDispatcher(t, Options{Answerer: answerer, Lister: lister})

	d.PollNow()
	got := sink.waitAnswer(t)
	if got.A.Relevant {
		t.Fatal("error answer marked relevant")
	}
	if !strings.HasPrefix(got.A.Body, "error:") || !strings.Contains(got.A.Body, "model unavailable") {
		t.Fatalf("error answer body = %q", got.A.Body)
	}

	// The name stays seen: the failure is not retried on the next poll.
	d.PollNow()
	sink.expectNoAnswer(t, 100*time.Millisecond)
	if len(answerer.Images()) != 1 {
		t.Fatalf("AI image calls = %d, want 1", len(answerer.Images()))
	}
}

func TestIrrelevantSpeechProducesNoAnswer(t *testing.T) {
	answerer := &ai.FakeAnswerer{Answer: ai.Answer{Relevant: false, Classification: ai.ClassOther}}
	d, sink := startDispatcher(t, Options{Answerer: answerer})

	d.SetRecording(true)
	waitBool(t, sink.recCh, true)
	d.OnFragment(frag("nice weather today.", true))

	waitUntil(t, func() bool { return len(answerer.Texts()) == 1 })
	sink.expectNoAnswer(t, 50*time.Millisecond)
	if sink.clearedCount() != 0 {
		t.Fatal("transcript cleared for irrelevant speech")
	}
}

func TestStopDiscardsPartialBuffer(t *testing.T) {
	quick := func(string, transcriber.Fragment) Boundary {
		return Boundary{FlushAfter: 20 * time.Millisecond}
	}
	answerer := &ai.FakeAnswerer{Answer: ai.Answer{Relevant: true, Body: "x"}}
	d, sink := startDispatcher(t, Options{Answerer: answerer, Boundary: quick})

	d.SetRecording(true)
	waitBool(t, sink.recCh, true)
	d.OnFragment(frag("half a question", false))
	d.SetRecording(false)
	waitBool(t, sink.recCh, false)

	// The armed flush fires after stop and must find nothing to submit.
	sink.expectNoAnswer(t, 80*time.Millisecond)
	if len(answerer.Texts()) != 0 {
		t.Fatalf("AI calls after stop = %d, want 0", len(answerer.Texts()))
	}
}

func TestDebouncedFlushSubmitsWithoutEndOfTurn(t *testing.T) {
	quick := func(string, transcriber.Fragment) Boundary {
		return Boundary{FlushAfter: 20 * time.Millisecond}
	}
	answerer := &ai.FakeAnswerer{Answer: ai.Answer{Relevant: true, Body: "x"}}
	d, sink := startDispatcher(t, Options{Answerer: answerer, Boundary: quick})

	d.SetRecording(true)
	waitBool(t, sink.recCh, true)
	d.OnFragment(frag("explain mutexes.", false))

	got := sink.waitAnswer(t)
	if got.Q.Transcript != "explain mutexes." {
		t.Fatalf("flushed transcript = %q", got.Q.Transcript)
	}
}

func TestClearResetsTranscriptBuffer(t *testing.T) {
	never := func(string, transcriber.Fragment) Boundary { return Boundary{} }
	answerer := &ai.FakeAnswerer{Answer: ai.Answer{Relevant: true, Body: "x"}}
	d, sink := startDispatcher(t, Options{Answerer: answerer, Boundary: never})

	d.SetRecording(true)
	waitBool(t, sink.recCh, true)
	d.OnFragment(frag("stale text", false))
	waitUntil(t, func() bool { return sink.lastTranscript() == "stale text" })

	d.Clear()
	select {
	case <-sink.clearedCh:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for clear")
	}

	d.OnFragment(frag("fresh", false))
	waitUntil(t, func() bool { return sink.lastTranscript() == "fresh" })
}
