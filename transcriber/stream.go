package transcriber

import (
	"strings"
	"sync"
	"time"

	"sage/audio"
)

const (
	streamChunkMs    = 200
	streamChunkBytes = int(audio.SampleRate*audio.Channels) * 2 * streamChunkMs / 1000
	streamDrainMax   = 3 * time.Second
)

type rawStream interface {
	Send(pcm []byte) error
	CloseSend() error
	Recv() (turnUpdate, error)
	Close() error
}

type turnUpdate struct {
	Transcript string
	EndOfTurn  bool
	Terminated bool
}

type streamSession struct {
	ws      rawStream
	audioCh chan []byte
	updates chan Fragment

	sendDone chan struct{}
	recvDone chan struct{}

	feedBuf    []byte
	feedClosed bool
	feedMu     sync.Mutex

	mu      sync.Mutex
	err     error
	errOnce sync.Once
	closing bool
}

func newStreamSession(ws rawStream) *streamSession {
	ss := &streamSession{
		ws:       ws,
		audioCh:  make(chan []byte, 128),
		updates:  make(chan Fragment, 16),
		sendDone: make(chan struct{}),
		recvDone: make(chan struct{}),
	}
	go ss.runSender()
	go ss.runReceiver()
	return ss
}

func (s *streamSession) Feed(pcm []byte) {
	s.mu.Lock()
	if s.err != nil || s.closing {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.feedMu.Lock()
	defer s.feedMu.Unlock()
	if s.feedClosed {
		return
	}
	s.feedBuf = append(s.feedBuf, pcm...)
	for len(s.feedBuf) >= streamChunkBytes {
		chunk := make([]byte, streamChunkBytes)
		copy(chunk, s.feedBuf[:streamChunkBytes])
		s.feedBuf = s.feedBuf[streamChunkBytes:]
		select {
		case s.audioCh <- chunk:
		default:
			// Sender fell behind the capture device; dropping audio beats
			// blocking the capture callback.
			return
		}
	}
}

func (s *streamSession) Updates() <-chan Fragment {
	return s.updates
}

func (s *streamSession) Close() error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		<-s.recvDone
		return s.err
	}
	s.closing = true
	connErr := s.err
	s.mu.Unlock()

	// Flush remaining buffered PCM, then let the sender terminate the stream.
	s.feedMu.Lock()
	if len(s.feedBuf) > 0 && connErr == nil {
		tail := make([]byte, len(s.feedBuf))
		copy(tail, s.feedBuf)
		s.feedBuf = nil
		select {
		case s.audioCh <- tail:
		default:
		}
	}
	s.feedClosed = true
	close(s.audioCh)
	s.feedMu.Unlock()

	<-s.sendDone

	// Wait for the server's termination message so trailing turns arrive.
	select {
	case <-s.recvDone:
	case <-time.After(streamDrainMax):
	}

	s.ws.Close()
	<-s.recvDone
	close(s.updates)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *streamSession) runSender() {
	defer close(s.sendDone)
	for chunk := range s.audioCh {
		if err := s.ws.Send(chunk); err != nil {
			s.setErr(err)
			return
		}
	}
	if err := s.ws.CloseSend(); err != nil {
		s.setErr(err)
	}
}

func (s *streamSession) runReceiver() {
	defer close(s.recvDone)

	// emitted tracks how much of the current turn transcript has already
	// been forwarded, so each update carries only the new tail.
	var emitted string

	for {
		update, err := s.ws.Recv()
		if err != nil {
			s.mu.Lock()
			closing := s.closing
			s.mu.Unlock()
			if !closing {
				s.setErr(err)
			}
			return
		}
		if update.Terminated {
			return
		}

		delta := turnDelta(emitted, update.Transcript)
		emitted = update.Transcript
		if update.EndOfTurn {
			emitted = ""
		}

		if delta == "" && !update.EndOfTurn {
			continue
		}
		s.updates <- Fragment{
			Text:      delta,
			EndOfTurn: update.EndOfTurn,
			At:        time.Now(),
		}
	}
}

// turnDelta returns the part of cur not yet emitted. A formatted rewrite of
// an already-emitted turn is not an extension of it and carries no new
// words, so it yields an empty delta.
func turnDelta(prev, cur string) string {
	if strings.HasPrefix(cur, prev) {
		return cur[len(prev):]
	}
	return ""
}

func (s *streamSession) setErr(err error) {
	if err == nil {
		return
	}
	s.errOnce.Do(func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		s.ws.Close()
	})
}
