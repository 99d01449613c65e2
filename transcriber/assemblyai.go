package transcriber

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"nhooyr.io/websocket"
)

const assemblyAIEndpoint = "wss://streaming.assemblyai.com/v3/ws"

type AssemblyAI struct {
	apiKey string
}

func NewAssemblyAI(apiKey string) *AssemblyAI {
	return &AssemblyAI{apiKey: apiKey}
}

func (a *AssemblyAI) Name() string { return "assemblyai" }

func (a *AssemblyAI) NewSession(ctx context.Context) (Session, error) {
	raw, err := a.dial(ctx)
	if err != nil {
		return nil, err
	}
	return newStreamSession(raw), nil
}

type assemblyAIMessage struct {
	Type             string  `json:"type"`
	Transcript       string  `json:"transcript"`
	EndOfTurn        bool    `json:"end_of_turn"`
	TurnIsFormatted  bool    `json:"turn_is_formatted"`
	AudioDurationSec float64 `json:"audio_duration_seconds"`
}

type assemblyAIStream struct {
	conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc
}

func (a *AssemblyAI) dial(ctx context.Context) (rawStream, error) {
	endpoint, err := url.Parse(assemblyAIEndpoint)
	if err != nil {
		return nil, err
	}

	q := endpoint.Query()
	q.Set("sample_rate", fmt.Sprintf("%d", 16000))
	q.Set("encoding", "pcm_s16le")
	q.Set("format_turns", "true")
	endpoint.RawQuery = q.Encode()

	headers := http.Header{}
	headers.Set("Authorization", a.apiKey)

	streamCtx, cancel := context.WithCancel(ctx)
	conn, _, err := websocket.Dial(streamCtx, endpoint.String(), &websocket.DialOptions{HTTPHeader: headers})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("assemblyai dial: %w", err)
	}

	return &assemblyAIStream{conn: conn, ctx: streamCtx, cancel: cancel}, nil
}

func (s *assemblyAIStream) Send(pcm []byte) error {
	return s.conn.Write(s.ctx, websocket.MessageBinary, pcm)
}

func (s *assemblyAIStream) CloseSend() error {
	msg := []byte(`{"type":"Terminate"}`)
	return s.conn.Write(s.ctx, websocket.MessageText, msg)
}

func (s *assemblyAIStream) Recv() (turnUpdate, error) {
	_, data, err := s.conn.Read(s.ctx)
	if err != nil {
		return turnUpdate{}, err
	}

	var msg assemblyAIMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return turnUpdate{}, fmt.Errorf("assemblyai message parse: %w", err)
	}

	switch msg.Type {
	case "Turn":
		return turnUpdate{
			Transcript: msg.Transcript,
			EndOfTurn:  msg.EndOfTurn,
		}, nil
	case "Termination":
		return turnUpdate{Terminated: true}, nil
	default:
		// Begin and any future message types carry no transcript.
		return turnUpdate{}, nil
	}
}

func (s *assemblyAIStream) Close() error {
	s.cancel()
	return s.conn.Close(websocket.StatusNormalClosure, "")
}
