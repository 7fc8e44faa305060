package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mrlokans/storyshelf/internal/library"
	"github.com/mrlokans/storyshelf/internal/metrics"
)

const defaultWriteTimeout = 10 * time.Second

var errRejected = fmt.Errorf("%w: command rejected", library.ErrUnauthorized)

// session is one WebSocket connection carrying a single command exchange.
// Frames are read by one goroutine only; writes are serialized.
type session struct {
	ws           *websocket.Conn
	writeTimeout time.Duration
	metrics      *metrics.Collector
	logger       *zap.Logger

	wmu sync.Mutex
}

func newSession(ws *websocket.Conn, writeTimeout time.Duration, m *metrics.Collector, logger *zap.Logger) *session {
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &session{ws: ws, writeTimeout: writeTimeout, metrics: m, logger: logger}
}

func (s *session) send(f *Frame) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	if err := s.ws.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	if err := s.ws.WriteJSON(f); err != nil {
		return fmt.Errorf("%w: write %s frame: %w", ErrTransport, f.Kind, err)
	}
	return nil
}

// receive reads the next frame. Connection failures wrap ErrTransport,
// undecodable messages ErrProtocol.
func (s *session) receive() (*Frame, error) {
	_, data, err := s.ws.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("%w: read frame: %w", ErrTransport, err)
	}
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: decode frame: %w", ErrProtocol, err)
	}
	return &f, nil
}

// expect reads the next frame and checks its kind. A reply arriving
// instead is turned into its error, a null one into ErrUnauthorized.
func (s *session) expect(kind Kind) (*Frame, error) {
	f, err := s.receive()
	if err != nil {
		return nil, err
	}
	if f.Kind != kind {
		if f.Kind == KindReply {
			if err := f.Err(); err != nil {
				return nil, err
			}
			if f.IsNull() {
				return nil, errRejected
			}
		}
		return nil, fmt.Errorf("%w: got %s frame, want %s", ErrProtocol, f.Kind, kind)
	}
	return f, nil
}

func (s *session) ack() error {
	return s.send(&Frame{Kind: KindAck})
}

// sendParts streams parts one frame at a time, waiting for the peer to
// acknowledge each, and terminates the stream with an empty part frame.
func (s *session) sendParts(parts []*Part) error {
	for _, part := range parts {
		if err := s.send(&Frame{Kind: KindPart, Part: part}); err != nil {
			return err
		}
		if _, err := s.expect(KindAck); err != nil {
			return err
		}
		s.metrics.PartStreamed("out")
	}
	return s.send(&Frame{Kind: KindPart})
}

// receiveParts reads part frames into r until the terminator, acknowledging
// each part.
func (s *session) receiveParts(r *Rebuilder) error {
	for {
		f, err := s.expect(KindPart)
		if err != nil {
			return err
		}
		if f.Part == nil {
			return nil
		}
		if err := r.Add(f.Part); err != nil {
			return err
		}
		if err := s.ack(); err != nil {
			return err
		}
		s.metrics.PartStreamed("in")
	}
}

func (s *session) close() {
	s.wmu.Lock()
	_ = s.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	s.wmu.Unlock()

	if err := s.ws.Close(); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		s.logger.Debug("close connection", zap.Error(err))
	}
}
