package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"virtual-courtroom/internal/domain"
	"virtual-courtroom/internal/usecase/simulation"
)

// FrameType identifies the kind of frame sent over a live connection.
type FrameType string

const (
	FrameTypeRun    FrameType = "run"
	FrameTypeTurn   FrameType = "turn"
	FrameTypeResult FrameType = "result"
	FrameTypeError  FrameType = "error"
)

// Frame is the envelope exchanged over GET /simulations/{id}/live. The
// client sends one run frame carrying a ScenarioRun; the server answers
// with a turn frame per persisted message and a closing result or error.
type Frame struct {
	Type    FrameType        `json:"type"`
	Payload json.RawMessage  `json:"payload,omitempty"`
	Error   string           `json:"error,omitempty"`
	Code    domain.ErrorCode `json:"code,omitempty"`
}

const frameWriteTimeout = 5 * time.Second

var localOrigins = []string{
	"localhost",
	"localhost:*",
	"127.0.0.1",
	"127.0.0.1:*",
	"[::1]",
	"[::1]:*",
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	simID := r.PathValue("id")
	if _, err := s.svc.GetSimulation(r.Context(), simID); err != nil {
		s.writeError(w, r, err)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: localOrigins})
	if err != nil {
		s.logger.Warn("websocket accept failed", "error", err)
		return
	}
	defer ws.Close(websocket.StatusInternalError, "")

	ctx := r.Context()
	var first Frame
	if err := wsjson.Read(ctx, ws, &first); err != nil {
		return
	}
	if first.Type != FrameTypeRun {
		s.sendError(ctx, ws, domain.NewDomainError("httpapi.live", domain.ErrInvalidInput, "expected a run frame"))
		ws.Close(websocket.StatusPolicyViolation, "expected run frame")
		return
	}

	var run simulation.ScenarioRun
	if err := json.Unmarshal(first.Payload, &run); err != nil {
		s.sendError(ctx, ws, domain.NewDomainError("httpapi.live", domain.ErrInvalidInput, err.Error()))
		ws.Close(websocket.StatusUnsupportedData, "bad run payload")
		return
	}
	// Nothing else is read; a client close or disconnect cancels the run.
	ctx = ws.CloseRead(ctx)
	run.OnTurn = func(ctx context.Context, m *domain.SimulationMessage) error {
		return s.send(ctx, ws, FrameTypeTurn, m)
	}

	s.logger.Info("live scenario started", "simulation_id", simID)
	res, err := s.svc.RunScenario(ctx, simID, run)
	if err != nil {
		if ctx.Err() != nil {
			s.logger.Info("live scenario abandoned", "simulation_id", simID, "error", err)
			return
		}
		s.sendError(ctx, ws, err)
		ws.Close(websocket.StatusNormalClosure, "")
		return
	}
	if err := s.send(ctx, ws, FrameTypeResult, res); err != nil {
		return
	}
	ws.Close(websocket.StatusNormalClosure, "")
}

func (s *Server) send(ctx context.Context, ws *websocket.Conn, t FrameType, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, frameWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, ws, Frame{Type: t, Payload: payload})
}

func (s *Server) sendError(ctx context.Context, ws *websocket.Conn, err error) {
	ctx, cancel := context.WithTimeout(ctx, frameWriteTimeout)
	defer cancel()
	frame := Frame{Type: FrameTypeError, Error: err.Error(), Code: domain.ErrorCodeOf(err)}
	if werr := wsjson.Write(ctx, ws, frame); werr != nil {
		s.logger.Debug("live error frame dropped", "error", werr)
	}
}
