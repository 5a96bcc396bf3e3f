package httpapi

import (
	"context"
	"net/http"
	"time"

	"virtual-courtroom/internal/domain"
	"virtual-courtroom/internal/usecase/simulation"
)

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("POST /cases", s.handleCreateCase)
	mux.HandleFunc("POST /cases/family", s.handleCreateFamilyCase)
	mux.HandleFunc("GET /cases/{id}", s.handleGetCase)
	mux.HandleFunc("GET /cases/{id}/participants", s.handleListParticipants)
	mux.HandleFunc("POST /cases/{id}/participants", s.handleAddParticipant)
	mux.HandleFunc("GET /cases/{id}/simulations", s.handleListSimulations)

	mux.HandleFunc("POST /simulations", s.handleCreateSimulation)
	mux.HandleFunc("GET /simulations/{id}", s.handleGetSimulation)
	mux.HandleFunc("PUT /simulations/{id}", s.handleUpdateSimulation)
	mux.HandleFunc("DELETE /simulations/{id}", s.handleDeleteSimulation)
	mux.HandleFunc("GET /simulations/{id}/messages", s.handleListMessages)
	mux.HandleFunc("POST /simulations/{id}/messages", s.handleAddMessage)
	mux.HandleFunc("POST /simulations/{id}/scenario", s.handleScenario)
	mux.HandleFunc("GET /simulations/{id}/live", s.handleLive)
	mux.HandleFunc("POST /simulations/{id}/predict-outcome", s.handlePredict)

	mux.HandleFunc("POST /participants/{id}/message", roleHandler(s, s.svc.SendMessage))
	mux.HandleFunc("POST /participants/{id}/testimony", roleHandler(s, s.svc.Testimony))
	mux.HandleFunc("POST /participants/{id}/argument", roleHandler(s, s.svc.Argument))
	mux.HandleFunc("POST /participants/{id}/cross-examine", roleHandler(s, s.svc.CrossExamine))
	mux.HandleFunc("POST /participants/{id}/ruling", roleHandler(s, s.svc.Ruling))
	mux.HandleFunc("POST /participants/{id}/allegation", roleHandler(s, s.svc.Allegation))
	mux.HandleFunc("POST /participants/{id}/emotional-state", s.handleEmotionalState)
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	})
}

func (s *Server) handleCreateCase(w http.ResponseWriter, r *http.Request) {
	var c domain.Case
	if err := decode(w, r, &c); err != nil {
		s.writeError(w, r, err)
		return
	}
	c.ID = ""
	if err := s.svc.CreateCase(r.Context(), &c); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, &c)
}

func (s *Server) handleCreateFamilyCase(w http.ResponseWriter, r *http.Request) {
	var req simulation.FamilyCaseRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	fc, err := s.svc.CreateFamilyCourtCase(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, fc)
}

func (s *Server) handleGetCase(w http.ResponseWriter, r *http.Request) {
	c, err := s.svc.GetCase(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleListParticipants(w http.ResponseWriter, r *http.Request) {
	caseID := r.PathValue("id")
	if _, err := s.svc.GetCase(r.Context(), caseID); err != nil {
		s.writeError(w, r, err)
		return
	}
	list, err := s.svc.ListParticipants(r.Context(), caseID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(list))
}

func (s *Server) handleAddParticipant(w http.ResponseWriter, r *http.Request) {
	var p domain.Participant
	if err := decode(w, r, &p); err != nil {
		s.writeError(w, r, err)
		return
	}
	p.ID = ""
	p.CaseID = r.PathValue("id")
	if err := s.svc.AddParticipant(r.Context(), &p); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, &p)
}

func (s *Server) handleListSimulations(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.ListSimulations(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(list))
}

// CreateSimulationRequest is the body of POST /simulations.
type CreateSimulationRequest struct {
	CaseID           string `json:"case_id"`
	Title            string `json:"title"`
	ConversationType string `json:"conversation_type"`
}

func (s *Server) handleCreateSimulation(w http.ResponseWriter, r *http.Request) {
	var req CreateSimulationRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	sim, err := s.svc.CreateSimulation(r.Context(), req.CaseID, req.Title, req.ConversationType)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sim)
}

func (s *Server) handleGetSimulation(w http.ResponseWriter, r *http.Request) {
	sim, err := s.svc.GetSimulation(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sim)
}

func (s *Server) handleUpdateSimulation(w http.ResponseWriter, r *http.Request) {
	var u simulation.SimulationUpdate
	if err := decode(w, r, &u); err != nil {
		s.writeError(w, r, err)
		return
	}
	sim, err := s.svc.UpdateSimulation(r.Context(), r.PathValue("id"), u)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sim)
}

func (s *Server) handleDeleteSimulation(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteSimulation(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	msgs, err := s.svc.ListMessages(r.Context(), r.PathValue("id"), offset, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(msgs))
}

// AddMessageRequest is the body of POST /simulations/{id}/messages.
type AddMessageRequest struct {
	ParticipantID string         `json:"participant_id"`
	Content       string         `json:"content"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

func (s *Server) handleAddMessage(w http.ResponseWriter, r *http.Request) {
	var req AddMessageRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.svc.AddMessage(r.Context(), r.PathValue("id"), req.ParticipantID, req.Content, req.Metadata)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleScenario(w http.ResponseWriter, r *http.Request) {
	var run simulation.ScenarioRun
	if err := decode(w, r, &run); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.svc.RunScenario(r.Context(), r.PathValue("id"), run)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req simulation.OutcomeRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.svc.PredictOutcome(r.Context(), r.PathValue("id"), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// EmotionalStateRequest is the body of POST /participants/{id}/emotional-state.
type EmotionalStateRequest struct {
	EmotionalState string `json:"emotional_state"`
}

func (s *Server) handleEmotionalState(w http.ResponseWriter, r *http.Request) {
	var req EmotionalStateRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.svc.EmotionalState(r.Context(), r.PathValue("id"), req.EmotionalState)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// roleHandler adapts a participant role operation to an HTTP handler.
func roleHandler[Req any](s *Server, call func(context.Context, string, Req) (*simulation.RoleResult, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req Req
		if err := decode(w, r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
		res, err := call(r.Context(), r.PathValue("id"), req)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
