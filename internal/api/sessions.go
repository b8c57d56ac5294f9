package api

import (
	"net/http"
	"strconv"

	"github.com/jobscout/jobscout/internal/domain/models"
	"github.com/jobscout/jobscout/internal/services"
)

const defaultSessionListLimit = 50

func listLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		return defaultSessionListLimit
	}
	return limit
}

func (s *Server) startScrape(w http.ResponseWriter, r *http.Request) {
	var request struct {
		CompanyIDs []int `json:"company_ids"`
	}
	if r.ContentLength > 0 {
		if err := decodeBody(r, &request); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	sessionID, err := s.engine.Scrapes.Start(r.Context(), models.TriggerManual, request.CompanyIDs)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"session_id": sessionID})
}

func (s *Server) stopScrape(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Scrapes.Stop(r.PathValue("id")); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusAccepted, nil)
}

func (s *Server) listScrapeSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.engine.Sessions.ListScrapeSessions(r.Context(), listLimit(r))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) getScrapeSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.engine.Sessions.GetScrapeSession(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) getScrapeLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := s.engine.Sessions.GetScrapeLogs(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *Server) deleteScrapeSession(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Sessions.DeleteScrapeSession(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) startMatch(w http.ResponseWriter, r *http.Request) {
	var request struct {
		JobIDs    []int `json:"job_ids"`
		CompanyID *int  `json:"company_id"`
	}
	if r.ContentLength > 0 {
		if err := decodeBody(r, &request); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	sessionID, err := s.engine.Matches.Start(r.Context(), models.TriggerManual, services.MatchScope{
		JobIDs:    request.JobIDs,
		CompanyID: request.CompanyID,
	})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"session_id": sessionID})
}

func (s *Server) stopMatch(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Matches.Stop(r.PathValue("id")); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusAccepted, nil)
}

func (s *Server) listMatchSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.engine.Sessions.ListMatchSessions(r.Context(), listLimit(r))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) getMatchSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.engine.Sessions.GetMatchSession(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) getMatchLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := s.engine.Sessions.GetMatchLogs(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *Server) deleteMatchSession(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Sessions.DeleteMatchSession(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
