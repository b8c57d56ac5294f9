package api

import (
	"net/http"

	"github.com/jobscout/jobscout/internal/domain/models"
)

func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Settings.Snapshot(r.Context()))
}

// updateSettings stores the submitted tunables as-is; out-of-range values
// are clamped on every read, not rejected here.
func (s *Server) updateSettings(w http.ResponseWriter, r *http.Request) {
	var settings models.Settings
	if err := decodeBody(r, &settings); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.engine.Settings.SaveSettings(r.Context(), settings); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, settings.Clamped())
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.engine.Settings.Profile(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	var profile models.CandidateProfile
	if err := decodeBody(r, &profile); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.engine.Settings.SaveProfile(r.Context(), profile); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
