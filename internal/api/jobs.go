package api

import (
	"net/http"
	"strconv"

	"github.com/jobscout/jobscout/internal/domain/models"
	"github.com/pkg/errors"
)

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	companyID, err := strconv.Atoi(r.URL.Query().Get("company_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("company_id query parameter is required"))
		return
	}

	jobs, err := s.engine.Jobs.GetByCompany(r.Context(), companyID)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) updateJobStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var request struct {
		Status string `json:"status"`
	}
	if err := decodeBody(r, &request); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	status, err := models.ToJobStatus(request.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrapf(err, "status %q", request.Status))
		return
	}

	if err := s.engine.Jobs.UpdateStatus(r.Context(), id, status); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// bulkDeleteJobs is the only hard deletion of postings; everything else
// archives.
func (s *Server) bulkDeleteJobs(w http.ResponseWriter, r *http.Request) {
	var request struct {
		IDs []int `json:"ids"`
	}
	if err := decodeBody(r, &request); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(request.IDs) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("ids must not be empty"))
		return
	}

	deleted, err := s.engine.Jobs.BulkDelete(r.Context(), request.IDs)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}
