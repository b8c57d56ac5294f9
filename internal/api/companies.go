package api

import (
	"net/http"
	"strconv"

	"github.com/jobscout/jobscout/internal/domain/models"
	"github.com/jobscout/jobscout/internal/events"
	"github.com/pkg/errors"
)

type companyRequest struct {
	Name       string `json:"name"`
	CareersURL string `json:"careers_url"`
	Platform   string `json:"platform"`
	BoardToken string `json:"board_token"`
	Active     *bool  `json:"active"`
}

func (r companyRequest) toCompany() (models.Company, error) {
	if r.Name == "" {
		return models.Company{}, errors.New("company name is required")
	}
	if r.CareersURL == "" {
		return models.Company{}, errors.New("careers url is required")
	}

	platform, err := models.ToPlatform(r.Platform)
	if err != nil {
		return models.Company{}, errors.Wrapf(err, "platform %q", r.Platform)
	}

	company := models.Company{
		Name:       r.Name,
		CareersURL: r.CareersURL,
		Platform:   platform,
		BoardToken: r.BoardToken,
		Active:     true,
	}
	if r.Active != nil {
		company.Active = *r.Active
	}
	return company, nil
}

func (s *Server) listCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := s.engine.Companies.GetAll(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, companies)
}

func (s *Server) createCompany(w http.ResponseWriter, r *http.Request) {
	var request companyRequest
	if err := decodeBody(r, &request); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	company, err := request.toCompany()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.engine.Companies.Add(r.Context(), &company); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, company)
}

func (s *Server) getCompany(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	company, err := s.engine.Companies.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, company)
}

func (s *Server) updateCompany(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var request companyRequest
	if err := decodeBody(r, &request); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	company, err := request.toCompany()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	company.ID = id

	if err := s.engine.Companies.Update(r.Context(), company); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, company)
}

// deleteCompany removes the company and announces it so job cleanup
// happens out of the request path.
func (s *Server) deleteCompany(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.engine.Companies.Remove(r.Context(), id); err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	s.engine.Bus.Publish(events.CompanyDeletedTopic, events.CompanyDeleted{CompanyID: id})
	writeJSON(w, http.StatusNoContent, nil)
}

// refreshCompany starts a single-company scrape. New jobs are auto-matched
// the same way a full scrape's are.
func (s *Server) refreshCompany(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	sessionID, err := s.engine.Scrapes.Start(r.Context(), models.TriggerCompanyRefresh, []int{id})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"session_id": sessionID})
}

func pathID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		return 0, errors.Errorf("invalid id %q", r.PathValue("id"))
	}
	return id, nil
}
