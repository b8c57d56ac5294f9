package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/asaskevich/EventBus"
	"github.com/jobscout/jobscout/internal/domain/models"
	"github.com/jobscout/jobscout/internal/events"
	"github.com/jobscout/jobscout/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

type mockCompanyStore struct {
	mock.Mock
}

func (m *mockCompanyStore) Add(ctx context.Context, company *models.Company) error {
	args := m.Called(ctx, company)
	company.ID = 1
	return args.Error(0)
}

func (m *mockCompanyStore) GetByID(ctx context.Context, id int) (*models.Company, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Company), args.Error(1)
}

func (m *mockCompanyStore) GetAll(ctx context.Context) ([]models.Company, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Company), args.Error(1)
}

func (m *mockCompanyStore) Update(ctx context.Context, company models.Company) error {
	return m.Called(ctx, company).Error(0)
}

func (m *mockCompanyStore) Remove(ctx context.Context, id int) error {
	return m.Called(ctx, id).Error(0)
}

type mockScrapeController struct {
	mock.Mock
}

func (m *mockScrapeController) Start(ctx context.Context, trigger models.TriggerSource,
	companyIDs []int) (string, error) {
	args := m.Called(ctx, trigger, companyIDs)
	return args.String(0), args.Error(1)
}

func (m *mockScrapeController) Stop(sessionID string) error {
	return m.Called(sessionID).Error(0)
}

func testServer(companies CompanyStore, scrapes ScrapeController) *Server {
	return NewServer(0, Engine{
		Companies: companies,
		Scrapes:   scrapes,
		Bus:       EventBus.New(),
	})
}

func do(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, req)
	return rec
}

func Test_CreateCompany_ValidatesPlatform(t *testing.T) {

	server := testServer(&mockCompanyStore{}, &mockScrapeController{})

	rec := do(server, http.MethodPost, "/api/companies",
		`{"name": "Acme", "careers_url": "https://boards.greenhouse.io/acme", "platform": "jobvite"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid platform")
}

func Test_CreateCompany_ReturnsCreated(t *testing.T) {

	companies := &mockCompanyStore{}
	companies.On("Add", mock.Anything, mock.Anything).Return(nil)

	server := testServer(companies, &mockScrapeController{})

	rec := do(server, http.MethodPost, "/api/companies",
		`{"name": "Acme", "careers_url": "https://boards.greenhouse.io/acme", "platform": "greenhouse"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)

	var company models.Company
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &company))
	assert.Equal(t, 1, company.ID)
	assert.True(t, company.Active)
}

func Test_GetCompany_UnknownIdIsNotFound(t *testing.T) {

	companies := &mockCompanyStore{}
	companies.On("GetByID", mock.Anything, 42).Return(nil, gorm.ErrRecordNotFound)

	server := testServer(companies, &mockScrapeController{})

	rec := do(server, http.MethodGet, "/api/companies/42", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_DeleteCompany_PublishesDeletionEvent(t *testing.T) {

	companies := &mockCompanyStore{}
	companies.On("Remove", mock.Anything, 7).Return(nil)

	bus := EventBus.New()
	deleted := make(chan int, 1)
	assert.NoError(t, bus.Subscribe(events.CompanyDeletedTopic, func(event events.CompanyDeleted) {
		deleted <- event.CompanyID
	}))

	server := NewServer(0, Engine{Companies: companies, Bus: bus})

	rec := do(server, http.MethodDelete, "/api/companies/7", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 7, <-deleted)
}

func Test_StartScrape_ActiveSessionMapsToConflict(t *testing.T) {

	scrapes := &mockScrapeController{}
	scrapes.On("Start", mock.Anything, models.TriggerManual, []int(nil)).
		Return("", services.ErrSessionActive)

	server := testServer(&mockCompanyStore{}, scrapes)

	rec := do(server, http.MethodPost, "/api/scrape/sessions", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func Test_StartScrape_ReturnsSessionId(t *testing.T) {

	scrapes := &mockScrapeController{}
	scrapes.On("Start", mock.Anything, models.TriggerManual, []int{1, 2}).
		Return("session-1", nil)

	server := testServer(&mockCompanyStore{}, scrapes)

	rec := do(server, http.MethodPost, "/api/scrape/sessions", `{"company_ids": [1, 2]}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), "session-1")
}

func Test_RefreshCompany_StartsSingleCompanyScrape(t *testing.T) {

	scrapes := &mockScrapeController{}
	scrapes.On("Start", mock.Anything, models.TriggerCompanyRefresh, []int{5}).
		Return("session-2", nil)

	server := testServer(&mockCompanyStore{}, scrapes)

	rec := do(server, http.MethodPost, "/api/companies/5/refresh", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	scrapes.AssertExpectations(t)
}
