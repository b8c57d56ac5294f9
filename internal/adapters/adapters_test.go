package adapters

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"testing"

	"github.com/jobscout/jobscout/internal/domain/models"
	"github.com/jobscout/jobscout/internal/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockHTTPClient struct {
	mock.Mock
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	return args.Get(0).(*http.Response), args.Error(1)
}

func responseFromFile(t *testing.T, path string) *http.Response {
	file, err := os.ReadFile(path)
	assert.NoError(t, err)

	return &http.Response{
		StatusCode: 200,
		Body:       io.NopCloser(bytes.NewBuffer(file)),
	}
}

func emptyResponse(status int) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString("[]")),
	}
}

func Test_Greenhouse_Discover_ShouldBeSuccessful(t *testing.T) {

	assert := assert.New(t)

	mockClient := &mockHTTPClient{}
	mockClient.On("Do", mock.MatchedBy(func(req *http.Request) bool {
		return req.URL.String() == "https://boards-api.greenhouse.io/v1/boards/acme/jobs?content=true"
	})).Return(responseFromFile(t, "testdata/greenhouse_jobs.json"), nil)

	adapter := NewGreenhouse()
	adapter.SetHTTPClient(mockClient)

	postings, err := adapter.Discover(context.Background(),
		models.Company{Name: "Acme", BoardToken: "acme", Platform: models.PlatformGreenhouse})
	assert.NoError(err)

	assert.Len(postings, 2)
	assert.Equal("4567890", postings[0].ExternalID)
	assert.Equal("Senior Backend Engineer", postings[0].Title)
	assert.Equal("Remote - US", postings[0].Location)
	assert.Equal("Engineering", postings[0].Department)
	assert.Equal("$170,000 - $210,000", postings[0].Salary)
	assert.Equal("Full-time", postings[0].EmploymentType)
	assert.NotNil(postings[0].PostedAt)
	assert.Equal(models.FormatHTML, postings[0].Format)
}

func Test_Greenhouse_Discover_UnknownBoardReturnsNotFound(t *testing.T) {

	mockClient := &mockHTTPClient{}
	mockClient.On("Do", mock.Anything).Return(emptyResponse(404), nil)

	adapter := NewGreenhouse()
	adapter.SetHTTPClient(mockClient)

	_, err := adapter.Discover(context.Background(),
		models.Company{Name: "Ghost", BoardToken: "ghost"})
	assert.ErrorIs(t, err, ErrBoardNotFound)
	assert.Equal(t, resilience.KindNotFound, resilience.KindOf(err))
}

func Test_Greenhouse_Discover_ServerErrorIsTransient(t *testing.T) {

	mockClient := &mockHTTPClient{}
	mockClient.On("Do", mock.Anything).Return(emptyResponse(503), nil)

	adapter := NewGreenhouse()
	adapter.SetHTTPClient(mockClient)

	_, err := adapter.Discover(context.Background(),
		models.Company{Name: "Acme", BoardToken: "acme"})
	assert.True(t, resilience.IsRetryable(err))
}

func Test_Lever_Discover_ShouldBeSuccessful(t *testing.T) {

	assert := assert.New(t)

	mockClient := &mockHTTPClient{}
	mockClient.On("Do", mock.MatchedBy(func(req *http.Request) bool {
		return req.URL.String() == "https://api.lever.co/v0/postings/acme?mode=json&skip=0&limit=100"
	})).Return(responseFromFile(t, "testdata/lever_postings.json"), nil)

	adapter := NewLever()
	adapter.SetHTTPClient(mockClient)

	postings, err := adapter.Discover(context.Background(),
		models.Company{Name: "Acme", CareersURL: "https://jobs.lever.co/acme"})
	assert.NoError(err)

	assert.Len(postings, 2)
	assert.Equal("a1b2c3d4-0001", postings[0].ExternalID)
	assert.Equal("Staff Software Engineer, Platform", postings[0].Title)
	assert.Equal("hybrid", postings[0].LocationType)
	assert.Equal("Platform", postings[0].Department)
	assert.Equal("180000-230000 USD", postings[0].Salary)
	assert.Equal("", postings[1].Salary)
}

func Test_Registry_ResolvesExplicitAndDetectedPlatforms(t *testing.T) {

	registry := NewRegistry(NewGreenhouse(), NewLever())

	adapter, err := registry.For(models.Company{Platform: models.PlatformLever})
	assert.NoError(t, err)
	assert.Equal(t, models.PlatformLever, adapter.Platform())

	adapter, err = registry.For(models.Company{CareersURL: "https://boards.greenhouse.io/acme"})
	assert.NoError(t, err)
	assert.Equal(t, models.PlatformGreenhouse, adapter.Platform())

	_, err = registry.For(models.Company{CareersURL: "https://careers.example.com"})
	assert.Error(t, err)
	assert.Equal(t, resilience.KindPermanent, resilience.KindOf(err))
}
