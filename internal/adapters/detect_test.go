package adapters

import (
	"testing"

	"github.com/jobscout/jobscout/internal/domain/models"
	"github.com/stretchr/testify/assert"
)

func Test_DetectPlatform(t *testing.T) {

	cases := []struct {
		url      string
		expected models.Platform
	}{
		{"https://boards.greenhouse.io/acme", models.PlatformGreenhouse},
		{"https://jobs.lever.co/acme", models.PlatformLever},
		{"https://jobs.ashbyhq.com/acme", models.PlatformAshby},
		{"https://acme.wd1.myworkdayjobs.com/External", models.PlatformWorkday},
		{"https://careers.eightfold.ai/acme", models.PlatformEightfold},
		{"https://www.uber.com/us/en/careers/list/", models.PlatformUber},
		{"https://careers.example.com/jobs", models.PlatformCustom},
		{"", models.PlatformUnknown},
	}

	for _, c := range cases {
		assert.Equal(t, c.expected, DetectPlatform(c.url), c.url)
	}
}

func Test_BoardToken(t *testing.T) {

	explicit := models.Company{BoardToken: "acme-board", CareersURL: "https://jobs.lever.co/other"}
	assert.Equal(t, "acme-board", BoardToken(explicit))

	fromURL := models.Company{CareersURL: "https://boards.greenhouse.io/acme/"}
	assert.Equal(t, "acme", BoardToken(fromURL))

	withQuery := models.Company{CareersURL: "https://jobs.lever.co/acme?lever-source=site"}
	assert.Equal(t, "acme", BoardToken(withQuery))

	assert.Equal(t, "", BoardToken(models.Company{}))
}
