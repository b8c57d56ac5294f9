package adapters

import (
	"strings"

	"github.com/jobscout/jobscout/internal/domain/models"
)

// DetectPlatform classifies a careers URL into a platform by hostname
// patterns. Pure string matching, no network.
func DetectPlatform(careersURL string) models.Platform {
	url := strings.ToLower(careersURL)

	switch {
	case strings.Contains(url, "greenhouse.io"):
		return models.PlatformGreenhouse
	case strings.Contains(url, "lever.co"):
		return models.PlatformLever
	case strings.Contains(url, "ashbyhq.com"):
		return models.PlatformAshby
	case strings.Contains(url, "myworkdayjobs.com") || strings.Contains(url, "workday.com"):
		return models.PlatformWorkday
	case strings.Contains(url, "eightfold.ai"):
		return models.PlatformEightfold
	case strings.Contains(url, "uber.com"):
		return models.PlatformUber
	case url == "":
		return models.PlatformUnknown
	default:
		return models.PlatformCustom
	}
}

// BoardToken returns the company's explicit board token, falling back to
// the last meaningful path segment of the careers URL. Greenhouse and
// Lever both key their public APIs by this slug.
func BoardToken(company models.Company) string {
	if company.BoardToken != "" {
		return company.BoardToken
	}

	url := strings.TrimSuffix(company.CareersURL, "/")
	if idx := strings.Index(url, "?"); idx != -1 {
		url = url[:idx]
	}

	segments := strings.Split(url, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segment := strings.TrimSpace(segments[i]); segment != "" && !strings.Contains(segment, ".") {
			return segment
		}
	}
	return ""
}
