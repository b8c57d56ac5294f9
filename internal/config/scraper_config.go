package config

import (
	"github.com/spf13/viper"
)

type ScraperConfig struct {
	// Schedule is a cron spec for unattended full scrapes, e.g. "@every 6h".
	// Empty disables scheduled scraping.
	Schedule                  string  `mapstructure:"schedule"`
	BoardMaxRequestsPerSecond float32 `mapstructure:"board_max_requests_per_second"`
}

func (config ScraperConfig) bindEnvironmentVariables() error {
	var errs []error

	if err := viper.BindEnv("scraper.schedule", "SCRAPE_SCHEDULE"); err != nil {
		errs = append(errs, err)
	}

	if err := viper.BindEnv("scraper.board_max_requests_per_second", "BOARD_MAX_REQUESTS_PER_SECOND"); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return createMultiError(errs)
	}

	return nil
}
