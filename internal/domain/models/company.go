package models

import (
	"errors"
	"time"
)

type Platform string

const (
	PlatformGreenhouse Platform = "greenhouse"
	PlatformLever      Platform = "lever"
	PlatformAshby      Platform = "ashby"
	PlatformWorkday    Platform = "workday"
	PlatformEightfold  Platform = "eightfold"
	PlatformUber       Platform = "uber"
	PlatformCustom     Platform = "custom"
	PlatformUnknown    Platform = ""
)

func ToPlatform(s string) (Platform, error) {
	switch s {
	case string(PlatformGreenhouse), string(PlatformLever), string(PlatformAshby),
		string(PlatformWorkday), string(PlatformEightfold), string(PlatformUber),
		string(PlatformCustom), string(PlatformUnknown):
		return Platform(s), nil
	default:
		return "", errors.New("invalid platform")
	}
}

type Company struct {
	ID         int
	Name       string
	CareersURL string
	Platform   Platform
	BoardToken string
	Active     bool `gorm:"default:true"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
