package models

import "time"

// SettingsRowID is the primary key of the single settings row.
const SettingsRowID = 1

// Settings are the runtime-tunable reputation gates.
type Settings struct {
	SettingsID          uint `gorm:"column:settings_id;primaryKey;autoIncrement:false" json:"-"`
	StartingReputation  int  `gorm:"not null" json:"starting_reputation"`
	UnlistedThreshold   int  `gorm:"not null" json:"unlisted_threshold"`
	AutoReportEnabled   bool `gorm:"not null" json:"auto_report_enabled"`
	AutoReportThreshold int  `gorm:"not null" json:"auto_report_threshold"`
}

func (Settings) TableName() string {
	return "settings"
}

// PlatformDefaults is the static configuration threaded into the engines.
type PlatformDefaults struct {
	Settings         Settings
	DefaultAvatar    string
	RegistrationTTL  time.Duration
	ReportLease      time.Duration
	AuthCodeTTL      time.Duration
	FeedRadiusMeters float64
}

// DefaultPlatform returns the values used when nothing is configured.
func DefaultPlatform() PlatformDefaults {
	return PlatformDefaults{
		Settings: Settings{
			SettingsID:          SettingsRowID,
			StartingReputation:  0,
			UnlistedThreshold:   -10,
			AutoReportEnabled:   true,
			AutoReportThreshold: -20,
		},
		DefaultAvatar:    "core/user.png",
		RegistrationTTL:  24 * time.Hour,
		ReportLease:      15 * time.Minute,
		AuthCodeTTL:      15 * time.Minute,
		FeedRadiusMeters: 10000,
	}
}
