package domain

import (
	"maps"
	"strconv"
)

// Setting keys persisted by the engine. Boolean-typed settings store the
// literal strings "true"/"false".
const (
	SettingDownloadPath       = "download_path"
	SettingMaxConcurrent      = "max_concurrent"
	SettingMaxConnections     = "max_connections"
	SettingAutoStart          = "auto_start"
	SettingNotifications      = "notifications"
	SettingSpeedLimit         = "speed_limit"
	SettingAutocatchEnabled   = "autocatch_enabled"
	SettingOpenFolderOnFinish = "open_folder_on_finish"
	SettingShutdownOnFinish   = "shutdown_on_finish"
	SettingSoundOnFinish      = "sound_on_finish"
	SettingTheme              = "theme"
	SettingSchedulerEnabled   = "scheduler_enabled"
	SettingSchedulerStartTime = "scheduler_start_time"
	SettingSchedulerPauseTime = "scheduler_pause_time"
	SettingCategoryFilter     = "category_filter"
	SettingCookieBrowser      = "cookie_browser"
	SettingAskLocation        = "ask_location"
	SettingAutoOrganize       = "auto_organize"
)

// DefaultSettings returns the engine's seed values. The client falls back to
// these when the first load fails, so the UI stays usable offline.
func DefaultSettings() Snapshot {
	return Snapshot{
		SettingDownloadPath:       "",
		SettingMaxConcurrent:      "3",
		SettingMaxConnections:     "8",
		SettingAutoStart:          "true",
		SettingNotifications:      "true",
		SettingSpeedLimit:         "0",
		SettingAutocatchEnabled:   "true",
		SettingOpenFolderOnFinish: "false",
		SettingShutdownOnFinish:   "false",
		SettingSoundOnFinish:      "false",
		SettingTheme:              "dark",
		SettingSchedulerEnabled:   "false",
		SettingSchedulerStartTime: "02:00",
		SettingSchedulerPauseTime: "08:00",
		SettingCategoryFilter:     "All",
		SettingCookieBrowser:      "none",
		SettingAskLocation:        "false",
		SettingAutoOrganize:       "false",
	}
}

// Snapshot is the complete current value of all settings, held as one unit.
// Exactly one authoritative snapshot is live per process; copies handed to
// subscribers are value-independent.
type Snapshot map[string]string

// Clone returns an independent copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	c := make(Snapshot, len(s))
	maps.Copy(c, s)
	return c
}

// Str returns the value for key, or def when absent.
func (s Snapshot) Str(key, def string) string {
	if v, ok := s[key]; ok {
		return v
	}
	return def
}

// Bool returns the boolean value for key, or def when absent or malformed.
func (s Snapshot) Bool(key string, def bool) bool {
	v, ok := s[key]
	if !ok {
		return def
	}
	return v == "true"
}

// Int returns the integer value for key, or def when absent or malformed.
func (s Snapshot) Int(key string, def int) int {
	v, ok := s[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
