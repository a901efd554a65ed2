package config

import "github.com/purelink/purelink/internal/utils"

// Toggle is the persisted monitoring switch. Every read goes to disk so a
// change made by another process (CLI, API) is seen on the next event.
type Toggle struct{}

// Enabled reports whether clipboard monitoring is on. Unreadable settings
// count as the default (on).
func (Toggle) Enabled() bool {
	s, err := LoadSettings()
	if err != nil {
		utils.Debug("Toggle: failed to load settings: %v", err)
		return DefaultSettings().General.MonitoringActive
	}
	return s.General.MonitoringActive
}

// SetEnabled persists the monitoring switch.
func (Toggle) SetEnabled(enabled bool) error {
	_, err := UpdateSettings(func(s *Settings) {
		s.General.MonitoringActive = enabled
	})
	return err
}

// Flip inverts the switch and returns the new value.
func (t Toggle) Flip() (bool, error) {
	var now bool
	_, err := UpdateSettings(func(s *Settings) {
		s.General.MonitoringActive = !s.General.MonitoringActive
		now = s.General.MonitoringActive
	})
	return now, err
}
