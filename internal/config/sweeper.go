package config

import "time"

// SweeperConfig controls how often the background reminder and no-show
// passes run.  All intervals are overridable so test and staging
// deployments can run the sweeper hot.
type SweeperConfig struct {
	Reminder24hEvery time.Duration
	Reminder2hEvery  time.Duration
	NoShowEvery      time.Duration
}

// LoadSweeperConfig reads the sweeper intervals from the environment,
// falling back to the production cadence.
func LoadSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Reminder24hEvery: envDur("SWEEP_REMINDER_24H_EVERY", time.Hour),
		Reminder2hEvery:  envDur("SWEEP_REMINDER_2H_EVERY", 30*time.Minute),
		NoShowEvery:      envDur("SWEEP_NO_SHOW_EVERY", 24*time.Hour),
	}
}
