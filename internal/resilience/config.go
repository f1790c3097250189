package resilience

import "time"

// Circuit breaker configuration constants
const (
	// Default configuration
	DefaultThreshold         = 5
	DefaultResetTimeout      = 30 * time.Second
	DefaultHalfOpenSuccesses = 3

	// Recognition: the detection loop runs several times a second, so a dead
	// recognizer should be skipped quickly and probed again soon.
	RecognitionThreshold         = 3
	RecognitionResetTimeout      = 5 * time.Second
	RecognitionHalfOpenSuccesses = 2
)

// Config holds circuit breaker settings.
type Config struct {
	Name              string        // used in logs and snapshots
	Threshold         int           // consecutive outages before opening
	ResetTimeout      time.Duration // wait before letting a probe through
	HalfOpenSuccesses int           // healthy probes needed to close
	Classify          func(error) Outcome
}

// DefaultConfig returns production-ready defaults.
func DefaultConfig() Config {
	return Config{
		Threshold:         DefaultThreshold,
		ResetTimeout:      DefaultResetTimeout,
		HalfOpenSuccesses: DefaultHalfOpenSuccesses,
		Classify:          ClassifyOutage,
	}
}

// RecognitionConfig returns settings for the text recognition backend.
func RecognitionConfig() Config {
	return Config{
		Name:              "recognition",
		Threshold:         RecognitionThreshold,
		ResetTimeout:      RecognitionResetTimeout,
		HalfOpenSuccesses: RecognitionHalfOpenSuccesses,
		Classify:          ClassifyOutage,
	}
}

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.Threshold <= 0 {
		c.Threshold = DefaultThreshold
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = DefaultResetTimeout
	}
	if c.HalfOpenSuccesses <= 0 {
		c.HalfOpenSuccesses = DefaultHalfOpenSuccesses
	}
	if c.Classify == nil {
		c.Classify = ClassifyOutage
	}
	return c
}
