package config

import "fmt"

// Resource names follow the broker convention {survey}-{purpose}[-{testid}]:
// a test deployment suffixes every topic with its TESTID so test traffic
// never mixes with production.

// ChannelTopics returns the intra-night and inter-night discovery topic
// names for a survey.
func ChannelTopics(survey, testid string) (intra, inter string) {
	return resourceName(survey, "discoveries-intra", testid),
		resourceName(survey, "discoveries-inter", testid)
}

// AlertsTopic returns the incoming alert topic name for a survey.
func AlertsTopic(survey, testid string) string {
	return resourceName(survey, "alerts", testid)
}

// ResolvedAlertsTopic returns the configured alerts topic, deriving the
// conventional name when the configuration leaves it empty.
func (c *Config) ResolvedAlertsTopic() string {
	if c.Kafka.AlertsTopic != "" {
		return c.Kafka.AlertsTopic
	}
	return AlertsTopic(c.Survey, c.TestID)
}

func resourceName(survey, purpose, testid string) string {
	name := fmt.Sprintf("%s-%s", survey, purpose)
	if testid != "" {
		name = fmt.Sprintf("%s-%s", name, testid)
	}
	return name
}
