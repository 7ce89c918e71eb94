package stream

import (
	"testing"

	"transient-filter/internal/schema"
)

func TestNewKafkaSource_Validation(t *testing.T) {
	mapper, err := schema.ForSurvey("ztf")
	if err != nil {
		t.Fatalf("ForSurvey: %v", err)
	}

	tests := []struct {
		name string
		opts KafkaSourceOptions
	}{
		{"no brokers", KafkaSourceOptions{Topic: "ztf-alerts", GroupID: "filter", Mapper: mapper}},
		{"no topic", KafkaSourceOptions{Brokers: []string{"localhost:9092"}, GroupID: "filter", Mapper: mapper}},
		{"no group", KafkaSourceOptions{Brokers: []string{"localhost:9092"}, Topic: "ztf-alerts", Mapper: mapper}},
		{"no mapper", KafkaSourceOptions{Brokers: []string{"localhost:9092"}, Topic: "ztf-alerts", GroupID: "filter"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewKafkaSource(tt.opts); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}
