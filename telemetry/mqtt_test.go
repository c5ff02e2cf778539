package telemetry

import (
	"context"
	"testing"
)

func TestNew_Defaults(t *testing.T) {
	s := New(Config{
		Broker: "tcp://localhost:1883",
		RunID:  "test",
	})

	if s.cfg.TopicPrefix != DefaultTopicPrefix {
		t.Errorf("expected default topic prefix %q, got %q", DefaultTopicPrefix, s.cfg.TopicPrefix)
	}
	if s.log == nil {
		t.Error("expected logger to be set")
	}
}

func TestNew_CustomConfig(t *testing.T) {
	s := New(Config{
		Broker:      "tcp://broker.example.com:1883",
		Username:    "user",
		Password:    "pass",
		TopicPrefix: "custom",
		RunID:       "run-42",
	})

	if s.cfg.TopicPrefix != "custom" {
		t.Errorf("expected topic prefix %q, got %q", "custom", s.cfg.TopicPrefix)
	}
	if s.cfg.RunID != "run-42" {
		t.Errorf("expected run ID %q, got %q", "run-42", s.cfg.RunID)
	}
	if s.topic() != "custom/run-42" {
		t.Errorf("topic() = %q, want %q", s.topic(), "custom/run-42")
	}
}

func TestStart_MissingBroker(t *testing.T) {
	s := New(Config{RunID: "test"})
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("expected error with empty broker")
	}
}

func TestStart_MissingRunID(t *testing.T) {
	s := New(Config{Broker: "tcp://localhost:1883"})
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("expected error with empty run ID")
	}
}
