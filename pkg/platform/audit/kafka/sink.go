// Package kafka adapts the audit Sink interface onto a Kafka producer so
// events fan out to downstream consumers (compliance archive, ops dashboards).
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"benefitflow/pkg/platform/audit"
)

// Producer is the narrow slice of the Kafka producer the sink needs.
type Producer interface {
	Produce(ctx context.Context, topic string, key, value []byte) error
}

// Sink publishes audit events as JSON records keyed by workflow ID so all
// events of one workflow land in the same partition, preserving order.
type Sink struct {
	producer Producer
	topic    string
}

func NewSink(producer Producer, topic string) *Sink {
	if topic == "" {
		topic = audit.Topic
	}
	return &Sink{producer: producer, topic: topic}
}

// wireEvent is the published representation. Field names are part of the
// consumer contract; do not rename without versioning the topic.
type wireEvent struct {
	Timestamp  time.Time `json:"timestamp"`
	ProfileID  string    `json:"profile_id,omitempty"`
	WorkflowID string    `json:"workflow_id,omitempty"`
	StepID     string    `json:"step_id,omitempty"`
	SchemeID   string    `json:"scheme_id,omitempty"`
	Action     string    `json:"action"`
	Decision   string    `json:"decision,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
}

func (s *Sink) Append(ctx context.Context, e audit.Event) error {
	payload, err := json.Marshal(wireEvent{
		Timestamp:  e.Timestamp,
		ProfileID:  stringOrEmpty(e.ProfileID.IsNil(), e.ProfileID.String()),
		WorkflowID: stringOrEmpty(e.WorkflowID.IsNil(), e.WorkflowID.String()),
		StepID:     stringOrEmpty(e.StepID.IsNil(), e.StepID.String()),
		SchemeID:   e.SchemeID.String(),
		Action:     e.Action,
		Decision:   e.Decision,
		Reason:     e.Reason,
		RequestID:  e.RequestID,
	})
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	key := []byte(e.WorkflowID.String())
	if e.WorkflowID.IsNil() {
		key = []byte(e.ProfileID.String())
	}
	return s.producer.Produce(ctx, s.topic, key, payload)
}

func stringOrEmpty(isNil bool, s string) string {
	if isNil {
		return ""
	}
	return s
}
