package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SyncKind selects what a queued sync request refreshes.
type SyncKind string

const (
	SyncMetrics SyncKind = "metrics"
	SyncLeads   SyncKind = "leads"
)

// ErrQueueDisabled is returned when no Kafka producer is configured.
var ErrQueueDisabled = errors.New("sync queue is not configured")

// SyncRequest asks the processor to run a sync on behalf of a requester.
type SyncRequest struct {
	RequestID   string   `json:"requestId"`
	CampaignID  string   `json:"campaignId"`
	RequesterID string   `json:"requesterId"`
	Role        string   `json:"role"`
	Kind        SyncKind `json:"kind"`
	RequestedAt int64    `json:"requestedAt"`
}

func (r SyncRequest) validate() error {
	if r.CampaignID == "" {
		return fmt.Errorf("sync request without campaignId")
	}
	if r.RequesterID == "" {
		return fmt.Errorf("sync request without requesterId")
	}
	if r.Kind != SyncMetrics && r.Kind != SyncLeads {
		return fmt.Errorf("unknown sync kind %q", r.Kind)
	}
	return nil
}

// DecodeSyncRequest parses and validates a message from the sync topic.
func DecodeSyncRequest(value []byte) (SyncRequest, error) {
	var req SyncRequest
	if err := json.Unmarshal(value, &req); err != nil {
		return req, fmt.Errorf("invalid sync request: %w", err)
	}
	if err := req.validate(); err != nil {
		return req, err
	}
	return req, nil
}

// SyncQueue enqueues sync requests for the processor.
type SyncQueue struct {
	producer JSONProducer
	topic    string
	timeout  time.Duration
}

func NewSyncQueue(producer JSONProducer, topic string) *SyncQueue {
	return &SyncQueue{producer: producer, topic: topic, timeout: 5 * time.Second}
}

// Enabled reports whether requests can be queued.
func (q *SyncQueue) Enabled() bool {
	return q != nil && q.producer != nil
}

// Enqueue waits for Kafka to acknowledge the request.
func (q *SyncQueue) Enqueue(ctx context.Context, req SyncRequest) (SyncRequest, error) {
	if !q.Enabled() {
		return req, ErrQueueDisabled
	}
	if req.RequestID == "" {
		req.RequestID = newEventID()
	}
	if req.RequestedAt == 0 {
		req.RequestedAt = time.Now().Unix()
	}
	if err := req.validate(); err != nil {
		return req, err
	}

	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()
	if err := q.producer.PublishJSON(ctx, q.topic, req.CampaignID, req); err != nil {
		return req, fmt.Errorf("failed to queue %s sync: %w", req.Kind, err)
	}
	return req, nil
}
