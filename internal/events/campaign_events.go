package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
)

// EventType is the kind of domain event published on the campaign events topic.
type EventType string

const (
	// Campaign lifecycle
	EventCampaignCreated  EventType = "CAMPAIGN_CREATED"
	EventCampaignUpdated  EventType = "CAMPAIGN_UPDATED"
	EventCampaignDeleted  EventType = "CAMPAIGN_DELETED"
	EventCampaignLaunched EventType = "CAMPAIGN_LAUNCHED"

	// Sync
	EventMetricsSynced EventType = "CAMPAIGN_METRICS_SYNCED"
	EventLeadsSynced   EventType = "LEADS_SYNCED"

	// Platform connections
	EventPlatformConnected    EventType = "PLATFORM_CONNECTED"
	EventPlatformDisconnected EventType = "PLATFORM_DISCONNECTED"
)

// CampaignEvent is a domain event published to Kafka
type CampaignEvent struct {
	EventID    string                 `json:"event_id"`
	Timestamp  int64                  `json:"timestamp"`
	Type       EventType              `json:"type"`
	UserID     string                 `json:"user_id"`
	CampaignID string                 `json:"campaign_id,omitempty"`
	Platform   string                 `json:"platform,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// JSONProducer is the part of the Kafka producer the publishers use.
type JSONProducer interface {
	PublishJSON(ctx context.Context, topic, key string, data interface{}) error
}

// CampaignPublisher publishes domain events to Kafka
type CampaignPublisher struct {
	producer JSONProducer
	topic    string
	enabled  bool
}

// NewCampaignPublisher creates a publisher; a nil producer logs events only.
func NewCampaignPublisher(producer JSONProducer, topic string) *CampaignPublisher {
	enabled := producer != nil
	if enabled {
		log.Printf("Campaign event publisher initialized (Kafka enabled, topic %s)", topic)
	} else {
		log.Println("Campaign event publisher initialized (Kafka disabled - events will be logged only)")
	}
	return &CampaignPublisher{
		producer: producer,
		topic:    topic,
		enabled:  enabled,
	}
}

// Publish sends an event to Kafka (fire-and-forget)
func (p *CampaignPublisher) Publish(event *CampaignEvent) {
	if event.EventID == "" {
		event.EventID = newEventID()
	}
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}

	// Always log the event
	eventJSON, _ := json.Marshal(event)
	log.Printf("EVENT: %s", string(eventJSON))

	if p == nil || !p.enabled {
		return
	}

	// Keyed by campaign so one campaign's events stay ordered
	key := event.CampaignID
	if key == "" {
		key = event.UserID
	}
	go func() {
		if err := p.producer.PublishJSON(context.Background(), p.topic, key, event); err != nil {
			log.Printf("Failed to publish %s event: %v", event.Type, err)
		}
	}()
}

func newEventID() string {
	return uuid.New().String()
}
