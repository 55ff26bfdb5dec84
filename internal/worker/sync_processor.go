package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/white/campaign-manager/internal/events"
	"github.com/white/campaign-manager/internal/models"
	"github.com/white/campaign-manager/internal/services"
)

type MetricsSyncer interface {
	SyncMetrics(ctx context.Context, req services.Requester, id string) (*services.CampaignResult, error)
}

type LeadSyncer interface {
	SyncCampaignLeads(ctx context.Context, req services.Requester, campaignID string) (*services.LeadSyncResult, error)
}

// SyncProcessor runs queued sync requests with the requester's permissions.
type SyncProcessor struct {
	campaigns MetricsSyncer
	leads     LeadSyncer
}

func NewSyncProcessor(campaigns MetricsSyncer, leads LeadSyncer) *SyncProcessor {
	return &SyncProcessor{campaigns: campaigns, leads: leads}
}

// HandleMessage is a kafka.MessageHandler. Malformed requests and requests
// the service rejects are logged and acknowledged; anything else is returned
// so the consumer seeks back and redelivers the request.
func (p *SyncProcessor) HandleMessage(ctx context.Context, key, value []byte) error {
	req, err := events.DecodeSyncRequest(value)
	if err != nil {
		log.Printf("Dropping sync request %s: %v", string(key), err)
		return nil
	}

	requester := services.Requester{
		UserID: req.RequesterID,
		Role:   models.UserRole(strings.ToLower(req.Role)),
	}

	switch req.Kind {
	case events.SyncMetrics:
		result, err := p.campaigns.SyncMetrics(ctx, requester, req.CampaignID)
		if err != nil {
			return p.failed(req, err)
		}
		log.Printf("Synced metrics for campaign %s (request %s, %d platform errors)", req.CampaignID, req.RequestID, len(result.PlatformErrors))
	case events.SyncLeads:
		result, err := p.leads.SyncCampaignLeads(ctx, requester, req.CampaignID)
		if err != nil {
			return p.failed(req, err)
		}
		log.Printf("Synced %d new leads for campaign %s (request %s, %d platform errors)", result.NewLeads, req.CampaignID, req.RequestID, len(result.PlatformErrors))
	}
	return nil
}

func (p *SyncProcessor) failed(req events.SyncRequest, err error) error {
	var serviceErr *services.ServiceError
	if errors.As(err, &serviceErr) {
		log.Printf("Sync request %s for campaign %s rejected: %v", req.RequestID, req.CampaignID, err)
		return nil
	}
	return fmt.Errorf("%s sync of campaign %s: %w", req.Kind, req.CampaignID, err)
}
