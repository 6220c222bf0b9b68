package aws

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	ebTypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/inconshreveable/log15"

	"github.com/diillson/sandbox-cost-collector/internal/domain/entity"
	"github.com/diillson/sandbox-cost-collector/internal/domain/repository"
)

const reportReadyDetailType = "ReportReady"

type eventBridgeAPI interface {
	PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// NotificationRepositoryImpl implementa o NotificationRepository sobre o
// EventBridge.
type NotificationRepositoryImpl struct {
	client  eventBridgeAPI
	busName string
	source  string
	log     log15.Logger
}

// NewNotificationRepository cria uma nova implementação do NotificationRepository.
func NewNotificationRepository(cfg aws.Config, busName, source string, logger log15.Logger) repository.NotificationRepository {
	return &NotificationRepositoryImpl{
		client:  eventbridge.NewFromConfig(cfg),
		busName: busName,
		source:  source,
		log:     logger,
	}
}

func (r *NotificationRepositoryImpl) PublishReportReady(ctx context.Context, event entity.ReportReadyEvent) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("refusing to publish malformed event: %w", err)
	}

	detail, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal report-ready event: %w", err)
	}

	out, err := r.client.PutEvents(ctx, &eventbridge.PutEventsInput{
		Entries: []ebTypes.PutEventsRequestEntry{
			{
				EventBusName: aws.String(r.busName),
				Source:       aws.String(r.source),
				DetailType:   aws.String(reportReadyDetailType),
				Detail:       aws.String(string(detail)),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to publish report-ready event: %w", err)
	}

	// PutEvents reporta falhas parciais no corpo da resposta, não como erro.
	if out.FailedEntryCount > 0 {
		entry := out.Entries[0]
		return fmt.Errorf("report-ready event rejected by bus %s: %s: %s",
			r.busName, aws.ToString(entry.ErrorCode), aws.ToString(entry.ErrorMessage))
	}

	r.log.Info("report-ready event published", "bus", r.busName, "leaseId", event.LeaseID)
	return nil
}
