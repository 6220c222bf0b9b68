package aws

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwTypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/inconshreveable/log15"

	"github.com/diillson/sandbox-cost-collector/internal/domain/entity"
	"github.com/diillson/sandbox-cost-collector/internal/domain/repository"
)

const metricsNamespace = "SandboxCostCollector"

type cloudWatchAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// MetricsRepositoryImpl implementa o MetricsRepository sobre o CloudWatch.
// Métricas nunca derrubam uma coleta: falhas são logadas e engolidas.
type MetricsRepositoryImpl struct {
	client cloudWatchAPI
	log    log15.Logger
}

// NewMetricsRepository cria uma nova implementação do MetricsRepository.
func NewMetricsRepository(cfg aws.Config, logger log15.Logger) repository.MetricsRepository {
	return &MetricsRepositoryImpl{
		client: cloudwatch.NewFromConfig(cfg),
		log:    logger,
	}
}

func (r *MetricsRepositoryImpl) RecordCollection(ctx context.Context, m entity.CollectionMetrics) {
	now := time.Now()
	dims := []cwTypes.Dimension{
		{Name: aws.String("AccountId"), Value: aws.String(m.AccountID)},
	}

	_, err := r.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(metricsNamespace),
		MetricData: []cwTypes.MetricDatum{
			{
				MetricName: aws.String("TotalCost"),
				Value:      aws.Float64(m.TotalCost),
				Unit:       cwTypes.StandardUnitNone,
				Timestamp:  aws.Time(now),
				Dimensions: dims,
			},
			{
				MetricName: aws.String("ResourceCount"),
				Value:      aws.Float64(float64(m.ResourceCount)),
				Unit:       cwTypes.StandardUnitCount,
				Timestamp:  aws.Time(now),
				Dimensions: dims,
			},
			{
				MetricName: aws.String("ProcessingDuration"),
				Value:      aws.Float64(float64(m.Duration.Milliseconds())),
				Unit:       cwTypes.StandardUnitMilliseconds,
				Timestamp:  aws.Time(now),
				Dimensions: dims,
			},
		},
	})
	if err != nil {
		r.log.Warn("failed to record collection metrics", "accountId", m.AccountID, "error", err)
	}
}
