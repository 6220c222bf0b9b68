package aws

import (
	"context"
	"fmt"
	"testing"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	ceTypes "github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"github.com/aws/smithy-go"
	"github.com/inconshreveable/log15"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diillson/sandbox-cost-collector/internal/domain/entity"
	"github.com/diillson/sandbox-cost-collector/internal/shared/types"
)

type fakeCostExplorer struct {
	getCostAndUsage     func(*costexplorer.GetCostAndUsageInput) (*costexplorer.GetCostAndUsageOutput, error)
	getWithResources    func(*costexplorer.GetCostAndUsageWithResourcesInput) (*costexplorer.GetCostAndUsageWithResourcesOutput, error)
	costAndUsageCalls   int
	withResourcesCalls  int
	withResourcesInputs []*costexplorer.GetCostAndUsageWithResourcesInput
}

func (f *fakeCostExplorer) GetCostAndUsage(ctx context.Context, params *costexplorer.GetCostAndUsageInput, optFns ...func(*costexplorer.Options)) (*costexplorer.GetCostAndUsageOutput, error) {
	f.costAndUsageCalls++
	return f.getCostAndUsage(params)
}

func (f *fakeCostExplorer) GetCostAndUsageWithResources(ctx context.Context, params *costexplorer.GetCostAndUsageWithResourcesInput, optFns ...func(*costexplorer.Options)) (*costexplorer.GetCostAndUsageWithResourcesOutput, error) {
	f.withResourcesCalls++
	f.withResourcesInputs = append(f.withResourcesInputs, params)
	return f.getWithResources(params)
}

func discardLogger() log15.Logger {
	logger := log15.New()
	logger.SetHandler(log15.DiscardHandler())
	return logger
}

func newTestAggregator(api costExplorerAPI) *costAggregator {
	return &costAggregator{
		api:       api,
		accountID: "123456789012",
		log:       discardLogger(),
		pageDelay: 0,
		maxPages:  maxResultPages,
	}
}

func group(amount string, keys ...string) ceTypes.Group {
	return ceTypes.Group{
		Keys: keys,
		Metrics: map[string]ceTypes.MetricValue{
			metricUnblendedCost: {Amount: awssdk.String(amount), Unit: awssdk.String("USD")},
		},
	}
}

func usagePage(next *string, groups ...ceTypes.Group) *costexplorer.GetCostAndUsageOutput {
	return &costexplorer.GetCostAndUsageOutput{
		ResultsByTime: []ceTypes.ResultByTime{{Groups: groups}},
		NextPageToken: next,
	}
}

func resourcePage(next *string, groups ...ceTypes.Group) *costexplorer.GetCostAndUsageWithResourcesOutput {
	return &costexplorer.GetCostAndUsageWithResourcesOutput{
		ResultsByTime: []ceTypes.ResultByTime{{Groups: groups}},
		NextPageToken: next,
	}
}

var testWindow = entity.BillingWindow{StartDate: "2026-01-20", EndDate: "2026-02-03"}

func TestResourceWindowItemsSumsDecimalsAcrossPages(t *testing.T) {
	// 10 daily results of $0.10 for the same resource must come out as
	// exactly 1, not 0.9999999999.
	fake := &fakeCostExplorer{}
	fake.getCostAndUsage = func(in *costexplorer.GetCostAndUsageInput) (*costexplorer.GetCostAndUsageOutput, error) {
		return usagePage(nil, group("1.0", "Amazon S3")), nil
	}
	fake.getWithResources = func(in *costexplorer.GetCostAndUsageWithResourcesInput) (*costexplorer.GetCostAndUsageWithResourcesOutput, error) {
		groups := make([]ceTypes.Group, 10)
		for i := range groups {
			groups[i] = group("0.1", "bucket-1", "us-east-1")
		}
		return resourcePage(nil, groups...), nil
	}

	items, err := newTestAggregator(fake).resourceWindowItems(context.Background(), testWindow)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "1", items[0].Cost)
	assert.Equal(t, "bucket-1", items[0].ResourceName)
	assert.Equal(t, "Amazon S3", items[0].ServiceName)
	assert.Equal(t, "us-east-1", items[0].Region)
}

func TestResourceWindowItemsSkipsZeroCostServices(t *testing.T) {
	fake := &fakeCostExplorer{}
	fake.getCostAndUsage = func(in *costexplorer.GetCostAndUsageInput) (*costexplorer.GetCostAndUsageOutput, error) {
		return usagePage(nil, group("0", "Amazon SQS"), group("2.5", "Amazon EC2")), nil
	}
	fake.getWithResources = func(in *costexplorer.GetCostAndUsageWithResourcesInput) (*costexplorer.GetCostAndUsageWithResourcesOutput, error) {
		return resourcePage(nil, group("2.5", "i-abc", "us-east-1")), nil
	}

	items, err := newTestAggregator(fake).resourceWindowItems(context.Background(), testWindow)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, fake.withResourcesCalls, "zero-cost services must not be queried")
}

func TestResourceWindowItemsLabelsMissingResourceAndRegion(t *testing.T) {
	fake := &fakeCostExplorer{}
	fake.getCostAndUsage = func(in *costexplorer.GetCostAndUsageInput) (*costexplorer.GetCostAndUsageOutput, error) {
		return usagePage(nil, group("3", "AWS Support")), nil
	}
	fake.getWithResources = func(in *costexplorer.GetCostAndUsageWithResourcesInput) (*costexplorer.GetCostAndUsageWithResourcesOutput, error) {
		return resourcePage(nil, group("3", "", "NoRegion")), nil
	}

	items, err := newTestAggregator(fake).resourceWindowItems(context.Background(), testWindow)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, entity.NoResourceBreakdownForService, items[0].ResourceName)
	assert.Equal(t, entity.GlobalRegion, items[0].Region)
}

func TestResourceWindowItemsStopsAtPageCap(t *testing.T) {
	fake := &fakeCostExplorer{}
	fake.getCostAndUsage = func(in *costexplorer.GetCostAndUsageInput) (*costexplorer.GetCostAndUsageOutput, error) {
		return usagePage(nil, group("1", "Amazon EC2")), nil
	}
	page := 0
	fake.getWithResources = func(in *costexplorer.GetCostAndUsageWithResourcesInput) (*costexplorer.GetCostAndUsageWithResourcesOutput, error) {
		page++
		// Pretends there are 60 pages available.
		next := awssdk.String(fmt.Sprintf("page-%d", page))
		if page >= 60 {
			next = nil
		}
		return resourcePage(next, group("0.01", fmt.Sprintf("i-%d", page), "us-east-1")), nil
	}

	items, err := newTestAggregator(fake).resourceWindowItems(context.Background(), testWindow)
	require.NoError(t, err)
	assert.Equal(t, maxResultPages, fake.withResourcesCalls)
	assert.Len(t, items, maxResultPages, "partial results from fetched pages are kept")
}

func TestResourceWindowItemsStopsWhenDeadlineIsClose(t *testing.T) {
	fake := &fakeCostExplorer{}
	fake.getCostAndUsage = func(in *costexplorer.GetCostAndUsageInput) (*costexplorer.GetCostAndUsageOutput, error) {
		return usagePage(nil, group("1", "Amazon EC2")), nil
	}
	fake.getWithResources = func(in *costexplorer.GetCostAndUsageWithResourcesInput) (*costexplorer.GetCostAndUsageWithResourcesOutput, error) {
		return resourcePage(awssdk.String("more"), group("1", "i-abc", "us-east-1")), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), resourcePageCost)
	defer cancel()

	items, err := newTestAggregator(fake).resourceWindowItems(ctx, testWindow)
	require.NoError(t, err)
	assert.Equal(t, 1, fake.withResourcesCalls, "pagination must stop before the deadline expires")
	assert.Len(t, items, 1)
}

func TestResourceWindowItemsDegradesOnMissingPermission(t *testing.T) {
	fake := &fakeCostExplorer{}
	serviceListServed := false
	fake.getCostAndUsage = func(in *costexplorer.GetCostAndUsageInput) (*costexplorer.GetCostAndUsageOutput, error) {
		if !serviceListServed {
			serviceListServed = true
			return usagePage(nil, group("5", "Amazon EC2"), group("2", "Amazon S3")), nil
		}
		// Fallback service-level daily query.
		return usagePage(nil, group("5", "Amazon EC2"), group("2", "Amazon S3")), nil
	}
	fake.getWithResources = func(in *costexplorer.GetCostAndUsageWithResourcesInput) (*costexplorer.GetCostAndUsageWithResourcesOutput, error) {
		if fake.withResourcesCalls == 1 {
			// First service succeeds with partial data.
			return resourcePage(nil, group("5", "i-abc", "us-east-1")), nil
		}
		return nil, &smithy.GenericAPIError{
			Code:    "AccessDeniedException",
			Message: "User is not authorized to perform: ce:GetCostAndUsageWithResources",
		}
	}

	items, err := newTestAggregator(fake).resourceWindowItems(context.Background(), testWindow)
	require.NoError(t, err)
	require.Len(t, items, 2)

	// Partial resource rows were discarded; only labeled service rows remain.
	for _, item := range items {
		assert.True(t, entity.IsFallbackResourceName(item.ResourceName))
		assert.Contains(t, item.ResourceName, "missing ce:GetCostAndUsageWithResources permission")
		assert.Equal(t, entity.GlobalRegion, item.Region)
	}
}

func TestResourceWindowItemsDegradesOnMissingOptIn(t *testing.T) {
	fake := &fakeCostExplorer{}
	fake.getCostAndUsage = func(in *costexplorer.GetCostAndUsageInput) (*costexplorer.GetCostAndUsageOutput, error) {
		return usagePage(nil, group("5", "Amazon EC2")), nil
	}
	fake.getWithResources = func(in *costexplorer.GetCostAndUsageWithResourcesInput) (*costexplorer.GetCostAndUsageWithResourcesOutput, error) {
		return nil, &smithy.GenericAPIError{Code: "DataUnavailableException", Message: "no data"}
	}

	items, err := newTestAggregator(fake).resourceWindowItems(context.Background(), testWindow)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Contains(t, items[0].ResourceName, "resource-level data not enabled in Cost Explorer")
}

func TestResourceWindowItemsPropagatesOtherErrors(t *testing.T) {
	fake := &fakeCostExplorer{}
	fake.getCostAndUsage = func(in *costexplorer.GetCostAndUsageInput) (*costexplorer.GetCostAndUsageOutput, error) {
		return usagePage(nil, group("5", "Amazon EC2")), nil
	}
	fake.getWithResources = func(in *costexplorer.GetCostAndUsageWithResourcesInput) (*costexplorer.GetCostAndUsageWithResourcesOutput, error) {
		return nil, &smithy.GenericAPIError{Code: "ThrottlingException", Message: "slow down"}
	}

	_, err := newTestAggregator(fake).resourceWindowItems(context.Background(), testWindow)
	require.Error(t, err)
}

func TestServiceLevelItemsAggregatesDailyTotals(t *testing.T) {
	fake := &fakeCostExplorer{}
	fake.getCostAndUsage = func(in *costexplorer.GetCostAndUsageInput) (*costexplorer.GetCostAndUsageOutput, error) {
		return &costexplorer.GetCostAndUsageOutput{
			ResultsByTime: []ceTypes.ResultByTime{
				{Groups: []ceTypes.Group{group("0.2", "Amazon EC2")}},
				{Groups: []ceTypes.Group{group("0.1", "Amazon EC2"), group("0", "Amazon SQS")}},
			},
		}, nil
	}

	items, err := newTestAggregator(fake).serviceLevelItems(context.Background(), testWindow, entity.NoResourceBreakdownForWindow)
	require.NoError(t, err)
	require.Len(t, items, 1, "zero-cost services are dropped")
	assert.Equal(t, "0.3", items[0].Cost)
	assert.Equal(t, entity.NoResourceBreakdownForWindow, items[0].ResourceName)
	assert.Equal(t, entity.GlobalRegion, items[0].Region)
}

func TestGetResourceCostReportFailsFastOnWideWindow(t *testing.T) {
	factoryCalled := false
	repo := &CostRepositoryImpl{
		cache:    newClientCache(),
		roleName: "CostAccess",
		log:      discardLogger(),
		maxPages: maxResultPages,
		newCostExplorer: func(awssdk.Config) costExplorerAPI {
			factoryCalled = true
			return &fakeCostExplorer{}
		},
	}

	window := entity.BillingWindow{StartDate: "2026-01-01", EndDate: "2026-01-20"}
	_, err := repo.GetResourceCostReport(context.Background(), entity.RoleSession{AccountID: "123456789012"}, window)

	require.ErrorIs(t, err, types.ErrResourceWindowTooWide)
	assert.False(t, factoryCalled, "no client may be built for a rejected window")
}

func TestGetCostReportSplitsWindowAndMergesFallback(t *testing.T) {
	fake := &fakeCostExplorer{}
	fake.getCostAndUsage = func(in *costexplorer.GetCostAndUsageInput) (*costexplorer.GetCostAndUsageOutput, error) {
		if in.Granularity == ceTypes.GranularityMonthly {
			return usagePage(nil, group("1", "Amazon EC2")), nil
		}
		// Daily service-level query for the earlier sub-window.
		assert.Equal(t, "2026-01-01", awssdk.ToString(in.TimePeriod.Start))
		assert.Equal(t, "2026-01-20", awssdk.ToString(in.TimePeriod.End))
		return usagePage(nil, group("7", "Amazon EC2")), nil
	}
	fake.getWithResources = func(in *costexplorer.GetCostAndUsageWithResourcesInput) (*costexplorer.GetCostAndUsageWithResourcesOutput, error) {
		assert.Equal(t, "2026-01-20", awssdk.ToString(in.TimePeriod.Start))
		assert.Equal(t, "2026-02-03", awssdk.ToString(in.TimePeriod.End))
		return resourcePage(nil, group("1", "i-abc", "us-east-1")), nil
	}

	repo := &CostRepositoryImpl{
		cache:           newClientCache(),
		roleName:        "CostAccess",
		log:             discardLogger(),
		maxPages:        maxResultPages,
		newCostExplorer: func(awssdk.Config) costExplorerAPI { return fake },
	}

	window := entity.BillingWindow{StartDate: "2026-01-01", EndDate: "2026-02-03"}
	session := entity.RoleSession{AccountID: "123456789012", RoleARN: "arn:aws:iam::123456789012:role/CostAccess", ExpiresAt: time.Now().Add(time.Hour)}

	report, err := repo.GetCostReport(context.Background(), session, window)
	require.NoError(t, err)

	require.Len(t, report.CostsByResource, 2)
	assert.Equal(t, "i-abc", report.CostsByResource[0].ResourceName)
	assert.Equal(t, entity.NoResourceBreakdownForWindow, report.CostsByResource[1].ResourceName)
	assert.InDelta(t, 8.0, report.TotalCost, 0.0001)
	assert.Equal(t, "2026-01-01", report.StartDate)
	assert.Equal(t, "2026-02-03", report.EndDate)
}

func TestUsageFilterScopesAccountAndRecordType(t *testing.T) {
	agg := newTestAggregator(&fakeCostExplorer{})

	filter := agg.usageFilter("Amazon EC2")
	require.Len(t, filter.And, 3)
	assert.Equal(t, ceTypes.DimensionLinkedAccount, filter.And[0].Dimensions.Key)
	assert.Equal(t, []string{"123456789012"}, filter.And[0].Dimensions.Values)
	assert.Equal(t, ceTypes.DimensionRecordType, filter.And[1].Dimensions.Key)
	assert.Equal(t, []string{"Usage"}, filter.And[1].Dimensions.Values)
	assert.Equal(t, ceTypes.DimensionService, filter.And[2].Dimensions.Key)

	unscoped := agg.usageFilter("")
	assert.Len(t, unscoped.And, 2)
}
