package aws

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	ceTypes "github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
	"github.com/inconshreveable/log15"
	"github.com/shopspring/decimal"

	"github.com/diillson/sandbox-cost-collector/internal/domain/entity"
	"github.com/diillson/sandbox-cost-collector/internal/domain/repository"
	"github.com/diillson/sandbox-cost-collector/internal/shared/types"
)

const (
	// Cost Explorer is a global API served out of us-east-1.
	costExplorerRegion = "us-east-1"

	metricUnblendedCost = "UnblendedCost"

	// Resource-level cost data only covers the most recent 14 days.
	resourceWindowMaxDays = 14

	// Safety limits: pagination is capped and paced so a single report can
	// neither run away nor trip the 5-requests-per-second API rate limit.
	maxResultPages = 50
	pagePause      = 200 * time.Millisecond

	// Conservative per-page cost estimates used against the caller's
	// deadline: resource and fallback pages are slower than service lists.
	resourcePageCost    = 5 * time.Second
	serviceListPageCost = 3 * time.Second
)

// costExplorerAPI is the narrow Cost Explorer surface the aggregator uses.
type costExplorerAPI interface {
	GetCostAndUsage(ctx context.Context, params *costexplorer.GetCostAndUsageInput, optFns ...func(*costexplorer.Options)) (*costexplorer.GetCostAndUsageOutput, error)
	GetCostAndUsageWithResources(ctx context.Context, params *costexplorer.GetCostAndUsageWithResourcesInput, optFns ...func(*costexplorer.Options)) (*costexplorer.GetCostAndUsageWithResourcesOutput, error)
}

// CostRepositoryImpl implementa o CostRepository sobre o Cost Explorer, com
// cache de clientes por role assumida.
type CostRepositoryImpl struct {
	cfg      aws.Config
	cache    *clientCache
	roleName string
	log      log15.Logger

	pageDelay time.Duration
	maxPages  int

	newCostExplorer func(aws.Config) costExplorerAPI
}

// NewCostRepository cria uma nova implementação do CostRepository.
func NewCostRepository(cfg aws.Config, costAccessRoleName string, logger log15.Logger) repository.CostRepository {
	return &CostRepositoryImpl{
		cfg:       cfg,
		cache:     newClientCache(),
		roleName:  costAccessRoleName,
		log:       logger,
		pageDelay: pagePause,
		maxPages:  maxResultPages,
		newCostExplorer: func(c aws.Config) costExplorerAPI {
			return costexplorer.NewFromConfig(c)
		},
	}
}

func (r *CostRepositoryImpl) AssumeCostAccessRole(ctx context.Context, accountID string) (entity.RoleSession, error) {
	roleARN := fmt.Sprintf("arn:aws:iam::%s:role/%s", accountID, r.roleName)

	stsClient := sts.NewFromConfig(r.cfg)
	out, err := stsClient.AssumeRole(ctx, &sts.AssumeRoleInput{
		RoleArn:         aws.String(roleARN),
		RoleSessionName: aws.String("sandbox-cost-collector"),
		DurationSeconds: aws.Int32(3600),
	})
	if err != nil {
		return entity.RoleSession{}, fmt.Errorf("failed to assume cost access role %s: %w", roleARN, err)
	}

	var expiresAt time.Time
	if out.Credentials != nil && out.Credentials.Expiration != nil {
		expiresAt = *out.Credentials.Expiration
	}
	return entity.RoleSession{AccountID: accountID, RoleARN: roleARN, ExpiresAt: expiresAt}, nil
}

func (r *CostRepositoryImpl) GetCostReport(ctx context.Context, session entity.RoleSession, window entity.BillingWindow) (entity.CostReport, error) {
	api, err := r.costExplorerFor(session)
	if err != nil {
		return entity.CostReport{}, err
	}
	agg := r.newAggregator(api, session.AccountID)

	resourceWin, fallbackWin, err := window.SplitAt(resourceWindowMaxDays)
	if err != nil {
		return entity.CostReport{}, err
	}

	items, err := agg.resourceWindowItems(ctx, resourceWin)
	if err != nil {
		return entity.CostReport{}, err
	}
	if fallbackWin != nil {
		earlier, err := agg.serviceLevelItems(ctx, *fallbackWin, entity.NoResourceBreakdownForWindow)
		if err != nil {
			return entity.CostReport{}, err
		}
		items = append(items, earlier...)
	}

	return buildReport(session.AccountID, window, items), nil
}

func (r *CostRepositoryImpl) GetResourceCostReport(ctx context.Context, session entity.RoleSession, window entity.BillingWindow) (entity.CostReport, error) {
	days, err := window.Days()
	if err != nil {
		return entity.CostReport{}, err
	}
	if days > resourceWindowMaxDays {
		return entity.CostReport{}, fmt.Errorf("window %s to %s spans %d days: %w",
			window.StartDate, window.EndDate, days, types.ErrResourceWindowTooWide)
	}

	api, err := r.costExplorerFor(session)
	if err != nil {
		return entity.CostReport{}, err
	}
	items, err := r.newAggregator(api, session.AccountID).resourceWindowItems(ctx, window)
	if err != nil {
		return entity.CostReport{}, err
	}
	return buildReport(session.AccountID, window, items), nil
}

func (r *CostRepositoryImpl) GetServiceCostReport(ctx context.Context, session entity.RoleSession, window entity.BillingWindow) (entity.ServiceCostReport, error) {
	api, err := r.costExplorerFor(session)
	if err != nil {
		return entity.ServiceCostReport{}, err
	}
	items, err := r.newAggregator(api, session.AccountID).serviceLevelItems(ctx, window, entity.NoResourceBreakdownForWindow)
	if err != nil {
		return entity.ServiceCostReport{}, err
	}

	costs := make([]entity.ServiceCost, 0, len(items))
	for _, item := range items {
		costs = append(costs, entity.ServiceCost{
			ServiceName: item.ServiceName,
			Cost:        item.DecimalCost().InexactFloat64(),
		})
	}
	sort.Slice(costs, func(i, j int) bool {
		return costs[i].Cost > costs[j].Cost
	})

	return entity.ServiceCostReport{
		AccountID:      session.AccountID,
		StartDate:      window.StartDate,
		EndDate:        window.EndDate,
		TotalCost:      entity.TotalLineItemCost(items).InexactFloat64(),
		CostsByService: costs,
	}, nil
}

func (r *CostRepositoryImpl) costExplorerFor(session entity.RoleSession) (costExplorerAPI, error) {
	cacheKey := fmt.Sprintf("costexplorer-%s-%s", costExplorerRegion, session.RoleARN)
	client, err := r.cache.GetOrCreate(cacheKey, func() (interface{}, time.Time, error) {
		roleCfg := r.cfg.Copy()
		roleCfg.Region = costExplorerRegion
		provider := stscreds.NewAssumeRoleProvider(sts.NewFromConfig(r.cfg), session.RoleARN)
		roleCfg.Credentials = aws.NewCredentialsCache(provider)
		return r.newCostExplorer(roleCfg), session.ExpiresAt, nil
	})
	if err != nil {
		return nil, err
	}
	return client.(costExplorerAPI), nil
}

func (r *CostRepositoryImpl) newAggregator(api costExplorerAPI, accountID string) *costAggregator {
	return &costAggregator{
		api:       api,
		accountID: accountID,
		log:       r.log,
		pageDelay: r.pageDelay,
		maxPages:  r.maxPages,
	}
}

func buildReport(accountID string, window entity.BillingWindow, items []entity.CostLineItem) entity.CostReport {
	return entity.CostReport{
		AccountID:       accountID,
		StartDate:       window.StartDate,
		EndDate:         window.EndDate,
		TotalCost:       entity.TotalLineItemCost(items).InexactFloat64(),
		CostsByResource: entity.SortLineItems(items),
	}
}

// costAggregator executa as consultas paginadas de um relatório. As consultas
// por serviço são sequenciais de propósito: o Cost Explorer impõe um limite de
// 5 requisições por segundo.
type costAggregator struct {
	api       costExplorerAPI
	accountID string
	log       log15.Logger
	pageDelay time.Duration
	maxPages  int
}

// resourceWindowItems produces resource-level line items for a window of at
// most 14 days. When resource-level querying turns out to be unavailable
// (missing opt-in or IAM permission), the whole window degrades to service
// totals labeled with the specific cause; partial resource rows are discarded
// so nothing is double counted.
func (a *costAggregator) resourceWindowItems(ctx context.Context, win entity.BillingWindow) ([]entity.CostLineItem, error) {
	services, err := a.servicesWithCost(ctx, win)
	if err != nil {
		return nil, err
	}

	var items []entity.CostLineItem
	for _, service := range services {
		if err := a.pause(ctx); err != nil {
			return nil, err
		}
		rows, err := a.resourceItemsForService(ctx, win, service)
		if err != nil {
			reason, degraded := degradedReason(err)
			if !degraded {
				return nil, err
			}
			a.log.Warn("resource-level cost data unavailable, using service totals for the whole window",
				"reason", reason, "service", service)
			return a.serviceLevelItems(ctx, win, entity.DegradedResourceName(reason))
		}
		items = append(items, rows...)
	}
	return items, nil
}

// servicesWithCost lists the services with nonzero usage cost in the window.
func (a *costAggregator) servicesWithCost(ctx context.Context, win entity.BillingWindow) ([]string, error) {
	input := &costexplorer.GetCostAndUsageInput{
		TimePeriod:  dateInterval(win),
		Granularity: ceTypes.GranularityMonthly,
		Metrics:     []string{metricUnblendedCost},
		GroupBy: []ceTypes.GroupDefinition{
			{Type: ceTypes.GroupDefinitionTypeDimension, Key: aws.String("SERVICE")},
		},
		Filter: a.usageFilter(""),
	}

	seen := map[string]bool{}
	var services []string
	for page := 0; ; page++ {
		if page > 0 {
			if err := a.pause(ctx); err != nil {
				return nil, err
			}
		}
		out, err := a.api.GetCostAndUsage(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to list services with cost: %w", err)
		}
		for _, rbt := range out.ResultsByTime {
			for _, group := range rbt.Groups {
				if len(group.Keys) == 0 {
					continue
				}
				amount, err := metricAmount(group.Metrics)
				if err != nil {
					return nil, err
				}
				if amount.IsZero() || seen[group.Keys[0]] {
					continue
				}
				seen[group.Keys[0]] = true
				services = append(services, group.Keys[0])
			}
		}
		if out.NextPageToken == nil {
			break
		}
		if page+1 >= a.maxPages {
			a.log.Warn("page cap reached while listing services, returning partial results", "pages", a.maxPages)
			break
		}
		if !a.hasTimeFor(ctx, serviceListPageCost) {
			a.log.Warn("time budget low, stopping service listing early", "pagesFetched", page+1)
			break
		}
		input.NextPageToken = out.NextPageToken
	}
	return services, nil
}

// resourceItemsForService aggregates daily resource costs for one service,
// summing same-resource-and-region pairs across pages with decimal
// arithmetic. Errors are returned unclassified; the caller decides whether
// they degrade or abort.
func (a *costAggregator) resourceItemsForService(ctx context.Context, win entity.BillingWindow, service string) ([]entity.CostLineItem, error) {
	input := &costexplorer.GetCostAndUsageWithResourcesInput{
		TimePeriod:  dateInterval(win),
		Granularity: ceTypes.GranularityDaily,
		Metrics:     []string{metricUnblendedCost},
		GroupBy: []ceTypes.GroupDefinition{
			{Type: ceTypes.GroupDefinitionTypeDimension, Key: aws.String("RESOURCE_ID")},
			{Type: ceTypes.GroupDefinitionTypeDimension, Key: aws.String("REGION")},
		},
		Filter: a.usageFilter(service),
	}

	totals := map[resourceKey]decimal.Decimal{}
	var order []resourceKey
	for page := 0; ; page++ {
		if page > 0 {
			if err := a.pause(ctx); err != nil {
				return nil, err
			}
		}
		out, err := a.api.GetCostAndUsageWithResources(ctx, input)
		if err != nil {
			return nil, err
		}
		for _, rbt := range out.ResultsByTime {
			for _, group := range rbt.Groups {
				key := resourceKeyFromGroup(group.Keys)
				amount, err := metricAmount(group.Metrics)
				if err != nil {
					return nil, err
				}
				if _, ok := totals[key]; !ok {
					order = append(order, key)
				}
				totals[key] = totals[key].Add(amount)
			}
		}
		if out.NextPageToken == nil {
			break
		}
		if page+1 >= a.maxPages {
			a.log.Warn("page cap reached while fetching resource costs, returning partial results",
				"service", service, "pages", a.maxPages)
			break
		}
		if !a.hasTimeFor(ctx, resourcePageCost) {
			a.log.Warn("time budget low, stopping resource cost pagination early",
				"service", service, "pagesFetched", page+1)
			break
		}
		input.NextPageToken = out.NextPageToken
	}

	items := make([]entity.CostLineItem, 0, len(order))
	for _, key := range order {
		if totals[key].IsZero() {
			continue
		}
		items = append(items, entity.CostLineItem{
			ResourceName: key.resource,
			ServiceName:  service,
			Region:       key.region,
			Cost:         totals[key].String(),
		})
	}
	return items, nil
}

// serviceLevelItems aggregates daily service totals for the window, emitting
// one row per service labeled with the given fallback resource name.
func (a *costAggregator) serviceLevelItems(ctx context.Context, win entity.BillingWindow, resourceLabel string) ([]entity.CostLineItem, error) {
	input := &costexplorer.GetCostAndUsageInput{
		TimePeriod:  dateInterval(win),
		Granularity: ceTypes.GranularityDaily,
		Metrics:     []string{metricUnblendedCost},
		GroupBy: []ceTypes.GroupDefinition{
			{Type: ceTypes.GroupDefinitionTypeDimension, Key: aws.String("SERVICE")},
		},
		Filter: a.usageFilter(""),
	}

	totals := map[string]decimal.Decimal{}
	var order []string
	for page := 0; ; page++ {
		if page > 0 {
			if err := a.pause(ctx); err != nil {
				return nil, err
			}
		}
		out, err := a.api.GetCostAndUsage(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to get service-level costs: %w", err)
		}
		for _, rbt := range out.ResultsByTime {
			for _, group := range rbt.Groups {
				if len(group.Keys) == 0 {
					continue
				}
				service := group.Keys[0]
				amount, err := metricAmount(group.Metrics)
				if err != nil {
					return nil, err
				}
				if _, ok := totals[service]; !ok {
					order = append(order, service)
				}
				totals[service] = totals[service].Add(amount)
			}
		}
		if out.NextPageToken == nil {
			break
		}
		if page+1 >= a.maxPages {
			a.log.Warn("page cap reached while fetching service-level costs, returning partial results", "pages", a.maxPages)
			break
		}
		if !a.hasTimeFor(ctx, resourcePageCost) {
			a.log.Warn("time budget low, stopping service-level pagination early", "pagesFetched", page+1)
			break
		}
		input.NextPageToken = out.NextPageToken
	}

	items := make([]entity.CostLineItem, 0, len(order))
	for _, service := range order {
		if totals[service].IsZero() {
			continue
		}
		items = append(items, entity.CostLineItem{
			ResourceName: resourceLabel,
			ServiceName:  service,
			Region:       entity.GlobalRegion,
			Cost:         totals[service].String(),
		})
	}
	return items, nil
}

// usageFilter restringe as consultas à conta alvo e a registros "Usage"
// (exclui créditos e descontos). Um service não vazio restringe a esse serviço.
func (a *costAggregator) usageFilter(service string) *ceTypes.Expression {
	exprs := []ceTypes.Expression{
		{Dimensions: &ceTypes.DimensionValues{Key: ceTypes.DimensionLinkedAccount, Values: []string{a.accountID}}},
		{Dimensions: &ceTypes.DimensionValues{Key: ceTypes.DimensionRecordType, Values: []string{"Usage"}}},
	}
	if service != "" {
		exprs = append(exprs, ceTypes.Expression{
			Dimensions: &ceTypes.DimensionValues{Key: ceTypes.DimensionService, Values: []string{service}},
		})
	}
	return &ceTypes.Expression{And: exprs}
}

// pause enforces the pacing delay between paginated calls and before each
// per-service query. No delay follows the final page of a sequence because
// the delay always precedes the next request.
func (a *costAggregator) pause(ctx context.Context) error {
	if a.pageDelay <= 0 {
		return nil
	}
	timer := time.NewTimer(a.pageDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// hasTimeFor reports whether the caller's deadline leaves room for roughly
// two more pages of the given per-page cost. Contexts without a deadline
// never stop pagination early.
func (a *costAggregator) hasTimeFor(ctx context.Context, perPage time.Duration) bool {
	deadline, ok := ctx.Deadline()
	if !ok {
		return true
	}
	return time.Until(deadline) >= 2*perPage
}

type resourceKey struct {
	resource string
	region   string
}

func resourceKeyFromGroup(keys []string) resourceKey {
	key := resourceKey{region: entity.GlobalRegion}
	if len(keys) > 0 {
		key.resource = keys[0]
	}
	if len(keys) > 1 && keys[1] != "" && keys[1] != "NoRegion" {
		key.region = keys[1]
	}
	if key.resource == "" {
		key.resource = entity.NoResourceBreakdownForService
	}
	return key
}

// degradedReason classifies errors that disable resource-level querying for
// the remainder of a run. Only the missing opt-in and the missing IAM
// permission degrade; every other error aborts the aggregation.
func degradedReason(err error) (string, bool) {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return "", false
	}
	switch apiErr.ErrorCode() {
	case "DataUnavailableException":
		return "resource-level data not enabled in Cost Explorer", true
	case "AccessDeniedException":
		if strings.Contains(apiErr.ErrorMessage(), "GetCostAndUsageWithResources") {
			return "missing ce:GetCostAndUsageWithResources permission", true
		}
	}
	return "", false
}

func metricAmount(metrics map[string]ceTypes.MetricValue) (decimal.Decimal, error) {
	value, ok := metrics[metricUnblendedCost]
	if !ok || value.Amount == nil {
		return decimal.Zero, nil
	}
	amount, err := decimal.NewFromString(*value.Amount)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("unparseable cost amount %q: %w", *value.Amount, err)
	}
	return amount, nil
}

func dateInterval(win entity.BillingWindow) *ceTypes.DateInterval {
	return &ceTypes.DateInterval{
		Start: aws.String(win.StartDate),
		End:   aws.String(win.EndDate),
	}
}
