package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/inconshreveable/log15"

	"github.com/diillson/sandbox-cost-collector/internal/domain/entity"
	"github.com/diillson/sandbox-cost-collector/internal/domain/repository"
	"github.com/diillson/sandbox-cost-collector/internal/shared/types"
)

// PreviewUseCase roda uma agregação de custos localmente, sem upload nem
// notificação, exibindo o relatório no console e exportando para arquivos.
type PreviewUseCase struct {
	leaseRepo      repository.LeaseRepository
	costRepo       repository.CostRepository
	exportRepo     repository.ExportRepository
	billingPadding time.Duration
	console        types.ConsoleInterface
	log            log15.Logger
}

// NewPreviewUseCase cria um novo caso de uso de preview.
func NewPreviewUseCase(
	leaseRepo repository.LeaseRepository,
	costRepo repository.CostRepository,
	exportRepo repository.ExportRepository,
	billingPadding time.Duration,
	console types.ConsoleInterface,
	logger log15.Logger,
) *PreviewUseCase {
	return &PreviewUseCase{
		leaseRepo:      leaseRepo,
		costRepo:       costRepo,
		exportRepo:     exportRepo,
		billingPadding: billingPadding,
		console:        console,
		log:            logger,
	}
}

// RunPreview collects the report for one lease and renders it locally.
// args.ReportType selects the export formats (csv, json, pdf); an empty list
// only prints the table.
func (uc *PreviewUseCase) RunPreview(ctx context.Context, args types.CLIArgs) error {
	status := uc.console.Status("Fetching lease...")
	defer status.Stop()

	lease, err := uc.leaseRepo.GetLease(ctx, args.UserEmail, args.LeaseID)
	if err != nil {
		return err
	}

	status.Update("Assuming cost access role...")
	session, err := uc.costRepo.AssumeCostAccessRole(ctx, lease.AWSAccountID)
	if err != nil {
		return err
	}

	window, err := entity.NewBillingWindow(lease.StartDate, lease.ExpirationDate, uc.billingPadding)
	if err != nil {
		return err
	}

	status.Update(fmt.Sprintf("Aggregating costs for %s to %s...", window.StartDate, window.EndDate))
	report, err := uc.costRepo.GetCostReport(ctx, session, window)
	if err != nil {
		return err
	}
	status.Stop()

	uc.renderTable(report)

	for _, format := range args.ReportType {
		name := args.ReportName
		if name == "" {
			name = "cost-report-" + lease.AWSAccountID
		}
		path, err := uc.export(report, format, name, args.Dir)
		if err != nil {
			uc.console.LogError("Failed to export %s report: %v", format, err)
			continue
		}
		uc.console.LogSuccess("Report exported to %s", path)
	}
	return nil
}

func (uc *PreviewUseCase) renderTable(report entity.CostReport) {
	table := uc.console.CreateTable()
	table.AddColumn("Resource Name")
	table.AddColumn("Service")
	table.AddColumn("Region")
	table.AddColumn("Cost")
	for _, item := range report.CostsByResource {
		table.AddRow(item.ResourceName, item.ServiceName, item.Region, "$"+item.Cost)
	}
	uc.console.Println(table.Render())
	uc.console.LogInfo("Total for %s to %s: $%.2f", report.StartDate, report.EndDate, report.TotalCost)
}

func (uc *PreviewUseCase) export(report entity.CostReport, format, name, dir string) (string, error) {
	switch format {
	case "csv":
		return uc.exportRepo.ExportToCSV(report, name, dir)
	case "json":
		return uc.exportRepo.ExportToJSON(report, name, dir)
	case "pdf":
		return uc.exportRepo.ExportToPDF(report, name, dir)
	default:
		return "", fmt.Errorf("unsupported report type: %s", format)
	}
}
