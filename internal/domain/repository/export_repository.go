package repository

import (
	"github.com/diillson/sandbox-cost-collector/internal/domain/entity"
)

// ExportRepository defines the interface for report serialization and
// local report exports.
type ExportRepository interface {
	// RenderReportCSV serializes the resource-level report as CSV in the
	// report's line-item order (ordering is the aggregator's concern).
	RenderReportCSV(report entity.CostReport) string

	// RenderServiceReportCSV serializes the two-column service-level variant.
	RenderServiceReportCSV(report entity.ServiceCostReport) string

	// Local export for the preview path.
	ExportToCSV(report entity.CostReport, filename, outputDir string) (string, error)
	ExportToJSON(report entity.CostReport, filename, outputDir string) (string, error)
	ExportToPDF(report entity.CostReport, filename, outputDir string) (string, error)
}
