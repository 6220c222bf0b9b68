package export

import (
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/diillson/sandbox-cost-collector/internal/domain/entity"
)

// Column order of the resource-level report. This layout is a published
// contract consumed by spreadsheets downstream.
var reportHeader = []string{"Resource Name", "Service", "Region", "Cost"}

var serviceReportHeader = []string{"Service", "Cost"}

// Characters that make a spreadsheet treat a cell as a formula.
const formulaLeaders = "=+-@|%\t"

func (r *ExportRepositoryImpl) RenderReportCSV(report entity.CostReport) string {
	var buf strings.Builder
	writer := csv.NewWriter(&buf)

	writer.Write(reportHeader)
	for _, item := range report.CostsByResource {
		writer.Write([]string{
			neutralizeFormula(item.ResourceName),
			neutralizeFormula(item.ServiceName),
			neutralizeFormula(item.Region),
			item.Cost,
		})
	}
	writer.Flush()

	return strings.TrimSuffix(buf.String(), "\n")
}

func (r *ExportRepositoryImpl) RenderServiceReportCSV(report entity.ServiceCostReport) string {
	var buf strings.Builder
	writer := csv.NewWriter(&buf)

	writer.Write(serviceReportHeader)
	for _, sc := range report.CostsByService {
		writer.Write([]string{
			neutralizeFormula(sc.ServiceName),
			fmt.Sprintf("%.2f", sc.Cost),
		})
	}
	writer.Flush()

	return strings.TrimSuffix(buf.String(), "\n")
}

// neutralizeFormula prefixa com apóstrofo campos que uma planilha
// interpretaria como fórmula. Aplica-se só a colunas de texto; a coluna Cost
// é gerada pelo agregador e nunca carrega payload externo.
func neutralizeFormula(field string) string {
	if field == "" {
		return field
	}
	if strings.ContainsRune(formulaLeaders, rune(field[0])) {
		return "'" + field
	}
	return field
}
