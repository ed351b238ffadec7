package reports

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fueltrack360/dispatch_backend/config"
	"github.com/fueltrack360/dispatch_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

type VarianceReportRow struct {
	ManifestNumber        string           `json:"ManifestNumber"`
	PlateNumber           *string          `json:"PlateNumber,omitempty"`
	DriverName            *string          `json:"DriverName,omitempty"`
	StationName           *string          `json:"StationName,omitempty"`
	ProductType           string           `json:"ProductType"`
	LoadedVolumeLiters    decimal.Decimal  `json:"LoadedVolumeLiters"`
	DeliveredVolumeLiters *decimal.Decimal `json:"DeliveredVolumeLiters,omitempty"`
	VariancePercent       *decimal.Decimal `json:"VariancePercent,omitempty"`
	Status                string           `json:"Status"`
	CompletedAt           *time.Time       `json:"CompletedAt,omitempty"`
}

// GetVarianceReport lists closed manifests (COMPLETED and FLAGGED) with
// their delivery variance, newest first. flaggedOnly narrows to FLAGGED.
func GetVarianceReport(ctx context.Context, from, to time.Time, flaggedOnly bool) ([]*VarianceReportRow, error) {

	sqlT := `
SELECT
    m.manifest_number,
    m.product_type,
    m.loaded_volume_liters,
    m.delivered_volume_liters,
    m.variance_percent,
    m.status,
    m.completed_at,
    trucks.plate_number AS plate_number,
    users.name AS driver_name,
    stations.name AS station_name
FROM
    manifests m
        LEFT JOIN
    trucks ON trucks.id = m.truck_id
        LEFT JOIN
    users ON users.id = m.driver_id
        LEFT JOIN
    stations ON stations.id = m.destination_station_id
WHERE
    m.organization_id = @organizationId
        AND m.completed_at BETWEEN @fromDate AND @toDate
        {{- if .flaggedOnly }} AND m.status = 'FLAGGED'
        {{- else }} AND m.status IN ('COMPLETED' , 'FLAGGED')
        {{- end }}
ORDER BY m.completed_at DESC;
`

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, utils.NewValidationError("organization id is required")
	}

	sql, err := utils.ExecTemplate(sqlT, map[string]interface{}{
		"flaggedOnly": flaggedOnly,
	})
	if err != nil {
		return nil, err
	}

	var records []*VarianceReportRow
	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql, map[string]interface{}{
		"organizationId": organizationId,
		"fromDate":       from,
		"toDate":         to,
	}).Scan(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}

// ExportVarianceReportExcel writes the variance report as an xlsx workbook.
func ExportVarianceReportExcel(w io.Writer, records []*VarianceReportRow) error {

	f := excelize.NewFile()
	sheetName := "Sheet1"
	_, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}

	// Add headers
	headings := []string{
		"ManifestNumber", "PlateNumber", "DriverName", "StationName",
		"ProductType", "LoadedLiters", "DeliveredLiters", "VariancePercent", "Status",
	}
	col := 'A'
	for _, h := range headings {
		f.SetCellValue(sheetName, string(col)+"1", h)
		col++
	}

	// Add data
	for i, d := range records {
		row := fmt.Sprint(i + 2)
		f.SetCellValue(sheetName, "A"+row, d.ManifestNumber)
		f.SetCellValue(sheetName, "B"+row, utils.DereferencePtr(d.PlateNumber, ""))
		f.SetCellValue(sheetName, "C"+row, utils.DereferencePtr(d.DriverName, ""))
		f.SetCellValue(sheetName, "D"+row, utils.DereferencePtr(d.StationName, ""))
		f.SetCellValue(sheetName, "E"+row, d.ProductType)
		f.SetCellValue(sheetName, "F"+row, d.LoadedVolumeLiters.InexactFloat64())
		if d.DeliveredVolumeLiters != nil {
			f.SetCellValue(sheetName, "G"+row, d.DeliveredVolumeLiters.InexactFloat64())
		}
		if d.VariancePercent != nil {
			f.SetCellValue(sheetName, "H"+row, d.VariancePercent.InexactFloat64())
		}
		f.SetCellValue(sheetName, "I"+row, d.Status)
	}

	return f.Write(w)
}
