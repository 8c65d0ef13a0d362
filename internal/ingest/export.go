package ingest

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/langchou/fleetguard/internal/warning"
)

// IncidentExportHeader 警告信导出表头
var IncidentExportHeader = []string{
	"Driver ID",
	"Driver Name",
	"Fleet Group",
	"Vehicle Plate",
	"Incident Date",
	"Incident Time",
	"Shift",
	"Area",
	"Speed Limit",
	"Max Speed",
	"Overspeed",
}

// GenerateIncidentWorkbook 将警告信集合导出为 Excel 文件（供安全管理员复核）
func GenerateIncidentWorkbook(set *warning.LetterSet) ([]byte, error) {
	f := excelize.NewFile()
	// 注意：不要提前 defer Close()，WriteTo 需要文件保持打开

	sheetName := "Warning Letters"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create header style: %w", err)
	}

	for col, header := range IncidentExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("set header style: %w", err)
		}
	}

	rowNum := 2
	for _, p := range warning.BuildLetterPayloads(set) {
		values := []interface{}{
			p.DriverID,
			p.DriverName,
			p.FleetGroup,
			p.VehiclePlate,
			p.IncidentDate,
			p.IncidentTime,
			p.Shift,
			p.Area,
			p.SpeedLimit,
			p.MaxSpeed,
			p.Overspeed,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, rowNum)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("convert coordinates: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				f.Close()
				return nil, fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
		rowNum++
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	f.Close()

	return buf.Bytes(), nil
}
