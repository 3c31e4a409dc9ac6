package service

import (
	"context"
	"fmt"

	"github.com/bitfantasy/recytrack/internal/lifecycle/entity"
	"github.com/xuri/excelize/v2"
)

// ExportService 台账导出
type ExportService struct {
	base
}

func NewExportService(d Deps) *ExportService {
	return &ExportService{base: newBase(d, "export")}
}

var allocationExportHeaders = []string{
	"Output", "Order", "Allocated kg", "Allocated by", "Notes", "Created at",
}

// AllocationLedger writes the allocation ledger as xlsx. With an output id only that
// output is exported and a summary with weight, allocated and remaining is appended.
func (s *ExportService) AllocationLedger(ctx context.Context, outputMaterialID string) (*excelize.File, string, error) {
	var output *entity.OutputMaterial
	if outputMaterialID != "" {
		o, err := s.repos.Output.FindByID(ctx, outputMaterialID)
		if err != nil {
			return nil, "", storeError("output material", err)
		}
		output = o
		outputMaterialID = o.ID
	}
	items, err := s.repos.Allocation.ListWithCodes(ctx, outputMaterialID)
	if err != nil {
		return nil, "", storeError("allocation", err)
	}

	f := excelize.NewFile()
	sheet := "Allocations"
	f.SetSheetName("Sheet1", sheet)

	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	for i, h := range allocationExportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	var total float64
	for i, a := range items {
		row := i + 2
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), a.OutputCode)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), a.OrderCode)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), a.AllocatedWeightKg)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), a.AllocatedBy)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), a.Notes)
		f.SetCellValue(sheet, fmt.Sprintf("F%d", row), a.CreatedAt.Format("2006-01-02 15:04"))
		total += a.AllocatedWeightKg
	}

	summaryRow := len(items) + 2
	summaryStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	f.SetCellValue(sheet, fmt.Sprintf("A%d", summaryRow), "Total")
	f.SetCellValue(sheet, fmt.Sprintf("C%d", summaryRow), roundKg(total))
	if output != nil {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", summaryRow+1), "Output weight")
		f.SetCellValue(sheet, fmt.Sprintf("C%d", summaryRow+1), output.WeightKg)
		f.SetCellValue(sheet, fmt.Sprintf("A%d", summaryRow+2), "Remaining")
		f.SetCellValue(sheet, fmt.Sprintf("C%d", summaryRow+2), roundKg(output.WeightKg-total))
		f.SetCellStyle(sheet, fmt.Sprintf("A%d", summaryRow), fmt.Sprintf("F%d", summaryRow+2), summaryStyle)
	} else {
		f.SetCellStyle(sheet, fmt.Sprintf("A%d", summaryRow), fmt.Sprintf("F%d", summaryRow), summaryStyle)
	}

	colWidths := []float64{22, 22, 14, 20, 30, 18}
	for i, w := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}

	filename := fmt.Sprintf("allocations_%s.xlsx", s.now().Format("20060102"))
	if output != nil {
		filename = fmt.Sprintf("allocations_%s.xlsx", output.OutputID)
	}
	return f, filename, nil
}
