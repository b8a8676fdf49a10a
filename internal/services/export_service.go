package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"github.com/sjperalta/pratiche-api/internal/models"
	"github.com/sjperalta/pratiche-api/internal/repository"
	apperrors "github.com/sjperalta/pratiche-api/pkg/errors"
)

// Export formats
const (
	ExportFormatCSV  = "csv"
	ExportFormatXLSX = "xlsx"
	ExportFormatPDF  = "pdf"
)

var scheduleHeader = []string{"N.", "Due date", "Amount", "Principal", "Interest", "Paid", "Payment date"}

// ExportFile is a rendered document
type ExportFile struct {
	Content     []byte
	Filename    string
	ContentType string
}

// ExportService renders a plan's installment schedule
type ExportService struct {
	plans repository.PlanRepository
	scale int32
}

func NewExportService(plans repository.PlanRepository, scale int32) *ExportService {
	return &ExportService{plans: plans, scale: scale}
}

// Export renders the plan in the requested format
func (s *ExportService) Export(ctx context.Context, planID uint, format string) (*ExportFile, error) {
	plan, err := s.plans.FindByIDWithInstallments(ctx, planID)
	if err != nil {
		return nil, err
	}

	switch format {
	case ExportFormatCSV:
		return s.exportCSV(plan)
	case ExportFormatXLSX, "":
		return s.exportXLSX(plan)
	case ExportFormatPDF:
		return s.exportPDF(plan)
	}
	return nil, apperrors.Validation("unsupported export format %q", format)
}

func (s *ExportService) rows(plan *models.AmortizationPlan) [][]string {
	rows := make([][]string, 0, len(plan.Installments))
	for _, inst := range plan.Installments {
		paid, paidOn := "no", ""
		if inst.Paid {
			paid = "yes"
			if inst.PaymentDate != nil {
				paidOn = models.FormatDate(*inst.PaymentDate)
			}
		}
		rows = append(rows, []string{
			strconv.Itoa(inst.Number),
			models.FormatDate(inst.DueDate),
			inst.Amount.StringFixed(s.scale),
			inst.PrincipalShare.StringFixed(s.scale),
			inst.InterestShare.StringFixed(s.scale),
			paid,
			paidOn,
		})
	}
	return rows
}

func filename(plan *models.AmortizationPlan, ext string) string {
	return fmt.Sprintf("piano_ammortamento_case_%d_plan_%d.%s", plan.CaseID, plan.ID, ext)
}

func (s *ExportService) exportCSV(plan *models.AmortizationPlan) (*ExportFile, error) {
	buf := new(bytes.Buffer)
	writer := csv.NewWriter(buf)

	_ = writer.Write(scheduleHeader)
	_ = writer.WriteAll(s.rows(plan))
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}

	return &ExportFile{
		Content:     buf.Bytes(),
		Filename:    filename(plan, "csv"),
		ContentType: "text/csv",
	}, nil
}

func (s *ExportService) exportXLSX(plan *models.AmortizationPlan) (*ExportFile, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Piano"
	_ = f.SetSheetName("Sheet1", sheet)

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
	})
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})

	_ = f.SetCellValue(sheet, "A1", fmt.Sprintf("Amortization plan %d (case %d)", plan.ID, plan.CaseID))
	_ = f.SetCellStyle(sheet, "A1", "A1", titleStyle)
	_ = f.SetCellValue(sheet, "A2", "Principal")
	_ = f.SetCellValue(sheet, "B2", plan.InitialPrincipal.InexactFloat64())
	_ = f.SetCellValue(sheet, "C2", "Total interest")
	_ = f.SetCellValue(sheet, "D2", plan.TotalInterest.InexactFloat64())
	_ = f.SetCellValue(sheet, "E2", "Method")
	_ = f.SetCellValue(sheet, "F2", plan.AmortizationMethod)

	const headerRow = 4
	for col, title := range scheduleHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, headerRow)
		_ = f.SetCellValue(sheet, cell, title)
	}
	first, _ := excelize.CoordinatesToCellName(1, headerRow)
	last, _ := excelize.CoordinatesToCellName(len(scheduleHeader), headerRow)
	_ = f.SetCellStyle(sheet, first, last, headerStyle)

	for i, inst := range plan.Installments {
		row := headerRow + 1 + i
		values := []interface{}{
			inst.Number,
			models.FormatDate(inst.DueDate),
			inst.Amount.InexactFloat64(),
			inst.PrincipalShare.InexactFloat64(),
			inst.InterestShare.InexactFloat64(),
			inst.Paid,
			"",
		}
		if inst.PaymentDate != nil {
			values[6] = models.FormatDate(*inst.PaymentDate)
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}

	return &ExportFile{
		Content:     buf.Bytes(),
		Filename:    filename(plan, "xlsx"),
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	}, nil
}

func (s *ExportService) exportPDF(plan *models.AmortizationPlan) (*ExportFile, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, fmt.Sprintf("Piano di ammortamento - pratica %d", plan.CaseID))
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(60, 6, "Principal:")
	pdf.Cell(40, 6, plan.InitialPrincipal.StringFixed(s.scale))
	pdf.Ln(6)
	pdf.Cell(60, 6, "Total interest:")
	pdf.Cell(40, 6, plan.TotalInterest.StringFixed(s.scale))
	pdf.Ln(6)
	pdf.Cell(60, 6, "Method:")
	pdf.Cell(40, 6, plan.AmortizationMethod)
	pdf.Ln(6)
	pdf.Cell(60, 6, "Status:")
	pdf.Cell(40, 6, plan.Status)
	pdf.Ln(10)

	widths := []float64{12, 28, 28, 28, 28, 14, 28}
	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(224, 224, 224)
	for i, title := range scheduleHeader {
		pdf.CellFormat(widths[i], 7, title, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range s.rows(plan) {
		for i, value := range row {
			align := "R"
			if i == 1 || i == 5 || i == 6 {
				align = "C"
			}
			pdf.CellFormat(widths[i], 6, value, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := new(bytes.Buffer)
	if err := pdf.Output(buf); err != nil {
		return nil, err
	}

	return &ExportFile{
		Content:     buf.Bytes(),
		Filename:    filename(plan, "pdf"),
		ContentType: "application/pdf",
	}, nil
}
