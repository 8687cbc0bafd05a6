package export

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
	"github.com/yigit/tuitiontrack/internal/domain"
)

// AttendanceSheet is the content of a student's monthly attendance PDF.
type AttendanceSheet struct {
	TuitionName string
	StudentName string
	BatchName   string
	Phone       string
	Grid        domain.MonthGrid
}

// WriteAttendancePDF renders the sheet as a one page A4 document.
func WriteAttendancePDF(w io.Writer, s AttendanceSheet) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(fmt.Sprintf("Attendance %s", s.Grid.Month.UTC().Format("January 2006")), true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 8, tr(s.TuitionName))
	pdf.Ln(9)
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 6, "Attendance for "+s.Grid.Month.UTC().Format("January 2006"))
	pdf.Ln(8)

	pdf.SetDrawColor(40, 145, 108)
	pdf.SetLineWidth(0.5)
	pdf.Line(10, pdf.GetY(), 200, pdf.GetY())
	pdf.Ln(4)

	info := [][2]string{
		{"Student:", s.StudentName},
		{"Batch:", s.BatchName},
		{"Phone:", s.Phone},
	}
	for _, row := range info {
		pdf.SetFont("Arial", "", 10)
		pdf.Cell(30, 6, row[0])
		pdf.SetFont("Arial", "B", 10)
		pdf.Cell(0, 6, tr(row[1]))
		pdf.Ln(6)
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(230, 242, 237)
	pdf.CellFormat(60, 7, "Date", "1", 0, "L", true, 0, "")
	pdf.CellFormat(40, 7, "Weekday", "1", 0, "L", true, 0, "")
	pdf.CellFormat(40, 7, "Status", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, cell := range s.Grid.Cells {
		pdf.CellFormat(60, 6, cell.Date.Display(), "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, cell.Date.Weekday().String(), "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, cell.Label(), "1", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	t := s.Grid.Tally
	pdf.SetFont("Arial", "B", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Present: %d   Late: %d   Absent: %d   Attendance: %d%%",
		t.Present, t.Late, t.Absent, s.Grid.Percentage))
	pdf.Ln(6)

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("failed to build pdf: %w", err)
	}
	return pdf.Output(w)
}
