package utils

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// TrackingRow is one movement of a physical case note, reconstructed from the
// event log for the tracking report.
type TrackingRow struct {
	RequestNumber string
	PatientMRN    string
	PatientName   string
	Direction     string
	EventType     string
	ActorName     string
	Status        string
	OccurredAt    time.Time
}

var trackingHeaders = []string{"Request No", "MRN", "Patient", "Direction", "Movement", "By", "Current Status", "Date/Time"}

// TrackingReportExcel renders the tracking rows as an .xlsx workbook.
func TrackingReportExcel(rows []TrackingRow, from, to time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("Failed to close xlsx file: %v", err)
		}
	}()
	sheet := "Sheet1"
	row, err := writeTrackingHeader(f, sheet, 0)
	if err != nil {
		return nil, errors.Wrap(err, "failed to write xlsx header")
	}
	for _, item := range rows {
		row++
		values := []interface{}{
			item.RequestNumber,
			item.PatientMRN,
			item.PatientName,
			item.Direction,
			item.EventType,
			item.ActorName,
			item.Status,
			item.OccurredAt.Format("2006-01-02 15:04"),
		}
		for col, value := range values {
			if err := writeTrackingCell(f, sheet, col+1, row, value); err != nil {
				return nil, errors.Wrap(err, "failed to write xlsx row")
			}
		}
	}
	f.SetSheetName(sheet, "Tracking")
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// TrackingReportPDF renders the tracking rows as a landscape A4 table.
func TrackingReportPDF(rows []TrackingRow, from, to time.Time) (pdfFile []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("TrackingReportPDF panic recover: %v", r)
		}
	}()
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, reportTitle(from, to), "", 1, "C", false, 0, "")

	colWidths := []float64{34, 28, 52, 20, 44, 40, 34, 32}
	pdf.SetFont("Helvetica", "B", 9)
	for i, header := range trackingHeaders {
		pdf.CellFormat(colWidths[i], 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, item := range rows {
		values := []string{
			item.RequestNumber,
			item.PatientMRN,
			item.PatientName,
			item.Direction,
			item.EventType,
			item.ActorName,
			item.Status,
			item.OccurredAt.Format("2006-01-02 15:04"),
		}
		for i, value := range values {
			pdf.CellFormat(colWidths[i], 7, value, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	if pdf.Error() != nil {
		return nil, pdf.Error()
	}

	buf := new(bytes.Buffer)
	if err := pdf.Output(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func reportTitle(from, to time.Time) string {
	return fmt.Sprintf("Case Note Tracking %s to %s", from.Format("2006-01-02"), to.Format("2006-01-02"))
}

func writeTrackingCell(f *excelize.File, sheet string, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheet, cell, value)
}

func writeTrackingHeader(f *excelize.File, sheet string, row int) (int, error) {
	row++
	style, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
		},
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
	})
	if err != nil {
		return row, err
	}
	cellFirst, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return row, err
	}
	cellLast, err := excelize.CoordinatesToCellName(len(trackingHeaders), row)
	if err != nil {
		return row, err
	}
	if err = f.SetCellStyle(sheet, cellFirst, cellLast, style); err != nil {
		return row, err
	}
	lastCol, err := excelize.ColumnNumberToName(len(trackingHeaders))
	if err != nil {
		return row, err
	}
	if err = f.SetColWidth(sheet, "A", lastCol, 22); err != nil {
		return row, err
	}
	for idx, value := range trackingHeaders {
		if err = writeTrackingCell(f, sheet, idx+1, row, value); err != nil {
			return row, err
		}
	}
	return row, nil
}
