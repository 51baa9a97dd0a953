package export

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"kakdoma/internal/domain"
)

const sheetName = "Jobs"

var header = []string{
	"Job ID", "Correlation ID", "Media Ref", "Status", "Cycles",
	"Surname", "Given Names", "Nationality", "Confidence", "Checksum OK",
	"Duplicate", "Created At", "Updated At",
}

// JobsXLSX renders the job ledger as an XLSX workbook for operator reports.
// Document numbers never appear; only their hashes live in the results, and
// even those are left out of the export.
func JobsXLSX(jobs []domain.Job) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("export.JobsXLSX: creating sheet: %w", err)
	}
	f.SetActiveSheet(sheet)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("export.JobsXLSX: dropping default sheet: %w", err)
	}

	for col, title := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("export.JobsXLSX: header cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, title); err != nil {
			return nil, fmt.Errorf("export.JobsXLSX: header cell: %w", err)
		}
	}

	for i, job := range jobs {
		row := jobRow(job)
		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, fmt.Errorf("export.JobsXLSX: cell: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return nil, fmt.Errorf("export.JobsXLSX: cell: %w", err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("export.JobsXLSX: writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func jobRow(job domain.Job) []interface{} {
	surname, given, nationality := "", "", ""
	confidence, checksumOK, duplicate := "", "", ""
	if job.Result != nil {
		surname = job.Result.MRZ.Surname
		given = job.Result.MRZ.GivenNames
		nationality = job.Result.MRZ.Nationality
		confidence = strconv.FormatFloat(job.Result.MRZ.Confidence, 'f', 2, 64)
		checksumOK = strconv.FormatBool(job.Result.MRZ.ChecksumOK)
		duplicate = strconv.FormatBool(job.Result.DuplicateDetected)
	}
	return []interface{}{
		job.ID.String(), job.CorrelationID, job.MediaRef, string(job.Status),
		job.CycleCount, surname, given, nationality, confidence, checksumOK,
		duplicate,
		job.CreatedAt.Format("2006-01-02 15:04:05"),
		job.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}
