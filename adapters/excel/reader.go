// Package excel reads tabular datasets from Excel and CSV files into frames.
package excel

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gostrat/internal"
	"gostrat/internal/errors"
	"gostrat/internal/frame"

	"github.com/xuri/excelize/v2"
)

// DataReader handles reading Excel and CSV files
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
}

// NewDataReader creates a new data reader that handles both Excel and CSV files
func NewDataReader(filePath string) *DataReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	return &DataReader{filePath: filePath, fileType: fileType}
}

// ReadData reads the file into a frame
func (r *DataReader) ReadData() (*frame.Frame, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, errors.New("FILE_NOT_FOUND", fmt.Sprintf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath))
	}

	switch r.fileType {
	case "csv":
		return r.readCSVData()
	case "xlsx":
		return r.readExcelData()
	default:
		return nil, errors.New("UNSUPPORTED_FILE_TYPE", fmt.Sprintf("unsupported file type: %s", r.fileType))
	}
}

func (r *DataReader) readCSVData() (*frame.Frame, error) {
	f, err := os.Open(r.filePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open CSV file")
	}
	defer f.Close()
	return frame.ReadCSV(f)
}

// readExcelData reads the first sheet into a frame
func (r *DataReader) readExcelData() (*frame.Frame, error) {
	startTime := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open Excel file")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("EMPTY_WORKBOOK", "Excel file has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read sheet %q", sheets[0])
	}
	internal.DefaultLogger.Debug("[DataReader] %s read in %.2fms (%d rows)",
		sheets[0], float64(time.Since(startTime).Nanoseconds())/1e6, len(rows))

	if len(rows) < 2 {
		return nil, errors.New("EMPTY_SHEET", "Excel file must have at least a header row and one data row")
	}
	return framify(rows)
}

// framify converts raw sheet cells into a typed frame, coercing each column
// with the same policy the CSV reader uses.
func framify(rows [][]string) (*frame.Frame, error) {
	header := rows[0]
	body := rows[1:]

	out := frame.New(header...)
	cols := make([][]frame.Value, len(header))
	for j := range header {
		raw := make([]string, len(body))
		for i, rec := range body {
			if j < len(rec) {
				raw[i] = rec[j]
			}
		}
		cols[j] = frame.CoerceColumn(raw)
	}

	cells := make([]frame.Value, len(header))
	for i := range body {
		for j := range header {
			cells[j] = cols[j][i]
		}
		if err := out.AppendRow(cells...); err != nil {
			return nil, errors.Wrapf(err, "failed to append row %d", i)
		}
	}
	return out, nil
}
