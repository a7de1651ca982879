package excel

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"practice-tracker/internal/dates"
	"practice-tracker/internal/repository"
)

// Column names recognized in the header row of an import file.
const (
	colFullName     = "full_name"
	colEndDate      = "end_date"
	colPracticeName = "practice_name"
	colDescription  = "task_description"
	colStartDate    = "start_date"
	colUsername     = "tg_username"
	colPhone        = "phone"
)

const defaultDescription = "Без описания"

// ErrMissingColumns means the header row lacks full_name or end_date.
// This is fatal for the whole batch, checked before any row is read.
var ErrMissingColumns = errors.New("import file must contain full_name and end_date columns")

// Row is one imported task record before reconciliation.
type Row struct {
	FullName     string
	PracticeName string
	Description  string
	StartDate    *time.Time
	EndDate      time.Time
	Username     string
	Phone        string
}

// Parse reads the first sheet of an xlsx workbook. Rows without a full
// name or with an unparseable end date are dropped and counted in
// skipped; they never fail the batch.
func Parse(r io.Reader, loc *time.Location) (rows []Row, skipped int, err error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, 0, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	raw, err := f.GetRows(sheet)
	if err != nil {
		return nil, 0, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(raw) == 0 {
		return nil, 0, ErrMissingColumns
	}

	cols := make(map[string]int)
	for i, cell := range raw[0] {
		name := strings.ToLower(strings.TrimSpace(cell))
		if name != "" {
			cols[name] = i
		}
	}
	if _, ok := cols[colFullName]; !ok {
		return nil, 0, ErrMissingColumns
	}
	if _, ok := cols[colEndDate]; !ok {
		return nil, 0, ErrMissingColumns
	}

	for _, cells := range raw[1:] {
		fullName := cellValue(cells, cols, colFullName)
		if fullName == "" {
			skipped++
			continue
		}
		endDate, err := dates.ParseDate(cellValue(cells, cols, colEndDate), loc)
		if err != nil {
			skipped++
			continue
		}

		row := Row{
			FullName:     fullName,
			PracticeName: cellValue(cells, cols, colPracticeName),
			Description:  cellValue(cells, cols, colDescription),
			EndDate:      endDate,
			Phone:        cellValue(cells, cols, colPhone),
		}
		if row.Description == "" {
			row.Description = row.PracticeName
		}
		if row.Description == "" {
			row.Description = defaultDescription
		}
		if start, err := dates.ParseDate(cellValue(cells, cols, colStartDate), loc); err == nil {
			row.StartDate = &start
		}
		if username := cellValue(cells, cols, colUsername); username != "" {
			if !strings.HasPrefix(username, "@") {
				username = "@" + username
			}
			row.Username = username
		}

		rows = append(rows, row)
	}

	return rows, skipped, nil
}

func cellValue(cells []string, cols map[string]int, name string) string {
	idx, ok := cols[name]
	if !ok || idx >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[idx])
}

// Export writes every task with its owner to a temporary xlsx file and
// returns the path. The caller removes the file after sending it.
func Export(rows []repository.ExportRow) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Все задачи"
	f.SetSheetName("Sheet1", sheet)

	header := []interface{}{
		colPracticeName, colStartDate, colEndDate, colFullName,
		colUsername, colPhone, colDescription, "status", "next_reminder",
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return "", fmt.Errorf("write header: %w", err)
	}

	for i, row := range rows {
		startDate := ""
		if row.StartDate != nil {
			startDate = dates.FormatDate(*row.StartDate)
		}
		nextReminder := ""
		if row.NextReminder != nil {
			nextReminder = row.NextReminder.Format("2006-01-02 15:04:05")
		}
		values := []interface{}{
			row.PracticeName,
			startDate,
			dates.FormatDate(row.EndDate),
			row.FullName,
			orDash(row.Username),
			orDash(row.Phone),
			row.Description,
			row.Status.Label(),
			nextReminder,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return "", err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return "", fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	return saveTemp(f, "tasks")
}

// Template produces the import template sent to admins: one sheet with
// the full column set and one with the minimal required form.
func Template() (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	full := "Полный формат"
	f.SetSheetName("Sheet1", full)
	fullHeader := []interface{}{colPracticeName, colStartDate, colEndDate, colFullName, colUsername, colPhone}
	fullExample := []interface{}{"Производственная практика", "2025-06-01", "2025-07-15", "Иванов И.И.", "@ivanov", "+79991234567"}
	if err := f.SetSheetRow(full, "A1", &fullHeader); err != nil {
		return "", err
	}
	if err := f.SetSheetRow(full, "A2", &fullExample); err != nil {
		return "", err
	}

	short := "Краткий формат"
	if _, err := f.NewSheet(short); err != nil {
		return "", err
	}
	shortHeader := []interface{}{colFullName, colDescription, colEndDate}
	shortExample := []interface{}{"Петров П.П.", "Подготовить программу практики", "15.07.2025"}
	if err := f.SetSheetRow(short, "A1", &shortHeader); err != nil {
		return "", err
	}
	if err := f.SetSheetRow(short, "A2", &shortExample); err != nil {
		return "", err
	}

	return saveTemp(f, "template")
}

func saveTemp(f *excelize.File, prefix string) (string, error) {
	path := filepath.Join(os.TempDir(), fmt.Sprintf("%s-%s.xlsx", prefix, uuid.NewString()))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}
	return path, nil
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "—"
	}
	return value
}
