package menu

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/kapu/cashier-dialog-gen/internal/domain"
	"github.com/kapu/cashier-dialog-gen/internal/util"
	"github.com/kapu/cashier-dialog-gen/pkg/errors"
)

const noAllergens = "No Allergens"

// Column names shared by every source format.
const (
	colName        = "name"
	colServingSize = "serving_size"
	colIngredients = "ingredients"
	colAllergy     = "allergy"
	colEnergy      = "energy"
	colTotalSugar  = "total_sugar"
	colAddedSugar  = "added_sugar"
	colDescription = "description"
)

// Loader reads a menu catalog from CSV, XLSX or an exported HTML table.
type Loader struct {
	logger *zap.Logger
}

func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{logger: logger}
}

// Load dispatches on the file extension.
func (l *Loader) Load(path string) ([]domain.MenuItem, error) {
	var (
		rows [][]string
		err  error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		rows, err = readXLSX(path)
	case ".html", ".htm":
		rows, err = readHTML(path)
	default:
		rows, err = readCSV(path)
	}
	if err != nil {
		return nil, errors.NewServiceError("failed to read menu", "menu", "load", err)
	}

	items, err := rowsToItems(rows)
	if err != nil {
		return nil, errors.NewServiceError("failed to parse menu", "menu", "load", err)
	}

	l.logger.Info("Menu loaded",
		zap.String("path", path),
		zap.Int("items", len(items)),
	)
	return items, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseCSV(f)
}

func parseCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	return reader.ReadAll()
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("unable to read sheet: %w", err)
	}
	return rows, nil
}

func readHTML(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseHTMLTable(f)
}

func parseHTMLTable(r io.Reader) ([][]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("no <table> element found")
	}

	var rows [][]string
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var row []string
		tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			row = append(row, strings.TrimSpace(cell.Text()))
		})
		if len(row) > 0 {
			rows = append(rows, row)
		}
	})
	return rows, nil
}

// rowsToItems maps a header row plus data rows to menu items. Rows without a
// name are skipped.
func rowsToItems(rows [][]string) ([]domain.MenuItem, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("menu source is empty")
	}

	columns := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		columns[util.Normalize(strings.TrimPrefix(h, "\uFEFF"))] = i
	}
	if _, ok := columns[colName]; !ok {
		return nil, fmt.Errorf("menu source has no %q column", colName)
	}

	cell := func(row []string, col string) string {
		idx, ok := columns[col]
		if !ok || idx >= len(row) {
			return ""
		}
		return row[idx]
	}

	items := make([]domain.MenuItem, 0, len(rows)-1)
	for _, row := range rows[1:] {
		name := strings.TrimSpace(cell(row, colName))
		if name == "" {
			continue
		}
		items = append(items, domain.MenuItem{
			Name:        name,
			ServingSize: strings.TrimSpace(cell(row, colServingSize)),
			Ingredients: cell(row, colIngredients),
			Allergens:   normalizeAllergy(cell(row, colAllergy)),
			Energy:      parseNumber(cell(row, colEnergy)),
			TotalSugar:  parseNumber(cell(row, colTotalSugar)),
			AddedSugar:  parseNumber(cell(row, colAddedSugar)),
			Description: util.CollapseSpaces(cell(row, colDescription)),
		})
	}
	return items, nil
}

func normalizeAllergy(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, noAllergens) {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// parseNumber reads the leading numeric part of a cell ("154.5 kcal" -> 154.5);
// anything unreadable is 0.
func parseNumber(raw string) float64 {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, ",", "."))
	end := 0
	for end < len(raw) && (raw[end] == '.' || raw[end] == '-' || (raw[end] >= '0' && raw[end] <= '9')) {
		end++
	}
	v, err := strconv.ParseFloat(raw[:end], 64)
	if err != nil {
		return 0
	}
	return v
}
