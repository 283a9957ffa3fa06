// Package workbook loads and exports the per-station Excel workbooks
// that back the planner. Each station lives in a "Database -
// <STATION>.xlsx" file holding a targets sheet and a weekly performance
// sheet. All monetary figures in the workbook are AED.
package workbook

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/skycargo/targetplanner/internal/planner"
)

const (
	filePrefix = "Database - "
	fileSuffix = ".xlsx"
)

// Targets sheet columns (first sheet).
var targetColumns = []string{"Week", "Tgt Wt", "Trgt Yield", "Tgt Rev"}

// Weekly performance sheet columns (second sheet). Agent is optional.
var weeklyColumns = []string{"Week", "Tonnage", "Revenue", "Yield"}

// Station is one station's loaded workbook: weekly targets and weekly
// per-agent performance, both keyed by week number.
type Station struct {
	Name    string
	Targets map[int]planner.Targets
	Weeks   map[int]planner.Table

	// WeekOrder lists the target weeks in ascending order, mirroring
	// the week picker.
	WeekOrder []int
}

// ScanStations lists station names from the workbook files in dir,
// sorted alphabetically. A missing directory is not an error — it just
// has no stations.
func ScanStations(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, filePrefix+"*"+fileSuffix))
	if err != nil {
		return nil, fmt.Errorf("scan stations: %w", err)
	}

	stations := make([]string, 0, len(matches))
	for _, path := range matches {
		name := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), filePrefix), fileSuffix)
		if name != "" {
			stations = append(stations, name)
		}
	}
	sort.Strings(stations)
	return stations, nil
}

// StationPath returns the workbook path for a station name.
func StationPath(dir, station string) string {
	return filepath.Join(dir, filePrefix+station+fileSuffix)
}

// LoadStation opens a station workbook and parses both sheets. Rows
// with non-numeric week labels (subtotal lines such as "Total") are
// skipped; unparseable numeric cells coerce to 0, matching the core's
// recovery policy. Row order within a week is preserved.
func LoadStation(dir, station string) (*Station, error) {
	path := StationPath(dir, station)
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open station workbook %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) < 2 {
		return nil, fmt.Errorf("workbook %s must contain at least 2 sheets (targets and weekly performance)", filepath.Base(path))
	}

	st := &Station{
		Name:    station,
		Targets: make(map[int]planner.Targets),
		Weeks:   make(map[int]planner.Table),
	}

	if err := st.loadTargets(f, sheets[0]); err != nil {
		return nil, err
	}
	if err := st.loadWeekly(f, sheets[1]); err != nil {
		return nil, err
	}

	st.WeekOrder = make([]int, 0, len(st.Targets))
	for week := range st.Targets {
		st.WeekOrder = append(st.WeekOrder, week)
	}
	sort.Ints(st.WeekOrder)

	return st, nil
}

func (st *Station) loadTargets(f *excelize.File, sheet string) error {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("read targets sheet: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("targets sheet %q is empty", sheet)
	}

	index, err := headerIndex(rows[0], targetColumns, "targets")
	if err != nil {
		return err
	}

	for _, row := range rows[1:] {
		week, ok := parseWeek(cell(row, index["Week"]))
		if !ok {
			continue
		}
		if _, seen := st.Targets[week]; seen {
			// First row wins when a week repeats.
			continue
		}
		st.Targets[week] = planner.Targets{
			Tonnage:  parseNumber(cell(row, index["Tgt Wt"])),
			AvgYield: parseNumber(cell(row, index["Trgt Yield"])),
			Revenue:  parseNumber(cell(row, index["Tgt Rev"])),
		}
	}

	if len(st.Targets) == 0 {
		return fmt.Errorf("no valid numeric weeks found in targets sheet %q", sheet)
	}
	return nil
}

func (st *Station) loadWeekly(f *excelize.File, sheet string) error {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("read weekly sheet: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("weekly sheet %q is empty", sheet)
	}

	index, err := headerIndex(rows[0], weeklyColumns, "weekly performance")
	if err != nil {
		return err
	}
	agentCol, hasAgent := index["Agent"]

	for _, row := range rows[1:] {
		week, ok := parseWeek(cell(row, index["Week"]))
		if !ok {
			continue
		}

		r := planner.Row{
			Tonnage: parseNumber(cell(row, index["Tonnage"])),
			Revenue: parseNumber(cell(row, index["Revenue"])),
			Yield:   parseNumber(cell(row, index["Yield"])),
		}
		if hasAgent {
			r.Agent = strings.TrimSpace(cell(row, agentCol))
		}

		tbl := st.Weeks[week]
		tbl.Week = week
		tbl.Rows = append(tbl.Rows, r)
		st.Weeks[week] = tbl
	}
	return nil
}

// headerIndex maps trimmed column names to positions and checks the
// required set, reporting every missing column at once.
func headerIndex(header []string, required []string, sheetKind string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}

	var missing []string
	for _, name := range required {
		if _, ok := index[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns in %s sheet: %s", sheetKind, strings.Join(missing, ", "))
	}
	return index, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// parseWeek accepts integer week labels, including float-formatted ones
// ("32.0"). Anything else — blank cells, "Total" lines — is skipped.
func parseWeek(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	week := int(f)
	if float64(week) != f {
		return 0, false
	}
	return week, true
}

// parseNumber coerces a cell to a float, stripping thousands separators;
// unparseable cells become 0 rather than failing the load.
func parseNumber(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
