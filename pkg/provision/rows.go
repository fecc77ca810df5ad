package provision

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// CSV column names, matched case-insensitively
const (
	ColumnUsername = "username"
	ColumnPassword = "password"
	ColumnRole     = "role"
	ColumnProject  = "project"
)

// requiredColumns must all appear in the header
var requiredColumns = []string{ColumnUsername, ColumnPassword, ColumnRole}

var (
	// ErrMissingHeader is returned when the CSV header lacks a required column
	ErrMissingHeader = errors.New("CSV header is missing required columns")

	// ErrMissingFields marks a row without a username, password or role
	ErrMissingFields = errors.New("missing username/password/role")
)

const utf8BOM = "\ufeff"

// Record is one raw CSV data line with surrounding whitespace trimmed
type Record struct {
	// Row is the 1-based data row number; the header is not counted
	Row      int
	Username string
	Password string
	Role     string
	Project  string
}

// Row is a record with its project list resolved
type Row struct {
	Number    int
	Username  string
	Password  string
	RoleToken string
	Projects  []string
}

// ReadRecords reads every data row of a provisioning CSV. Columns other
// than Username, Password, Role and Project are ignored; missing columns
// read as empty cells.
func ReadRecords(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrMissingHeader
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, utf8BOM)
		}
		name = strings.ToLower(strings.TrimSpace(name))
		if _, dup := columns[name]; !dup {
			columns[name] = i
		}
	}
	var missing []string
	for _, required := range requiredColumns {
		if _, ok := columns[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingHeader, strings.Join(missing, ", "))
	}

	cell := func(fields []string, column string) string {
		i, ok := columns[column]
		if !ok || i >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[i])
	}

	var records []Record
	for rowNo := 1; ; rowNo++ {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row %d: %w", rowNo, err)
		}
		records = append(records, Record{
			Row:      rowNo,
			Username: cell(fields, ColumnUsername),
			Password: cell(fields, ColumnPassword),
			Role:     cell(fields, ColumnRole),
			Project:  cell(fields, ColumnProject),
		})
	}
	return records, nil
}

// NewRow resolves the project list of rec. A non-empty Project cell is split
// on whitespace and replaces defaults entirely.
func NewRow(rec Record, defaults []string) Row {
	row := Row{
		Number:    rec.Row,
		Username:  rec.Username,
		Password:  rec.Password,
		RoleToken: rec.Role,
	}
	if rec.Project != "" {
		row.Projects = strings.Fields(rec.Project)
	} else {
		row.Projects = append([]string(nil), defaults...)
	}
	return row
}

// Validate returns ErrMissingFields if a required field is empty
func (r Row) Validate() error {
	if r.Username == "" || r.Password == "" || r.RoleToken == "" {
		return ErrMissingFields
	}
	return nil
}

// SplitDefaultProjects parses the comma separated --project value
func SplitDefaultProjects(value string) []string {
	var projects []string
	for _, p := range strings.Split(value, ",") {
		if p = strings.TrimSpace(p); p != "" {
			projects = append(projects, p)
		}
	}
	return projects
}
