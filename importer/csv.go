/*
Package importer turns delimited staff lists into employee candidates.

FORMAT:
  First row is a header. Recognised columns (case and spacing ignored):

    First Name, Last Name, Email, District   required
    Position, Start Date, Status             optional
    Vacation, Personal, Sick                 optional yearly totals

  Delimiter is ',', '\t' or ';'. When not given it is guessed from the
  header row.

ROW CHECKS:
  - every required field present and non-blank
  - email well-formed
  - email not already seen earlier in the same file (first wins)

  Rows failing any check are reported, never imported. Checks against
  employees already stored happen later, in tracker.Service.ImportEmployees.
*/
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/warp/leave-tracker/tracker"
)

var (
	ErrEmptyInput       = errors.New("import file is empty")
	ErrMissingColumns   = errors.New("missing required columns")
	ErrInvalidDelimiter = errors.New("delimiter must be ',', tab or ';'")
)

// Delimiters lists the accepted field separators.
var Delimiters = []rune{',', '\t', ';'}

var validate = validator.New()

// Row is one data line of the file, before conversion.
type Row struct {
	Line      int    `validate:"-"`
	FirstName string `validate:"required"`
	LastName  string `validate:"required"`
	Email     string `validate:"required,email"`
	District  string `validate:"required"`
	Position  string
	StartDate string
	Status    string
	Totals    map[tracker.LeaveType]string `validate:"-"`
}

// RowError lists everything wrong with one line.
type RowError struct {
	Line   int      `json:"line"`
	Email  string   `json:"email,omitempty"`
	Errors []string `json:"errors"`
}

// Result is the outcome of parsing a whole file.
type Result struct {
	Headers    []string                `json:"headers"`
	Candidates []tracker.EmployeeInput `json:"-"`
	Errors     []RowError              `json:"errors"`
	Duplicates []int                   `json:"duplicates"` // line numbers
	Rows       int                     `json:"rows"`
}

// Valid reports whether every row passed.
func (r *Result) Valid() bool { return len(r.Errors) == 0 }

// =============================================================================
// COLUMN MAPPING
// =============================================================================

type column int

const (
	colFirstName column = iota
	colLastName
	colEmail
	colDistrict
	colPosition
	colStartDate
	colStatus
	colVacation
	colPersonal
	colSick
)

var columnNames = map[string]column{
	"firstname":  colFirstName,
	"lastname":   colLastName,
	"email":      colEmail,
	"district":   colDistrict,
	"department": colDistrict,
	"position":   colPosition,
	"startdate":  colStartDate,
	"status":     colStatus,
	"vacation":   colVacation,
	"personal":   colPersonal,
	"sick":       colSick,
}

var requiredColumns = []struct {
	col  column
	name string
}{
	{colFirstName, "First Name"},
	{colLastName, "Last Name"},
	{colEmail, "Email"},
	{colDistrict, "District"},
}

func headerKey(h string) string {
	h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(h)
}

// =============================================================================
// PARSING
// =============================================================================

// DetectDelimiter picks the accepted delimiter that occurs most often in
// the first line. Defaults to ','.
func DetectDelimiter(firstLine string) rune {
	best, bestCount := ',', 0
	for _, d := range Delimiters {
		if n := strings.Count(firstLine, string(d)); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

// ParseDelimiter maps a user-supplied name or character to a delimiter.
// Empty input returns 0, meaning "detect".
func ParseDelimiter(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "":
		return 0, nil
	case ",", "comma":
		return ',', nil
	case "\t", `\t`, "tab":
		return '\t', nil
	case ";", "semicolon":
		return ';', nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidDelimiter, s)
}

// Parse reads a delimited file. delimiter 0 means detect from the header.
// A file without the required columns is rejected as a whole; row-level
// problems are collected in Result.Errors.
func Parse(r io.Reader, delimiter rune) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read import file: %w", err)
	}
	text := strings.TrimSpace(strings.ReplaceAll(string(data), "\r\n", "\n"))
	if text == "" {
		return nil, ErrEmptyInput
	}
	if delimiter == 0 {
		first, _, _ := strings.Cut(text, "\n")
		delimiter = DetectDelimiter(first)
	}
	if !validDelimiter(delimiter) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDelimiter, delimiter)
	}

	cr := csv.NewReader(strings.NewReader(text))
	cr.Comma = delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	index := map[column]int{}
	for i, h := range header {
		if c, ok := columnNames[headerKey(h)]; ok {
			if _, dup := index[c]; !dup {
				index[c] = i
			}
		}
	}
	var missing []string
	for _, rc := range requiredColumns {
		if _, ok := index[rc.col]; !ok {
			missing = append(missing, rc.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	res := &Result{
		Headers:    header,
		Candidates: []tracker.EmployeeInput{},
		Errors:     []RowError{},
		Duplicates: []int{},
	}
	seen := map[string]bool{}
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			res.Errors = append(res.Errors, RowError{Line: line, Errors: []string{err.Error()}})
			continue
		}
		res.Rows++

		row := toRow(record, index, line)
		in, problems := convert(row)

		key := strings.ToLower(row.Email)
		if key != "" {
			if seen[key] {
				res.Duplicates = append(res.Duplicates, line)
				problems = append(problems, "duplicate email address")
			} else {
				seen[key] = true
			}
		}
		if len(problems) > 0 {
			res.Errors = append(res.Errors, RowError{Line: line, Email: row.Email, Errors: problems})
			continue
		}
		res.Candidates = append(res.Candidates, in)
	}
	return res, nil
}

func validDelimiter(d rune) bool {
	for _, ok := range Delimiters {
		if d == ok {
			return true
		}
	}
	return false
}

func toRow(record []string, index map[column]int, line int) Row {
	get := func(c column) string {
		i, ok := index[c]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}
	row := Row{
		Line:      line,
		FirstName: get(colFirstName),
		LastName:  get(colLastName),
		Email:     get(colEmail),
		District:  get(colDistrict),
		Position:  get(colPosition),
		StartDate: get(colStartDate),
		Status:    get(colStatus),
		Totals:    map[tracker.LeaveType]string{},
	}
	for c, t := range map[column]tracker.LeaveType{colVacation: tracker.LeaveVacation, colPersonal: tracker.LeavePersonal, colSick: tracker.LeaveSick} {
		if v := get(c); v != "" {
			row.Totals[t] = v
		}
	}
	return row
}

// convert validates a row and builds the employee input. All problems are
// returned, not just the first.
func convert(row Row) (tracker.EmployeeInput, []string) {
	var problems []string
	if err := validate.Struct(row); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				problems = append(problems, describe(fe))
			}
		} else {
			problems = append(problems, err.Error())
		}
	}

	in := tracker.EmployeeInput{
		FirstName: row.FirstName,
		LastName:  row.LastName,
		Email:     row.Email,
		District:  row.District,
		Position:  row.Position,
	}
	if row.StartDate != "" {
		d, err := tracker.ParseDate(row.StartDate)
		if err != nil {
			problems = append(problems, fmt.Sprintf("invalid start date %q", row.StartDate))
		}
		in.StartDate = d
	}
	if row.Status != "" {
		st := tracker.EmployeeStatus(strings.ToLower(row.Status))
		if !st.Valid() {
			problems = append(problems, fmt.Sprintf("invalid status %q", row.Status))
		}
		in.Status = st
	}
	if len(row.Totals) > 0 {
		alloc := tracker.DefaultAllocation
		for t, raw := range row.Totals {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				problems = append(problems, fmt.Sprintf("invalid %s total %q", t, raw))
				continue
			}
			switch t {
			case tracker.LeaveVacation:
				alloc.Vacation = n
			case tracker.LeavePersonal:
				alloc.Personal = n
			case tracker.LeaveSick:
				alloc.Sick = n
			}
		}
		in.Allocation = &alloc
	}
	return in, problems
}

func describe(fe validator.FieldError) string {
	name := map[string]string{
		"FirstName": "First Name",
		"LastName":  "Last Name",
		"Email":     "Email",
		"District":  "District",
	}[fe.Field()]
	if name == "" {
		name = fe.Field()
	}
	switch fe.Tag() {
	case "required":
		return "missing required field: " + name
	case "email":
		return "invalid email format"
	}
	return name + " is invalid"
}
