package transcode

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
)

// Output columns appended to every written record
const (
	KeyColumn                 = "key"
	RomanNumeralsColumn       = "roman_numerals"
	HarmonicFingerprintColumn = "harmonic_fingerprint"
)

// OutputColumns lists the derived columns in the order they are written
var OutputColumns = []string{KeyColumn, RomanNumeralsColumn, HarmonicFingerprintColumn}

// ErrMissingColumn is returned when a required column is absent from the header
var ErrMissingColumn = errors.New("missing required column")

// Record is one CSV row keyed by column name
type Record struct {
	Line   int               `json:"line"`
	Fields map[string]string `json:"fields"`
}

// Get returns the value of a column, or "" when absent
func (r Record) Get(column string) string {
	return r.Fields[column]
}

// Set stores a column value
func (r *Record) Set(column, value string) {
	if r.Fields == nil {
		r.Fields = make(map[string]string)
	}
	r.Fields[column] = value
}

// RecordReader reads song records from CSV with a header row
type RecordReader struct {
	reader *csv.Reader
	header []string
	line   int
}

// NewRecordReader reads the header and checks that every required column is
// present
func NewRecordReader(r io.Reader, required ...string) (*RecordReader, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty input: %w", err)
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	for _, column := range required {
		if !slices.Contains(header, column) {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, column)
		}
	}

	return &RecordReader{
		reader: reader,
		header: header,
		line:   1,
	}, nil
}

// Header returns the input column names in file order
func (rr *RecordReader) Header() []string {
	return slices.Clone(rr.header)
}

// Read returns the next record, or io.EOF when input is exhausted. Short rows
// are padded with empty values.
func (rr *RecordReader) Read() (Record, error) {
	row, err := rr.reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("line %d: %w", rr.line+1, err)
	}
	rr.line++

	fields := make(map[string]string, len(rr.header))
	for i, column := range rr.header {
		if i < len(row) {
			fields[column] = row[i]
		} else {
			fields[column] = ""
		}
	}

	return Record{
		Line:   rr.line,
		Fields: fields,
	}, nil
}

// ReadAll reads every remaining record
func (rr *RecordReader) ReadAll() ([]Record, error) {
	var records []Record
	for {
		record, err := rr.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return records, err
		}
		records = append(records, record)
	}
}

// RecordWriter writes records as CSV: the input columns followed by any
// output column the input did not already carry
type RecordWriter struct {
	writer      *csv.Writer
	header      []string
	wroteHeader bool
}

// NewRecordWriter creates a writer for the given input header
func NewRecordWriter(w io.Writer, inputHeader []string) *RecordWriter {
	header := slices.Clone(inputHeader)
	for _, column := range OutputColumns {
		if !slices.Contains(header, column) {
			header = append(header, column)
		}
	}

	return &RecordWriter{
		writer: csv.NewWriter(w),
		header: header,
	}
}

// Header returns the output column names
func (rw *RecordWriter) Header() []string {
	return slices.Clone(rw.header)
}

// Write writes one record, emitting the header before the first row
func (rw *RecordWriter) Write(record Record) error {
	if !rw.wroteHeader {
		if err := rw.writer.Write(rw.header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		rw.wroteHeader = true
	}

	row := make([]string, len(rw.header))
	for i, column := range rw.header {
		row[i] = record.Fields[column]
	}
	if err := rw.writer.Write(row); err != nil {
		return fmt.Errorf("failed to write line %d: %w", record.Line, err)
	}
	return nil
}

// Flush writes buffered data, emitting the header if no record was written
func (rw *RecordWriter) Flush() error {
	if !rw.wroteHeader {
		if err := rw.writer.Write(rw.header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		rw.wroteHeader = true
	}
	rw.writer.Flush()
	return rw.writer.Error()
}
