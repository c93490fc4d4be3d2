package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gocarina/gocsv"

	"trackevo/internal/ga"
)

// Fixed2 is a float written with exactly two decimals, independent of locale.
type Fixed2 float64

// MarshalCSV implements gocsv.TypeMarshaller.
func (f Fixed2) MarshalCSV() (string, error) {
	return strconv.FormatFloat(float64(f), 'f', 2, 64), nil
}

// UnmarshalCSV implements gocsv.TypeUnmarshaller.
func (f *Fixed2) UnmarshalCSV(s string) error {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = Fixed2(v)
	return nil
}

// GenerationRecord is one row of the evolution CSV.
type GenerationRecord struct {
	Generation   int    `csv:"Generation"`
	BestFitness  Fixed2 `csv:"BestFitness"`
	AvgFitness   Fixed2 `csv:"AvgFitness"`
	WorstFitness Fixed2 `csv:"WorstFitness"`
}

// RecordFromSummary converts a generation summary to a CSV row.
func RecordFromSummary(s ga.Summary) GenerationRecord {
	return GenerationRecord{
		Generation:   s.Generation,
		BestFitness:  Fixed2(s.BestFitness),
		AvgFitness:   Fixed2(s.AvgFitness),
		WorstFitness: Fixed2(s.WorstFitness),
	}
}

// Logger handles all training output
type Logger struct {
	csvPath  string
	jsonPath string
	console  io.Writer

	csvFile          *os.File
	jsonFile         *os.File
	csvHeaderWritten bool
	initialized      bool
}

// NewLogger creates a new logger. console receives one progress line per
// generation and may be nil.
func NewLogger(csvPath, jsonPath string, console io.Writer) (*Logger, error) {
	l := &Logger{
		csvPath:  csvPath,
		jsonPath: jsonPath,
		console:  console,
	}

	// Ensure directories exist
	if err := os.MkdirAll(filepath.Dir(csvPath), 0755); err != nil {
		return nil, err
	}
	if jsonPath != "" {
		if err := os.MkdirAll(filepath.Dir(jsonPath), 0755); err != nil {
			return nil, err
		}
	}

	return l, nil
}

// Init truncates the log files. The CSV header is written with the first row.
func (l *Logger) Init() error {
	var err error

	l.csvFile, err = os.Create(l.csvPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", l.csvPath, err)
	}

	if l.jsonPath != "" {
		l.jsonFile, err = os.OpenFile(l.jsonPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			l.csvFile.Close()
			return fmt.Errorf("creating %s: %w", l.jsonPath, err)
		}
	}

	l.initialized = true
	return nil
}

// Close closes all log files
func (l *Logger) Close() error {
	var firstErr error
	if l.csvFile != nil {
		firstErr = l.csvFile.Close()
	}
	if l.jsonFile != nil {
		if err := l.jsonFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// WriteSummary appends a generation summary to the CSV and JSON-lines files
// and prints a console line.
func (l *Logger) WriteSummary(s ga.Summary) error {
	if !l.initialized {
		return fmt.Errorf("logger not initialized")
	}

	records := []GenerationRecord{RecordFromSummary(s)}
	if !l.csvHeaderWritten {
		// First write includes headers
		if err := gocsv.Marshal(records, l.csvFile); err != nil {
			return fmt.Errorf("writing csv: %w", err)
		}
		l.csvHeaderWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(records, l.csvFile); err != nil {
			return fmt.Errorf("writing csv: %w", err)
		}
	}

	if l.jsonFile != nil {
		line, err := json.Marshal(s)
		if err != nil {
			return err
		}
		if _, err := l.jsonFile.Write(append(line, '\n')); err != nil {
			return fmt.Errorf("writing json: %w", err)
		}
	}

	if l.console != nil {
		fmt.Fprintf(l.console, "Gen %4d | Best: %8.2f | Avg: %8.2f | Worst: %8.2f\n",
			s.Generation, s.BestFitness, s.AvgFitness, s.WorstFitness)
	}
	return nil
}

// ReadRecords parses an evolution CSV written by Logger.
func ReadRecords(r io.Reader) ([]GenerationRecord, error) {
	var records []GenerationRecord
	if err := gocsv.Unmarshal(r, &records); err != nil {
		return nil, err
	}
	return records, nil
}
