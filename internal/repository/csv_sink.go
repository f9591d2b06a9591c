package repository

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"TradeCore/internal/domain/models"
	domrepo "TradeCore/internal/domain/repository"
	"TradeCore/pkg/util"
)

const (
	// DefaultCSVPath is used when no path is configured.
	DefaultCSVPath = "trade-decisions.csv"
	// CSVHeader is the first line of every decisions file.
	CSVHeader = "ticker,state,action,confidence,triggeredRules,timestamp"
)

// CSVSink appends decisions to a flat file. Rows are separated by a leading
// newline, so the file never ends with one. Appends from this process are
// serialized.
type CSVSink struct {
	path string
	mu   sync.Mutex
}

var _ domrepo.DecisionSink = (*CSVSink)(nil)

func NewCSVSink(path string) *CSVSink {
	if path == "" {
		path = DefaultCSVPath
	}
	return &CSVSink{path: path}
}

func (s *CSVSink) Path() string { return s.path }

func (s *CSVSink) Append(d models.TradeDecision) domrepo.CSVOutputResult {
	return s.AppendBatch([]models.TradeDecision{d})
}

// AppendBatch writes every row in one file operation. An empty batch
// succeeds without touching the file.
func (s *CSVSink) AppendBatch(ds []models.TradeDecision) domrepo.CSVOutputResult {
	if len(ds) == 0 {
		return domrepo.CSVOutputResult{Success: true, FilePath: s.path}
	}

	rows := make([]string, 0, len(ds))
	for _, d := range ds {
		row, err := FormatCSVRow(d)
		if err != nil {
			return s.failed(err)
		}
		rows = append(rows, row)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var buf strings.Builder
	if s.needsHeader() {
		buf.WriteString(CSVHeader)
	}
	for _, row := range rows {
		buf.WriteByte('\n')
		buf.WriteString(row)
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return s.failed(err)
	}
	if _, err := f.WriteString(buf.String()); err != nil {
		_ = f.Close()
		return s.failed(err)
	}
	if err := f.Close(); err != nil {
		return s.failed(err)
	}

	return domrepo.CSVOutputResult{Success: true, FilePath: s.path, RecordsWritten: len(ds)}
}

// Recent returns up to limit of the newest decisions, newest first,
// optionally filtered by ticker. A missing file yields no decisions.
func (s *CSVSink) Recent(ticker string, limit int) ([]models.TradeDecision, error) {
	s.mu.Lock()
	all, err := ReadDecisions(s.path)
	s.mu.Unlock()
	if errors.Is(err, os.ErrNotExist) {
		return []models.TradeDecision{}, nil
	}
	if err != nil {
		return nil, err
	}

	out := make([]models.TradeDecision, 0)
	for i := len(all) - 1; i >= 0; i-- {
		if ticker != "" && !strings.EqualFold(all[i].Ticker, ticker) {
			continue
		}
		out = append(out, all[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// needsHeader must be called with mu held.
func (s *CSVSink) needsHeader() bool {
	fi, err := os.Stat(s.path)
	return err != nil || fi.Size() == 0
}

func (s *CSVSink) failed(err error) domrepo.CSVOutputResult {
	return domrepo.CSVOutputResult{FilePath: s.path, Error: err.Error()}
}

// FormatCSVRow renders one decision row without a line terminator.
func FormatCSVRow(d models.TradeDecision) (string, error) {
	rules, err := marshalRules(d.TriggeredRules)
	if err != nil {
		return "", err
	}
	return strings.Join([]string{
		d.Ticker,
		string(d.State),
		string(d.Action),
		util.FormatFloat(d.Confidence),
		rules,
		`"` + util.FormatISOMillis(d.Timestamp) + `"`,
	}, ","), nil
}

// marshalRules encodes a JSON array without HTML escaping, so "<" and ">"
// in rule descriptions stay literal.
func marshalRules(rules []string) (string, error) {
	if rules == nil {
		rules = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rules); err != nil {
		return "", fmt.Errorf("encode triggered rules: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// ReadDecisions parses a decisions file written by CSVSink.
func ReadDecisions(path string) ([]models.TradeDecision, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	lines := strings.Split(string(b), "\n")
	out := make([]models.TradeDecision, 0, len(lines))
	for i, line := range lines {
		line = strings.TrimRight(line, "\r")
		if line == "" || (i == 0 && line == CSVHeader) {
			continue
		}
		d, err := ParseCSVRow(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		out = append(out, d)
	}
	return out, nil
}

// ParseCSVRow is the inverse of FormatCSVRow. The rules array may contain
// commas, so the first four and the last field are split off around it.
func ParseCSVRow(line string) (models.TradeDecision, error) {
	head := strings.SplitN(line, ",", 5)
	if len(head) != 5 {
		return models.TradeDecision{}, fmt.Errorf("malformed row: %q", line)
	}
	last := strings.LastIndex(head[4], ",")
	if last < 0 {
		return models.TradeDecision{}, fmt.Errorf("malformed row: %q", line)
	}
	rulesField, tsField := head[4][:last], head[4][last+1:]

	conf, err := strconv.ParseFloat(head[3], 64)
	if err != nil {
		return models.TradeDecision{}, fmt.Errorf("confidence: %w", err)
	}
	rules := []string{}
	if err := json.Unmarshal([]byte(rulesField), &rules); err != nil {
		return models.TradeDecision{}, fmt.Errorf("triggeredRules: %w", err)
	}
	ts, ok := util.ParseTime(strings.Trim(tsField, `"`))
	if !ok {
		return models.TradeDecision{}, fmt.Errorf("timestamp: %q", tsField)
	}

	return models.TradeDecision{
		Ticker:         head[0],
		State:          models.TradeState(head[1]),
		Action:         models.Action(head[2]),
		Confidence:     conf,
		TriggeredRules: rules,
		Timestamp:      ts.UTC(),
	}, nil
}
