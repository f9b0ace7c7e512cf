package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"DCAPilot/internal/model"
)

// TimeLayout is the timestamp format of the ledger's first column. It carries
// the zone offset so a row reads back as the same instant on any host.
const TimeLayout = time.RFC3339

// legacyTimeLayout is the zone-less format of older ledgers, read as local time.
const legacyTimeLayout = "2006-01-02 15:04:05"

var header = []string{"timestamp", "symbol", "quantity", "price", "total_spent"}

// CSVLedger stores trades as rows of a CSV file. The first append creates the
// file and writes the header.
type CSVLedger struct {
	path string
	mu   sync.Mutex
}

// NewCSVLedger returns a ledger backed by path. The file is not touched until the first append.
func NewCSVLedger(path string) *CSVLedger {
	return &CSVLedger{path: path}
}

// Path returns the backing file path.
func (l *CSVLedger) Path() string { return l.path }

// Append writes one record.
func (l *CSVLedger) Append(rec model.TradeRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create ledger dir: %w", err)
		}
	}
	info, err := os.Stat(l.path)
	needHeader := errors.Is(err, os.ErrNotExist) || (err == nil && info.Size() == 0)

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if needHeader {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("write ledger header: %w", err)
		}
	}
	row := []string{
		rec.Timestamp.Format(TimeLayout),
		rec.Symbol,
		rec.Quantity.String(),
		rec.Price.String(),
		rec.TotalSpent.String(),
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("write ledger row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush ledger: %w", err)
	}
	return nil
}

// ReadAll returns every record in file order. A missing file is an empty ledger.
func (l *CSVLedger) ReadAll() ([]model.TradeRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(header)

	var out []model.TradeRecord
	for line := 1; ; line++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read ledger line %d: %w", line, err)
		}
		if line == 1 && row[0] == header[0] {
			continue
		}
		rec, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("ledger line %d: %w", line, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func parseRow(row []string) (model.TradeRecord, error) {
	ts, err := time.Parse(TimeLayout, row[0])
	if err != nil {
		var legacyErr error
		if ts, legacyErr = time.ParseInLocation(legacyTimeLayout, row[0], time.Local); legacyErr != nil {
			return model.TradeRecord{}, fmt.Errorf("timestamp: %w", err)
		}
	}
	rec := model.TradeRecord{Timestamp: ts, Symbol: row[1]}
	if rec.Quantity, err = decimal.NewFromString(row[2]); err != nil {
		return model.TradeRecord{}, fmt.Errorf("quantity: %w", err)
	}
	if rec.Price, err = decimal.NewFromString(row[3]); err != nil {
		return model.TradeRecord{}, fmt.Errorf("price: %w", err)
	}
	if rec.TotalSpent, err = decimal.NewFromString(row[4]); err != nil {
		return model.TradeRecord{}, fmt.Errorf("total_spent: %w", err)
	}
	return rec, nil
}
