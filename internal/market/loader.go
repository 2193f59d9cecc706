package market

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// kline mirrors the exchange export row shape: millisecond open time plus
// string-encoded decimal fields.
type kline struct {
	OpenTime int64   `json:"openTime"`
	Open     float64 `json:"open,string"`
	High     float64 `json:"high,string"`
	Low      float64 `json:"low,string"`
	Close    float64 `json:"close,string"`
	Volume   float64 `json:"volume,string"`
}

// LoadFile reads a candle series from a .json or .csv export and validates
// its ordering. JSON files hold an array of kline objects; CSV files hold
// openTime(ms),open,high,low,close,volume rows with an optional header.
func LoadFile(path string) (Series, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return loadJSON(path)
	case ".csv":
		return loadCSV(path)
	default:
		return nil, fmt.Errorf("unsupported candle file %q: want .json or .csv", path)
	}
}

func loadJSON(path string) (Series, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read candle file: %w", err)
	}

	var rows []kline
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parse candle file %s: %w", path, err)
	}

	series := make(Series, 0, len(rows))
	for _, row := range rows {
		series = append(series, Candle{
			OpenTime: time.UnixMilli(row.OpenTime).UTC(),
			Open:     row.Open,
			High:     row.High,
			Low:      row.Low,
			Close:    row.Close,
			Volume:   row.Volume,
		})
	}

	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("candle file %s: %w", path, err)
	}
	return series, nil
}

func loadCSV(path string) (Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read candle file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 6

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse candle file %s: %w", path, err)
	}

	series := make(Series, 0, len(records))
	for i, rec := range records {
		if i == 0 && !isNumeric(rec[0]) {
			continue // header row
		}
		candle, err := parseCSVRow(rec)
		if err != nil {
			return nil, fmt.Errorf("candle file %s row %d: %w", path, i+1, err)
		}
		series = append(series, candle)
	}

	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("candle file %s: %w", path, err)
	}
	return series, nil
}

func parseCSVRow(rec []string) (Candle, error) {
	openTime, err := strconv.ParseInt(strings.TrimSpace(rec[0]), 10, 64)
	if err != nil {
		return Candle{}, fmt.Errorf("open time: %w", err)
	}

	fields := make([]float64, 5)
	for i := 0; i < 5; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[i+1]), 64)
		if err != nil {
			return Candle{}, fmt.Errorf("column %d: %w", i+2, err)
		}
		fields[i] = v
	}

	return Candle{
		OpenTime: time.UnixMilli(openTime).UTC(),
		Open:     fields[0],
		High:     fields[1],
		Low:      fields[2],
		Close:    fields[3],
		Volume:   fields[4],
	}, nil
}

func isNumeric(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}
