package profile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/parquet-go/parquet-go"
)

// timestampColumn is the name of the index column in profile files.
const timestampColumn = "timestamp"

// ReadFile loads a profile from a Parquet file.
//
// Expected layout: a "timestamp" column (int64 epoch milliseconds or a
// timestamp logical type) plus one float column per component ID, named by
// the decimal ID. Columns are ordered numerically in the result regardless
// of their file order.
func ReadFile(path string) (*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open profile: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat profile: %w", err)
	}
	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}

	ids, err := columnIDs(pf.Schema())
	if err != nil {
		return nil, err
	}

	reader := parquet.NewGenericReader[map[string]any](f, pf.Schema())
	defer reader.Close()

	var (
		timestamps []time.Time
		values     [][]float64
	)
	buf := make([]map[string]any, 64)
	for {
		for i := range buf {
			buf[i] = make(map[string]any, len(ids)+1)
		}
		n, err := reader.Read(buf)
		for _, rec := range buf[:n] {
			ts, tsErr := asTimestamp(rec[timestampColumn])
			if tsErr != nil {
				return nil, tsErr
			}
			row := make([]float64, len(ids))
			for c, id := range ids {
				v, vErr := asFloat(rec[strconv.FormatInt(id, 10)])
				if vErr != nil {
					return nil, fmt.Errorf("column %d: %w", id, vErr)
				}
				row[c] = v
			}
			timestamps = append(timestamps, ts)
			values = append(values, row)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read parquet rows: %w", err)
		}
	}

	return New(timestamps, ids, values)
}

// WriteFile stores a profile as a Parquet file with the layout ReadFile
// expects. Timestamps are written as int64 epoch milliseconds.
func WriteFile(path string, p *Profile) error {
	fields := parquet.Group{}
	fields[timestampColumn] = parquet.Leaf(parquet.Int64Type)
	for _, id := range p.IDs {
		fields[strconv.FormatInt(id, 10)] = parquet.Leaf(parquet.DoubleType)
	}
	schema := parquet.NewSchema("profile", fields)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	defer f.Close()

	writer := parquet.NewGenericWriter[map[string]any](f, schema)
	rows := make([]map[string]any, len(p.Timestamps))
	for t, ts := range p.Timestamps {
		rec := make(map[string]any, len(p.IDs)+1)
		rec[timestampColumn] = ts.UnixMilli()
		for c, id := range p.IDs {
			rec[strconv.FormatInt(id, 10)] = p.Values[t][c]
		}
		rows[t] = rec
	}
	if _, err := writer.Write(rows); err != nil {
		return fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}

// columnIDs extracts the component IDs from the schema, sorted numerically.
func columnIDs(schema *parquet.Schema) ([]int64, error) {
	var ids []int64
	sawIndex := false
	for _, field := range schema.Fields() {
		name := field.Name()
		if name == timestampColumn {
			sawIndex = true
			continue
		}
		id, err := strconv.ParseInt(name, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("profile column %q is not a numeric id", name)
		}
		ids = append(ids, id)
	}
	if !sawIndex {
		return nil, fmt.Errorf("profile is missing the %q column", timestampColumn)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func asTimestamp(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case int64:
		return time.UnixMilli(x).UTC(), nil
	case int32:
		return time.UnixMilli(int64(x)).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp value %T", v)
	}
}

func asFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case int32:
		return float64(x), nil
	default:
		return 0, fmt.Errorf("unsupported numeric value %T", v)
	}
}
