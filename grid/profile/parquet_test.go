package profile

import (
	"math"
	"path/filepath"
	"reflect"
	"testing"
)

func TestParquetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "active_power.parquet")

	original := mustNew(t, ts(3), []int64{401, 402, 403},
		[][]float64{
			{8000.5, 9000.25, 10000},
			{8100, 9100, 10100.75},
			{8200, 9200, 10200},
		})

	if err := WriteFile(path, original); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	if !reflect.DeepEqual(got.IDs, original.IDs) {
		t.Errorf("ids = %v, want %v", got.IDs, original.IDs)
	}
	if got.Rows() != original.Rows() {
		t.Fatalf("rows = %d, want %d", got.Rows(), original.Rows())
	}
	for i := range original.Timestamps {
		if !got.Timestamps[i].Equal(original.Timestamps[i]) {
			t.Errorf("timestamp %d = %v, want %v", i, got.Timestamps[i], original.Timestamps[i])
		}
	}
	for r := range original.Values {
		for c := range original.Values[r] {
			if math.Abs(got.Values[r][c]-original.Values[r][c]) > 1e-12 {
				t.Errorf("value[%d][%d] = %v, want %v", r, c, got.Values[r][c], original.Values[r][c])
			}
		}
	}
}

func TestReadFile_Missing(t *testing.T) {
	if _, err := ReadFile(filepath.Join(t.TempDir(), "absent.parquet")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestReadFile_ColumnOrderIsNumeric(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unordered.parquet")

	// Column 1000 sorts before 900 lexicographically but after numerically.
	original := mustNew(t, ts(2), []int64{1000, 900},
		[][]float64{{1, 2}, {3, 4}})
	if err := WriteFile(path, original); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !reflect.DeepEqual(got.IDs, []int64{900, 1000}) {
		t.Fatalf("ids = %v, want numeric order", got.IDs)
	}
	col900, err := got.Column(900)
	if err != nil {
		t.Fatalf("Column(900): %v", err)
	}
	if !reflect.DeepEqual(col900, []float64{2, 4}) {
		t.Errorf("column 900 = %v, want [2 4]", col900)
	}
}
