package grid

import (
	"math"
	"testing"
	"time"
)

func summaryBatch() *BatchResult {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return &BatchResult{
		Timestamps: []time.Time{base, base.Add(30 * time.Minute), base.Add(time.Hour)},
		Steps: []*StepResult{
			{
				NodeIDs: []int64{1, 2}, UPu: []float64{1.00, 0.98},
				LineIDs: []int64{201, 202},
				Loading: []float64{0.40, 0.10},
				PLoss:   []float64{1000, 500},
			},
			{
				NodeIDs: []int64{1, 2}, UPu: []float64{1.01, 0.95},
				LineIDs: []int64{201, 202},
				Loading: []float64{0.70, 0.05},
				PLoss:   []float64{2000, 300},
			},
			{
				NodeIDs: []int64{1, 2}, UPu: []float64{0.99, 0.97},
				LineIDs: []int64{201, 202},
				Loading: []float64{0.50, 0.20},
				PLoss:   []float64{1500, 700},
			},
		},
	}
}

func TestNodeVoltageSummary(t *testing.T) {
	rows := NodeVoltageSummary(summaryBatch())
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}

	r := rows[1]
	if r.MaxVoltagePU != 1.01 || r.MaxVoltageNode != 1 {
		t.Errorf("row 1 max = %v at node %d, want 1.01 at node 1", r.MaxVoltagePU, r.MaxVoltageNode)
	}
	if r.MinVoltagePU != 0.95 || r.MinVoltageNode != 2 {
		t.Errorf("row 1 min = %v at node %d, want 0.95 at node 2", r.MinVoltagePU, r.MinVoltageNode)
	}
	if !r.Timestamp.Equal(summaryBatch().Timestamps[1]) {
		t.Errorf("row 1 timestamp = %v", r.Timestamp)
	}
}

func TestLineStatistics(t *testing.T) {
	batch := summaryBatch()
	rows := LineStatistics(batch)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}

	r201 := rows[0]
	if r201.LineID != 201 {
		t.Fatalf("first row is line %d, want 201", r201.LineID)
	}
	if r201.MaxLoading != 0.70 || !r201.MaxLoadingTimestamp.Equal(batch.Timestamps[1]) {
		t.Errorf("max loading = %v at %v", r201.MaxLoading, r201.MaxLoadingTimestamp)
	}
	if r201.MinLoading != 0.40 || !r201.MinLoadingTimestamp.Equal(batch.Timestamps[0]) {
		t.Errorf("min loading = %v at %v", r201.MinLoading, r201.MinLoadingTimestamp)
	}

	// Trapezoid over two half-hour intervals:
	// (1000+2000)/2 * 0.5h + (2000+1500)/2 * 0.5h = 750 + 875 = 1625 Wh.
	want := 1.625
	if math.Abs(r201.TotalLossKWh-want) > 1e-9 {
		t.Errorf("total loss = %v kWh, want %v", r201.TotalLossKWh, want)
	}
}

func TestLineStatistics_EmptyBatch(t *testing.T) {
	if rows := LineStatistics(&BatchResult{}); rows != nil {
		t.Errorf("empty batch rows = %v, want nil", rows)
	}
}

func TestMaxLoadingPoint(t *testing.T) {
	batch := summaryBatch()
	loading, lineID, ts := maxLoadingPoint(batch)
	if loading != 0.70 || lineID != 201 || !ts.Equal(batch.Timestamps[1]) {
		t.Errorf("maxLoadingPoint = %v, %d, %v", loading, lineID, ts)
	}
}
