package grid

import "time"

// NodeVoltageRow summarizes the voltage envelope for one timestamp.
type NodeVoltageRow struct {
	Timestamp      time.Time
	MaxVoltagePU   float64
	MaxVoltageNode int64
	MinVoltagePU   float64
	MinVoltageNode int64
}

// LineStatRow summarizes one line over the whole batch.
type LineStatRow struct {
	LineID              int64
	TotalLossKWh        float64
	MaxLoading          float64
	MaxLoadingTimestamp time.Time
	MinLoading          float64
	MinLoadingTimestamp time.Time
}

// NodeVoltageSummary reports, per timestamp, the maximum and minimum
// per-unit voltage and the nodes where they occur.
func NodeVoltageSummary(batch *BatchResult) []NodeVoltageRow {
	rows := make([]NodeVoltageRow, len(batch.Steps))
	for t, step := range batch.Steps {
		maxV, maxID := step.MaxUPu()
		minV, minID := step.MinUPu()
		rows[t] = NodeVoltageRow{
			Timestamp:      batch.Timestamps[t],
			MaxVoltagePU:   maxV,
			MaxVoltageNode: maxID,
			MinVoltagePU:   minV,
			MinVoltageNode: minID,
		}
	}
	return rows
}

// LineStatistics reports, per line, the energy lost over the batch window and
// the loading extremes with their timestamps.
//
// Losses are integrated trapezoidally over the actual timestamp spacing and
// reported in kWh.
func LineStatistics(batch *BatchResult) []LineStatRow {
	if len(batch.Steps) == 0 {
		return nil
	}
	first := batch.Steps[0]
	rows := make([]LineStatRow, len(first.LineIDs))

	for li, id := range first.LineIDs {
		row := LineStatRow{
			LineID:              id,
			MaxLoading:          first.Loading[li],
			MaxLoadingTimestamp: batch.Timestamps[0],
			MinLoading:          first.Loading[li],
			MinLoadingTimestamp: batch.Timestamps[0],
		}
		for t, step := range batch.Steps {
			loading := step.Loading[li]
			if loading > row.MaxLoading {
				row.MaxLoading = loading
				row.MaxLoadingTimestamp = batch.Timestamps[t]
			}
			if loading < row.MinLoading {
				row.MinLoading = loading
				row.MinLoadingTimestamp = batch.Timestamps[t]
			}
			if t > 0 {
				dt := batch.Timestamps[t].Sub(batch.Timestamps[t-1]).Hours()
				avg := (step.PLoss[li] + batch.Steps[t-1].PLoss[li]) / 2
				row.TotalLossKWh += avg * dt / 1000
			}
		}
		rows[li] = row
	}
	return rows
}

// maxLoadingPoint finds the batch-wide maximum line loading: the loading
// value, the line attaining it, and the timestamp.
func maxLoadingPoint(batch *BatchResult) (loading float64, lineID int64, ts time.Time) {
	loading = -1
	for t, step := range batch.Steps {
		for li, v := range step.Loading {
			if v > loading {
				loading = v
				lineID = step.LineIDs[li]
				ts = batch.Timestamps[t]
			}
		}
	}
	return loading, lineID, ts
}
