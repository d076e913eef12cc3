package chmap

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
)

// --------------------------------------------------------------------------
// Metrics
// --------------------------------------------------------------------------

// mapMetrics holds the per-map operation counters and size histograms. All
// metrics are registered in the default VictoriaMetrics set and labeled with
// the map name, so several maps in one process stay distinguishable.
type mapMetrics struct {
	gets     *metrics.Counter
	puts     *metrics.Counter
	removes  *metrics.Counter
	replaces *metrics.Counter
	merges   *metrics.Counter
	computes *metrics.Counter
	acquires *metrics.Counter
	iters    *metrics.Counter

	capacityErrors *metrics.Counter
	valueSize      *metrics.Histogram
}

func newMapMetrics(name string) *mapMetrics {
	op := func(kind string) *metrics.Counter {
		return metrics.GetOrCreateCounter(
			fmt.Sprintf(`chmap_ops_total{map=%q,op=%q}`, name, kind))
	}
	return &mapMetrics{
		gets:     op("get"),
		puts:     op("put"),
		removes:  op("remove"),
		replaces: op("replace"),
		merges:   op("merge"),
		computes: op("compute"),
		acquires: op("acquire"),
		iters:    op("iterate"),
		capacityErrors: metrics.GetOrCreateCounter(
			fmt.Sprintf(`chmap_capacity_errors_total{map=%q}`, name)),
		valueSize: metrics.GetOrCreateHistogram(
			fmt.Sprintf(`chmap_value_size_bytes{map=%q}`, name)),
	}
}

// observeError tracks error classes worth a dedicated series.
func (m *mapMetrics) observeError(err error) {
	if code, ok := CodeOf(err); ok && code == CodeCapacity {
		m.capacityErrors.Inc()
	}
}
