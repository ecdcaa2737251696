package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, c.Write(m))
	return m.GetCounter().GetValue()
}

func TestIncBusDropDefaultsLabels(t *testing.T) {
	before := counterValue(t, BusDroppedTotal.WithLabelValues("unknown", "unknown"))
	IncBusDrop("", "")
	after := counterValue(t, BusDroppedTotal.WithLabelValues("unknown", "unknown"))
	require.Equal(t, before+1, after)
}

func TestObserveHearingSync(t *testing.T) {
	before := counterValue(t, HearingSyncTotal.WithLabelValues("applied"))
	ObserveHearingSync("applied", 2)
	require.Equal(t, before+1, counterValue(t, HearingSyncTotal.WithLabelValues("applied")))
}
