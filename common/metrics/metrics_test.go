package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetricsCount(t *testing.T) {
	t.Parallel()

	m := New("evn_test")
	m.StreamCreated()
	m.StreamCreated()
	m.ConnectionAccepted()
	m.ConnectionOpened()
	m.BytesReceived(10)
	m.BytesReceived(-1)
	m.BytesSent(7)
	m.Drained()
	m.Error(OpSend)
	m.Error(OpSend)
	m.StreamClosed()

	require.Equal(t, 1.0, testutil.ToFloat64(m.open))
	require.Equal(t, 1.0, testutil.ToFloat64(m.accepted))
	require.Equal(t, 1.0, testutil.ToFloat64(m.opened))
	require.Equal(t, 10.0, testutil.ToFloat64(m.received))
	require.Equal(t, 7.0, testutil.ToFloat64(m.sent))
	require.Equal(t, 1.0, testutil.ToFloat64(m.drains))
	require.Equal(t, 2.0, testutil.ToFloat64(m.errors.WithLabelValues(OpSend)))
}

func TestMetricsNilReceiver(t *testing.T) {
	t.Parallel()

	var m *Metrics
	require.NotPanics(t, func() {
		m.StreamCreated()
		m.ConnectionAccepted()
		m.BytesSent(1)
		m.Error(OpRecv)
		m.StreamClosed()
	})
	require.Nil(t, m.Collectors())
}

func TestMetricsRegister(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m := New("evn_register")
	require.NoError(t, m.Register(registry))
	require.Error(t, m.Register(registry))

	m.ConnectionAccepted()
	families, err := registry.Gather()
	require.NoError(t, err)
	var names []string
	for _, family := range families {
		names = append(names, family.GetName())
	}
	require.Contains(t, names, "evn_register_connections_accepted_total")
}
