package stats

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/neox5/statbox/internal/config"
	"github.com/neox5/statbox/internal/exporter"
	"github.com/stretchr/testify/require"
)

func TestNewSelectsBackend(t *testing.T) {
	ctx := context.Background()

	s, err := New(ctx, &config.StatsConfig{Backend: config.BackendNoop})
	require.NoError(t, err)
	require.IsType(t, Noop{}, s)

	s, err = New(ctx, &config.StatsConfig{Backend: "graphite"})
	require.NoError(t, err)
	require.IsType(t, Noop{}, s)

	s, err = New(ctx, &config.StatsConfig{
		Backend:     config.BackendPrometheus,
		ProcessType: "worker",
		Prometheus:  &config.PrometheusExportConfig{Port: 9090, Path: "/metrics"},
	})
	require.NoError(t, err)
	require.IsType(t, &exporter.PrometheusExporter{}, s)
	_, ok := s.(Runner)
	require.True(t, ok)

	s, err = New(ctx, &config.StatsConfig{
		Backend: config.BackendStatsd,
		Statsd:  &config.StatsdConfig{Host: "127.0.0.1", Port: 8125, Prefix: "statbox"},
	})
	require.NoError(t, err)
	require.IsType(t, &Statsd{}, s)
	require.NoError(t, s.Close())
}

func TestDefaultHandle(t *testing.T) {
	require.IsType(t, Noop{}, Default())

	s := newStackdriver(nil, stackdriverTestOpts())
	SetDefault(s)
	t.Cleanup(func() { SetDefault(Noop{}) })

	Incr("ctr", 2)
	Decr("ctr", 1)
	Gauge("gauge", 1.5)
	GaugeInt("workers", 4)
	Timing("latency", time.Second)

	v, ok := s.Buffer().Value("ctr")
	require.True(t, ok)
	require.Equal(t, int64(1), v.Int64)

	g, ok := s.Buffer().Value("gauge")
	require.True(t, ok)
	require.Equal(t, 1.5, g.Double)

	w, ok := s.Buffer().Value("workers")
	require.True(t, ok)
	require.Equal(t, int64(4), w.Int64)

	_, ok = s.Buffer().Value("latency")
	require.False(t, ok)
}

func TestNoopAcceptsEverything(t *testing.T) {
	var s Stats = Noop{}
	s.Incr("a", 1, 1)
	s.Decr("a", 1, 1)
	s.Gauge("a", 1, 1, true)
	s.GaugeInt("a", 1, 1, false)
	s.Timing("a", time.Millisecond)
	require.NoError(t, s.Close())
}

func TestStatsdSendsLines(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()

	port := conn.LocalAddr().(*net.UDPAddr).Port
	s, err := NewStatsd(&config.StatsdConfig{Host: "127.0.0.1", Port: port, Prefix: "airflow"})
	require.NoError(t, err)
	defer s.Close()

	read := func() string {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		buf := make([]byte, 1024)
		n, _, err := conn.ReadFrom(buf)
		require.NoError(t, err)
		return string(buf[:n])
	}

	s.Incr("dag_runs", 3, 1)
	require.Equal(t, "airflow.dag_runs:3|c", read())

	s.Decr("dag_runs", 1, 1)
	require.Equal(t, "airflow.dag_runs:-1|c", read())

	s.Gauge("pool", 4.6, 1, false)
	require.Equal(t, "airflow.pool:4.6|g", read())

	s.Gauge("pool", -2.5, 1, true)
	require.Equal(t, "airflow.pool:-2.5|g", read())

	s.GaugeInt("workers", 7, 1, false)
	require.Equal(t, "airflow.workers:7|g", read())

	s.GaugeInt("workers", 2, 1, true)
	require.Equal(t, "airflow.workers:+2|g", read())

	s.Timing("task", 250*time.Millisecond)
	require.Regexp(t, `^airflow\.task:250(\.0+)?\|ms$`, read())
}
