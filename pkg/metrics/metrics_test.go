package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()
	m.ObserveBatch("relay", "relayed")
	m.ObserveBatch("relay", "relayed")
	m.ObserveQuote("lifi", "no_route")
	m.ObserveTransaction("approve")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Batches.WithLabelValues("relay", "relayed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Quotes.WithLabelValues("lifi", "no_route")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transactions.WithLabelValues("approve")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveBatch("direct", "executed")
	m.ObserveQuote("uniswap", "ok")
	m.ObserveTransaction("send")
	assert.NoError(t, m.WriteTextfile("ignored.prom"))
	assert.Nil(t, m.Registry())
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.ObserveTransaction("swap")

	path := filepath.Join(t.TempDir(), "safeswap.prom")
	require.NoError(t, m.WriteTextfile(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `safeswap_prepared_transactions_total{type="swap"} 1`)
}
