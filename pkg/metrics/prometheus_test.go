package metrics_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/larivierec/huaweicloud-ddns/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gotest.tools/v3/assert"
)

func TestIncrementAPI(t *testing.T) {
	before := testutil.ToFloat64(metrics.APIRequests.WithLabelValues("PUT", "202"))
	metrics.IncrementAPI("PUT", 202)
	metrics.IncrementAPI("PUT", 202)
	assert.Equal(t, before+2, testutil.ToFloat64(metrics.APIRequests.WithLabelValues("PUT", "202")))
}

func TestIncrementRecordChange(t *testing.T) {
	before := testutil.ToFloat64(metrics.RecordChanges.WithLabelValues("created"))
	metrics.IncrementRecordChange("created")
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.RecordChanges.WithLabelValues("created")))
}

func TestWriteTextfile(t *testing.T) {
	metrics.InitMetrics()
	metrics.IncrementProvider("udp-probe")

	path := filepath.Join(t.TempDir(), "ddns.prom")
	assert.NilError(t, metrics.WriteTextfile(path))

	data, err := os.ReadFile(path)
	assert.NilError(t, err)
	assert.Assert(t, strings.Contains(string(data), `provider_requests_total{provider="udp-probe"}`))
}
