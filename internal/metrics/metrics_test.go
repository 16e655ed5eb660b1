package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRecordClassifyBatch(t *testing.T) {
	beforeOK := testutil.ToFloat64(ClassifiedMessages.WithLabelValues("success"))
	beforeMissing := testutil.ToFloat64(ClassifiedMessages.WithLabelValues("missing"))
	beforeFailed := testutil.ToFloat64(ClassifiedMessages.WithLabelValues("failed"))

	RecordClassifyBatch(5, 4, nil, time.Second)
	RecordClassifyBatch(3, 0, errors.New("boom"), time.Second)

	assert.Equal(t, beforeOK+4, testutil.ToFloat64(ClassifiedMessages.WithLabelValues("success")))
	assert.Equal(t, beforeMissing+1, testutil.ToFloat64(ClassifiedMessages.WithLabelValues("missing")))
	assert.Equal(t, beforeFailed+3, testutil.ToFloat64(ClassifiedMessages.WithLabelValues("failed")))
}

func TestServerExposesRegistry(t *testing.T) {
	RecordStale("replace")

	srv := NewServer(":0", zap.NewNop())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "mailboard_stale_responses_total")
}
