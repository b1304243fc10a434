package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hohparser/internal/extractor"
)

func TestCollector_ObserveAnalysis(t *testing.T) {
	c := NewCollector()
	a, err := extractor.NewAnalyzer("python", extractor.WithObserver(c))
	require.NoError(t, err)

	ctx := context.Background()
	_, err = a.AnalyzeText(ctx, "ok.py", "import os\n\nclass A:\n    def m(self):\n        pass\n")
	require.NoError(t, err)
	_, err = a.AnalyzeText(ctx, "bad.py", "def (:\n")
	require.Error(t, err)
	_, err = a.AnalyzeContent(ctx, "bin.py", []byte{0xff, 0xfe})
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.analysesTotal.WithLabelValues(extractor.OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.analysesTotal.WithLabelValues(extractor.OutcomeSyntaxError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.analysesTotal.WithLabelValues(extractor.OutcomeRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.entitiesTotal.WithLabelValues(extractor.KindClass)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.entitiesTotal.WithLabelValues(extractor.KindFunction)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.edgesTotal.WithLabelValues(string(extractor.EdgeImports))))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector()
	c.ObserveRequest("/health", "GET", 200, 5*time.Millisecond)
	c.ObserveAnalysis(extractor.OutcomeOK, time.Millisecond, nil)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `hohparser_http_requests_total{method="GET",route="/health",status="200"} 1`)
	assert.Contains(t, string(body), `hohparser_analysis_total{outcome="ok"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
