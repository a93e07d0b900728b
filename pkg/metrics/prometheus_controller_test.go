package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DFE-Digital/trs-workforce/pkg/server"
)

func TestPrometheusController_ServesMetrics(t *testing.T) {
	c := NewPrometheusController("")
	require.Equal(t, "/debug/prometheus", c.Key())

	s := server.NewHTTPServer([]server.Controller{c})
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/prometheus", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "go_goroutines")
}
