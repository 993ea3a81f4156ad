package health

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthCheckHttpHandler(t *testing.T) {
	tests := map[string]struct {
		checkErr     error
		expectedCode int
		expectedBody string
	}{
		"healthy": {
			expectedCode: http.StatusNoContent,
		},
		"unhealthy": {
			checkErr:     fmt.Errorf("no cycle started for 20m0s"),
			expectedCode: http.StatusServiceUnavailable,
			expectedBody: "no cycle started for 20m0s",
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			mux := http.NewServeMux()
			SetupHttpMux(mux, CheckerFunc(func() error { return tc.checkErr }))

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tc.expectedCode, rec.Code)
			assert.Equal(t, tc.expectedBody, rec.Body.String())
		})
	}
}
