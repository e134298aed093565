package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithLogging(t *testing.T) {
	type want struct {
		status int
		size   int64
	}

	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    want
	}{
		{
			name: "implicit ok",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("hello"))
			},
			want: want{status: http.StatusOK, size: 5},
		},
		{
			name: "redirect",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Location", "https://example.com")
				w.WriteHeader(http.StatusFound)
			},
			want: want{status: http.StatusFound},
		},
		{
			name: "first status wins",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("Not Found\n"))
			},
			want: want{status: http.StatusNotFound, size: 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			logger := zap.New(core)

			h := chimw.RequestID(Logger(logger)(tt.handler))
			req := httptest.NewRequest(http.MethodGet, "/go?x=1", nil)
			req.Host = "yet.la"
			h.ServeHTTP(httptest.NewRecorder(), req)

			require.Equal(t, 2, logs.Len())
			entries := logs.All()
			assert.Equal(t, "Request received", entries[0].Message)
			assert.Equal(t, "Response sent", entries[1].Message)

			fields := entries[1].ContextMap()
			assert.Equal(t, int64(tt.want.status), fields["status"])
			assert.Equal(t, tt.want.size, fields["size"])
			assert.Equal(t, "yet.la", fields["host"])
			assert.Equal(t, "/go?x=1", fields["uri"])
			assert.NotEmpty(t, fields["request_id"])
		})
	}
}
