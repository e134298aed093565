package middleware

import (
	"compress/gzip"
	"net/http"
	"strings"
)

// GzipMiddleware inflates gzip request bodies and compresses JSON and HTML
// responses for clients that accept gzip. Redirects, HEAD, 204 and 304 are
// passed through untouched.
func GzipMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.Header.Get("Content-Encoding"), "gzip") {
			gzReader, err := gzip.NewReader(r.Body)
			if err != nil {
				http.Error(w, "Invalid gzip body", http.StatusBadRequest)
				return
			}
			defer gzReader.Close()
			r.Body = gzReader
			r.Header.Del("Content-Encoding")
		}

		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") || r.Method == http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}

		grw := &gzipResponseWriter{ResponseWriter: w}
		defer grw.Close()

		next.ServeHTTP(grw, r)
	})
}

type gzipResponseWriter struct {
	http.ResponseWriter
	gz       *gzip.Writer
	decided  bool
	compress bool
}

func (grw *gzipResponseWriter) WriteHeader(statusCode int) {
	if !grw.decided && statusCode >= http.StatusOK {
		grw.decide(statusCode)
	}
	grw.ResponseWriter.WriteHeader(statusCode)
}

func (grw *gzipResponseWriter) Write(b []byte) (int, error) {
	if !grw.decided {
		if grw.Header().Get("Content-Type") == "" {
			grw.Header().Set("Content-Type", http.DetectContentType(b))
		}
		grw.WriteHeader(http.StatusOK)
	}
	if grw.compress {
		return grw.gz.Write(b)
	}
	return grw.ResponseWriter.Write(b)
}

func (grw *gzipResponseWriter) Close() {
	if grw.gz != nil {
		grw.gz.Close()
	}
}

func (grw *gzipResponseWriter) Unwrap() http.ResponseWriter {
	return grw.ResponseWriter
}

func (grw *gzipResponseWriter) decide(statusCode int) {
	grw.decided = true

	if statusCode == http.StatusNoContent || statusCode == http.StatusNotModified ||
		(statusCode >= 300 && statusCode < 400) {
		return
	}

	header := grw.Header()
	if header.Get("Content-Encoding") != "" || !compressible(header.Get("Content-Type")) {
		return
	}

	header.Del("Content-Length")
	header.Set("Content-Encoding", "gzip")
	header.Add("Vary", "Accept-Encoding")
	grw.gz = gzip.NewWriter(grw.ResponseWriter)
	grw.compress = true
}

func compressible(contentType string) bool {
	return strings.Contains(contentType, "application/json") ||
		strings.Contains(contentType, "text/html")
}
