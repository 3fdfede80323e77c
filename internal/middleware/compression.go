package middleware

import (
	"compress/gzip"
	"strings"

	"github.com/gin-gonic/gin"
)

// CompressionMiddleware gzips responses for clients that accept it. Recommendation pages
// carry overviews for every item and compress well.
func CompressionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !strings.Contains(c.GetHeader("Accept-Encoding"), "gzip") || shouldSkipCompression(c) {
			c.Next()
			return
		}

		gz := gzip.NewWriter(c.Writer)
		defer gz.Close()

		c.Header("Content-Encoding", "gzip")
		c.Header("Vary", "Accept-Encoding")
		c.Writer = &gzipWriter{ResponseWriter: c.Writer, writer: gz}

		c.Next()

		// length is unknown once compressed
		c.Writer.Header().Del("Content-Length")
	}
}

type gzipWriter struct {
	gin.ResponseWriter
	writer *gzip.Writer
}

func (g *gzipWriter) Write(data []byte) (int, error) {
	return g.writer.Write(data)
}

func (g *gzipWriter) WriteString(s string) (int, error) {
	return g.writer.Write([]byte(s))
}

// shouldSkipCompression skips the metrics scrape endpoint, which negotiates its own encoding.
func shouldSkipCompression(c *gin.Context) bool {
	return strings.HasPrefix(c.Request.URL.Path, "/metrics")
}
