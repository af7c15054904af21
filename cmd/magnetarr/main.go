package main

import (
	"compress/gzip"
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type gzipResponseWriter struct {
	gin.ResponseWriter
	gzipWriter *gzip.Writer
}

func (w *gzipResponseWriter) Write(data []byte) (int, error) {
	return w.gzipWriter.Write(data)
}

func (w *gzipResponseWriter) WriteString(s string) (int, error) {
	return w.gzipWriter.Write([]byte(s))
}

// gzipMiddleware compresses responses for clients that accept it.
func gzipMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !strings.Contains(c.GetHeader("Accept-Encoding"), "gzip") {
			c.Next()
			return
		}

		c.Header("Content-Encoding", "gzip")
		c.Header("Vary", "Accept-Encoding")

		gzipWriter := gzip.NewWriter(c.Writer)
		defer func() {
			if err := gzipWriter.Close(); err != nil {
				Logger.Errorf("[app] failed to close gzip writer: %v", err)
			}
		}()

		c.Writer = &gzipResponseWriter{
			ResponseWriter: c.Writer,
			gzipWriter:     gzipWriter,
		}

		c.Next()
	}
}

func main() {
	InitializeConfig()
	InitializeLogger()
	InitializeDatabase()
	InitializeServices()

	ctx := context.Background()

	r := gin.Default()
	r.Use(gzipMiddleware())
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Next()
	})

	metadataCache.StartCleanup(ctx)

	go movieTracker.Run(ctx)

	handler.RegisterRoutes(r)

	addr := fmt.Sprintf(":%d", Cfg.Port)
	Logger.Infof("[app] starting HTTP server on %s", addr)
	log.Fatal(http.ListenAndServe(addr, r))
}
