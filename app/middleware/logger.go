package middleware

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"queuepanel/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/pretty"
)

const maxLoggedBody = 1000

// Logger logs one line per request, with the compacted JSON body of POST requests
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		var bodyStr string
		if c.Request.Method == http.MethodPost {
			bodyStr = getRequestBody(c)
		}

		c.Next()

		// successful reads only at debug level
		if c.Request.Method == http.MethodGet && c.Writer.Status() < http.StatusBadRequest {
			logger.DebugCtx(c.Request.Context(), "[GIN] %3d | %13v | %s %s",
				c.Writer.Status(), time.Since(startTime), c.Request.Method, c.Request.RequestURI)
			return
		}

		logMsg := "[GIN] %3d | %13v | %15s | %s %s"
		args := []interface{}{c.Writer.Status(), time.Since(startTime), c.ClientIP(), c.Request.Method, c.Request.RequestURI}
		if bodyStr != "" {
			logMsg += " | body: %s"
			args = append(args, bodyStr)
		}
		logger.InfoCtx(c.Request.Context(), logMsg, args...)
	}
}

// getRequestBody reads the body and puts it back for the handler
func getRequestBody(c *gin.Context) string {
	if c.Request.Body == nil {
		return ""
	}
	bodyBytes, _ := io.ReadAll(c.Request.Body)
	c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
	return CompressBody(string(bodyBytes))
}

// CompressBody strips JSON whitespace and truncates long bodies
func CompressBody(body string) string {
	if len(body) == 0 {
		return ""
	}

	compressed := pretty.Ugly([]byte(body))
	if len(compressed) > maxLoggedBody {
		return string(compressed[:maxLoggedBody]) + "..."
	}
	return string(compressed)
}
