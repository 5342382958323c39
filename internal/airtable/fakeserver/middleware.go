package fakeserver

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/weiwangfds/basebackup/internal/logger"
)

// requestLogger 请求日志中间件，以 debug 级别记录每个请求
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		// 处理请求
		c.Next()

		logger.WithFields(logrus.Fields{
			"status":    c.Writer.Status(),
			"latency":   time.Since(start),
			"method":    c.Request.Method,
			"path":      path,
			"raw_query": raw,
		}).Debug("[接口替身] HTTP Response")
	}
}
