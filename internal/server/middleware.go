package server

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/railzwaylabs/shopfaq/internal/shopcontext"
	"go.uber.org/zap"
)

const (
	HeaderShop = "X-Shop-Domain"

	contextLoggerKey = "logger"
)

// ShopRequired resolves the shop domain of the request. The billing callback
// arrives as a browser redirect, so the shop query parameter is accepted
// when the header is absent.
func (s *Server) ShopRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderShop))
		if raw == "" {
			raw = c.Query("shop")
		}
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		shop, ok := shopcontext.Normalize(raw)
		if !ok {
			AbortWithError(c, newValidationError("shop", "invalid_shop", "shop must be a myshopify.com domain"))
			return
		}

		c.Set(contextLoggerKey, logger(c).With(zap.String("shop", shop)))
		c.Request = c.Request.WithContext(shopcontext.WithShop(c.Request.Context(), shop))
		c.Next()
	}
}

func (s *Server) RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Set(contextLoggerKey, s.log)
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if shop, ok := shopcontext.ShopFromContext(c.Request.Context()); ok {
			fields = append(fields, zap.String("shop", shop))
		}
		s.log.Debug("request", fields...)
	}
}

func logger(c *gin.Context) *zap.Logger {
	if v, ok := c.Get(contextLoggerKey); ok {
		if log, ok := v.(*zap.Logger); ok {
			return log
		}
	}
	return zap.NewNop()
}

func shopFrom(c *gin.Context) string {
	shop, _ := shopcontext.ShopFromContext(c.Request.Context())
	return shop
}
