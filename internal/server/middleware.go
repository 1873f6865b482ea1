/*
Copyright 2024 The Shelfline Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/


package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ahoma/shelfline/pkg/logging"
	"github.com/ahoma/shelfline/pkg/session"
)

// RequestIDHeader carries the request id in both directions
const RequestIDHeader = "X-Request-ID"

// RequestID tags each request with an id, reusing the caller's when present
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), logging.RequestIDKey, id))
		c.Next()
	}
}

// Sessions starts a session for each request from the session cookie and
// renews the cookie
func Sessions(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, _ := c.Cookie(sessions.CookieName())
		ctx, id := sessions.Start(c.Request.Context(), cookie)
		c.Request = c.Request.WithContext(ctx)

		http.SetCookie(c.Writer, &http.Cookie{
			Name:     sessions.CookieName(),
			Value:    id,
			Path:     "/",
			MaxAge:   int(sessions.Lifetime().Seconds()),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		c.Next()
	}
}

// AccessLog logs each request once it completes
func AccessLog(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log := logger.WithContext(c.Request.Context())
		keysAndValues := []interface{}{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		}
		if len(c.Errors) > 0 {
			log.Error(c.Errors.Last(), "Request failed", keysAndValues...)
			return
		}
		log.Debug("Request served", keysAndValues...)
	}
}
