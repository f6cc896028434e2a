// SPDX-License-Identifier: GPL-3.0-or-later
package api

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

const (
	cleanupInterval = 5 * time.Minute
	clientIdleAfter = 10 * time.Minute
)

// RateLimiter allows each client ip the given number of requests per
// duration, with bursts up to the same number.
func RateLimiter(requests int, duration time.Duration) fiber.Handler {
	type client struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}

	var (
		clients     = make(map[string]*client)
		lastCleanup = time.Now()
		mu          sync.Mutex
	)

	return func(c *fiber.Ctx) error {
		ip := c.IP()
		now := time.Now()

		mu.Lock()
		if now.Sub(lastCleanup) > cleanupInterval {
			for key, cl := range clients {
				if now.Sub(cl.lastSeen) > clientIdleAfter {
					delete(clients, key)
				}
			}
			lastCleanup = now
		}

		cl, exists := clients[ip]
		if !exists {
			cl = &client{limiter: rate.NewLimiter(rate.Every(duration/time.Duration(requests)), requests)}
			clients[ip] = cl
		}
		cl.lastSeen = now
		allowed := cl.limiter.Allow()
		mu.Unlock()

		if !allowed {
			return fiber.NewError(fiber.StatusTooManyRequests, "rate limit exceeded, try again later")
		}

		return c.Next()
	}
}
