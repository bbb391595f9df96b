package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const clientIPKey = "client_ip"

// ResolveClientIP stores the caller address used as the rate limit key.
// Proxy headers are only consulted when trustProxy is set; otherwise any
// client could pick its own key.
func ResolveClientIP(trustProxy bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ip := c.IP()
		if trustProxy {
			if forwarded := proxiedIP(c); forwarded != "" {
				ip = forwarded
			}
		}
		c.Locals(clientIPKey, ip)
		return c.Next()
	}
}

// ClientIP returns the address resolved by ResolveClientIP, falling back to
// the connection address.
func ClientIP(c *fiber.Ctx) string {
	if ip, ok := c.Locals(clientIPKey).(string); ok && ip != "" {
		return ip
	}
	return c.IP()
}

func proxiedIP(c *fiber.Ctx) string {
	if ip := strings.TrimSpace(c.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}
	if xff := c.Get(fiber.HeaderXForwardedFor); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return strings.TrimSpace(c.Get("X-Real-IP"))
}
