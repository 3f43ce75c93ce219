package utils

import (
	"net"
	"strings"
	"sync/atomic"

	"github.com/gofiber/fiber/v2"
)

// TrustProxyHeaders toggles whether forwarding headers are honoured when
// deriving the client address (rate-limit keys, request logs).
var TrustProxyHeaders atomic.Bool

var privateIPBlocks = mustParseCIDRs(
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"127.0.0.0/8",
	"::1/128",
	"fc00::/7",
	"fe80::/10",
)

// single-address headers checked after X-Forwarded-For, in order
var singleIPHeaders = []string{"X-Real-IP", "X-Client-IP"}

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	blocks := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, block, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(err)
		}
		blocks = append(blocks, block)
	}
	return blocks
}

// ClientIP returns the best-effort client address, honoring common proxy headers
// when TrustProxyHeaders is set.
func ClientIP(c *fiber.Ctx) string {
	if !TrustProxyHeaders.Load() {
		return c.IP()
	}
	if cf := strings.TrimSpace(c.Get("CF-Connecting-IP")); net.ParseIP(cf) != nil {
		return cf
	}
	if ip := pickForwarded(c.Get(fiber.HeaderXForwardedFor)); ip != "" {
		return ip
	}
	for _, header := range singleIPHeaders {
		if v := strings.TrimSpace(c.Get(header)); net.ParseIP(v) != nil {
			return v
		}
	}
	return c.IP()
}

// pickForwarded returns the first public address of an X-Forwarded-For chain,
// or the first parseable one when all hops are private.
func pickForwarded(chain string) string {
	var fallback string
	for _, part := range strings.Split(chain, ",") {
		candidate := strings.TrimSpace(part)
		parsed := net.ParseIP(candidate)
		if parsed == nil {
			continue
		}
		if IsPublicIP(parsed) {
			return candidate
		}
		if fallback == "" {
			fallback = candidate
		}
	}
	return fallback
}

// IsPublicIP returns true if the IP is a public IP address
func IsPublicIP(ip net.IP) bool {
	if ip == nil || ip.IsLoopback() || ip.IsUnspecified() {
		return false
	}
	for _, block := range privateIPBlocks {
		if block.Contains(ip) {
			return false
		}
	}
	return true
}
