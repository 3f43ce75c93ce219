package server

import (
	"context"
	"net"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	"listings/utils"
)

// ServeOptions selects the address and worker model
type ServeOptions struct {
	Host    string
	Port    int
	Workers int
}

// Serve blocks serving app. With prefork enabled the master forks one child
// per worker, otherwise a single process listens dual-stack where possible.
func Serve(app *fiber.App, opts ServeOptions, startupStart time.Time) error {
	port := strconv.Itoa(opts.Port)

	if app.Config().Prefork {
		workers := opts.Workers
		if workers < 1 {
			workers = 1
		}
		if !fiber.IsChild() {
			// Fiber spawns GOMAXPROCS children
			runtime.GOMAXPROCS(workers)
			utils.LogInfo("Starting server", "addr", net.JoinHostPort(opts.Host, port),
				"workers", workers, "startup_time", time.Since(startupStart).String())
		}
		return app.Listen(net.JoinHostPort(opts.Host, port))
	}

	return ListenWithIPv6Fallback(app, opts.Host, port, startupStart)
}

func isWildcardHost(host string) bool {
	if host == "" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsUnspecified()
}

// ListenWithIPv6Fallback binds a dual-stack socket on [::] when host is a
// wildcard address, falling back to IPv4. Specific hosts are bound as given.
func ListenWithIPv6Fallback(app *fiber.App, host, port string, startupStart time.Time) error {
	if !isWildcardHost(host) {
		addr := net.JoinHostPort(host, port)
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			utils.LogError("Failed to bind HTTP server", err, "addr", addr)
			return err
		}
		utils.LogInfo("HTTP server listening", "addr", addr, "startup_time", time.Since(startupStart).String())
		return app.Listener(ln)
	}

	addrIPv6 := "[::]:" + port
	utils.LogDebug("Attempting dual-stack bind", "addr", addrIPv6)

	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			if network != "tcp6" {
				return nil
			}

			var sockErr error
			if controlErr := c.Control(func(fd uintptr) {
				sockErr = syscall.SetsockoptInt(int(fd), syscall.IPPROTO_IPV6, syscall.IPV6_V6ONLY, 0)
			}); controlErr != nil {
				return controlErr
			}
			return sockErr
		},
	}

	ln6, err := lc.Listen(context.Background(), "tcp6", addrIPv6)
	if err == nil {
		utils.LogInfo("HTTP server listening", "addr", addrIPv6, "dual_stack", true,
			"startup_time", time.Since(startupStart).String())
		return app.Listener(ln6)
	}

	utils.LogWarn("IPv6 bind failed, falling back to IPv4", "addr", addrIPv6, "error", err)

	addrIPv4 := "0.0.0.0:" + port
	ln4, err := net.Listen("tcp4", addrIPv4)
	if err != nil {
		utils.LogError("Both IPv6 and IPv4 binding failed", err, "addr", addrIPv4)
		return err
	}

	utils.LogInfo("HTTP server listening", "addr", addrIPv4, "dual_stack", false,
		"startup_time", time.Since(startupStart).String())
	return app.Listener(ln4)
}
