package registry

import (
	"log/slog"
	"net"
	"os"
)

// loopbackAddr is the last-resort instance address when no routable
// address can be discovered.
const loopbackAddr = "127.0.0.1"

// ResolveInstanceIP discovers the network-reachable address other
// services should use to reach this instance.
//
// It opens an outbound UDP socket toward a public address (no packet is
// sent) and reads the local address the kernel selected for the route.
// If no route exists it falls back to resolving the hostname, and
// finally to loopback. Each fallback is logged so an unreachable
// registered instance can be traced back to its address resolution.
func ResolveInstanceIP(log *slog.Logger) string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err == nil {
		defer conn.Close()
		if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
			log.Debug("Resolved instance IP via outbound probe", "ip", addr.IP.String())
			return addr.IP.String()
		}
	}
	log.Warn("Outbound probe failed, falling back to hostname resolution", "err", err)

	hostname, err := os.Hostname()
	if err == nil {
		addrs, lookupErr := net.LookupHost(hostname)
		if lookupErr == nil && len(addrs) > 0 {
			log.Debug("Resolved instance IP via hostname", "hostname", hostname, "ip", addrs[0])
			return addrs[0]
		}
		err = lookupErr
	}
	log.Warn("Hostname resolution failed, falling back to loopback", "err", err)

	return loopbackAddr
}
