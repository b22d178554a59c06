package trace

import (
	"net"
	"net/http"
	"strings"
)

// LocalIP returns the first non-loopback IPv4 address of the host, or 127.0.0.1.
func LocalIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "127.0.0.1"
	}

	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() {
			continue
		}

		if ip4 := ipnet.IP.To4(); ip4 != nil {
			return ip4.String()
		}
	}

	return "127.0.0.1"
}

// ClientIP returns the first X-Forwarded-For hop when the header is long enough to hold an
// address, and the host part of the remote address otherwise.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); len(xff) > 7 {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}
