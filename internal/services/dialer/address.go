package dialer

import (
	"errors"
	"net"
	"strconv"
	"strings"
)

// ErrBadAddress is returned for addresses that cannot be dialed.
var ErrBadAddress = errors.New("dialer: invalid address")

// NormalizeAddress returns addr as host:port, appending defaultPort when
// addr carries no port.
func NormalizeAddress(addr string, defaultPort int) (string, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", ErrBadAddress
	}
	if host, port, err := net.SplitHostPort(addr); err == nil {
		if host == "" {
			return "", ErrBadAddress
		}
		if n, err := strconv.Atoi(port); err != nil || n <= 0 || n > 65535 {
			return "", ErrBadAddress
		}
		return addr, nil
	}
	host := strings.TrimSuffix(strings.TrimPrefix(addr, "["), "]")
	if host == "" || strings.ContainsAny(host, "[] ") {
		return "", ErrBadAddress
	}
	return net.JoinHostPort(host, strconv.Itoa(defaultPort)), nil
}
