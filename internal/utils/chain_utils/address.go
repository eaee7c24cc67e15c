package chainutils

import (
	"net"
	"regexp"
	"strconv"
)

// Only dotted-quad IPv4 endpoints are recognised.
var ipPortPattern = regexp.MustCompile(`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}:\d+`)

// ExtractAddress finds the first "a.b.c.d:port" substring of a registered
// address. ok is false when no such substring exists or it does not describe
// a usable endpoint.
func ExtractAddress(raw string) (ip string, port int, ok bool) {
	match := ipPortPattern.FindString(raw)
	if match == "" {
		return "", 0, false
	}

	host, portStr, err := net.SplitHostPort(match)
	if err != nil {
		return "", 0, false
	}
	if net.ParseIP(host).To4() == nil {
		return "", 0, false
	}

	port, err = strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return "", 0, false
	}

	return host, port, true
}
