// Package chainutils holds helpers for interpreting values registered on chain.
package chainutils

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

var externalIPServices = []string{
	"https://api.ipify.org",
	"https://checkip.amazonaws.com",
	"https://icanhazip.com",
}

// GetExternalIP asks public IP echo services for this host's IPv4 address.
// The first service returning a valid address wins.
func GetExternalIP(ctx context.Context) (net.IP, error) {
	client := resty.New().SetTimeout(5 * time.Second)
	for _, url := range externalIPServices {
		resp, err := client.R().SetContext(ctx).Get(url)
		if err != nil {
			log.Debug().Err(err).Str("service", url).Msg("external ip lookup failed")
			continue
		}
		if resp.IsError() {
			log.Debug().Int("status", resp.StatusCode()).Str("service", url).Msg("external ip lookup non-2xx")
			continue
		}
		ip := net.ParseIP(strings.TrimSpace(resp.String())).To4()
		if ip != nil {
			return ip, nil
		}
	}
	return nil, fmt.Errorf("all ip detection services failed")
}
