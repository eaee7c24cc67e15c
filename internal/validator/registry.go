package validator

import (
	"slices"

	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/comchat/internal/dispatch"
	chainutils "github.com/tensorplex-labs/comchat/internal/utils/chain_utils"
)

// ResolvePeers joins the address and key maps into routable peers ordered by
// uid. A uid is kept only if it has a key and its address contains an IPv4
// "ip:port".
func ResolvePeers(addresses, keys map[int64]string) []dispatch.PeerRecord {
	peers := make([]dispatch.PeerRecord, 0, len(keys))
	for uid, key := range keys {
		raw, ok := addresses[uid]
		if !ok {
			log.Debug().Int64("uid", uid).Msg("Skipping uid without an address")
			continue
		}
		ip, port, ok := chainutils.ExtractAddress(raw)
		if !ok {
			log.Debug().Int64("uid", uid).Str("address", raw).Msg("Skipping uid with unparseable address")
			continue
		}
		peers = append(peers, dispatch.PeerRecord{UID: uid, IP: ip, Port: port, Key: key})
	}

	slices.SortFunc(peers, func(a, b dispatch.PeerRecord) int {
		switch {
		case a.UID < b.UID:
			return -1
		case a.UID > b.UID:
			return 1
		}
		return 0
	})
	return peers
}

func isRegistered(keys map[int64]string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
