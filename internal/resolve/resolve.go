package resolve

import (
	"strings"

	"github.com/jaxxstorm/poolcheck/internal/model"
)

// Targets turns relay descriptors into probe targets. The first populated
// address field wins in the order dns, srv, ipv4, ipv6; descriptors with no
// address are dropped. Output order follows input order.
func Targets(relays []model.RelayDescriptor) []model.ProbeTarget {
	targets := make([]model.ProbeTarget, 0, len(relays))
	for _, relay := range relays {
		target, ok := Target(relay)
		if !ok {
			continue
		}
		targets = append(targets, target)
	}
	return targets
}

func Target(relay model.RelayDescriptor) (model.ProbeTarget, bool) {
	candidates := []struct {
		kind  model.AddressKind
		value string
	}{
		{model.KindDNS, relay.DNS},
		{model.KindSRV, relay.SRV},
		{model.KindIPv4, relay.IPv4},
		{model.KindIPv6, relay.IPv6},
	}
	for _, c := range candidates {
		host := strings.TrimSpace(c.value)
		if c.kind == model.KindIPv6 {
			host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
		}
		if host == "" {
			continue
		}
		return model.ProbeTarget{Host: host, Port: relay.Port, Kind: c.kind}, true
	}
	return model.ProbeTarget{}, false
}
