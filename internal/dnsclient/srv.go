package dnsclient

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/miekg/dns"
	"go.uber.org/zap"
)

var ErrNoSRV = errors.New("no SRV records")

// Service is one SRV answer, ready to dial.
type Service struct {
	Target   string
	Port     int
	Priority uint16
	Weight   uint16
}

// Resolver looks up SRV names against a fixed resolver chain, trying each
// server in order until one answers.
type Resolver struct {
	client  *Client
	servers []string
}

func NewResolver(client *Client, servers []string) *Resolver {
	return &Resolver{client: client, servers: servers}
}

// LookupSRV returns the services for name ordered by ascending priority and
// descending weight.
func (r *Resolver) LookupSRV(ctx context.Context, name string) ([]Service, error) {
	if len(r.servers) == 0 {
		return nil, fmt.Errorf("no resolvers configured")
	}
	var lastErr error
	for _, server := range r.servers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		server = NormalizeServer(server)
		resp, rtt, transport, err := r.client.Exchange(ctx, server, r.client.BuildQuery(name, dns.TypeSRV))
		if err != nil {
			r.client.opts.Logger.Debug("srv lookup failed",
				zap.String("server", server),
				zap.String("name", name),
				zap.Error(err),
			)
			lastErr = err
			continue
		}
		if resp == nil {
			lastErr = errors.New("empty response")
			continue
		}
		r.client.opts.Logger.Debug("srv lookup",
			zap.String("server", server),
			zap.String("name", name),
			zap.String("transport", transport),
			zap.Duration("rtt", rtt),
			zap.String("rcode", dns.RcodeToString[resp.Rcode]),
		)
		switch resp.Rcode {
		case dns.RcodeSuccess:
			services := extractServices(resp)
			if len(services) == 0 {
				return nil, fmt.Errorf("%w for %s", ErrNoSRV, name)
			}
			return services, nil
		case dns.RcodeNameError:
			return nil, fmt.Errorf("nxdomain for %s", name)
		default:
			lastErr = fmt.Errorf("%s from %s", dns.RcodeToString[resp.Rcode], server)
		}
	}
	return nil, fmt.Errorf("srv lookup for %s: %w", name, lastErr)
}

func extractServices(resp *dns.Msg) []Service {
	services := []Service{}
	for _, rr := range resp.Answer {
		if srv, ok := rr.(*dns.SRV); ok {
			services = append(services, Service{
				Target:   strings.TrimSuffix(srv.Target, "."),
				Port:     int(srv.Port),
				Priority: srv.Priority,
				Weight:   srv.Weight,
			})
		}
	}
	sort.SliceStable(services, func(i, j int) bool {
		if services[i].Priority != services[j].Priority {
			return services[i].Priority < services[j].Priority
		}
		return services[i].Weight > services[j].Weight
	})
	return services
}
