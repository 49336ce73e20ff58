package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

type Mode string

const (
	ModeTCP  Mode = "tcp"
	ModeICMP Mode = "icmp"
	ModeAuto Mode = "auto"
)

// ErrICMPUnavailable is returned when an echo socket cannot be opened, usually
// because unprivileged ICMP is disabled on the host.
var ErrICMPUnavailable = errors.New("icmp echo socket unavailable")

// Pinger performs a single round trip against address ("host:port"). The
// context carries the per-attempt deadline.
type Pinger interface {
	Name() string
	Ping(ctx context.Context, address string) (time.Duration, error)
}

func NewPinger(mode Mode) (Pinger, error) {
	switch mode {
	case ModeTCP, "":
		return &TCPPinger{}, nil
	case ModeICMP:
		return &ICMPPinger{}, nil
	case ModeAuto:
		return &AutoPinger{Primary: &ICMPPinger{}, Fallback: &TCPPinger{}}, nil
	default:
		return nil, fmt.Errorf("unsupported probe mode: %s", mode)
	}
}

// TCPPinger times a TCP handshake. The connection is closed immediately.
type TCPPinger struct{}

func (p *TCPPinger) Name() string { return string(ModeTCP) }

func (p *TCPPinger) Ping(ctx context.Context, address string) (time.Duration, error) {
	var dialer net.Dialer
	start := time.Now()
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return 0, err
	}
	rtt := time.Since(start)
	_ = conn.Close()
	return rtt, nil
}

// ICMPPinger sends one echo request over an unprivileged datagram socket.
// The port part of address is ignored.
type ICMPPinger struct {
	seq atomic.Uint32
}

func (p *ICMPPinger) Name() string { return string(ModeICMP) }

func (p *ICMPPinger) Ping(ctx context.Context, address string) (time.Duration, error) {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		host = address
	}
	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return 0, err
	}
	if len(addrs) == 0 {
		return 0, fmt.Errorf("no addresses for %s", host)
	}
	ip := addrs[0].IP

	network, listen, proto := "udp4", "0.0.0.0", 1
	var echoType, replyType icmp.Type = ipv4.ICMPTypeEcho, ipv4.ICMPTypeEchoReply
	if ip.To4() == nil {
		network, listen, proto = "udp6", "::", 58
		echoType, replyType = ipv6.ICMPTypeEchoRequest, ipv6.ICMPTypeEchoReply
	}

	conn, err := icmp.ListenPacket(network, listen)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrICMPUnavailable, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	seq := int(p.seq.Add(1) & 0xffff)
	payload := []byte(fmt.Sprintf("poolcheck-%d", time.Now().UnixNano()))
	msg := icmp.Message{
		Type: echoType,
		Body: &icmp.Echo{ID: os.Getpid() & 0xffff, Seq: seq, Data: payload},
	}
	wire, err := msg.Marshal(nil)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	if _, err := conn.WriteTo(wire, &net.UDPAddr{IP: ip, Zone: addrs[0].Zone}); err != nil {
		return 0, err
	}

	buf := make([]byte, 1500)
	for {
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return 0, ctxErr
			}
			return 0, err
		}
		reply, err := icmp.ParseMessage(proto, buf[:n])
		if err != nil || reply.Type != replyType {
			continue
		}
		// The kernel rewrites the echo ID on datagram sockets, so match on
		// sequence and payload only.
		echo, ok := reply.Body.(*icmp.Echo)
		if !ok || echo.Seq != seq || !bytes.Equal(echo.Data, payload) {
			continue
		}
		return time.Since(start), nil
	}
}

// AutoPinger prefers Primary and switches to Fallback for the remainder of
// its lifetime once Primary reports ErrICMPUnavailable.
type AutoPinger struct {
	Primary  Pinger
	Fallback Pinger
	degraded atomic.Bool
}

func (p *AutoPinger) Name() string {
	if p.degraded.Load() {
		return p.Fallback.Name()
	}
	return p.Primary.Name()
}

func (p *AutoPinger) Ping(ctx context.Context, address string) (time.Duration, error) {
	if !p.degraded.Load() {
		rtt, err := p.Primary.Ping(ctx, address)
		if !errors.Is(err, ErrICMPUnavailable) {
			return rtt, err
		}
		p.degraded.Store(true)
	}
	return p.Fallback.Ping(ctx, address)
}
