package ipprovider

import (
	"context"
	"fmt"
	"net"
)

const udpProbe = "udp-probe"

const (
	DefaultProbeIPv4 = "8.8.8.8:80"
	DefaultProbeIPv6 = "[2001:4860:4860::8888]:80"
)

// UDPProbe learns the address the OS would use to reach Target.
// Connecting a UDP socket only selects a route; no packet leaves the host.
type UDPProbe struct {
	Family Family
	Target string
}

func (u *UDPProbe) setup() {
	if u.Target != "" {
		return
	}
	if u.Family == IPv6 {
		u.Target = DefaultProbeIPv6
	} else {
		u.Target = DefaultProbeIPv4
	}
}

func (u *UDPProbe) GetProviderName() string {
	return udpProbe
}

func (u *UDPProbe) GetCurrentIP(ctx context.Context) (string, error) {
	u.setup()
	var d net.Dialer
	conn, err := d.DialContext(ctx, u.Family.Network(), u.Target)
	if err != nil {
		return "", fmt.Errorf("udp probe toward %s: %w", u.Target, err)
	}
	defer conn.Close()

	local, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "", fmt.Errorf("udp probe: unexpected local address %v", conn.LocalAddr())
	}
	return local.AddrPort().Addr().Unmap().String(), nil
}
