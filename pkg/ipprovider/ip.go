package ipprovider

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
)

var (
	ErrAddressMismatch = errors.New("outbound address is not assigned to the local interface")
	ErrNoAddress       = errors.New("no usable address found")
)

type Provider interface {
	GetCurrentIP(ctx context.Context) (string, error)
	GetProviderName() string
}

// Family selects which address family is resolved and published.
type Family string

const (
	IPv4 Family = "ipv4"
	IPv6 Family = "ipv6"
)

func ParseFamily(s string) (Family, error) {
	switch Family(s) {
	case IPv4, "v4", "4", "":
		return IPv4, nil
	case IPv6, "v6", "6":
		return IPv6, nil
	}
	return "", fmt.Errorf("unknown address family %q", s)
}

// Network returns the UDP network name used to probe this family.
func (f Family) Network() string {
	if f == IPv6 {
		return "udp6"
	}
	return "udp4"
}

// RecordType is the DNS record type that carries addresses of this family.
func (f Family) RecordType() string {
	if f == IPv6 {
		return "AAAA"
	}
	return "A"
}

func (f Family) Matches(addr netip.Addr) bool {
	if f == IPv6 {
		return addr.Is6() && !addr.Is4In6()
	}
	return addr.Unmap().Is4()
}
