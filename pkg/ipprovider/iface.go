package ipprovider

import (
	"context"
	"fmt"
	"net"
	"net/netip"
)

const interfaceName = "interface"

// Interface reports the addresses assigned to a local network interface.
// An empty Name means every interface that is up and not a loopback.
type Interface struct {
	Family Family
	Name   string

	// listAddrs is swapped in tests.
	listAddrs func(name string) ([]net.Addr, error)
}

func (i *Interface) GetProviderName() string {
	return interfaceName
}

func (i *Interface) GetCurrentIP(ctx context.Context) (string, error) {
	addrs, err := i.Addrs(ctx)
	if err != nil {
		return "", err
	}
	return addrs[0].String(), nil
}

// Addrs returns the global addresses of the interface that belong to Family,
// in the order the OS lists them.
func (i *Interface) Addrs(ctx context.Context) ([]netip.Addr, error) {
	list := i.listAddrs
	if list == nil {
		list = systemAddrs
	}
	raw, err := list(i.Name)
	if err != nil {
		return nil, err
	}

	var addrs []netip.Addr
	for _, a := range raw {
		prefix, err := netip.ParsePrefix(a.String())
		if err != nil {
			continue
		}
		addr := prefix.Addr().Unmap()
		if addr.IsLoopback() || addr.IsLinkLocalUnicast() || !i.Family.Matches(addr) {
			continue
		}
		addrs = append(addrs, addr)
	}
	if len(addrs) == 0 {
		if i.Name == "" {
			return nil, fmt.Errorf("%w: no %s address on any interface", ErrNoAddress, i.Family)
		}
		return nil, fmt.Errorf("%w: no %s address on interface %s", ErrNoAddress, i.Family, i.Name)
	}
	return addrs, nil
}

func systemAddrs(name string) ([]net.Addr, error) {
	if name != "" {
		iface, err := net.InterfaceByName(name)
		if err != nil {
			return nil, fmt.Errorf("error getting interface %s by name: %w", name, err)
		}
		addrs, err := iface.Addrs()
		if err != nil {
			return nil, fmt.Errorf("error looking up addresses for interface %s: %w", name, err)
		}
		return addrs, nil
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("error listing interfaces: %w", err)
	}
	var addrs []net.Addr
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		a, err := iface.Addrs()
		if err != nil {
			return nil, fmt.Errorf("error looking up addresses for interface %s: %w", iface.Name, err)
		}
		addrs = append(addrs, a...)
	}
	return addrs, nil
}
