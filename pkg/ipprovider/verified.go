package ipprovider

import (
	"context"
	"fmt"
	"net/netip"

	"github.com/go-logr/logr"
)

const verified = "verified"

// Verified accepts the address reported by Outbound only when Local has it
// assigned. Any disagreement is a configuration problem and is not retried.
type Verified struct {
	Outbound  Provider
	Local     *Interface
	Increment IncrementFunc
	Log       logr.Logger
}

func (v *Verified) GetProviderName() string {
	return verified
}

func (v *Verified) GetCurrentIP(ctx context.Context) (string, error) {
	addr, err := v.Resolve(ctx)
	if err != nil {
		return "", err
	}
	return addr.String(), nil
}

func (v *Verified) Resolve(ctx context.Context) (netip.Addr, error) {
	raw, err := GetCurrentIP(ctx, v.Outbound, v.Increment)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("%s lookup failed: %w", v.Outbound.GetProviderName(), err)
	}
	outbound, err := netip.ParseAddr(raw)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("%s returned an invalid address %q: %w", v.Outbound.GetProviderName(), raw, err)
	}
	outbound = outbound.Unmap()

	if v.Increment != nil {
		v.Increment(v.Local.GetProviderName())
	}
	local, err := v.Local.Addrs(ctx)
	if err != nil {
		return netip.Addr{}, err
	}
	v.Log.V(1).Info("resolved addresses", "outbound", outbound, "local", local, "family", v.Local.Family)

	if !v.Local.Family.Matches(outbound) {
		return netip.Addr{}, fmt.Errorf("%w: %s address is %s, want %s", ErrAddressMismatch, v.Outbound.GetProviderName(), outbound, v.Local.Family)
	}
	for _, a := range local {
		if a == outbound {
			return outbound, nil
		}
	}
	return netip.Addr{}, fmt.Errorf("%w: %s address is %s, local addresses are %v", ErrAddressMismatch, v.Outbound.GetProviderName(), outbound, local)
}
