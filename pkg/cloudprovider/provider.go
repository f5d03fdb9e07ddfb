package cloudprovider

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/miekg/dns"
)

var ErrZoneNotFound = errors.New("no hosted zone matches domain")

type Zone struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Record struct {
	ID      string   `json:"id,omitempty"`
	Name    string   `json:"name"`
	Type    string   `json:"type"`
	TTL     int      `json:"ttl"`
	Records []string `json:"records"`
	Status  string   `json:"status,omitempty"`
}

// HasValues reports whether the record set holds exactly values, in order.
func (r *Record) HasValues(values ...string) bool {
	return slices.Equal(r.Records, values)
}

type Provider interface {
	GetProviderName() string
	FindZone(ctx context.Context, domain string) (*Zone, error)
	ListRecords(ctx context.Context, zone *Zone, domain, recordType string) ([]Record, error)
	CreateRecord(ctx context.Context, zone *Zone, record *Record) (*Record, error)
	UpdateRecord(ctx context.Context, zone *Zone, record *Record) (*Record, error)
}

// Fqdn lower-cases domain and terminates it with a dot.
func Fqdn(domain string) string {
	return dns.Fqdn(strings.ToLower(strings.TrimSpace(domain)))
}

// InZone reports whether domain is zoneName or lies below it.
func InZone(zoneName, domain string) bool {
	return dns.IsSubDomain(Fqdn(zoneName), Fqdn(domain))
}

// ValidRecordType reports whether t names a known DNS resource record type.
func ValidRecordType(t string) bool {
	_, ok := dns.StringToType[strings.ToUpper(t)]
	return ok
}
