// Package updater reconciles one DNS record set with the current address.
package updater

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strings"

	"github.com/go-logr/logr"

	"github.com/larivierec/huaweicloud-ddns/pkg/cloudprovider"
	"github.com/larivierec/huaweicloud-ddns/pkg/metrics"
)

const DefaultTTL = 50

type Updater struct {
	provider cloudprovider.Provider
	log      logr.Logger
	ttl      int
}

// Result lists what a reconciliation pass did.
type Result struct {
	Zone      *cloudprovider.Zone
	Created   []*cloudprovider.Record
	Updated   []*cloudprovider.Record
	Unchanged []cloudprovider.Record
}

// Changed reports whether any record set was written.
func (r *Result) Changed() bool {
	return len(r.Created) > 0 || len(r.Updated) > 0
}

func New(provider cloudprovider.Provider, log logr.Logger, ttl int) *Updater {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Updater{provider: provider, log: log, ttl: ttl}
}

// Update points domain at addr. Without a matching record set one is created;
// otherwise every matching set whose values differ from [addr] is rewritten.
// Only A and AAAA record sets are managed. The first failing call aborts the
// pass; earlier writes are not rolled back.
func (u *Updater) Update(ctx context.Context, domain, recordType string, addr netip.Addr) (*Result, error) {
	if !addr.IsValid() {
		return nil, errors.New("updater: invalid address")
	}
	name := cloudprovider.Fqdn(domain)
	recordType = strings.ToUpper(recordType)
	if !cloudprovider.ValidRecordType(recordType) {
		return nil, fmt.Errorf("updater: unknown record type %q", recordType)
	}
	addr = addr.Unmap()
	switch recordType {
	case "A", "AAAA":
	default:
		return nil, fmt.Errorf("updater: %s records cannot hold an address", recordType)
	}
	if (recordType == "A" && !addr.Is4()) || (recordType == "AAAA" && !addr.Is6()) {
		return nil, fmt.Errorf("updater: address %s cannot be stored in a %s record", addr, recordType)
	}
	value := addr.String()

	zone, err := u.provider.FindZone(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("unable to find zone for %s: %w", name, err)
	}
	result := &Result{Zone: zone}

	records, err := u.provider.ListRecords(ctx, zone, name, recordType)
	if err != nil {
		return result, fmt.Errorf("unable to retrieve %s records for %s in zone %s: %w", recordType, name, zone.ID, err)
	}
	u.log.V(1).Info("fetched record sets", "domain", name, "type", recordType, "count", len(records))

	if len(records) == 0 {
		created, err := u.provider.CreateRecord(ctx, zone, &cloudprovider.Record{
			Name:    name,
			Type:    recordType,
			TTL:     u.ttl,
			Records: []string{value},
		})
		if err != nil {
			return result, fmt.Errorf("unable to create record %s: %w", name, err)
		}
		metrics.IncrementRecordChange("created")
		u.log.Info("create dns success", "domain", created.Name, "status", created.Status, "records", created.Records)
		result.Created = append(result.Created, created)
		return result, nil
	}

	for _, record := range records {
		if record.HasValues(value) {
			metrics.IncrementRecordChange("unchanged")
			u.log.Info("record is the same, ignoring", "domain", record.Name, "id", record.ID, "records", record.Records)
			result.Unchanged = append(result.Unchanged, record)
			continue
		}
		updated, err := u.provider.UpdateRecord(ctx, zone, &cloudprovider.Record{
			ID:      record.ID,
			Name:    name,
			Type:    recordType,
			TTL:     u.ttl,
			Records: []string{value},
		})
		if err != nil {
			return result, fmt.Errorf("unable to update record %s (%s): %w", name, record.ID, err)
		}
		metrics.IncrementRecordChange("updated")
		u.log.Info("update dns success", "domain", updated.Name, "status", updated.Status, "records", updated.Records, "previous", record.Records)
		result.Updated = append(result.Updated, updated)
	}
	return result, nil
}
