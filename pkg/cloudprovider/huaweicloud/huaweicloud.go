package huaweicloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/go-querystring/query"
	"github.com/hashicorp/go-cleanhttp"

	"github.com/larivierec/huaweicloud-ddns/pkg/cloudprovider"
	"github.com/larivierec/huaweicloud-ddns/pkg/metrics"
)

const (
	DefaultEndpoint = "https://dns.myhuaweicloud.com"
	DefaultTimeout  = 10 * time.Second
	providerName    = "huaweicloud"
)

type Configuration struct {
	Endpoint    string
	Credentials Credentials
	Timeout     time.Duration
}

// ConfigurationFromEnv returns the default endpoint and timeout with
// credentials taken from DDNS_ID and DDNS_TOKEN.
func ConfigurationFromEnv() (Configuration, error) {
	creds, err := CredentialsFromEnv()
	if err != nil {
		return Configuration{}, err
	}
	return Configuration{
		Endpoint:    DefaultEndpoint,
		Credentials: creds,
		Timeout:     DefaultTimeout,
	}, nil
}

// APIError is returned for every non-2xx response of the DNS API.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("huaweicloud: %s %s: error %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

type recordKey struct {
	zoneID     string
	name       string
	recordType string
}

// HuaweiCloudProvider implements cloudprovider.Provider against the Huawei
// Cloud DNS v2 API. Record set lookups are cached for the lifetime of the
// provider, so construct one per reconciliation pass.
type HuaweiCloudProvider struct {
	baseURL *url.URL
	signer  *Signer
	client  *http.Client
	log     logr.Logger
	records map[recordKey][]cloudprovider.Record
}

func NewHuaweiCloudProvider(log logr.Logger, config Configuration) (*HuaweiCloudProvider, error) {
	if config.Credentials.AccessKeyID == "" || config.Credentials.SecretAccessKey == "" {
		return nil, ErrMissingCredentials
	}
	if config.Endpoint == "" {
		config.Endpoint = DefaultEndpoint
	}
	baseURL, err := url.Parse(config.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("huaweicloud: invalid endpoint %q: %w", config.Endpoint, err)
	}
	if baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("huaweicloud: endpoint %q must be an absolute URL", config.Endpoint)
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}

	client := cleanhttp.DefaultClient()
	client.Timeout = config.Timeout

	return &HuaweiCloudProvider{
		baseURL: baseURL,
		signer:  NewSigner(config.Credentials),
		client:  client,
		log:     log,
		records: make(map[recordKey][]cloudprovider.Record),
	}, nil
}

func (c *HuaweiCloudProvider) GetProviderName() string {
	return providerName
}

type zonesResponse struct {
	Zones []cloudprovider.Zone `json:"zones"`
}

func (c *HuaweiCloudProvider) ListZones(ctx context.Context) ([]cloudprovider.Zone, error) {
	var resp zonesResponse
	if err := c.do(ctx, http.MethodGet, "/v2/zones", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Zones, nil
}

// FindZone returns the first zone, in API order, that contains domain.
func (c *HuaweiCloudProvider) FindZone(ctx context.Context, domain string) (*cloudprovider.Zone, error) {
	zones, err := c.ListZones(ctx)
	if err != nil {
		return nil, err
	}
	for _, z := range zones {
		if cloudprovider.InZone(z.Name, domain) {
			c.log.V(1).Info("found zone", "zone", z.Name, "id", z.ID)
			return &z, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", cloudprovider.ErrZoneNotFound, domain)
}

type listRecordsQuery struct {
	Name string `url:"name"`
	Type string `url:"type"`
}

type recordSetsResponse struct {
	RecordSets []cloudprovider.Record `json:"recordsets"`
}

// ListRecords returns the record sets named exactly domain with the given
// type. The API name filter also matches longer names, so results are
// filtered again here.
func (c *HuaweiCloudProvider) ListRecords(ctx context.Context, zone *cloudprovider.Zone, domain, recordType string) ([]cloudprovider.Record, error) {
	name := cloudprovider.Fqdn(domain)
	key := recordKey{zoneID: zone.ID, name: name, recordType: recordType}
	if cached, ok := c.records[key]; ok {
		return cached, nil
	}

	params, err := query.Values(listRecordsQuery{Name: name, Type: recordType})
	if err != nil {
		return nil, fmt.Errorf("huaweicloud: encode record query: %w", err)
	}
	var resp recordSetsResponse
	if err := c.do(ctx, http.MethodGet, recordSetsPath(zone.ID), params, nil, &resp); err != nil {
		return nil, err
	}

	records := make([]cloudprovider.Record, 0, len(resp.RecordSets))
	for _, r := range resp.RecordSets {
		if cloudprovider.Fqdn(r.Name) != name {
			continue
		}
		records = append(records, r)
	}
	c.records[key] = records
	return records, nil
}

type recordRequest struct {
	Name    string   `json:"name"`
	Type    string   `json:"type"`
	TTL     int      `json:"ttl"`
	Records []string `json:"records"`
}

func newRecordRequest(record *cloudprovider.Record) recordRequest {
	return recordRequest{
		Name:    cloudprovider.Fqdn(record.Name),
		Type:    record.Type,
		TTL:     record.TTL,
		Records: record.Records,
	}
}

func (c *HuaweiCloudProvider) CreateRecord(ctx context.Context, zone *cloudprovider.Zone, record *cloudprovider.Record) (*cloudprovider.Record, error) {
	var created cloudprovider.Record
	if err := c.do(ctx, http.MethodPost, recordSetsPath(zone.ID), nil, newRecordRequest(record), &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *HuaweiCloudProvider) UpdateRecord(ctx context.Context, zone *cloudprovider.Zone, record *cloudprovider.Record) (*cloudprovider.Record, error) {
	if record.ID == "" {
		return nil, fmt.Errorf("huaweicloud: update of %s without record set id", record.Name)
	}
	var updated cloudprovider.Record
	path := recordSetsPath(zone.ID) + "/" + url.PathEscape(record.ID)
	if err := c.do(ctx, http.MethodPut, path, nil, newRecordRequest(record), &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func recordSetsPath(zoneID string) string {
	return "/v2/zones/" + url.PathEscape(zoneID) + "/recordsets"
}

// do sends one signed request and decodes a 2xx JSON response into out.
func (c *HuaweiCloudProvider) do(ctx context.Context, method, path string, params url.Values, payload, out any) error {
	var body []byte
	if payload != nil {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return fmt.Errorf("huaweicloud: marshal request body: %w", err)
		}
	}

	u := c.baseURL.JoinPath(path)
	u.RawQuery = params.Encode()
	req, err := http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("huaweicloud: build request: %w", err)
	}
	c.signer.Sign(req, body)

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.IncrementAPI(method, 0)
		return fmt.Errorf("huaweicloud: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	metrics.IncrementAPI(method, resp.StatusCode)
	c.log.V(1).Info("dns api call", "method", method, "path", path, "status", resp.StatusCode)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("huaweicloud: %s %s: read response: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(data)),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("huaweicloud: %s %s: decode response: %w", method, path, err)
	}
	return nil
}
