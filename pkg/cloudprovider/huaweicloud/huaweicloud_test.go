package huaweicloud

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-logr/logr"
	"gotest.tools/v3/assert"

	"github.com/larivierec/huaweicloud-ddns/pkg/cloudprovider"
)

type call struct {
	Method string
	Path   string
	Query  string
	Body   string
}

// fakeAPI serves a minimal DNS v2 API and rejects badly signed requests.
type fakeAPI struct {
	mu         sync.Mutex
	calls      []call
	zones      string
	recordsets string
	failStatus int
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.calls = append(f.calls, call{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: string(body)})
	f.mu.Unlock()

	headers := map[string]string{
		"content-type": r.Header.Get("Content-Type"),
		"X-Sdk-Date":   r.Header.Get(HeaderSdkDate),
		"host":         r.Host,
	}
	canonical, signed := CanonicalRequest(r.Method, r.URL.Path, r.URL.Query(), headers, body)
	want := "SDK-HMAC-SHA256 Access=AKID, SignedHeaders=" + signed +
		", Signature=" + Signature("secret", StringToSign(canonical, headers["X-Sdk-Date"]))
	if r.Header.Get("Authorization") != want {
		http.Error(w, `{"code":"APIGW.0301","message":"Incorrect IAM authentication information"}`, http.StatusUnauthorized)
		return
	}
	if f.failStatus != 0 {
		http.Error(w, `{"code":"DNS.0001","message":"boom"}`, f.failStatus)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/v2/zones":
		io.WriteString(w, f.zones)
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/recordsets"):
		io.WriteString(w, f.recordsets)
	case r.Method == http.MethodPost || r.Method == http.MethodPut:
		var req recordRequest
		json.Unmarshal(body, &req)
		json.NewEncoder(w).Encode(cloudprovider.Record{
			ID: "new", Name: req.Name, Type: req.Type, TTL: req.TTL, Records: req.Records, Status: "PENDING_CREATE",
		})
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeAPI) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func newTestProvider(t *testing.T, api *fakeAPI) *HuaweiCloudProvider {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	p, err := NewHuaweiCloudProvider(logr.Discard(), Configuration{
		Endpoint:    srv.URL,
		Credentials: Credentials{AccessKeyID: "AKID", SecretAccessKey: "secret"},
	})
	assert.NilError(t, err)
	return p
}

func TestNewHuaweiCloudProvider_MissingCredentials(t *testing.T) {
	_, err := NewHuaweiCloudProvider(logr.Discard(), Configuration{Credentials: Credentials{AccessKeyID: "AKID"}})
	assert.Assert(t, errors.Is(err, ErrMissingCredentials))
}

func TestNewHuaweiCloudProvider_Defaults(t *testing.T) {
	p, err := NewHuaweiCloudProvider(logr.Discard(), Configuration{
		Credentials: Credentials{AccessKeyID: "AKID", SecretAccessKey: "secret"},
	})
	assert.NilError(t, err)
	assert.Equal(t, DefaultEndpoint, p.baseURL.String())
	assert.Equal(t, DefaultTimeout, p.client.Timeout)
	assert.Equal(t, "huaweicloud", p.GetProviderName())
}

func TestNewHuaweiCloudProvider_RelativeEndpoint(t *testing.T) {
	_, err := NewHuaweiCloudProvider(logr.Discard(), Configuration{
		Endpoint:    "dns.myhuaweicloud.com",
		Credentials: Credentials{AccessKeyID: "AKID", SecretAccessKey: "secret"},
	})
	assert.ErrorContains(t, err, "absolute URL")
}

func TestFindZone(t *testing.T) {
	api := &fakeAPI{zones: `{"zones":[
		{"id":"z-other","name":"example.org."},
		{"id":"z-bad","name":"badexample.com."},
		{"id":"z1","name":"example.com."}
	]}`}
	p := newTestProvider(t, api)

	zone, err := p.FindZone(context.Background(), "www.example.com")
	assert.NilError(t, err)
	assert.Equal(t, "z1", zone.ID)

	calls := api.Calls()
	assert.Equal(t, 1, len(calls))
	assert.Equal(t, "/v2/zones", calls[0].Path)
}

func TestFindZone_NotFound(t *testing.T) {
	p := newTestProvider(t, &fakeAPI{zones: `{"zones":[{"id":"z1","name":"example.org."}]}`})

	_, err := p.FindZone(context.Background(), "example.com.")
	assert.Assert(t, errors.Is(err, cloudprovider.ErrZoneNotFound))
}

func TestListRecords_FiltersExactNameAndCaches(t *testing.T) {
	api := &fakeAPI{recordsets: `{"recordsets":[
		{"id":"r1","name":"example.com.","type":"A","ttl":300,"records":["5.6.7.8"]},
		{"id":"r2","name":"www.example.com.","type":"A","ttl":300,"records":["5.6.7.8"]}
	]}`}
	p := newTestProvider(t, api)
	zone := &cloudprovider.Zone{ID: "z1", Name: "example.com."}

	records, err := p.ListRecords(context.Background(), zone, "example.com", "A")
	assert.NilError(t, err)
	assert.Equal(t, 1, len(records))
	assert.Equal(t, "r1", records[0].ID)
	assert.DeepEqual(t, []string{"5.6.7.8"}, records[0].Records)

	again, err := p.ListRecords(context.Background(), zone, "example.com.", "A")
	assert.NilError(t, err)
	assert.DeepEqual(t, records, again)

	calls := api.Calls()
	assert.Equal(t, 1, len(calls))
	assert.Equal(t, "/v2/zones/z1/recordsets", calls[0].Path)
	assert.Equal(t, "name=example.com.&type=A", calls[0].Query)
}

func TestCreateRecord(t *testing.T) {
	api := &fakeAPI{}
	p := newTestProvider(t, api)
	zone := &cloudprovider.Zone{ID: "z1"}

	created, err := p.CreateRecord(context.Background(), zone, &cloudprovider.Record{
		Name: "example.com", Type: "A", TTL: 50, Records: []string{"1.2.3.4"},
	})
	assert.NilError(t, err)
	assert.Equal(t, "example.com.", created.Name)

	calls := api.Calls()
	assert.Equal(t, 1, len(calls))
	assert.Equal(t, http.MethodPost, calls[0].Method)
	assert.Equal(t, "/v2/zones/z1/recordsets", calls[0].Path)
	assert.Equal(t, `{"name":"example.com.","type":"A","ttl":50,"records":["1.2.3.4"]}`, calls[0].Body)
}

func TestUpdateRecord(t *testing.T) {
	api := &fakeAPI{}
	p := newTestProvider(t, api)
	zone := &cloudprovider.Zone{ID: "z1"}

	_, err := p.UpdateRecord(context.Background(), zone, &cloudprovider.Record{
		ID: "r1", Name: "example.com.", Type: "A", TTL: 50, Records: []string{"1.2.3.4"},
	})
	assert.NilError(t, err)

	calls := api.Calls()
	assert.Equal(t, 1, len(calls))
	assert.Equal(t, http.MethodPut, calls[0].Method)
	assert.Equal(t, "/v2/zones/z1/recordsets/r1", calls[0].Path)
	assert.Equal(t, `{"name":"example.com.","type":"A","ttl":50,"records":["1.2.3.4"]}`, calls[0].Body)
}

func TestUpdateRecord_WithoutID(t *testing.T) {
	api := &fakeAPI{}
	p := newTestProvider(t, api)

	_, err := p.UpdateRecord(context.Background(), &cloudprovider.Zone{ID: "z1"}, &cloudprovider.Record{Name: "example.com."})
	assert.ErrorContains(t, err, "without record set id")
	assert.Equal(t, 0, len(api.Calls()))
}

func TestAPIError(t *testing.T) {
	p := newTestProvider(t, &fakeAPI{failStatus: http.StatusForbidden})

	_, err := p.ListZones(context.Background())
	var apiErr *APIError
	assert.Assert(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "/v2/zones", apiErr.Path)
	assert.ErrorContains(t, err, "error 403")
	assert.ErrorContains(t, err, "DNS.0001")
}

func TestBadSignatureRejected(t *testing.T) {
	api := &fakeAPI{zones: `{"zones":[]}`}
	p := newTestProvider(t, api)
	p.signer.Credentials.SecretAccessKey = "wrong"

	_, err := p.ListZones(context.Background())
	var apiErr *APIError
	assert.Assert(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}
