package huaweicloud

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"
)

const (
	Algorithm      = "SDK-HMAC-SHA256"
	HeaderSdkDate  = "X-Sdk-Date"
	sdkDateFormat  = "20060102T150405Z"
	envAccessKeyID = "DDNS_ID"
	envSecretKey   = "DDNS_TOKEN"
)

var ErrMissingCredentials = errors.New("huaweicloud: missing credentials")

type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
}

// CredentialsFromEnv reads DDNS_ID and DDNS_TOKEN.
func CredentialsFromEnv() (Credentials, error) {
	creds := Credentials{
		AccessKeyID:     os.Getenv(envAccessKeyID),
		SecretAccessKey: os.Getenv(envSecretKey),
	}
	if creds.AccessKeyID == "" {
		return creds, fmt.Errorf("%w: %s is not set", ErrMissingCredentials, envAccessKeyID)
	}
	if creds.SecretAccessKey == "" {
		return creds, fmt.Errorf("%w: %s is not set", ErrMissingCredentials, envSecretKey)
	}
	return creds, nil
}

// Signer adds SDK-HMAC-SHA256 authentication to outgoing requests.
type Signer struct {
	Credentials Credentials
	now         func() time.Time
}

func NewSigner(creds Credentials) *Signer {
	return &Signer{Credentials: creds, now: time.Now}
}

// Sign sets content-type, X-Sdk-Date, host and Authorization on req.
// body must be the exact payload sent with req. Nothing about req may change
// after Sign returns.
func (s *Signer) Sign(req *http.Request, body []byte) {
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	headers := map[string]string{
		"content-type": "application/json",
		HeaderSdkDate:  now().UTC().Format(sdkDateFormat),
		"host":         req.URL.Host,
	}

	canonical, signedHeaders := CanonicalRequest(req.Method, req.URL.Path, req.URL.Query(), headers, body)
	signature := Signature(s.Credentials.SecretAccessKey, StringToSign(canonical, headers[HeaderSdkDate]))

	req.Host = req.URL.Host
	req.URL.RawQuery = canonicalQuery(req.URL.Query())
	for k, v := range headers {
		if k == "host" {
			continue
		}
		req.Header.Set(k, v)
	}
	req.Header.Set("Authorization", fmt.Sprintf("%s Access=%s, SignedHeaders=%s, Signature=%s",
		Algorithm, s.Credentials.AccessKeyID, signedHeaders, signature))
}

// CanonicalRequest builds the canonical request and the signed-headers list
// for the given request parts.
func CanonicalRequest(method, path string, query url.Values, headers map[string]string, body []byte) (canonical, signedHeaders string) {
	lower := make(map[string]string, len(headers))
	names := make([]string, 0, len(headers))
	for k, v := range headers {
		name := strings.ToLower(k)
		lower[name] = strings.TrimSpace(v)
		names = append(names, name)
	}
	sort.Strings(names)

	var canonicalHeaders strings.Builder
	for _, name := range names {
		canonicalHeaders.WriteString(name)
		canonicalHeaders.WriteByte(':')
		canonicalHeaders.WriteString(lower[name])
		canonicalHeaders.WriteByte('\n')
	}
	signedHeaders = strings.Join(names, ";")

	canonical = strings.Join([]string{
		method,
		canonicalPath(path),
		canonicalQuery(query),
		canonicalHeaders.String(),
		signedHeaders,
		hexSHA256(body),
	}, "\n")
	return canonical, signedHeaders
}

func StringToSign(canonicalRequest, sdkDate string) string {
	return strings.Join([]string{Algorithm, sdkDate, hexSHA256([]byte(canonicalRequest))}, "\n")
}

func Signature(secret, stringToSign string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(stringToSign))
	return hex.EncodeToString(mac.Sum(nil))
}

func canonicalPath(path string) string {
	if !strings.HasSuffix(path, "/") {
		return path + "/"
	}
	return path
}

func canonicalQuery(query url.Values) string {
	if len(query) == 0 {
		return ""
	}
	return query.Encode()
}

func hexSHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
