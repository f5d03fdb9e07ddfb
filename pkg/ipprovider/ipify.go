package ipprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
)

const ipify = "ipify"

type Ipify struct {
	Family  Family
	BaseUrl string
	Client  *http.Client
}

type IpInfo struct {
	Ip string `json:"ip"`
}

func (i *Ipify) setup() {
	if i.BaseUrl == "" {
		if i.Family == IPv6 {
			i.BaseUrl = "https://api6.ipify.org?format=json"
		} else {
			i.BaseUrl = "https://api.ipify.org?format=json"
		}
	}
	if i.Client == nil {
		i.Client = webClient()
	}
}

func (i *Ipify) GetProviderName() string {
	return ipify
}

func (i *Ipify) GetCurrentIP(ctx context.Context) (string, error) {
	i.setup()
	body, err := fetch(ctx, i.Client, i.BaseUrl)
	if err != nil {
		return "", err
	}

	ipInfo := IpInfo{}
	if err := json.Unmarshal(body, &ipInfo); err != nil {
		return "", fmt.Errorf("ipify: decode response: %w", err)
	}
	return ipInfo.Ip, nil
}

func webClient() *http.Client {
	c := cleanhttp.DefaultClient()
	c.Timeout = 10 * time.Second
	return c
}

func fetch(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cache-Control", "no-cache")

	response, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, err
	}
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned %s", url, response.Status)
	}
	return body, nil
}
