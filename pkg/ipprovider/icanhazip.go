package ipprovider

import (
	"context"
	"net/http"
	"strings"
)

const icanHaz = "icanhazip"

type ICanHazIp struct {
	Family  Family
	BaseUrl string
	Client  *http.Client
}

func (i *ICanHazIp) setup() {
	if i.BaseUrl == "" {
		if i.Family == IPv6 {
			i.BaseUrl = "https://ipv6.icanhazip.com"
		} else {
			i.BaseUrl = "https://ipv4.icanhazip.com"
		}
	}
	if i.Client == nil {
		i.Client = webClient()
	}
}

func (i *ICanHazIp) GetProviderName() string {
	return icanHaz
}

func (i *ICanHazIp) GetCurrentIP(ctx context.Context) (string, error) {
	i.setup()
	body, err := fetch(ctx, i.Client, i.BaseUrl)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}
