// Package config loads the updater settings. Later sources win:
// defaults, the YAML file, DDNS_* environment variables, then flags.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"go.yaml.in/yaml/v3"

	"github.com/larivierec/huaweicloud-ddns/pkg/cloudprovider/huaweicloud"
	"github.com/larivierec/huaweicloud-ddns/pkg/ipprovider"
	"github.com/larivierec/huaweicloud-ddns/pkg/updater"
)

type Config struct {
	Domain          string        `yaml:"domain"`
	RecordType      string        `yaml:"record_type"`
	Family          string        `yaml:"family"`
	Interface       string        `yaml:"interface"`
	IPProvider      string        `yaml:"ip_provider"`
	ProbeAddress    string        `yaml:"probe_address"`
	TTL             int           `yaml:"ttl"`
	Endpoint        string        `yaml:"endpoint"`
	Timeout         time.Duration `yaml:"timeout"`
	MetricsTextfile string        `yaml:"metrics_textfile"`
	Verbose         bool          `yaml:"verbose"`
	ConfigFile      string        `yaml:"-"`
}

func Default() *Config {
	return &Config{
		Family:     string(ipprovider.IPv4),
		IPProvider: "udp",
		TTL:        updater.DefaultTTL,
		Endpoint:   huaweicloud.DefaultEndpoint,
		Timeout:    huaweicloud.DefaultTimeout,
		ConfigFile: os.Getenv("DDNS_CONFIG"),
	}
}

func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.Domain, "domain", c.Domain, "set this to the domain whose record should point at this host.")
	fs.StringVar(&c.RecordType, "record-type", c.RecordType, "set this to the record type to manage. defaults to A for ipv4 and AAAA for ipv6.")
	fs.StringVar(&c.Family, "family", c.Family, "set this to the address family to publish, ipv4 or ipv6.")
	fs.StringVar(&c.Interface, "interface", c.Interface, "set this to the interface that must hold the address. empty means any interface.")
	fs.StringVar(&c.IPProvider, "ip-provider", c.IPProvider, "set this to the outbound address lookup: udp, ipify or icanhazip.")
	fs.StringVar(&c.ProbeAddress, "probe-address", c.ProbeAddress, "set this to the host:port the udp probe routes toward.")
	fs.IntVar(&c.TTL, "ttl", c.TTL, "set this to the ttl of created or updated record sets.")
	fs.StringVar(&c.Endpoint, "endpoint", c.Endpoint, "set this to the DNS API endpoint.")
	fs.DurationVar(&c.Timeout, "timeout", c.Timeout, "set this to the timeout of each DNS API call.")
	fs.StringVar(&c.MetricsTextfile, "metrics-textfile", c.MetricsTextfile, "write prometheus metrics to this file after the run.")
	fs.StringVar(&c.ConfigFile, "config", c.ConfigFile, "path to a YAML config file.")
	fs.BoolVarP(&c.Verbose, "verbose", "v", c.Verbose, "enable verbose logging.")
}

// Load builds the configuration from args, the file named by --config or
// DDNS_CONFIG, and the environment.
func Load(args []string) (*Config, error) {
	cfg := Default()
	fs := pflag.NewFlagSet("ddns", pflag.ContinueOnError)
	cfg.BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.ConfigFile != "" {
		if err := cfg.LoadFile(cfg.ConfigFile); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	// parsing again puts explicitly set flags back on top of file and env.
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile overlays the YAML file at path. ${VAR} references are expanded.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), c); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

func (c *Config) ApplyEnv() error {
	c.Domain = envOrDefault("DDNS_DOMAIN", c.Domain)
	c.RecordType = envOrDefault("DDNS_RECORD_TYPE", c.RecordType)
	c.Family = envOrDefault("DDNS_FAMILY", c.Family)
	c.Interface = envOrDefault("DDNS_INTERFACE", c.Interface)
	c.IPProvider = envOrDefault("DDNS_IP_PROVIDER", c.IPProvider)
	c.Endpoint = envOrDefault("DDNS_ENDPOINT", c.Endpoint)
	if v := os.Getenv("DDNS_TTL"); v != "" {
		ttl, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid DDNS_TTL %q: %w", v, err)
		}
		c.TTL = ttl
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Domain == "" {
		return fmt.Errorf("domain cannot be empty")
	}
	if !strings.Contains(strings.TrimSuffix(c.Domain, "."), ".") {
		return fmt.Errorf("domain %q must have at least one dot", c.Domain)
	}

	family, err := ipprovider.ParseFamily(c.Family)
	if err != nil {
		return err
	}
	c.Family = string(family)
	if c.RecordType == "" {
		c.RecordType = family.RecordType()
	}
	c.RecordType = strings.ToUpper(c.RecordType)
	if c.RecordType != family.RecordType() {
		return fmt.Errorf("record type %s cannot hold %s addresses", c.RecordType, family)
	}

	switch c.IPProvider {
	case "udp", "ipify", "icanhazip", "icanhaz":
	default:
		return fmt.Errorf("unknown ip provider %q", c.IPProvider)
	}
	if c.TTL <= 0 {
		return fmt.Errorf("ttl must be positive, got %d", c.TTL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
