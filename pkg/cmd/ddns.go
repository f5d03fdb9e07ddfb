package ddns

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/larivierec/huaweicloud-ddns/pkg/cloudprovider"
	"github.com/larivierec/huaweicloud-ddns/pkg/cloudprovider/huaweicloud"
	"github.com/larivierec/huaweicloud-ddns/pkg/config"
	"github.com/larivierec/huaweicloud-ddns/pkg/ipprovider"
	"github.com/larivierec/huaweicloud-ddns/pkg/metrics"
	"github.com/larivierec/huaweicloud-ddns/pkg/updater"
)

// ErrInvalidConfiguration marks failures that happen before a logger exists.
var ErrInvalidConfiguration = errors.New("invalid configuration")

var (
	logger         = logr.Discard()
	newLogger      = NewLogger
	resolveAddress = resolve
)

func SetLogger(l logr.Logger) {
	logger = l
}

// NewLogger returns a zap backed logger. Terminals get console output,
// everything else JSON. verbose enables V(1) messages.
func NewLogger(verbose bool) logr.Logger {
	var cfg zap.Config
	if term.IsTerminal(int(os.Stderr.Fd())) {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	z, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to build logger: %v\n", err)
		return logr.Discard()
	}
	return zapr.NewLogger(z)
}

// Start runs one update pass configured from the command line. Update
// failures are logged; only ErrInvalidConfiguration errors are left to the
// caller to report.
func Start() error {
	return run(context.Background(), os.Args[1:])
}

func run(ctx context.Context, args []string) error {
	cfg, err := config.Load(args)
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	SetLogger(newLogger(cfg.Verbose))
	metrics.InitMetrics()

	_, err = update(ctx, cfg)
	if err != nil {
		logger.Error(err, "DNS update failed", "domain", cfg.Domain)
	}
	if cfg.MetricsTextfile != "" {
		if werr := metrics.WriteTextfile(cfg.MetricsTextfile); werr != nil {
			logger.Error(werr, "unable to write metrics", "path", cfg.MetricsTextfile)
		}
	}
	return err
}

// StartServerless runs one update pass per request, configured from DDNS_*
// environment variables and the optional DDNS_CONFIG file.
func StartServerless(w http.ResponseWriter, r *http.Request) {
	metrics.IncrementReqs(r)
	cfg, err := config.Load(nil)
	if err != nil {
		logger.Error(err, "invalid configuration")
		http.Error(w, "invalid configuration", http.StatusInternalServerError)
		return
	}

	if _, err := update(r.Context(), cfg); err != nil {
		logger.Error(err, "DNS update failed")
		http.Error(w, "DNS update failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("DNS updated successfully"))
}

func update(ctx context.Context, cfg *config.Config) (*updater.Result, error) {
	cloudProvider, err := createCloudProvider(cfg)
	if err != nil {
		return nil, err
	}

	addr, err := resolveAddress(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to resolve current ip, skipping update: %w", err)
	}
	logger.Info("resolved current ip", "address", addr, "family", cfg.Family)

	result, err := updater.New(cloudProvider, logger.WithName("updater"), cfg.TTL).Update(ctx, cfg.Domain, cfg.RecordType, addr)
	if err != nil {
		return result, err
	}
	recordChecker(result, addr)
	return result, nil
}

func resolve(ctx context.Context, cfg *config.Config) (netip.Addr, error) {
	family, err := ipprovider.ParseFamily(cfg.Family)
	if err != nil {
		return netip.Addr{}, err
	}
	outbound, err := createProvider(cfg.IPProvider, family, cfg.ProbeAddress)
	if err != nil {
		return netip.Addr{}, err
	}
	resolver := &ipprovider.Verified{
		Outbound:  outbound,
		Local:     &ipprovider.Interface{Family: family, Name: cfg.Interface},
		Increment: metrics.IncrementProvider,
		Log:       logger.WithName("ipprovider"),
	}
	return resolver.Resolve(ctx)
}

func createProvider(name string, family ipprovider.Family, probeAddress string) (ipprovider.Provider, error) {
	switch name {
	case "udp", "":
		return &ipprovider.UDPProbe{Family: family, Target: probeAddress}, nil
	case "ipify":
		return &ipprovider.Ipify{Family: family}, nil
	case "icanhazip", "icanhaz":
		return &ipprovider.ICanHazIp{Family: family}, nil
	}
	return nil, fmt.Errorf("unknown ip provider %q", name)
}

func createCloudProvider(cfg *config.Config) (cloudprovider.Provider, error) {
	creds, err := huaweicloud.CredentialsFromEnv()
	if err != nil {
		return nil, err
	}
	return huaweicloud.NewHuaweiCloudProvider(logger.WithName("huaweicloud"), huaweicloud.Configuration{
		Endpoint:    cfg.Endpoint,
		Credentials: creds,
		Timeout:     cfg.Timeout,
	})
}

func recordChecker(result *updater.Result, addr netip.Addr) {
	if result.Changed() {
		logger.Info("record updated", "address", addr, "created", len(result.Created), "updated", len(result.Updated))
	} else {
		logger.Info("record is the same, ignoring.", "address", addr)
	}
}
