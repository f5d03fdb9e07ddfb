package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	ddns "github.com/larivierec/huaweicloud-ddns/pkg/cmd"
	"github.com/larivierec/huaweicloud-ddns/pkg/metrics"
)

func main() {
	mode := os.Getenv("MODE")
	if mode == "serverless" {
		log := ddns.NewLogger(os.Getenv("DDNS_VERBOSE") == "true")
		ddns.SetLogger(log)
		metrics.InitMetrics()

		log.Info("Running in serverless mode", "addr", ":9000")
		http.Handle("/metrics", promhttp.Handler())
		http.HandleFunc("/", ddns.StartServerless)
		if err := http.ListenAndServe(":9000", nil); err != nil {
			log.Error(err, "serverless listener stopped")
			os.Exit(1)
		}
		return
	}

	if err := ddns.Start(); err != nil {
		if errors.Is(err, ddns.ErrInvalidConfiguration) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}
