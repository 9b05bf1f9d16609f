package monitoring

import (
	"runtime"
	"time"

	"github.com/k2brd/k2brd/pkg/version"
	prom "github.com/prometheus/client_golang/prometheus"
)

var startTime = time.Now()

func systemCollectors() []prom.Collector {
	info := version.Get()
	buildInfo := prom.NewGauge(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "build_info",
		Help:      "Build information (value=1)",
		ConstLabels: prom.Labels{
			"version":    info.Version,
			"commit":     info.CommitHash,
			"go_version": runtime.Version(),
		},
	})
	buildInfo.Set(1)
	uptime := prom.NewGaugeFunc(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "uptime_seconds",
		Help:      "Service uptime in seconds",
	}, func() float64 {
		return time.Since(startTime).Seconds()
	})
	return []prom.Collector{buildInfo, uptime}
}
