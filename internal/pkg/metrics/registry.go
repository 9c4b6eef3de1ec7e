package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// registry 门户独立的指标注册表，/metrics 只暴露这里注册的指标
var registry = newRegistry()

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// GetRegisterer 默认指标实例使用的 Registerer
func GetRegisterer() prometheus.Registerer {
	return registry
}

// Gatherer /metrics 的采集源
func Gatherer() prometheus.Gatherer {
	return registry
}
