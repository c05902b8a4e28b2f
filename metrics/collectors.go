package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collectors are the Prometheus metrics of dataset assembly.
type Collectors struct {
	AssembliesTotal *prometheus.CounterVec
	Duration        prometheus.Histogram
	Measurements    prometheus.Counter
	BytesWritten    prometheus.Counter
	Warnings        prometheus.Counter
}

// NewCollectors builds the collectors and registers them with reg, or
// with the default registry when reg is nil.
func NewCollectors(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		AssembliesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eo3_assemblies_total",
				Help: "Total dataset assemblies by product and status",
			},
			[]string{"product", "status"},
		),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "eo3_assembly_duration_seconds",
			Help:    "Dataset assembly duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		Measurements: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eo3_measurements_total",
			Help: "Total measurements recorded in finished datasets",
		}),
		BytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eo3_bytes_written_total",
			Help: "Total bytes written into dataset packages",
		}),
		Warnings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eo3_assembly_warnings_total",
			Help: "Total warnings raised while assembling datasets",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		c.AssembliesTotal,
		c.Duration,
		c.Measurements,
		c.BytesWritten,
		c.Warnings,
	)
	return c
}

// Observe counts one assembly.
func (c *Collectors) Observe(info *AssemblyInfo) {
	c.AssembliesTotal.WithLabelValues(info.Product, info.Status).Inc()
	c.Duration.Observe(info.Duration.Seconds())
	c.Warnings.Add(float64(len(info.Warnings)))
	if info.Status == StatusDone {
		c.Measurements.Add(float64(info.NumMeasurements))
		c.BytesWritten.Add(float64(info.BytesWritten))
	}
}
