// Package metrics records one JSON line per dataset assembly, and keeps
// Prometheus counters of them.
package metrics

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/planar"
)

const (
	StatusDone      = "done"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

type GeometryInfo struct {
	WKT  string  `json:"wkt"`
	CRS  string  `json:"crs"`
	Area float64 `json:"area"`
}

// AssemblyInfo describes one finished, skipped or failed assembly.
type AssemblyInfo struct {
	StartTime       string        `json:"start_time"`
	Duration        time.Duration `json:"duration"`
	Status          string        `json:"status"`
	Error           string        `json:"error,omitempty"`
	DatasetID       string        `json:"dataset_id"`
	Label           string        `json:"label"`
	Product         string        `json:"product"`
	Conventions     string        `json:"conventions"`
	Location        string        `json:"location"`
	ValidDataMethod string        `json:"valid_data_method"`
	NumMeasurements int           `json:"num_measurements"`
	NumGrids        int           `json:"num_grids"`
	NumFiles        int           `json:"num_files"`
	BytesWritten    int64         `json:"bytes_written"`
	Warnings        []string      `json:"warnings,omitempty"`
	Geometry        *GeometryInfo `json:"geometry"`

	geometry orb.Geometry
	start    time.Time
}

// MetricsCollector fills in an AssemblyInfo over the course of one
// assembly and hands it to a Logger and the Prometheus collectors when
// the assembly ends.
type MetricsCollector struct {
	Info       *AssemblyInfo
	logger     Logger
	collectors *Collectors
}

func NewMetricsCollector(logger Logger, collectors *Collectors) *MetricsCollector {
	now := time.Now()
	return &MetricsCollector{
		Info: &AssemblyInfo{
			StartTime: now.UTC().Format(time.RFC3339),
			start:     now,
		},
		logger:     logger,
		collectors: collectors,
	}
}

// SetGeometry records the valid-data footprint of the dataset.
func (m *MetricsCollector) SetGeometry(g orb.Geometry, crs string) {
	m.Info.geometry = g
	m.Info.Geometry = &GeometryInfo{CRS: crs}
}

func (m *MetricsCollector) Warn(format string, args ...interface{}) {
	m.Info.Warnings = append(m.Info.Warnings, fmt.Sprintf(format, args...))
}

// Finish stamps the duration and status, then logs the record. A nil err
// with status "" means done.
func (m *MetricsCollector) Finish(status string, err error) {
	if status == "" {
		status = StatusDone
		if err != nil {
			status = StatusFailed
		}
	}
	m.Info.Status = status
	if err != nil {
		m.Info.Error = err.Error()
	}
	m.Info.Duration = time.Since(m.Info.start)

	if m.collectors != nil {
		m.collectors.Observe(m.Info)
	}
	if m.logger != nil {
		m.logger.Log(m.Info)
	}
}

func (i *AssemblyInfo) ToJSON() (string, error) {
	i.normaliseGeometry()

	buf := new(bytes.Buffer)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	err := enc.Encode(i)
	if err == nil {
		return buf.String(), nil
	} else {
		return "", err
	}
}

func (i *AssemblyInfo) normaliseGeometry() {
	if i.Geometry == nil {
		i.Geometry = &GeometryInfo{}
	}
	if i.geometry == nil {
		i.Geometry.WKT = "POLYGON EMPTY"
		return
	}
	if i.Geometry.WKT != "" {
		return
	}
	i.Geometry.WKT = wkt.MarshalString(i.geometry)
	i.Geometry.Area = planar.Area(i.geometry)
	if i.Geometry.Area == 0 {
		log.Printf("metrics: dataset %s has a footprint with no area", i.DatasetID)
	}
}
