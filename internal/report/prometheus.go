package report

import (
	"github.com/ogulcanaydogan/kwscore/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exposes module results as gauges.
type Collector struct {
	metric  *prometheus.GaugeVec
	records *prometheus.GaugeVec
	failed  *prometheus.GaugeVec
}

func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		metric: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "kwscore_module_metric",
				Help: "Most recent value of a scoring metric for a module run",
			},
			[]string{"module", "key", "model", "metric"},
		),
		records: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "kwscore_module_records",
				Help: "Number of deduplicated records scored for a module run",
			},
			[]string{"module", "key"},
		),
		failed: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "kwscore_module_failed",
				Help: "1 when scoring a module run failed",
			},
			[]string{"module", "key"},
		),
	}
	for _, col := range []prometheus.Collector{c.metric, c.records, c.failed} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Series is one labelled set of values exported by a Collector.
type Series struct {
	Module  string
	Key     string
	Model   string
	Records int
	Failed  bool
	Values  map[string]float64
}

// Update replaces every exported value with the given results.
func (c *Collector) Update(results []types.ModuleResult) {
	series := make([]Series, 0, len(results))
	for _, r := range results {
		series = append(series, Series{
			Module:  r.Module,
			Key:     r.Key,
			Model:   r.Model,
			Records: r.Records,
			Failed:  r.Error != "",
			Values:  r.MetricValues(),
		})
	}
	c.Replace(series)
}

func (c *Collector) Replace(series []Series) {
	c.metric.Reset()
	c.records.Reset()
	c.failed.Reset()
	for _, s := range series {
		failed := 0.0
		if s.Failed {
			failed = 1
		}
		c.failed.WithLabelValues(s.Module, s.Key).Set(failed)
		c.records.WithLabelValues(s.Module, s.Key).Set(float64(s.Records))
		for name, v := range s.Values {
			c.metric.WithLabelValues(s.Module, s.Key, s.Model, name).Set(v)
		}
	}
}

// WritePrometheus writes the summary in the node exporter textfile format.
func WritePrometheus(path string, s types.Summary) error {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	if err != nil {
		return err
	}
	c.Update(s.Results)
	return prometheus.WriteToTextfile(path, reg)
}
