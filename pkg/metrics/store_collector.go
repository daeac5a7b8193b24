package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/voterlookup/epic-extractor/internal/store"
	"go.uber.org/zap"
)

const collectTimeout = 5 * time.Second

type storeStatsCollector struct {
	store        store.Store
	totalVoters  *prometheus.Desc
	jobsByStatus *prometheus.Desc
}

// RegisterStoreCollector exposes row counts read from the store at scrape time.
func RegisterStoreCollector(s store.Store) {
	prometheus.MustRegister(newStoreStatsCollector(s))
}

func newStoreStatsCollector(s store.Store) prometheus.Collector {
	fqName := func(name string) string {
		return fmt.Sprintf("%s_store_%s", epicExtractor, name)
	}

	return &storeStatsCollector{
		store: s,
		totalVoters: prometheus.NewDesc(
			fqName("voters_total"),
			"Total number of persisted voter records.",
			nil,
			prometheus.Labels{},
		),
		jobsByStatus: prometheus.NewDesc(
			fqName("jobs_total"),
			"Total number of jobs by status.",
			[]string{statusLabel},
			prometheus.Labels{},
		),
	}
}

func (c *storeStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.totalVoters
	ch <- c.jobsByStatus
}

// Collect implements Collector.
func (c *storeStatsCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), collectTimeout)
	defer cancel()

	stats, err := c.store.Statistics(ctx)
	if err != nil {
		zap.S().Named("store_collector").Errorf("failed to collect store statistics: %s", err)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.totalVoters, prometheus.GaugeValue, float64(stats.Voters))

	for status, total := range stats.JobsByStatus {
		ch <- prometheus.MustNewConstMetric(c.jobsByStatus, prometheus.GaugeValue, float64(total), status)
	}
}
