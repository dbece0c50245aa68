package metrics

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	dbQueryTimeout   = 2 * time.Second
	recordCountQuery = `SELECT check_category, approved_by <> '' AS approved, COUNT(*)
FROM check_records
GROUP BY check_category, approved_by <> ''`
)

// recordCollector reports stored check records by category and sign-off state
// at scrape time.
type recordCollector struct {
	db     *sql.DB
	logger *zap.Logger
	desc   *prometheus.Desc
}

type recordKey struct {
	category string
	approved bool
}

func newRecordCollector(db *sql.DB, logger *zap.Logger) *recordCollector {
	return &recordCollector{
		db:     db,
		logger: logger,
		desc: prometheus.NewDesc(
			metricPrefix+"check_records",
			"Stored check records by category and approval state",
			[]string{"category", "approved"},
			nil,
		),
	}
}

func (c *recordCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

func (c *recordCollector) Collect(ch chan<- prometheus.Metric) {
	counts, err := c.counts()
	if err != nil {
		c.logger.Warn("record count query failed", zap.Error(err))
		return
	}
	for key, n := range counts {
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, n, key.category, strconv.FormatBool(key.approved))
	}
}

func (c *recordCollector) counts() (map[recordKey]float64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dbQueryTimeout)
	defer cancel()
	rows, err := c.db.QueryContext(ctx, recordCountQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[recordKey]float64)
	for rows.Next() {
		var (
			key   recordKey
			count int64
		)
		if err := rows.Scan(&key.category, &key.approved, &count); err != nil {
			return nil, err
		}
		counts[key] = float64(count)
	}
	return counts, rows.Err()
}
