package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/ngrok/sqlmw"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	verbRegex    = regexp.MustCompile(`^\s*(\w+)`)
	sqlOpLatency *prometheus.HistogramVec
	sqlOpTotal   *prometheus.CounterVec
	sqlOpErrors  *prometheus.CounterVec
)

// metricInterceptor wraps the pgx driver and records the latency of every
// statement by driver operation and SQL verb.
type metricInterceptor struct {
	sqlmw.NullInterceptor
}

func init() {
	sqlOpLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:      "sql_op_duration_milliseconds",
		Help:      "Time spent on a database operation",
		Subsystem: "epic_extractor",
		Buckets:   []float64{5, 25, 100, 300, 1000, 5000},
	},
		[]string{"op", "verb"},
	)
	sqlOpTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:      "sql_op_total",
		Help:      "Number of database operations",
		Subsystem: "epic_extractor",
	},
		[]string{"op"},
	)
	sqlOpErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:      "sql_op_errors_total",
		Help:      "Number of failed database operations",
		Subsystem: "epic_extractor",
	},
		[]string{"op"},
	)

	prometheus.MustRegister(sqlOpLatency, sqlOpTotal, sqlOpErrors)
}

// verb returns the lower-cased leading keyword of a statement, "insert" for
// "INSERT INTO voters ...".
func verb(query string) string {
	m := verbRegex.FindStringSubmatch(query)
	if len(m) < 2 {
		return "unknown"
	}
	return strings.ToLower(m[1])
}

func (mi *metricInterceptor) ConnBeginTx(ctx context.Context, conn driver.ConnBeginTx, opts driver.TxOptions) (context.Context, driver.Tx, error) {
	start := time.Now()
	tx, err := conn.BeginTx(ctx, opts)
	observe("begin", "begin", start, err)
	return ctx, tx, err
}

func (mi *metricInterceptor) ConnPrepareContext(ctx context.Context, conn driver.ConnPrepareContext, query string) (context.Context, driver.Stmt, error) {
	start := time.Now()
	stmt, err := conn.PrepareContext(ctx, query)
	observe("prepare", verb(query), start, err)
	return ctx, stmt, err
}

func (mi *metricInterceptor) ConnPing(ctx context.Context, conn driver.Pinger) error {
	start := time.Now()
	err := conn.Ping(ctx)
	observe("ping", "ping", start, err)
	return err
}

func (mi *metricInterceptor) ConnExecContext(ctx context.Context, conn driver.ExecerContext, query string, args []driver.NamedValue) (driver.Result, error) {
	start := time.Now()
	res, err := conn.ExecContext(ctx, query, args)
	observe("exec", verb(query), start, err)
	return res, err
}

func (mi *metricInterceptor) ConnQueryContext(ctx context.Context, conn driver.QueryerContext, query string, args []driver.NamedValue) (context.Context, driver.Rows, error) {
	start := time.Now()
	rows, err := conn.QueryContext(ctx, query, args)
	observe("query", verb(query), start, err)
	return ctx, rows, err
}

func (mi *metricInterceptor) ConnectorConnect(ctx context.Context, conn driver.Connector) (driver.Conn, error) {
	start := time.Now()
	c, err := conn.Connect(ctx)
	observe("connect", "connect", start, err)
	return c, err
}

func (mi *metricInterceptor) StmtExecContext(ctx context.Context, conn driver.StmtExecContext, query string, args []driver.NamedValue) (driver.Result, error) {
	start := time.Now()
	res, err := conn.ExecContext(ctx, args)
	observe("stmt-exec", verb(query), start, err)
	return res, err
}

func (mi *metricInterceptor) StmtQueryContext(ctx context.Context, conn driver.StmtQueryContext, query string, args []driver.NamedValue) (context.Context, driver.Rows, error) {
	start := time.Now()
	rows, err := conn.QueryContext(ctx, args)
	observe("stmt-query", verb(query), start, err)
	return ctx, rows, err
}

func (mi *metricInterceptor) TxCommit(ctx context.Context, conn driver.Tx) error {
	start := time.Now()
	err := conn.Commit()
	observe("commit", "commit", start, err)
	return err
}

func (mi *metricInterceptor) TxRollback(ctx context.Context, conn driver.Tx) error {
	start := time.Now()
	err := conn.Rollback()
	observe("rollback", "rollback", start, err)
	return err
}

func observe(op, verb string, start time.Time, err error) {
	sqlOpTotal.With(prometheus.Labels{"op": op}).Inc()
	if err != nil && !errors.Is(err, driver.ErrSkip) {
		sqlOpErrors.With(prometheus.Labels{"op": op}).Inc()
	}
	sqlOpLatency.With(prometheus.Labels{"op": op, "verb": verb}).Observe(float64(time.Since(start).Milliseconds()))
}
