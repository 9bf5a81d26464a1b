package observability

import (
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// ObserveDB times a single store operation and records its outcome. Repos
// wrap every query in it, so op labels stay low-cardinality ("users.create",
// "members.list", ...).
func (p *Prom) ObserveDB(op string, fn func() error) error {
	start := time.Now()

	err := fn()
	elapsed := time.Since(start).Seconds()

	if err != nil {
		p.DbErrorsTotal.WithLabelValues(op, classifyDBErr(err)).Inc()
		p.DbQueryDuration.WithLabelValues(op, "error").Observe(elapsed)
		return err
	}

	p.DbQueryDuration.WithLabelValues(op, "ok").Observe(elapsed)
	return nil
}

func classifyDBErr(err error) string {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return "unique_violation"
		case "23503":
			return "foreign_key_violation"
		case "40001":
			return "serialization_failure"
		case "40P01":
			return "deadlock"
		case "57014":
			return "query_canceled"
		}
		return "pg_" + pgErr.Code
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
		return "timeout"
	case strings.Contains(msg, "connection"):
		return "connection"
	}

	return "unknown"
}
