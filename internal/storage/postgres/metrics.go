package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/smartshelf/catalog-service/internal/catalog"
)

var _ catalog.SearchRecorder = (*SearchMetrics)(nil)

// SearchMetrics implements catalog.SearchRecorder by persisting one row per
// product search. Writes are fire-and-forget: a failed insert is logged and
// never surfaces to the searching caller.
type SearchMetrics struct {
	pool *pgxpool.Pool
	lg   *zap.Logger
}

// NewSearchMetrics returns a SearchMetrics recorder using the given pool.
func NewSearchMetrics(pool *pgxpool.Pool, lg *zap.Logger) *SearchMetrics {
	return &SearchMetrics{pool: pool, lg: lg}
}

// RecordProductSearch inserts the search asynchronously. The insert is
// detached from the caller's cancellation but bounded by its own timeout.
func (m *SearchMetrics) RecordProductSearch(ctx context.Context, query string, results int) {
	insertCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	go func() {
		defer cancel()
		_, err := m.pool.Exec(insertCtx,
			`INSERT INTO product_searches (query, result_count) VALUES ($1, $2)`,
			query, results,
		)
		if err != nil {
			m.lg.Warn("Recording product search failed",
				zap.String("query", query), zap.Error(err))
		}
	}()
}

// TopSearches returns the most frequent queries within the given window,
// ordered by count descending.
func (m *SearchMetrics) TopSearches(ctx context.Context, since time.Time, limit int) ([]catalog.SearchAggregate, error) {
	rows, err := m.pool.Query(ctx,
		`SELECT query, COUNT(*) AS searches, AVG(result_count)::float8 AS avg_results
		   FROM product_searches
		  WHERE searched_at >= $1
		  GROUP BY query
		  ORDER BY searches DESC
		  LIMIT $2`,
		since, limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "query top searches")
	}
	defer rows.Close()

	var out []catalog.SearchAggregate
	for rows.Next() {
		var a catalog.SearchAggregate
		if err := rows.Scan(&a.Query, &a.Searches, &a.AvgResults); err != nil {
			return nil, errors.Wrap(err, "scan top searches")
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
