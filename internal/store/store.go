// Package store persists compiled runs to Postgres.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"genx-compile/internal/compile"
	"genx-compile/internal/model"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	runsTable        = "compile_runs"
	attributionTable = "trade_attribution"
	regionCostsTable = "region_costs"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const schema = `
CREATE TABLE IF NOT EXISTS compile_runs (
	run_id      UUID PRIMARY KEY,
	root        TEXT NOT NULL,
	years       INTEGER[] NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS trade_attribution (
	run_id          UUID NOT NULL REFERENCES compile_runs(run_id) ON DELETE CASCADE,
	year            INTEGER NOT NULL,
	case_label      TEXT NOT NULL,
	region          TEXT NOT NULL,
	import_costs    BIGINT NOT NULL,
	export_revenues BIGINT NOT NULL,
	net_trade_costs BIGINT NOT NULL,
	rps_costs       BIGINT NOT NULL,
	ces_costs       BIGINT NOT NULL,
	PRIMARY KEY (run_id, year, case_label, region)
);
CREATE TABLE IF NOT EXISTS region_costs (
	run_id            UUID NOT NULL REFERENCES compile_runs(run_id) ON DELETE CASCADE,
	year              INTEGER NOT NULL,
	case_label        TEXT NOT NULL,
	region            TEXT NOT NULL,
	fixed             DOUBLE PRECISION,
	variable          DOUBLE PRECISION,
	non_served        DOUBLE PRECISION,
	start_up          DOUBLE PRECISION,
	prev_spur_line    DOUBLE PRECISION,
	prev_transmission DOUBLE PRECISION,
	extra_costs       DOUBLE PRECISION,
	total             DOUBLE PRECISION,
	PRIMARY KEY (run_id, year, case_label, region)
);`

// Store writes compiled runs.
type Store struct {
	db *sql.DB
}

// Open connects through the pgx stdlib driver and checks the connection.
func Open(ctx context.Context, url string) (*Store, error) {
	if url == "" {
		return nil, errors.New("store: empty database url")
	}
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return &Store{db: db}, nil
}

// New wraps an open database.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// SaveRun writes a run and its records in one transaction. Saving the same
// run twice replaces its rows.
func (s *Store) SaveRun(ctx context.Context, res *compile.Result) error {
	if s == nil || s.db == nil {
		return errors.New("store: nil db")
	}
	stmts, err := runStatements(res)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, st := range stmts {
		if _, err := tx.ExecContext(ctx, st.query, st.args...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("store: %s: %w", st.table, err)
		}
	}
	return tx.Commit()
}

type statement struct {
	table string
	query string
	args  []interface{}
}

func runStatements(res *compile.Result) ([]statement, error) {
	var out []statement
	add := func(table string, b sq.Sqlizer) error {
		q, args, err := b.ToSql()
		if err != nil {
			return fmt.Errorf("store: build %s: %w", table, err)
		}
		out = append(out, statement{table: table, query: q, args: args})
		return nil
	}
	if err := add(runsTable, runInsert(res)); err != nil {
		return nil, err
	}
	if len(res.Attribution) > 0 {
		if err := add(attributionTable, attributionInsert(res.RunID, res.Attribution)); err != nil {
			return nil, err
		}
	}
	for _, p := range res.Periods {
		if len(p.Costs) == 0 {
			continue
		}
		if err := add(regionCostsTable, regionCostInsert(res.RunID, p.Year, p.Costs)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func runInsert(res *compile.Result) sq.InsertBuilder {
	return psql.Insert(runsTable).
		Columns("run_id", "root", "years", "started_at", "finished_at").
		Values(res.RunID, res.Root, res.Years(), res.StartedAt, res.FinishedAt).
		Suffix("ON CONFLICT (run_id) DO UPDATE SET root = EXCLUDED.root, years = EXCLUDED.years, " +
			"started_at = EXCLUDED.started_at, finished_at = EXCLUDED.finished_at")
}

func attributionInsert(runID string, records []model.TradeAttributionRecord) sq.InsertBuilder {
	b := psql.Insert(attributionTable).Columns(
		"run_id", "year", "case_label", "region",
		"import_costs", "export_revenues", "net_trade_costs", "rps_costs", "ces_costs",
	)
	for _, r := range records {
		b = b.Values(runID, r.Year, r.Case, r.Region,
			r.ImportCosts, r.ExportRevenues, r.NetTradeCosts, r.RPSCosts, r.CESCosts)
	}
	return b.Suffix("ON CONFLICT (run_id, year, case_label, region) DO UPDATE SET " +
		"import_costs = EXCLUDED.import_costs, export_revenues = EXCLUDED.export_revenues, " +
		"net_trade_costs = EXCLUDED.net_trade_costs, rps_costs = EXCLUDED.rps_costs, ces_costs = EXCLUDED.ces_costs")
}

func regionCostInsert(runID string, year int, records []model.CostRecord) sq.InsertBuilder {
	b := psql.Insert(regionCostsTable).Columns(
		"run_id", "year", "case_label", "region",
		"fixed", "variable", "non_served", "start_up",
		"prev_spur_line", "prev_transmission", "extra_costs", "total",
	)
	for _, r := range records {
		b = b.Values(runID, year, r.Case, r.Region,
			nullable(r.Fix), nullable(r.Var), nullable(r.NSE), nullable(r.Start),
			nullable(r.PrevSpurLine), nullable(r.PrevTransmission), nullable(r.ExtraCosts), nullable(r.Total()))
	}
	return b.Suffix("ON CONFLICT (run_id, year, case_label, region) DO UPDATE SET " +
		"fixed = EXCLUDED.fixed, variable = EXCLUDED.variable, non_served = EXCLUDED.non_served, " +
		"start_up = EXCLUDED.start_up, prev_spur_line = EXCLUDED.prev_spur_line, " +
		"prev_transmission = EXCLUDED.prev_transmission, extra_costs = EXCLUDED.extra_costs, total = EXCLUDED.total")
}

func nullable(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

// AttributionTotals returns the summed extra costs per case of a saved run.
func (s *Store) AttributionTotals(ctx context.Context, runID string) (map[string]int64, error) {
	q, args, err := attributionTotalsQuery(runID).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int64{}
	for rows.Next() {
		var label string
		var total int64
		if err := rows.Scan(&label, &total); err != nil {
			return nil, err
		}
		out[label] = total
	}
	return out, rows.Err()
}

func attributionTotalsQuery(runID string) sq.SelectBuilder {
	return psql.Select("case_label", "SUM(net_trade_costs + rps_costs + ces_costs)").
		From(attributionTable).
		Where(sq.Eq{"run_id": runID}).
		GroupBy("case_label").
		OrderBy("case_label")
}
