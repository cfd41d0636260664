package store

import (
	"context"
	"database/sql"
	"math"
	"testing"
	"time"

	"genx-compile/internal/compile"
	"genx-compile/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *compile.Result {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &compile.Result{
		RunID:      "7f1c1a52-6a4e-4c1d-9a53-0d7f3f1d2a11",
		Root:       "/data/study",
		StartedAt:  start,
		FinishedAt: start.Add(time.Minute),
		Periods: []compile.PeriodResult{
			{Year: 2030, Costs: []model.CostRecord{
				{Case: "No Policy", Region: "CA", Fix: 10, Var: 5, NSE: math.NaN()},
				{Case: "No Policy", Region: "AZ", Fix: 1},
			}},
			{Year: 2045},
		},
		Attribution: []model.TradeAttributionRecord{
			{Year: 2030, Case: "No Policy", Region: "CA", ImportCosts: 100, NetTradeCosts: 100, RPSCosts: 3},
		},
	}
}

func TestRunStatements(t *testing.T) {
	stmts, err := runStatements(sampleResult())
	require.NoError(t, err)
	require.Len(t, stmts, 3)

	assert.Equal(t, runsTable, stmts[0].table)
	assert.Contains(t, stmts[0].query, "INSERT INTO compile_runs (run_id,root,years,started_at,finished_at) VALUES ($1,$2,$3,$4,$5)")
	assert.Equal(t, []int{2030, 2045}, stmts[0].args[2])

	assert.Equal(t, attributionTable, stmts[1].table)
	assert.Len(t, stmts[1].args, 9)
	assert.Contains(t, stmts[1].query, "ON CONFLICT (run_id, year, case_label, region)")

	assert.Equal(t, regionCostsTable, stmts[2].table)
	require.Len(t, stmts[2].args, 24)
	assert.Contains(t, stmts[2].query, "($13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24)")
	assert.Equal(t, sql.NullFloat64{}, stmts[2].args[6])
	assert.Equal(t, sql.NullFloat64{Float64: 15, Valid: true}, stmts[2].args[11])
}

func TestRunStatementsWithoutRecords(t *testing.T) {
	res := sampleResult()
	res.Attribution = nil
	res.Periods = nil
	stmts, err := runStatements(res)
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	assert.Equal(t, runsTable, stmts[0].table)
}

func TestAttributionTotalsQuery(t *testing.T) {
	q, args, err := attributionTotalsQuery("abc").ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT case_label, SUM(net_trade_costs + rps_costs + ces_costs) FROM trade_attribution WHERE run_id = $1 GROUP BY case_label ORDER BY case_label", q)
	assert.Equal(t, []interface{}{"abc"}, args)
}

func TestOpenRequiresURL(t *testing.T) {
	_, err := Open(context.Background(), "")
	assert.Error(t, err)
}
