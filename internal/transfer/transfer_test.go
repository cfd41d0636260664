package transfer

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"genx-compile/internal/chain"
	"genx-compile/internal/genxtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func studyCase(folder string, endCap, newTrans float64) genxtest.Case {
	return genxtest.Case{
		Folder: folder,
		Zones:  []genxtest.Zone{{ID: 1, Load: []float64{10}}, {ID: 2, Load: []float64{10}}},
		Resources: []genxtest.Resource{
			{Name: "CA_utilitypv_1", Zone: 1, StartCap: 100, NewCap: endCap - 100, EndCap: endCap, EndEnergy: 0},
			{Name: "CA_ev_load_shifting", Zone: 1, StartCap: 7, EndCap: 9},
			{Name: "AZ_battery_1", Zone: 2, StartCap: 20, EndCap: 33.333, EndEnergy: 133.337},
		},
		Lines: []genxtest.Line{
			{PathName: "CA_to_AZ", Directions: map[int]float64{1: 1, 2: -1}, MaxFlow: 1000, NewCap: newTrans, Flow: []float64{0}},
		},
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(raw)
}

func TestRunUpdatesInputs(t *testing.T) {
	root := t.TempDir()
	genxtest.Write(t, filepath.Join(root, "2030"), studyCase("p1_2030_No_Policy", 400, 250.456))
	genxtest.Write(t, filepath.Join(root, "2030"), studyCase("p2_2030_Coal_Phaseout", 500, 0))
	p1 := genxtest.Write(t, filepath.Join(root, "2045"), studyCase("p1_2045_No_Policy", 0, 0))
	p3 := genxtest.Write(t, filepath.Join(root, "2045"), studyCase("p3_2045_RPS_only", 0, 0))
	p4 := genxtest.Write(t, filepath.Join(root, "2045"), studyCase("p4_2045_New_Case", 0, 0))

	var logs bytes.Buffer
	tr := New(chain.New(map[int]map[string]string{2045: {"p3": "p1"}}, nil),
		[]string{"ev_load_shifting"}, slog.New(slog.NewTextHandler(&logs, nil)))
	tr.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	require.NoError(t, CheckPeriods(root, 2030, 2045))
	out, err := tr.Run(context.Background(), root, 2030, 2045)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, StatusUpdated, out[0].Status)
	assert.Equal(t, "p1", out[1].Predecessor)
	assert.Equal(t, StatusUpdated, out[1].Status)
	assert.Equal(t, StatusSkipped, out[2].Status)
	assert.Contains(t, logs.String(), "missing case folder")

	gens := readFile(t, filepath.Join(p3, "Inputs", "Generators_data.csv"))
	assert.Contains(t, gens, "CA_utilitypv_1,1,1,400,0,")
	assert.Contains(t, gens, "CA_ev_load_shifting,2,1,7,0,")
	assert.Contains(t, gens, "AZ_battery_1,3,2,33.33,133.34,")

	network := readFile(t, filepath.Join(p1, "Inputs", "Network.csv"))
	assert.Contains(t, network, ",1250.46,CA_to_AZ,")

	marker := readFile(t, filepath.Join(p3, MarkerFile))
	assert.Equal(t, "Inputs modified with previous period results (case p1) on 2026-01-02 03.04.05\n", marker)
	assert.NoFileExists(t, filepath.Join(p4, MarkerFile))

	again, err := tr.Run(context.Background(), root, 2030, 2045)
	require.NoError(t, err)
	assert.Equal(t, StatusCurrent, again[0].Status)
	assert.Equal(t, StatusCurrent, again[1].Status)
	assert.Equal(t, network, readFile(t, filepath.Join(p1, "Inputs", "Network.csv")))
}

func TestApplyRejectsMismatchedResources(t *testing.T) {
	root := t.TempDir()
	prev := studyCase("p1_2030_No_Policy", 400, 0)
	next := studyCase("p1_2045_No_Policy", 0, 0)
	next.Resources = next.Resources[:1]
	genxtest.Write(t, filepath.Join(root, "2030"), prev)
	dst := genxtest.Write(t, filepath.Join(root, "2045"), next)

	tr := New(chain.New(nil, nil), []string{"ev_load_shifting"}, nil)
	_, err := tr.Run(context.Background(), root, 2030, 2045)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Existing_Cap_MW")
	assert.NoFileExists(t, filepath.Join(dst, MarkerFile))
}

func TestApplyLeavesInputsOnNetworkMismatch(t *testing.T) {
	root := t.TempDir()
	genxtest.Write(t, filepath.Join(root, "2030"), studyCase("p1_2030_No_Policy", 400, 250))
	next := studyCase("p1_2045_No_Policy", 0, 0)
	next.Lines = append(next.Lines, genxtest.Line{
		PathName: "AZ_to_CA", Directions: map[int]float64{1: -1, 2: 1}, MaxFlow: 500, Flow: []float64{0},
	})
	dst := genxtest.Write(t, filepath.Join(root, "2045"), next)
	gensPath := filepath.Join(dst, "Inputs", "Generators_data.csv")
	netPath := filepath.Join(dst, "Inputs", "Network.csv")
	gensBefore, netBefore := readFile(t, gensPath), readFile(t, netPath)

	tr := New(chain.New(nil, nil), []string{"ev_load_shifting"}, nil)
	_, err := tr.Run(context.Background(), root, 2030, 2045)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no expansion for line 2")

	assert.Equal(t, gensBefore, readFile(t, gensPath))
	assert.Equal(t, netBefore, readFile(t, netPath))
	assert.NoFileExists(t, filepath.Join(dst, MarkerFile))
}

func TestCheckPeriods(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "2030"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "2045"), 0o755))

	assert.NoError(t, CheckPeriods(root, 2030, 2045))
	assert.ErrorIs(t, CheckPeriods(root, 2030, 2050), ErrPeriodNotFound)
	assert.Error(t, CheckPeriods(root, 2045, 2030))
}

func TestRunCanceled(t *testing.T) {
	root := t.TempDir()
	genxtest.Write(t, filepath.Join(root, "2030"), studyCase("p1_2030_No_Policy", 400, 0))
	genxtest.Write(t, filepath.Join(root, "2045"), studyCase("p1_2045_No_Policy", 0, 0))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(chain.New(nil, nil), nil, nil).Run(ctx, root, 2030, 2045)
	assert.ErrorIs(t, err, context.Canceled)
}
