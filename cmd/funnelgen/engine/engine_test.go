package engine

import (
	"path/filepath"
	"testing"
	"time"

	"funnel-mcp/internal/cohort"
	"funnel-mcp/internal/enhance"
	"funnel-mcp/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var genNow = time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)

func testConfig(scenario string) GeneratorConfig {
	return GeneratorConfig{Scenario: scenario, Steps: 3, Days: 45, Population: 200, Now: genNow, Seed: 7}
}

func TestGenerate_Deterministic(t *testing.T) {
	a := Generate(testConfig("mild"))
	b := Generate(testConfig("mild"))
	assert.Equal(t, a, b)

	c := Generate(GeneratorConfig{Scenario: "mild", Steps: 3, Days: 45, Population: 200, Now: genNow, Seed: 8})
	assert.NotEqual(t, a.Params, c.Params)
}

func TestGenerate_Structure(t *testing.T) {
	out := Generate(testConfig("mild"))

	require.Len(t, out.Graph.Nodes, 4)
	require.Len(t, out.Graph.Edges, 3)
	require.Len(t, out.Params, 3)
	assert.True(t, out.Graph.Nodes[0].Entry.IsStart)

	for i, doc := range out.Params {
		e := out.Graph.Edges[i]
		assert.Equal(t, e.UUID, doc.EdgeID)
		require.Len(t, doc.Values, 2)

		c := doc.Values[0]
		assert.Equal(t, cohort.ModeCohort, c.Mode)
		require.Len(t, c.Dates, 45)
		assert.Equal(t, "2025-05-16", c.Dates[0])
		assert.Equal(t, "2025-06-29", c.Dates[44])
		for d := range c.Dates {
			assert.LessOrEqual(t, c.KDaily[d], c.NDaily[d])
		}
		assert.Equal(t, c.N, e.P.Evidence.N)
		assert.Equal(t, c.K, e.P.Evidence.K)

		assert.Equal(t, cohort.ModeWindow, doc.Values[1].Mode)
	}
}

// Users reaching a step's source by now are exactly the previous step's
// conversions observed by now.
func TestGenerate_ChainConservesUsers(t *testing.T) {
	out := Generate(testConfig("mild"))
	for i := 1; i < len(out.Params); i++ {
		prev := out.Params[i-1].Values[0]
		cur := out.Params[i].Values[0]
		assert.Equal(t, prev.KDaily, cur.NDaily)
	}
}

func TestGenerate_SlowScenarioMatures(t *testing.T) {
	mild := Generate(testConfig("mild"))
	slow := Generate(testConfig("slow"))

	// The youngest cohorts of a slow funnel have converted less.
	tail := func(v cohort.ParamValue) (n, k int) {
		for d := len(v.Dates) - 7; d < len(v.Dates); d++ {
			n += v.NDaily[d]
			k += v.KDaily[d]
		}
		return n, k
	}
	mn, mk := tail(mild.Params[0].Values[0])
	sn, sk := tail(slow.Params[0].Values[0])
	require.Positive(t, mn)
	require.Positive(t, sn)
	assert.Less(t, float64(sk)/float64(sn), float64(mk)/float64(mn))
}

func TestGenerate_FeedsEnhancer(t *testing.T) {
	out := Generate(testConfig("mild"))

	lookup := cohort.Lookup{}
	for _, doc := range out.Params {
		lookup[doc.EdgeID] = doc.Values
	}
	res := enhance.EnhanceGraphLatencies(out.Graph, lookup, genNow, enhance.Options{})

	assert.Equal(t, 3, res.EdgesWithLAG)
	for _, v := range res.EdgeValues {
		assert.Greater(t, v.Latency.Completeness, 0.0)
		assert.LessOrEqual(t, v.Latency.Completeness, 1.0)
	}
}

func TestSave_RoundTrip(t *testing.T) {
	out := Generate(testConfig("drift"))
	dir := t.TempDir()
	require.NoError(t, Save(dir, out))

	g, err := store.LoadGraph(filepath.Join(dir, "graph.json"))
	require.NoError(t, err)
	assert.Equal(t, out.Graph, g)

	lookup, err := store.LoadParamDir(t.Context(), filepath.Join(dir, "params"))
	require.NoError(t, err)
	assert.Len(t, lookup, 3)
	for _, doc := range out.Params {
		assert.Equal(t, doc.Values, lookup[doc.EdgeID])
	}
}
