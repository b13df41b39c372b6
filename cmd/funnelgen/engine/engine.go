package engine

import (
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"time"

	"funnel-mcp/internal/cohort"
	"funnel-mcp/internal/graph"
	"funnel-mcp/internal/store"

	"github.com/google/uuid"
	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"
)

type GeneratorConfig struct {
	Scenario   string // "mild", "slow" or "drift"
	Steps      int
	Days       int
	Population int // mean daily entrants
	Now        time.Time
	Seed       uint64
}

// Output is a synthetic funnel and the parameter documents for its edges.
type Output struct {
	Graph  *graph.Graph
	Params []store.ParamDocument
}

type stepProfile struct {
	p      float64
	median float64
	sigma  float64
}

func (sp stepProfile) t95() float64 {
	return sp.median * math.Exp(1.6448536269514722*sp.sigma)
}

var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("funnelgen"))

func profiles(cfg GeneratorConfig) []stepProfile {
	out := make([]stepProfile, cfg.Steps)
	for i := range out {
		sp := stepProfile{p: 0.6 - 0.1*float64(i%3), median: 2 + 2*float64(i), sigma: 0.5}
		if cfg.Scenario == "slow" {
			sp.median *= 3
			sp.sigma = 0.9
		}
		out[i] = sp
	}
	return out
}

type bucket struct {
	n, k       int
	lags       stats.Float64Data
	anchorLags stats.Float64Data
}

func (b *bucket) medianLag() float64      { return median(b.lags) }
func (b *bucket) meanLag() float64        { return mean(b.lags) }
func (b *bucket) anchorMedianLag() float64 { return median(b.anchorLags) }
func (b *bucket) anchorMeanLag() float64   { return mean(b.anchorLags) }

func median(xs stats.Float64Data) float64 {
	m, err := xs.Median()
	if err != nil {
		return 0
	}
	return math.Round(m*100) / 100
}

func mean(xs stats.Float64Data) float64 {
	m, err := xs.Mean()
	if err != nil {
		return 0
	}
	return math.Round(m*100) / 100
}

// Generate simulates a linear funnel. Every user entering on a cohort day walks
// the chain: at each step they convert with the step's probability after a
// log-normal lag, or drop out. Observations are cut off at cfg.Now.
func Generate(cfg GeneratorConfig) Output {
	if cfg.Now.IsZero() {
		cfg.Now = time.Now()
	}
	if cfg.Steps < 1 {
		cfg.Steps = 1
	}
	now := cohort.Day(cfg.Now)

	src := rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)
	rng := rand.New(src)
	arrivals := distuv.Poisson{Lambda: float64(cfg.Population), Src: src}

	steps := profiles(cfg)
	lags := make([]distuv.LogNormal, len(steps))
	for i, sp := range steps {
		lags[i] = distuv.LogNormal{Mu: math.Log(sp.median), Sigma: sp.sigma, Src: src}
	}

	// cohortBuckets[step][cohort index]; windowBuckets[step][arrival day]
	cohortBuckets := make([][]bucket, len(steps))
	windowBuckets := make([]map[int]*bucket, len(steps))
	for i := range steps {
		cohortBuckets[i] = make([]bucket, cfg.Days)
		windowBuckets[i] = make(map[int]*bucket)
	}

	for d := 0; d < cfg.Days; d++ {
		age := float64(cfg.Days - d)

		// Drift lowers conversion over time
		drift := 1.0
		if cfg.Scenario == "drift" {
			drift = 1 - 0.3*float64(d)/float64(cfg.Days)
		}

		entrants := int(arrivals.Rand())
		for u := 0; u < entrants; u++ {
			t := rng.Float64() // entry time within the day
			for i := range steps {
				if t > age {
					break
				}
				cb := &cohortBuckets[i][d]
				cb.n++
				if i > 0 {
					cb.anchorLags = append(cb.anchorLags, t)
				}

				arrivalDay := int(math.Floor(age - t)) // whole days before now
				wb := windowBuckets[i][arrivalDay]
				if wb == nil {
					wb = &bucket{}
					windowBuckets[i][arrivalDay] = wb
				}
				wb.n++

				if rng.Float64() >= steps[i].p*drift {
					break
				}
				lag := lags[i].Rand()
				if t+lag > age {
					break
				}
				cb.k++
				cb.lags = append(cb.lags, lag)
				wb.k++
				wb.lags = append(wb.lags, lag)
				t += lag
			}
		}
	}

	out := Output{Graph: &graph.Graph{Metadata: map[string]string{
		"generator": "funnelgen",
		"scenario":  cfg.Scenario,
		"seed":      fmt.Sprintf("%d", cfg.Seed),
	}}}

	for i := 0; i <= len(steps); i++ {
		id := fmt.Sprintf("step-%d", i)
		n := graph.Node{
			UUID:  uuid.NewSHA1(namespace, []byte(id)).String(),
			ID:    id,
			Label: fmt.Sprintf("Step %d", i),
		}
		if i == 0 {
			n.Entry = &graph.NodeEntry{IsStart: true}
		}
		out.Graph.Nodes = append(out.Graph.Nodes, n)
	}

	for i, sp := range steps {
		id := fmt.Sprintf("e%d", i+1)
		cohortRow := cohortRowFor(cohortBuckets[i], now, cfg.Days)
		windowRow := windowRowFor(windowBuckets[i], now, sp)

		ev := &graph.Evidence{N: cohortRow.N, K: cohortRow.K}
		if ev.N > 0 {
			ev.Mean = ev.K / ev.N
		}
		e := graph.Edge{
			UUID: uuid.NewSHA1(namespace, []byte(id)).String(),
			ID:   id,
			From: out.Graph.Nodes[i].ID,
			To:   out.Graph.Nodes[i+1].ID,
			P: &graph.ProbabilityParam{
				Mean:     ev.Mean,
				Evidence: ev,
				Latency:  &graph.LatencyConfig{LatencyParameter: true},
			},
		}
		if windowRow.Forecast != nil {
			e.P.Forecast = &graph.Forecast{Mean: *windowRow.Forecast}
		}
		out.Graph.Edges = append(out.Graph.Edges, e)

		out.Params = append(out.Params, store.ParamDocument{
			EdgeID: graph.EdgeID(&e),
			Values: []cohort.ParamValue{cohortRow, windowRow},
		})
	}
	return out
}

func cohortRowFor(buckets []bucket, now time.Time, days int) cohort.ParamValue {
	row := cohort.ParamValue{
		Mode:        cohort.ModeCohort,
		RetrievedAt: now.Format(time.RFC3339),
	}
	for d := range buckets {
		b := &buckets[d]
		row.Dates = append(row.Dates, now.AddDate(0, 0, -(days-d)).Format("2006-01-02"))
		row.NDaily = append(row.NDaily, b.n)
		row.KDaily = append(row.KDaily, b.k)
		row.MedianLagDays = append(row.MedianLagDays, b.medianLag())
		row.MeanLagDays = append(row.MeanLagDays, b.meanLag())
		row.AnchorMedianLagDays = append(row.AnchorMedianLagDays, b.anchorMedianLag())
		row.AnchorMeanLagDays = append(row.AnchorMeanLagDays, b.anchorMeanLag())
		row.N += float64(b.n)
		row.K += float64(b.k)
	}
	if row.N > 0 {
		row.Mean = row.K / row.N
	}
	return row
}

// windowRowFor reports arrivals by calendar day at the edge's source. The
// forecast is the conversion rate of arrivals older than the step's t95.
func windowRowFor(buckets map[int]*bucket, now time.Time, sp stepProfile) cohort.ParamValue {
	row := cohort.ParamValue{
		Mode:        cohort.ModeWindow,
		RetrievedAt: now.Format(time.RFC3339),
	}

	ages := make([]int, 0, len(buckets))
	for a := range buckets {
		ages = append(ages, a)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ages)))

	matureN, matureK := 0, 0
	for _, a := range ages {
		b := buckets[a]
		row.Dates = append(row.Dates, now.AddDate(0, 0, -(a+1)).Format("2006-01-02"))
		row.NDaily = append(row.NDaily, b.n)
		row.KDaily = append(row.KDaily, b.k)
		row.MedianLagDays = append(row.MedianLagDays, b.medianLag())
		row.MeanLagDays = append(row.MeanLagDays, b.meanLag())
		row.N += float64(b.n)
		row.K += float64(b.k)
		if float64(a) >= sp.t95() {
			matureN += b.n
			matureK += b.k
		}
	}
	if row.N > 0 {
		row.Mean = row.K / row.N
	}
	if matureN > 0 {
		f := float64(matureK) / float64(matureN)
		row.Forecast = &f
	}
	return row
}

// Save writes graph.json and one params/<edge>.json per edge under outDir.
func Save(outDir string, out Output) error {
	paramDir := filepath.Join(outDir, "params")
	if err := os.MkdirAll(paramDir, 0755); err != nil {
		return err
	}

	if err := store.SaveGraph(filepath.Join(outDir, "graph.json"), out.Graph); err != nil {
		return err
	}
	for i := range out.Params {
		name := fmt.Sprintf("%02d-%s.json", i+1, out.Graph.Edges[i].ID)
		if err := store.SaveParams(filepath.Join(paramDir, name), &out.Params[i]); err != nil {
			return err
		}
	}
	return nil
}
