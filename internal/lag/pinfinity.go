package lag

import "math"

// EstimatePInfinity estimates the asymptotic conversion rate from cohorts old
// enough to be mature (age >= t95), weighting recent cohorts more heavily with
// w = exp(-age / halfLifeDays). ok is false when no mature population exists.
func EstimatePInfinity(cohorts []CohortData, t95, halfLifeDays float64) (float64, bool) {
	if halfLifeDays <= 0 {
		return 0, false
	}

	sumWK := 0.0
	sumWN := 0.0
	for _, c := range cohorts {
		if c.Age < t95 || c.N <= 0 {
			continue
		}
		w := math.Exp(-c.Age / halfLifeDays)
		sumWK += w * float64(c.K)
		sumWN += w * float64(c.N)
	}

	if sumWN <= 0 {
		return 0, false
	}
	return sumWK / sumWN, true
}

// EvidenceRate is the raw k/n ratio across cohorts with no time adjustment.
func EvidenceRate(cohorts []CohortData) float64 {
	n, k := 0, 0
	for _, c := range cohorts {
		n += c.N
		k += c.K
	}
	if n <= 0 {
		return 0
	}
	return float64(k) / float64(n)
}

// TotalPopulation sums n across cohorts.
func TotalPopulation(cohorts []CohortData) int {
	total := 0
	for _, c := range cohorts {
		total += c.N
	}
	return total
}

// TotalSuccesses sums k across cohorts.
func TotalSuccesses(cohorts []CohortData) int {
	total := 0
	for _, c := range cohorts {
		total += c.K
	}
	return total
}
