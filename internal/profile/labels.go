package profile

import "math"

// clusterLabel names a cluster from where its centroid sits relative to the
// set mean on three axes: loudness energy, spectral brightness, and tempo.
//
// Quadrants:
//   - loud + bright  = "Loud & Bright"
//   - loud + dark    = "Loud & Warm"
//   - quiet + bright = "Airy & Dynamic"
//   - quiet + dark   = "Deep & Mellow"
//
// A tempo modifier is appended when the cluster is clearly faster or slower
// than the set as a whole.
func clusterLabel(centroid map[string]float64, prof *Profile) string {
	loud := zAgainst(centroid, prof, "integrated_lufs") > 0
	bright := zAgainst(centroid, prof, "spectral_centroid_hz") > 0

	var base string
	switch {
	case loud && bright:
		base = "Loud & Bright"
	case loud && !bright:
		base = "Loud & Warm"
	case !loud && bright:
		base = "Airy & Dynamic"
	default:
		base = "Deep & Mellow"
	}

	switch tempoZ := zAgainst(centroid, prof, "bpm"); {
	case tempoZ > 0.75:
		return base + " (Uptempo)"
	case tempoZ < -0.75:
		return base + " (Downtempo)"
	default:
		return base
	}
}

func zAgainst(centroid map[string]float64, prof *Profile, metric string) float64 {
	stats, ok := prof.Stats[metric]
	if !ok {
		return 0
	}
	return (centroid[metric] - stats.Mean) / math.Max(stats.StdDev, StdDevFloor)
}
