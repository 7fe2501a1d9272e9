// Package matcher assigns a query embedding to the closest enrolled
// identity, or to nobody when the closest one is too far away.
package matcher

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

// Result is the outcome of matching one face against the gallery.
// Distance is +Inf when the gallery is empty.
type Result struct {
	IdentityID int64
	Matched    bool
	Name       string
	Profile    domain.Profile
	Distance   float64
}

// Unknown is the result for a face nobody matched.
func Unknown(distance float64) Result {
	return Result{Name: domain.UnknownName, Distance: distance}
}

// Match returns the gallery entry with the smallest Euclidean distance to
// embedding when that distance is at most threshold. Ties go to the entry
// that comes first in gallery. Entries of a different dimension are skipped.
func Match(embedding []float64, gallery []domain.Identity, threshold float64) Result {
	best := -1
	bestDistance := math.Inf(1)

	for i := range gallery {
		if len(gallery[i].Embedding) != len(embedding) {
			continue
		}
		d := floats.Distance(embedding, gallery[i].Embedding, 2)
		if d < bestDistance {
			best = i
			bestDistance = d
		}
	}

	if best < 0 || bestDistance > threshold {
		return Unknown(bestDistance)
	}

	return Result{
		IdentityID: gallery[best].ID,
		Matched:    true,
		Name:       gallery[best].Name,
		Profile:    gallery[best].Profile,
		Distance:   bestDistance,
	}
}
