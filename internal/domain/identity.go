package domain

import (
	"fmt"
	"strings"
	"time"
)

// EmbeddingDimension is the length of every face embedding produced by the
// detection model and stored in the gallery.
const EmbeddingDimension = 128

// UnknownName labels a face that did not match any enrolled identity.
const UnknownName = "Unknown"

// Profile is the investor profile attached to an identity.
type Profile string

const (
	ProfileConservative Profile = "Conservative"
	ProfileModerate     Profile = "Moderate"
	ProfileAggressive   Profile = "Aggressive"
)

// Profiles lists the closed set in menu order.
var Profiles = []Profile{ProfileConservative, ProfileModerate, ProfileAggressive}

func (p Profile) Valid() bool {
	for _, known := range Profiles {
		if p == known {
			return true
		}
	}
	return false
}

// ParseProfile accepts a menu number (1-3) or a profile name, case-insensitive.
func ParseProfile(s string) (Profile, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "1":
		return ProfileConservative, nil
	case "2":
		return ProfileModerate, nil
	case "3":
		return ProfileAggressive, nil
	}
	for _, p := range Profiles {
		if strings.EqualFold(s, string(p)) {
			return p, nil
		}
	}
	return "", ErrInvalidInput.WithError(fmt.Errorf("unknown profile %q", s))
}

// WelcomeMessage is the greeting shown for an accepted match.
func (p Profile) WelcomeMessage() string {
	switch p {
	case ProfileConservative:
		return "Welcome, conservative investor! Focus on safety."
	case ProfileModerate:
		return "Welcome, moderate investor! Balanced risk and return."
	case ProfileAggressive:
		return "Welcome, aggressive investor! High-risk opportunities."
	default:
		return "Access granted."
	}
}

// Identity is one enrolled person. The embedding is captured once at
// enrollment and never updated.
type Identity struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Profile   Profile   `json:"profile"`
	Embedding []float64 `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the enrollment invariants and normalizes the name.
func (i *Identity) Validate() error {
	i.Name = strings.TrimSpace(i.Name)
	if i.Name == "" {
		return ErrInvalidInput.WithError(fmt.Errorf("name is required"))
	}
	if !i.Profile.Valid() {
		return ErrInvalidInput.WithError(fmt.Errorf("unknown profile %q", i.Profile))
	}
	if len(i.Embedding) != EmbeddingDimension {
		return ErrInvalidEmbedding.WithError(fmt.Errorf("got %d dimensions", len(i.Embedding)))
	}
	return nil
}

// Candidate is one row of an indexed nearest-neighbour search.
type Candidate struct {
	IdentityID int64   `json:"identity_id"`
	Name       string  `json:"name"`
	Profile    Profile `json:"profile"`
	Distance   float64 `json:"distance"`
}
