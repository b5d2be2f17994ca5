// Package referent manages the referent-influence weights of a profile:
// named external style references blended into generation at bounded
// weights. The user's own voice always keeps at least half the total.
package referent

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MrWong99/voxprint/pkg/voice"
)

const (
	// MaxInfluences bounds the number of named influences per profile.
	MaxInfluences = 3

	// MinUserWeight is the floor for the user's own voice.
	MinUserWeight = 50

	// totalWeight is what the user weight plus all influences must sum to.
	totalWeight = 100
)

// ErrUserWeightFloor is returned when an edit would push the user's own
// voice below [MinUserWeight].
var ErrUserWeightFloor = errors.New("referent: user weight cannot fall below 50")

// Default returns the influence set of a fresh profile: the user's own
// voice at full weight, no influences.
func Default() voice.ReferentInfluences {
	return voice.ReferentInfluences{UserWeight: totalWeight, Influences: []voice.ReferentInfluence{}}
}

// Validate checks the structural invariants: user weight in [50, 100], at
// most [MaxInfluences] positively weighted influences with distinct
// case-insensitive names, and all weights summing to exactly 100.
func Validate(ri voice.ReferentInfluences) error {
	if ri.UserWeight < MinUserWeight || ri.UserWeight > totalWeight {
		return fmt.Errorf("referent: user weight %d outside [%d, %d]", ri.UserWeight, MinUserWeight, totalWeight)
	}
	if len(ri.Influences) > MaxInfluences {
		return fmt.Errorf("referent: %d influences exceeds the maximum of %d", len(ri.Influences), MaxInfluences)
	}

	sum := ri.UserWeight
	seen := make(map[string]struct{}, len(ri.Influences))
	for _, inf := range ri.Influences {
		name := strings.TrimSpace(inf.Name)
		if name == "" {
			return errors.New("referent: influence name must not be empty")
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("referent: duplicate influence %q", inf.Name)
		}
		seen[key] = struct{}{}
		if inf.Weight <= 0 {
			return fmt.Errorf("referent: influence %q must have a positive weight, got %d", inf.Name, inf.Weight)
		}
		sum += inf.Weight
	}
	if sum != totalWeight {
		return fmt.Errorf("referent: weights sum to %d, want exactly %d", sum, totalWeight)
	}
	return nil
}

// Add returns a copy of ri with a new influence, its weight taken from the
// user's share. Fails if the name collides, the influence list is full, or
// the user weight would drop below the floor.
func Add(ri voice.ReferentInfluences, name string, weight int) (voice.ReferentInfluences, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return ri, errors.New("referent: influence name must not be empty")
	}
	if weight <= 0 {
		return ri, fmt.Errorf("referent: influence weight must be positive, got %d", weight)
	}
	if len(ri.Influences) >= MaxInfluences {
		return ri, fmt.Errorf("referent: already at the maximum of %d influences", MaxInfluences)
	}
	if indexOf(ri.Influences, name) >= 0 {
		return ri, fmt.Errorf("referent: influence %q already exists", name)
	}
	if ri.UserWeight-weight < MinUserWeight {
		return ri, fmt.Errorf("%w: adding %q at weight %d leaves %d", ErrUserWeightFloor, name, weight, ri.UserWeight-weight)
	}

	out := clone(ri)
	out.UserWeight -= weight
	out.Influences = append(out.Influences, voice.ReferentInfluence{Name: name, Weight: weight})
	return out, nil
}

// Remove returns a copy of ri without the named influence, its weight
// returned to the user's share. Removing an unknown name is not an error.
func Remove(ri voice.ReferentInfluences, name string) voice.ReferentInfluences {
	i := indexOf(ri.Influences, name)
	if i < 0 {
		return clone(ri)
	}

	out := clone(ri)
	out.UserWeight += out.Influences[i].Weight
	out.Influences = append(out.Influences[:i], out.Influences[i+1:]...)
	return out
}

// SetWeight returns a copy of ri with the named influence's weight changed,
// the difference absorbed by the user's share. A weight of zero removes the
// influence.
func SetWeight(ri voice.ReferentInfluences, name string, weight int) (voice.ReferentInfluences, error) {
	if weight == 0 {
		return Remove(ri, name), nil
	}
	if weight < 0 {
		return ri, fmt.Errorf("referent: influence weight must not be negative, got %d", weight)
	}
	i := indexOf(ri.Influences, name)
	if i < 0 {
		return Add(ri, name, weight)
	}

	newUserWeight := ri.UserWeight + ri.Influences[i].Weight - weight
	if newUserWeight < MinUserWeight {
		return ri, fmt.Errorf("%w: setting %q to %d leaves %d", ErrUserWeightFloor, name, weight, newUserWeight)
	}
	if newUserWeight > totalWeight {
		return ri, fmt.Errorf("referent: setting %q to %d exceeds the total", name, weight)
	}

	out := clone(ri)
	out.UserWeight = newUserWeight
	out.Influences[i].Weight = weight
	return out, nil
}

func indexOf(influences []voice.ReferentInfluence, name string) int {
	for i, inf := range influences {
		if strings.EqualFold(strings.TrimSpace(inf.Name), strings.TrimSpace(name)) {
			return i
		}
	}
	return -1
}

func clone(ri voice.ReferentInfluences) voice.ReferentInfluences {
	out := voice.ReferentInfluences{
		UserWeight: ri.UserWeight,
		Influences: make([]voice.ReferentInfluence, len(ri.Influences)),
	}
	copy(out.Influences, ri.Influences)
	return out
}
