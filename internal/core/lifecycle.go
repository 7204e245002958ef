package core

import "strings"

// Membership sets for lifecycle classification. Types outside every set
// classify as unknown.
var (
	permanentTypes = toSet(
		"column", "beam", "slab", "foundation", "roof",
		"wall", "structure", "footing", "pile",
	)
	temporaryTypes = toSet(
		"scaffold", "formwork", "equipment", "fence",
		"barrier", "support", "temporary",
	)
	finishingTypes = toSet(
		"door", "window", "covering", "railing",
		"stair", "curtainwall", "panel", "floor",
	)
)

// Classify maps an element type to its lifecycle category. Case-insensitive,
// total: unmatched types yield LifecycleUnknown.
func Classify(elementType string) Lifecycle {
	t := strings.ToLower(elementType)
	if _, ok := permanentTypes[t]; ok {
		return LifecyclePermanent
	}
	if _, ok := temporaryTypes[t]; ok {
		return LifecycleTemporary
	}
	if _, ok := finishingTypes[t]; ok {
		return LifecycleFinishing
	}
	return LifecycleUnknown
}

func toSet(values ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
