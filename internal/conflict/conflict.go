// Package conflict implements the conflict resolver (C8): detects
// co-presence of mutually exclusive provider-payload fields and keeps
// exactly one per group.
package conflict

import (
	"fmt"

	"specado/internal/jsonvalue"
	"specado/internal/lossiness"
	"specado/internal/path"
	"specado/internal/specs"
)

// Run resolves every group in model.Constraints.MutuallyExclusive against
// payload, in group-declaration order, then intra-group declaration order
// for losers (spec section 4.8, 5).
func Run(model *specs.ModelSpec, payload *jsonvalue.Value, tr *lossiness.Tracker) error {
	h := tr.BeginTiming()
	defer tr.EndTiming(h)

	for _, group := range model.Constraints.MutuallyExclusive {
		if err := resolveGroup(model, group, model.Constraints.ResolutionPreferences, payload, tr); err != nil {
			return err
		}
	}
	return nil
}

// resolveGroup reads group members out of payload. Members are canonical
// PromptSpec paths (spec section 3.2; validator/providerspec.go enforces
// this), but by the time C8 runs payload is keyed entirely by provider
// paths, since C7's mapper already projected uniform onto it — so each
// canonical member is first translated via model.Mappings.Paths, the same
// lookup mapper.providerPathFor uses, before it is read or deleted.
func resolveGroup(model *specs.ModelSpec, group, preferences []string, payload *jsonvalue.Value, tr *lossiness.Tracker) error {
	present := make([]string, 0, len(group))
	values := make(map[string]jsonvalue.Value, len(group))
	for _, canonical := range group {
		providerPath := providerPathFor(model, canonical)
		p, err := path.Parse(providerPath)
		if err != nil {
			return fmt.Errorf("mutually_exclusive entry %q: %w", canonical, err)
		}
		v, found, err := path.Read(*payload, p)
		if err != nil {
			return fmt.Errorf("reading %q: %w", canonical, err)
		}
		if found && !v.IsNull() {
			present = append(present, canonical)
			values[canonical] = v
		}
	}
	if len(present) <= 1 {
		return nil
	}

	winner := pickWinner(present, preferences)
	for _, loser := range present {
		if loser == winner {
			continue
		}
		providerPath := providerPathFor(model, loser)
		p, err := path.Parse(providerPath)
		if err != nil {
			return fmt.Errorf("mutually_exclusive entry %q: %w", loser, err)
		}
		before := values[loser]
		if _, _, err := path.Delete(payload, p); err != nil {
			return fmt.Errorf("deleting %q: %w", loser, err)
		}
		after := jsonvalue.Null()
		tr.Record(lossiness.RecordInput{
			Code:          lossiness.CodeConflict,
			Path:          loser,
			Message:       fmt.Sprintf("resolved in favor of %q", winner),
			Before:        &before,
			After:         &after,
			Severity:      lossiness.SeverityWarning,
			OperationType: lossiness.OpTypeConversion,
			Metadata: map[string]string{
				"group":  fmt.Sprint(group),
				"winner": winner,
			},
		})
	}
	return nil
}

// providerPathFor looks up canonical's provider path in model.Mappings.Paths,
// mirroring mapper.providerPathFor. A mutually_exclusive member with no
// mapping entry is assumed to already be a provider path (e.g. when the
// ProviderSpec author wrote the provider's own field name directly).
func providerPathFor(model *specs.ModelSpec, canonical string) string {
	for _, pm := range model.Mappings.Paths {
		if pm.Canonical == canonical {
			return pm.Provider
		}
	}
	return canonical
}

// pickWinner scans preferences in order; the first preferred path that is
// present in the group wins. If no preference is present, the first
// present path in the group's own declaration order wins (stable tiebreak).
func pickWinner(present, preferences []string) string {
	presentSet := make(map[string]bool, len(present))
	for _, p := range present {
		presentSet[p] = true
	}
	for _, pref := range preferences {
		if presentSet[pref] {
			return pref
		}
	}
	return present[0]
}
