package models

import (
	"encoding/json"
	"fmt"
)

// SelectionKind discriminates the variants of a ModelSelection
type SelectionKind int

// Selection variants
const (
	// SelectionSingle targets one provider
	SelectionSingle SelectionKind = iota
	// SelectionAll targets every known provider in canonical order
	SelectionAll
	// SelectionList targets an explicit list of providers in stored order
	SelectionList
)

// ModelSelection is a tagged variant describing the default fan-out for a
// session when a user turn carries no explicit mention. The zero value is a
// single selection with no provider, which yields an empty target set.
type ModelSelection struct {
	kind SelectionKind
	ids  []string
}

// SingleSelection targets exactly one provider
func SingleSelection(providerID string) ModelSelection {
	if providerID == "" {
		return ModelSelection{kind: SelectionSingle}
	}
	return ModelSelection{kind: SelectionSingle, ids: []string{providerID}}
}

// AllSelection targets every known provider
func AllSelection() ModelSelection {
	return ModelSelection{kind: SelectionAll}
}

// ListSelection targets the given providers in order
func ListSelection(providerIDs ...string) ModelSelection {
	ids := make([]string, len(providerIDs))
	copy(ids, providerIDs)
	return ModelSelection{kind: SelectionList, ids: ids}
}

// Kind returns the variant tag for exhaustive switching
func (s ModelSelection) Kind() SelectionKind {
	return s.kind
}

// Providers returns the provider ids carried by the selection. It is empty
// for the all variant; callers resolve that against the provider registry.
func (s ModelSelection) Providers() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// IsZero reports whether the selection carries no routing information
func (s ModelSelection) IsZero() bool {
	return s.kind == SelectionSingle && len(s.ids) == 0
}

// MarshalJSON encodes the selection in the wire format used by persisted
// records: "all", a single provider id string, or an array of ids.
func (s ModelSelection) MarshalJSON() ([]byte, error) {
	switch s.kind {
	case SelectionAll:
		return json.Marshal("all")
	case SelectionList:
		return json.Marshal(s.ids)
	default:
		if len(s.ids) == 0 {
			return json.Marshal("")
		}
		return json.Marshal(s.ids[0])
	}
}

// UnmarshalJSON decodes both legacy string and array forms
func (s *ModelSelection) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single == "all" {
			*s = AllSelection()
		} else {
			*s = SingleSelection(single)
		}
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*s = ListSelection(list...)
		return nil
	}

	return fmt.Errorf("model selection must be a string or an array of strings")
}

// String renders the selection for logs
func (s ModelSelection) String() string {
	switch s.kind {
	case SelectionAll:
		return "all"
	case SelectionList:
		return fmt.Sprintf("%v", s.ids)
	default:
		if len(s.ids) == 0 {
			return "none"
		}
		return s.ids[0]
	}
}
