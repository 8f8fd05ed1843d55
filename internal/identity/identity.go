// Package identity derives stable deduplication keys for favoritable
// items. Each kind has a fixed field-precedence table so the same logical
// item resolves to the same key no matter which identifier fields a given
// fetch happened to populate.
package identity

import (
	"strings"

	"github.com/collabiora/companion/internal/types"
)

// Precedence tables, highest first:
//
//	expert, collaborator:  orcid > id > _id > name
//	publication:           pmid > doi > id > title
//	trial:                 nctId > id > title
//
// Name/title keys are lowercased and trimmed so records from different
// sources that only agree on the display string still collide.

// Resolve returns the deduplication key for item under kind, or "" when
// no usable field is populated.
func Resolve(kind types.FavoriteKind, item types.Item) string {
	switch kind {
	case types.KindExpert, types.KindCollaborator:
		return firstOf(item.ORCID, item.ID, item.AltID, normalized(item.Name))
	case types.KindPublication:
		return firstOf(item.PMID, item.DOI, item.ID, normalized(item.Title))
	case types.KindTrial:
		return firstOf(item.NCTID, item.ID, normalized(item.Title))
	}
	return ""
}

// Matches reports whether entry refers to the same logical item as
// (kind, item). Identity equality decides; display-string equality is a
// tolerated fallback when both sides carry one, because heterogeneous
// sources sometimes disagree on every identifier. That fallback is a
// heuristic, not a key: two distinct items sharing a title will match.
func Matches(entry types.FavoriteEntry, kind types.FavoriteKind, item types.Item) bool {
	if entry.Kind != kind {
		return false
	}
	id := Resolve(kind, item)
	if id != "" && entry.Identity == id {
		return true
	}
	if label := normalized(displayLabel(kind, item)); label != "" {
		if label == normalized(displayLabel(kind, entry.Payload)) {
			return true
		}
	}
	return false
}

func displayLabel(kind types.FavoriteKind, item types.Item) string {
	switch kind {
	case types.KindExpert, types.KindCollaborator:
		return item.Name
	default:
		return item.Title
	}
}

func firstOf(candidates ...string) string {
	for _, c := range candidates {
		if strings.TrimSpace(c) != "" {
			return strings.TrimSpace(c)
		}
	}
	return ""
}

func normalized(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
