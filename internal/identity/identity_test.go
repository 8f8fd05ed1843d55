package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/collabiora/companion/internal/types"
)

func TestResolvePrecedence(t *testing.T) {
	tests := []struct {
		name string
		kind types.FavoriteKind
		item types.Item
		want string
	}{
		{
			name: "expert prefers orcid over ids",
			kind: types.KindExpert,
			item: types.Item{ORCID: "0000-0002-1825-0097", ID: "42", AltID: "abc", Name: "Dr. Smith"},
			want: "0000-0002-1825-0097",
		},
		{
			name: "expert falls back to internal id",
			kind: types.KindExpert,
			item: types.Item{ID: "42", AltID: "abc", Name: "Dr. Smith"},
			want: "42",
		},
		{
			name: "expert falls back to alt id",
			kind: types.KindExpert,
			item: types.Item{AltID: "abc", Name: "Dr. Smith"},
			want: "abc",
		},
		{
			name: "expert name fallback is normalized",
			kind: types.KindExpert,
			item: types.Item{Name: "  Dr. Smith "},
			want: "dr. smith",
		},
		{
			name: "publication prefers pmid",
			kind: types.KindPublication,
			item: types.Item{PMID: "123", DOI: "10.1/x", ID: "7", Title: "X"},
			want: "123",
		},
		{
			name: "publication doi before internal id",
			kind: types.KindPublication,
			item: types.Item{DOI: "10.1/x", ID: "7", Title: "X"},
			want: "10.1/x",
		},
		{
			name: "trial prefers nct id",
			kind: types.KindTrial,
			item: types.Item{NCTID: "NCT001", ID: "9", Title: "Trial"},
			want: "NCT001",
		},
		{
			name: "collaborator uses person precedence",
			kind: types.KindCollaborator,
			item: types.Item{ORCID: "0000-0001-0000-0001", Name: "Jo"},
			want: "0000-0001-0000-0001",
		},
		{
			name: "nothing populated resolves empty",
			kind: types.KindPublication,
			item: types.Item{},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.kind, tt.item))
		})
	}
}

// The same logical item must resolve identically even when a later fetch
// populates extra lower-precedence fields.
func TestResolveStableAcrossFieldSubsets(t *testing.T) {
	full := types.Item{PMID: "123", ID: "internal-7", Title: "Gene therapy outcomes"}
	sparse := types.Item{PMID: "123"}
	assert.Equal(t, Resolve(types.KindPublication, full), Resolve(types.KindPublication, sparse))
}

func TestMatches(t *testing.T) {
	entry := types.FavoriteEntry{
		Kind:     types.KindPublication,
		Identity: "123",
		Payload:  types.Item{PMID: "123", Title: "Gene therapy outcomes"},
	}

	t.Run("identity equality", func(t *testing.T) {
		assert.True(t, Matches(entry, types.KindPublication, types.Item{PMID: "123"}))
	})

	t.Run("kind mismatch never matches", func(t *testing.T) {
		assert.False(t, Matches(entry, types.KindTrial, types.Item{PMID: "123"}))
	})

	t.Run("title fallback when identifiers disagree", func(t *testing.T) {
		other := types.Item{ID: "different-internal", Title: "Gene Therapy Outcomes"}
		assert.True(t, Matches(entry, types.KindPublication, other))
	})

	t.Run("no fallback when neither side has a label", func(t *testing.T) {
		anon := types.FavoriteEntry{Kind: types.KindPublication, Identity: "x", Payload: types.Item{}}
		assert.False(t, Matches(anon, types.KindPublication, types.Item{ID: "y"}))
	})

	t.Run("name-only expert matches itself", func(t *testing.T) {
		e := types.FavoriteEntry{
			Kind:     types.KindExpert,
			Identity: "dr. smith",
			Payload:  types.Item{Name: "Dr. Smith"},
		}
		assert.True(t, Matches(e, types.KindExpert, types.Item{Name: "Dr. Smith"}))
	})
}
