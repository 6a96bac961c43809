package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hashCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog(
		Definition{Name: "Hash", Category: CategoryVertex, Pattern: `[0-9a-fA-F]{32,64}`},
		Definition{Name: "MD5 Hash", Category: CategoryVertex, Super: "Hash", Expr: `size(text) == 32`},
		Definition{Name: "Word", Category: CategoryVertex, Pattern: `\w+`},
		Definition{Name: "Token", Category: CategoryVertex, Pattern: `\w+`},
		Definition{Name: "Loud", Category: CategoryVertex, Pattern: `[A-Z]+`, Priority: 5},
		Definition{Name: "Correlation", Category: CategoryTransaction},
	)
	require.NoError(t, err)
	return c
}

func TestNewCatalog_Errors(t *testing.T) {
	tests := []struct {
		name    string
		defs    []Definition
		wantErr error
	}{
		{
			name:    "empty name",
			defs:    []Definition{{Category: CategoryVertex}},
			wantErr: ErrInvalidDefinition,
		},
		{
			name:    "bad category",
			defs:    []Definition{{Name: "X", Category: "edge"}},
			wantErr: ErrInvalidDefinition,
		},
		{
			name: "duplicate ignoring case",
			defs: []Definition{
				{Name: "Person", Category: CategoryVertex},
				{Name: "person", Category: CategoryVertex},
			},
			wantErr: ErrDuplicateType,
		},
		{
			name:    "unknown super",
			defs:    []Definition{{Name: "MD5", Category: CategoryVertex, Super: "Hash"}},
			wantErr: ErrUnknownSuper,
		},
		{
			name: "super in other category",
			defs: []Definition{
				{Name: "Hash", Category: CategoryTransaction},
				{Name: "MD5", Category: CategoryVertex, Super: "Hash"},
			},
			wantErr: ErrUnknownSuper,
		},
		{
			name: "cycle",
			defs: []Definition{
				{Name: "A", Category: CategoryVertex, Super: "B"},
				{Name: "B", Category: CategoryVertex, Super: "A"},
			},
			wantErr: ErrInvalidDefinition,
		},
		{
			name:    "bad pattern",
			defs:    []Definition{{Name: "X", Category: CategoryVertex, Pattern: `(`}},
			wantErr: ErrInvalidDefinition,
		},
		{
			name:    "non-bool expression",
			defs:    []Definition{{Name: "X", Category: CategoryVertex, Expr: `size(text)`}},
			wantErr: ErrInvalidDefinition,
		},
		{
			name:    "expression does not compile",
			defs:    []Definition{{Name: "X", Category: CategoryVertex, Expr: `text ==`}},
			wantErr: ErrInvalidDefinition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalog(tt.defs...)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNewCatalog_ForwardSuper(t *testing.T) {
	c, err := NewCatalog(
		Definition{Name: "SHA1 Hash", Category: CategoryVertex, Super: "Hash"},
		Definition{Name: "Hash", Category: CategoryVertex},
	)
	require.NoError(t, err)

	sha, ok := c.Lookup(CategoryVertex, "sha1 hash")
	require.True(t, ok)
	hash, ok := c.Lookup(CategoryVertex, "Hash")
	require.True(t, ok)

	assert.Same(t, hash, sha.Super())
	assert.True(t, sha.IsSubtypeOf(hash))
	assert.False(t, hash.IsSubtypeOf(sha))
	assert.False(t, hash.IsSubtypeOf(hash))
}

func TestCatalog_Match(t *testing.T) {
	c := hashCatalog(t)

	t.Run("subtype dominates ancestor", func(t *testing.T) {
		md5 := "d41d8cd98f00b204e9800998ecf8427e"
		matches := c.Match(CategoryVertex, md5)
		require.Len(t, matches, 4)
		assert.Equal(t, "MD5 Hash", matches[0].Name)
		assert.Equal(t, "Hash", matches[1].Name)
		assert.Equal(t, "Word", matches[2].Name)
		assert.Equal(t, "Token", matches[3].Name)
	})

	t.Run("priority beats registration order", func(t *testing.T) {
		matches := c.Match(CategoryVertex, "ABC")
		require.Len(t, matches, 3)
		assert.Equal(t, "Loud", matches[0].Name)
		assert.Equal(t, "Word", matches[1].Name)
		assert.Equal(t, "Token", matches[2].Name)
	})

	t.Run("registration order breaks ties", func(t *testing.T) {
		best, ok := c.BestMatch(CategoryVertex, "abc")
		require.True(t, ok)
		assert.Equal(t, "Word", best.Name)
	})

	t.Run("name matches ignoring case", func(t *testing.T) {
		best, ok := c.BestMatch(CategoryTransaction, "  correlation ")
		require.True(t, ok)
		assert.Equal(t, "Correlation", best.Name)
	})

	t.Run("no duplicates", func(t *testing.T) {
		// "Hash" is accepted by its name and by the Word pattern.
		matches := c.Match(CategoryVertex, "Hash")
		seen := map[*SemanticType]bool{}
		for _, m := range matches {
			assert.False(t, seen[m], "duplicate %s", m.Name)
			seen[m] = true
		}
	})

	t.Run("unknown category is empty", func(t *testing.T) {
		assert.Empty(t, c.Match("edge", "abc"))
		_, ok := c.BestMatch("edge", "abc")
		assert.False(t, ok)
	})

	t.Run("nothing matches", func(t *testing.T) {
		_, ok := c.BestMatch(CategoryVertex, "!!")
		assert.False(t, ok)
	})

	t.Run("nil catalog", func(t *testing.T) {
		var nilCatalog *Catalog
		assert.Empty(t, nilCatalog.Match(CategoryVertex, "abc"))
		assert.Zero(t, nilCatalog.Len())
	})
}

func TestCatalog_BestMatchDeterministic(t *testing.T) {
	c := Default()
	for _, text := range []string{"alice@example.com", "10.0.0.1", "d41d8cd98f00b204e9800998ecf8427e", "Person", "Japan"} {
		first, ok := c.BestMatch(CategoryVertex, text)
		require.True(t, ok, text)
		for range 20 {
			again, _ := c.BestMatch(CategoryVertex, text)
			assert.Same(t, first, again, text)
		}
	}
}

func TestCompare_StrictTotalOrder(t *testing.T) {
	c := Default()
	all := c.Types(CategoryVertex)
	for _, a := range all {
		assert.Zero(t, Compare(a, a))
		for _, b := range all {
			if a == b {
				continue
			}
			ab, ba := Compare(a, b), Compare(b, a)
			assert.NotZero(t, ab, "%s vs %s", a, b)
			assert.Equal(t, ab < 0, ba > 0, "%s vs %s", a, b)
			if a.IsSubtypeOf(b) {
				assert.Negative(t, ab, "%s should dominate %s", a, b)
			}
		}
	}
}

func TestCatalog_Resolve(t *testing.T) {
	c := hashCatalog(t)

	known := c.Resolve(CategoryVertex, "md5 hash")
	assert.False(t, known.Incomplete)
	assert.Equal(t, "MD5 Hash", known.Name)

	unknown := c.Resolve(CategoryVertex, " Starship ")
	assert.True(t, unknown.Incomplete)
	assert.Equal(t, "Starship", unknown.Name)
	assert.Equal(t, CategoryVertex, unknown.Category)

	// Resolve never registers the new type.
	_, ok := c.Lookup(CategoryVertex, "Starship")
	assert.False(t, ok)
	assert.Empty(t, c.Match(CategoryVertex, "Starship!"))
}

func TestCatalog_NamesAndTypes(t *testing.T) {
	c := hashCatalog(t)

	assert.Equal(t, []string{"Hash", "Loud", "MD5 Hash", "Token", "Word"}, c.Names(CategoryVertex))
	assert.Equal(t, []string{"Correlation"}, c.Names(CategoryTransaction))
	assert.Equal(t, 6, c.Len())

	types := c.Types(CategoryVertex)
	require.Len(t, types, 5)
	assert.Equal(t, "Hash", types[0].Name)
	types[0] = nil
	assert.NotNil(t, c.Types(CategoryVertex)[0], "Types must return a copy")
}

func TestCatalog_TypesAreShared(t *testing.T) {
	c := hashCatalog(t)

	looked, ok := c.Lookup(CategoryVertex, "MD5 Hash")
	require.True(t, ok)
	best, ok := c.BestMatch(CategoryVertex, "d41d8cd98f00b204e9800998ecf8427e")
	require.True(t, ok)
	assert.Same(t, looked, best)
	assert.Same(t, looked, c.Types(CategoryVertex)[1])

	// Incomplete types are built per call and never shared.
	a := c.Resolve(CategoryVertex, "Starship")
	b := c.Resolve(CategoryVertex, "Starship")
	assert.NotSame(t, a, b)
	a.Name = "Changed"
	assert.Equal(t, "Starship", c.Resolve(CategoryVertex, "Starship").Name)
}
