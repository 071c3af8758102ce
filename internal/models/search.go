package models

// SearchKind selects the node label a search runs over.
type SearchKind string

const (
	SearchUsers SearchKind = "user"
	SearchTags  SearchKind = "tag"
	SearchPosts SearchKind = "post"
)

// Valid reports whether k is searchable.
func (k SearchKind) Valid() bool {
	return k == SearchUsers || k == SearchTags || k == SearchPosts
}

// MatchMode is one tier of the search cascade.
type MatchMode string

const (
	MatchExact     MatchMode = "exact"
	MatchPrefix    MatchMode = "prefix"
	MatchSubstring MatchMode = "substring"
)

// MatchTiers is the cascade order.
var MatchTiers = []MatchMode{MatchExact, MatchPrefix, MatchSubstring}

// SearchHit is one search result. Key is the stringified id for users and
// posts and the name for tags.
type SearchHit struct {
	Kind     SearchKind `json:"kind"`
	Key      string     `json:"key"`
	ID       uint       `json:"id,omitempty"`
	Label    string     `json:"label"`
	Tier     MatchMode  `json:"tier"`
	Unlisted bool       `json:"unlisted,omitempty"`
}
