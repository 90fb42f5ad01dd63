package taxonomy

// Scope is the geographic reach assumed for a grant.
type Scope string

const (
	ScopeNational Scope = "national"
	ScopeLocal    Scope = "local"
)

// Fail-open policies. Each names what happens when data needed by a rule is
// missing, so the behaviour can be looked up rather than inferred.
const (
	// A grant with no locations is treated as available nationally.
	DefaultScopeWhenUnspecified = ScopeNational

	// A profile without industry tags passes the relevance check; confidence drops to low.
	AutoPassEmptyIndustryTags = true

	// A grant whose eligibility tags are all unrecognised passes the entity check with a warning.
	PassUnrecognizedEntityTags = true

	// A profile without a state cannot satisfy state- or region-only grants.
	RequireStateForLocalGrants = true

	// Listings without a quality score are treated as this score.
	DefaultQualityScore = 70
)
