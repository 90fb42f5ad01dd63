// Package taxonomy holds the closed vocabularies shared by the matching
// engines: entity types, industry tags, size and budget bands, grant
// preferences, geography and the keyword tables used for text matching.
package taxonomy

import (
	"sort"
	"strings"
)

// EntityType is the closed set of applicant organisation types.
type EntityType string

const (
	EntityNonprofit     EntityType = "nonprofit"
	EntitySmallBusiness EntityType = "small_business"
	EntityForProfit     EntityType = "for_profit"
	EntityIndividual    EntityType = "individual"
	EntityGovernment    EntityType = "government"
	EntityEducation     EntityType = "education"
	EntityTribal        EntityType = "tribal"
)

var AllEntityTypes = []EntityType{
	EntityNonprofit,
	EntitySmallBusiness,
	EntityForProfit,
	EntityIndividual,
	EntityGovernment,
	EntityEducation,
	EntityTribal,
}

var entityDisplayNames = map[EntityType]string{
	EntityNonprofit:     "Nonprofit",
	EntitySmallBusiness: "Small business",
	EntityForProfit:     "For-profit business",
	EntityIndividual:    "Individual",
	EntityGovernment:    "Government agency",
	EntityEducation:     "Educational institution",
	EntityTribal:        "Tribal organization",
}

func (e EntityType) Valid() bool {
	_, ok := entityDisplayNames[e]
	return ok
}

func (e EntityType) DisplayName() string {
	if name, ok := entityDisplayNames[e]; ok {
		return name
	}
	return string(e)
}

// ParseEntityType accepts a canonical value or any synonym.
func ParseEntityType(raw string) (EntityType, bool) {
	if e := EntityType(strings.TrimSpace(strings.ToLower(raw))); e.Valid() {
		return e, true
	}
	match := ClassifyEntityTag(raw)
	if match.Kind == TagRecognized {
		return match.Entity, true
	}
	return "", false
}

// entitySynonyms maps normalized free text found in grant eligibility tags
// onto the closed entity set.
var entitySynonyms = map[string]EntityType{
	"nonprofit":                    EntityNonprofit,
	"non profit":                   EntityNonprofit,
	"nonprofits":                   EntityNonprofit,
	"non profit organization":      EntityNonprofit,
	"nonprofit organization":       EntityNonprofit,
	"not for profit":               EntityNonprofit,
	"501(c)(3)":                    EntityNonprofit,
	"501c3":                        EntityNonprofit,
	"charity":                      EntityNonprofit,
	"charitable organization":      EntityNonprofit,
	"ngo":                          EntityNonprofit,
	"foundation":                   EntityNonprofit,
	"community based organization": EntityNonprofit,
	"faith based organization":     EntityNonprofit,

	"small business":      EntitySmallBusiness,
	"small businesses":    EntitySmallBusiness,
	"smb":                 EntitySmallBusiness,
	"startup":             EntitySmallBusiness,
	"startups":            EntitySmallBusiness,
	"sole proprietor":     EntitySmallBusiness,
	"sole proprietorship": EntitySmallBusiness,
	"microenterprise":     EntitySmallBusiness,
	"small enterprise":    EntitySmallBusiness,

	"for profit":              EntityForProfit,
	"for profit organization": EntityForProfit,
	"for profit business":     EntityForProfit,
	"business":                EntityForProfit,
	"businesses":              EntityForProfit,
	"company":                 EntityForProfit,
	"companies":               EntityForProfit,
	"corporation":             EntityForProfit,
	"commercial":              EntityForProfit,
	"private sector":          EntityForProfit,

	"individual":  EntityIndividual,
	"individuals": EntityIndividual,
	"person":      EntityIndividual,
	"researcher":  EntityIndividual,
	"artist":      EntityIndividual,
	"artists":     EntityIndividual,
	"student":     EntityIndividual,
	"students":    EntityIndividual,
	"teacher":     EntityIndividual,
	"teachers":    EntityIndividual,
	"fellow":      EntityIndividual,

	"government":               EntityGovernment,
	"state government":         EntityGovernment,
	"local government":         EntityGovernment,
	"county":                   EntityGovernment,
	"county government":        EntityGovernment,
	"city":                     EntityGovernment,
	"city government":          EntityGovernment,
	"municipality":             EntityGovernment,
	"municipal":                EntityGovernment,
	"public agency":            EntityGovernment,
	"special district":         EntityGovernment,
	"public housing authority": EntityGovernment,

	"education":                       EntityEducation,
	"educational institution":         EntityEducation,
	"school":                          EntityEducation,
	"schools":                         EntityEducation,
	"school district":                 EntityEducation,
	"school districts":                EntityEducation,
	"university":                      EntityEducation,
	"universities":                    EntityEducation,
	"college":                         EntityEducation,
	"colleges":                        EntityEducation,
	"higher education":                EntityEducation,
	"k 12":                            EntityEducation,
	"institution of higher education": EntityEducation,

	"tribal":              EntityTribal,
	"tribe":               EntityTribal,
	"tribes":              EntityTribal,
	"tribal government":   EntityTribal,
	"tribal organization": EntityTribal,
	"native american":     EntityTribal,
	"indian tribe":        EntityTribal,
	"alaska native":       EntityTribal,
}

// unrestrictedTags mean the grant does not restrict applicant type.
var unrestrictedTags = map[string]bool{
	"any":              true,
	"all":              true,
	"anyone":           true,
	"unrestricted":     true,
	"open to all":      true,
	"all applicants":   true,
	"all entity types": true,
	"no restrictions":  true,
}

// synonymKeysByLength is used for containment fallback; longest first so
// "small business" wins over "business".
var synonymKeysByLength = func() []string {
	keys := make([]string, 0, len(entitySynonyms))
	for k := range entitySynonyms {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}()

type TagKind int

const (
	TagUnknown TagKind = iota
	TagRecognized
	TagUnrestricted
)

type EntityTagMatch struct {
	Kind   TagKind
	Entity EntityType
}

// ClassifyEntityTag maps one free-text eligibility tag onto the entity set.
func ClassifyEntityTag(tag string) EntityTagMatch {
	norm := NormalizeText(tag)
	if norm == "" {
		return EntityTagMatch{Kind: TagUnknown}
	}
	if unrestrictedTags[norm] {
		return EntityTagMatch{Kind: TagUnrestricted}
	}
	if e := EntityType(strings.ReplaceAll(norm, " ", "_")); e.Valid() {
		return EntityTagMatch{Kind: TagRecognized, Entity: e}
	}
	if e, ok := entitySynonyms[norm]; ok {
		return EntityTagMatch{Kind: TagRecognized, Entity: e}
	}
	for _, key := range synonymKeysByLength {
		if ContainsKeyword(norm, key) {
			return EntityTagMatch{Kind: TagRecognized, Entity: entitySynonyms[key]}
		}
	}
	return EntityTagMatch{Kind: TagUnknown}
}

// EntityRestriction summarises a grant's eligibility tags.
type EntityRestriction struct {
	Allowed      []EntityType
	Unrestricted bool
	Unrecognized []string
}

// Restricted reports whether the tags limit applicant types at all.
func (r EntityRestriction) Restricted() bool {
	return !r.Unrestricted && len(r.Allowed) > 0
}

// ResolveEntityRestriction classifies every tag of a grant.
func ResolveEntityRestriction(tags []string) EntityRestriction {
	var r EntityRestriction
	seen := make(map[EntityType]bool)
	for _, tag := range tags {
		match := ClassifyEntityTag(tag)
		switch match.Kind {
		case TagUnrestricted:
			r.Unrestricted = true
		case TagRecognized:
			if !seen[match.Entity] {
				seen[match.Entity] = true
				r.Allowed = append(r.Allowed, match.Entity)
			}
		default:
			if strings.TrimSpace(tag) != "" {
				r.Unrecognized = append(r.Unrecognized, tag)
			}
		}
	}
	return r
}

// entityImplications lists restrictions an entity satisfies beyond its own
// type. A small business is a for-profit business; the reverse does not hold.
var entityImplications = map[EntityType][]EntityType{
	EntitySmallBusiness: {EntityForProfit},
}

// Satisfies reports whether an applicant of type e meets a restriction to allowed.
func (e EntityType) Satisfies(allowed EntityType) bool {
	if e == allowed {
		return true
	}
	for _, implied := range entityImplications[e] {
		if implied == allowed {
			return true
		}
	}
	return false
}

type entityPair struct{ a, b EntityType }

// EntityAdjacency holds symmetric partial-credit weights in (0,1) between
// entity types that are related but not interchangeable.
type EntityAdjacency map[entityPair]float64

// DefaultEntityAdjacency is the partial-credit table used by scoring.
func DefaultEntityAdjacency() EntityAdjacency {
	adj := EntityAdjacency{}
	adj.Set(EntitySmallBusiness, EntityForProfit, 0.7)
	adj.Set(EntityGovernment, EntityTribal, 0.5)
	adj.Set(EntityGovernment, EntityEducation, 0.5)
	adj.Set(EntityNonprofit, EntityEducation, 0.4)
	adj.Set(EntityNonprofit, EntityTribal, 0.4)
	return adj
}

func (a EntityAdjacency) Set(x, y EntityType, weight float64) {
	a[entityPair{x, y}] = weight
	a[entityPair{y, x}] = weight
}

// Weight returns the adjacency weight between x and y; 1 when equal.
func (a EntityAdjacency) Weight(x, y EntityType) float64 {
	if x == y {
		return 1
	}
	return a[entityPair{x, y}]
}
