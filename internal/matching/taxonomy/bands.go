package taxonomy

// SizeBand is the applicant's headcount band.
type SizeBand string

const (
	SizeSolo   SizeBand = "solo"
	SizeSmall  SizeBand = "small"
	SizeMedium SizeBand = "medium"
	SizeLarge  SizeBand = "large"
)

var sizeBandNames = map[SizeBand]string{
	SizeSolo:   "Solo (1 person)",
	SizeSmall:  "Small (2-49)",
	SizeMedium: "Medium (50-249)",
	SizeLarge:  "Large (250+)",
}

func (s SizeBand) Valid() bool {
	_, ok := sizeBandNames[s]
	return ok
}

func (s SizeBand) DisplayName() string {
	return displayOr(sizeBandNames[s], string(s))
}

// Stage is the applicant's organisational maturity.
type Stage string

const (
	StageIdea        Stage = "idea"
	StageEarly       Stage = "early"
	StageGrowth      Stage = "growth"
	StageEstablished Stage = "established"
)

var stageNames = map[Stage]string{
	StageIdea:        "Idea",
	StageEarly:       "Early stage",
	StageGrowth:      "Growth",
	StageEstablished: "Established",
}

func (s Stage) Valid() bool {
	_, ok := stageNames[s]
	return ok
}

func (s Stage) DisplayName() string {
	return displayOr(stageNames[s], string(s))
}

// BudgetBand is the applicant's annual operating budget.
type BudgetBand string

const (
	BudgetUnder50K  BudgetBand = "under_50k"
	Budget50KTo250K BudgetBand = "50k_250k"
	Budget250KTo1M  BudgetBand = "250k_1m"
	Budget1MTo5M    BudgetBand = "1m_5m"
	BudgetOver5M    BudgetBand = "over_5m"
)

// Range is an inclusive dollar range; Max of 0 means unbounded.
type Range struct {
	Min float64
	Max float64
}

func (r Range) Unbounded() bool {
	return r.Max == 0
}

// Overlaps reports whether [lo, hi] intersects r.
func (r Range) Overlaps(lo, hi float64) bool {
	if !r.Unbounded() && lo > r.Max {
		return false
	}
	return hi >= r.Min
}

var budgetBands = map[BudgetBand]Range{
	BudgetUnder50K:  {Min: 0, Max: 50_000},
	Budget50KTo250K: {Min: 50_000, Max: 250_000},
	Budget250KTo1M:  {Min: 250_000, Max: 1_000_000},
	Budget1MTo5M:    {Min: 1_000_000, Max: 5_000_000},
	BudgetOver5M:    {Min: 5_000_000},
}

func (b BudgetBand) Valid() bool {
	_, ok := budgetBands[b]
	return ok
}

func (b BudgetBand) Range() Range {
	return budgetBands[b]
}

// GrantSize is the preferred award size.
type GrantSize string

const (
	GrantSizeMicro  GrantSize = "micro"
	GrantSizeSmall  GrantSize = "small"
	GrantSizeMedium GrantSize = "medium"
	GrantSizeLarge  GrantSize = "large"
	GrantSizeMajor  GrantSize = "major"
	GrantSizeAny    GrantSize = "any"
)

// grantSizeOrder is used to find adjacent bands.
var grantSizeOrder = []GrantSize{GrantSizeMicro, GrantSizeSmall, GrantSizeMedium, GrantSizeLarge, GrantSizeMajor}

var grantSizes = map[GrantSize]Range{
	GrantSizeMicro:  {Min: 0, Max: 10_000},
	GrantSizeSmall:  {Min: 10_000, Max: 50_000},
	GrantSizeMedium: {Min: 50_000, Max: 250_000},
	GrantSizeLarge:  {Min: 250_000, Max: 1_000_000},
	GrantSizeMajor:  {Min: 1_000_000},
}

func (g GrantSize) Valid() bool {
	if g == GrantSizeAny {
		return true
	}
	_, ok := grantSizes[g]
	return ok
}

func (g GrantSize) Range() Range {
	return grantSizes[g]
}

// Adjacent returns the neighbouring size bands of g.
func (g GrantSize) Adjacent() []GrantSize {
	for i, s := range grantSizeOrder {
		if s != g {
			continue
		}
		var out []GrantSize
		if i > 0 {
			out = append(out, grantSizeOrder[i-1])
		}
		if i < len(grantSizeOrder)-1 {
			out = append(out, grantSizeOrder[i+1])
		}
		return out
	}
	return nil
}

// Timeline is how soon the applicant wants to apply.
type Timeline string

const (
	TimelineUrgent   Timeline = "urgent"
	TimelineSoon     Timeline = "soon"
	TimelineFlexible Timeline = "flexible"
)

// MaxDays is the longest deadline horizon that fits the timeline; 0 means any.
func (t Timeline) MaxDays() int {
	switch t {
	case TimelineUrgent:
		return 30
	case TimelineSoon:
		return 90
	}
	return 0
}

func (t Timeline) Valid() bool {
	return t == TimelineUrgent || t == TimelineSoon || t == TimelineFlexible
}

// Complexity is the application effort the applicant is willing to take on.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
	ComplexityAny      Complexity = "any"
)

func (c Complexity) Valid() bool {
	switch c {
	case ComplexitySimple, ComplexityModerate, ComplexityComplex, ComplexityAny:
		return true
	}
	return false
}

// GrantStatus is the listing status reported by the grant source.
type GrantStatus string

const (
	StatusOpen     GrantStatus = "open"
	StatusForecast GrantStatus = "forecasted"
	StatusClosed   GrantStatus = "closed"
	StatusArchived GrantStatus = "archived"
)

func (s GrantStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusForecast, StatusClosed, StatusArchived:
		return true
	}
	return false
}

// LocationType is the geographic scope of one grant location entry.
type LocationType string

const (
	LocationNational LocationType = "national"
	LocationState    LocationType = "state"
	LocationRegion   LocationType = "region"
)

func (l LocationType) Valid() bool {
	return l == LocationNational || l == LocationState || l == LocationRegion
}

func displayOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
