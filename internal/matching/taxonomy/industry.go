package taxonomy

import "strings"

// IndustryTag is the closed set of focus areas a profile may select.
type IndustryTag string

const (
	IndustryAgriculture         IndustryTag = "agriculture"
	IndustryEducation           IndustryTag = "education"
	IndustryHealth              IndustryTag = "health"
	IndustryTechnology          IndustryTag = "technology"
	IndustryEnvironment         IndustryTag = "environment"
	IndustryArts                IndustryTag = "arts"
	IndustryCommunity           IndustryTag = "community"
	IndustryYouth               IndustryTag = "youth"
	IndustryHousing             IndustryTag = "housing"
	IndustryEconomicDevelopment IndustryTag = "economic_development"
	IndustryResearch            IndustryTag = "research"
	IndustryEnergy              IndustryTag = "energy"
	IndustryWorkforce           IndustryTag = "workforce"
	IndustryPublicSafety        IndustryTag = "public_safety"
)

type industryInfo struct {
	display  string
	keywords []string
}

// industries holds the display name and keyword expansion for each tag.
// Expansions feed both the eligibility relevance check and scoring.
var industries = map[IndustryTag]industryInfo{
	IndustryAgriculture: {
		display: "Agriculture",
		keywords: []string{
			"agriculture", "agricultural", "farm", "farming", "ranch", "crop",
			"livestock", "food system", "specialty crop", "agribusiness",
			"aquaculture", "orchard", "dairy", "soil health", "beginning farmer",
		},
	},
	IndustryEducation: {
		display: "Education",
		keywords: []string{
			"education", "educational", "school", "student", "teacher", "literacy",
			"stem education", "curriculum", "classroom", "scholarship",
			"tutoring", "early childhood", "higher education",
		},
	},
	IndustryHealth: {
		display: "Health",
		keywords: []string{
			"health", "healthcare", "medical", "clinic", "hospital", "mental health",
			"behavioral health", "wellness", "disease", "public health",
			"nutrition", "substance use", "patient", "maternal",
		},
	},
	IndustryTechnology: {
		display: "Technology",
		keywords: []string{
			"technology", "tech", "software", "digital", "cybersecurity",
			"broadband", "computing", "computer", "data science",
			"artificial intelligence", "machine learning", "semiconductor",
			"internet", "information technology",
		},
	},
	IndustryEnvironment: {
		display: "Environment",
		keywords: []string{
			"environment", "environmental", "conservation", "climate",
			"sustainability", "wildlife", "watershed", "clean water", "pollution",
			"recycling", "habitat", "ecosystem", "forest", "brownfield",
		},
	},
	IndustryArts: {
		display: "Arts & Culture",
		keywords: []string{
			"art", "arts", "music", "theater", "theatre", "dance", "museum",
			"cultural", "culture", "humanities", "creative", "film", "literary",
			"heritage",
		},
	},
	IndustryCommunity: {
		display: "Community Development",
		keywords: []string{
			"community", "community development", "neighborhood", "civic",
			"volunteer", "capacity building", "social services", "food bank",
			"underserved", "placemaking",
		},
	},
	IndustryYouth: {
		display: "Youth",
		keywords: []string{
			"youth", "young people", "children", "child", "teen", "adolescent",
			"after school", "afterschool", "mentoring", "juvenile", "kids",
		},
	},
	IndustryHousing: {
		display: "Housing",
		keywords: []string{
			"housing", "affordable housing", "homeownership", "rental", "shelter",
			"homelessness", "home repair", "tenant", "homebuyer",
		},
	},
	IndustryEconomicDevelopment: {
		display: "Economic Development",
		keywords: []string{
			"economic development", "entrepreneurship", "entrepreneur",
			"job creation", "revitalization", "main street",
			"business development", "export", "small business development",
			"commercialization",
		},
	},
	IndustryResearch: {
		display: "Research",
		keywords: []string{
			"research", "scientific", "science", "laboratory", "sbir", "sttr",
			"fellowship", "clinical trial", "investigator",
		},
	},
	IndustryEnergy: {
		display: "Energy",
		keywords: []string{
			"energy", "renewable", "solar", "wind energy", "energy efficiency",
			"clean energy", "electric vehicle", "battery", "geothermal", "grid",
		},
	},
	IndustryWorkforce: {
		display: "Workforce",
		keywords: []string{
			"workforce", "job training", "apprenticeship", "employment", "career",
			"skills training", "reentry", "vocational", "upskilling",
		},
	},
	IndustryPublicSafety: {
		display: "Public Safety",
		keywords: []string{
			"public safety", "law enforcement", "police", "emergency management",
			"disaster", "fire", "crime prevention", "justice", "victim services",
			"first responder",
		},
	},
}

var AllIndustryTags = []IndustryTag{
	IndustryAgriculture,
	IndustryEducation,
	IndustryHealth,
	IndustryTechnology,
	IndustryEnvironment,
	IndustryArts,
	IndustryCommunity,
	IndustryYouth,
	IndustryHousing,
	IndustryEconomicDevelopment,
	IndustryResearch,
	IndustryEnergy,
	IndustryWorkforce,
	IndustryPublicSafety,
}

func (t IndustryTag) Valid() bool {
	_, ok := industries[t]
	return ok
}

func (t IndustryTag) DisplayName() string {
	if info, ok := industries[t]; ok {
		return info.display
	}
	return string(t)
}

// Label is the tag as it would appear in free text ("economic development").
func (t IndustryTag) Label() string {
	return strings.ReplaceAll(string(t), "_", " ")
}

// Keywords returns the expansion for t. The slice must not be modified.
func (t IndustryTag) Keywords() []string {
	return industries[t].keywords
}

// ParseIndustryTag accepts the canonical value, its label or its display name.
func ParseIndustryTag(raw string) (IndustryTag, bool) {
	norm := NormalizeText(raw)
	for _, tag := range AllIndustryTags {
		if norm == tag.Label() || norm == NormalizeText(tag.DisplayName()) {
			return tag, true
		}
	}
	return "", false
}
