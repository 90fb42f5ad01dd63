package taxonomy

// SearchCategory is a curated keyword allow-list used when a search term
// names a broad category. It is deliberately tighter than the industry
// expansions so that a category search only returns on-topic listings.
type SearchCategory struct {
	Name     string
	Keywords []string
}

var searchCategories = []SearchCategory{
	{Name: "agriculture", Keywords: []string{"agriculture", "agricultural", "farm", "ranch", "crop", "livestock", "agribusiness"}},
	{Name: "technology", Keywords: []string{"technology", "software", "cybersecurity", "broadband", "digital", "computing", "artificial intelligence", "information technology"}},
	{Name: "health", Keywords: []string{"health", "healthcare", "medical", "clinic", "hospital", "mental health"}},
	{Name: "education", Keywords: []string{"education", "educational", "school", "student", "teacher", "literacy"}},
	{Name: "environment", Keywords: []string{"environment", "environmental", "conservation", "climate", "wildlife", "watershed"}},
	{Name: "arts", Keywords: []string{"arts", "artist", "music", "theater", "theatre", "museum", "humanities"}},
	{Name: "housing", Keywords: []string{"housing", "homeownership", "rental", "shelter", "homeless"}},
	{Name: "energy", Keywords: []string{"energy", "solar", "renewable", "efficiency", "geothermal"}},
	{Name: "research", Keywords: []string{"research", "scientific", "science", "laboratory"}},
	{Name: "youth", Keywords: []string{"youth", "children", "teen", "juvenile", "mentoring"}},
	{Name: "workforce", Keywords: []string{"workforce", "job training", "apprenticeship", "employment"}},
	{Name: "community", Keywords: []string{"community", "neighborhood", "civic"}},
	{Name: "small business", Keywords: []string{"small business", "entrepreneur", "startup", "microenterprise"}},
	{Name: "public safety", Keywords: []string{"public safety", "law enforcement", "police", "emergency management", "first responder"}},
}

var searchAliases = map[string]string{
	"ag":                    "agriculture",
	"farm":                  "agriculture",
	"farming":               "agriculture",
	"farms":                 "agriculture",
	"tech":                  "technology",
	"it":                    "technology",
	"software":              "technology",
	"healthcare":            "health",
	"medical":               "health",
	"schools":               "education",
	"school":                "education",
	"environmental":         "environment",
	"climate":               "environment",
	"conservation":          "environment",
	"art":                   "arts",
	"arts and culture":      "arts",
	"culture":               "arts",
	"affordable housing":    "housing",
	"clean energy":          "energy",
	"renewable energy":      "energy",
	"science":               "research",
	"kids":                  "youth",
	"children":              "youth",
	"jobs":                  "workforce",
	"job training":          "workforce",
	"community development": "community",
	"business":              "small business",
	"entrepreneurship":      "small business",
	"startups":              "small business",
}

// LookupSearchCategory resolves a search term to a curated category, if any.
func LookupSearchCategory(term string) (SearchCategory, bool) {
	norm := NormalizeText(term)
	if alias, ok := searchAliases[norm]; ok {
		norm = alias
	}
	for _, c := range searchCategories {
		if c.Name == norm {
			return c, true
		}
	}
	return SearchCategory{}, false
}
