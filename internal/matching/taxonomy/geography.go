package taxonomy

import "strings"

// DefaultCountry is assumed for profiles and national grants that omit one.
const DefaultCountry = "US"

var stateNames = map[string]string{
	"AL": "Alabama", "AK": "Alaska", "AZ": "Arizona", "AR": "Arkansas",
	"CA": "California", "CO": "Colorado", "CT": "Connecticut", "DE": "Delaware",
	"FL": "Florida", "GA": "Georgia", "HI": "Hawaii", "ID": "Idaho",
	"IL": "Illinois", "IN": "Indiana", "IA": "Iowa", "KS": "Kansas",
	"KY": "Kentucky", "LA": "Louisiana", "ME": "Maine", "MD": "Maryland",
	"MA": "Massachusetts", "MI": "Michigan", "MN": "Minnesota", "MS": "Mississippi",
	"MO": "Missouri", "MT": "Montana", "NE": "Nebraska", "NV": "Nevada",
	"NH": "New Hampshire", "NJ": "New Jersey", "NM": "New Mexico", "NY": "New York",
	"NC": "North Carolina", "ND": "North Dakota", "OH": "Ohio", "OK": "Oklahoma",
	"OR": "Oregon", "PA": "Pennsylvania", "RI": "Rhode Island", "SC": "South Carolina",
	"SD": "South Dakota", "TN": "Tennessee", "TX": "Texas", "UT": "Utah",
	"VT": "Vermont", "VA": "Virginia", "WA": "Washington", "WV": "West Virginia",
	"WI": "Wisconsin", "WY": "Wyoming", "DC": "District of Columbia",
	"PR": "Puerto Rico", "GU": "Guam", "VI": "U.S. Virgin Islands",
	"AS": "American Samoa", "MP": "Northern Mariana Islands",
}

var stateCodesByName = func() map[string]string {
	m := make(map[string]string, len(stateNames))
	for code, name := range stateNames {
		m[NormalizeText(name)] = code
	}
	m["washington dc"] = "DC"
	m["washington d.c."] = "DC"
	m["virgin islands"] = "VI"
	return m
}()

var countryAliases = map[string]string{
	"us":                       "US",
	"usa":                      "US",
	"u.s.":                     "US",
	"u.s.a.":                   "US",
	"united states":            "US",
	"united states of america": "US",
	"nationwide":               "US",
	"national":                 "US",
}

// NormalizeCountry maps a country code or common name to its upper-case code.
// Blank stays blank.
func NormalizeCountry(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if code, ok := countryAliases[strings.ToLower(trimmed)]; ok {
		return code
	}
	return strings.ToUpper(trimmed)
}

// NormalizeState maps a state code or name to its two-letter code.
func NormalizeState(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	upper := strings.ToUpper(trimmed)
	if _, ok := stateNames[upper]; ok {
		return upper, true
	}
	if code, ok := stateCodesByName[NormalizeText(trimmed)]; ok {
		return code, true
	}
	return "", false
}

// StateName returns the full name for a state code.
func StateName(code string) string {
	if name, ok := stateNames[strings.ToUpper(code)]; ok {
		return name
	}
	return code
}

var regions = map[string][]string{
	"northeast":         {"CT", "ME", "MA", "NH", "RI", "VT", "NJ", "NY", "PA"},
	"new england":       {"CT", "ME", "MA", "NH", "RI", "VT"},
	"mid atlantic":      {"NJ", "NY", "PA", "DE", "MD", "DC"},
	"midwest":           {"IL", "IN", "MI", "OH", "WI", "IA", "KS", "MN", "MO", "NE", "ND", "SD"},
	"great lakes":       {"IL", "IN", "MI", "MN", "NY", "OH", "PA", "WI"},
	"great plains":      {"KS", "NE", "ND", "SD", "OK", "TX", "MT", "WY", "CO", "NM"},
	"south":             {"DE", "FL", "GA", "MD", "NC", "SC", "VA", "DC", "WV", "AL", "KY", "MS", "TN", "AR", "LA", "OK", "TX"},
	"southeast":         {"AL", "FL", "GA", "KY", "MS", "NC", "SC", "TN", "VA", "WV"},
	"southwest":         {"AZ", "NM", "OK", "TX"},
	"appalachia":        {"AL", "GA", "KY", "MD", "MS", "NY", "NC", "OH", "PA", "SC", "TN", "VA", "WV"},
	"delta":             {"AL", "AR", "IL", "KY", "LA", "MS", "MO", "TN"},
	"west":              {"AZ", "CO", "ID", "MT", "NV", "NM", "UT", "WY", "AK", "CA", "HI", "OR", "WA"},
	"mountain west":     {"AZ", "CO", "ID", "MT", "NV", "NM", "UT", "WY"},
	"pacific":           {"AK", "CA", "HI", "OR", "WA"},
	"pacific northwest": {"OR", "WA", "ID"},
	"gulf coast":        {"AL", "FL", "LA", "MS", "TX"},
	"us territories":    {"PR", "GU", "VI", "AS", "MP"},
}

// RegionStates returns the state codes within a named region.
func RegionStates(region string) ([]string, bool) {
	norm := strings.TrimSuffix(NormalizeText(region), " region")
	states, ok := regions[norm]
	return states, ok
}

// RegionContains reports whether state lies in the named region.
func RegionContains(region, state string) bool {
	states, ok := RegionStates(region)
	if !ok {
		return false
	}
	for _, s := range states {
		if s == state {
			return true
		}
	}
	return false
}
