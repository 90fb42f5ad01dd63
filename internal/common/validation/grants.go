package validation

import "fmt"

// definitions shared by the job input schemas. Enum membership is left to
// the model Validate methods; these schemas only pin down shape and types.
const definitions = `{
	"profile": {
		"type": "object",
		"properties": {
			"userId":         {"type": "string"},
			"entityType":     {"type": "string"},
			"country":        {"type": "string"},
			"state":          {"type": "string"},
			"industryTags":   {"type": ["array", "null"], "items": {"type": "string"}},
			"sizeBand":       {"type": "string"},
			"stage":          {"type": "string"},
			"annualBudget":   {"type": "string"},
			"profileVersion": {"type": "integer", "minimum": 0},
			"grantPreferences": {
				"type": ["object", "null"],
				"properties": {
					"preferredSize": {"type": "string"},
					"timeline":      {"type": "string"},
					"complexity":    {"type": "string"}
				}
			}
		}
	},
	"location": {
		"type":     "object",
		"required": ["type"],
		"properties": {
			"type":  {"type": "string"},
			"value": {"type": "string"}
		}
	},
	"grant": {
		"type":     "object",
		"required": ["id", "title"],
		"properties": {
			"id":           {"type": "string", "minLength": 1},
			"title":        {"type": "string"},
			"sponsor":      {"type": "string"},
			"url":          {"type": "string"},
			"status":       {"type": "string"},
			"categories":   {"type": ["array", "null"], "items": {"type": "string"}},
			"purposeTags":  {"type": ["array", "null"], "items": {"type": "string"}},
			"eligibility":  {"type": ["object", "null"], "properties": {"tags": {"type": ["array", "null"], "items": {"type": "string"}}}},
			"locations":    {"type": ["array", "null"], "items": {"$ref": "#/definitions/location"}},
			"amountMin":    {"type": ["number", "null"], "minimum": 0},
			"amountMax":    {"type": ["number", "null"], "minimum": 0},
			"deadlineDate": {"type": ["string", "null"]},
			"qualityScore": {"type": "integer", "minimum": 0, "maximum": 100}
		}
	},
	"grants": {
		"type":  "array",
		"items": {"$ref": "#/definitions/grant"}
	},
	"options": {
		"type": ["object", "null"],
		"properties": {
			"limit":        {"type": ["integer", "string"]},
			"minScore":     {"type": ["integer", "string"]},
			"sortBy":       {"type": "string"},
			"useCache":     {"type": ["boolean", "string"]},
			"useAI":        {"type": ["boolean", "string"]},
			"includeDebug": {"type": ["boolean", "string"]}
		}
	}
}`

func inputSchema(required, properties string) string {
	if required != "" {
		required = fmt.Sprintf(`"required": [%s],`, required)
	}
	return fmt.Sprintf(`{
	"type":        "object",
	"definitions": %s,
	%s
	"properties": {%s}
}`, definitions, required, properties)
}

var (
	// ProfileGrantsInput covers the eligibility and scoring workers.
	ProfileGrantsInput = MustCompile("profile-grants", inputSchema(
		`"profile", "grants"`,
		`"profile": {"$ref": "#/definitions/profile"},
		 "grants":  {"$ref": "#/definitions/grants"}`,
	))

	// SearchInput covers search-time relevance filtering.
	SearchInput = MustCompile("search", inputSchema(
		`"grants"`,
		`"searchTerm": {"type": "string"},
		 "profile":    {"$ref": "#/definitions/profile"},
		 "grants":     {"$ref": "#/definitions/grants"}`,
	))

	// DiscoverInput covers pipeline runs that load their own data.
	DiscoverInput = MustCompile("discover", inputSchema(
		`"userId"`,
		`"userId":  {"type": "string", "minLength": 1},
		 "options": {"$ref": "#/definitions/options"}`,
	))

	// OptionsInput covers standalone option parsing.
	OptionsInput = MustCompile("options", inputSchema(
		``,
		`"options": {"$ref": "#/definitions/options"}`,
	))

	// AnalyzeInput covers a single (user, grant) analysis.
	AnalyzeInput = MustCompile("analyze", inputSchema(
		`"profile", "grant"`,
		`"profile":    {"$ref": "#/definitions/profile"},
		 "grant":      {"$ref": "#/definitions/grant"},
		 "forceFresh": {"type": "boolean"}`,
	))
)
