package content

import "strings"

// categoryKeywords maps identifier keywords to inferred categories.
var categoryKeywords = map[string]string{
	"run":      "automation",
	"execute":  "automation",
	"trigger":  "automation",
	"deploy":   "automation",
	"workflow": "automation",
	"job":      "automation",
	"get":      "information",
	"list":     "information",
	"search":   "information",
	"find":     "information",
	"fetch":    "information",
	"status":   "information",
	"report":   "analysis",
	"analyze":  "analysis",
	"metric":   "analysis",
	"stats":    "analysis",
	"audit":    "analysis",
	"create":   "creation",
	"new":      "creation",
	"generate": "creation",
	"build":    "creation",
	"write":    "creation",
	"send":     "communication",
	"notify":   "communication",
	"email":    "communication",
	"message":  "communication",
	"share":    "communication",
}

// complexKeywords and simpleKeywords drive complexity inference. Complex
// markers are checked first so "get_admin_config" reads as complex.
var (
	complexKeywords = []string{"admin", "config", "batch", "migrate", "orchestr", "pipeline"}
	simpleKeywords  = []string{"get", "list", "show", "view", "read"}
)

// categoryContexts maps an inferred category to supported workflow stages.
var categoryContexts = map[string][]string{
	"automation":    {"execution"},
	"information":   {"planning", "execution"},
	"analysis":      {"planning", "completion"},
	"creation":      {"planning", "execution"},
	"communication": {"execution", "completion"},
}

// categoryIntents maps an inferred category to the intents it serves.
var categoryIntents = map[string][]string{
	"automation":    {"action"},
	"information":   {"information"},
	"analysis":      {"analysis", "information"},
	"creation":      {"creation", "action"},
	"communication": {"communication", "action"},
}

// inferFeatures builds a feature vector from identifier keywords alone.
// Used for tools referenced before any explicit registration.
func inferFeatures(toolID string) FeatureVector {
	categories := inferCategories(toolID)

	var contexts, intents []string
	for _, cat := range categories {
		contexts = appendUnique(contexts, categoryContexts[cat]...)
		intents = appendUnique(intents, categoryIntents[cat]...)
	}

	return FeatureVector{
		Categories: categories,
		Complexity: inferComplexity(toolID),
		Contexts:   contexts,
		Intents:    intents,
		Inferred:   true,
	}
}

// inferCategories matches identifier parts against the category keyword map.
func inferCategories(toolID string) []string {
	id := strings.ToLower(toolID)

	var categories []string
	for _, part := range splitIdentifier(id) {
		if cat, ok := categoryKeywords[part]; ok {
			categories = appendUnique(categories, cat)
		}
	}
	if len(categories) == 0 {
		categories = []string{"general"}
	}
	return categories
}

// inferComplexity matches identifier keywords, defaulting to moderate.
func inferComplexity(toolID string) string {
	id := strings.ToLower(toolID)
	for _, kw := range complexKeywords {
		if strings.Contains(id, kw) {
			return "complex"
		}
	}
	for _, kw := range simpleKeywords {
		if strings.Contains(id, kw) {
			return "simple"
		}
	}
	return "moderate"
}

// inferContexts derives supported stages from inferred categories.
func inferContexts(toolID string) []string {
	var contexts []string
	for _, cat := range inferCategories(toolID) {
		contexts = appendUnique(contexts, categoryContexts[cat]...)
	}
	return contexts
}

// inferIntents derives served intents from inferred categories.
func inferIntents(toolID string) []string {
	var intents []string
	for _, cat := range inferCategories(toolID) {
		intents = appendUnique(intents, categoryIntents[cat]...)
	}
	return intents
}

// inferDeclaredComplexity estimates complexity from declared metadata when
// the integration did not set it: parameter count first, then description
// length, then identifier keywords.
func inferDeclaredComplexity(tool ToolInfo) string {
	switch {
	case tool.ParamCount >= 6:
		return "complex"
	case tool.ParamCount >= 3:
		return "moderate"
	case tool.ParamCount > 0:
		return "simple"
	}

	if len(tool.Description) > 300 {
		return "complex"
	}
	if len(tool.Description) > 100 {
		return "moderate"
	}

	return inferComplexity(tool.Name)
}

// splitIdentifier splits a tool identifier on common separators.
func splitIdentifier(id string) []string {
	return strings.FieldsFunc(id, func(r rune) bool {
		return r == '_' || r == '-' || r == '.' || r == '/' || r == ' '
	})
}

// appendUnique appends values not already present.
func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		found := false
		for _, existing := range dst {
			if existing == v {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, v)
		}
	}
	return dst
}
