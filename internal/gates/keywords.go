package gates

// Keyword tables backing the deterministic gate checks. Matching is
// case-insensitive substring over the reconciled text fields.

var northAmericaCountries = []string{
	"us", "usa", "united states", "canada", "mexico",
}

var unitedKingdomCountries = []string{
	"uk", "united kingdom", "britain", "england", "scotland", "wales",
}

var excludedRegions = []string{
	"china", "russia", "iran", "north korea", "cuba", "syria",
}

// sportsFitnessKeywords gate the UK carve-out: UK companies qualify only
// when operating in sports, fitness, or recreation verticals.
var sportsFitnessKeywords = []string{
	"sports", "fitness", "gym", "recreation", "athletic", "exercise",
	"wellness", "health club", "leisure", "coaching", "training",
	"tournament", "league", "competition", "stadium", "arena",
	"membership", "personal training", "yoga", "pilates", "swimming",
	"tennis", "golf", "football", "soccer", "basketball", "cycling",
}

var softwareIndicators = []string{
	"software", "saas", "platform", "application", "system", "solution",
	"technology", "digital", "cloud", "api", "dashboard", "analytics",
}

var serviceRedFlags = []string{
	"consulting", "implementation", "training", "support services",
	"professional services", "custom development", "integration services",
}

var b2bIndicators = []string{
	"enterprise", "business", "companies", "organizations", "clients",
	"corporate", "commercial", "professional", "industry",
}

var b2cRedFlags = []string{
	"consumer", "personal", "individual", "marketplace", "e-commerce",
	"retail customers", "end users", "mobile app",
}

// solutionExclusions disqualify regardless of other business-model
// evidence: marketplaces and aggregators are not acquisition targets.
var solutionExclusions = []string{
	"marketplace", "aggregator", "listing site", "classifieds",
	"price comparison",
}
