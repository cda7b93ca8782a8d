// Package vocab holds the fixed automotive vocabularies and the synonym
// ontology used for intent analysis, query enhancement and tag scoring.
// All tables are built once at package load and never mutated.
package vocab

// Colors are the recognized paint colors.
var Colors = []string{
	"red", "blue", "white", "black", "silver", "gray", "grey", "green", "yellow", "orange",
	"purple", "brown", "gold", "bronze", "maroon", "navy", "beige", "cream", "pink", "turquoise",
}

// Types are the recognized vehicle body types.
var Types = []string{
	"sedan", "suv", "truck", "convertible", "hatchback", "coupe", "wagon", "minivan",
}

// Features are the recognized vehicle features.
var Features = []string{
	"sunroof", "leather", "alloy wheels", "rear spoiler", "front spoiler",
}

// Brands are the recognized manufacturer names.
var Brands = []string{
	"toyota", "honda", "bmw", "ford", "chevrolet", "audi", "mercedes",
	"volkswagen", "nissan", "hyundai", "kia", "mazda", "subaru", "lexus", "acura",
	"infiniti", "cadillac", "lincoln", "jeep", "ram", "dodge", "chrysler", "buick", "gmc",
	"porsche", "ferrari", "lamborghini", "mclaren", "bentley", "rolls royce",
	"maserati", "alfa romeo", "jaguar", "land rover", "volvo", "saab", "mini", "smart",
	"tesla", "rivian", "lucid", "polestar", "nio", "xpeng", "li auto", "byton",
	"tata", "mahindra", "maruti", "maruti suzuki", "hindustan", "force motors",
	"ashok leyland", "eicher", "bajaj", "isuzu india", "toyota kirloskar", "renault india",
	"hyundai india", "kia india", "mg motor india",
}

// Styles are the recognized style descriptors.
var Styles = []string{
	"luxury", "sporty", "family", "classic", "vintage", "modern", "premium", "economy",
}

// Performance are the recognized performance descriptors.
var Performance = []string{
	"fast", "turbo", "powerful", "racing", "speed", "quick",
}

// ColorSynonyms expands color tokens during query enhancement.
var ColorSynonyms = map[string][]string{
	"red":   {"crimson", "scarlet", "ruby"},
	"blue":  {"navy", "azure", "sky blue"},
	"black": {"jet black", "onyx", "charcoal"},
	"white": {"ivory", "pearl", "alabaster"},
}

// TypeSynonyms expands vehicle type tokens during query enhancement.
var TypeSynonyms = map[string][]string{
	"suv":       {"sport utility vehicle", "crossover"},
	"sedan":     {"saloon", "executive car"},
	"hatchback": {"compact car", "small car"},
	"coupe":     {"two-door car", "sport coupe"},
	"truck":     {"pickup", "utility vehicle"},
	"car":       {"automobile", "vehicle", "auto"},
}

// AttributeSynonyms expands style and performance tokens during query enhancement.
var AttributeSynonyms = map[string][]string{
	"luxury":   {"premium", "high-end", "upscale", "exclusive"},
	"sporty":   {"fast", "performance", "racing"},
	"electric": {"EV", "battery car", "zero-emission"},
	"cheap":    {"budget", "affordable", "economy"},
}

// OntologyBrands is the small brand set appended verbatim during enhancement.
var OntologyBrands = []string{"bmw", "audi", "mercedes", "tesla", "toyota", "honda"}

// GenericNouns are stripped from queries before enhancement.
var GenericNouns = []string{"car", "vehicle", "automobile", "auto"}

// Stopwords are excluded from keyword scoring.
var Stopwords = buildSet([]string{
	"the", "a", "an", "and", "or", "but", "in", "on", "at", "to", "for", "of", "with",
	"by", "is", "are", "was", "were", "be", "been", "being", "have", "has", "had",
	"do", "does", "did", "will", "would", "could", "should", "may", "might", "must",
	"can", "this", "that", "these", "those", "i", "you", "he", "she", "it", "we",
	"they", "me", "him", "her", "us", "them",
})

var (
	colorSet = buildSet(Colors)
	brandSet = buildSet(Brands)
)

func buildSet(words []string) map[string]bool {
	s := make(map[string]bool, len(words))
	for _, w := range words {
		s[w] = true
	}
	return s
}

// IsColor reports whether the lowercase token is a recognized color.
func IsColor(token string) bool { return colorSet[token] }

// IsBrand reports whether the lowercase token is a recognized brand.
func IsBrand(token string) bool { return brandSet[token] }

// IsStopword reports whether the lowercase token carries no search signal.
func IsStopword(token string) bool { return Stopwords[token] }
