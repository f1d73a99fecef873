package extract

import "strings"

// fallbackRule maps product keywords to a generic reason phrase used
// when every extraction strategy came up empty.
type fallbackRule struct {
	keywords []string
	reason   string
}

// fallbackRules are checked in order against the product name and type.
var fallbackRules = []fallbackRule{
	{[]string{"antibiotic"}, "Quality defect or contamination in antibiotic product"},
	{[]string{"injection"}, "Quality or safety issue with injectable product"},
	{[]string{"suspension"}, "Quality defect in oral suspension formulation"},
	{[]string{"tablet"}, "Quality or manufacturing defect in tablet formulation"},
	{[]string{"syrup"}, "Quality issue or contamination in syrup product"},
	{[]string{"food", "oats", "muesli", "cereal", "juice"}, "Food safety concern or quality defect"},
	{[]string{"water", "mineral"}, "Water quality or contamination issue"},
	{[]string{"bleach", "chlorine"}, "Chemical product safety or quality issue"},
	{[]string{"test strip"}, "Medical device quality or accuracy issue"},
}

// genericFallbackReason is used when no keyword rule matches.
const genericFallbackReason = "Product quality or safety concern"

// FallbackReason synthesizes a reason-for-recall phrase from the
// product name and type so a persisted record is never missing its
// reason entirely.
func FallbackReason(productName, productType string) string {
	haystack := strings.ToLower(productName + " " + productType)
	for _, rule := range fallbackRules {
		for _, kw := range rule.keywords {
			if strings.Contains(haystack, kw) {
				return rule.reason
			}
		}
	}
	return genericFallbackReason
}
