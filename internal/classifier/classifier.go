// Package classifier sorts videos into categories by filename.
//
// Rules are evaluated top to bottom against the lower-cased filename and
// the first match wins. Class-number rules come before gym keywords.
package classifier

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/iconidentify/videosorter/internal/domain"
)

// Rule maps a filename pattern to a category.
type Rule struct {
	Pattern  *regexp.Regexp
	Category domain.Category
	Priority int
}

var rules = []Rule{
	{regexp.MustCompile(`(?i)class\s*7|class7|ch\.?7|chapter\s*7|7th`), domain.CategoryClass7, 1},
	{regexp.MustCompile(`(?i)class\s*8|class8|ch\.?8|chapter\s*8|8th`), domain.CategoryClass8, 1},
	{regexp.MustCompile(`(?i)class\s*9|class9|ch\.?9|chapter\s*9|9th`), domain.CategoryClass9, 1},
	{regexp.MustCompile(`(?i)class\s*10|class10|ch\.?10|chapter\s*10|10th`), domain.CategoryClass10, 1},
	{regexp.MustCompile(`(?i)gym|workout|exercise|fitness|training|cardio|yoga|pushup|squat`), domain.CategoryGym, 2},
}

// now is replaced in tests.
var now = time.Now

// Classify returns the category of the first rule matching filename, or
// Other with default confidence when nothing matches.
func Classify(filename string) domain.Classification {
	lower := strings.ToLower(filename)
	for _, rule := range rules {
		if rule.Pattern.MatchString(lower) {
			return domain.Classification{
				Category:       rule.Category,
				AutoClassified: true,
				Confidence:     domain.ConfidenceHigh,
				MatchedRule:    rule.Pattern.String(),
			}
		}
	}
	return domain.Classification{
		Category:       domain.CategoryOther,
		AutoClassified: true,
		Confidence:     domain.ConfidenceDefault,
	}
}

// Manual returns a manual override to category. Values outside the
// category set yield an error wrapping domain.ErrInvalidCategory.
func Manual(category string) (domain.Classification, error) {
	c, err := domain.ParseCategory(category)
	if err != nil {
		return domain.Classification{}, fmt.Errorf("%w: %q", err, category)
	}
	at := now().UTC()
	return domain.Classification{
		Category:       c,
		AutoClassified: false,
		ManualOverride: true,
		ClassifiedAt:   &at,
	}, nil
}

// Result pairs a filename with its classification.
type Result struct {
	Filename string `json:"filename"`
	domain.Classification
}

// Bulk classifies each filename, preserving input order.
func Bulk(filenames []string) []Result {
	results := make([]Result, 0, len(filenames))
	for _, name := range filenames {
		results = append(results, Result{Filename: name, Classification: Classify(name)})
	}
	return results
}

// Suggestion is a candidate category for a partial name.
type Suggestion struct {
	Category   domain.Category   `json:"category"`
	Confidence domain.Confidence `json:"confidence"`
}

// Suggest returns every category whose rule matches partial. When none
// match it returns a single Other suggestion.
func Suggest(partial string) []Suggestion {
	lower := strings.ToLower(partial)
	var out []Suggestion
	for _, rule := range rules {
		if rule.Pattern.MatchString(lower) {
			out = append(out, Suggestion{Category: rule.Category, Confidence: domain.ConfidenceHigh})
		}
	}
	if len(out) == 0 {
		out = append(out, Suggestion{Category: domain.CategoryOther, Confidence: domain.ConfidenceDefault})
	}
	return out
}
