// Package textextract turns unstructured Korean housing-notice text into
// structured fields: dates, won-denominated amounts, floor areas and
// qualification keyword summaries. All extractors are pure functions over
// the normalized input and safe for concurrent use.
package textextract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	// Dates: YYYY-MM-DD, YYYY.MM.DD, YY.MM.DD, YYYY/MM/DD. Separators are
	// interchangeable within one token.
	datePattern = regexp.MustCompile(`(\d{2,4}[.\-/]\d{1,2}[.\-/]\d{1,2})`)

	// Amounts: "1,000만원", "1억 2000", "500000원", "3,500". Longer unit
	// tokens listed first so 억원 wins over 억.
	amountPattern = regexp.MustCompile(`([\d,]+)\s*(억원|만원|천원|억|만|천|원)?`)

	// Areas: "50m2", "84.5㎡", "25평".
	areaPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:m2|㎡|평)`)

	whitespaceRun = regexp.MustCompile(`\s+`)
)

// Amount is one matched monetary token with its won value.
type Amount struct {
	Text string  `json:"text"`
	Won  float64 `json:"won"`
}

// Keywords holds the three deduplicated vocabulary scan results.
type Keywords struct {
	Qualifications []string `json:"qualifications"`
	Income         []string `json:"income"`
	Assets         []string `json:"assets"`
}

// ParseResult is the structured output of one extraction pass.
type ParseResult struct {
	Dates    []string  `json:"dates"`
	Amounts  []Amount  `json:"amounts"`
	Areas    []float64 `json:"areas"`
	Keywords Keywords  `json:"keywords"`
}

// Vocabulary is the fixed keyword configuration for ExtractKeywords.
// Injecting it keeps the scan logic independent of the word lists.
type Vocabulary struct {
	Qualifications []string
	Income         []string
	AssetTerms     []string
}

// DefaultVocabulary returns the production keyword lists: no-homeownership,
// household, youth, newlywed, single-parent and elderly terms for
// qualifications; income terms; asset anchor terms.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Qualifications: []string{"무주택", "세대구성원", "청년", "신혼부부", "한부모", "고령자"},
		Income:         []string{"소득", "중위소득", "월평균"},
		AssetTerms:     []string{"자산", "자동차", "부동산", "가액"},
	}
}

// Parser bundles the extraction grammar with a vocabulary. The zero value
// is not usable; construct with NewParser.
type Parser struct {
	vocab         Vocabulary
	assetPatterns []assetPattern
}

type assetPattern struct {
	term string
	re   *regexp.Regexp
}

// NewParser returns a Parser using the default vocabulary.
func NewParser() *Parser {
	return NewParserWithVocabulary(DefaultVocabulary())
}

// NewParserWithVocabulary returns a Parser with custom keyword lists.
func NewParserWithVocabulary(vocab Vocabulary) *Parser {
	p := &Parser{vocab: vocab}
	for _, term := range vocab.AssetTerms {
		// Matches the term followed by the nearest numeric phrase on the
		// same line, e.g. "총자산가액 3억 이하" -> "3억".
		re := regexp.MustCompile(regexp.QuoteMeta(term) + `[^0-9\n]*([\d,]+(?:억|천?만|원)?)`)
		p.assetPatterns = append(p.assetPatterns, assetPattern{term: term, re: re})
	}
	return p
}

// Normalize collapses every whitespace run to a single space and trims.
// Total: empty input yields "".
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}

// ExtractDates returns date tokens canonicalized to YYYY-MM-DD in
// first-occurrence order. Two-digit years are prefixed with "20". No
// semantic validation is applied; month 13 passes through unchanged.
func ExtractDates(text string) []string {
	matches := datePattern.FindAllString(text, -1)
	dates := make([]string, 0, len(matches))
	for _, m := range matches {
		d := strings.NewReplacer(".", "-", "/", "-").Replace(m)
		parts := strings.Split(d, "-")
		if len(parts[0]) == 2 {
			parts[0] = "20" + parts[0]
		}
		dates = append(dates, strings.Join(parts, "-"))
	}
	return dates
}

// ExtractAmounts returns (matched text, won value) pairs in
// first-occurrence order. Unit multipliers: 억* 1e8, 만* 1e4, 천* 1e3,
// bare 원 1. A number without any unit is kept only when it is at least
// 100,000; smaller unitless numbers are row indices or date fragments,
// not money. Zero values are dropped.
//
// Compound expressions such as "1억 2000" are parsed as independent
// tokens, not merged to 120,000,000. Known grammar gap, kept as-is.
func ExtractAmounts(text string) []Amount {
	matches := amountPattern.FindAllStringSubmatch(text, -1)
	amounts := make([]Amount, 0, len(matches))
	for _, m := range matches {
		valStr, unit := m[1], m[2]
		raw := strings.ReplaceAll(valStr, ",", "")
		if !isDigits(raw) {
			continue
		}
		numeric, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}

		var value float64
		switch {
		case strings.HasPrefix(unit, "억"):
			value = numeric * 100_000_000
		case strings.HasPrefix(unit, "만"):
			value = numeric * 10_000
		case strings.HasPrefix(unit, "천"):
			value = numeric * 1_000
		case unit == "원":
			value = numeric
		case unit == "" && numeric >= 100_000:
			value = numeric
		}

		if value > 0 {
			amounts = append(amounts, Amount{Text: valStr + unit, Won: value})
		}
	}
	return amounts
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ExtractAreas returns numbers followed by an area unit (m2, ㎡ or 평),
// keeping only values in [10, 200]. The raw numeral is reported for all
// units alike; pyeong values are not converted to square meters. The
// result may be empty; callers substitute the working default via
// MaxAreaOrDefault.
func ExtractAreas(text string) []float64 {
	matches := areaPattern.FindAllStringSubmatch(text, -1)
	areas := make([]float64, 0, len(matches))
	for _, m := range matches {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		if v >= 10 && v <= 200 {
			areas = append(areas, v)
		}
	}
	return areas
}

// ExtractKeywords scans the text against the parser's vocabularies.
// Qualification and income terms are included at most once each, in
// vocabulary order. Asset terms that are followed by a numeric phrase on
// the same line yield deduplicated "term: phrase" entries; an asset term
// with no trailing numeric phrase contributes nothing.
func (p *Parser) ExtractKeywords(text string) Keywords {
	kw := Keywords{
		Qualifications: []string{},
		Income:         []string{},
		Assets:         []string{},
	}

	for _, term := range p.vocab.Qualifications {
		if strings.Contains(text, term) {
			kw.Qualifications = append(kw.Qualifications, term)
		}
	}
	for _, term := range p.vocab.Income {
		if strings.Contains(text, term) {
			kw.Income = append(kw.Income, term)
		}
	}

	seen := map[string]struct{}{}
	for _, ap := range p.assetPatterns {
		if !strings.Contains(text, ap.term) {
			continue
		}
		for _, m := range ap.re.FindAllStringSubmatch(text, -1) {
			entry := ap.term + ": " + m[1]
			if _, ok := seen[entry]; ok {
				continue
			}
			seen[entry] = struct{}{}
			kw.Assets = append(kw.Assets, entry)
		}
	}
	sort.Strings(kw.Assets)

	return kw
}

// Parse runs Normalize once and all four extractors over the result.
func (p *Parser) Parse(raw string) ParseResult {
	text := Normalize(raw)
	return ParseResult{
		Dates:    ExtractDates(text),
		Amounts:  ExtractAmounts(text),
		Areas:    ExtractAreas(text),
		Keywords: p.ExtractKeywords(text),
	}
}
