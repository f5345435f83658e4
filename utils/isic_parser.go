package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Aashish23092/isic-card-ocr/dto"
)

// fieldPattern is one entry of a field's ordered pattern table. The first
// capture group is the candidate; accept may rewrite or reject it.
type fieldPattern struct {
	re     *regexp.Regexp
	accept func(candidate string) (string, bool)
}

var (
	cardNumberPatterns = []fieldPattern{
		{re: regexp.MustCompile(`(?i)Card\s*(?:No|Number)[:\s]*(\d{8,10})`)},
		{re: regexp.MustCompile(`(?i)ISIC[:\s]*(\d{8,10})`)},
		{re: regexp.MustCompile(`\b(\d{8,10})\b`)},
	}
	digitRunRegex = regexp.MustCompile(`\d{8,10}`)

	namePatterns = []fieldPattern{
		{re: regexp.MustCompile(`Name[:\s]*([A-Z][a-z]+\s+[A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)`), accept: multiWordName},
		{re: regexp.MustCompile(`([A-Z][A-Z\s]{10,40})`), accept: multiWordName},
		{re: regexp.MustCompile(`(?i)Student[:\s]*([A-Z][a-z]+\s+[A-Z][a-z]+)`), accept: multiWordName},
		{re: regexp.MustCompile(`\b([A-Z]{2,}\s+[A-Z]{2,})\b`), accept: titleCaseName},
	}

	dobPatterns = []fieldPattern{
		{re: regexp.MustCompile(`(?i)(?:DOB|Date of Birth|Born)[:\s]*(\d{2}[-/.]\d{2}[-/.]\d{4})`), accept: normalized},
		{re: regexp.MustCompile(`(?i)(?:DOB|Date of Birth|Born)[:\s]*(\d{4}[-/.]\d{2}[-/.]\d{2})`), accept: normalized},
		{re: regexp.MustCompile(`\b(\d{2}[-/.]\d{2}[-/.](?:19|20)\d{2})\b`), accept: normalized},
	}

	expiryRegexes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:Valid|Expires|Expiry|Until)[:\s]*(\d{2}[-/.]\d{2}[-/.]\d{4})`),
		regexp.MustCompile(`(?i)(?:Valid|Expires|Expiry|Until)[:\s]*(\d{4}[-/.]\d{2}[-/.]\d{2})`),
		regexp.MustCompile(`(?i)(?:Valid|Expires)[:\s]*((?:0[1-9]|1[0-2])[-/.]20\d{2})`),
		regexp.MustCompile(`\b(\d{2}[-/.]20\d{2})\b`),
	}

	institutionKeywords = []string{
		"University",
		"College",
		"Institute",
		"School",
		"Academy",
		"Университет",
	}
	institutionRegex = regexp.MustCompile(`([A-Z][a-z]+(?:\s+[A-Z][a-z]+){1,5}\s+(?:University|College|Institute))`)

	digitalKeywords = []string{"digital", "virtual", "e-card", "mobile"}

	dateSeparatorRegex = regexp.MustCompile(`[-/.]`)
	whitespaceRegex    = regexp.MustCompile(`\s+`)
)

// ISICExtractor parses ISIC card fields out of raw OCR text.
// Now supplies the current date used for the expiry window.
type ISICExtractor struct {
	Now func() time.Time
}

// NewISICExtractor creates an extractor using the wall clock
func NewISICExtractor() *ISICExtractor {
	return &ISICExtractor{Now: time.Now}
}

// ParseISICText extracts ISIC card fields using the wall clock
func ParseISICText(raw string) dto.ISICCardData {
	return NewISICExtractor().Extract(raw)
}

// Extract returns every card field found in text. Confidence is left at
// zero for the caller to fill from the recognition result.
func (e *ISICExtractor) Extract(text string) dto.ISICCardData {
	return dto.ISICCardData{
		CardNumber:  ParseCardNumber(text),
		FullName:    ParseFullName(text),
		DateOfBirth: ParseDateOfBirth(text),
		ExpiryDate:  e.ParseExpiryDate(text),
		Institution: ParseInstitution(text),
		CardType:    DetectCardType(text),
	}
}

// firstMatch walks a pattern table and returns the first accepted candidate
func firstMatch(text string, patterns []fieldPattern) string {
	for _, p := range patterns {
		m := p.re.FindStringSubmatch(text)
		if len(m) < 2 || m[1] == "" {
			continue
		}
		if p.accept == nil {
			return m[1]
		}
		if v, ok := p.accept(m[1]); ok {
			return v
		}
	}
	return ""
}

// ParseCardNumber prefers labeled numbers, then any 8-10 digit run
func ParseCardNumber(text string) string {
	if v := firstMatch(text, cardNumberPatterns); v != "" {
		return v
	}
	return digitRunRegex.FindString(text)
}

// ParseFullName extracts the holder's name; at least two words are required
func ParseFullName(text string) string {
	return firstMatch(text, namePatterns)
}

func multiWordName(candidate string) (string, bool) {
	name := strings.TrimSpace(candidate)
	if len(strings.Fields(name)) < 2 {
		return "", false
	}
	return name, true
}

func titleCaseName(candidate string) (string, bool) {
	words := strings.Fields(candidate)
	if len(words) < 2 {
		return "", false
	}
	for i, w := range words {
		words[i] = w[:1] + strings.ToLower(w[1:])
	}
	return strings.Join(words, " "), true
}

func normalized(candidate string) (string, bool) {
	return NormalizeDate(candidate), true
}

// ParseDateOfBirth returns the birth date in YYYY-MM-DD form
func ParseDateOfBirth(text string) string {
	return firstMatch(text, dobPatterns)
}

// ParseExpiryDate returns the expiry date in YYYY-MM-DD form. Candidates whose
// year falls outside [current year, current year+10] are skipped so a birth
// date is not mistaken for an expiry.
func (e *ISICExtractor) ParseExpiryDate(text string) string {
	now := time.Now
	if e != nil && e.Now != nil {
		now = e.Now
	}
	currentYear := now().Year()

	inWindow := func(candidate string) (string, bool) {
		norm := NormalizeDate(candidate)
		year, err := strconv.Atoi(strings.SplitN(norm, "-", 2)[0])
		if err != nil {
			return "", false
		}
		if year < currentYear || year > currentYear+10 {
			return "", false
		}
		return norm, true
	}

	patterns := make([]fieldPattern, 0, len(expiryRegexes))
	for _, re := range expiryRegexes {
		patterns = append(patterns, fieldPattern{re: re, accept: inWindow})
	}
	return firstMatch(text, patterns)
}

// ParseInstitution finds the issuing institution by keyword, line by line
func ParseInstitution(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		for _, keyword := range institutionKeywords {
			if !strings.Contains(line, keyword) {
				continue
			}
			clean := strings.TrimSpace(whitespaceRegex.ReplaceAllString(line, " "))
			if n := utf8.RuneCountInString(clean); n >= 5 && n <= 100 {
				return clean
			}
		}
	}

	if m := institutionRegex.FindStringSubmatch(text); len(m) > 1 {
		return m[1]
	}
	return ""
}

// DetectCardType reports digital when any digital keyword appears
func DetectCardType(text string) dto.CardType {
	lower := strings.ToLower(text)
	for _, keyword := range digitalKeywords {
		if strings.Contains(lower, keyword) {
			return dto.CardTypeDigital
		}
	}
	return dto.CardTypePhysical
}

// NormalizeDate rewrites DD-MM-YYYY, YYYY-MM-DD and MM-YYYY (any of - / .
// as separator) into YYYY-MM-DD. Other shapes are returned unchanged.
func NormalizeDate(dateStr string) string {
	parts := dateSeparatorRegex.Split(dateStr, -1)

	switch len(parts) {
	case 3:
		if len(parts[0]) == 4 {
			return fmt.Sprintf("%s-%s-%s", parts[0], padTwo(parts[1]), padTwo(parts[2]))
		}
		if len(parts[2]) == 4 {
			return fmt.Sprintf("%s-%s-%s", parts[2], padTwo(parts[1]), padTwo(parts[0]))
		}
	case 2:
		return fmt.Sprintf("%s-%s-01", parts[1], padTwo(parts[0]))
	}

	return dateStr
}

func padTwo(s string) string {
	if len(s) < 2 {
		return strings.Repeat("0", 2-len(s)) + s
	}
	return s
}
