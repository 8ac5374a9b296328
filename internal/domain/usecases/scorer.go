// Package usecases - scorer.go implements the lexical relevance score.
package usecases

import (
	"math"
	"strings"
	"unicode"
)

// Scoring weights. Bonuses are expressed in exact-match units so that
// appending another matching token can only raise the score.
const (
	exactWeight    = 3.0
	partialWeight  = 1.0
	bigramBonus    = 0.5
	trigramBonus   = 1.0
	domainBonus    = 0.25
	scoreCeiling   = 2.0
	scorePrecision = 1000.0
	minTokenLength = 3
)

var stopWords = toSet(
	"a", "an", "the", "is", "are", "was", "were", "be", "been", "being", "am",
	"do", "does", "did", "of", "to", "in", "on", "at", "by", "for", "with",
	"about", "from", "into", "and", "or", "but", "if", "then", "so", "than",
	"what", "when", "where", "who", "whom", "which", "why", "how", "this",
	"that", "these", "those", "it", "its", "can", "could", "should", "would",
	"will", "shall", "may", "might", "must", "have", "has", "had", "i", "me",
	"my", "you", "your", "we", "our", "they", "their", "them", "he", "she",
	"his", "her", "there", "here", "tell", "please", "any", "some", "all",
	"also", "just", "know", "like", "want", "need", "get", "give", "not", "no",
)

// domainVocabulary is the closed set of school terms that earn a bonus.
var domainVocabulary = toSet(
	"school", "college", "grade", "grades", "curriculum", "admission",
	"admissions", "enrol", "enroll", "enrollment", "enrolment", "application",
	"fee", "fees", "tuition", "bursary", "scholarship", "scholarships",
	"matric", "results", "pass", "distinction", "distinctions", "subject",
	"subjects", "teacher", "teachers", "student", "students", "learner",
	"learners", "principal", "campus", "boarding", "hostel", "uniform",
	"sport", "sports", "olympiad", "olympiads", "founded", "history",
	"facility", "facilities", "laboratory", "library", "contact", "address",
	"term", "calendar", "academic", "activities",
)

// Score rates how well query matches text. Pure and deterministic;
// returns 0 for an empty query, empty text or a query of only stop words.
func Score(query, text string) float64 {
	tokens := queryTokens(query)
	if len(tokens) == 0 || strings.TrimSpace(text) == "" {
		return 0
	}

	lowered := strings.ToLower(text)
	textTokens := tokenize(lowered)

	var exact, partial float64
	var bonus float64
	for _, tok := range tokens {
		contained := strings.Contains(lowered, tok)
		if contained {
			exact++
		}
		if contained || partiallyMatches(tok, textTokens) {
			partial++
		}
		if contained {
			if _, ok := domainVocabulary[tok]; ok {
				bonus += domainBonus
			}
		}
	}
	bonus += phraseBonus(tokens, lowered)

	n := float64(len(tokens))
	score := (exactWeight*exact+partialWeight*partial)/(exactWeight*n) + bonus/exactWeight
	if score > scoreCeiling {
		score = scoreCeiling
	}
	return math.Round(score*scorePrecision) / scorePrecision
}

// queryTokens lowercases, tokenizes and filters the query.
func queryTokens(query string) []string {
	raw := tokenize(strings.ToLower(query))
	out := raw[:0]
	for _, tok := range raw {
		if len([]rune(tok)) < minTokenLength {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// tokenize splits on whitespace and trims punctuation from token edges.
func tokenize(s string) []string {
	fields := strings.Fields(s)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func partiallyMatches(tok string, textTokens []string) bool {
	for _, tt := range textTokens {
		if strings.Contains(tt, tok) || (len([]rune(tt)) >= minTokenLength && strings.Contains(tok, tt)) {
			return true
		}
	}
	return false
}

// phraseBonus rewards contiguous query 2-grams and 3-grams found verbatim.
func phraseBonus(tokens []string, lowered string) float64 {
	var bonus float64
	for i := 0; i+1 < len(tokens); i++ {
		if strings.Contains(lowered, tokens[i]+" "+tokens[i+1]) {
			bonus += bigramBonus
		}
		if i+2 < len(tokens) && strings.Contains(lowered, tokens[i]+" "+tokens[i+1]+" "+tokens[i+2]) {
			bonus += trigramBonus
		}
	}
	return bonus
}

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
