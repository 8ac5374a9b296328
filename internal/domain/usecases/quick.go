// Package usecases - quick.go holds canned answers for stable, frequent questions.
package usecases

import "strings"

// QuickAnswer maps a canonical phrasing to a canned answer.
type QuickAnswer struct {
	Phrase string `yaml:"phrase"`
	Answer string `yaml:"answer"`
}

// DefaultQuickAnswers are checked in order; the first phrase contained in
// the lowercased query wins.
func DefaultQuickAnswers() []QuickAnswer {
	return []QuickAnswer{
		{
			Phrase: "how do i apply",
			Answer: "You can apply online at https://starcollegedurban.ed-space.net/onlineapplication.cfm. Enrollment requirements are listed at https://starboyshigh.co.za/enrollment/.",
		},
		{
			Phrase: "application form",
			Answer: "The online application form is at https://starcollegedurban.ed-space.net/onlineapplication.cfm.",
		},
		{
			Phrase: "contact details",
			Answer: "Contact details for the school are published at https://starboyshigh.co.za/contact-us/.",
		},
		{
			Phrase: "school website",
			Answer: "The school website is https://starboyshigh.co.za/.",
		},
		{
			Phrase: "dress code",
			Answer: "The uniform and dress code policy is at https://starboyshigh.co.za/uniform-and-dress-code/.",
		},
	}
}

// Topic categories with the words that signal them. Used for the
// "no information" answer and for query expansion.
var topicKeywords = []struct {
	Topic    string
	Keywords []string
}{
	{"results", []string{"result", "results", "pass rate", "distinction", "matric", "grade"}},
	{"history", []string{"history", "founded", "established", "began", "start"}},
	{"location", []string{"location", "address", "where", "situated", "located"}},
	{"contact", []string{"contact", "phone", "email", "call", "reach"}},
	{"admissions", []string{"admission", "enroll", "enrol", "apply", "application", "register"}},
	{"fees", []string{"fee", "fees", "tuition", "cost", "payment", "scholarship", "bursary"}},
	{"curriculum", []string{"curriculum", "subject", "course", "program", "study"}},
	{"facilities", []string{"facility", "campus", "building", "boarding", "laboratory"}},
}

// SupportedTopics lists the topic categories the assistant knows about.
func SupportedTopics() []string {
	out := make([]string, len(topicKeywords))
	for i, t := range topicKeywords {
		out[i] = t.Topic
	}
	return out
}

// DetectTopics returns the topic categories a query touches, in table order.
func DetectTopics(query string) []string {
	q := strings.ToLower(query)
	var out []string
	for _, t := range topicKeywords {
		for _, kw := range t.Keywords {
			if containsWord(q, kw) {
				out = append(out, t.Topic)
				break
			}
		}
	}
	return out
}

// ExpandQuery appends the keywords of every detected topic to the query.
func ExpandQuery(query string) string {
	topics := DetectTopics(query)
	if len(topics) == 0 {
		return query
	}
	seen := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ToLower(query)) {
		seen[tok] = struct{}{}
	}
	parts := []string{query}
	for _, t := range topicKeywords {
		if !contains(topics, t.Topic) {
			continue
		}
		for _, kw := range t.Keywords {
			if _, ok := seen[kw]; ok || strings.Contains(kw, " ") {
				continue
			}
			seen[kw] = struct{}{}
			parts = append(parts, kw)
		}
	}
	return strings.Join(parts, " ")
}

func matchQuickAnswer(answers []QuickAnswer, query string) (QuickAnswer, bool) {
	q := strings.ToLower(query)
	for _, qa := range answers {
		if qa.Phrase != "" && strings.Contains(q, strings.ToLower(qa.Phrase)) {
			return qa, true
		}
	}
	return QuickAnswer{}, false
}

// containsWord matches kw on word boundaries so "call" does not hit "recall".
func containsWord(text, kw string) bool {
	for start := 0; ; {
		i := strings.Index(text[start:], kw)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(kw)
		before := i == 0 || !isWordByte(text[i-1])
		after := end == len(text) || !isWordByte(text[end])
		if before && after {
			return true
		}
		start = i + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
