package summary

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"

	"github.com/linzo/meet/internal/domain"
)

const (
	recentWindow   = 30
	topTermCount   = 5
	topicTermCount = 3
	bucketTail     = 5
	actionTail     = 3
	minTokenLen    = 3
)

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(
		"the a an and or but if then so to of in on for at by with about into from up down over under again further once " +
			"is am are was were be been being do does did doing have has had having it its this that these those as not no yes " +
			"i you he she we they me him her us them my your his their our mine yours hers theirs ours") {
		stopWords[w] = struct{}{}
	}
}

var (
	tokenRe  = regexp.MustCompile(`[\p{L}\p{N}]+`)
	actionRe = regexp.MustCompile(`(?i)\b(will|should|let'?s|plan|next|todo|follow\s*up)\b`)
)

type clause struct {
	speaker string
	text    string
}

// compose builds the narrative paragraph from the recent log: a topic
// sentence from the top terms, one clause per speaker, the key terms and any
// tentative actions.
func (a *Aggregator) compose() string {
	start := len(a.entries) - recentWindow
	if start < 0 {
		start = 0
	}
	recent := a.entries[start:]

	utterances := make([]clause, 0, len(recent))
	for _, e := range recent {
		text := strings.TrimSpace(e.Translated)
		if text == "" {
			text = strings.TrimSpace(e.Original)
		}
		if text == "" {
			continue
		}
		speaker := a.peerLabel
		if e.Speaker == domain.SpeakerSelf {
			speaker = a.youLabel
		}
		utterances = append(utterances, clause{speaker: speaker, text: text})
	}
	if len(utterances) == 0 {
		return emptyNarrative
	}

	topTerms := rankTerms(utterances)

	topicSentence := "The discussion covers multiple topics."
	if len(topTerms) > 0 {
		n := topicTermCount
		if len(topTerms) < n {
			n = len(topTerms)
		}
		topicSentence = fmt.Sprintf("The discussion primarily focuses on %s.", strings.Join(topTerms[:n], ", "))
	}

	buckets := lo.GroupBy(utterances, func(u clause) string { return u.speaker })
	youSummary := clip(buckets[a.youLabel])
	peerSummary := clip(buckets[a.peerLabel])

	var speakerParts []string
	if youSummary != "" {
		speakerParts = append(speakerParts, fmt.Sprintf("%s discusses %s", a.youLabel, youSummary))
	}
	if peerSummary != "" {
		speakerParts = append(speakerParts, fmt.Sprintf("%s responds with %s", a.peerLabel, peerSummary))
	}
	speakerSentence := strings.Join(speakerParts, " ")

	keyPointsSentence := ""
	if len(topTerms) > 0 {
		keyPointsSentence = fmt.Sprintf("Key points include %s.", strings.Join(topTerms, ", "))
	}

	actions := lo.Filter(utterances, func(u clause, _ int) bool { return actionRe.MatchString(u.text) })
	actionsSentence := ""
	if len(actions) > 0 {
		tail := actions
		if len(tail) > actionTail {
			tail = tail[len(tail)-actionTail:]
		}
		texts := lo.Map(tail, func(u clause, _ int) string { return u.text })
		actionsSentence = fmt.Sprintf("Potential actions mentioned: %s.", strings.Join(texts, " "))
	}

	parts := lo.Filter(
		[]string{topicSentence, speakerSentence, keyPointsSentence, actionsSentence},
		func(s string, _ int) bool { return s != "" },
	)
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

// rankTerms extracts the most frequent meaningful tokens across utterances.
func rankTerms(utterances []clause) []string {
	freq := map[string]int{}
	for _, u := range utterances {
		for _, tok := range tokenRe.FindAllString(strings.ToLower(u.text), -1) {
			if utf8.RuneCountInString(tok) < minTokenLen {
				continue
			}
			if _, stop := stopWords[tok]; stop {
				continue
			}
			freq[tok]++
		}
	}
	terms := lo.Keys(freq)
	sort.Slice(terms, func(i, j int) bool {
		if freq[terms[i]] != freq[terms[j]] {
			return freq[terms[i]] > freq[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > topTermCount {
		terms = terms[:topTermCount]
	}
	return terms
}

// clip reduces a speaker's recent texts to one or two concise clauses.
func clip(texts []clause) string {
	if len(texts) == 0 {
		return ""
	}
	tail := texts
	if len(tail) > bucketTail {
		tail = tail[len(tail)-bucketTail:]
	}
	joined := strings.Join(lo.Map(tail, func(u clause, _ int) string { return u.text }), " ")
	sentences := splitSentences(joined)
	if len(sentences) > 2 {
		sentences = sentences[:2]
	}
	return strings.Join(sentences, " ")
}

// splitSentences breaks text after terminal punctuation followed by a space.
func splitSentences(text string) []string {
	var out []string
	start := 0
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '.', '!', '?':
			if i+1 < len(runes) && runes[i+1] == ' ' {
				out = append(out, strings.TrimSpace(string(runes[start:i+1])))
				start = i + 2
				i++
			}
		}
	}
	if start < len(runes) {
		if rest := strings.TrimSpace(string(runes[start:])); rest != "" {
			out = append(out, rest)
		}
	}
	return out
}
