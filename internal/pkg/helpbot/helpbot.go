package helpbot

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

const (
	// DefaultThreshold is the minimum cosine similarity for a direct answer
	DefaultThreshold = 0.75

	topK = 3

	fallbackReply = "I'm here to help! Could you please rephrase your question?"
)

// Role values used in the QA file. An empty role or RoleAll matches everyone.
const (
	RoleAll     = "all"
	RoleTutor   = "tutor"
	RoleStudent = "student"
)

// QA is one knowledge base entry.
type QA struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Role     string `json:"role,omitempty"`
}

func (q QA) visibleTo(role string) bool {
	return q.Role == "" || q.Role == RoleAll || role == "" || q.Role == role
}

// Match is a scored knowledge base hit.
type Match struct {
	QA    QA
	Score float64
}

// Answer is the responder's output.
type Answer struct {
	Reply   string
	Scores  []float64
	Matched bool
	Related []string
}

// Bot answers free-text questions by nearest-neighbour search over questions.
type Bot struct {
	entries   []QA
	vectors   []vector
	vec       *vectorizer
	threshold float64
}

// New indexes entries. threshold <= 0 selects DefaultThreshold.
func New(entries []QA, threshold float64) *Bot {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	questions := make([]string, len(entries))
	for i, e := range entries {
		questions[i] = e.Question
	}

	b := &Bot{entries: entries, vec: fit(questions), threshold: threshold}
	b.vectors = make([]vector, len(entries))
	for i, q := range questions {
		b.vectors[i] = b.vec.transform(q)
	}
	return b
}

// Load reads a QA JSON array from path and indexes it.
func Load(path string, threshold float64) (*Bot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read help entries: %w", err)
	}
	var entries []QA
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse help entries: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("help entries file %s is empty", path)
	}
	return New(entries, threshold), nil
}

// Size returns the number of indexed entries.
func (b *Bot) Size() int { return len(b.entries) }

// Search returns up to k entries visible to role, best first.
func (b *Bot) Search(query, role string, k int) []Match {
	q := b.vec.transform(query)
	if len(q) == 0 {
		return nil
	}

	var matches []Match
	for i, e := range b.entries {
		if !e.visibleTo(role) {
			continue
		}
		if score := q.dot(b.vectors[i]); score > 0 {
			matches = append(matches, Match{QA: e, Score: score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

// Ask answers query for a caller with role.
func (b *Bot) Ask(query, role string) Answer {
	matches := b.Search(strings.TrimSpace(query), role, topK)

	ans := Answer{Scores: make([]float64, 0, len(matches))}
	for _, m := range matches {
		ans.Scores = append(ans.Scores, m.Score)
	}

	if len(matches) > 0 && matches[0].Score >= b.threshold {
		ans.Reply = matches[0].QA.Answer
		ans.Matched = true
		return ans
	}

	ans.Reply = fallbackReply
	for _, m := range matches {
		ans.Related = append(ans.Related, m.QA.Question)
	}
	if len(ans.Related) > 0 {
		ans.Reply += " You might be asking about: " + strings.Join(ans.Related, "; ")
	}
	return ans
}
