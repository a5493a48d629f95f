// Package fallback answers queries from a fixed set of canned topics when
// the vector path cannot be used.
package fallback

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Topic is one canned knowledge entry. Topics are matched and rendered in
// ascending Order, then Key.
type Topic struct {
	Key       string   `yaml:"key" json:"key"`
	Order     int      `yaml:"order" json:"order"`
	Title     string   `yaml:"title" json:"title"`
	Content   string   `yaml:"content" json:"content"`
	Triggers  []string `yaml:"triggers" json:"triggers"`
	Citations []string `yaml:"citations" json:"citations"`
}

// Match is the merged output for every topic a query triggered.
type Match struct {
	Topics    []Topic
	Content   string
	Citations []string
}

type Matcher struct {
	topics []Topic
}

// NewMatcher copies and sorts topics; triggers are lower-cased once here.
func NewMatcher(topics []Topic) *Matcher {
	sorted := make([]Topic, 0, len(topics))
	for _, t := range topics {
		triggers := make([]string, 0, len(t.Triggers))
		for _, trig := range t.Triggers {
			if trig = strings.ToLower(strings.TrimSpace(trig)); trig != "" {
				triggers = append(triggers, trig)
			}
		}
		t.Triggers = triggers
		t.Citations = append([]string(nil), t.Citations...)
		sorted = append(sorted, t)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Order != sorted[j].Order {
			return sorted[i].Order < sorted[j].Order
		}
		return sorted[i].Key < sorted[j].Key
	})
	return &Matcher{topics: sorted}
}

// Topics returns the topics in match order.
func (m *Matcher) Topics() []Topic {
	out := make([]Topic, len(m.topics))
	copy(out, m.topics)
	return out
}

// Match returns ok=false when no topic is triggered; that is not an error.
func (m *Matcher) Match(query string) (Match, bool) {
	lower := strings.ToLower(query)
	if strings.TrimSpace(lower) == "" {
		return Match{}, false
	}

	var (
		result   Match
		contents []string
		seen     = make(map[string]struct{})
	)
	for _, t := range m.topics {
		if !triggered(lower, t.Triggers) {
			continue
		}
		result.Topics = append(result.Topics, t)
		contents = append(contents, strings.TrimSpace(t.Content))
		for _, c := range t.Citations {
			if _, dup := seen[c]; dup || c == "" {
				continue
			}
			seen[c] = struct{}{}
			result.Citations = append(result.Citations, c)
		}
	}
	if len(result.Topics) == 0 {
		return Match{}, false
	}
	result.Content = strings.Join(contents, "\n\n")
	return result, true
}

func triggered(query string, triggers []string) bool {
	for _, trig := range triggers {
		if strings.Contains(query, trig) {
			return true
		}
	}
	return false
}

type topicsFile struct {
	Topics []Topic `yaml:"topics"`
}

// LoadTopics reads topics from a YAML file of the form `topics: [...]`.
func LoadTopics(path string) ([]Topic, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fallback topics failed: %w", err)
	}
	var file topicsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode fallback topics failed: %w", err)
	}
	if len(file.Topics) == 0 {
		return nil, errors.New("fallback topics file has no topics")
	}
	for i, t := range file.Topics {
		if strings.TrimSpace(t.Key) == "" {
			return nil, fmt.Errorf("fallback topic %d has no key", i)
		}
		if len(t.Triggers) == 0 {
			return nil, fmt.Errorf("fallback topic %q has no triggers", t.Key)
		}
	}
	return file.Topics, nil
}
