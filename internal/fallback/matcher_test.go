package fallback

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcher_SingleTopic(t *testing.T) {
	m := NewMatcher(DefaultTopics())

	match, ok := m.Match("How much PROTEIN should I eat?")

	require.True(t, ok)
	require.Len(t, match.Topics, 1)
	assert.Equal(t, "protein_intake", match.Topics[0].Key)
	assert.Contains(t, match.Citations, "Protein Intake")
	assert.Contains(t, match.Content, "lean muscle")
}

func TestMatcher_MultipleTopicsFollowOrder(t *testing.T) {
	m := NewMatcher(DefaultTopics())

	match, ok := m.Match("蛋白 and calorie deficit while I exercise")

	require.True(t, ok)
	require.Len(t, match.Topics, 3)
	assert.Equal(t, "caloric_deficit", match.Topics[0].Key)
	assert.Equal(t, "protein_intake", match.Topics[1].Key)
	assert.Equal(t, "exercise", match.Topics[2].Key)

	want := match.Topics[0].Content + "\n\n" + match.Topics[1].Content + "\n\n" + match.Topics[2].Content
	assert.Equal(t, want, match.Content)
}

func TestMatcher_CitationsAreUnionWithoutDuplicates(t *testing.T) {
	m := NewMatcher(DefaultTopics())

	match, ok := m.Match("protein during a plateau")

	require.True(t, ok)
	var want []string
	seen := map[string]bool{}
	for _, topic := range match.Topics {
		for _, c := range topic.Citations {
			if !seen[c] {
				seen[c] = true
				want = append(want, c)
			}
		}
	}
	assert.ElementsMatch(t, want, match.Citations)
	// International Journal of Obesity is cited by both topics.
	count := 0
	for _, c := range match.Citations {
		if c == "International Journal of Obesity" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestMatcher_NoMatch(t *testing.T) {
	m := NewMatcher(DefaultTopics())

	_, ok := m.Match("what's the weather like")
	assert.False(t, ok)

	_, ok = m.Match("   ")
	assert.False(t, ok)
}

func TestMatcher_OrderIsExplicitNotInsertion(t *testing.T) {
	topics := []Topic{
		{Key: "b", Order: 2, Content: "second", Triggers: []string{"x"}},
		{Key: "a", Order: 2, Content: "first", Triggers: []string{"X"}},
		{Key: "z", Order: 1, Content: "zeroth", Triggers: []string{"x"}},
	}

	match, ok := NewMatcher(topics).Match("x marks the spot")

	require.True(t, ok)
	assert.Equal(t, "zeroth\n\nfirst\n\nsecond", match.Content)
}

func TestLoadTopics(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "topics.yaml")
	content := `topics:
  - key: hydration
    order: 5
    title: Hydration
    content: Drink water before meals.
    triggers: [water, 喝水]
    citations: [Hydration, Obesity Journal]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	topics, err := LoadTopics(path)
	require.NoError(t, err)
	require.Len(t, topics, 1)

	match, ok := NewMatcher(topics).Match("should I drink WATER?")
	require.True(t, ok)
	assert.Equal(t, []string{"Hydration", "Obesity Journal"}, match.Citations)
}

func TestLoadTopics_Invalid(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadTopics(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("topics:\n  - key: x\n"), 0o600))
	_, err = LoadTopics(path)
	assert.ErrorContains(t, err, "no triggers")
}

func TestLoadTopics_SampleFile(t *testing.T) {
	topics, err := LoadTopics(filepath.Join("..", "..", "configs", "fallback_topics.yaml"))
	require.NoError(t, err)
	assert.Len(t, topics, len(DefaultTopics()))

	match, ok := NewMatcher(topics).Match("HIIT workout")
	require.True(t, ok)
	assert.Equal(t, "exercise", match.Topics[0].Key)
}
