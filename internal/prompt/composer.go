// Package prompt assembles generation requests from persona, profile,
// retrieved research and conversation history.
package prompt

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"bodymind-ai/internal/ai"
	"bodymind-ai/internal/knowledge"
	"bodymind-ai/internal/memory"
)

// DefaultHistoryTurns is how many stored turns are sent to the generator.
const DefaultHistoryTurns = 10

const DefaultPersona = `You are a science-based AI fat loss expert. Your role is to provide evidence-based, personalized advice for sustainable fat loss and health improvement.

Core Principles:
1. Always prioritize safety and health over rapid results
2. Base recommendations on scientific research
3. Consider individual differences and limitations
4. Promote sustainable lifestyle changes over quick fixes
5. Encourage consulting healthcare professionals for medical concerns`

const groundingInstructions = `Answer using the research above. Cite the specific findings and their sources, keep recommendations evidence-based, and point out where studies disagree.`

const responseGuidelines = `Response Guidelines:
- Be conversational but professional
- Provide specific, actionable advice
- Ask clarifying questions when needed
- Keep responses focused and practical`

const notSpecified = "Not specified"

// UserProfile is the optional personal context rendered into the system prompt.
type UserProfile struct {
	Age            int               `json:"age,omitempty"`
	Gender         string            `json:"gender,omitempty"`
	WeightKg       float64           `json:"weight,omitempty"`
	HeightCm       float64           `json:"height,omitempty"`
	ActivityLevel  string            `json:"activity_level,omitempty"`
	Goal           string            `json:"goal,omitempty"`
	TargetWeightKg float64           `json:"target_weight,omitempty"`
	Extra          map[string]string `json:"extra,omitempty"`
}

// Empty reports whether the profile carries nothing worth rendering.
func (p *UserProfile) Empty() bool {
	return p == nil || (p.Age == 0 && p.Gender == "" && p.WeightKg == 0 && p.HeightCm == 0 &&
		p.ActivityLevel == "" && p.Goal == "" && p.TargetWeightKg == 0 && len(p.Extra) == 0)
}

type Input struct {
	Profile     *UserProfile
	Retrieval   *knowledge.RetrievalResult
	History     []memory.Turn
	UserMessage string
}

// Request is the composed generation request.
type Request struct {
	SystemPrompt string           `json:"system_prompt"`
	History      []ai.ChatMessage `json:"history"`
	UserMessage  string           `json:"user_message"`
}

type Composer struct {
	persona      string
	historyTurns int
}

func NewComposer(persona string, historyTurns int) *Composer {
	if strings.TrimSpace(persona) == "" {
		persona = DefaultPersona
	}
	if historyTurns <= 0 {
		historyTurns = DefaultHistoryTurns
	}
	return &Composer{persona: persona, historyTurns: historyTurns}
}

// Compose is a pure function of its input: equal inputs give equal requests.
func (c *Composer) Compose(in Input) Request {
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(c.persona))

	if !in.Profile.Empty() {
		sb.WriteString("\n\n")
		writeProfile(&sb, in.Profile)
	}

	if !in.Retrieval.Empty() {
		sb.WriteString("\n\n")
		writeResearch(&sb, in.Retrieval)
		sb.WriteString("\n\n")
		sb.WriteString(groundingInstructions)
	}

	sb.WriteString("\n\n")
	sb.WriteString(responseGuidelines)

	return Request{
		SystemPrompt: sb.String(),
		History:      memory.ToChatMessages(in.History, c.historyTurns),
		UserMessage:  strings.TrimSpace(in.UserMessage),
	}
}

func writeProfile(sb *strings.Builder, p *UserProfile) {
	sb.WriteString("User Profile:\n")
	fmt.Fprintf(sb, "- Age: %s\n", intOr(p.Age))
	fmt.Fprintf(sb, "- Gender: %s\n", stringOr(p.Gender))
	fmt.Fprintf(sb, "- Weight: %s\n", measureOr(p.WeightKg, "kg"))
	fmt.Fprintf(sb, "- Height: %s\n", measureOr(p.HeightCm, "cm"))
	fmt.Fprintf(sb, "- Activity Level: %s\n", stringOr(p.ActivityLevel))
	fmt.Fprintf(sb, "- Goal: %s\n", stringOr(p.Goal))
	if p.TargetWeightKg > 0 {
		fmt.Fprintf(sb, "- Target Weight: %s\n", measureOr(p.TargetWeightKg, "kg"))
	}

	keys := make([]string, 0, len(p.Extra))
	for k := range p.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(sb, "- %s: %s\n", k, stringOr(p.Extra[k]))
	}
	sb.WriteString("\nPersonalize your advice based on this profile.")
}

func writeResearch(sb *strings.Builder, r *knowledge.RetrievalResult) {
	sb.WriteString("## Relevant Research\n")
	for i, hit := range r.Hits {
		if i > 0 {
			sb.WriteString("\n")
		}
		title := hit.Chunk.Title
		if title == "" {
			title = "Untitled"
		}
		fmt.Fprintf(sb, "### %s\n", title)
		if hit.Chunk.Source != "" {
			fmt.Fprintf(sb, "Source: %s\n", hit.Chunk.Source)
		}
		sb.WriteString(strings.TrimSpace(hit.Chunk.Text))
		sb.WriteString("\n")
	}
}

func intOr(v int) string {
	if v <= 0 {
		return notSpecified
	}
	return strconv.Itoa(v)
}

func stringOr(v string) string {
	if strings.TrimSpace(v) == "" {
		return notSpecified
	}
	return v
}

func measureOr(v float64, unit string) string {
	if v <= 0 {
		return notSpecified
	}
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + unit
}
