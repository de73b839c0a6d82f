package recommendation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/binhbb2204/litverse/internal/apierr"
)

const (
	SourceLLM      = "llm"
	SourceFallback = "fallback"

	MaxRecommendations = 5
)

// Profile is what the prompt knows about a reader.
type Profile struct {
	FavoriteGenres []string
	ReadingSpeed   int
	RecentBooks    []RecentBook
}

type RecentBook struct {
	Title  string
	Author string
	Genres []string
}

type Request struct {
	Profile *Profile // nil for mood-only requests
	Mood    string
	Context string
	Limit   int
}

// Suggestion is one title proposed by a provider, before catalog resolution.
type Suggestion struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Reason      string `json:"reason"`
	ReadingTime string `json:"readingTime"`
	MoodMatch   string `json:"moodMatch"`
	Genre       string `json:"genre"`
}

type Provider interface {
	Name() string
	Suggest(ctx context.Context, req Request) ([]Suggestion, error)
}

// UpstreamError marks a failed or unparseable call to the text generator.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string     { return "recommendation service unavailable: " + e.Err.Error() }
func (e *UpstreamError) Unwrap() error     { return e.Err }
func (e *UpstreamError) Kind() apierr.Kind { return apierr.KindUpstreamUnavailable }

// LLMBackedProvider asks a text generator for suggestions, guarded by a circuit breaker.
type LLMBackedProvider struct {
	generator TextGenerator
	breaker   *CircuitBreaker
}

func NewLLMBackedProvider(generator TextGenerator, breaker *CircuitBreaker) *LLMBackedProvider {
	return &LLMBackedProvider{generator: generator, breaker: breaker}
}

func (p *LLMBackedProvider) Name() string { return SourceLLM }

func (p *LLMBackedProvider) Suggest(ctx context.Context, req Request) ([]Suggestion, error) {
	var text string
	call := func() error {
		var err error
		text, err = p.generator.GenerateText(ctx, systemPrompt, BuildPrompt(req))
		return err
	}
	var err error
	if p.breaker != nil {
		err = p.breaker.Call(call)
	} else {
		err = call()
	}
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}
	suggestions, err := ParseSuggestions(text)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}
	return suggestions, nil
}

const systemPrompt = "You are a literary expert. Reply with a JSON array only, no prose."

// BuildPrompt renders the templated request sent to the generator.
func BuildPrompt(req Request) string {
	limit := req.Limit
	if limit <= 0 {
		limit = MaxRecommendations
	}
	mood := req.Mood
	if mood == "" {
		mood = "Not specified"
	}

	var b strings.Builder
	if req.Profile == nil {
		fmt.Fprintf(&b, "Recommend %d books that match the mood: %q.\n", limit, mood)
		b.WriteString("Consider books that evoke or complement this mood across different genres, both uplifting and contemplative.\n")
		b.WriteString("Format as a JSON array of objects with: title, author, moodMatch, genre, reason\n")
		return b.String()
	}

	p := req.Profile
	genres := "Any"
	if len(p.FavoriteGenres) > 0 {
		genres = strings.Join(p.FavoriteGenres, ", ")
	}
	ctxText := req.Context
	if ctxText == "" {
		ctxText = "General reading"
	}
	fmt.Fprintf(&b, "Recommend %d books for a reader with the following profile:\n", limit)
	fmt.Fprintf(&b, "Favorite Genres: %s\n", genres)
	fmt.Fprintf(&b, "Reading Speed: %d words per minute\n", p.ReadingSpeed)
	fmt.Fprintf(&b, "Current Mood: %s\n", mood)
	fmt.Fprintf(&b, "Context: %s\n", ctxText)
	if len(p.RecentBooks) > 0 {
		b.WriteString("Recently Read Books:\n")
		for _, rb := range p.RecentBooks {
			fmt.Fprintf(&b, "- %q by %s (%s)\n", rb.Title, rb.Author, strings.Join(rb.Genres, ", "))
		}
	}
	b.WriteString("For each book give the title and author, a brief reason, the expected reading time and the mood match.\n")
	b.WriteString("Format as a JSON array of objects with: title, author, reason, readingTime, moodMatch\n")
	return b.String()
}

// ParseSuggestions extracts the JSON array from a completion, tolerating code fences and surrounding prose.
func ParseSuggestions(text string) ([]Suggestion, error) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array in completion")
	}
	var raw []Suggestion
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("decode suggestions: %w", err)
	}
	out := make([]Suggestion, 0, len(raw))
	for _, s := range raw {
		s.Title = strings.TrimSpace(s.Title)
		s.Author = strings.TrimSpace(s.Author)
		if s.Title == "" {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// StaticFallbackProvider serves a fixed list when no generator is usable.
type StaticFallbackProvider struct {
	suggestions []Suggestion
}

func NewStaticFallbackProvider() *StaticFallbackProvider {
	return &StaticFallbackProvider{suggestions: []Suggestion{
		{Title: "The Great Gatsby", Author: "F. Scott Fitzgerald", Reason: "Classic literature that matches your reading preferences", ReadingTime: "4-5 hours", MoodMatch: "Thoughtful and reflective"},
		{Title: "1984", Author: "George Orwell", Reason: "Dystopian fiction that challenges your thinking", ReadingTime: "5-6 hours", MoodMatch: "Intense and thought-provoking"},
		{Title: "Pride and Prejudice", Author: "Jane Austen", Reason: "A witty romance that rewards a careful reader", ReadingTime: "7-8 hours", MoodMatch: "Light and charming"},
		{Title: "The Hobbit", Author: "J.R.R. Tolkien", Reason: "An adventure that suits almost any mood", ReadingTime: "6-7 hours", MoodMatch: "Adventurous"},
		{Title: "To Kill a Mockingbird", Author: "Harper Lee", Reason: "A moving story about justice and growing up", ReadingTime: "6-7 hours", MoodMatch: "Reflective"},
	}}
}

func (p *StaticFallbackProvider) Name() string { return SourceFallback }

func (p *StaticFallbackProvider) Suggest(_ context.Context, req Request) ([]Suggestion, error) {
	limit := req.Limit
	if limit <= 0 || limit > len(p.suggestions) {
		limit = len(p.suggestions)
	}
	out := make([]Suggestion, limit)
	copy(out, p.suggestions[:limit])
	return out, nil
}
