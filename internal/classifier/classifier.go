// Package classifier maps free-text expense descriptions to a category label.
//
// A Classifier never fails: whenever the label cannot be obtained it answers
// with its configured fallback label, so callers can always proceed.
package classifier

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"utgifter/internal/core"
)

// DefaultFallback is the label used when no answer can be obtained.
const DefaultFallback = "Övrigt"

// DefaultLabels mirrors the starter category set.
var DefaultLabels = []string{"Mat", "Transport", "Boende", "Nöje", "Övrigt"}

type Classifier interface {
	Classify(ctx context.Context, description string) string
}

// LabelSource supplies the set of labels the model may choose from.
type LabelSource interface {
	Labels(ctx context.Context) ([]string, error)
}

// StaticLabels is a fixed label set.
type StaticLabels []string

func (s StaticLabels) Labels(context.Context) ([]string, error) {
	return s, nil
}

// CategoryLister is the slice of the record store the live label source needs.
type CategoryLister interface {
	ListCategories(ctx context.Context) ([]core.Category, error)
}

type categoryLabels struct {
	lister CategoryLister
}

// CategoryLabels offers the names of the categories currently stored.
func CategoryLabels(lister CategoryLister) LabelSource {
	return categoryLabels{lister: lister}
}

func (c categoryLabels) Labels(ctx context.Context) ([]string, error) {
	cats, err := c.lister.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	labels := make([]string, len(cats))
	for i, cat := range cats {
		labels[i] = cat.Name
	}
	return labels, nil
}

// Fixed always answers with the same label; used when no inference
// endpoint is configured.
type Fixed string

func (f Fixed) Classify(context.Context, string) string {
	return string(f)
}

// BuildPrompt asks the model for exactly one of labels.
func BuildPrompt(description string, labels []string) string {
	return fmt.Sprintf("Kategorisera denna utgift: '%s'. Svara ENDAST med ett av dessa ord: %s.",
		strings.TrimSpace(description), strings.Join(labels, ", "))
}

// withFallback returns labels with fallback appended if it is missing.
func withFallback(labels []string, fallback string) []string {
	out := make([]string, 0, len(labels)+1)
	seen := false
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		if core.SameCategory(l, fallback) {
			seen = true
		}
		out = append(out, l)
	}
	if !seen {
		out = append(out, fallback)
	}
	return out
}

// NormalizeAnswer cleans up a model answer. If it names one of labels,
// alone or inside a longer sentence, that label is returned in its
// canonical spelling; otherwise the trimmed answer is returned as is.
func NormalizeAnswer(answer string, labels []string) string {
	answer = strings.TrimFunc(answer, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r) || r == '`'
	})
	if answer == "" {
		return ""
	}

	for _, l := range labels {
		if core.SameCategory(answer, l) {
			return l
		}
	}

	words := " " + strings.Join(tokens(answer), " ") + " "
	for _, l := range labels {
		lw := tokens(l)
		if len(lw) == 0 {
			continue
		}
		if strings.Contains(words, " "+strings.Join(lw, " ")+" ") {
			return l
		}
	}
	return answer
}

func tokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
