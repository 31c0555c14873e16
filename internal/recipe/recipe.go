// Package recipe defines the core recipe data model shared by the form
// codec, the mutation engine, the diff renderer, and the HTTP surface.
package recipe

import (
	"fmt"
	"strings"
)

// Recipe is a structured recipe. The same shape serves both the immutable
// Original captured at extraction time and the client-held Draft being
// edited; a Draft has no server-side identity and exists only as the form
// snapshot submitted with each request.
type Recipe struct {
	Name         string   `json:"name"`
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
	MakesMin     *int     `json:"makes_min,omitempty"`
	MakesMax     *int     `json:"makes_max,omitempty"`
	MakesUnit    string   `json:"makes_unit,omitempty"`
}

// ValidationError reports a recipe that violates a structural invariant.
// Field names the offending field so the UI can scope the error message.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the recipe's structural invariants: non-empty name, at
// least one non-empty ingredient and instruction, and MakesMin <= MakesMax
// when both are present.
func (r *Recipe) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return &ValidationError{Field: "name", Message: "recipe name is required"}
	}
	if !hasNonEmpty(r.Ingredients) {
		return &ValidationError{Field: "ingredients", Message: "at least one ingredient is required"}
	}
	if !hasNonEmpty(r.Instructions) {
		return &ValidationError{Field: "instructions", Message: "at least one instruction is required"}
	}
	return r.ValidateMakes()
}

// ValidateMakes checks only the makes-range invariant. The editing
// fragment cycle enforces it on every request, where blank list items
// and an unfinished name are still allowed.
func (r *Recipe) ValidateMakes() error {
	if r.MakesMin != nil && r.MakesMax != nil && *r.MakesMax < *r.MakesMin {
		return &ValidationError{
			Field:   "makes",
			Message: fmt.Sprintf("maximum quantity (%d) cannot be less than minimum quantity (%d)", *r.MakesMax, *r.MakesMin),
		}
	}
	return nil
}

func hasNonEmpty(items []string) bool {
	for _, it := range items {
		if strings.TrimSpace(it) != "" {
			return true
		}
	}
	return false
}

// Clone returns a deep copy. Mutations are copy-on-write at the Recipe
// level so a previously observed draft is never modified in place.
func (r *Recipe) Clone() *Recipe {
	out := &Recipe{
		Name:         r.Name,
		Ingredients:  append([]string(nil), r.Ingredients...),
		Instructions: append([]string(nil), r.Instructions...),
		MakesUnit:    r.MakesUnit,
	}
	if r.MakesMin != nil {
		v := *r.MakesMin
		out.MakesMin = &v
	}
	if r.MakesMax != nil {
		v := *r.MakesMax
		out.MakesMax = &v
	}
	return out
}

// Equal reports whether two recipes have identical content.
func (r *Recipe) Equal(other *Recipe) bool {
	if r == nil || other == nil {
		return r == other
	}
	if r.Name != other.Name || r.MakesUnit != other.MakesUnit {
		return false
	}
	if !intPtrEqual(r.MakesMin, other.MakesMin) || !intPtrEqual(r.MakesMax, other.MakesMax) {
		return false
	}
	return stringsEqual(r.Ingredients, other.Ingredients) &&
		stringsEqual(r.Instructions, other.Instructions)
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// MakesLabel renders the makes range as a single human-readable phrase,
// e.g. "4 servings", "2-4 cookies", "2+ loaves", "up to 6 pieces".
// Returns "" when no range is set.
func (r *Recipe) MakesLabel() string {
	if r.MakesMin == nil && r.MakesMax == nil {
		return ""
	}
	unit := r.MakesUnit
	if unit == "" {
		unit = "servings"
	}
	switch {
	case r.MakesMin != nil && r.MakesMax != nil && *r.MakesMin == *r.MakesMax:
		return fmt.Sprintf("%d %s", *r.MakesMin, unit)
	case r.MakesMin != nil && r.MakesMax != nil:
		return fmt.Sprintf("%d-%d %s", *r.MakesMin, *r.MakesMax, unit)
	case r.MakesMin != nil:
		return fmt.Sprintf("%d+ %s", *r.MakesMin, unit)
	default:
		return fmt.Sprintf("up to %d %s", *r.MakesMax, unit)
	}
}

// Markdown renders the canonical one-line-per-item representation: H1 name,
// a makes line when set, then bulleted ingredient and instruction sections.
// This is the text shown in the review panel and sent to the LLM.
func (r *Recipe) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", r.Name)
	if makes := r.MakesLabel(); makes != "" {
		fmt.Fprintf(&b, "**Makes:** %s\n\n", makes)
	}
	b.WriteString("## Ingredients\n")
	for _, ing := range r.Ingredients {
		fmt.Fprintf(&b, "- %s\n", ing)
	}
	b.WriteString("\n## Instructions\n")
	for _, inst := range r.Instructions {
		fmt.Fprintf(&b, "- %s\n", inst)
	}
	return b.String()
}
