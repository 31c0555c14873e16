// Package diff computes the structural diff between the immutable original
// recipe and the current draft. Each section is diffed independently with
// a longest-common-subsequence matcher so a change in one section never
// perturbs another's diff. The result is deterministic for identical
// inputs (standard LCS left bias).
package diff

import (
	"github.com/pmezard/go-difflib/difflib"

	"github.com/mealdraft/mealdraft/internal/recipe"
)

// Tag classifies one diff line.
type Tag string

const (
	TagUnchanged Tag = "unchanged"
	TagRemoved   Tag = "removed"
	TagInserted  Tag = "inserted"
)

// Section identifies the recipe section a diff line belongs to. Sections
// appear in display order: name, makes, ingredients, instructions.
type Section string

const (
	SectionName         Section = "name"
	SectionMakes        Section = "makes"
	SectionIngredients  Section = "ingredients"
	SectionInstructions Section = "instructions"
)

// FieldDiff is one line of the rendered diff. OriginalIndex is the line's
// position within its section of the original (-1 for inserted lines);
// DraftIndex is its position within the draft (-1 for removed lines).
type FieldDiff struct {
	Section       Section
	Tag           Tag
	Text          string
	OriginalIndex int
	DraftIndex    int
}

// Compute diffs draft against original and returns the concatenated
// per-section edit scripts in display order. Pure function; both inputs
// are read-only. Callers pass validated recipes — the matcher itself
// cannot fail.
func Compute(original, draft *recipe.Recipe) []FieldDiff {
	var out []FieldDiff
	out = append(out, diffSection(SectionName, nameLines(original), nameLines(draft))...)
	out = append(out, diffSection(SectionMakes, makesLines(original), makesLines(draft))...)
	out = append(out, diffSection(SectionIngredients, original.Ingredients, draft.Ingredients)...)
	out = append(out, diffSection(SectionInstructions, original.Instructions, draft.Instructions)...)
	return out
}

// Changed reports whether the diff contains any non-unchanged line.
func Changed(diffs []FieldDiff) bool {
	for _, d := range diffs {
		if d.Tag != TagUnchanged {
			return true
		}
	}
	return false
}

// SplitPanels partitions a diff into the two review columns: the before
// panel shows unchanged and removed lines in original order, the after
// panel shows unchanged and inserted lines in draft order.
func SplitPanels(diffs []FieldDiff) (before, after []FieldDiff) {
	for _, d := range diffs {
		switch d.Tag {
		case TagUnchanged:
			before = append(before, d)
			after = append(after, d)
		case TagRemoved:
			before = append(before, d)
		case TagInserted:
			after = append(after, d)
		}
	}
	return before, after
}

func nameLines(r *recipe.Recipe) []string {
	return []string{r.Name}
}

// makesLines synthesizes the makes range as a single whole-value line;
// min, max and unit are reported together, not per sub-field.
func makesLines(r *recipe.Recipe) []string {
	label := r.MakesLabel()
	if label == "" {
		return nil
	}
	return []string{"Makes: " + label}
}

// diffSection runs the LCS matcher over one section's lines. Replace
// opcodes expand to the removed originals followed by the inserted draft
// lines, so a moved line reports as removed-then-inserted rather than
// unchanged.
func diffSection(section Section, a, b []string) []FieldDiff {
	var out []FieldDiff
	matcher := difflib.NewMatcher(a, b)
	for _, op := range matcher.GetOpCodes() {
		switch op.Tag {
		case 'e':
			for k := 0; k < op.I2-op.I1; k++ {
				out = append(out, FieldDiff{
					Section:       section,
					Tag:           TagUnchanged,
					Text:          a[op.I1+k],
					OriginalIndex: op.I1 + k,
					DraftIndex:    op.J1 + k,
				})
			}
		case 'r', 'd':
			for i := op.I1; i < op.I2; i++ {
				out = append(out, FieldDiff{
					Section:       section,
					Tag:           TagRemoved,
					Text:          a[i],
					OriginalIndex: i,
					DraftIndex:    -1,
				})
			}
			if op.Tag == 'r' {
				for j := op.J1; j < op.J2; j++ {
					out = append(out, FieldDiff{
						Section:       section,
						Tag:           TagInserted,
						Text:          b[j],
						OriginalIndex: -1,
						DraftIndex:    j,
					})
				}
			}
		case 'i':
			for j := op.J1; j < op.J2; j++ {
				out = append(out, FieldDiff{
					Section:       section,
					Tag:           TagInserted,
					Text:          b[j],
					OriginalIndex: -1,
					DraftIndex:    j,
				})
			}
		}
	}
	return out
}
