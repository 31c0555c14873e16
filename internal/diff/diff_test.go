package diff

import (
	"testing"

	"github.com/mealdraft/mealdraft/internal/recipe"
)

func intp(v int) *int { return &v }

func base() *recipe.Recipe {
	return &recipe.Recipe{
		Name:         "Pancakes",
		Ingredients:  []string{"2 eggs", "1 cup flour"},
		Instructions: []string{"Mix", "Fry"},
	}
}

func TestSelfDiffIsAllUnchanged(t *testing.T) {
	r := base()
	diffs := Compute(r, r)
	if Changed(diffs) {
		t.Fatalf("self diff reported changes: %+v", diffs)
	}
	// name(1) + ingredients(2) + instructions(2); no makes line.
	if len(diffs) != 5 {
		t.Errorf("got %d lines, want 5", len(diffs))
	}
}

func TestDeleteIngredientReportsRemoved(t *testing.T) {
	original := base()
	draft := base()
	draft.Ingredients = []string{"1 cup flour"}

	diffs := Compute(original, draft)
	got := bySection(diffs, SectionIngredients)
	if len(got) != 2 {
		t.Fatalf("ingredient lines = %+v, want 2", got)
	}
	if got[0].Tag != TagRemoved || got[0].Text != "2 eggs" || got[0].OriginalIndex != 0 || got[0].DraftIndex != -1 {
		t.Errorf("line 0 = %+v, want removed '2 eggs'", got[0])
	}
	if got[1].Tag != TagUnchanged || got[1].Text != "1 cup flour" || got[1].DraftIndex != 0 {
		t.Errorf("line 1 = %+v, want unchanged '1 cup flour' at draft index 0", got[1])
	}
}

func TestReorderReportsRemovedThenInserted(t *testing.T) {
	original := base()
	draft := base()
	draft.Ingredients = []string{"1 cup flour", "2 eggs"}

	got := bySection(Compute(original, draft), SectionIngredients)

	// The moved line must not be reported unchanged in both positions;
	// exactly one line survives as unchanged, the other moves.
	var unchanged, removed, inserted int
	for _, d := range got {
		switch d.Tag {
		case TagUnchanged:
			unchanged++
		case TagRemoved:
			removed++
		case TagInserted:
			inserted++
		}
	}
	if unchanged != 1 || removed != 1 || inserted != 1 {
		t.Errorf("got unchanged=%d removed=%d inserted=%d, want 1/1/1: %+v", unchanged, removed, inserted, got)
	}
}

func TestSectionIsolation(t *testing.T) {
	original := base()
	draft := base()
	draft.Ingredients = []string{"3 eggs", "1 cup flour"}

	diffs := Compute(original, draft)
	for _, d := range bySection(diffs, SectionInstructions) {
		if d.Tag != TagUnchanged {
			t.Errorf("ingredient edit perturbed instructions diff: %+v", d)
		}
	}
	for _, d := range bySection(diffs, SectionName) {
		if d.Tag != TagUnchanged {
			t.Errorf("ingredient edit perturbed name diff: %+v", d)
		}
	}
}

func TestNameChange(t *testing.T) {
	original := base()
	draft := base()
	draft.Name = "Crepes"

	got := bySection(Compute(original, draft), SectionName)
	if len(got) != 2 {
		t.Fatalf("name lines = %+v, want removed+inserted", got)
	}
	if got[0].Tag != TagRemoved || got[0].Text != "Pancakes" {
		t.Errorf("line 0 = %+v", got[0])
	}
	if got[1].Tag != TagInserted || got[1].Text != "Crepes" {
		t.Errorf("line 1 = %+v", got[1])
	}
}

func TestMakesDiffedAsWholeValue(t *testing.T) {
	original := base()
	original.MakesMin = intp(2)
	original.MakesMax = intp(4)
	draft := base()
	draft.MakesMin = intp(2)
	draft.MakesMax = intp(6)

	got := bySection(Compute(original, draft), SectionMakes)
	if len(got) != 2 {
		t.Fatalf("makes lines = %+v, want removed+inserted", got)
	}
	if got[0].Tag != TagRemoved || got[0].Text != "Makes: 2-4 servings" {
		t.Errorf("line 0 = %+v", got[0])
	}
	if got[1].Tag != TagInserted || got[1].Text != "Makes: 2-6 servings" {
		t.Errorf("line 1 = %+v", got[1])
	}
}

func TestMakesAbsentProducesNoLines(t *testing.T) {
	diffs := Compute(base(), base())
	if lines := bySection(diffs, SectionMakes); len(lines) != 0 {
		t.Errorf("makes lines = %+v, want none", lines)
	}
}

func TestSectionDisplayOrder(t *testing.T) {
	original := base()
	original.MakesMin = intp(4)
	draft := original.Clone()

	order := map[Section]int{SectionName: 0, SectionMakes: 1, SectionIngredients: 2, SectionInstructions: 3}
	last := -1
	for _, d := range Compute(original, draft) {
		rank := order[d.Section]
		if rank < last {
			t.Fatalf("sections out of display order: %+v", d)
		}
		last = rank
	}
}

func TestDeterministic(t *testing.T) {
	original := base()
	draft := base()
	draft.Ingredients = []string{"1 cup flour", "2 eggs", "milk"}

	first := Compute(original, draft)
	for i := 0; i < 10; i++ {
		again := Compute(original, draft)
		if len(again) != len(first) {
			t.Fatal("diff length not deterministic")
		}
		for j := range first {
			if first[j] != again[j] {
				t.Fatalf("diff line %d differs between runs: %+v vs %+v", j, first[j], again[j])
			}
		}
	}
}

func TestSplitPanels(t *testing.T) {
	original := base()
	draft := base()
	draft.Ingredients = []string{"1 cup flour"}

	before, after := SplitPanels(Compute(original, draft))

	for _, d := range before {
		if d.Tag == TagInserted {
			t.Errorf("before panel contains inserted line: %+v", d)
		}
	}
	for _, d := range after {
		if d.Tag == TagRemoved {
			t.Errorf("after panel contains removed line: %+v", d)
		}
	}
	// Before keeps every original line, after keeps every draft line.
	if len(before) != 5 {
		t.Errorf("before panel = %d lines, want 5", len(before))
	}
	if len(after) != 4 {
		t.Errorf("after panel = %d lines, want 4", len(after))
	}
}

func bySection(diffs []FieldDiff, section Section) []FieldDiff {
	var out []FieldDiff
	for _, d := range diffs {
		if d.Section == section {
			out = append(out, d)
		}
	}
	return out
}
