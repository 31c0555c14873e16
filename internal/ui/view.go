package ui

import (
	"strconv"

	"github.com/mealdraft/mealdraft/internal/diff"
	"github.com/mealdraft/mealdraft/internal/formcodec"
	"github.com/mealdraft/mealdraft/internal/recipe"
	"github.com/mealdraft/mealdraft/internal/ui/templates"
)

// sectionListData builds the reorderable list fragment data for one
// section of the draft. errMsg renders inline above the rows.
func sectionListData(section string, items []string, errMsg string) templates.SectionListData {
	rows := make([]templates.ListRow, len(items))
	for i, v := range items {
		rows[i] = templates.ListRow{Index: i, Value: v}
	}
	return templates.SectionListData{
		Section:   section,
		Rows:      rows,
		Multiline: section == "instructions",
		Error:     errMsg,
	}
}

// hiddenOriginalFields flattens the original snapshot into the hidden
// inputs the editor form carries, in a stable field order.
func hiddenOriginalFields(original *recipe.Recipe) []templates.HiddenField {
	var out []templates.HiddenField
	add := func(name, value string) {
		out = append(out, templates.HiddenField{Name: formcodec.OriginalPrefix + name, Value: value})
	}
	add("name", original.Name)
	if original.MakesMin != nil {
		add("makes_min", strconv.Itoa(*original.MakesMin))
	}
	if original.MakesMax != nil {
		add("makes_max", strconv.Itoa(*original.MakesMax))
	}
	if original.MakesUnit != "" {
		add("makes_unit", original.MakesUnit)
	}
	for i, v := range original.Ingredients {
		add("ingredients["+strconv.Itoa(i)+"]", v)
	}
	for i, v := range original.Instructions {
		add("instructions["+strconv.Itoa(i)+"]", v)
	}
	return out
}

// panelLines converts one column of the split diff into display lines,
// inserting section headings and bulleting list items the way the saved
// markdown renders them.
func panelLines(column []diff.FieldDiff) []templates.DiffLine {
	var out []templates.DiffLine
	var current diff.Section
	for _, d := range column {
		if d.Section != current {
			current = d.Section
			switch current {
			case diff.SectionIngredients:
				out = append(out, templates.DiffLine{Tag: string(diff.TagUnchanged), Text: "Ingredients:"})
			case diff.SectionInstructions:
				out = append(out, templates.DiffLine{Tag: string(diff.TagUnchanged), Text: "Instructions:"})
			}
		}
		text := d.Text
		if d.Section == diff.SectionIngredients || d.Section == diff.SectionInstructions {
			text = "- " + text
		}
		out = append(out, templates.DiffLine{Tag: string(d.Tag), Text: text})
	}
	return out
}

// diffPanelData computes the review panel for original vs draft. oob
// marks the panel for out-of-band swapping alongside a list fragment.
func diffPanelData(original, draft *recipe.Recipe, oob bool) templates.DiffPanelData {
	before, after := diff.SplitPanels(diff.Compute(original, draft))
	return templates.DiffPanelData{
		Before: panelLines(before),
		After:  panelLines(after),
		OOB:    oob,
	}
}

// editorData assembles the full editor view for a draft against its
// original snapshot.
func editorData(original, draft *recipe.Recipe, prompt, errMsg, saved string) templates.EditorData {
	d := templates.EditorData{
		Name:         draft.Name,
		MakesUnit:    draft.MakesUnit,
		Ingredients:  sectionListData("ingredients", draft.Ingredients, ""),
		Instructions: sectionListData("instructions", draft.Instructions, ""),
		Original:     hiddenOriginalFields(original),
		Prompt:       prompt,
		Error:        errMsg,
		Saved:        saved,
		Diff:         diffPanelData(original, draft, false),
	}
	if draft.MakesMin != nil {
		d.MakesMin = strconv.Itoa(*draft.MakesMin)
	}
	if draft.MakesMax != nil {
		d.MakesMax = strconv.Itoa(*draft.MakesMax)
	}
	return d
}
