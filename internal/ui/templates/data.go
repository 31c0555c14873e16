package templates

import "io"

var set = MustParse("base.tmpl")

// Render executes the named template against the shared parsed set.
func Render(w io.Writer, name string, data any) error {
	return set.ExecuteTemplate(w, name, data)
}

// ListRow is one editable item in an ingredient or instruction list. Index
// is the item's position in the decoded draft, and is what the form field
// name and the drag-reorder payload carry.
type ListRow struct {
	Index int
	Value string
}

// SectionListData drives section_list.tmpl: a reorderable list fragment
// for one recipe section. Multiline selects textarea rows over text
// inputs. Error, when set, renders inline above the rows.
type SectionListData struct {
	Section   string
	Rows      []ListRow
	Multiline bool
	Error     string
}

// DiffLine is one rendered line of the review panel.
type DiffLine struct {
	Tag  string // "unchanged", "removed", or "inserted"
	Text string
}

// DiffPanelData drives diff_panel.tmpl. OOB marks the panel as an
// out-of-band swap so list mutation responses can refresh it alongside
// the mutated list fragment. When Error is set the panel shows it in
// place of the review columns.
type DiffPanelData struct {
	Before []DiffLine
	After  []DiffLine
	OOB    bool
	Error  string
}

// HiddenField is a hidden input carried through the editor form,
// used for the original_* baseline snapshot.
type HiddenField struct {
	Name  string
	Value string
}

// EditorData drives editor.tmpl, the full recipe editing page.
type EditorData struct {
	Name         string
	MakesMin     string
	MakesMax     string
	MakesUnit    string
	Ingredients  SectionListData
	Instructions SectionListData
	Original     []HiddenField
	Prompt       string
	Error        string
	Saved        string
	Diff         DiffPanelData
}

// TextAreaData drives fetch_text.tmpl.
type TextAreaData struct {
	Text  string
	Error string
}

// ExtractPageData drives extract.tmpl, the landing page.
type ExtractPageData struct {
	URL      string
	Error    string
	TextArea TextAreaData
}

// SavedView is one row on the saved recipes page.
type SavedView struct {
	ID         int64
	Name       string
	MakesLabel string
	UpdatedAt  string
}

// RecipeListData drives recipe_list.tmpl.
type RecipeListData struct {
	Recipes []SavedView
}

// SaveResultData drives save_result.tmpl.
type SaveResultData struct {
	Message string
	Error   string
}
