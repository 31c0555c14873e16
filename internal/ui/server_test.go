package ui

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/mealdraft/mealdraft/internal/recipe"
	"github.com/mealdraft/mealdraft/internal/store"
)

type fakeAI struct {
	extract func(ctx context.Context, text string) (*recipe.Recipe, error)
	modify  func(ctx context.Context, current *recipe.Recipe, request string) (*recipe.Recipe, error)
}

func (f *fakeAI) ExtractRecipe(ctx context.Context, text string) (*recipe.Recipe, error) {
	return f.extract(ctx, text)
}

func (f *fakeAI) ModifyRecipe(ctx context.Context, current *recipe.Recipe, request string) (*recipe.Recipe, error) {
	return f.modify(ctx, current, request)
}

type fakeStore struct {
	saved   []*recipe.Recipe
	saveErr error
	listed  []*store.Saved
	deleted []int64
}

func (f *fakeStore) Save(ctx context.Context, r *recipe.Recipe) (int64, error) {
	if f.saveErr != nil {
		return 0, f.saveErr
	}
	if err := r.Validate(); err != nil {
		return 0, err
	}
	f.saved = append(f.saved, r)
	return int64(len(f.saved)), nil
}

func (f *fakeStore) Get(ctx context.Context, id int64) (*store.Saved, error) {
	for _, sv := range f.listed {
		if sv.ID == id {
			return sv, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) List(ctx context.Context) ([]*store.Saved, error) {
	return f.listed, nil
}

func (f *fakeStore) Delete(ctx context.Context, id int64) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func testServer(ai RecipeAI, st RecipeStore) http.Handler {
	return NewServer(ai, st, nil).Handler()
}

// draftForm builds the flat form an editor page would post: current
// fields plus the original_* baseline snapshot.
func draftForm(original, draft *recipe.Recipe) url.Values {
	v := url.Values{}
	set := func(prefix string, r *recipe.Recipe) {
		v.Set(prefix+"name", r.Name)
		if r.MakesMin != nil {
			v.Set(prefix+"makes_min", strconv.Itoa(*r.MakesMin))
		}
		if r.MakesMax != nil {
			v.Set(prefix+"makes_max", strconv.Itoa(*r.MakesMax))
		}
		if r.MakesUnit != "" {
			v.Set(prefix+"makes_unit", r.MakesUnit)
		}
		for i, ing := range r.Ingredients {
			v.Set(prefix+"ingredients["+strconv.Itoa(i)+"]", ing)
		}
		for i, ins := range r.Instructions {
			v.Set(prefix+"instructions["+strconv.Itoa(i)+"]", ins)
		}
	}
	set("", draft)
	set("original_", original)
	return v
}

func postForm(t *testing.T, h http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func pancakes() *recipe.Recipe {
	two, four := 2, 4
	return &recipe.Recipe{
		Name:         "Pancakes",
		Ingredients:  []string{"1 cup flour", "2 eggs", "1 cup milk"},
		Instructions: []string{"Mix dry ingredients.", "Add wet ingredients.", "Fry."},
		MakesMin:     &two,
		MakesMax:     &four,
		MakesUnit:    "servings",
	}
}

func TestHealthz(t *testing.T) {
	h := testServer(nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("healthz body = %q", rec.Body.String())
	}
}

func TestIndexPage(t *testing.T) {
	h := testServer(nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("index status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `action="/recipes/extract"`) {
		t.Errorf("index missing extract form:\n%s", rec.Body.String())
	}
}

func TestListInsertAddsBlankRowAndRefreshesDiff(t *testing.T) {
	h := testServer(nil, nil)
	r := pancakes()
	form := draftForm(r, r)
	form.Set("section", "ingredients")
	form.Set("after", "0")

	rec := postForm(t, h, "/fragments/list/insert", form)
	if rec.Code != http.StatusOK {
		t.Fatalf("insert status = %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()

	// The new blank row sits at index 1; the old second item shifted to 2.
	for _, want := range []string{
		`name="ingredients[0]"`,
		`name="ingredients[1]"`,
		`name="ingredients[3]"`,
		`id="diff-panel"`,
		`hx-swap-oob="outerHTML"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("insert response missing %q", want)
		}
	}
	if i0 := strings.Index(body, `value="2 eggs"`); i0 < 0 {
		t.Errorf("shifted item lost: %s", body)
	}
}

func TestListDeleteRemovesItemAndDiffShowsRemoval(t *testing.T) {
	h := testServer(nil, nil)
	r := pancakes()
	form := draftForm(r, r)
	form.Set("section", "ingredients")
	form.Set("index", "1")

	rec := postForm(t, h, "/fragments/list/delete", form)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()

	if strings.Contains(body, `value="2 eggs"`) {
		t.Errorf("deleted item still present:\n%s", body)
	}
	if !strings.Contains(body, `name="ingredients[1]"`) {
		t.Errorf("indexes not renormalized:\n%s", body)
	}
	if strings.Contains(body, `name="ingredients[2]"`) {
		t.Errorf("stale index survived deletion:\n%s", body)
	}
	if !strings.Contains(body, "<del>- 2 eggs</del>") {
		t.Errorf("diff panel missing removal:\n%s", body)
	}
}

func TestListInsertWithoutPositionPrepends(t *testing.T) {
	h := testServer(nil, nil)
	r := pancakes()
	form := draftForm(r, r)
	form.Set("section", "ingredients")
	// No "after" field at all: the new row goes to the front.

	rec := postForm(t, h, "/fragments/list/insert", form)
	if rec.Code != http.StatusOK {
		t.Fatalf("insert status = %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, `name="ingredients[0]" value=""`) {
		t.Errorf("blank row not prepended at index 0:\n%s", body)
	}
	if !strings.Contains(body, `name="ingredients[3]"`) {
		t.Errorf("existing rows not shifted:\n%s", body)
	}
}

func TestListMutationRejectsInvalidMakesRange(t *testing.T) {
	h := testServer(nil, nil)
	r := pancakes()
	draft := r.Clone()
	min, max := 4, 2
	draft.MakesMin, draft.MakesMax = &min, &max

	form := draftForm(r, draft)
	form.Set("section", "ingredients")
	form.Set("after", "0")

	rec := postForm(t, h, "/fragments/list/insert", form)
	if rec.Code != http.StatusOK {
		t.Fatalf("insert status = %d", rec.Code)
	}
	body := rec.Body.String()

	if strings.Contains(body, `name="ingredients[3]"`) {
		t.Errorf("mutation applied despite invalid makes range:\n%s", body)
	}
	if !strings.Contains(body, "maximum quantity (2) cannot be less than minimum quantity (4)") {
		t.Errorf("missing inline range error:\n%s", body)
	}
	if strings.Contains(body, "Makes: 4-2") {
		t.Errorf("diff panel rendered the invalid range:\n%s", body)
	}
	if !strings.Contains(body, `hx-swap-oob="outerHTML"`) {
		t.Errorf("review panel should still refresh with the error:\n%s", body)
	}
}

func TestDiffFragmentRejectsInvalidMakesRange(t *testing.T) {
	h := testServer(nil, nil)
	original := pancakes()
	draft := original.Clone()
	min, max := 4, 2
	draft.MakesMin, draft.MakesMax = &min, &max

	rec := postForm(t, h, "/fragments/diff", draftForm(original, draft))
	if rec.Code != http.StatusOK {
		t.Fatalf("diff status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "maximum quantity (2) cannot be less than minimum quantity (4)") {
		t.Errorf("missing range error:\n%s", body)
	}
	if strings.Contains(body, "Makes: 4-2") {
		t.Errorf("panel rendered the invalid range:\n%s", body)
	}
}

func TestListDeleteLastItemRendersInlineError(t *testing.T) {
	h := testServer(nil, nil)
	r := pancakes()
	r.Ingredients = []string{"1 cup flour"}
	form := draftForm(r, r)
	form.Set("section", "ingredients")
	form.Set("index", "0")

	rec := postForm(t, h, "/fragments/list/delete", form)
	if rec.Code != http.StatusOK {
		t.Fatalf("last-item delete status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "cannot delete the last ingredient") {
		t.Errorf("missing inline error:\n%s", body)
	}
	if !strings.Contains(body, `value="1 cup flour"`) {
		t.Errorf("draft should be unchanged:\n%s", body)
	}
	if !strings.Contains(body, `hx-swap-oob="outerHTML"`) {
		t.Errorf("diff panel should still refresh:\n%s", body)
	}
}

func TestListReorderAppliesPermutation(t *testing.T) {
	h := testServer(nil, nil)
	r := pancakes()
	form := draftForm(r, r)
	form.Set("section", "ingredients")
	form.Set("ingredients_order", "2,0,1")

	rec := postForm(t, h, "/fragments/list/reorder", form)
	if rec.Code != http.StatusOK {
		t.Fatalf("reorder status = %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()

	milk := strings.Index(body, `value="1 cup milk"`)
	flour := strings.Index(body, `value="1 cup flour"`)
	eggs := strings.Index(body, `value="2 eggs"`)
	if milk < 0 || flour < 0 || eggs < 0 {
		t.Fatalf("items missing after reorder:\n%s", body)
	}
	if !(milk < flour && flour < eggs) {
		t.Errorf("reorder 2,0,1 not applied: milk=%d flour=%d eggs=%d", milk, flour, eggs)
	}
}

func TestListReorderInvalidPermutation(t *testing.T) {
	h := testServer(nil, nil)
	r := pancakes()

	cases := []struct {
		name  string
		order string
	}{
		{"duplicate index", "0,0,1"},
		{"out of range", "0,1,5"},
		{"wrong length", "0,1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			form := draftForm(r, r)
			form.Set("section", "ingredients")
			form.Set("ingredients_order", tc.order)

			rec := postForm(t, h, "/fragments/list/reorder", form)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			body := rec.Body.String()
			if !strings.Contains(body, "invalid permutation") {
				t.Errorf("missing inline error:\n%s", body)
			}
			// Original order preserved.
			flour := strings.Index(body, `value="1 cup flour"`)
			eggs := strings.Index(body, `value="2 eggs"`)
			if !(flour >= 0 && eggs > flour) {
				t.Errorf("draft order should be unchanged:\n%s", body)
			}
		})
	}
}

func TestListMutationRejectsMalformedForm(t *testing.T) {
	h := testServer(nil, nil)

	t.Run("missing name", func(t *testing.T) {
		form := url.Values{}
		form.Set("section", "ingredients")
		form.Set("after", "0")
		form.Set("original_name", "Pancakes")
		rec := postForm(t, h, "/fragments/list/insert", form)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("bad section", func(t *testing.T) {
		r := pancakes()
		form := draftForm(r, r)
		form.Set("section", "garnishes")
		form.Set("after", "0")
		rec := postForm(t, h, "/fragments/list/insert", form)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("non-integer index", func(t *testing.T) {
		r := pancakes()
		form := draftForm(r, r)
		form.Set("section", "ingredients")
		form.Set("after", "two")
		rec := postForm(t, h, "/fragments/list/insert", form)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestDiffFragmentReflectsEdit(t *testing.T) {
	h := testServer(nil, nil)
	original := pancakes()
	draft := original.Clone()
	draft.Ingredients[1] = "3 eggs"

	form := draftForm(original, draft)
	rec := postForm(t, h, "/fragments/diff", form)
	if rec.Code != http.StatusOK {
		t.Fatalf("diff status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<del>- 2 eggs</del>") {
		t.Errorf("before panel missing removal:\n%s", body)
	}
	if !strings.Contains(body, "<ins>- 3 eggs</ins>") {
		t.Errorf("after panel missing insertion:\n%s", body)
	}
	if strings.Contains(body, "hx-swap-oob") {
		t.Errorf("direct diff response should not be OOB:\n%s", body)
	}
}

func TestDiffFragmentMakesWholeValue(t *testing.T) {
	h := testServer(nil, nil)
	original := pancakes()
	draft := original.Clone()
	six := 6
	draft.MakesMax = &six

	form := draftForm(original, draft)
	rec := postForm(t, h, "/fragments/diff", form)
	body := rec.Body.String()
	if !strings.Contains(body, "<del>Makes: 2-4 servings</del>") {
		t.Errorf("old makes line not removed whole:\n%s", body)
	}
	if !strings.Contains(body, "<ins>Makes: 2-6 servings</ins>") {
		t.Errorf("new makes line not inserted whole:\n%s", body)
	}
}

func TestExtractRendersEditorWithBaseline(t *testing.T) {
	ai := &fakeAI{
		extract: func(ctx context.Context, text string) (*recipe.Recipe, error) {
			return pancakes(), nil
		},
	}
	h := testServer(ai, nil)

	form := url.Values{}
	form.Set("text", "some recipe text")
	rec := postForm(t, h, "/recipes/extract", form)
	if rec.Code != http.StatusOK {
		t.Fatalf("extract status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`name="original_name"`,
		`name="original_ingredients[2]"`,
		`value="Pancakes"`,
		`id="diff-panel"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("editor page missing %q", want)
		}
	}
}

func TestExtractWithoutTextShowsError(t *testing.T) {
	h := testServer(&fakeAI{}, nil)
	rec := postForm(t, h, "/recipes/extract", url.Values{})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Paste or fetch some recipe text first.") {
		t.Errorf("missing empty-text error:\n%s", rec.Body.String())
	}
}

func TestModifyReplacesDraftKeepsBaseline(t *testing.T) {
	ai := &fakeAI{
		modify: func(ctx context.Context, current *recipe.Recipe, request string) (*recipe.Recipe, error) {
			out := current.Clone()
			out.Name = "Vegan " + current.Name
			return out, nil
		},
	}
	h := testServer(ai, nil)

	r := pancakes()
	form := draftForm(r, r)
	form.Set("prompt", "make it vegan")
	rec := postForm(t, h, "/recipes/modify", form)
	if rec.Code != http.StatusOK {
		t.Fatalf("modify status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `value="Vegan Pancakes"`) {
		t.Errorf("modified name missing:\n%s", body)
	}
	// Baseline snapshot must still carry the pre-modification name.
	if !strings.Contains(body, `name="original_name" value="Pancakes"`) &&
		!strings.Contains(body, `value="Pancakes" name="original_name"`) {
		if !strings.Contains(body, `name="original_name"`) || !strings.Contains(body, `value="Pancakes"`) {
			t.Errorf("original snapshot lost:\n%s", body)
		}
	}
	if !strings.Contains(body, "<ins>Vegan Pancakes</ins>") {
		t.Errorf("diff should flag the renamed recipe:\n%s", body)
	}
}

func TestModifyFailureKeepsDraft(t *testing.T) {
	ai := &fakeAI{
		modify: func(ctx context.Context, current *recipe.Recipe, request string) (*recipe.Recipe, error) {
			return nil, errors.New("rate limited")
		},
	}
	h := testServer(ai, nil)

	r := pancakes()
	form := draftForm(r, r)
	form.Set("prompt", "double it")
	rec := postForm(t, h, "/recipes/modify", form)
	body := rec.Body.String()
	if !strings.Contains(body, "The AI request failed.") {
		t.Errorf("missing failure message:\n%s", body)
	}
	if !strings.Contains(body, `value="Pancakes"`) {
		t.Errorf("draft lost on failure:\n%s", body)
	}
}

func TestSaveValidDraft(t *testing.T) {
	st := &fakeStore{}
	h := testServer(nil, st)

	r := pancakes()
	form := draftForm(r, r)
	rec := postForm(t, h, "/recipes/save", form)
	if rec.Code != http.StatusOK {
		t.Fatalf("save status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Recipe saved.") {
		t.Errorf("missing success message:\n%s", rec.Body.String())
	}
	if len(st.saved) != 1 || st.saved[0].Name != "Pancakes" {
		t.Errorf("store not called with draft: %+v", st.saved)
	}
}

func TestSaveInvalidDraftShowsValidationError(t *testing.T) {
	st := &fakeStore{}
	h := testServer(nil, st)

	r := pancakes()
	draft := r.Clone()
	min, max := 6, 2
	draft.MakesMin, draft.MakesMax = &min, &max

	form := draftForm(r, draft)
	rec := postForm(t, h, "/recipes/save", form)
	if rec.Code != http.StatusOK {
		t.Fatalf("save status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "makes") {
		t.Errorf("missing validation error:\n%s", rec.Body.String())
	}
	if len(st.saved) != 0 {
		t.Errorf("invalid draft should not be stored")
	}
}

func TestDeleteRecipe(t *testing.T) {
	st := &fakeStore{}
	h := testServer(nil, st)

	form := url.Values{}
	form.Set("id", "7")
	rec := postForm(t, h, "/recipes/delete", form)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if len(st.deleted) != 1 || st.deleted[0] != 7 {
		t.Errorf("delete not forwarded: %v", st.deleted)
	}
}

func TestEditSavedRecipe(t *testing.T) {
	st := &fakeStore{listed: []*store.Saved{{ID: 3, Recipe: *pancakes()}}}
	h := testServer(nil, st)

	req := httptest.NewRequest(http.MethodGet, "/recipes/edit?id=3", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("edit status = %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, `value="Pancakes"`) {
		t.Errorf("editor missing draft name:\n%s", body)
	}
	if !strings.Contains(body, `name="original_name"`) {
		t.Errorf("editor missing baseline snapshot:\n%s", body)
	}
}

func TestEditSavedRecipeErrors(t *testing.T) {
	st := &fakeStore{listed: []*store.Saved{{ID: 3, Recipe: *pancakes()}}}
	h := testServer(nil, st)

	tests := []struct {
		path string
		code int
	}{
		{"/recipes/edit?id=9", http.StatusNotFound},
		{"/recipes/edit?id=nope", http.StatusBadRequest},
		{"/recipes/edit", http.StatusBadRequest},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, tt.path, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tt.code {
			t.Errorf("GET %s status = %d, want %d", tt.path, rec.Code, tt.code)
		}
	}
}

func TestMethodGuards(t *testing.T) {
	h := testServer(nil, nil)
	for _, path := range []string{
		"/recipes/fetch-text", "/recipes/extract", "/recipes/modify",
		"/recipes/save", "/recipes/delete",
		"/fragments/list/insert", "/fragments/list/delete",
		"/fragments/list/reorder", "/fragments/diff",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("GET %s status = %d, want 405", path, rec.Code)
		}
	}
}
