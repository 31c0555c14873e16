package ui

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mealdraft/mealdraft/internal/debug"
	"github.com/mealdraft/mealdraft/internal/formcodec"
	"github.com/mealdraft/mealdraft/internal/mutate"
	"github.com/mealdraft/mealdraft/internal/recipe"
	"github.com/mealdraft/mealdraft/internal/store"
	"github.com/mealdraft/mealdraft/internal/telemetry"
	"github.com/mealdraft/mealdraft/internal/ui/templates"
)

var uiMetrics struct {
	mutations metric.Int64Counter
}

var uiMetricsOnce sync.Once

func initUIMetrics() {
	m := telemetry.Meter("mealdraft/ui")
	var err error
	uiMetrics.mutations, err = m.Int64Counter("mealdraft.list.mutations",
		metric.WithDescription("List mutation fragment requests served"))
	if err != nil {
		debug.Logf("ui metrics init: %v\n", err)
	}
}

func recordMutation(r *http.Request, section mutate.Section, op string) {
	uiMetricsOnce.Do(initUIMetrics)
	if uiMetrics.mutations == nil {
		return
	}
	uiMetrics.mutations.Add(r.Context(), 1, metric.WithAttributes(
		attribute.String("section", string(section)),
		attribute.String("op", op),
	))
}

// Pages

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	renderHTML(w, "extract.tmpl", templates.ExtractPageData{})
}

func (s *Server) handleRecipeList(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	data := templates.RecipeListData{}
	if s.Store != nil {
		saved, err := s.Store.List(r.Context())
		if err != nil {
			debug.Logf("list recipes: %v\n", err)
			http.Error(w, "could not load saved recipes", http.StatusInternalServerError)
			return
		}
		for _, sv := range saved {
			data.Recipes = append(data.Recipes, templates.SavedView{
				ID:         sv.ID,
				Name:       sv.Recipe.Name,
				MakesLabel: sv.Recipe.MakesLabel(),
				UpdatedAt:  sv.UpdatedAt.Format("2006-01-02 15:04"),
			})
		}
	}
	renderHTML(w, "recipe_list.tmpl", data)
}

// handleRecipeEdit reopens a saved recipe in the editor. The saved state
// becomes both the baseline snapshot and the initial draft, so the review
// panel tracks changes against what is stored.
func (s *Server) handleRecipeEdit(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid recipe id", http.StatusBadRequest)
		return
	}
	if s.Store == nil {
		http.NotFound(w, r)
		return
	}
	saved, err := s.Store.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		debug.Logf("load recipe %d: %v\n", id, err)
		http.Error(w, "could not load the recipe", http.StatusInternalServerError)
		return
	}
	renderHTML(w, "editor.tmpl", editorData(&saved.Recipe, &saved.Recipe, "", "", ""))
}

// Recipe actions

func (s *Server) handleFetchText(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form data", http.StatusBadRequest)
		return
	}
	target := strings.TrimSpace(r.PostForm.Get("url"))
	if target == "" {
		renderHTML(w, "fetch_text.tmpl", templates.TextAreaData{Error: "Enter a URL to fetch."})
		return
	}
	if s.Fetch == nil {
		renderHTML(w, "fetch_text.tmpl", templates.TextAreaData{Error: "URL fetching is not available."})
		return
	}
	text, err := s.Fetch(r.Context(), target)
	if err != nil {
		debug.Logf("fetch text %s: %v\n", target, err)
		renderHTML(w, "fetch_text.tmpl", templates.TextAreaData{
			Error: "Could not fetch that page. Check the URL and try again.",
		})
		return
	}
	renderHTML(w, "fetch_text.tmpl", templates.TextAreaData{Text: text})
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form data", http.StatusBadRequest)
		return
	}
	text := strings.TrimSpace(r.PostForm.Get("text"))
	page := templates.ExtractPageData{
		URL:      r.PostForm.Get("url"),
		TextArea: templates.TextAreaData{Text: r.PostForm.Get("text")},
	}
	if text == "" {
		page.Error = "Paste or fetch some recipe text first."
		renderHTML(w, "extract.tmpl", page)
		return
	}
	if s.AI == nil {
		page.Error = "Recipe extraction is not configured. Set ANTHROPIC_API_KEY and restart."
		renderHTML(w, "extract.tmpl", page)
		return
	}
	extracted, err := s.AI.ExtractRecipe(r.Context(), text)
	if err != nil {
		debug.Logf("extract recipe: %v\n", err)
		page.Error = "Could not extract a recipe from that text. Please try again."
		renderHTML(w, "extract.tmpl", page)
		return
	}
	// The extraction is both the baseline snapshot and the initial draft.
	renderHTML(w, "editor.tmpl", editorData(extracted, extracted, "", "", ""))
}

func (s *Server) handleModify(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	original, draft, ok := s.decodeDraftPair(w, r)
	if !ok {
		return
	}
	prompt := strings.TrimSpace(r.PostForm.Get("prompt"))
	if prompt == "" {
		renderHTML(w, "editor_body.tmpl",
			editorData(original, draft, "", "Enter a modification request first.", ""))
		return
	}
	if s.AI == nil {
		renderHTML(w, "editor_body.tmpl",
			editorData(original, draft, prompt, "AI modification is not configured. Set ANTHROPIC_API_KEY and restart.", ""))
		return
	}
	modified, err := s.AI.ModifyRecipe(r.Context(), draft, prompt)
	if err != nil {
		debug.Logf("modify recipe: %v\n", err)
		msg := "The AI request failed. Please try again."
		var ve *recipe.ValidationError
		if errors.As(err, &ve) {
			msg = "The AI returned an invalid recipe: " + ve.Message
		}
		renderHTML(w, "editor_body.tmpl", editorData(original, draft, prompt, msg, ""))
		return
	}
	renderHTML(w, "editor_body.tmpl", editorData(original, modified, "", "", ""))
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form data", http.StatusBadRequest)
		return
	}
	draft, err := formcodec.Decode(r.PostForm)
	if err != nil {
		renderHTML(w, "save_result.tmpl", templates.SaveResultData{Error: err.Error()})
		return
	}
	if s.Store == nil {
		renderHTML(w, "save_result.tmpl", templates.SaveResultData{Error: "Saving is not available."})
		return
	}
	if _, err := s.Store.Save(r.Context(), draft); err != nil {
		var ve *recipe.ValidationError
		if errors.As(err, &ve) {
			renderHTML(w, "save_result.tmpl", templates.SaveResultData{Error: ve.Error()})
			return
		}
		debug.Logf("save recipe: %v\n", err)
		renderHTML(w, "save_result.tmpl", templates.SaveResultData{Error: "Could not save the recipe."})
		return
	}
	renderHTML(w, "save_result.tmpl", templates.SaveResultData{Message: "Recipe saved."})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form data", http.StatusBadRequest)
		return
	}
	id, err := strconv.ParseInt(r.PostForm.Get("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid recipe id", http.StatusBadRequest)
		return
	}
	if s.Store == nil {
		http.Error(w, "deleting is not available", http.StatusInternalServerError)
		return
	}
	if err := s.Store.Delete(r.Context(), id); err != nil && !errors.Is(err, store.ErrNotFound) {
		debug.Logf("delete recipe %d: %v\n", id, err)
		http.Error(w, "could not delete the recipe", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// List mutation fragments

func (s *Server) handleListInsert(w http.ResponseWriter, r *http.Request) {
	s.handleMutation(w, r, "insert", func(values url.Values) (mutate.Op, error) {
		raw := strings.TrimSpace(values.Get("after"))
		if raw == "" {
			// An absent position means insert at the start.
			return mutate.InsertAfter(-1), nil
		}
		after, err := strconv.Atoi(raw)
		if err != nil {
			return mutate.Op{}, &formcodec.MalformedFormError{Field: "after", Reason: "not an integer"}
		}
		return mutate.InsertAfter(after), nil
	})
}

func (s *Server) handleListDelete(w http.ResponseWriter, r *http.Request) {
	s.handleMutation(w, r, "delete", func(values url.Values) (mutate.Op, error) {
		index, err := strconv.Atoi(strings.TrimSpace(values.Get("index")))
		if err != nil {
			return mutate.Op{}, &formcodec.MalformedFormError{Field: "index", Reason: "not an integer"}
		}
		return mutate.Delete(index), nil
	})
}

func (s *Server) handleListReorder(w http.ResponseWriter, r *http.Request) {
	s.handleMutation(w, r, "reorder", func(values url.Values) (mutate.Op, error) {
		section := values.Get("section")
		raw := strings.TrimSpace(values.Get(section + "_order"))
		if raw == "" {
			return mutate.Op{}, &formcodec.MalformedFormError{Field: section + "_order", Reason: "missing"}
		}
		parts := strings.Split(raw, ",")
		perm := make([]int, len(parts))
		for i, p := range parts {
			n, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil {
				return mutate.Op{}, &formcodec.MalformedFormError{Field: section + "_order", Reason: "not a list of integers"}
			}
			perm[i] = n
		}
		return mutate.Reorder(perm), nil
	})
}

// handleMutation is the shared skeleton of the list fragment endpoints:
// reconstruct both recipes from the posted form, apply the operation to
// the draft, and respond with the list fragment plus an out-of-band
// refresh of the review diff. Domain errors (an invalid makes range,
// deleting the last item, a stale index, a bad permutation) keep the
// draft unchanged and render inline in the fragment; malformed form
// data is a plain 400.
func (s *Server) handleMutation(w http.ResponseWriter, r *http.Request, opName string, buildOp func(url.Values) (mutate.Op, error)) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form data", http.StatusBadRequest)
		return
	}
	original, draft, ok := s.decodeDraftPair(w, r)
	if !ok {
		return
	}
	section, err := mutate.ParseSection(r.PostForm.Get("section"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	op, err := buildOp(r.PostForm)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// The makes range must hold before any operation is applied; the
	// panel carries the field-scoped error instead of a diff of the
	// invalid draft.
	if err := draft.ValidateMakes(); err != nil {
		s.writeListFragment(w, string(section), draft, err.Error(),
			templates.DiffPanelData{OOB: true, Error: err.Error()})
		return
	}

	mutated, err := mutate.Apply(draft, section, op)
	if err != nil {
		var ve *recipe.ValidationError
		var ie *mutate.IndexError
		var pe *mutate.InvalidPermutationError
		if errors.As(err, &ve) || errors.As(err, &ie) || errors.As(err, &pe) {
			s.writeListFragment(w, string(section), draft, err.Error(),
				diffPanelData(original, draft, true))
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	recordMutation(r, section, opName)
	s.writeListFragment(w, string(section), mutated, "",
		diffPanelData(original, mutated, true))
}

// writeListFragment renders the section list for rec followed by the
// out-of-band review panel.
func (s *Server) writeListFragment(w http.ResponseWriter, section string, rec *recipe.Recipe, errMsg string, panel templates.DiffPanelData) {
	items := rec.Ingredients
	if section == "instructions" {
		items = rec.Instructions
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Render(w, "section_list.tmpl", sectionListData(section, items, errMsg)); err != nil {
		debug.Logf("render section list: %v\n", err)
		return
	}
	if err := templates.Render(w, "diff_panel.tmpl", panel); err != nil {
		debug.Logf("render diff panel: %v\n", err)
	}
}

func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form data", http.StatusBadRequest)
		return
	}
	original, draft, ok := s.decodeDraftPair(w, r)
	if !ok {
		return
	}
	if err := draft.ValidateMakes(); err != nil {
		renderHTML(w, "diff_panel.tmpl", templates.DiffPanelData{Error: err.Error()})
		return
	}
	renderHTML(w, "diff_panel.tmpl", diffPanelData(original, draft, false))
}

// decodeDraftPair reconstructs the original snapshot and the current
// draft from an already-parsed form. Writes a 400 and returns ok=false
// when either half is malformed.
func (s *Server) decodeDraftPair(w http.ResponseWriter, r *http.Request) (original, draft *recipe.Recipe, ok bool) {
	if r.PostForm == nil {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "malformed form data", http.StatusBadRequest)
			return nil, nil, false
		}
	}
	original, err := formcodec.DecodeOriginal(r.PostForm)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, nil, false
	}
	draft, err = formcodec.Decode(r.PostForm)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, nil, false
	}
	return original, draft, true
}
