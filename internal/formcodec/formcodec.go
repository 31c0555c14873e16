// Package formcodec converts between the flat, index-addressed form
// encoding used by the editor and the typed recipe model.
//
// List fields use a section tag plus zero-based position, e.g.
// "ingredients[2]"; scalars use bare names ("name", "makes_min",
// "makes_max", "makes_unit"). The Original recipe travels in hidden
// fields under the "original_" prefix. Encode and Decode round-trip:
// Decode(Encode(r)) yields a recipe equal to r.
package formcodec

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/mealdraft/mealdraft/internal/recipe"
)

// OriginalPrefix is the field-name prefix carrying the immutable baseline
// recipe in hidden form fields.
const OriginalPrefix = "original_"

// MalformedFormError reports a form snapshot that cannot be decoded into a
// recipe: a required scalar is missing or a numeric scalar is unparsable.
type MalformedFormError struct {
	Field  string
	Reason string
}

func (e *MalformedFormError) Error() string {
	return fmt.Sprintf("malformed form data: field %q: %s", e.Field, e.Reason)
}

// Decode reconstructs a draft recipe from a submitted form snapshot.
// Gaps in the numeric suffixes are tolerated; output order follows the
// numeric suffix and output indices are contiguous from 0.
func Decode(values url.Values) (*recipe.Recipe, error) {
	return DecodePrefixed(values, "")
}

// DecodeOriginal reconstructs the immutable baseline recipe from the
// hidden original_* fields of a form snapshot.
func DecodeOriginal(values url.Values) (*recipe.Recipe, error) {
	return DecodePrefixed(values, OriginalPrefix)
}

// DecodePrefixed decodes a recipe whose field names carry the given
// prefix. Pure function of the input mapping.
func DecodePrefixed(values url.Values, prefix string) (*recipe.Recipe, error) {
	nameKey := prefix + "name"
	if _, ok := values[nameKey]; !ok {
		return nil, &MalformedFormError{Field: nameKey, Reason: "required field is missing"}
	}

	r := &recipe.Recipe{
		Name:         values.Get(nameKey),
		Ingredients:  collectIndexed(values, prefix+"ingredients"),
		Instructions: collectIndexed(values, prefix+"instructions"),
		MakesUnit:    strings.TrimSpace(values.Get(prefix + "makes_unit")),
	}

	var err error
	if r.MakesMin, err = optionalInt(values, prefix+"makes_min"); err != nil {
		return nil, err
	}
	if r.MakesMax, err = optionalInt(values, prefix+"makes_max"); err != nil {
		return nil, err
	}
	return r, nil
}

// Encode serializes a recipe into flat form values with contiguous
// zero-based indices. Unset optional scalars are omitted entirely.
func Encode(r *recipe.Recipe) url.Values {
	return EncodePrefixed(r, "")
}

// EncodeOriginal serializes a recipe under the original_* prefix for the
// hidden baseline fields.
func EncodeOriginal(r *recipe.Recipe) url.Values {
	return EncodePrefixed(r, OriginalPrefix)
}

// EncodePrefixed serializes a recipe with the given field-name prefix.
func EncodePrefixed(r *recipe.Recipe, prefix string) url.Values {
	values := url.Values{}
	values.Set(prefix+"name", r.Name)
	for i, ing := range r.Ingredients {
		values.Set(fmt.Sprintf("%s%s[%d]", prefix, "ingredients", i), ing)
	}
	for i, inst := range r.Instructions {
		values.Set(fmt.Sprintf("%s%s[%d]", prefix, "instructions", i), inst)
	}
	if r.MakesMin != nil {
		values.Set(prefix+"makes_min", strconv.Itoa(*r.MakesMin))
	}
	if r.MakesMax != nil {
		values.Set(prefix+"makes_max", strconv.Itoa(*r.MakesMax))
	}
	if r.MakesUnit != "" {
		values.Set(prefix+"makes_unit", r.MakesUnit)
	}
	return values
}

// Merge copies every entry of src into dst, overwriting existing keys.
// Used to combine the draft and original encodings into one snapshot.
func Merge(dst, src url.Values) {
	for k, vs := range src {
		dst[k] = append([]string(nil), vs...)
	}
}

// collectIndexed gathers all values for keys of the form "section[N]",
// ordered by N. Non-numeric suffixes are ignored rather than treated as
// malformed; a stray key cannot corrupt the decoded ordering.
func collectIndexed(values url.Values, section string) []string {
	type entry struct {
		pos int
		val string
	}
	var entries []entry
	for key, vs := range values {
		pos, ok := indexedSuffix(key, section)
		if !ok || len(vs) == 0 {
			continue
		}
		entries = append(entries, entry{pos: pos, val: vs[0]})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].pos < entries[j].pos })

	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.val)
	}
	return out
}

// indexedSuffix parses "section[N]" and returns N.
func indexedSuffix(key, section string) (int, bool) {
	if !strings.HasPrefix(key, section+"[") || !strings.HasSuffix(key, "]") {
		return 0, false
	}
	digits := key[len(section)+1 : len(key)-1]
	pos, err := strconv.Atoi(digits)
	if err != nil || pos < 0 {
		return 0, false
	}
	return pos, true
}

// optionalInt reads an optional integer scalar. Absent or blank decodes to
// nil; present but unparsable is a malformed form.
func optionalInt(values url.Values, key string) (*int, error) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, &MalformedFormError{Field: key, Reason: fmt.Sprintf("not an integer: %q", raw)}
	}
	return &n, nil
}
