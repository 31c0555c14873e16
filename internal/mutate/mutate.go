// Package mutate applies single structural operations to a draft recipe's
// ordered collections: insert, delete, and reorder. Every operation is
// copy-on-write; the input draft is never modified and indices in the
// result are always contiguous from 0.
package mutate

import (
	"fmt"

	"github.com/mealdraft/mealdraft/internal/recipe"
)

// Section identifies which ordered collection an operation targets.
type Section string

const (
	SectionIngredients  Section = "ingredients"
	SectionInstructions Section = "instructions"
)

// ParseSection validates a section tag from a request path or form field.
func ParseSection(s string) (Section, error) {
	switch Section(s) {
	case SectionIngredients, SectionInstructions:
		return Section(s), nil
	}
	return "", fmt.Errorf("unknown section %q", s)
}

// InvalidPermutationError reports a reorder request whose index set is not
// a bijection on the section's current indices.
type InvalidPermutationError struct {
	Section Section
	Perm    []int
	Len     int
}

func (e *InvalidPermutationError) Error() string {
	return fmt.Sprintf("invalid permutation %v for %s of length %d", e.Perm, e.Section, e.Len)
}

// IndexError reports an insert or delete addressed at a position outside
// the section's current bounds.
type IndexError struct {
	Section Section
	Index   int
	Len     int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index %d out of range for %s of length %d", e.Index, e.Section, e.Len)
}

// Op is a single list mutation. Exactly one of the constructors below
// should be used to build it.
type Op struct {
	kind  opKind
	index int
	perm  []int
}

type opKind int

const (
	opInsertAfter opKind = iota
	opDelete
	opReorder
)

// InsertAfter inserts one empty element immediately after index. Index -1
// inserts at the start of the section.
func InsertAfter(index int) Op { return Op{kind: opInsertAfter, index: index} }

// Delete removes the element at index.
func Delete(index int) Op { return Op{kind: opDelete, index: index} }

// Reorder rearranges the section; perm lists the current indices in their
// desired new order and must contain each exactly once.
func Reorder(perm []int) Op { return Op{kind: opReorder, perm: perm} }

// Apply runs one operation against the named section of draft and returns
// a new draft. The input draft is returned unchanged on error.
func Apply(draft *recipe.Recipe, section Section, op Op) (*recipe.Recipe, error) {
	items := sectionItems(draft, section)

	var newItems []string
	var err error
	switch op.kind {
	case opInsertAfter:
		newItems, err = insertAfter(items, op.index, section)
	case opDelete:
		newItems, err = deleteAt(items, op.index, section)
	case opReorder:
		newItems, err = reorder(items, op.perm, section)
	default:
		err = fmt.Errorf("unknown operation kind %d", op.kind)
	}
	if err != nil {
		return draft, err
	}

	out := draft.Clone()
	setSectionItems(out, section, newItems)
	return out, nil
}

func sectionItems(r *recipe.Recipe, section Section) []string {
	if section == SectionIngredients {
		return r.Ingredients
	}
	return r.Instructions
}

func setSectionItems(r *recipe.Recipe, section Section, items []string) {
	if section == SectionIngredients {
		r.Ingredients = items
	} else {
		r.Instructions = items
	}
}

func insertAfter(items []string, index int, section Section) ([]string, error) {
	if index < -1 || index >= len(items) {
		return nil, &IndexError{Section: section, Index: index, Len: len(items)}
	}
	at := index + 1
	out := make([]string, 0, len(items)+1)
	out = append(out, items[:at]...)
	out = append(out, "")
	out = append(out, items[at:]...)
	return out, nil
}

func deleteAt(items []string, index int, section Section) ([]string, error) {
	if index < 0 || index >= len(items) {
		return nil, &IndexError{Section: section, Index: index, Len: len(items)}
	}
	if len(items) == 1 {
		return nil, &recipe.ValidationError{
			Field:   string(section),
			Message: fmt.Sprintf("cannot delete the last %s", singular(section)),
		}
	}
	out := make([]string, 0, len(items)-1)
	out = append(out, items[:index]...)
	out = append(out, items[index+1:]...)
	return out, nil
}

func reorder(items []string, perm []int, section Section) ([]string, error) {
	if len(perm) != len(items) {
		return nil, &InvalidPermutationError{Section: section, Perm: perm, Len: len(items)}
	}
	seen := make([]bool, len(items))
	for _, p := range perm {
		if p < 0 || p >= len(items) || seen[p] {
			return nil, &InvalidPermutationError{Section: section, Perm: perm, Len: len(items)}
		}
		seen[p] = true
	}
	out := make([]string, len(items))
	for newPos, oldPos := range perm {
		out[newPos] = items[oldPos]
	}
	return out, nil
}

func singular(section Section) string {
	if section == SectionIngredients {
		return "ingredient"
	}
	return "instruction"
}
