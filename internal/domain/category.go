package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// CategoryKind tells whether a category may hold children.
type CategoryKind string

// Category kinds.
const (
	CategoryKindParent CategoryKind = "Parent"
	CategoryKindChild  CategoryKind = "Child"
)

// RootParentName is both the parent name callers pass to insert a root
// category and the display parent name reported for one.
const RootParentName = "Root"

// MaxCategoryNameLength bounds category names, in characters.
const MaxCategoryNameLength = 40

// Valid reports whether k is a known kind.
func (k CategoryKind) Valid() bool {
	return k == CategoryKindParent || k == CategoryKindChild
}

// Category is a node in the category tree. The parent is stored as an
// optional key; children are found by querying on it.
type Category struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Kind      CategoryKind `json:"kind"`
	ParentID  *string      `json:"parent_id,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func (c *Category) hasParent() bool {
	return c.ParentID != nil && *c.ParentID != ""
}

// IsRoot reports whether c is a top-level Parent.
func (c *Category) IsRoot() bool {
	return c.Kind == CategoryKindParent && !c.hasParent()
}

// IsMidParent reports whether c is a Parent that itself has a parent.
func (c *Category) IsMidParent() bool {
	return c.Kind == CategoryKindParent && c.hasParent()
}

// IsPlainChild reports whether c is a leaf.
func (c *Category) IsPlainChild() bool {
	return c.Kind == CategoryKindChild
}

// CanHaveChildren reports whether other categories may be attached below c.
func (c *Category) CanHaveChildren() bool {
	return c.Kind == CategoryKindParent
}

// NormalizeCategoryName trims surrounding space and reports whether the
// result is a usable name.
func NormalizeCategoryName(name string) (string, bool) {
	name = strings.TrimSpace(name)
	n := utf8.RuneCountInString(name)
	return name, n > 0 && n <= MaxCategoryNameLength
}

// CategoryView is a category together with its resolved ancestry. ParentName
// is RootParentName for a root; Path lists ancestor names from the root down
// to the immediate parent.
type CategoryView struct {
	Category
	ParentName string   `json:"parent_name"`
	Path       []string `json:"path"`
}

// CategoryNode is a category with its children materialized, used for the
// tree listing.
type CategoryNode struct {
	Category
	Children []*CategoryNode `json:"children"`
}

// CategoryIndex addresses a set of categories by id.
type CategoryIndex map[string]*Category

// NewCategoryIndex indexes cats by id.
func NewCategoryIndex(cats []Category) CategoryIndex {
	idx := make(CategoryIndex, len(cats))
	for i := range cats {
		idx[cats[i].ID] = &cats[i]
	}
	return idx
}

// Ancestors returns the chain of ancestors of c, nearest first. It stops at a
// missing parent or when a node repeats, so corrupt data cannot loop.
func (idx CategoryIndex) Ancestors(c *Category) []*Category {
	var chain []*Category
	seen := map[string]bool{c.ID: true}
	for cur := c; cur.hasParent(); {
		parent, ok := idx[*cur.ParentID]
		if !ok || seen[parent.ID] {
			break
		}
		seen[parent.ID] = true
		chain = append(chain, parent)
		cur = parent
	}
	return chain
}

// View resolves the display parent name and ancestor path of c.
func (idx CategoryIndex) View(c *Category) CategoryView {
	chain := idx.Ancestors(c)
	v := CategoryView{Category: *c, ParentName: RootParentName, Path: make([]string, 0, len(chain))}
	if len(chain) > 0 {
		v.ParentName = chain[0].Name
	}
	for i := len(chain) - 1; i >= 0; i-- {
		v.Path = append(v.Path, chain[i].Name)
	}
	return v
}

// IsDescendant reports whether candidate lies in the subtree below ancestorID.
func (idx CategoryIndex) IsDescendant(candidate *Category, ancestorID string) bool {
	for _, a := range idx.Ancestors(candidate) {
		if a.ID == ancestorID {
			return true
		}
	}
	return false
}

// BuildCategoryTree nests cats under their parents. Categories whose parent
// is missing are returned as roots. Input order is kept among siblings.
func BuildCategoryTree(cats []Category) []*CategoryNode {
	nodes := make(map[string]*CategoryNode, len(cats))
	for i := range cats {
		nodes[cats[i].ID] = &CategoryNode{Category: cats[i], Children: []*CategoryNode{}}
	}

	roots := []*CategoryNode{}
	for i := range cats {
		n := nodes[cats[i].ID]
		if n.hasParent() {
			if parent, ok := nodes[*n.ParentID]; ok && parent != n {
				parent.Children = append(parent.Children, n)
				continue
			}
		}
		roots = append(roots, n)
	}
	return roots
}
