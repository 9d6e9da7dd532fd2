package core

import (
	"fmt"
	"time"
)

// MaxPageSize bounds a single List page.
const MaxPageSize = 1000

// Category is the persisted ledger category.
type Category struct {
	ID          RowID
	Code        Code
	Name        Name
	Description *string
	Slug        *Slug
	Type        CategoryType
	Color       *HexColor
	Icon        *string
	IsActive    bool
	CreatedOn   time.Time
	UpdatedOn   time.Time
}

// SameContent reports whether every mutable column matches. Identity and
// timestamps are ignored.
func (c Category) SameContent(o Category) bool {
	return c.Code.String() == o.Code.String() &&
		c.Name == o.Name &&
		equalPtr(c.Description, o.Description) &&
		equalPtr(c.Slug, o.Slug) &&
		c.Type == o.Type &&
		equalPtr(c.Color, o.Color) &&
		equalPtr(c.Icon, o.Icon) &&
		c.IsActive == o.IsActive
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Apply returns c with the fields present in p replaced. Timestamps are not
// touched.
func (c Category) Apply(p Patch) (Category, error) {
	if p.Code != nil && p.Code.String() != c.Code.String() {
		return Category{}, Invalid(FieldCode, RuleImmutable, "code cannot be changed once set")
	}
	next := c
	if p.Name != nil {
		next.Name = *p.Name
	}
	if p.Type != nil {
		next.Type = *p.Type
	}
	if p.IsActive != nil {
		next.IsActive = *p.IsActive
	}
	next.Description = p.Description.apply(c.Description)
	next.Slug = p.Slug.apply(c.Slug)
	next.Color = p.Color.apply(c.Color)
	next.Icon = p.Icon.apply(c.Icon)
	return next, nil
}

// Draft is a validated category that has not been stored yet.
type Draft struct {
	Code        Code
	Name        Name
	Description *string
	Slug        *Slug
	Type        CategoryType
	Color       *HexColor
	Icon        *string
	IsActive    bool
}

// Validate rejects zero-valued required fields, which can only appear when a
// Draft is assembled without the parse constructors.
func (d Draft) Validate() error {
	if d.Code.IsZero() {
		return Invalid(FieldCode, RuleRequired, "must not be empty")
	}
	if d.Name.IsZero() {
		return Invalid(FieldName, RuleRequired, "must not be empty")
	}
	if !d.Type.IsValid() {
		return Invalid(FieldCategoryType, RuleRequired, "must be set")
	}
	return nil
}

// DraftInput carries raw create values. Empty optional strings mean absent.
type DraftInput struct {
	Code         string
	Name         string
	Description  string
	Slug         string
	CategoryType string
	Color        string
	Icon         string
	IsActive     *bool
}

// NewDraft validates every field of in and reports the first failure.
func NewDraft(in DraftInput) (Draft, error) {
	code, err := ParseCode(in.Code)
	if err != nil {
		return Draft{}, err
	}
	name, err := ParseName(in.Name)
	if err != nil {
		return Draft{}, err
	}
	description, err := ParseDescription(in.Description)
	if err != nil {
		return Draft{}, err
	}
	var slug *Slug
	if in.Slug != "" {
		s, err := ParseSlug(in.Slug)
		if err != nil {
			return Draft{}, err
		}
		slug = &s
	}
	typ, err := ParseCategoryType(in.CategoryType)
	if err != nil {
		return Draft{}, err
	}
	var color *HexColor
	if in.Color != "" {
		c, err := ParseHexColor(in.Color)
		if err != nil {
			return Draft{}, err
		}
		color = &c
	}
	icon, err := ParseIcon(in.Icon)
	if err != nil {
		return Draft{}, err
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	return Draft{
		Code:        code,
		Name:        name,
		Description: description,
		Slug:        slug,
		Type:        typ,
		Color:       color,
		Icon:        icon,
		IsActive:    active,
	}, nil
}

// Change is a patch value for a nullable column: absent, set, or cleared.
type Change[T any] struct {
	present bool
	value   *T
}

// Set returns a Change that stores v.
func Set[T any](v T) Change[T] { return Change[T]{present: true, value: &v} }

// Clear returns a Change that nulls the column.
func Clear[T any]() Change[T] { return Change[T]{present: true} }

// Present reports whether the column is part of the patch.
func (c Change[T]) Present() bool { return c.present }

// Value returns the new value, nil when the column is cleared or absent.
func (c Change[T]) Value() *T { return c.value }

func (c Change[T]) apply(cur *T) *T {
	if !c.present {
		return cur
	}
	return c.value
}

// Patch is a validated partial update. Nil pointers and absent changes leave
// the column alone.
type Patch struct {
	Code        *Code
	Name        *Name
	Description Change[string]
	Slug        Change[Slug]
	Type        *CategoryType
	Color       Change[HexColor]
	Icon        Change[string]
	IsActive    *bool

	// IfUpdatedOn, when set, must equal the stored updated_on.
	IfUpdatedOn *time.Time
}

// IsEmpty reports whether p touches no column.
func (p Patch) IsEmpty() bool {
	return p.Code == nil && p.Name == nil && p.Type == nil && p.IsActive == nil &&
		!p.Description.Present() && !p.Slug.Present() && !p.Color.Present() && !p.Icon.Present()
}

// PatchInput carries raw update values. A nil pointer leaves the field
// alone; a pointer to "" clears an optional field.
type PatchInput struct {
	Code         *string
	Name         *string
	Description  *string
	Slug         *string
	CategoryType *string
	Color        *string
	Icon         *string
	IsActive     *bool
	IfUpdatedOn  *time.Time
}

// NewPatch validates every field present in in.
func NewPatch(in PatchInput) (Patch, error) {
	var p Patch
	if in.Code != nil {
		c, err := ParseCode(*in.Code)
		if err != nil {
			return Patch{}, err
		}
		p.Code = &c
	}
	if in.Name != nil {
		n, err := ParseName(*in.Name)
		if err != nil {
			return Patch{}, err
		}
		p.Name = &n
	}
	if in.Description != nil {
		d, err := ParseDescription(*in.Description)
		if err != nil {
			return Patch{}, err
		}
		p.Description = changeOf(d)
	}
	if in.Slug != nil {
		if *in.Slug == "" {
			p.Slug = Clear[Slug]()
		} else {
			s, err := ParseSlug(*in.Slug)
			if err != nil {
				return Patch{}, err
			}
			p.Slug = Set(s)
		}
	}
	if in.CategoryType != nil {
		t, err := ParseCategoryType(*in.CategoryType)
		if err != nil {
			return Patch{}, err
		}
		p.Type = &t
	}
	if in.Color != nil {
		if *in.Color == "" {
			p.Color = Clear[HexColor]()
		} else {
			c, err := ParseHexColor(*in.Color)
			if err != nil {
				return Patch{}, err
			}
			p.Color = Set(c)
		}
	}
	if in.Icon != nil {
		i, err := ParseIcon(*in.Icon)
		if err != nil {
			return Patch{}, err
		}
		p.Icon = changeOf(i)
	}
	p.IsActive = in.IsActive
	if in.IfUpdatedOn != nil {
		t := in.IfUpdatedOn.UTC()
		p.IfUpdatedOn = &t
	}
	return p, nil
}

func changeOf(v *string) Change[string] {
	if v == nil {
		return Clear[string]()
	}
	return Set(*v)
}

// Filter narrows List results. Nil fields match everything.
type Filter struct {
	Type   *CategoryType
	Active *bool
}

// Page selects a window of List results. Size 0 asks for the repository
// default.
type Page struct {
	Size   int
	Cursor string
}

// Validate checks the page size bounds.
func (p Page) Validate() error {
	if p.Size < 0 || p.Size > MaxPageSize {
		return Invalid("page_size", RuleRange, fmt.Sprintf("must be between 0 and %d", MaxPageSize))
	}
	return nil
}

// LookupKey names the column a point lookup matches on.
type LookupKey string

const (
	LookupID   LookupKey = "id"
	LookupCode LookupKey = "code"
	LookupSlug LookupKey = "url_slug"
)

// Lookup describes a point read.
type Lookup struct {
	Key        LookupKey
	Value      string
	OnlyActive bool
}

func ByID(id RowID) Lookup { return Lookup{Key: LookupID, Value: id.String()} }

func ByCode(c Code) Lookup { return Lookup{Key: LookupCode, Value: c.String()} }

func BySlug(s Slug) Lookup { return Lookup{Key: LookupSlug, Value: s.String()} }

// ActiveOnly makes an inactive row count as missing.
func (l Lookup) ActiveOnly() Lookup {
	l.OnlyActive = true
	return l
}

// NotFound builds the error reported when l matches nothing.
func (l Lookup) NotFound() *NotFoundError {
	return NotFound(string(l.Key), l.Value)
}
