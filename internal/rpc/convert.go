package rpc

import (
	"fmt"
	"strings"

	"github.com/IanTeda/personal-ledger-backend/internal/core"
)

// FieldUpdateMask names the mask itself in validation errors.
const FieldUpdateMask = "update_mask"

func toWire(c core.Category) Category {
	w := Category{
		ID:           c.ID.String(),
		Code:         c.Code.String(),
		Name:         c.Name.String(),
		Description:  c.Description,
		CategoryType: c.Type.String(),
		Icon:         c.Icon,
		IsActive:     c.IsActive,
		CreatedOn:    c.CreatedOn,
		UpdatedOn:    c.UpdatedOn,
	}
	if c.Slug != nil {
		s := c.Slug.String()
		w.URLSlug = &s
	}
	if c.Color != nil {
		s := c.Color.String()
		w.Color = &s
	}
	return w
}

func toWires(cs []core.Category) []Category {
	out := make([]Category, 0, len(cs))
	for _, c := range cs {
		out = append(out, toWire(c))
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func draftFrom(r *CategoryCreateRequest) (core.Draft, error) {
	return core.NewDraft(core.DraftInput{
		Code:         r.Code,
		Name:         r.Name,
		Description:  deref(r.Description),
		Slug:         deref(r.URLSlug),
		CategoryType: r.CategoryType,
		Color:        deref(r.Color),
		Icon:         deref(r.Icon),
		IsActive:     r.IsActive,
	})
}

func draftsFrom(rs []CategoryCreateRequest) ([]core.Draft, error) {
	drafts := make([]core.Draft, 0, len(rs))
	for i := range rs {
		d, err := draftFrom(&rs[i])
		if err != nil {
			return nil, atIndex(err, i)
		}
		drafts = append(drafts, d)
	}
	return drafts, nil
}

// atIndex prefixes a validation field with the batch position.
func atIndex(err error, i int) error {
	if ce, ok := core.AsError(err); ok {
		if ve, ok := ce.(*core.ValidationError); ok {
			return core.Invalid(fmt.Sprintf("categories[%d].%s", i, ve.Field), ve.Rule, ve.Detail)
		}
	}
	return err
}

func filterFrom(r *CategoriesListRequest) (core.Filter, core.Page, error) {
	var f core.Filter
	if r.CategoryType != nil {
		t, err := core.ParseCategoryType(*r.CategoryType)
		if err != nil {
			return core.Filter{}, core.Page{}, err
		}
		f.Type = &t
	}
	f.Active = r.IsActive
	page := core.Page{Size: int(r.PageSize), Cursor: r.PageToken}
	if err := page.Validate(); err != nil {
		return core.Filter{}, core.Page{}, err
	}
	return f, page, nil
}

// patchFrom builds the patch selected by the update mask. Required fields
// named in the mask must carry a value; optional ones are cleared when null.
func patchFrom(r *CategoryUpdateRequest) (core.Patch, error) {
	f := r.Category
	in := core.PatchInput{IfUpdatedOn: r.IfUpdatedOn}

	if len(r.UpdateMask) == 0 {
		in.Code = f.Code
		in.Name = f.Name
		in.Description = f.Description
		in.Slug = f.URLSlug
		in.CategoryType = f.CategoryType
		in.Color = f.Color
		in.Icon = f.Icon
		in.IsActive = f.IsActive
		return core.NewPatch(in)
	}

	empty := ""
	orClear := func(s *string) *string {
		if s == nil {
			return &empty
		}
		return s
	}
	for _, name := range r.UpdateMask {
		switch field := strings.TrimSpace(name); field {
		case core.FieldCode:
			if f.Code == nil {
				return core.Patch{}, maskedUnset(field)
			}
			in.Code = f.Code
		case core.FieldName:
			if f.Name == nil {
				return core.Patch{}, maskedUnset(field)
			}
			in.Name = f.Name
		case core.FieldCategoryType:
			if f.CategoryType == nil {
				return core.Patch{}, maskedUnset(field)
			}
			in.CategoryType = f.CategoryType
		case core.FieldIsActive:
			if f.IsActive == nil {
				return core.Patch{}, maskedUnset(field)
			}
			in.IsActive = f.IsActive
		case core.FieldDescription:
			in.Description = orClear(f.Description)
		case core.FieldSlug:
			in.Slug = orClear(f.URLSlug)
		case core.FieldColor:
			in.Color = orClear(f.Color)
		case core.FieldIcon:
			in.Icon = orClear(f.Icon)
		default:
			return core.Patch{}, core.Invalid(FieldUpdateMask, core.RuleUnknown, fmt.Sprintf("unknown field %q", name))
		}
	}
	return core.NewPatch(in)
}

func maskedUnset(field string) error {
	return core.Invalid(field, core.RuleRequired, "named in update_mask but not set")
}
