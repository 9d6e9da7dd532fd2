package core

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Length bounds for validated text values.
const (
	MaxCodeLength        = 32
	MaxNameLength        = 128
	MaxSlugLength        = 128
	MaxDescriptionLength = 1024
	MaxIconLength        = 128
)

// Wire field names used in validation failures.
const (
	FieldID           = "id"
	FieldCode         = "code"
	FieldName         = "name"
	FieldDescription  = "description"
	FieldSlug         = "url_slug"
	FieldCategoryType = "category_type"
	FieldColor        = "color"
	FieldIcon         = "icon"
	FieldIsActive     = "is_active"
)

// RowID identifies a category row. Always a version 7 UUID.
type RowID struct {
	u uuid.UUID
}

// NewRowID returns a fresh time-ordered identifier.
func NewRowID() (RowID, error) {
	u, err := uuid.NewV7()
	if err != nil {
		return RowID{}, fmt.Errorf("generate row id: %w", err)
	}
	return RowID{u: u}, nil
}

// ParseRowID validates s as a version 7 UUID.
func ParseRowID(s string) (RowID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return RowID{}, Invalid(FieldID, RuleRequired, "must not be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return RowID{}, Invalid(FieldID, RuleFormat, "must be a UUID")
	}
	if u.Version() != 7 {
		return RowID{}, Invalid(FieldID, RuleVersion, fmt.Sprintf("must be a version 7 UUID, got version %d", u.Version()))
	}
	return RowID{u: u}, nil
}

func (id RowID) String() string { return id.u.String() }
func (id RowID) IsZero() bool   { return id.u == uuid.Nil }

// Code is the case-preserving business key of a category.
type Code struct {
	v string
}

// ParseCode trims s and checks length and charset.
func ParseCode(s string) (Code, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Code{}, Invalid(FieldCode, RuleRequired, "must not be empty")
	}
	if len(s) > MaxCodeLength {
		return Code{}, Invalid(FieldCode, RuleMaxLength, fmt.Sprintf("must be at most %d characters", MaxCodeLength))
	}
	for _, r := range s {
		if !isCodeRune(r) {
			return Code{}, Invalid(FieldCode, RuleCharset, fmt.Sprintf("character %q not allowed, use letters, digits, '.', '_' or '-'", r))
		}
	}
	return Code{v: s}, nil
}

func isCodeRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-', r == '_', r == '.':
		return true
	}
	return false
}

func (c Code) String() string { return c.v }
func (c Code) IsZero() bool   { return c.v == "" }

// Key is the case-folded form used for uniqueness and lookup.
func (c Code) Key() string { return strings.ToLower(c.v) }

// EqualFold reports whether two codes collide.
func (c Code) EqualFold(o Code) bool { return strings.EqualFold(c.v, o.v) }

// Name is the unique display label of a category.
type Name struct {
	v string
}

// ParseName trims s and bounds its length in characters.
func ParseName(s string) (Name, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Name{}, Invalid(FieldName, RuleRequired, "must not be empty")
	}
	if utf8.RuneCountInString(s) > MaxNameLength {
		return Name{}, Invalid(FieldName, RuleMaxLength, fmt.Sprintf("must be at most %d characters", MaxNameLength))
	}
	return Name{v: s}, nil
}

func (n Name) String() string { return n.v }
func (n Name) IsZero() bool   { return n.v == "" }

// Slug is a URL-safe token: lowercase letters and digits in groups joined
// by single hyphens.
type Slug struct {
	v string
}

// ParseSlug validates s without rewriting it.
func ParseSlug(s string) (Slug, error) {
	if s == "" {
		return Slug{}, Invalid(FieldSlug, RuleRequired, "must not be empty")
	}
	if len(s) > MaxSlugLength {
		return Slug{}, Invalid(FieldSlug, RuleMaxLength, fmt.Sprintf("must be at most %d characters", MaxSlugLength))
	}
	prevHyphen := true
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9'):
			prevHyphen = false
		case c == '-':
			if prevHyphen {
				return Slug{}, Invalid(FieldSlug, RuleFormat, "hyphens must separate letters or digits")
			}
			prevHyphen = true
		default:
			return Slug{}, Invalid(FieldSlug, RuleCharset, fmt.Sprintf("character %q not allowed, use lowercase letters, digits and '-'", rune(c)))
		}
	}
	if prevHyphen {
		return Slug{}, Invalid(FieldSlug, RuleFormat, "must not end with a hyphen")
	}
	return Slug{v: s}, nil
}

// Slugify derives a slug from free text. Runs of anything other than ASCII
// letters and digits collapse into one hyphen.
func Slugify(s string) (Slug, error) {
	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pending && b.Len() > 0 {
				b.WriteByte('-')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	out := b.String()
	if len(out) > MaxSlugLength {
		out = strings.TrimRight(out[:MaxSlugLength], "-")
	}
	return ParseSlug(out)
}

func (s Slug) String() string { return s.v }

// HexColor is a #RRGGBB colour in upper case.
type HexColor struct {
	v string
}

// ParseHexColor checks the #RRGGBB shape and canonicalises the digits.
func ParseHexColor(s string) (HexColor, error) {
	if len(s) != 7 {
		return HexColor{}, Invalid(FieldColor, RuleFormat, "must be 7 characters like #RRGGBB")
	}
	if s[0] != '#' {
		return HexColor{}, Invalid(FieldColor, RuleFormat, "must start with '#'")
	}
	for i := 1; i < len(s); i++ {
		if !isHexDigit(s[i]) {
			return HexColor{}, Invalid(FieldColor, RuleFormat, fmt.Sprintf("character %q is not a hexadecimal digit", rune(s[i])))
		}
	}
	return HexColor{v: strings.ToUpper(s)}, nil
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func (c HexColor) String() string { return c.v }

// CategoryType is the accounting class of a category.
type CategoryType string

const (
	TypeAsset     CategoryType = "asset"
	TypeLiability CategoryType = "liability"
	TypeIncome    CategoryType = "income"
	TypeExpense   CategoryType = "expense"
	TypeEquity    CategoryType = "equity"
)

// CategoryTypes lists every valid type in declaration order.
func CategoryTypes() []CategoryType {
	return []CategoryType{TypeAsset, TypeLiability, TypeIncome, TypeExpense, TypeEquity}
}

// ParseCategoryType requires an exact, case-sensitive match.
func ParseCategoryType(s string) (CategoryType, error) {
	t := CategoryType(s)
	if t.IsValid() {
		return t, nil
	}
	if s == "" {
		return "", Invalid(FieldCategoryType, RuleRequired, "must not be empty")
	}
	return "", Invalid(FieldCategoryType, RuleOneOf, fmt.Sprintf("%q is not one of asset, liability, income, expense, equity", s))
}

func (t CategoryType) IsValid() bool {
	switch t {
	case TypeAsset, TypeLiability, TypeIncome, TypeExpense, TypeEquity:
		return true
	}
	return false
}

func (t CategoryType) String() string { return string(t) }

// ParseDescription trims s. Empty input means absent.
func ParseDescription(s string) (*string, error) {
	return parseOptionalText(FieldDescription, s, MaxDescriptionLength)
}

// ParseIcon trims s. Empty input means absent.
func ParseIcon(s string) (*string, error) {
	return parseOptionalText(FieldIcon, s, MaxIconLength)
}

func parseOptionalText(field, s string, limit int) (*string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(s) > limit {
		return nil, Invalid(field, RuleMaxLength, fmt.Sprintf("must be at most %d characters", limit))
	}
	return &s, nil
}
