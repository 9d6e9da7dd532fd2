package core

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertValidation(t *testing.T, err error, field, rule string) {
	t.Helper()
	var ve *ValidationError
	require.True(t, errors.As(err, &ve), "expected ValidationError, got %v", err)
	assert.Equal(t, field, ve.Field)
	assert.Equal(t, rule, ve.Rule)
}

func TestParseCode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		rule  string
	}{
		{name: "plain", input: "SAL", want: "SAL"},
		{name: "trimmed", input: "  food.dining ", want: "food.dining"},
		{name: "punctuation", input: "A-1_b.2", want: "A-1_b.2"},
		{name: "max length", input: strings.Repeat("x", MaxCodeLength), want: strings.Repeat("x", MaxCodeLength)},
		{name: "empty", input: "", rule: RuleRequired},
		{name: "blank", input: "   ", rule: RuleRequired},
		{name: "too long", input: strings.Repeat("x", MaxCodeLength+1), rule: RuleMaxLength},
		{name: "space inside", input: "SA L", rule: RuleCharset},
		{name: "non ascii", input: "cafè", rule: RuleCharset},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCode(tt.input)
			if tt.rule != "" {
				assertValidation(t, err, FieldCode, tt.rule)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestCodeKey(t *testing.T) {
	a, err := ParseCode("SAL")
	require.NoError(t, err)
	b, err := ParseCode("sal")
	require.NoError(t, err)

	assert.Equal(t, a.Key(), b.Key())
	assert.True(t, a.EqualFold(b))
	assert.NotEqual(t, a.String(), b.String())
}

func TestParseName(t *testing.T) {
	n, err := ParseName("  Salary ")
	require.NoError(t, err)
	assert.Equal(t, "Salary", n.String())

	_, err = ParseName(" \t")
	assertValidation(t, err, FieldName, RuleRequired)

	_, err = ParseName(strings.Repeat("é", MaxNameLength+1))
	assertValidation(t, err, FieldName, RuleMaxLength)

	_, err = ParseName(strings.Repeat("é", MaxNameLength))
	assert.NoError(t, err)
}

func TestParseSlug(t *testing.T) {
	valid := []string{"food", "food-and-drink", "a1-b2-c3", "2024"}
	for _, s := range valid {
		t.Run("valid "+s, func(t *testing.T) {
			got, err := ParseSlug(s)
			require.NoError(t, err)
			assert.Equal(t, s, got.String())
		})
	}

	invalid := map[string]string{
		"":          RuleRequired,
		"Food":      RuleCharset,
		"food_bar":  RuleCharset,
		"food bar":  RuleCharset,
		"-food":     RuleFormat,
		"food-":     RuleFormat,
		"food--bar": RuleFormat,
	}
	for s, rule := range invalid {
		t.Run("invalid "+s, func(t *testing.T) {
			_, err := ParseSlug(s)
			assertValidation(t, err, FieldSlug, rule)
		})
	}
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Food & Drink":    "food-drink",
		"  Rent  ":        "rent",
		"Car -- Fuel!!":   "car-fuel",
		"Utilities 2024 ": "utilities-2024",
	}

	for in, want := range tests {
		got, err := Slugify(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got.String(), in)
	}

	_, err := Slugify("!!!")
	assertValidation(t, err, FieldSlug, RuleRequired)
}

func TestParseHexColor(t *testing.T) {
	c, err := ParseHexColor("#ff5733")
	require.NoError(t, err)
	assert.Equal(t, "#FF5733", c.String())

	c, err = ParseHexColor("#00AAbb")
	require.NoError(t, err)
	assert.Equal(t, "#00AABB", c.String())

	for _, bad := range []string{"", "ff5733", "#ff573", "#ff57333", "#gg5733", "FF5733#"} {
		_, err := ParseHexColor(bad)
		assertValidation(t, err, FieldColor, RuleFormat)
	}
}

func TestParseCategoryType(t *testing.T) {
	for _, ct := range CategoryTypes() {
		got, err := ParseCategoryType(string(ct))
		require.NoError(t, err)
		assert.Equal(t, ct, got)
	}

	_, err := ParseCategoryType("Income")
	assertValidation(t, err, FieldCategoryType, RuleOneOf)

	_, err = ParseCategoryType("EXPENSE")
	assertValidation(t, err, FieldCategoryType, RuleOneOf)

	_, err = ParseCategoryType("")
	assertValidation(t, err, FieldCategoryType, RuleRequired)
}

func TestParseRowID(t *testing.T) {
	id, err := NewRowID()
	require.NoError(t, err)

	parsed, err := ParseRowID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = ParseRowID("")
	assertValidation(t, err, FieldID, RuleRequired)

	_, err = ParseRowID("not-a-uuid")
	assertValidation(t, err, FieldID, RuleFormat)

	_, err = ParseRowID(uuid.NewString())
	assertValidation(t, err, FieldID, RuleVersion)
}

func TestParseOptionalText(t *testing.T) {
	d, err := ParseDescription("  ")
	require.NoError(t, err)
	assert.Nil(t, d)

	d, err = ParseDescription(" Monthly pay ")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "Monthly pay", *d)

	_, err = ParseIcon(strings.Repeat("i", MaxIconLength+1))
	assertValidation(t, err, FieldIcon, RuleMaxLength)
}
