package notion

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/jonathan/profile-importer/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		max      int
		expected string
	}{
		{"short", "hello", 10, "hello"},
		{"exact", "hello", 5, "hello"},
		{"trimmed first", "  hello  ", 5, "hello"},
		{"cut", "hello world", 8, "hello..."},
		{"runes", "张三李四王五赵六", 5, "张三..."},
		{"empty", "", 5, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Truncate(tt.input, tt.max))
		})
	}
}

func TestCleanSelectValue(t *testing.T) {
	assert.Equal(t, "Beijing - China", CleanSelectValue("Beijing, China"))
	assert.Equal(t, "a - b - c", CleanSelectValue(" a, b, c "))
	assert.Equal(t, "", CleanSelectValue(""))
}

func TestStripInvisible(t *testing.T) {
	assert.Equal(t, "张三", StripInvisible("\u200b张\u0000三\ufeff"))
	assert.Equal(t, "ab", StripInvisible("a\u0085\u200db"))
	assert.Equal(t, "line oneline two", StripInvisible("line one\nline two"))
}

func TestBuildProperties_Dispatch(t *testing.T) {
	schema := map[string]PropertySchema{
		"Name":           {Type: TypeTitle},
		"Company":        {Type: TypeRichText},
		"Degree":         {Type: TypeSelect},
		"School":         {Type: TypeMultiSelect},
		"Email":          {Type: TypeEmail},
		"Phone":          {Type: TypePhoneNumber},
		"Years":          {Type: TypeNumber},
		"Location":       {Type: TypeNumber},
		"Contacted":      {Type: TypeCheckbox},
		"Position":       {Type: TypeCheckbox},
		"URL":            {Type: TypeURL},
		"Avatar":         {Type: TypeFiles},
		"Owner":          {Type: "people"},
		"GraduationTime": {Type: "date"},
	}
	p := &types.ExtractedProfile{
		Name:           "张三",
		Company:        "ACME",
		Degree:         "硕士",
		School:         "北京大学, MIT",
		Email:          "zhang@example.com",
		Phone:          "138",
		Location:       "not a number",
		Position:       "Engineer",
		URL:            "https://example.com/zs",
		Avatar:         "https://cdn.example.com/zs.jpg",
		GraduationTime: "预计2025-06",
	}

	props, skipped := BuildProperties(schema, p)

	assert.Equal(t, []string{"Owner"}, skipped)

	assert.Equal(t, "张三", props["Name"].Title[0].Text.Content)
	assert.Equal(t, "ACME", props["Company"].RichText[0].Text.Content)
	assert.Equal(t, "硕士", props["Degree"].Select.Name)
	require.Len(t, props["School"].MultiSelect, 1)
	assert.Equal(t, "北京大学 - MIT", props["School"].MultiSelect[0].Name)
	assert.Equal(t, "zhang@example.com", *props["Email"].Email)
	assert.Equal(t, "138", *props["Phone"].PhoneNumber)
	assert.Equal(t, 0.0, *props["Location"].Number)
	assert.NotContains(t, props, "Years", "numbers without a value are left out")
	assert.False(t, *props["Contacted"].Checkbox)
	assert.True(t, *props["Position"].Checkbox)
	assert.Equal(t, "https://example.com/zs", *props["URL"].URL)

	require.Len(t, props["Avatar"].Files, 1)
	assert.Equal(t, File{Type: "external", Name: "avatar", External: &ExternalFile{URL: "https://cdn.example.com/zs.jpg"}}, props["Avatar"].Files[0])

	// GraduationTime always goes out as rich text, whatever its declared type.
	assert.Equal(t, "预计2025-06", props["GraduationTime"].RichText[0].Text.Content)
}

func TestBuildProperties_EmptyValues(t *testing.T) {
	schema := map[string]PropertySchema{
		"Name":     {Type: TypeTitle},
		"Notes":    {Type: TypeRichText},
		"Degree":   {Type: TypeSelect},
		"Email":    {Type: TypeEmail},
		"Phone":    {Type: TypePhoneNumber},
		"URL":      {Type: TypeURL},
		"Avatar":   {Type: TypeFiles},
		"Checked":  {Type: TypeCheckbox},
		"Tags":     {Type: TypeMultiSelect},
		"Salary":   {Type: TypeNumber},
		"Location": {Type: TypeRichText},
	}

	props, skipped := BuildProperties(schema, &types.ExtractedProfile{})

	assert.Empty(t, skipped)
	// title, rich_text and checkbox are always written.
	assert.ElementsMatch(t, []string{"Name", "Notes", "Checked", "Location"}, keys(props))
	assert.Equal(t, "", props["Name"].Title[0].Text.Content)
	assert.Equal(t, "", props["Notes"].RichText[0].Text.Content)
	assert.NotContains(t, props, "GraduationTime")
}

func TestBuildProperties_GraduationTimeNeedsDeclaration(t *testing.T) {
	props, _ := BuildProperties(map[string]PropertySchema{"Name": {Type: TypeTitle}}, &types.ExtractedProfile{GraduationTime: "2020-06"})
	assert.NotContains(t, props, GraduationTimeProperty)
}

func TestBuildProperties_LookupFallsBackToExactKey(t *testing.T) {
	schema := map[string]PropertySchema{"graduationTime": {Type: TypeRichText}}
	props, _ := BuildProperties(schema, &types.ExtractedProfile{GraduationTime: "2021-07"})
	assert.Equal(t, "2021-07", props["graduationTime"].RichText[0].Text.Content)
}

func TestBuildProperties_TruncatesAndCleans(t *testing.T) {
	schema := map[string]PropertySchema{
		"Name":  {Type: TypeTitle},
		"Phone": {Type: TypePhoneNumber},
	}
	p := &types.ExtractedProfile{
		Name:  strings.Repeat("a", 150),
		Phone: "\u200b" + strings.Repeat("1", 60),
	}

	props, _ := BuildProperties(schema, p)

	assert.Equal(t, strings.Repeat("a", 97)+"...", props["Name"].Title[0].Text.Content)
	// Truncated to 50 runes first (the zero-width space counts), then cleaned.
	assert.Equal(t, strings.Repeat("1", 46)+"...", *props["Phone"].PhoneNumber)
}

func TestNewPageRequest_JSON(t *testing.T) {
	req := NewPageRequest("db-1", map[string]PropertyValue{
		"Contacted": {Checkbox: boolPtr(false)},
	}, "")

	data, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"parent": {"database_id": "db-1"}, "properties": {"Contacted": {"checkbox": false}}}`, string(data))

	withIcon := NewPageRequest("db-1", nil, "https://cdn.example.com/a.jpg")
	assert.Equal(t, "https://cdn.example.com/a.jpg", withIcon.Icon.External.URL)
}

func keys(m map[string]PropertyValue) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func boolPtr(b bool) *bool { return &b }
