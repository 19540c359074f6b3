package chat

import (
	"math"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func TestExtractCodeBlocks(t *testing.T) {
	text := "intro\n```javascript\nconst a = 1;\n```\nmid\n```ts\nno\n```\n```javascript\nconst b = 2;\n```"
	got := ExtractCodeBlocks(text, "javascript")
	want := "\nconst a = 1;\n\n\nconst b = 2;\n"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if ExtractCodeBlocks("no code here", "javascript") != "" {
		t.Error("expected empty result without fences")
	}
}

func TestExtractCodeBlocks_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		bodies := rapid.SliceOfN(rapid.StringMatching("[a-z =;\n]{0,30}"), 0, 5).Draw(t, "bodies")
		var sb strings.Builder
		for _, b := range bodies {
			sb.WriteString("text\n```javascript")
			sb.WriteString(b)
			sb.WriteString("```\n")
		}
		got := ExtractCodeBlocks(sb.String(), "javascript")
		if want := strings.Join(bodies, "\n"); got != want {
			t.Fatalf("expected %q, got %q", want, got)
		}
	})
}

func TestFirstNumber(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"[85%] :: task", 85, true},
		{"Yes, 92% sure", 92, true},
		{"no digits", 0, false},
		{"Yes, 99999999999999999999% sure", math.MaxInt, true},
	}
	for _, tt := range tests {
		got, ok := FirstNumber(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("FirstNumber(%q) = (%d, %v), want (%d, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseJSONMaybeInText(t *testing.T) {
	type addin struct {
		Platform string   `json:"PLATFORM"`
		APISet   []string `json:"APISET"`
	}
	inputs := []string{
		`{"PLATFORM":"Word","APISET":["Paragraph"]}`,
		"Here you go:\n```json\n{\"PLATFORM\":\"Word\",\"APISET\":[\"Paragraph\"]}\n```",
		`Sure! {"PLATFORM":"Word","APISET":["Paragraph"]} Hope it helps.`,
	}
	for _, in := range inputs {
		var a addin
		if err := ParseJSONMaybeInText(in, &a); err != nil {
			t.Fatalf("ParseJSONMaybeInText(%q): %v", in, err)
		}
		if a.Platform != "Word" || len(a.APISet) != 1 {
			t.Errorf("unexpected result %+v for %q", a, in)
		}
	}

	var ids []string
	if err := ParseJSONMaybeInText(`The matches are ["a","b"].`, &ids); err != nil || len(ids) != 2 {
		t.Errorf("expected array parse, got %v (%v)", ids, err)
	}

	var a addin
	if err := ParseJSONMaybeInText("nothing here", &a); err == nil {
		t.Error("expected error for text without JSON")
	}
}

func TestCorrectEnumSpelling(t *testing.T) {
	in := "sheet.charts.add(Excel.ChartType.Line, range);\nsheet.charts.add(Excel.ChartType.ColumnClustered, r2);"
	want := "sheet.charts.add(Excel.ChartType.line, range);\nsheet.charts.add(Excel.ChartType.columnClustered, r2);"
	if got := CorrectEnumSpelling(in); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if got := CorrectEnumSpelling("no enums"); got != "no enums" {
		t.Errorf("expected unchanged text, got %q", got)
	}
}
