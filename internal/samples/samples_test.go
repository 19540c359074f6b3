package samples

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestDefaultProvider_Lookup(t *testing.T) {
	p := Default()
	if p.Len() == 0 {
		t.Fatal("expected embedded samples to load")
	}

	got := p.APISampleCodes("Excel.Workbook", "Worksheets")
	s, ok := got["worksheets"]
	if !ok {
		t.Fatalf("expected worksheets sample, got %v", got)
	}
	if !strings.Contains(s.Sample, "Excel.run") {
		t.Errorf("unexpected sample body: %q", s.Sample)
	}
}

func TestProvider_CaseInsensitive(t *testing.T) {
	p := NewProvider(nil)
	p.Add("Word.Body", "insertParagraph", "https://doc", "body.insertParagraph('x', 'End');", "Insert a paragraph")

	if got := p.APISampleCodes("word.BODY", "InsertParagraph"); len(got) != 1 {
		t.Errorf("expected one sample, got %v", got)
	}
}

func TestProvider_MissingPath(t *testing.T) {
	p := NewProvider(nil)
	p.Add("Excel.Chart", "title", "", "", "")

	if got := p.APISampleCodes("Excel.Range", "title"); len(got) != 0 {
		t.Errorf("expected empty map for unknown class, got %v", got)
	}
	if got := p.APISampleCodes("Excel.Chart", "legend"); len(got) != 0 {
		t.Errorf("expected empty map for unknown member, got %v", got)
	}
}

func TestProvider_LazySource(t *testing.T) {
	src, _ := json.Marshal(map[string]any{
		"samples": []map[string]string{
			{"namespace": "PowerPoint.Slide", "name": "shapes", "docLink": "d", "sample": "s", "scenario": "sc"},
		},
	})
	p := NewProvider(src)
	got := p.APISampleCodes("PowerPoint.Slide", "shapes")
	if got["shapes"].Scenario != "sc" {
		t.Errorf("expected sample from source, got %v", got)
	}
}

func TestAPIListByObjects(t *testing.T) {
	got := APIListByObjects([]string{"Paragraph"})
	if !strings.Contains(got, "// paragraph:\n") {
		t.Errorf("expected paragraph section, got %q", got[:min(len(got), 200)])
	}
	if strings.Contains(got, "// comment:") {
		t.Error("unrelated object should not be listed")
	}
	if APIListByObjects([]string{"Nothing"}) != "" {
		t.Error("expected empty list for unknown object")
	}
}

func TestIsRelated(t *testing.T) {
	tests := []struct {
		candidates []string
		target     string
		want       bool
	}{
		{[]string{"ContentControl"}, "contentControlCollection", true},
		{[]string{"Excel.ChartCollection"}, "Excel.Chart", true},
		{[]string{"Table"}, "body", false},
		{[]string{""}, "body", false},
	}
	for _, tt := range tests {
		if got := isRelated(tt.candidates, tt.target); got != tt.want {
			t.Errorf("isRelated(%v, %q) = %v, want %v", tt.candidates, tt.target, got, tt.want)
		}
	}
}

func TestWordObjectsJSON(t *testing.T) {
	var objs map[string]string
	if err := json.Unmarshal([]byte(WordObjectsJSON()), &objs); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if objs["Paragraph"] == "" {
		t.Error("expected Paragraph description")
	}
}

func TestFormatSnippet(t *testing.T) {
	s := FormatSnippet("Excel.Chart", "Property", "title", SampleData{Scenario: "Set title", Sample: "chart.title.text = 'x';", DocLink: "https://doc"})
	want := "- The code sample of Class: Excel.Chart and Property: title for the scenario: Set title listed below: chart.title.text = 'x';, API reference: https://doc"
	if s != want {
		t.Errorf("expected %q, got %q", want, s)
	}
}
