package render

import (
	"encoding/json"
	"encoding/xml"
	"io"
	"strings"
	"testing"

	"github.com/matzehuels/masonry/pkg/errors"
	"github.com/matzehuels/masonry/pkg/masonry"
)

func testLayout() masonry.Layout {
	items := []masonry.Item{
		{ID: "a", Width: 300, Height: 300},
		{ID: "b", Width: 300, Height: 600},
		{ID: "c", Width: 600, Height: 300},
		{ID: "<d&e>", Width: 300, Height: 300},
	}
	return masonry.Compute(masonry.DefaultConstraints(), 616, items)
}

func TestValidateFormats(t *testing.T) {
	if err := ValidateFormats([]string{"svg", "json", "txt"}); err != nil {
		t.Errorf("valid formats rejected: %v", err)
	}
	err := ValidateFormats([]string{"svg", "png"})
	if !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("ValidateFormats(png) = %v, want INVALID_FORMAT", err)
	}
}

func TestRenderSVGWellFormed(t *testing.T) {
	svg := RenderSVG(testLayout(), WithMeta(map[string]Meta{"a": {Title: "Beach & Sun", Video: true}}))

	dec := xml.NewDecoder(strings.NewReader(string(svg)))
	rects := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			if err == io.EOF {
				break
			}
			t.Fatalf("SVG is not well-formed XML: %v", err)
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == "rect" {
			rects++
		}
	}
	// One background rect plus one per block.
	if rects != 5 {
		t.Errorf("rects = %d, want 5", rects)
	}
	if !strings.Contains(string(svg), "Beach &amp; Sun") {
		t.Error("title should be escaped and present")
	}
	if !strings.Contains(string(svg), "<polygon") {
		t.Error("video items should get a play marker")
	}
}

func TestRenderSVGDeterministic(t *testing.T) {
	l := testLayout()
	if string(RenderSVG(l)) != string(RenderSVG(l)) {
		t.Error("RenderSVG should be deterministic")
	}
}

func TestRenderJSON(t *testing.T) {
	l := testLayout()
	data, err := RenderJSON(l, WithMeta(map[string]Meta{"b": {Title: "Tall", Src: "https://cdn/b.jpg"}}))
	if err != nil {
		t.Fatal(err)
	}

	var out struct {
		NumCols int `json:"num_cols"`
		Blocks  []struct {
			ID     string `json:"id"`
			Column int    `json:"column"`
			Meta   *Meta  `json:"meta"`
		} `json:"blocks"`
		Columns [][]string `json:"columns"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if out.NumCols != l.NumCols || len(out.Blocks) != 4 || len(out.Columns) != l.NumCols {
		t.Errorf("unexpected document: %s", data)
	}
	for _, b := range out.Blocks {
		if (b.Meta != nil) != (b.ID == "b") {
			t.Errorf("block %s meta = %+v", b.ID, b.Meta)
		}
	}
}

func TestRenderText(t *testing.T) {
	txt := RenderText(testLayout(), WithTextWidth(40))
	if txt == "" {
		t.Fatal("RenderText returned nothing")
	}
	lines := strings.Split(strings.TrimRight(txt, "\n"), "\n")
	for _, line := range lines {
		if n := len([]rune(line)); n > 40 {
			t.Errorf("line exceeds width budget (%d): %q", n, line)
		}
	}
	if got := strings.Count(txt, "┌"); got != 4 {
		t.Errorf("boxes = %d, want 4", got)
	}
	if !strings.Contains(txt, "a") {
		t.Error("labels should appear")
	}

	if RenderText(masonry.Layout{}) != "" {
		t.Error("empty layout should render nothing")
	}
}

func TestRender(t *testing.T) {
	l := testLayout()
	for _, f := range Formats {
		data, err := Render(l, f)
		if err != nil || len(data) == 0 {
			t.Errorf("Render(%s) = %d bytes, %v", f, len(data), err)
		}
		if ContentType(f) == "" {
			t.Errorf("ContentType(%s) empty", f)
		}
	}
	if _, err := Render(l, "gif"); err == nil {
		t.Error("unknown format should fail")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello", 4, "hel…"},
		{"hello", 1, "…"},
		{"hello", 0, ""},
		{"héllo", 3, "hé…"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
