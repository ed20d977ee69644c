package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/matzehuels/masonry/pkg/cache"
	"github.com/matzehuels/masonry/pkg/errors"
	"github.com/matzehuels/masonry/pkg/gallery"
	"github.com/matzehuels/masonry/pkg/masonry"
	"github.com/matzehuels/masonry/pkg/render"
)

func photo(id int64, w, h float64) gallery.MediaItem {
	return gallery.MediaItem{
		FileID:    id,
		ObjectKey: fmt.Sprintf("photo-%d.jpg", id),
		FileType:  gallery.FileTypeImage,
		Width:     w,
		Height:    h,
		Title:     fmt.Sprintf("Photo %d", id),
	}
}

func photos(n int) []gallery.MediaItem {
	items := make([]gallery.MediaItem, n)
	for i := range n {
		items[i] = photo(int64(i+1), 400, float64(300+50*(i%4)))
	}
	return items
}

func TestOptionsValidation(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		code errors.Code
	}{
		{"no source", Options{}, errors.ErrCodeInvalidInput},
		{"negative limit", Options{Items: photos(1), Limit: -1}, errors.ErrCodeInvalidInput},
		{"bad search", Options{Items: photos(1), Search: "a\x00b"}, errors.ErrCodeInvalidInput},
		{"bad constraints", Options{Items: photos(1), Constraints: masonry.Constraints{MinCols: 3, MaxCols: 2, MinColWidth: 100, MaxColWidth: 200}}, errors.ErrCodeInvalidConstraints},
		{"bad width", Options{Items: photos(1), Width: -10}, errors.ErrCodeInvalidWidth},
		{"bad format", Options{Items: photos(1), Formats: []string{"png"}}, errors.ErrCodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.GetCode(err); got != tt.code {
				t.Errorf("code = %s, want %s (%v)", got, tt.code, err)
			}
		})
	}
}

func TestOptionsDefaults(t *testing.T) {
	opts := Options{Items: photos(1)}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults: %v", err)
	}
	if opts.Constraints != masonry.DefaultConstraints() {
		t.Errorf("Constraints = %+v, want defaults", opts.Constraints)
	}
	if opts.Width != DefaultWidth {
		t.Errorf("Width = %v, want %v", opts.Width, DefaultWidth)
	}
	if opts.Limit != DefaultLimit {
		t.Errorf("Limit = %d, want %d", opts.Limit, DefaultLimit)
	}
	if len(opts.Formats) != 1 || opts.Formats[0] != render.FormatSVG {
		t.Errorf("Formats = %v, want [svg]", opts.Formats)
	}
	if opts.Logger == nil {
		t.Error("Logger should be set")
	}
}

func TestArtifactKeyOpts(t *testing.T) {
	opts := Options{TextWidth: 100, Padding: 8}
	if k := opts.ArtifactKeyOpts(render.FormatJSON, "m"); k.TextWidth != 0 || k.Padding != 0 {
		t.Errorf("json key opts should ignore text width and padding: %+v", k)
	}
	if k := opts.ArtifactKeyOpts(render.FormatText, "m"); k.TextWidth != 100 {
		t.Errorf("txt key opts TextWidth = %d", k.TextWidth)
	}
	if k := opts.ArtifactKeyOpts(render.FormatSVG, "m"); k.Padding != 8 || k.MetaHash != "m" {
		t.Errorf("svg key opts = %+v", k)
	}
}

func TestFetchItems(t *testing.T) {
	video := photo(10, 1920, 1080)
	video.FileType = gallery.FileTypeVideo
	video.Tags = []string{"Beach"}
	doc := photo(11, 100, 100)
	doc.FileType = gallery.FileTypeOther

	items := []gallery.MediaItem{photo(1, 4, 3), doc, photo(1, 4, 3), video, photo(2, 3, 4)}

	t.Run("filters and dedupes", func(t *testing.T) {
		got, err := FetchItems(context.Background(), Options{Items: items})
		if err != nil {
			t.Fatal(err)
		}
		want := []string{"photo-1.jpg", "photo-10.jpg", "photo-2.jpg"}
		if len(got) != len(want) {
			t.Fatalf("got %d items, want %d", len(got), len(want))
		}
		for i, id := range want {
			if got[i].LayoutID() != id {
				t.Errorf("item %d = %s, want %s", i, got[i].LayoutID(), id)
			}
		}
	})

	t.Run("search", func(t *testing.T) {
		got, err := FetchItems(context.Background(), Options{Items: items, Search: "beach"})
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || got[0].FileID != 10 {
			t.Errorf("search result = %+v", got)
		}
	})

	t.Run("inline limit counts kept items", func(t *testing.T) {
		got, err := FetchItems(context.Background(), Options{Items: items, Limit: 2})
		if err != nil {
			t.Fatal(err)
		}
		want := []string{"photo-1.jpg", "photo-10.jpg"}
		if len(got) != len(want) {
			t.Fatalf("got %d items, want %d", len(got), len(want))
		}
		for i, id := range want {
			if got[i].LayoutID() != id {
				t.Errorf("item %d = %s, want %s", i, got[i].LayoutID(), id)
			}
		}
	})

	t.Run("inline limit after search", func(t *testing.T) {
		many := append(photos(5), video, photo(20, 4, 3))
		got, err := FetchItems(context.Background(), Options{Items: many, Search: "beach", Limit: 1})
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || got[0].FileID != 10 {
			t.Errorf("search with limit = %+v", got)
		}
	})

	t.Run("source with limit", func(t *testing.T) {
		src := gallery.NewMemorySource(photos(25), 10)
		got, err := FetchItems(context.Background(), Options{Source: src, Limit: 15})
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 15 {
			t.Errorf("got %d items, want 15", len(got))
		}
	})
}

func TestGenerateLayout(t *testing.T) {
	l, err := GenerateLayout(photos(7), Options{Width: 948})
	if err != nil {
		t.Fatal(err)
	}
	if l.NumCols != 3 {
		t.Errorf("NumCols = %d, want 3", l.NumCols)
	}
	if l.Columns.Len() != 7 {
		t.Errorf("assigned %d items, want 7", l.Columns.Len())
	}
}

func TestRunnerExecute(t *testing.T) {
	mem := cache.NewMemoryCache()
	runner := NewRunner(mem, nil, nil)
	src := gallery.NewMemorySource(photos(12), 5)
	opts := Options{
		Source:  src,
		Width:   948,
		Formats: []string{render.FormatSVG, render.FormatJSON, render.FormatText},
	}

	first, err := runner.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if first.Stats.ItemCount != 12 || first.Stats.NumCols != 3 {
		t.Errorf("stats = %+v", first.Stats)
	}
	if first.CacheInfo.LayoutHit || first.CacheInfo.RenderHit {
		t.Errorf("first run should miss: %+v", first.CacheInfo)
	}
	if first.ItemsHash == "" {
		t.Error("ItemsHash should be set")
	}
	for _, f := range opts.Formats {
		if len(first.Artifacts[f]) == 0 {
			t.Errorf("missing %s artifact", f)
		}
	}
	if !strings.Contains(string(first.Artifacts[render.FormatSVG]), "Photo 1") {
		t.Error("svg should carry item titles")
	}

	second, err := runner.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !second.CacheInfo.LayoutHit || !second.CacheInfo.RenderHit {
		t.Errorf("second run should hit: %+v", second.CacheInfo)
	}
	if !second.Layout.Columns.Equal(first.Layout.Columns) {
		t.Error("cached layout differs from computed layout")
	}

	opts.Refresh = true
	third, err := runner.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if third.CacheInfo.LayoutHit || third.CacheInfo.RenderHit {
		t.Errorf("refresh should bypass cache: %+v", third.CacheInfo)
	}
}

func TestRunnerWidthChangesLayoutKey(t *testing.T) {
	mem := cache.NewMemoryCache()
	runner := NewRunner(mem, nil, nil)
	items := photos(6)

	narrow, hit, err := runner.ComputeLayoutWithCacheInfo(context.Background(), items, Options{Width: 400})
	if err != nil || hit {
		t.Fatalf("narrow: hit=%v err=%v", hit, err)
	}
	wide, hit, err := runner.ComputeLayoutWithCacheInfo(context.Background(), items, Options{Width: 1200})
	if err != nil || hit {
		t.Fatalf("wide: hit=%v err=%v", hit, err)
	}
	if narrow.NumCols == wide.NumCols {
		t.Errorf("expected different column counts, both %d", narrow.NumCols)
	}
	if mem.Len() != 2 {
		t.Errorf("cache entries = %d, want 2", mem.Len())
	}
}

func TestRunnerConcurrentLayouts(t *testing.T) {
	runner := NewRunner(cache.NewMemoryCache(), nil, nil)
	items := photos(30)

	var wg sync.WaitGroup
	results := make([]masonry.Layout, 8)
	errs := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = runner.ComputeLayout(context.Background(), items, Options{Width: 948})
		}()
	}
	wg.Wait()

	for i := range results {
		if errs[i] != nil {
			t.Fatalf("layout %d: %v", i, errs[i])
		}
		if !results[i].Columns.Equal(results[0].Columns) {
			t.Errorf("layout %d differs", i)
		}
	}
}

func TestRunnerInvalidOptions(t *testing.T) {
	runner := NewRunner(nil, nil, nil)
	_, err := runner.Execute(context.Background(), Options{Items: photos(1), Formats: []string{"gif"}})
	if !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("err = %v, want INVALID_FORMAT", err)
	}
}
