package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/masonry/pkg/gallery"
)

// fileItem accepts both gallery media items and bare layout items
// ({"id", "width", "height"}).
type fileItem struct {
	gallery.MediaItem
	ID string `json:"id"`
}

// readItems loads items from a JSON file, or stdin when path is "-".
// The document is an array of items, or an object holding the array under
// "items" or "results" (the API's list shape). Items without a file type are
// treated as images and bare IDs become object keys.
func readItems(path string) ([]gallery.MediaItem, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	return decodeItems(data)
}

func decodeItems(data []byte) ([]gallery.MediaItem, error) {
	data = bytes.TrimSpace(data)
	var raw []fileItem
	if len(data) > 0 && data[0] == '{' {
		var doc struct {
			Items   []fileItem `json:"items"`
			Results []fileItem `json:"results"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse items: %w", err)
		}
		raw = doc.Items
		if raw == nil {
			raw = doc.Results
		}
	} else if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse items: %w", err)
	}

	items := make([]gallery.MediaItem, len(raw))
	for i, r := range raw {
		it := r.MediaItem
		if it.ObjectKey == "" {
			it.ObjectKey = r.ID
		}
		if it.FileType == "" {
			it.FileType = gallery.FileTypeImage
		}
		items[i] = it
	}
	return items, nil
}

// writeJSON writes v as indented JSON to path, or to stdout when path is "-".
func writeJSON(stdout io.Writer, path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if path == "-" {
		_, err = stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
