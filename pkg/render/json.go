package render

import (
	"encoding/json"

	"github.com/matzehuels/masonry/pkg/masonry"
)

type jsonOutput struct {
	ContainerWidth float64            `json:"container_width"`
	NumCols        int                `json:"num_cols"`
	ColWidth       float64            `json:"col_width"`
	Gap            float64            `json:"gap"`
	Width          float64            `json:"width"`
	Height         float64            `json:"height"`
	Columns        masonry.Assignment `json:"columns"`
	Blocks         []jsonBlock        `json:"blocks"`
}

type jsonBlock struct {
	masonry.Block
	Meta *Meta `json:"meta,omitempty"`
}

// RenderJSON renders the layout as an indented JSON document. Blocks keep
// layout order; metadata from WithMeta is attached per block.
func RenderJSON(l masonry.Layout, opts ...Option) ([]byte, error) {
	r := newRenderer(opts...)

	out := jsonOutput{
		ContainerWidth: l.ContainerWidth,
		NumCols:        l.NumCols,
		ColWidth:       l.ColWidth,
		Gap:            l.Gap,
		Width:          l.Width,
		Height:         l.Height,
		Columns:        l.Columns,
		Blocks:         make([]jsonBlock, len(l.Blocks)),
	}
	for i, b := range l.Blocks {
		out.Blocks[i] = jsonBlock{Block: b}
		if m, ok := r.meta[b.ID]; ok {
			out.Blocks[i].Meta = &m
		}
	}
	return json.MarshalIndent(out, "", "  ")
}
