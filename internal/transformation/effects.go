package transformation

import (
	"fmt"
	"net/url"
	"strings"
)

// AspectRatio is a fill preset.
type AspectRatio struct {
	Label  string `json:"label"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// AspectRatios maps the selectable keys to their presets.
var AspectRatios = map[string]AspectRatio{
	"1:1":  {Label: "Square (1:1)", Width: 1000, Height: 1000},
	"3:4":  {Label: "Standard Portrait (3:4)", Width: 1000, Height: 1334},
	"9:16": {Label: "Phone Portrait (9:16)", Width: 1000, Height: 1778},
}

// DefaultDimension is used when no size is known.
const DefaultDimension = 1000

// Dimension selects width or height in ImageSize.
type Dimension int

const (
	DimensionWidth Dimension = iota
	DimensionHeight
)

// ImageSize returns the output size of a transformed image. Fill uses the
// aspect ratio preset, every other type keeps the source dimensions.
func ImageSize(t Type, width, height int, aspectRatio string, dim Dimension) int {
	if t == Fill {
		preset, ok := AspectRatios[aspectRatio]
		if !ok {
			return DefaultDimension
		}
		if dim == DimensionWidth {
			return preset.Width
		}
		return preset.Height
	}
	v := height
	if dim == DimensionWidth {
		v = width
	}
	if v <= 0 {
		return DefaultDimension
	}
	return v
}

// Effects renders the configuration as image provider transformation
// components. width and height are used for fill when the configuration
// carries no size of its own.
func (c Config) Effects(width, height int) []string {
	if c.Width != nil {
		width = *c.Width
	}
	if c.Height != nil {
		height = *c.Height
	}

	var out []string
	if isTrue(c.Restore) {
		out = append(out, "e_gen_restore")
	}
	if isTrue(c.FillBackground) {
		out = append(out, fmt.Sprintf("b_gen_fill,c_pad,w_%d,h_%d", width, height))
	}
	if c.Remove != nil && deref(c.Remove.Prompt) != "" {
		parts := []string{"prompt_" + escape(*c.Remove.Prompt)}
		if isTrue(c.Remove.Multiple) {
			parts = append(parts, "multiple_true")
		}
		if isTrue(c.Remove.RemoveShadow) {
			parts = append(parts, "remove-shadow_true")
		}
		out = append(out, "e_gen_remove:"+strings.Join(parts, ";"))
	}
	if c.Recolor != nil && deref(c.Recolor.Prompt) != "" {
		parts := []string{"prompt_" + escape(*c.Recolor.Prompt)}
		if to := strings.TrimPrefix(deref(c.Recolor.To), "#"); to != "" {
			parts = append(parts, "to-color_"+escape(to))
		}
		if isTrue(c.Recolor.Multiple) {
			parts = append(parts, "multiple_true")
		}
		out = append(out, "e_gen_recolor:"+strings.Join(parts, ";"))
	}
	if isTrue(c.RemoveBackground) {
		out = append(out, "e_background_removal")
	}
	return out
}

func isTrue(b *bool) bool { return b != nil && *b }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func escape(s string) string {
	return url.PathEscape(strings.TrimSpace(s))
}
