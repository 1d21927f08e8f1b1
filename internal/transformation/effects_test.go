package transformation

import (
	"reflect"
	"testing"
)

func TestEffects(t *testing.T) {
	tests := []struct {
		name   string
		cfg    Config
		width  int
		height int
		want   []string
	}{
		{"restore", Base(Restore), 0, 0, []string{"e_gen_restore"}},
		{"remove background", Base(RemoveBackground), 0, 0, []string{"e_background_removal"}},
		{
			"fill uses config size",
			Merge(Base(Fill), &Config{Width: Int(1000), Height: Int(1778)}),
			400, 300,
			[]string{"b_gen_fill,c_pad,w_1000,h_1778"},
		},
		{"fill falls back to image size", Base(Fill), 400, 300, []string{"b_gen_fill,c_pad,w_400,h_300"}},
		{
			"remove",
			Merge(Base(Remove), &Config{Remove: &RemoveOptions{Prompt: String("red car")}}),
			0, 0,
			[]string{"e_gen_remove:prompt_red%20car;multiple_true;remove-shadow_true"},
		},
		{"remove without prompt", Base(Remove), 0, 0, nil},
		{
			"recolor",
			Merge(Base(Recolor), &Config{Recolor: &RecolorOptions{Prompt: String("shirt"), To: String("#00ff00")}}),
			0, 0,
			[]string{"e_gen_recolor:prompt_shirt;to-color_00ff00;multiple_true"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.cfg.Effects(tt.width, tt.height)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestImageSize(t *testing.T) {
	if got := ImageSize(Fill, 300, 200, "9:16", DimensionHeight); got != 1778 {
		t.Fatalf("fill height = %d", got)
	}
	if got := ImageSize(Fill, 300, 200, "", DimensionWidth); got != DefaultDimension {
		t.Fatalf("fill without preset = %d", got)
	}
	if got := ImageSize(Restore, 300, 200, "1:1", DimensionWidth); got != 300 {
		t.Fatalf("restore width = %d", got)
	}
	if got := ImageSize(Recolor, 0, 0, "", DimensionHeight); got != DefaultDimension {
		t.Fatalf("unknown size = %d", got)
	}
}
