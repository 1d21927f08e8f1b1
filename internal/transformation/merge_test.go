package transformation

import (
	"reflect"
	"testing"
)

func TestMergeScalarOverride(t *testing.T) {
	existing := Config{Width: Int(100), Height: Int(100)}
	got := Merge(existing, &Config{Width: Int(50)})

	want := Config{Width: Int(50), Height: Int(100)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestMergeNestedSection(t *testing.T) {
	existing := Config{Recolor: &RecolorOptions{To: String("red"), Multiple: Bool(false)}}
	got := Merge(existing, &Config{Recolor: &RecolorOptions{To: String("blue")}})

	want := Config{Recolor: &RecolorOptions{To: String("blue"), Multiple: Bool(false)}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", *got.Recolor, *want.Recolor)
	}
}

func TestMergeAbsentIncomingReturnsExisting(t *testing.T) {
	existing := Base(Remove)
	existing.Width = Int(640)

	if got := Merge(existing, nil); !reflect.DeepEqual(got, existing) {
		t.Fatalf("nil incoming changed config: %+v", got)
	}
	if got := Merge(existing, &Config{}); !reflect.DeepEqual(got, existing) {
		t.Fatalf("empty incoming changed config: %+v", got)
	}
}

func TestMergeLaws(t *testing.T) {
	cases := []struct {
		name     string
		existing Config
		incoming Config
	}{
		{"disjoint", Config{Width: Int(10)}, Config{Height: Int(20)}},
		{"scalar overlap", Config{Restore: Bool(false)}, Config{Restore: Bool(true)}},
		{"section added", Config{Width: Int(10)}, Base(Recolor)},
		{
			"section merged",
			Config{Remove: &RemoveOptions{Prompt: String("cat"), RemoveShadow: Bool(false)}},
			Config{Remove: &RemoveOptions{Prompt: String("dog"), Multiple: Bool(true)}},
		},
		{"false overrides true", Config{FillBackground: Bool(true)}, Config{FillBackground: Bool(false)}},
		{"empty string overrides", Config{Recolor: &RecolorOptions{To: String("red")}}, Config{Recolor: &RecolorOptions{To: String("")}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			incoming := tc.incoming
			once := Merge(tc.existing, &incoming)
			twice := Merge(once, &incoming)
			if !reflect.DeepEqual(once, twice) {
				t.Fatalf("merge is not idempotent: %+v vs %+v", once, twice)
			}

			// present scalars in incoming always win
			if incoming.Width != nil && *once.Width != *incoming.Width {
				t.Fatalf("width not overridden")
			}
			if incoming.Restore != nil && *once.Restore != *incoming.Restore {
				t.Fatalf("restore not overridden")
			}
			if incoming.FillBackground != nil && *once.FillBackground != *incoming.FillBackground {
				t.Fatalf("fillBackground not overridden")
			}
			// keys only in existing are preserved
			if tc.existing.Width != nil && incoming.Width == nil && *once.Width != *tc.existing.Width {
				t.Fatalf("existing width lost")
			}
			// nested sections follow the recursive law
			if tc.existing.Remove != nil && incoming.Remove != nil {
				want := Merge(Config{Remove: tc.existing.Remove}, &Config{Remove: incoming.Remove})
				if !reflect.DeepEqual(once.Remove, want.Remove) {
					t.Fatalf("remove section: got %+v, want %+v", once.Remove, want.Remove)
				}
				if *once.Remove.Prompt != "dog" || *once.Remove.RemoveShadow != false || *once.Remove.Multiple != true {
					t.Fatalf("unexpected remove section %+v", once.Remove)
				}
			}
		})
	}
}

func TestMergeDoesNotAlias(t *testing.T) {
	existing := Base(Recolor)
	incoming := Config{Recolor: &RecolorOptions{Prompt: String("shirt")}}
	got := Merge(existing, &incoming)

	*got.Recolor.Prompt = "changed"
	*got.Recolor.Multiple = false
	if *existing.Recolor.Prompt != "" || !*existing.Recolor.Multiple {
		t.Fatalf("existing config was mutated: %+v", existing.Recolor)
	}
	if *incoming.Recolor.Prompt != "shirt" {
		t.Fatalf("incoming config was mutated: %+v", incoming.Recolor)
	}
}

func TestBaseValidatesForItsType(t *testing.T) {
	for _, typ := range Types {
		if err := Base(typ).Validate(typ); err != nil {
			t.Fatalf("base config for %s is invalid: %v", typ, err)
		}
	}
}

func TestValidateRejectsForeignSection(t *testing.T) {
	if err := Base(Recolor).Validate(Remove); err == nil {
		t.Fatal("expected recolor section to be rejected for remove type")
	}
	if err := (Config{Width: Int(-1)}).Validate(Fill); err == nil {
		t.Fatal("expected negative width to be rejected")
	}
	if err := (Config{}).Validate(Type("blur")); err == nil {
		t.Fatal("expected unknown type to be rejected")
	}
}

func TestParseType(t *testing.T) {
	if typ, err := ParseType("removeBackground"); err != nil || typ != RemoveBackground {
		t.Fatalf("got %q, %v", typ, err)
	}
	if _, err := ParseType("sharpen"); err == nil {
		t.Fatal("expected error for unknown type")
	}
}
