// Package transformation holds the per-type transformation configuration,
// its merge rules and the image provider effect strings derived from it.
package transformation

import (
	"fmt"
	"strings"

	"imaginify/internal/apperror"
)

// Type is the kind of edit applied to an image.
type Type string

const (
	Restore          Type = "restore"
	Fill             Type = "fill"
	Remove           Type = "remove"
	Recolor          Type = "recolor"
	RemoveBackground Type = "removeBackground"
)

// Types lists every supported transformation type.
var Types = []Type{Restore, Fill, Remove, Recolor, RemoveBackground}

func (t Type) Valid() bool {
	switch t {
	case Restore, Fill, Remove, Recolor, RemoveBackground:
		return true
	}
	return false
}

// ParseType converts s into a Type, rejecting unknown values.
func ParseType(s string) (Type, error) {
	t := Type(strings.TrimSpace(s))
	if !t.Valid() {
		return "", apperror.Validation(fmt.Sprintf("unknown transformation type %q", s))
	}
	return t, nil
}

// Config is the transformation configuration sent to the image provider.
// Nil fields are absent, which is distinct from a zero value: merging only
// overrides fields that are present.
type Config struct {
	Width            *int            `json:"width,omitempty" bson:"width,omitempty"`
	Height           *int            `json:"height,omitempty" bson:"height,omitempty"`
	Restore          *bool           `json:"restore,omitempty" bson:"restore,omitempty"`
	FillBackground   *bool           `json:"fillBackground,omitempty" bson:"fillBackground,omitempty"`
	RemoveBackground *bool           `json:"removeBackground,omitempty" bson:"removeBackground,omitempty"`
	Remove           *RemoveOptions  `json:"remove,omitempty" bson:"remove,omitempty"`
	Recolor          *RecolorOptions `json:"recolor,omitempty" bson:"recolor,omitempty"`
}

// RemoveOptions configures generative object removal.
type RemoveOptions struct {
	Prompt       *string `json:"prompt,omitempty" bson:"prompt,omitempty"`
	RemoveShadow *bool   `json:"removeShadow,omitempty" bson:"removeShadow,omitempty"`
	Multiple     *bool   `json:"multiple,omitempty" bson:"multiple,omitempty"`
}

// RecolorOptions configures generative recoloring.
type RecolorOptions struct {
	Prompt   *string `json:"prompt,omitempty" bson:"prompt,omitempty"`
	To       *string `json:"to,omitempty" bson:"to,omitempty"`
	Multiple *bool   `json:"multiple,omitempty" bson:"multiple,omitempty"`
}

// IsZero reports whether no field is present.
func (c Config) IsZero() bool {
	return c.Width == nil && c.Height == nil && c.Restore == nil &&
		c.FillBackground == nil && c.RemoveBackground == nil &&
		c.Remove == nil && c.Recolor == nil
}

// Base returns the starting configuration for a transformation type.
func Base(t Type) Config {
	switch t {
	case Restore:
		return Config{Restore: Bool(true)}
	case RemoveBackground:
		return Config{RemoveBackground: Bool(true)}
	case Fill:
		return Config{FillBackground: Bool(true)}
	case Remove:
		return Config{Remove: &RemoveOptions{Prompt: String(""), RemoveShadow: Bool(true), Multiple: Bool(true)}}
	case Recolor:
		return Config{Recolor: &RecolorOptions{Prompt: String(""), To: String(""), Multiple: Bool(true)}}
	}
	return Config{}
}

// Validate rejects sections that do not belong to t and negative sizes.
func (c Config) Validate(t Type) error {
	if !t.Valid() {
		return apperror.Validation(fmt.Sprintf("unknown transformation type %q", t))
	}
	if (c.Width != nil && *c.Width < 0) || (c.Height != nil && *c.Height < 0) {
		return apperror.Validation("width and height must not be negative")
	}
	foreign := func(section string) error {
		return apperror.Validation(fmt.Sprintf("%s is not valid for %s transformations", section, t))
	}
	if c.Restore != nil && t != Restore {
		return foreign("restore")
	}
	if c.FillBackground != nil && t != Fill {
		return foreign("fillBackground")
	}
	if c.RemoveBackground != nil && t != RemoveBackground {
		return foreign("removeBackground")
	}
	if c.Remove != nil && t != Remove {
		return foreign("remove")
	}
	if c.Recolor != nil && t != Recolor {
		return foreign("recolor")
	}
	return nil
}

// Clone returns a deep copy of c.
func (c Config) Clone() Config {
	out := Config{
		Width:            clonePtr(c.Width),
		Height:           clonePtr(c.Height),
		Restore:          clonePtr(c.Restore),
		FillBackground:   clonePtr(c.FillBackground),
		RemoveBackground: clonePtr(c.RemoveBackground),
	}
	if c.Remove != nil {
		out.Remove = &RemoveOptions{
			Prompt:       clonePtr(c.Remove.Prompt),
			RemoveShadow: clonePtr(c.Remove.RemoveShadow),
			Multiple:     clonePtr(c.Remove.Multiple),
		}
	}
	if c.Recolor != nil {
		out.Recolor = &RecolorOptions{
			Prompt:   clonePtr(c.Recolor.Prompt),
			To:       clonePtr(c.Recolor.To),
			Multiple: clonePtr(c.Recolor.Multiple),
		}
	}
	return out
}

func Bool(v bool) *bool       { return &v }
func Int(v int) *int          { return &v }
func String(v string) *string { return &v }

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
