// Package form keeps the server side state of a transformation form: the
// validated field values, the uploaded image, and the pending and committed
// transformation configuration.
package form

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"imaginify/internal/apperror"
	"imaginify/internal/transformation"
)

// Action tells whether saving a draft creates or updates an image.
type Action string

const (
	ActionAdd    Action = "add"
	ActionUpdate Action = "update"
)

// Field is a debounced text input.
type Field string

const (
	FieldPrompt Field = "prompt"
	FieldColor  Field = "color"
)

// Values are the form fields.
type Values struct {
	Title       string `json:"title" validate:"required,max=100"`
	AspectRatio string `json:"aspect_ratio,omitempty" validate:"omitempty,oneof=1:1 3:4 9:16"`
	Color       string `json:"color,omitempty" validate:"omitempty,max=50"`
	Prompt      string `json:"prompt,omitempty" validate:"omitempty,max=200"`
	PublicID    string `json:"public_id" validate:"required"`
}

// Image is the uploaded source image.
type Image struct {
	PublicID  string `json:"public_id"`
	SecureURL string `json:"secure_url"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// Seed prefills a draft that edits an existing image.
type Seed struct {
	ImageID   string
	Values    Values
	Image     *Image
	Committed transformation.Config
}

// Draft is one open transformation form.
type Draft struct {
	mu        sync.Mutex
	id        string
	ownerID   string
	action    Action
	typ       transformation.Type
	imageID   string
	values    Values
	image     *Image
	pending   *transformation.Config
	committed *transformation.Config
	baseline  *transformation.Config
	applied   *transformation.Config
	staged    map[Field]string
	charged   int
	saving    bool
	updatedAt time.Time
	debouncer *Debouncer
	now       func() time.Time
}

// ErrSaveInProgress is returned by BeginSave while another save of the
// same draft is running.
var ErrSaveInProgress = errors.New("draft save in progress")

func newDraft(id, ownerID string, action Action, typ transformation.Type, seed *Seed, debounce time.Duration, now func() time.Time) *Draft {
	d := &Draft{
		id:        id,
		ownerID:   ownerID,
		action:    action,
		typ:       typ,
		staged:    make(map[Field]string),
		debouncer: NewDebouncer(debounce),
		now:       now,
		updatedAt: now(),
	}
	if seed != nil {
		d.imageID = seed.ImageID
		d.values = seed.Values
		if seed.Image != nil {
			img := *seed.Image
			d.image = &img
		}
		committed := seed.Committed.Clone()
		d.committed = &committed
		baseline := seed.Committed.Clone()
		d.baseline = &baseline
	}
	return d
}

func (d *Draft) ID() string                { return d.id }
func (d *Draft) OwnerID() string           { return d.ownerID }
func (d *Draft) Action() Action            { return d.action }
func (d *Draft) Type() transformation.Type { return d.typ }
func (d *Draft) ImageID() string           { return d.imageID }

func (d *Draft) touch() { d.updatedAt = d.now() }

// SetTitle updates the title field.
func (d *Draft) SetTitle(title string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.values.Title = title
	d.touch()
}

// SelectAspectRatio applies a fill preset: it sizes the image to the preset
// and resets the pending configuration to the base for the type.
func (d *Draft) SelectAspectRatio(key string) error {
	preset, ok := transformation.AspectRatios[key]
	if !ok {
		return apperror.Validation(fmt.Sprintf("unknown aspect ratio %q", key))
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.values.AspectRatio = key
	if d.image == nil {
		d.image = &Image{}
	}
	d.image.Width = preset.Width
	d.image.Height = preset.Height
	base := transformation.Base(d.typ)
	d.pending = &base
	d.touch()
	return nil
}

// Input records a keystroke on a debounced field. The form value changes
// immediately; the pending configuration changes once the field has been
// quiet for the debounce interval, collapsing bursts into one update.
func (d *Draft) Input(field Field, value string) error {
	switch field {
	case FieldPrompt:
		if d.typ != transformation.Remove && d.typ != transformation.Recolor {
			return apperror.Validation(fmt.Sprintf("prompt is not used by %s transformations", d.typ))
		}
	case FieldColor:
		if d.typ != transformation.Recolor {
			return apperror.Validation(fmt.Sprintf("color is not used by %s transformations", d.typ))
		}
	default:
		return apperror.Validation(fmt.Sprintf("unknown field %q", field))
	}

	d.mu.Lock()
	if field == FieldPrompt {
		d.values.Prompt = value
	} else {
		d.values.Color = value
	}
	d.staged[field] = value
	d.touch()
	d.mu.Unlock()

	d.debouncer.Trigger(d.commitStaged)
	return nil
}

// commitStaged folds staged field edits into the pending configuration.
func (d *Draft) commitStaged() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.staged) == 0 {
		return
	}
	var update transformation.Config
	switch d.typ {
	case transformation.Remove:
		update.Remove = &transformation.RemoveOptions{}
		if v, ok := d.staged[FieldPrompt]; ok {
			update.Remove.Prompt = transformation.String(v)
		}
	case transformation.Recolor:
		update.Recolor = &transformation.RecolorOptions{}
		if v, ok := d.staged[FieldPrompt]; ok {
			update.Recolor.Prompt = transformation.String(v)
		}
		if v, ok := d.staged[FieldColor]; ok {
			update.Recolor.To = transformation.String(v)
		}
	}
	current := transformation.Base(d.typ)
	if d.pending != nil {
		current = *d.pending
	}
	merged := transformation.Merge(current, &update)
	d.pending = &merged
	d.staged = make(map[Field]string)
	d.touch()
}

// SetImage stores the uploaded image. Types that need no further input get
// their base configuration as pending.
func (d *Draft) SetImage(img Image) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.image = &img
	d.values.PublicID = img.PublicID
	if d.typ == transformation.Restore || d.typ == transformation.RemoveBackground {
		base := transformation.Base(d.typ)
		d.pending = &base
	}
	d.touch()
}

// TakePending flushes debounced input and removes the pending
// configuration, returning it. It returns nil when nothing is pending.
func (d *Draft) TakePending() *transformation.Config {
	d.debouncer.Flush()
	d.mu.Lock()
	defer d.mu.Unlock()
	p := d.pending
	d.pending = nil
	d.touch()
	return p
}

// RestorePending puts back a configuration taken by TakePending, unless a
// newer one arrived in the meantime.
func (d *Draft) RestorePending(cfg *transformation.Config) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending == nil {
		d.pending = cfg
	}
}

// Commit merges cfg into the committed configuration and records fee as
// charged. It returns the new committed configuration.
func (d *Draft) Commit(cfg transformation.Config, fee int) transformation.Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	var current transformation.Config
	if d.committed != nil {
		current = *d.committed
	}
	merged := transformation.Merge(current, &cfg)
	d.committed = &merged
	var applied transformation.Config
	if d.applied != nil {
		applied = *d.applied
	}
	applied = transformation.Merge(applied, &cfg)
	d.applied = &applied
	d.charged += fee
	d.touch()
	return merged.Clone()
}

// Charged returns the credits debited since the last save.
func (d *Draft) Charged() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.charged
}

// MarkSaved makes the committed configuration the new baseline and resets
// the charge counter.
func (d *Draft) MarkSaved() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.committed != nil {
		c := d.committed.Clone()
		d.baseline = &c
	}
	d.applied = nil
	d.charged = 0
}

// Rollback undoes every commit since the last save after its charge was
// refunded. The rolled back configuration becomes pending again so it can
// be applied, and paid for, once more.
func (d *Draft) Rollback() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.baseline != nil {
		c := d.baseline.Clone()
		d.committed = &c
	} else {
		d.committed = nil
	}
	if d.applied != nil {
		redo := *d.applied
		if d.pending != nil {
			redo = transformation.Merge(redo, d.pending)
		}
		d.pending = &redo
	}
	d.applied = nil
	d.charged = 0
	d.touch()
}

// BeginSave marks the draft as being saved. It fails with
// ErrSaveInProgress while an earlier save has not ended.
func (d *Draft) BeginSave() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.saving {
		return ErrSaveInProgress
	}
	d.saving = true
	return nil
}

func (d *Draft) EndSave() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.saving = false
}

func (d *Draft) Values() Values {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.values
}

// Image returns a copy of the uploaded image, or nil.
func (d *Draft) Image() *Image {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.image == nil {
		return nil
	}
	img := *d.image
	return &img
}

// Committed returns a copy of the committed configuration, or nil.
func (d *Draft) Committed() *transformation.Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.committed == nil {
		return nil
	}
	c := d.committed.Clone()
	return &c
}

func (d *Draft) lastUpdate() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.updatedAt
}

func (d *Draft) stop() { d.debouncer.Stop() }

// Snapshot is a read only view of a draft.
type Snapshot struct {
	ID         string                 `json:"id"`
	Action     Action                 `json:"action"`
	Type       transformation.Type    `json:"transformation_type"`
	ImageID    string                 `json:"image_id,omitempty"`
	Values     Values                 `json:"values"`
	Image      *Image                 `json:"image,omitempty"`
	Pending    *transformation.Config `json:"pending,omitempty"`
	Committed  *transformation.Config `json:"committed,omitempty"`
	HasPending bool                   `json:"has_pending"`
	Debouncing bool                   `json:"debouncing"`
	Charged    int                    `json:"charged"`
	UpdatedAt  time.Time              `json:"updated_at"`
}

func (d *Draft) Snapshot() Snapshot {
	debouncing := d.debouncer.Pending()
	d.mu.Lock()
	defer d.mu.Unlock()
	s := Snapshot{
		ID:         d.id,
		Action:     d.action,
		Type:       d.typ,
		ImageID:    d.imageID,
		Values:     d.values,
		HasPending: d.pending != nil,
		Debouncing: debouncing,
		Charged:    d.charged,
		UpdatedAt:  d.updatedAt,
	}
	if d.image != nil {
		img := *d.image
		s.Image = &img
	}
	if d.pending != nil {
		p := d.pending.Clone()
		s.Pending = &p
	}
	if d.committed != nil {
		c := d.committed.Clone()
		s.Committed = &c
	}
	return s
}
