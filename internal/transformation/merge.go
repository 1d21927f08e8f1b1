package transformation

// Merge combines an existing configuration with a newer partial one. Every
// field present in incoming overrides the existing value; the remove and
// recolor sections merge field by field; fields only present in existing are
// kept. A nil incoming yields a copy of existing. The result shares no
// memory with either argument.
func Merge(existing Config, incoming *Config) Config {
	out := existing.Clone()
	if incoming == nil {
		return out
	}
	in := incoming.Clone()

	out.Width = pick(out.Width, in.Width)
	out.Height = pick(out.Height, in.Height)
	out.Restore = pick(out.Restore, in.Restore)
	out.FillBackground = pick(out.FillBackground, in.FillBackground)
	out.RemoveBackground = pick(out.RemoveBackground, in.RemoveBackground)

	switch {
	case in.Remove == nil:
	case out.Remove == nil:
		out.Remove = in.Remove
	default:
		out.Remove.Prompt = pick(out.Remove.Prompt, in.Remove.Prompt)
		out.Remove.RemoveShadow = pick(out.Remove.RemoveShadow, in.Remove.RemoveShadow)
		out.Remove.Multiple = pick(out.Remove.Multiple, in.Remove.Multiple)
	}

	switch {
	case in.Recolor == nil:
	case out.Recolor == nil:
		out.Recolor = in.Recolor
	default:
		out.Recolor.Prompt = pick(out.Recolor.Prompt, in.Recolor.Prompt)
		out.Recolor.To = pick(out.Recolor.To, in.Recolor.To)
		out.Recolor.Multiple = pick(out.Recolor.Multiple, in.Recolor.Multiple)
	}
	return out
}

func pick[T any](existing, incoming *T) *T {
	if incoming != nil {
		return incoming
	}
	return existing
}
