package types

// NewStruct allocates a new, incomplete struct/union type named tag (tag may
// be "" for an anonymous struct). Call Complete once every member is known.
func NewStruct(tag string, isUnion bool) *Type {
	return &Type{Kind: STRUCT, Tag: tag, IsUnion: isUnion, IsIncomplete: true, Align: 1}
}

// FindMember looks up name among t's direct members, recursing into
// anonymous (unnamed) nested struct/union members the way C allows
// `x.m` to reach through an anonymous sub-aggregate.
func FindMember(t *Type, name string) *Member {
	if t.Kind != STRUCT {
		return nil
	}
	for _, m := range t.Members {
		if m.Name == name {
			return m
		}
		if m.Name == "" && m.Type.Kind == STRUCT {
			if nested := FindMember(m.Type, name); nested != nil {
				// Offsets of members reached through an anonymous sub-aggregate
				// are relative to the sub-aggregate; add its own offset so the
				// caller sees an offset relative to the outer struct.
				clone := *nested
				clone.Offset += m.Offset
				return &clone
			}
		}
	}
	return nil
}

// Complete lays out members (bit-aware) and marks t complete,
// then fires any callbacks registered via OnComplete (e.g. an array-of-t
// whose size was deferred until t's size was known).
func Complete(t *Type, members []*Member) {
	if t.IsUnion {
		completeUnion(t, members)
	} else {
		completeStruct(t, members)
	}
	t.Members = members
	t.IsIncomplete = false
	t.fireComplete()
}

func completeStruct(t *Type, members []*Member) {
	var bits int64 // current bit offset from the start of the struct
	align := int64(1)

	for idx, m := range members {
		m.Index = idx
		if align < m.Type.Align {
			align = m.Type.Align
		}

		if m.IsBitfield {
			if m.BitWidth == 0 {
				// A zero-width bitfield only forces alignment to the next word
				// boundary of its base type; it occupies no storage itself.
				bits = AlignTo(bits, m.Type.Size*8)
				continue
			}
			sz := m.Type.Size
			if bits/(sz*8) != (bits+m.BitWidth-1)/(sz*8) {
				// Spanning the bitfield would cross an sz-byte boundary: start a
				// new word instead of straddling it.
				bits = AlignTo(bits, sz*8)
			}
			m.Offset = AlignDown(bits/8, sz)
			m.BitOffset = bits % (sz * 8)
			m.Align = sz
			bits += m.BitWidth
			continue
		}

		bits = AlignTo(bits, m.Type.Align*8)
		m.Offset = bits / 8
		m.Align = m.Type.Align
		bits += m.Type.Size * 8
	}

	t.Align = align
	t.Size = AlignTo(bits, align*8) / 8
}

func completeUnion(t *Type, members []*Member) {
	var maxSize, align int64 = 0, 1
	for idx, m := range members {
		m.Index = idx
		m.Offset = 0
		if align < m.Type.Align {
			align = m.Type.Align
		}
		sz := m.Type.Size
		if m.IsBitfield {
			sz = AlignTo((m.BitWidth+7)/8, 1)
		}
		if sz > maxSize {
			maxSize = sz
		}
	}
	t.Align = align
	t.Size = AlignTo(maxSize, align)
}
