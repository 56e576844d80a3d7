package shaping

// Paginate slices items into a page bounded by limit and offset, then
// further truncates that page at an element boundary against maxBytes (0
// disables the byte ceiling). encode renders a single item for the byte-size
// check; it is never used to alter the returned items, only to measure them.
//
// next_offset is set whenever more data remains after the returned page,
// and is nil (absent) once the caller has seen everything — the single
// pagination signal spec.md §4.7 requires, with no separate truncated/
// has_more flag to keep in sync.
func Paginate[T any](items []T, limit, offset int, maxBytes int, encode func(T) ([]byte, error)) (page []T, nextOffset *int, err error) {
	if offset < 0 {
		offset = 0
	}
	if offset > len(items) {
		offset = len(items)
	}
	if limit <= 0 {
		limit = len(items) - offset
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	windowed := items[offset:end]

	truncated := windowed
	if maxBytes > 0 && encode != nil {
		total := 0
		cut := len(windowed)
		for i, item := range windowed {
			b, encErr := encode(item)
			if encErr != nil {
				return nil, nil, encErr
			}
			total += len(b)
			if total > maxBytes {
				cut = i
				break
			}
		}
		truncated = windowed[:cut]
	}

	consumed := offset + len(truncated)
	if consumed < len(items) {
		next := consumed
		nextOffset = &next
	}
	return truncated, nextOffset, nil
}

// ClampCells bounds a requested cell count to the shaper's MaxCells ceiling.
// requested <= 0 means "caller did not ask for a specific cap", so the
// ceiling itself becomes the effective count; a positive request above the
// ceiling is capped, one at or below it passes through unchanged.
func (s Shaper) ClampCells(requested int) int {
	return clamp(requested, s.MaxCells)
}

// ClampItems bounds a requested item count the same way ClampCells does for
// cells.
func (s Shaper) ClampItems(requested int) int {
	return clamp(requested, s.MaxItems)
}

func clamp(requested, ceiling int) int {
	if ceiling <= 0 {
		return requested
	}
	if requested <= 0 || requested > ceiling {
		return ceiling
	}
	return requested
}
