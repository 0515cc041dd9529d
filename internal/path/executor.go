package path

import (
	"fmt"

	"specado/internal/jsonvalue"
)

// WriteErrorKind distinguishes the ways a write can fail, so callers can
// map it onto the apperr.PathWriteConflict error kind.
type WriteErrorKind int

const (
	WriteErrUnwritable WriteErrorKind = iota
	WriteErrTypeConflict
	WriteErrIndexOutOfRange
)

// WriteError reports a failed write or delete.
type WriteError struct {
	Kind WriteErrorKind
	Path string
	Msg  string
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("path write %q: %s", e.Path, e.Msg)
}

// Read evaluates p against root. A missing intermediate member is reported
// as found=false, not an error. If p contains a wildcard, the result is
// always a jsonvalue Array of the matched elements (possibly empty).
func Read(root jsonvalue.Value, p Path) (result jsonvalue.Value, found bool, err error) {
	if len(p.Segments) == 0 {
		return jsonvalue.Value{}, false, &ParseError{Kind: ErrEmpty}
	}
	return readSegments(root, p.Segments)
}

func readSegments(cur jsonvalue.Value, segs []Segment) (jsonvalue.Value, bool, error) {
	if len(segs) == 0 {
		return cur, true, nil
	}
	seg := segs[0]
	switch seg.Kind {
	case SegmentMember:
		if !cur.IsObject() {
			return jsonvalue.Value{}, false, nil
		}
		child, ok := cur.Object().Get(seg.Name)
		if !ok {
			return jsonvalue.Value{}, false, nil
		}
		return readSegments(child, segs[1:])
	case SegmentIndex:
		if !cur.IsArray() {
			return jsonvalue.Value{}, false, nil
		}
		arr := cur.Array_()
		idx := normalizeIndex(seg.Index, len(arr))
		if idx < 0 || idx >= len(arr) {
			return jsonvalue.Value{}, false, nil
		}
		return readSegments(arr[idx], segs[1:])
	case SegmentWildcard:
		if !cur.IsArray() {
			return jsonvalue.Array(), true, nil
		}
		var out []jsonvalue.Value
		for _, item := range cur.Array_() {
			v, ok, err := readSegments(item, segs[1:])
			if err != nil {
				return jsonvalue.Value{}, false, err
			}
			if ok {
				out = append(out, v)
			}
		}
		return jsonvalue.Array(out...), true, nil
	case SegmentRecursive:
		var out []jsonvalue.Value
		collectRecursive(cur, segs[1:], &out)
		return jsonvalue.Array(out...), true, nil
	default:
		return jsonvalue.Value{}, false, fmt.Errorf("path: unknown segment kind %v", seg.Kind)
	}
}

func collectRecursive(cur jsonvalue.Value, rest []Segment, out *[]jsonvalue.Value) {
	if v, ok, _ := readSegments(cur, rest); ok && !(v.IsArray() && v.Len() == 0 && len(rest) > 0) {
		*out = append(*out, v)
	}
	switch cur.Kind() {
	case jsonvalue.KindArray:
		for _, item := range cur.Array_() {
			collectRecursive(item, rest, out)
		}
	case jsonvalue.KindObject:
		for _, k := range cur.Object().Keys() {
			child, _ := cur.Object().Get(k)
			collectRecursive(child, rest, out)
		}
	}
}

func normalizeIndex(idx, length int) int {
	if idx < 0 {
		return length + idx
	}
	return idx
}

// Write sets new_value at p within *root, creating intermediate objects as
// needed. It returns the value previously at that location, if any, so the
// caller can record it as the lossiness "before" value. p must be writable
// (see Path.Writable); a wildcard or recursive-descent path returns a
// WriteError.
func Write(root *jsonvalue.Value, p Path, newValue jsonvalue.Value) (old jsonvalue.Value, hadOld bool, err error) {
	if !p.Writable() {
		return jsonvalue.Value{}, false, &WriteError{Kind: WriteErrUnwritable, Path: p.Raw, Msg: "wildcard and recursive-descent paths are read-only"}
	}
	if len(p.Segments) == 0 {
		return jsonvalue.Value{}, false, &ParseError{Kind: ErrEmpty}
	}
	if root.Kind() != jsonvalue.KindObject && root.Kind() != jsonvalue.KindArray {
		*root = jsonvalue.NewObject()
	}
	return writeSegments(root, p.Segments, newValue, p.Raw)
}

func writeSegments(cur *jsonvalue.Value, segs []Segment, newValue jsonvalue.Value, rawPath string) (jsonvalue.Value, bool, error) {
	seg := segs[0]
	last := len(segs) == 1

	switch seg.Kind {
	case SegmentMember:
		if cur.Kind() == jsonvalue.KindNull {
			*cur = jsonvalue.NewObject()
		}
		if cur.Kind() != jsonvalue.KindObject {
			return jsonvalue.Value{}, false, &WriteError{Kind: WriteErrTypeConflict, Path: rawPath, Msg: fmt.Sprintf("cannot write member %q into a %s", seg.Name, cur.Kind())}
		}
		obj := cur.Object()
		if last {
			old, had := obj.Get(seg.Name)
			obj.Set(seg.Name, newValue)
			return old, had, nil
		}
		child, ok := obj.Get(seg.Name)
		if !ok {
			child = jsonvalue.NewObject()
		}
		old, had, err := writeSegments(&child, segs[1:], newValue, rawPath)
		obj.Set(seg.Name, child)
		return old, had, err

	case SegmentIndex:
		if cur.Kind() == jsonvalue.KindNull {
			*cur = jsonvalue.Array()
		}
		if cur.Kind() != jsonvalue.KindArray {
			return jsonvalue.Value{}, false, &WriteError{Kind: WriteErrTypeConflict, Path: rawPath, Msg: fmt.Sprintf("cannot write index [%d] into a %s", seg.Index, cur.Kind())}
		}
		arr := cur.Array_()
		idx := seg.Index
		if idx < 0 {
			idx = len(arr) + idx
			if idx < 0 {
				return jsonvalue.Value{}, false, &WriteError{Kind: WriteErrIndexOutOfRange, Path: rawPath, Msg: fmt.Sprintf("negative index %d out of range for length %d", seg.Index, len(arr))}
			}
		}

		if idx == len(arr) {
			if last {
				arr = append(arr, newValue)
				*cur = jsonvalue.Array(arr...)
				return jsonvalue.Value{}, false, nil
			}
			child := jsonvalue.NewObject()
			old, had, err := writeSegments(&child, segs[1:], newValue, rawPath)
			if err != nil {
				return jsonvalue.Value{}, false, err
			}
			arr = append(arr, child)
			*cur = jsonvalue.Array(arr...)
			return old, had, nil
		}

		if idx < 0 || idx > len(arr) {
			return jsonvalue.Value{}, false, &WriteError{Kind: WriteErrIndexOutOfRange, Path: rawPath, Msg: fmt.Sprintf("index %d out of range for length %d", seg.Index, len(arr))}
		}

		if last {
			old := arr[idx]
			arr[idx] = newValue
			*cur = jsonvalue.Array(arr...)
			return old, true, nil
		}
		child := arr[idx]
		old, had, err := writeSegments(&child, segs[1:], newValue, rawPath)
		arr[idx] = child
		*cur = jsonvalue.Array(arr...)
		return old, had, err

	default:
		return jsonvalue.Value{}, false, &WriteError{Kind: WriteErrUnwritable, Path: rawPath, Msg: "unsupported segment in write path"}
	}
}

// Delete removes the value at p within *root, returning it if present.
func Delete(root *jsonvalue.Value, p Path) (removed jsonvalue.Value, found bool, err error) {
	if !p.Writable() {
		return jsonvalue.Value{}, false, &WriteError{Kind: WriteErrUnwritable, Path: p.Raw, Msg: "wildcard and recursive-descent paths are read-only"}
	}
	if len(p.Segments) == 0 {
		return jsonvalue.Value{}, false, &ParseError{Kind: ErrEmpty}
	}
	return deleteSegments(root, p.Segments)
}

func deleteSegments(cur *jsonvalue.Value, segs []Segment) (jsonvalue.Value, bool, error) {
	seg := segs[0]
	last := len(segs) == 1

	switch seg.Kind {
	case SegmentMember:
		if cur.Kind() != jsonvalue.KindObject {
			return jsonvalue.Value{}, false, nil
		}
		obj := cur.Object()
		if last {
			removed, found := obj.Delete(seg.Name)
			return removed, found, nil
		}
		child, ok := obj.Get(seg.Name)
		if !ok {
			return jsonvalue.Value{}, false, nil
		}
		removed, found, err := deleteSegments(&child, segs[1:])
		obj.Set(seg.Name, child)
		return removed, found, err

	case SegmentIndex:
		if cur.Kind() != jsonvalue.KindArray {
			return jsonvalue.Value{}, false, nil
		}
		arr := cur.Array_()
		idx := normalizeIndex(seg.Index, len(arr))
		if idx < 0 || idx >= len(arr) {
			return jsonvalue.Value{}, false, nil
		}
		if last {
			removed := arr[idx]
			arr = append(arr[:idx], arr[idx+1:]...)
			*cur = jsonvalue.Array(arr...)
			return removed, true, nil
		}
		child := arr[idx]
		removed, found, err := deleteSegments(&child, segs[1:])
		arr[idx] = child
		*cur = jsonvalue.Array(arr...)
		return removed, found, err

	default:
		return jsonvalue.Value{}, false, nil
	}
}
