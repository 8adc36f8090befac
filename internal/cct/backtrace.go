package cct

// Frame is one unwound stack frame.
type Frame struct {
	// Addr is the call site recorded in the tree.
	Addr Addr
	// Function identifies the routine containing Addr and drives recursion
	// compression. A zero value never matches.
	Function Addr
}

// InsertBacktrace inserts frames, ordered from the outermost caller to the
// innermost callee, below start and returns the node for the innermost
// frame, marked terminal.
//
// Unless retainRecursion is set, a frame is dropped when its routine equals
// both its caller's and its callee's: runs of directly recursive calls keep
// only their outermost and innermost frames.
func (t *Tree) InsertBacktrace(start *Node, frames []Frame, retainRecursion bool) (*Node, error) {
	if start == nil || len(frames) == 0 {
		return start, nil
	}
	var (
		cursor = start
		parent Addr
		err    error
	)
	for i, f := range frames {
		if !retainRecursion && i > 0 && i+1 < len(frames) &&
			f.Function != (Addr{}) &&
			f.Function.Equal(parent) && f.Function.Equal(frames[i+1].Function) {
			parent = f.Function
			continue
		}
		cursor, err = t.InsertChild(cursor, f.Addr)
		if err != nil {
			return nil, err
		}
		parent = f.Function
	}
	cursor.Terminate()
	return cursor, nil
}
