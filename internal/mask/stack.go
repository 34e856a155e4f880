package mask

// UndoDepth bounds the number of retained mask snapshots. When the bound is
// exceeded the oldest snapshot is evicted, so undo history older than the
// window is silently lost. This is accepted data loss, not a bug.
const UndoDepth = 100

// Tag identifies the algorithm that produced a stack entry. The empty tag
// marks manual edits (brush, polygon, flood fill and friends).
type Tag string

// NoTag marks entries produced by manual drawing rather than an algorithm.
const NoTag Tag = ""

type entry struct {
	bm    *Bitmap
	tag   Tag
	param string
}

// Stack is the bounded undo history of one layer's mask. Entry 0 is the mask
// as loaded from disk (or empty) at image/layer load time; top points at the
// current mask and is not necessarily the last entry. Any commit discards the
// redo tail above top.
type Stack struct {
	entries []entry
	top     int
	initial *Bitmap
}

// NewStack creates a stack whose base entry is the load-time mask.
func NewStack(base *Bitmap) *Stack {
	return &Stack{
		entries: []entry{{bm: base}},
		initial: base.Clone(),
	}
}

// Len returns the number of retained entries.
func (s *Stack) Len() int { return len(s.entries) }

// Top returns the current cursor position.
func (s *Stack) Top() int { return s.top }

// Current returns the mask at the cursor. Callers must not mutate it; edits
// go through Commit with a fresh snapshot.
func (s *Stack) Current() *Bitmap {
	return s.entries[s.top].bm
}

// PeekFor returns the mask an algorithm re-run starts from: the current mask
// with any top entries carrying the same tag skipped. The cursor does not
// move, so a run that fails afterwards leaves the stack exactly as it was.
func (s *Stack) PeekFor(tag Tag) *Bitmap {
	return s.entries[s.rewindFor(tag)].bm
}

// CommitFor pops back past any top entries with the given tag, then commits
// the snapshot. Pop and commit happen as one step; re-running an algorithm
// replaces its previous result without the intermediate state ever becoming
// current.
func (s *Stack) CommitFor(bm *Bitmap, tag Tag, param string) {
	s.top = s.rewindFor(tag)
	s.Commit(bm, tag, param)
}

func (s *Stack) rewindFor(tag Tag) int {
	i := s.top
	if tag != NoTag {
		for i > 0 && s.entries[i].tag == tag {
			i--
		}
	}
	return i
}

// Commit pushes a new mask snapshot, discarding any redo tail and evicting
// the oldest entry when the depth bound is exceeded.
func (s *Stack) Commit(bm *Bitmap, tag Tag, param string) {
	if len(s.entries) >= UndoDepth {
		s.entries = s.entries[1:]
		if s.top > 0 {
			s.top--
		}
	}
	s.entries = append(s.entries[:s.top+1], entry{bm: bm, tag: tag, param: param})
	s.top++
}

// Undo steps the cursor back one entry and returns the tag of the undone
// operation. At the base it is a no-op and ok is false.
func (s *Stack) Undo() (tag Tag, ok bool) {
	if s.top == 0 {
		return NoTag, false
	}
	tag = s.entries[s.top].tag
	s.top--
	return tag, true
}

// ResetToBase rewinds the cursor to the oldest retained entry ("undo all").
func (s *Stack) ResetToBase() {
	s.top = 0
}

// Modified reports whether the current mask differs from the load-time mask.
// Used to decide whether a save must write the mask file and refresh the
// certification hash.
func (s *Stack) Modified() bool {
	return !s.initial.Equal(s.Current())
}

// SetInitial replaces the load-time reference mask, e.g. after the mask file
// has been (re)loaded from disk.
func (s *Stack) SetInitial(b *Bitmap) {
	s.initial = b.Clone()
}

// AlgoEntry is one replayable step of the algorithm pipeline.
type AlgoEntry struct {
	Tag   Tag
	Param string
}

// AlgoStack returns the ordered algorithm pipeline up to the cursor, filtered
// to tags the caller considers replayable. It backs the settings blob used to
// reconstruct a mask pipeline on another image.
func (s *Stack) AlgoStack(replayable func(Tag) bool) []AlgoEntry {
	var out []AlgoEntry
	for _, e := range s.entries[:s.top+1] {
		if e.tag != NoTag && replayable(e.tag) {
			out = append(out, AlgoEntry{Tag: e.tag, Param: e.param})
		}
	}
	return out
}
