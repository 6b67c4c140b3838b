package record

import (
	"time"

	"github.com/pijuldag/recorder/diffcore"
	"github.com/pijuldag/recorder/pristine"
)

// Recorded is one worker's share of the output record: an ordered Hunk
// list, the Updatables side effects each hunk index implies, running
// counters, the contents buffer shared across the whole session, and the
// three pieces of cross-worker shared state.
type Recorded struct {
	Actions        []pristine.Hunk
	Updatables     map[int]InodeUpdate
	LargestFile    uint64
	HasBinaryFiles bool
	OldestChange   time.Time
	Redundant      []pristine.Edge

	contents       *sharedContents
	recordedInodes *sharedRecordedInodes
	deletedVertices *sharedDeletedVertices
	forceRediff    bool
	ignoreMissing  bool
}

func newRecorded(b *Builder) *Recorded {
	return &Recorded{
		Updatables:      make(map[int]InodeUpdate),
		contents:        b.contents,
		recordedInodes:  b.recordedInodes,
		deletedVertices: b.deletedVertices,
		forceRediff:     b.ForceRediff,
		ignoreMissing:   b.IgnoreMissing,
	}
}

func (r *Recorded) observeMtime(t time.Time, hadNewHunks bool) {
	if !hadNewHunks {
		return
	}
	if r.OldestChange.IsZero() || t.Before(r.OldestChange) {
		r.OldestChange = t
	}
}

func (r *Recorded) emit(h pristine.Hunk) int {
	r.Actions = append(r.Actions, h)
	return len(r.Actions) - 1
}

// Builder drives a single recording session: it owns the shared state
// every worker record references and spawns the workers that run
// record_existing_file against the transaction, channel, change store,
// and working copy it is configured with.
type Builder struct {
	Txn         pristine.GraphTxn
	Changes     pristine.ChangeStore
	WC          pristine.WorkingCopy
	Channel     string
	Algorithm   diffcore.Algorithm

	ForceRediff   bool
	IgnoreMissing bool
	// Workers is the size of the C7 work-queue pool. Zero means the
	// synchronous fallback: walkSync walks on the calling goroutine and
	// records each existing file as the walk reaches it, with no separate
	// queue drained after the walk. This knob is intentionally pluggable
	// rather than hard-coded, per the open design question on worker
	// pool sizing.
	Workers int

	contents        *sharedContents
	recordedInodes  *sharedRecordedInodes
	deletedVertices *sharedDeletedVertices

	workers []*Recorded
}

// NewBuilder returns a Builder ready to record against the given
// collaborators. Workers defaults to 0 (synchronous).
func NewBuilder(txn pristine.GraphTxn, changes pristine.ChangeStore, wc pristine.WorkingCopy, channel string) *Builder {
	return &Builder{
		Txn:             txn,
		Changes:         changes,
		WC:              wc,
		Channel:         channel,
		Algorithm:       diffcore.Myers,
		contents:        newSharedContents(),
		recordedInodes:  newSharedRecordedInodes(),
		deletedVertices: newSharedDeletedVertices(),
	}
}

// newWorkerRecord allocates a fresh Recorded sharing this Builder's arenas
// and tracks it for Finish's concatenation pass.
func (b *Builder) newWorkerRecord() *Recorded {
	r := newRecorded(b)
	b.workers = append(b.workers, r)
	return r
}

// Finish concatenates every worker's Actions in spawn order, rebasing each
// one's Updatables keys by the cumulative action-count offset, and merges
// counters with max/or/min-nonzero. It is idempotent and may be called
// only after Record has returned.
func (b *Builder) Finish() *Recorded {
	out := &Recorded{Updatables: make(map[int]InodeUpdate)}
	offset := 0
	for _, w := range b.workers {
		out.Actions = append(out.Actions, w.Actions...)
		for idx, upd := range w.Updatables {
			out.Updatables[idx+offset] = upd
		}
		offset += len(w.Actions)

		if w.LargestFile > out.LargestFile {
			out.LargestFile = w.LargestFile
		}
		out.HasBinaryFiles = out.HasBinaryFiles || w.HasBinaryFiles
		if !w.OldestChange.IsZero() && (out.OldestChange.IsZero() || w.OldestChange.Before(out.OldestChange)) {
			out.OldestChange = w.OldestChange
		}
		out.Redundant = append(out.Redundant, w.Redundant...)
	}
	if out.OldestChange.IsZero() {
		out.OldestChange = time.Unix(0, 0)
	}
	out.contents = b.contents
	return out
}
