package record

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/pijuldag/recorder/pristine"
)

func joinPath(parent, basename string) string {
	if parent == "" {
		return basename
	}
	return parent + "/" + basename
}

// treeChildren returns the (basename -> inode) entries the tree table
// already has for parent.
func treeChildren(txn pristine.GraphTxn, parent pristine.Inode) map[string]pristine.Inode {
	out := make(map[string]pristine.Inode)
	it := txn.IterTree(parent, "")
	for it.Next() {
		if it.Parent() != parent {
			break
		}
		out[it.Basename()] = it.Child()
	}
	return out
}

// listChildren merges the tree table's existing entries for item with
// whatever the working copy currently has at item.FullPath, allocating a
// fresh Inode for any working-copy entry the tree table does not yet know
// about. When filterPrefix is non-empty and depth is still inside it, only
// the matching basename is kept; a miss is reported as PathNotInRepo.
func (b *Builder) listChildren(item RecordItem, dirPos pristine.Position, filterPrefix []string, depth int) ([]RecordItem, error) {
	known := treeChildren(b.Txn, item.Inode)
	present, err := b.WC.Children(item.FullPath)
	if err != nil {
		return nil, wrap(ErrWorkingCopy, item.FullPath, err)
	}

	basenames := make(map[string]bool, len(known)+len(present))
	for bn := range known {
		basenames[bn] = true
	}
	for _, bn := range present {
		basenames[bn] = true
	}

	filtering := depth < len(filterPrefix)
	matched := false
	var out []RecordItem
	for bn := range basenames {
		if filtering && bn != filterPrefix[depth] {
			continue
		}
		matched = true

		inode, ok := known[bn]
		if !ok {
			inode = b.Txn.NewInode()
		}
		childPath := joinPath(item.FullPath, bn)
		meta, exists, err := b.WC.FileMetadata(childPath)
		if err != nil {
			return nil, wrap(ErrWorkingCopy, childPath, err)
		}
		if !exists {
			meta = 0
		}
		out = append(out, RecordItem{
			VPapa:    dirPos,
			Papa:     item.Inode,
			Inode:    inode,
			Basename: bn,
			FullPath: childPath,
			Metadata: meta,
		})
	}
	if filtering && !matched {
		return nil, PathNotInRepo(filterPrefix[depth])
	}
	return out, nil
}

// Record runs a full recording session starting at the repository root (or,
// when prefix is non-empty, at the single path it names) and returns the
// concatenated result of every worker record. Builder.Workers == 0 runs the
// walk synchronously on the calling goroutine; Workers > 0 spreads the walk
// across that many goroutines pulling from a shared, growing work queue.
func (b *Builder) Record(prefix []string) (*Recorded, error) {
	if b.Workers <= 0 {
		r := b.newWorkerRecord()
		if err := b.walkSync(r, RootItem(), prefix, 0); err != nil {
			return nil, err
		}
		return b.Finish(), nil
	}
	if err := b.walkConcurrent(prefix); err != nil {
		return nil, err
	}
	return b.Finish(), nil
}

// walkSync is the Workers == 0 fallback: an explicit DFS stack processed to
// completion on the calling goroutine before Finish concatenates the single
// worker's Actions.
func (b *Builder) walkSync(r *Recorded, root RecordItem, filterPrefix []string, rootDepth int) error {
	type frame struct {
		item  RecordItem
		depth int
	}
	stack := []frame{{item: root, depth: rootDepth}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		dirPos, isDir, err := b.processItem(r, f.item)
		if err != nil {
			return err
		}
		if !isDir {
			continue
		}
		children, err := b.listChildren(f.item, dirPos, filterPrefix, f.depth)
		if err != nil {
			return err
		}
		for _, c := range children {
			stack = append(stack, frame{item: c, depth: f.depth + 1})
		}
	}
	return nil
}

// processItem runs the single-item logic (record-existing, add, or
// recursive-delete) for a non-root RecordItem, or recurses straight into the
// root's children for the root item. It returns the Position children
// should anchor to (VPapa) and whether the caller should recurse at all.
func (b *Builder) processItem(r *Recorded, item RecordItem) (pristine.Position, bool, error) {
	if item.Inode == pristine.RootInode {
		return item.VPapa, true, nil
	}

	if pos, ok := b.recordedInodes.get(item.Inode); ok {
		return pos, false, nil
	}

	pos, existsInGraph := b.Txn.GetInodes(item.Inode)
	meta, existsOnDisk, err := b.WC.FileMetadata(item.FullPath)
	if err != nil {
		return pristine.Position{}, false, wrap(ErrWorkingCopy, item.FullPath, err)
	}

	if existsInGraph {
		vertex, found := b.Txn.FindBlock(b.Channel, pos)
		if !found {
			return pristine.Position{}, false, wrap(ErrTransaction, item.FullPath, errInconsistentGraph)
		}
		item.Metadata = meta
		if err := r.recordExistingFile(b.Txn, b.Changes, b.WC, b.Channel, item, vertex, b.Algorithm); err != nil {
			if b.IgnoreMissing {
				if _, ok := err.(*Error); ok {
					return pristine.Position{}, false, nil
				}
			}
			return pristine.Position{}, false, err
		}
		b.recordedInodes.set(item.Inode, pos)
		return pos, existsOnDisk && meta.IsDir(), nil
	}

	if !existsOnDisk {
		return pristine.Position{}, false, nil
	}
	item.Metadata = meta
	newPos, err := r.addFile(b.WC, item, meta.IsDir())
	if err != nil {
		return pristine.Position{}, false, err
	}
	return newPos, meta.IsDir(), nil
}

var errInconsistentGraph = inconsistentGraphError{}

type inconsistentGraphError struct{}

func (inconsistentGraphError) Error() string {
	return "inode resolves to a graph position with no matching block"
}

type queuedItem struct {
	item  RecordItem
	depth int
}

// workQueue is an unbounded FIFO guarded by a condition variable. A plain
// buffered channel would risk deadlock here: every worker can be mid-push
// (blocked on a full buffer) at once, with none left to drain it. pending
// tracks outstanding work (queued plus in-flight) so workers know when to
// stop waiting and exit rather than blocking forever on an empty queue.
type workQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	items   []queuedItem
	pending int
	closed  bool
}

func newWorkQueue() *workQueue {
	q := &workQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *workQueue) push(item RecordItem, depth int) {
	q.mu.Lock()
	q.pending++
	q.items = append(q.items, queuedItem{item: item, depth: depth})
	q.mu.Unlock()
	q.cond.Signal()
}

// done marks one item's processing as finished, closing the queue and
// waking every waiter once no work remains anywhere.
func (q *workQueue) done() {
	q.mu.Lock()
	q.pending--
	if q.pending == 0 {
		q.closed = true
		q.cond.Broadcast()
	}
	q.mu.Unlock()
}

// pop blocks until an item is available or the queue has closed with
// nothing left to do.
func (q *workQueue) pop() (queuedItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 {
		if q.closed {
			return queuedItem{}, false
		}
		q.cond.Wait()
	}
	it := q.items[0]
	q.items = q.items[1:]
	return it, true
}

// walkConcurrent spreads the same walk, fed through a FIFO work queue rather
// than a DFS stack, over Builder.Workers goroutines, each
// running against its own Recorded (so Actions never needs cross-goroutine
// locking) but sharing the Builder's contents/recordedInodes/deletedVertices
// arenas. The first error any worker reports wins; every worker still
// drains so the queue's pending count reaches zero and all goroutines exit.
func (b *Builder) walkConcurrent(filterPrefix []string) error {
	queue := newWorkQueue()
	var wg sync.WaitGroup
	var errOnce sync.Once
	var firstErr error

	reportErr := func(err error) {
		errOnce.Do(func() { firstErr = err })
	}

	worker := func(r *Recorded) {
		defer wg.Done()
		for {
			q, ok := queue.pop()
			if !ok {
				return
			}
			func() {
				defer queue.done()
				defer func() {
					if p := recover(); p != nil {
						logrus.WithField("path", q.item.FullPath).Errorf("record worker panicked: %v", p)
						reportErr(wrap(ErrIO, q.item.FullPath, recoveredPanic{p}))
					}
				}()
				dirPos, isDir, err := b.processItem(r, q.item)
				if err != nil {
					reportErr(err)
					return
				}
				if !isDir {
					return
				}
				children, err := b.listChildren(q.item, dirPos, filterPrefix, q.depth)
				if err != nil {
					reportErr(err)
					return
				}
				for _, c := range children {
					queue.push(c, q.depth+1)
				}
			}()
		}
	}

	wg.Add(b.Workers)
	for i := 0; i < b.Workers; i++ {
		go worker(b.newWorkerRecord())
	}
	queue.push(RootItem(), 0)

	wg.Wait()
	return firstErr
}

type recoveredPanic struct{ v interface{} }

func (r recoveredPanic) Error() string {
	if err, ok := r.v.(error); ok {
		return "recovered panic: " + err.Error()
	}
	return "recovered panic"
}
