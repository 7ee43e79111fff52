package defense

import "sync"

// request is one piece of work signed onto the worker.
type request struct {
	fn        func()
	done      chan struct{}
	recovered any
}

var (
	workerOnce sync.Once
	workerCh   chan *request
)

func startWorker() {
	workerCh = make(chan *request)
	go func() {
		for req := range workerCh {
			runRequest(req)
		}
	}()
}

// runRequest runs one delegated call, recovering any panic so it never
// unwinds the worker goroutine itself; close(req.done) is deferred
// ahead of the recover so a panicking fn still unblocks its caller and
// workerCh is never left with a caller stuck waiting.
func runRequest(req *request) {
	defer close(req.done)
	defer func() {
		req.recovered = recover()
	}()
	req.fn()
}

// DelegateToWorker runs fn on the shim's single privileged worker
// goroutine and blocks until it completes, returning the recovered
// value if fn panicked (nil otherwise) (§4.9 "A privileged worker
// thread with a large stack can be delegated to: the calling thread
// signs the request onto a worker and waits", §5 "Delegation is
// synchronous from the caller's perspective: the caller blocks until the
// worker finishes"). A goroutine's stack grows on demand, so in this
// pure-Go implementation the worker's advantage over the caller is not
// stack size but isolation: a panic or stack-intensive stage running on
// the worker is recovered here so it never crashes the host process, and
// never unwinds the caller's own calling thread.
func DelegateToWorker(fn func()) any {
	workerOnce.Do(startWorker)
	req := &request{fn: fn, done: make(chan struct{})}
	workerCh <- req
	<-req.done
	return req.recovered
}
