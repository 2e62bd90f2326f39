package dispatch

// executor runs callbacks one at a time on a single designated goroutine,
// the Go analogue of marshaling completions onto a UI queue. Remote-path
// completions are delivered through it regardless of which worker goroutine
// the transport exchange finished on.
type executor struct {
	funcs chan func()
	quit  chan struct{}
}

func newExecutor() *executor {
	e := &executor{
		funcs: make(chan func(), 64),
		quit:  make(chan struct{}),
	}
	go e.loop()
	return e
}

func (e *executor) loop() {
	for {
		select {
		case f := <-e.funcs:
			f()
		case <-e.quit:
			return
		}
	}
}

// do enqueues f for serial execution. After close, f is discarded.
func (e *executor) do(f func()) {
	select {
	case e.funcs <- f:
	case <-e.quit:
	}
}

func (e *executor) close() {
	close(e.quit)
}
