// Package interrupt runs shutdown handlers when the process is interrupted or
// a shutdown is requested, and provides contexts that end at that moment.
package interrupt

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/Hubmakerlabs/aionostr/pkg/context"
	"github.com/Hubmakerlabs/aionostr/pkg/slog"
)

var log, chk = slog.New(os.Stderr)

type HandlerWithSource struct {
	Source string
	Fn     func()
}

var (
	requested atomic.Bool

	// signals is the list of signals that cause the interrupt
	signals = []os.Signal{os.Interrupt, syscall.SIGTERM}

	start sync.Once
	// ch receives the interrupt signals.
	ch = make(chan os.Signal, 1)

	// shutdown is closed by Request.
	shutdown     = make(chan struct{})
	shutdownOnce sync.Once

	// addHandlerChan is used to add a handler to the list of handlers
	// invoked when the interrupt happens.
	addHandlerChan = make(chan HandlerWithSource)

	// HandlersDone is closed after all handlers ran.
	HandlersDone = make(chan struct{})
)

// Listener waits for an interrupt signal or a shutdown request and then runs
// the registered handlers in reverse order of registration.
func Listener() {
	var handlers []HandlerWithSource
	invokeCallbacks := func() {
		log.D.Ln("running interrupt callbacks", len(handlers))
		for i := len(handlers) - 1; i >= 0; i-- {
			log.T.Ln("running callback", i, handlers[i].Source)
			handlers[i].Fn()
		}
		log.D.Ln("interrupt handlers finished")
		close(HandlersDone)
	}
	for {
		select {
		case sig := <-ch:
			log.D.Ln("received interrupt signal", sig)
			requested.Store(true)
			invokeCallbacks()
			return
		case <-shutdown:
			log.D.Ln("received shutdown request")
			invokeCallbacks()
			return
		case h := <-addHandlerChan:
			handlers = append(handlers, h)
		}
	}
}

func listen() {
	start.Do(func() {
		signal.Notify(ch, signals...)
		go Listener()
	})
}

// AddHandler adds a handler to call when the process is interrupted. Handlers
// added after the interrupt are not run.
func AddHandler(handler func()) {
	listen()
	_, loc, line, _ := runtime.Caller(1)
	msg := fmt.Sprintf("%s:%d", loc, line)
	log.T.Ln("handler added by:", msg)
	select {
	case addHandlerChan <- HandlerWithSource{msg, handler}:
	case <-HandlersDone:
	}
}

// Request programmatically requests a shutdown.
func Request() {
	_, f, l, _ := runtime.Caller(1)
	log.D.Ln("interrupt requested", f, l, requested.Load())
	requested.Store(true)
	listen()
	shutdownOnce.Do(func() { close(shutdown) })
}

// Requested returns true if an interrupt has been requested
func Requested() bool { return requested.Load() }

// Context returns a context that is cancelled when the process is
// interrupted.
func Context(parent context.T) (c context.T, cancel context.F) {
	c, cancel = context.Cancel(parent)
	AddHandler(cancel)
	return
}
