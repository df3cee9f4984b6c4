// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package mioco implements a user-space M:N coroutine runtime on top of a
// non-blocking OS I/O readiness notifier (epoll on Linux, kqueue on
// Darwin/BSD, IOCP on Windows).
//
// Application code is written as straight-line, synchronous-looking I/O:
// whenever a coroutine would block on I/O, a timer, or an in-process
// mailbox, it yields its goroutine to another runnable coroutine. N worker
// threads (one event loop per thread) cooperatively schedule an arbitrary
// number of coroutines, migrating them between threads as the Scheduler
// sees fit.
//
// # Coroutines
//
// A coroutine is not a stackful fiber here: mioco targets a language with
// native lightweight threads, so each Coroutine is backed by exactly one
// goroutine, rendezvousing with its owning ThreadHandler over a pair of
// unbuffered channels (see context_switch.go). This collapses the
// stackful-context-switch machinery the original design called for into
// "one task per coroutine, one channel per mailbox", per the design notes:
// the single-thread-owns-it invariant is still honored (a coroutine's
// goroutine only runs between a jumpIn and the next jumpOut), but there is
// no real stack-pointer swap.
//
// # Usage
//
//	mioco.Start(func() error {
//	    mioco.Spawn(func() error {
//	        mioco.Sleep(time.Second)
//	        return nil
//	    })
//	    mioco.YieldNow()
//	    return nil
//	})
//
// See Start, Spawn, Sleep, SelectWait and Sync for the free-function API
// exercised from within a running coroutine.
package mioco
