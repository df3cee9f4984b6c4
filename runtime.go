package mioco

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Config configures a Runtime before it starts. Grounded directly on the
// original source's Config builder (thread_num/scheduler/stack_size/
// user_data/catch_panics); StackSize is kept even though it is close to
// moot for a goroutine-backed Coroutine (see doc.go), since a future
// pooled-goroutine or arena-stack implementation could still consult it,
// and an application porting mioco code expects the knob to exist.
type Config struct {
	// ThreadNum is how many OS-thread-backed ThreadHandlers the Runtime
	// starts. Defaults to runtime.NumCPU.
	ThreadNum int

	// Scheduler is consulted once per thread at startup to create that
	// thread's SchedulerThread. Defaults to NewFifoScheduler().
	Scheduler Scheduler

	// StackSize is unused by the goroutine-backed implementation; kept for
	// API parity with callers porting tuning code.
	StackSize int

	// UserData is attached to the first coroutine Start spawns.
	UserData any

	// CatchPanics controls whether a coroutine's entry function panicking
	// is recovered into ExitStatus{Kind: ExitPanic} (true, the default) or
	// left to crash the process the way an unrecovered goroutine panic
	// always does in Go (false).
	CatchPanics bool

	// Logger receives structured log entries from the runtime and every
	// ThreadHandler (all under the "runtime" category); the default
	// scheduler logs nothing. Defaults to NoOpLogger.
	Logger Logger
}

// NewConfig returns a Config with the same defaults as the original
// source's Config::new: one thread per CPU, the FIFO scheduler, panics
// caught, no logger.
func NewConfig() Config {
	return Config{
		ThreadNum:   runtime.NumCPU(),
		Scheduler:   NewFifoScheduler(),
		StackSize:   2 * 1024 * 1024,
		CatchPanics: true,
		Logger:      NoOpLogger{},
	}
}

// Runtime is a running (or not-yet-started) mioco instance: a fixed pool
// of ThreadHandlers, each backed by one OS thread via runtime.LockOSThread,
// cooperatively scheduling every Coroutine spawned into it.
type Runtime struct {
	config  Config
	threads []*ThreadHandler

	live    atomic.Int64
	started atomic.Bool

	wg sync.WaitGroup
}

// NewRuntime constructs a Runtime from cfg, replacing a non-positive
// ThreadNum, a nil Scheduler and a nil Logger with the defaults NewConfig
// uses; the other fields are used as given.
func NewRuntime(cfg Config) (*Runtime, error) {
	if cfg.ThreadNum <= 0 {
		cfg.ThreadNum = runtime.NumCPU()
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = NewFifoScheduler()
	}
	if cfg.Logger == nil {
		cfg.Logger = NoOpLogger{}
	}

	rt := &Runtime{config: cfg}
	rt.threads = make([]*ThreadHandler, cfg.ThreadNum)
	for i := range rt.threads {
		h, err := newThreadHandler(rt, i, cfg.Scheduler.SpawnThread())
		if err != nil {
			return nil, err
		}
		rt.threads[i] = h
	}
	return rt, nil
}

func (rt *Runtime) threadCount() int { return len(rt.threads) }

func (rt *Runtime) threadAt(id int) *ThreadHandler {
	if id < 0 || id >= len(rt.threads) {
		return nil
	}
	return rt.threads[id]
}

func (rt *Runtime) incLive() { rt.live.Add(1) }
func (rt *Runtime) decLive() { rt.live.Add(-1) }
func (rt *Runtime) liveCount() int64 { return rt.live.Load() }

func (rt *Runtime) logger() boundLogger {
	return boundLogger{l: rt.config.Logger, category: "runtime"}
}

// waitForStart spin-waits until Start has finished spawning the first
// coroutine, mirroring HandlerShared::wait_for_start_all: every
// ThreadHandler's loop blocks here before its first Poll, so a thread
// that happens to win the race to run first doesn't see coroutines_num
// == 0 and shut down before the entry coroutine even exists.
func (rt *Runtime) waitForStart() {
	for !rt.started.Load() {
		runtime.Gosched()
	}
}

// Start runs entry as the first coroutine on thread 0 and blocks until
// every coroutine in the Runtime has finished - i.e. until the whole
// Runtime has nothing left to run. It is the Start/thread_loop
// equivalent from the original source.
func (rt *Runtime) Start(entry func() error) {
	rt.StartWithUserData(entry, rt.config.UserData)
}

// StartWithUserData is Start, attaching data as the entry coroutine's
// UserData.
func (rt *Runtime) StartWithUserData(entry func() error, data any) {
	rt.wg.Add(len(rt.threads))
	for i, h := range rt.threads {
		h := h
		i := i
		go func() {
			defer rt.wg.Done()
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			if i == 0 {
				h.spawn(entry, data)
				rt.started.Store(true)
			}
			h.run()
		}()
	}
	rt.wg.Wait()
}

// Start is the package-level shorthand over a default-configured Runtime,
// equivalent to the original source's free function mioco.start.
func Start(entry func() error) {
	rt, err := NewRuntime(NewConfig())
	if err != nil {
		panic(err)
	}
	rt.Start(entry)
}

// StartThreads is Start, pinned to a specific thread count.
func StartThreads(threadNum int, entry func() error) {
	cfg := NewConfig()
	cfg.ThreadNum = threadNum
	rt, err := NewRuntime(cfg)
	if err != nil {
		panic(err)
	}
	rt.Start(entry)
}

// StartConfigured is Start, using a caller-supplied Config.
func StartConfigured(cfg Config, entry func() error) error {
	rt, err := NewRuntime(cfg)
	if err != nil {
		return err
	}
	rt.Start(entry)
	return nil
}
