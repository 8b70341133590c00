package orchestrator

// lane runs one channel's side effects for a trigger sequence on its own
// goroutine, in submission order. The sequence submits and moves on, so a
// slow device never holds back the delay clock.
type lane struct {
	work chan func()
	done chan struct{}
}

// newLane starts a lane that accepts up to size pending jobs without
// blocking.
func newLane(size int) *lane {
	l := &lane{
		work: make(chan func(), max(size, 1)),
		done: make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *lane) run() {
	defer close(l.done)
	for fn := range l.work {
		fn()
	}
}

func (l *lane) submit(fn func()) { l.work <- fn }

// drain stops accepting work and waits for everything queued to finish.
func (l *lane) drain() {
	close(l.work)
	<-l.done
}

// sequenceLanes are the per-channel lanes of one running sequence. Events
// stay ordered within a channel; channels do not wait for each other.
type sequenceLanes struct {
	ambient *lane
	wled    *lane
	hub     *lane
}

func newSequenceLanes(events int) *sequenceLanes {
	return &sequenceLanes{
		ambient: newLane(events),
		wled:    newLane(events),
		hub:     newLane(events),
	}
}

func (s *sequenceLanes) drain() {
	s.ambient.drain()
	s.wled.drain()
	s.hub.drain()
}
