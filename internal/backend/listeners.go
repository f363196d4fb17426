package backend

import "sync"

// Listeners fans session changes out to subscribers.
type Listeners struct {
	mu   sync.Mutex
	next int
	fns  map[int]AuthChangeFunc
}

func NewListeners() *Listeners {
	return &Listeners{fns: make(map[int]AuthChangeFunc)}
}

func (l *Listeners) Add(fn AuthChangeFunc) Subscription {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.next
	l.next++
	l.fns[id] = fn
	return &subscription{l: l, id: id}
}

func (l *Listeners) Emit(event AuthEvent, session *Session) {
	l.mu.Lock()
	fns := make([]AuthChangeFunc, 0, len(l.fns))
	for _, fn := range l.fns {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		var s *Session
		if session != nil {
			cp := *session
			s = &cp
		}
		fn(event, s)
	}
}

func (l *Listeners) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.fns)
}

type subscription struct {
	l    *Listeners
	id   int
	once sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.l.mu.Lock()
		delete(s.l.fns, s.id)
		s.l.mu.Unlock()
	})
}
