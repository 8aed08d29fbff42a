package testutil

import "sync"

// ConcurrencyProbe records how many callers are inside a section at once.
//
//	probe := testutil.NewConcurrencyProbe()
//	leave := probe.Enter()
//	defer leave()
type ConcurrencyProbe struct {
	mu      sync.Mutex
	active  int
	max     int
	entered int
}

// NewConcurrencyProbe creates an empty probe.
func NewConcurrencyProbe() *ConcurrencyProbe { return &ConcurrencyProbe{} }

// Enter marks a caller as active and returns the function that marks it done.
func (p *ConcurrencyProbe) Enter() (leave func()) {
	p.mu.Lock()
	p.active++
	p.entered++

	if p.active > p.max {
		p.max = p.active
	}
	p.mu.Unlock()

	var once sync.Once

	return func() {
		once.Do(func() {
			p.mu.Lock()
			p.active--
			p.mu.Unlock()
		})
	}
}

// Max returns the highest number of simultaneously active callers seen.
func (p *ConcurrencyProbe) Max() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.max
}

// Entered returns how many callers entered in total.
func (p *ConcurrencyProbe) Entered() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.entered
}
