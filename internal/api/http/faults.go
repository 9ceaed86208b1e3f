package http

import (
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/tr4ction-console/pkg/util"
)

// Fault is one scripted misbehavior. A zero Status only applies Delay and
// then serves the request normally. Bare sends the status with no body.
type Fault struct {
	Status int
	Detail string
	Delay  time.Duration
	Bare   bool
}

// Faults queues scripted failures per method and path and counts every
// request that reaches a route, faulted or not.
type Faults struct {
	mu     sync.Mutex
	queued map[string][]Fault
	hits   map[string]int
}

// NewFaults returns an empty injector.
func NewFaults() *Faults {
	return &Faults{queued: make(map[string][]Fault), hits: make(map[string]int)}
}

// Inject appends faults for method and path; each request consumes one.
func (f *Faults) Inject(method, path string, faults ...Fault) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := faultKey(method, path)
	f.queued[key] = append(f.queued[key], faults...)
}

// Hits returns how many requests arrived for method and path.
func (f *Faults) Hits(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[faultKey(method, path)]
}

// Reset drops queued faults and counters.
func (f *Faults) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queued = make(map[string][]Fault)
	f.hits = make(map[string]int)
}

func (f *Faults) next(method, path string) (Fault, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := faultKey(method, path)
	f.hits[key]++
	queue := f.queued[key]
	if len(queue) == 0 {
		return Fault{}, false
	}
	f.queued[key] = queue[1:]
	return queue[0], true
}

// Handler is the fiber middleware applying queued faults.
func (f *Faults) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		fault, ok := f.next(c.Method(), c.Path())
		if !ok {
			return c.Next()
		}
		if fault.Delay > 0 {
			timer := time.NewTimer(fault.Delay)
			select {
			case <-timer.C:
			case <-c.Context().Done():
				timer.Stop()
			}
		}
		switch {
		case fault.Status == 0:
			return c.Next()
		case fault.Bare:
			return c.SendStatus(fault.Status)
		default:
			return apperrors.FromStatus(fault.Status, fault.Detail)
		}
	}
}

func faultKey(method, path string) string {
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return strings.ToUpper(method) + " " + path
}
