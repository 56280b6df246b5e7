package circuitbreaker

import (
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
)

type Settings struct {
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
}

func DefaultSettings() Settings {
	return Settings{
		MaxRequests:         3,
		Interval:            60 * time.Second,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

type Breaker struct {
	cb *gobreaker.CircuitBreaker[any]
}

func New(name string) *Breaker {
	return NewWithSettings(name, DefaultSettings())
}

func NewWithSettings(name string, s Settings) *Breaker {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.ConsecutiveFailures
		},
	}

	return &Breaker{
		cb: gobreaker.NewCircuitBreaker[any](settings),
	}
}

func (b *Breaker) Execute(fn func() (any, error)) (any, error) {
	return b.cb.Execute(fn)
}

func (b *Breaker) State() string {
	return b.cb.State().String()
}

// IsOpen reports whether err was returned because the breaker rejected the call.
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
