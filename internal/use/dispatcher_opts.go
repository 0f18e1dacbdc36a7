package use

import "github.com/pixil98/go-satchel/internal/item"

type DispatcherOpt func(*Dispatcher)

// WithAuthority marks whether this process owns the authoritative state
func WithAuthority(authoritative bool) DispatcherOpt {
	return func(d *Dispatcher) {
		d.authoritative = authoritative
	}
}

// WithDevelopment re-raises panics from behaviors after they are logged
func WithDevelopment(development bool) DispatcherOpt {
	return func(d *Dispatcher) {
		d.development = development
	}
}

// WithWearPerHit sets how much durability a tool loses per hit. Zero disables wear.
func WithWearPerHit(n int) DispatcherOpt {
	return func(d *Dispatcher) {
		d.wearPerHit = n
	}
}

// WithBehavior registers or replaces the behavior for a use kind
func WithBehavior(kind item.UseKind, b Behavior) DispatcherOpt {
	return func(d *Dispatcher) {
		d.behaviors[kind] = b
	}
}
