package clockless

import (
	"fmt"
	"sort"
)

// Registry maps output pins to the controller that owns them. It replaces
// any notion of a process-wide table: construct one at startup and pass it
// to whatever owns LED output.
type Registry struct {
	controllers map[int]*Controller
}

func NewRegistry() *Registry {
	return &Registry{controllers: make(map[int]*Controller)}
}

// Register records c as the exclusive owner of pin. Registering a pin twice
// is a configuration error.
func (r *Registry) Register(pin int, c *Controller) error {
	if _, ok := r.controllers[pin]; ok {
		return fmt.Errorf("pin %d already registered", pin)
	}
	r.controllers[pin] = c
	return nil
}

// Lookup returns the controller owning pin, or nil.
func (r *Registry) Lookup(pin int) *Controller {
	return r.controllers[pin]
}

// Pins returns the registered pins in ascending order.
func (r *Registry) Pins() []int {
	pins := make([]int, 0, len(r.controllers))
	for p := range r.controllers {
		pins = append(pins, p)
	}
	sort.Ints(pins)
	return pins
}
