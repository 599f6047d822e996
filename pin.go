package clockless

// PinDriver drives a single GPIO line. Implementations must make Hi and Lo
// as close to a single register write as the platform allows; the bit loop
// calls them with nanosecond deadlines pending.
//
// There are no runtime errors at this layer. An invalid pin is a
// configuration mistake and is rejected when the platform pin is
// constructed, not here.
type PinDriver interface {
	// SetOutput configures the line as an output, driven low.
	SetOutput()
	Hi()
	Lo()
}
