package notifier

// TextNotifier is the outbound channel the gate sends through. Keep it small so
// transports stay swappable.
type TextNotifier interface {
	SendText(text string) error
}

// Func adapts a plain function to TextNotifier.
type Func func(text string) error

func (f Func) SendText(text string) error { return f(text) }
