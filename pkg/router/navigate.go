package router

// NavigateOptions configures navigation behavior.
type NavigateOptions struct {
	// Trigger dispatches the matched route. When false, Navigate only records
	// the fragment. Defaults to true.
	Trigger bool
}

// NavigateOption is a functional option for Navigate.
type NavigateOption func(*NavigateOptions)

// WithoutTrigger records the fragment without dispatching its route.
func WithoutTrigger() NavigateOption {
	return func(o *NavigateOptions) {
		o.Trigger = false
	}
}
