package runtime

import "context"

// Lifecycle allows plugins to set up and release shared resources.
// Plugins implementing it have Initialize called when the container starts
// and Shutdown called, in reverse order, when it stops.
type Lifecycle interface {
	// Initialize is called once when the container starts up.
	// Config is already applied and validated at this point.
	Initialize(ctx context.Context) error
	// Shutdown is called during graceful shutdown.
	Shutdown(ctx context.Context) error
}

// TaskTypeProvider is implemented by plugins that contribute task types.
// Keys are registered as "<plugin>.<key>"; values are typed nil pointers such as (*CopyTask)(nil).
type TaskTypeProvider interface {
	TaskTypes() map[string]Task
}
