package plugin

import "github.com/BDNK1/taskforge/runtime"

// Lifecycle is implemented by plugins that hold resources such as connection pools.
// Initialize runs after the plugin config is validated; Shutdown runs in reverse registration order.
type Lifecycle = runtime.Lifecycle

// TaskTypeProvider is implemented by plugins that contribute task types.
type TaskTypeProvider = runtime.TaskTypeProvider
