// Package workers provides abstractions for managing and running
// background workers. It defines the Worker interface and a Workers
// aggregate that starts multiple workers and waits for them to drain on
// shutdown.
package workers

import "context"

// Worker is the interface implemented by any background worker. Run blocks
// until ctx is cancelled or the worker's input is exhausted.
type Worker interface {
	Run(ctx context.Context)
}
