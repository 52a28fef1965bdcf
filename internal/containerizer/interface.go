package containerizer

import (
	"context"
)

// Project is one compose deployment owned by a single component.
type Project struct {
	// Name is the compose project name. It must be unique per run so that
	// parallel stacks do not share containers.
	Name string
	// Compose is the rendered compose file.
	Compose []byte
	// Files are written next to the compose file before it is started, so
	// relative bind mounts like ./trino:/etc/trino resolve to them.
	Files map[string]string
}

// ComposeRunner brings compose projects up and down.
type ComposeRunner interface {
	// Up starts every service and blocks until compose reports them
	// healthy. A failed Up leaves nothing behind.
	Up(ctx context.Context, project Project) error

	// Down stops the project and removes its volumes. Unknown projects are
	// ignored.
	Down(ctx context.Context, projectName string) error
}
