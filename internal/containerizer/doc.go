// Package containerizer runs the container side of a stack.
//
// ComposeCLI starts and stops compose projects by driving the compose CLI.
// Each project gets its own working directory holding the rendered compose
// file and any files it bind-mounts. Up uses --wait, so it returns only once
// every service with a healthcheck reports healthy.
//
// DockerNetworks creates and removes the per-run bridge network through the
// Docker API and implements testcontext.NetworkProvider.
//
// Compose payloads are text/template files embedded in the binary and
// rendered with the sprig function map:
//
//	compose, err := containerizer.Render("minio.yml.tmpl", data)
//	err = runner.Up(ctx, containerizer.Project{Name: "iceberg_test_minio_ab12cd34", Compose: compose})
//
// Templates that embed Common get an optional ngrok sidecar and the external
// network declaration for free.
package containerizer
