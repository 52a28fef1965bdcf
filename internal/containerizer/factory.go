package containerizer

import (
	"fmt"
	"strings"

	"icebergtest/internal/config"
)

// RuntimeType names the compose front end in use.
type RuntimeType string

const (
	RuntimeTypeDocker RuntimeType = "docker"
	RuntimeTypePodman RuntimeType = "podman"
)

// DetectRuntime infers the runtime from the compose command.
func DetectRuntime(composeCommand string) RuntimeType {
	if strings.Contains(strings.ToLower(composeCommand), "podman") {
		return RuntimeTypePodman
	}
	return RuntimeTypeDocker
}

// NewFromSettings creates the compose runner and network provider for the
// configured runtime.
func NewFromSettings(settings config.DockerSettings) (*ComposeCLI, *DockerNetworks, error) {
	if DetectRuntime(settings.ComposeBinary) == RuntimeTypePodman {
		// the network provider talks to the Docker API only
		return nil, nil, fmt.Errorf("podman runtime not yet implemented")
	}

	compose, err := NewComposeCLI(settings.ComposeBinary, settings.Host)
	if err != nil {
		return nil, nil, err
	}
	networks, err := NewDockerNetworks(settings.Host)
	if err != nil {
		return nil, nil, err
	}
	return compose, networks, nil
}
