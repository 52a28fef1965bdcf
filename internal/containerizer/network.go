package containerizer

import (
	"context"
	"fmt"

	"icebergtest/pkg/logging"

	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
)

const networkSubsystem = "DockerNetwork"

// networkAPI is the subset of the Docker client used for networks.
type networkAPI interface {
	NetworkInspect(ctx context.Context, networkID string, options network.InspectOptions) (network.Inspect, error)
	NetworkCreate(ctx context.Context, name string, options network.CreateOptions) (network.CreateResponse, error)
	NetworkRemove(ctx context.Context, networkID string) error
	Close() error
}

// DockerNetworks manages bridge networks through the Docker API.
type DockerNetworks struct {
	api networkAPI
}

// NewDockerNetworks connects to the Docker daemon at host, or to the one
// described by the environment when host is empty.
func NewDockerNetworks(host string) (*DockerNetworks, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &DockerNetworks{api: cli}, nil
}

// NetworkExists reports whether a network with the given name exists.
func (d *DockerNetworks) NetworkExists(ctx context.Context, name string) (bool, error) {
	_, err := d.api.NetworkInspect(ctx, name, network.InspectOptions{})
	if err != nil {
		if client.IsErrNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to inspect network %s: %w", name, err)
	}
	return true, nil
}

// CreateNetwork creates a bridge network.
func (d *DockerNetworks) CreateNetwork(ctx context.Context, name string) error {
	resp, err := d.api.NetworkCreate(ctx, name, network.CreateOptions{
		Driver: "bridge",
		Labels: map[string]string{"managed-by": "icebergtest"},
	})
	if err != nil {
		return fmt.Errorf("failed to create network %s: %w", name, err)
	}
	if resp.Warning != "" {
		logging.Warn(networkSubsystem, "Creating network %s: %s", name, resp.Warning)
	}
	logging.Debug(networkSubsystem, "Created network %s with ID %.12s", name, resp.ID)
	return nil
}

// RemoveNetwork removes a network.
func (d *DockerNetworks) RemoveNetwork(ctx context.Context, name string) error {
	if err := d.api.NetworkRemove(ctx, name); err != nil {
		return fmt.Errorf("failed to remove network %s: %w", name, err)
	}
	return nil
}

// Close releases the Docker client.
func (d *DockerNetworks) Close() error {
	return d.api.Close()
}
