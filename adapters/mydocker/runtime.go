package mydocker

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"mycontroller/domain"
	"mycontroller/helpers"
	"mycontroller/interfaces"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/events"
	"github.com/docker/docker/api/types/filters"
	dnetwork "github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// stopTimeoutSeconds is passed to the daemon on ContainerStop; the container gets this
// long to exit on SIGTERM before the daemon kills it.
const stopTimeoutSeconds = 10

// NewClient creates a Docker API client from the environment (DOCKER_HOST etc.) with
// API version negotiation, so the adapter works against whatever daemon version the
// socket exposes.
//
// Returns: (*client.Client, nil) or (nil, error) when the environment configuration is
// unusable. The caller should Ping before serving traffic.
//
// Called from cmd/main during startup.
func NewClient() (*client.Client, error) {
	return client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
}

// DockerRuntime creates an interfaces.Runtime over the Docker Engine API. Containers are
// attached to the given network and addressed by their IP on it plus the workload's
// internal port. Panics on nil cli/logger, empty network or invalid port.
//
// Parameters: cli — Docker API client; network — container network shared with the
// reverse proxy; internalPort — port the workload listens on inside the container;
// logger — logger.
//
// Returns: interfaces.Runtime (*dockerRuntime).
//
// Called from cmd/main.
func DockerRuntime(cli *client.Client, network string, internalPort int, logger log.Logger) interfaces.Runtime {
	if internalPort <= 0 || internalPort > 65535 {
		panic(fmt.Sprintf("adapters.mydocker.runtime.go: internalPort must be 1-65535, got %d", internalPort))
	}
	return &dockerRuntime{
		cli:          helpers.NilPanic(cli, "adapters.mydocker.runtime.go: cli is required"),
		network:      helpers.StrPanic(network, "adapters.mydocker.runtime.go: network is required"),
		internalPort: internalPort,
		logger:       log.With(helpers.NilPanic(logger, "adapters.mydocker.runtime.go: logger is required"), "component", "docker"),
	}
}

// dockerRuntime implements interfaces.Runtime. All idempotency promises of the interface
// (missing container is "already stopped", never an error) are implemented here with
// errdefs.IsNotFound, so the caller never sees daemon 404s.
type dockerRuntime struct {
	cli          *client.Client
	network      string
	internalPort int
	logger       log.Logger
}

// Start creates and starts a container from the spec. A missing image is pulled once and
// the create retried; a name conflict (stale container left by an unclean shutdown) is
// resolved by force-removing the old container and retrying once. A container that was
// created but refuses to start is removed so it cannot leak.
//
// Parameters: ctx — bounds create/pull/start; spec — rendered start request.
//
// Returns: (container id, nil) on success; ("", error) otherwise.
//
// Called from service.LifecycleManager.provision.
func (d *dockerRuntime) Start(ctx context.Context, spec domain.StartSpec) (string, error) {
	id, err := d.create(ctx, spec)
	if err != nil {
		return "", err
	}
	if err := d.cli.ContainerStart(ctx, id, types.ContainerStartOptions{}); err != nil {
		d.removeBestEffort(id)
		return "", fmt.Errorf("start container %s: %w", spec.Name, err)
	}
	return id, nil
}

// removeBestEffort force-removes a container that was created but never started. Runs on
// its own bounded context: the caller's ctx may already be cancelled or expired, and the
// orphan must not outlive it.
func (d *dockerRuntime) removeBestEffort(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := d.Remove(ctx, id); err != nil {
		level.Warn(d.logger).Log("msg", "cleanup of unstartable container failed", "instance_id", id, "err", err)
	}
}

func (d *dockerRuntime) create(ctx context.Context, spec domain.StartSpec) (string, error) {
	config := &container.Config{
		Image:  spec.Image,
		Env:    envList(spec.Env),
		Labels: spec.Labels,
	}
	networking := &dnetwork.NetworkingConfig{
		EndpointsConfig: map[string]*dnetwork.EndpointSettings{
			d.network: {},
		},
	}

	resp, err := d.cli.ContainerCreate(ctx, config, &container.HostConfig{}, networking, nil, spec.Name)
	if err == nil {
		return resp.ID, nil
	}

	switch {
	case errdefs.IsNotFound(err):
		// Image not present locally; pull and retry once.
		level.Info(d.logger).Log("msg", "pulling image", "image", spec.Image)
		if pullErr := d.pull(ctx, spec.Image); pullErr != nil {
			return "", fmt.Errorf("pull image %s: %w", spec.Image, pullErr)
		}
	case errdefs.IsConflict(err):
		// Stale same-named container from an unclean shutdown; replace it.
		level.Warn(d.logger).Log("msg", "removing stale container with conflicting name", "name", spec.Name)
		if rmErr := d.cli.ContainerRemove(ctx, spec.Name, types.ContainerRemoveOptions{Force: true}); rmErr != nil && !errdefs.IsNotFound(rmErr) {
			return "", fmt.Errorf("remove stale container %s: %w", spec.Name, rmErr)
		}
	default:
		return "", fmt.Errorf("create container %s: %w", spec.Name, err)
	}

	resp, err = d.cli.ContainerCreate(ctx, config, &container.HostConfig{}, networking, nil, spec.Name)
	if err != nil {
		return "", fmt.Errorf("create container %s: %w", spec.Name, err)
	}
	return resp.ID, nil
}

func (d *dockerRuntime) pull(ctx context.Context, image string) error {
	reader, err := d.cli.ImagePull(ctx, image, types.ImagePullOptions{})
	if err != nil {
		return err
	}
	defer reader.Close()
	// The pull only completes once the progress stream is drained.
	_, err = io.Copy(io.Discard, reader)
	return err
}

// Inspect reports the container's runtime status. The address is the container IP on the
// controller network joined with the internal port; empty until the daemon has assigned
// an IP. A missing container yields (RuntimeStatus{Running: false}, nil).
//
// Called from the readiness poll, the post-failure re-check and crash recovery.
func (d *dockerRuntime) Inspect(ctx context.Context, instanceID string) (domain.RuntimeStatus, error) {
	info, err := d.cli.ContainerInspect(ctx, instanceID)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return domain.RuntimeStatus{}, nil
		}
		return domain.RuntimeStatus{}, fmt.Errorf("inspect container %s: %w", instanceID, err)
	}
	st := domain.RuntimeStatus{}
	if info.State != nil {
		st.Running = info.State.Running
		st.ExitCode = info.State.ExitCode
	}
	if st.Running && info.NetworkSettings != nil {
		if ep, ok := info.NetworkSettings.Networks[d.network]; ok && ep.IPAddress != "" {
			st.Address = net.JoinHostPort(ep.IPAddress, strconv.Itoa(d.internalPort))
		}
	}
	return st, nil
}

// Stop requests a bounded stop (SIGTERM, then kill after stopTimeoutSeconds). A missing
// container is already stopped and returns nil.
//
// Called from service.LifecycleManager when draining.
func (d *dockerRuntime) Stop(ctx context.Context, instanceID string) error {
	timeout := stopTimeoutSeconds
	err := d.cli.ContainerStop(ctx, instanceID, container.StopOptions{Timeout: &timeout})
	if err != nil && !errdefs.IsNotFound(err) {
		return fmt.Errorf("stop container %s: %w", instanceID, err)
	}
	return nil
}

// Remove force-removes the container. A missing container returns nil.
//
// Called after the stop grace period and when cleaning up failed provisioning.
func (d *dockerRuntime) Remove(ctx context.Context, instanceID string) error {
	err := d.cli.ContainerRemove(ctx, instanceID, types.ContainerRemoveOptions{Force: true})
	if err != nil && !errdefs.IsNotFound(err) {
		return fmt.Errorf("remove container %s: %w", instanceID, err)
	}
	return nil
}

// Watch subscribes to die/stop/destroy events for containers carrying the managed label.
// The returned channels follow the Docker SDK contract: the event channel delivers until
// ctx is done or the stream breaks, after which the error channel reports why. Each call
// is a fresh subscription.
//
// Called from service.LifecycleManager's watch loop, which resubscribes on errors.
func (d *dockerRuntime) Watch(ctx context.Context) (<-chan domain.RuntimeEvent, <-chan error) {
	args := filters.NewArgs(
		filters.Arg("type", "container"),
		filters.Arg("event", string(domain.EventDie)),
		filters.Arg("event", string(domain.EventStop)),
		filters.Arg("event", string(domain.EventDestroy)),
		filters.Arg("label", domain.LabelManaged+"=true"),
	)
	msgs, errs := d.cli.Events(ctx, types.EventsOptions{Filters: args})

	out := make(chan domain.RuntimeEvent)
	outErrs := make(chan error, 1)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				ev, ok := toRuntimeEvent(msg)
				if !ok {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			case err, ok := <-errs:
				if ok && err != nil {
					outErrs <- err
				}
				return
			}
		}
	}()
	return out, outErrs
}

func toRuntimeEvent(msg events.Message) (domain.RuntimeEvent, bool) {
	if msg.Type != events.ContainerEventType || msg.Actor.ID == "" {
		return domain.RuntimeEvent{}, false
	}
	action := domain.RuntimeEventAction(msg.Action)
	switch action {
	case domain.EventDie, domain.EventStop, domain.EventDestroy:
		return domain.RuntimeEvent{InstanceID: msg.Actor.ID, Action: action}, true
	default:
		return domain.RuntimeEvent{}, false
	}
}

// envList renders the env map in the KEY=VALUE form the engine API expects.
func envList(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}

// Ping verifies daemon connectivity within the given timeout; used at startup to fail
// fast when the runtime socket is not reachable.
//
// Called from cmd/main before building the controller.
func Ping(ctx context.Context, cli *client.Client, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if _, err := cli.Ping(ctx); err != nil {
		return fmt.Errorf("ping container runtime: %w", err)
	}
	return nil
}
