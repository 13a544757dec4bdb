package domain

import (
	"fmt"
	"strings"
)

// Label keys attached to every container the controller starts. The managed label is
// used as an event filter so the watch loop only sees our own containers; the key label
// maps a container back to its routing key during crash recovery.
const (
	LabelManaged    = "mycontroller.managed"
	LabelSessionKey = "mycontroller.session-key"
)

// WorkloadTemplate describes how to start one backend instance. Loaded from the YAML
// file at CONFIG_PATH (cmd.LoadConfig); the controller itself is workload-agnostic.
type WorkloadTemplate struct {
	// Image is the container image to run (e.g. jlesage/firefox:latest).
	Image string
	// InternalPort is the port the workload listens on inside the container.
	InternalPort int
	// Network is the container network shared with the reverse proxy.
	Network string
	// Entrypoint is the reverse-proxy entrypoint name routes are attached to (e.g. "web").
	Entrypoint string
	// NamePrefix is prepended to the key to form the container name (default "session").
	NamePrefix string
	// StripPrefix controls whether /session/<key> is stripped before the workload sees the path.
	StripPrefix bool
	// Env is passed to the container verbatim.
	Env map[string]string
	// Labels are extra container labels merged on top of the generated routing labels.
	Labels map[string]string
}

// Validate checks the template the way cmd.LoadConfig expects: image, network and a valid
// internal port are required; entrypoint and name prefix must not contain characters that
// would break a label value or container name.
//
// Returns: nil when the template is usable; descriptive error on the first problem found.
//
// Called from cmd.LoadConfig before the controller starts.
func (t WorkloadTemplate) Validate() error {
	if strings.TrimSpace(t.Image) == "" {
		return fmt.Errorf("workload.image is required")
	}
	if t.InternalPort <= 0 || t.InternalPort > 65535 {
		return fmt.Errorf("workload.internal_port must be 1-65535, got %d", t.InternalPort)
	}
	if strings.TrimSpace(t.Network) == "" {
		return fmt.Errorf("workload.network is required")
	}
	if strings.TrimSpace(t.Entrypoint) == "" {
		return fmt.Errorf("workload.entrypoint is required")
	}
	if err := ValidateSessionKey(t.NamePrefix); err != nil {
		return fmt.Errorf("workload.name_prefix: %w", err)
	}
	return nil
}

// ContainerName returns the runtime name for the instance serving key, e.g. "session-ab12cd34".
func (t WorkloadTemplate) ContainerName(key string) string {
	return t.NamePrefix + "-" + key
}

// StartSpec is everything the runtime client needs to create and start one instance.
// Built by WorkloadTemplate.StartSpec; consumed by interfaces.Runtime.Start.
type StartSpec struct {
	Key     string
	Name    string
	Image   string
	Network string
	Env     map[string]string
	Labels  map[string]string
}

// StartSpec renders the template into a concrete runtime start request for the given key:
// container name, routing labels from NewRouteRule plus the managed/key markers, template
// env and extra labels. Template labels never override the generated routing labels.
//
// Parameter key — validated routing key.
//
// Returns: StartSpec ready for interfaces.Runtime.Start.
//
// Called from service.LifecycleManager.provision.
func (t WorkloadTemplate) StartSpec(key string) StartSpec {
	labels := make(map[string]string, len(t.Labels)+8)
	for k, v := range t.Labels {
		labels[k] = v
	}
	rule := NewRouteRule(key, t)
	for k, v := range rule.TraefikLabels(t.StripPrefix) {
		labels[k] = v
	}
	labels[LabelManaged] = "true"
	labels[LabelSessionKey] = key

	env := make(map[string]string, len(t.Env))
	for k, v := range t.Env {
		env[k] = v
	}
	return StartSpec{
		Key:     key,
		Name:    t.ContainerName(key),
		Image:   t.Image,
		Network: t.Network,
		Env:     env,
		Labels:  labels,
	}
}
