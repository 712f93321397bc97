// Package identity resolves where the relay is running from the GCE
// metadata server. Resolution happens once per process and tolerates
// failure: an unreachable metadata server yields empty fields, never an
// error that stops the pipeline.
package identity

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"cloud.google.com/go/compute/metadata"
)

// Identity carries the opaque instance identity attached to published
// series as resource labels.
type Identity struct {
	ProjectID  string
	InstanceID string
	Zone       string
}

type Resolver struct {
	logger *slog.Logger

	// Lookup seams, swapped in tests.
	projectID  func(context.Context) (string, error)
	instanceID func(context.Context) (string, error)
	zone       func(context.Context) (string, error)

	once   sync.Once
	cached Identity
}

func NewResolver(logger *slog.Logger) *Resolver {
	return &Resolver{
		logger:     logger,
		projectID:  metadata.ProjectIDWithContext,
		instanceID: metadata.InstanceIDWithContext,
		zone:       metadata.ZoneWithContext,
	}
}

// Resolve returns the cached identity, querying the metadata server on
// first use. Individual lookup failures are logged and leave the
// corresponding field empty.
func (r *Resolver) Resolve(ctx context.Context) Identity {
	r.once.Do(func() {
		var id Identity
		if v, err := r.projectID(ctx); err != nil {
			r.logger.Warn("failed to fetch project id", "error", err)
		} else {
			id.ProjectID = v
		}
		if v, err := r.instanceID(ctx); err != nil {
			r.logger.Warn("failed to fetch instance id", "error", err)
		} else {
			id.InstanceID = v
		}
		if v, err := r.zone(ctx); err != nil {
			r.logger.Warn("failed to fetch zone id", "error", err)
		} else {
			// Tolerate a fully qualified "projects/<num>/zones/<zone>" path.
			parts := strings.Split(v, "/")
			id.Zone = parts[len(parts)-1]
		}
		r.cached = id
	})
	return r.cached
}

// ProjectName renders the identity as a backend project resource name.
func (id Identity) ProjectName() string {
	return "projects/" + id.ProjectID
}
