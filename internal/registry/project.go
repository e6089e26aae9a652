// Package registry persists project records (id, path, display name, last
// used timestamp) in a single embedded BoltDB file under the configured
// state directory. It is an ambient collaborator, outside the analysis
// core: it has zero knowledge of runs, modules, or events.
package registry

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"qualitygate/internal/qgerrors"
	"qualitygate/internal/types"
)

const (
	bucketProjects = "projects"
	dbOpenTimeout  = 5 * time.Second
)

// Registry is a bbolt-backed project store. Safe for concurrent use (bbolt
// serialises writers internally; reads run in concurrent read-only
// transactions).
type Registry struct {
	db *bolt.DB
}

// Open opens (or creates) the BoltDB file at path and ensures the projects
// bucket exists.
func Open(path string) (*Registry, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: dbOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("bolt.Open(%q): %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketProjects))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialise projects bucket: %w", err)
	}
	return &Registry{db: db}, nil
}

// Close closes the underlying database file.
func (r *Registry) Close() error {
	return r.db.Close()
}

// Save writes or updates a project record.
func (r *Registry) Save(p *types.Project) error {
	if p.ID == "" {
		return qgerrors.InvalidInputf("project id must not be empty").WithComponent("registry")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return qgerrors.Internalf("marshal project %q: %v", p.ID, err).WithComponent("registry")
	}
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketProjects))
		return b.Put([]byte(p.ID), data)
	})
}

// Get retrieves the project record for id, or a NotFound error if absent.
func (r *Registry) Get(id string) (*types.Project, error) {
	var p types.Project
	found := false
	err := r.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketProjects))
		data := b.Get([]byte(id))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &p)
	})
	if err != nil {
		return nil, qgerrors.Internalf("read project %q: %v", id, err).WithComponent("registry")
	}
	if !found {
		return nil, qgerrors.NotFoundf("project %q not registered", id).WithComponent("registry")
	}
	return &p, nil
}

// List returns all registered projects.
func (r *Registry) List() ([]*types.Project, error) {
	var out []*types.Project
	err := r.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketProjects))
		return b.ForEach(func(k, v []byte) error {
			var p types.Project
			if err := json.Unmarshal(v, &p); err != nil {
				return err
			}
			out = append(out, &p)
			return nil
		})
	})
	if err != nil {
		return nil, qgerrors.Internalf("list projects: %v", err).WithComponent("registry")
	}
	return out, nil
}
