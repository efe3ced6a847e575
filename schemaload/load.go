// Package schemaload builds a registry.Registry from schema, resource-type, and
// service-provider-config JSON files on disk, loading them concurrently.
package schemaload

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/platformed/scimcore/registry"
	"github.com/platformed/scimcore/spec"
)

// Config names the files backing a registry.Registry: every *.json file in
// SchemasDirectory is registered as a schema, one resource type is loaded per
// entry in ResourceTypePaths, and ServiceProviderConfigPath names the single
// service-provider-config document.
type Config struct {
	SchemasDirectory          string
	ResourceTypePaths         []string
	ServiceProviderConfigPath string
}

// Load reads every file named by cfg concurrently and builds a
// registry.Registry from the result. Any read or decode error, or any
// registry validation error (an unregistered schema reference, a colliding
// endpoint), aborts the whole load.
func Load(ctx context.Context, cfg Config) (*registry.Registry, error) {
	var (
		schemas       []*spec.Schema
		resourceTypes = make([]*spec.ResourceType, len(cfg.ResourceTypePaths))
		spConfig      *spec.ServiceProviderConfig
	)

	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		schemas, err = loadSchemas(cfg.SchemasDirectory)
		return err
	})

	for i, path := range cfg.ResourceTypePaths {
		i, path := i, path
		g.Go(func() error {
			rt, err := loadResourceType(path)
			if err != nil {
				return err
			}
			resourceTypes[i] = rt
			return nil
		})
	}

	g.Go(func() error {
		var err error
		spConfig, err = loadServiceProviderConfig(cfg.ServiceProviderConfigPath)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	b := registry.NewBuilder().WithServiceProviderConfig(spConfig)
	for _, s := range schemas {
		b.AddSchema(s)
	}
	for _, rt := range resourceTypes {
		b.AddResourceType(rt)
	}
	return b.Build()
}

func loadSchemas(dir string) ([]*spec.Schema, error) {
	var schemas []*spec.Schema
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(info.Name(), ".json") {
			return nil
		}
		s := new(spec.Schema)
		if err := decodeFile(path, s); err != nil {
			return err
		}
		schemas = append(schemas, s)
		return nil
	})
	return schemas, err
}

func loadResourceType(path string) (*spec.ResourceType, error) {
	rt := new(spec.ResourceType)
	if err := decodeFile(path, rt); err != nil {
		return nil, err
	}
	return rt, nil
}

func loadServiceProviderConfig(path string) (*spec.ServiceProviderConfig, error) {
	cfg := new(spec.ServiceProviderConfig)
	if err := decodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeFile(path string, v interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewDecoder(f).Decode(v)
}
