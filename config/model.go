package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/stupid-simple/assets/assetcache"
	"github.com/stupid-simple/assets/handler"
	"github.com/stupid-simple/assets/resolve"
)

const (
	DefaultListen              = ":8080"
	DefaultMaintenanceSchedule = "@every 1m"
)

type Config struct {
	Listen              string       `json:"listen,omitempty" yaml:"listen"`
	MetricsPath         string       `json:"metrics_path,omitempty" yaml:"metrics_path"`
	MaintenanceSchedule string       `json:"maintenance_schedule,omitempty" yaml:"maintenance_schedule"`
	MaxHeaderBytes      SizeArgument `json:"max_header_bytes,omitempty" yaml:"max_header_bytes"`
	Mounts              []Mount      `json:"mounts" yaml:"mounts"`
}

type Mount struct {
	MountPrefix        string            `json:"mount_prefix" yaml:"mount_prefix"`
	Bundle             string            `json:"bundle" yaml:"bundle"`
	ResourceRoot       string            `json:"resource_root,omitempty" yaml:"resource_root"`
	IndexFile          *string           `json:"index_file,omitempty" yaml:"index_file"`
	CacheSpec          string            `json:"cache_spec,omitempty" yaml:"cache_spec"`
	DefaultCharset     *string           `json:"default_charset,omitempty" yaml:"default_charset"`
	DefaultContentType string            `json:"default_content_type,omitempty" yaml:"default_content_type"`
	MimeTypes          map[string]string `json:"mime_types,omitempty" yaml:"mime_types"`
	Overrides          []Override        `json:"overrides,omitempty" yaml:"overrides"`
}

type Override struct {
	Prefix string `json:"prefix" yaml:"prefix"`
	Path   string `json:"path" yaml:"path"`
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.MaintenanceSchedule == "" {
		c.MaintenanceSchedule = DefaultMaintenanceSchedule
	}
}

func (c *Config) Validate() error {
	if len(c.Mounts) == 0 {
		return errors.New("no mounts configured")
	}
	if c.MetricsPath != "" && !strings.HasPrefix(c.MetricsPath, "/") {
		return fmt.Errorf("metrics path %q must start with /", c.MetricsPath)
	}

	seen := make(map[string]bool, len(c.Mounts))
	var errs []error
	for i, m := range c.Mounts {
		prefix := resolve.NormalizeMountPrefix(m.MountPrefix)
		if seen[prefix] {
			errs = append(errs, fmt.Errorf("mount %d: prefix %s configured twice", i, prefix))
		}
		seen[prefix] = true
		if c.MetricsPath != "" && prefix == resolve.NormalizeMountPrefix(c.MetricsPath) {
			errs = append(errs, fmt.Errorf("mount %d: prefix %s collides with the metrics path", i, prefix))
		}
		if err := m.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("mount %d (%s): %w", i, prefix, err))
		}
	}
	return errors.Join(errs...)
}

func (m Mount) Validate() error {
	if m.Bundle == "" {
		return errors.New("bundle is required")
	}
	if m.MountPrefix != "" && !strings.HasPrefix(m.MountPrefix, "/") {
		return fmt.Errorf("mount prefix %q must start with /", m.MountPrefix)
	}
	if strings.ContainsRune(m.Index(), '/') {
		return fmt.Errorf("index file %q must be a file name", m.Index())
	}
	for _, o := range m.Overrides {
		if o.Prefix == "" || o.Path == "" {
			return errors.New("overrides need a prefix and a path")
		}
	}
	if _, err := m.CacheOptions(); err != nil {
		return err
	}
	return nil
}

// Index is the directory index file name, empty when disabled.
func (m Mount) Index() string {
	if m.IndexFile == nil {
		return handler.DefaultIndexFile
	}
	return *m.IndexFile
}

// Charset is the default charset, empty when disabled.
func (m Mount) Charset() string {
	if m.DefaultCharset == nil {
		return handler.DefaultCharset
	}
	return *m.DefaultCharset
}

func (m Mount) CacheOptions() (assetcache.Options, error) {
	spec := m.CacheSpec
	if spec == "" {
		spec = assetcache.DefaultSpec
	}
	return assetcache.ParseSpec(spec)
}

func (m Mount) Rules() []resolve.Rule {
	rules := make([]resolve.Rule, 0, len(m.Overrides))
	for _, o := range m.Overrides {
		rules = append(rules, resolve.Rule{Prefix: o.Prefix, Path: o.Path})
	}
	return rules
}

func (m Mount) MarshalZerologObject(e *zerolog.Event) {
	e.Str("mount_prefix", resolve.NormalizeMountPrefix(m.MountPrefix))
	e.Str("bundle", m.Bundle)
	e.Str("index_file", m.Index())
	e.Int("overrides", len(m.Overrides))

	if m.ResourceRoot != "" {
		e.Str("resource_root", m.ResourceRoot)
	}
	if m.CacheSpec != "" {
		e.Str("cache_spec", m.CacheSpec)
	}
}
