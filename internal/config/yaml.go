package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// FromYAML builds a Config from a YAML mapping. JSON documents are valid
// YAML, so JSON configs load the same way.
//
//	path: /var/lib/kvgate
//	size: 1073741824
//	nested: {a: 1}
//
// Strings become string entries, non-negative integers uint64, negative
// integers int64, booleans uint64 0/1 and nested mappings object entries
// holding a *Config. Other values are rejected with ErrMalformed.
func FromYAML(data []byte) (*Config, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	cfg := New()
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return cfg, nil
	}
	root := doc.Content[0]
	if err := fill(cfg, root); err != nil {
		cfg.release()
		return nil, err
	}
	return cfg, nil
}

// FromFile reads and decodes a YAML or JSON config file.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return FromYAML(data)
}

func fill(cfg *Config, n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: line %d: top level must be a mapping", ErrMalformed, n.Line)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if k.Kind != yaml.ScalarNode || k.Value == "" {
			return fmt.Errorf("%w: line %d: invalid key", ErrMalformed, k.Line)
		}
		if err := fillEntry(cfg, k.Value, v); err != nil {
			return err
		}
	}
	return nil
}

func fillEntry(cfg *Config, key string, v *yaml.Node) error {
	switch v.Kind {
	case yaml.MappingNode:
		sub := New()
		if err := fill(sub, v); err != nil {
			return err
		}
		cfg.PutObject(key, sub, func(o any) { o.(*Config).release() })
		return nil
	case yaml.ScalarNode:
	default:
		return fmt.Errorf("%w: line %d: %q has unsupported value", ErrMalformed, v.Line, key)
	}

	switch v.Tag {
	case "!!str":
		cfg.PutString(key, v.Value)
	case "!!bool":
		var b bool
		if err := v.Decode(&b); err != nil {
			return fmt.Errorf("%w: line %d: %v", ErrMalformed, v.Line, err)
		}
		var u uint64
		if b {
			u = 1
		}
		cfg.PutUint64(key, u)
	case "!!int":
		if strings.HasPrefix(v.Value, "-") {
			var i int64
			if err := v.Decode(&i); err != nil {
				return fmt.Errorf("%w: line %d: %v", ErrMalformed, v.Line, err)
			}
			cfg.PutInt64(key, i)
			return nil
		}
		var u uint64
		if err := v.Decode(&u); err != nil {
			return fmt.Errorf("%w: line %d: %v", ErrMalformed, v.Line, err)
		}
		cfg.PutUint64(key, u)
	default:
		return fmt.Errorf("%w: line %d: %q has unsupported type %s", ErrMalformed, v.Line, key, v.Tag)
	}
	return nil
}
