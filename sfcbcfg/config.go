// Package sfcbcfg loads the queue layout a driver instance is built
// from out of a YAML file, the same yaml-tagged-struct shape the
// pack's replicator config uses, so a deployment can describe its
// flash layout declaratively instead of in Go source.
package sfcbcfg

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Layout is the top-level document: one flash part and the queues
// carved out of it.
type Layout struct {
	Flash  FlashConfig   `yaml:"flash"`
	Queues []QueueConfig `yaml:"queues"`
}

// FlashConfig selects which compile-time flash descriptor to bind the
// driver to, and how big its SPI scratch buffer should be.
type FlashConfig struct {
	Type       string `yaml:"type"`
	SPIBufSize int    `yaml:"spi_buf_size"`
}

// QueueConfig describes one RegisterQueue call.
type QueueConfig struct {
	Name         string `yaml:"name"`
	MagicNumber  uint32 `yaml:"magic_number"`
	ElemSizeByte uint16 `yaml:"elem_size_byte"`
	NumElem      uint16 `yaml:"num_elem"`
}

// Load reads and parses a Layout from path.
func Load(path string) (*Layout, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sfcbcfg: read %s: %w", path, err)
	}

	var l Layout
	if err := yaml.Unmarshal(raw, &l); err != nil {
		return nil, fmt.Errorf("sfcbcfg: parse %s: %w", path, err)
	}

	if err := Validate(&l); err != nil {
		return nil, err
	}
	return &l, nil
}

// Validate checks a Layout for the constraints RegisterQueue itself
// cannot catch ahead of time (a descriptive name to look up, at least
// one queue).
func Validate(l *Layout) error {
	if l.Flash.Type == "" {
		return fmt.Errorf("sfcbcfg: flash.type is required")
	}
	if len(l.Queues) == 0 {
		return fmt.Errorf("sfcbcfg: at least one queue is required")
	}
	seen := make(map[string]bool, len(l.Queues))
	for _, q := range l.Queues {
		if q.Name == "" {
			return fmt.Errorf("sfcbcfg: queue with empty name")
		}
		if seen[q.Name] {
			return fmt.Errorf("sfcbcfg: duplicate queue name %q", q.Name)
		}
		seen[q.Name] = true
		if q.ElemSizeByte == 0 {
			return fmt.Errorf("sfcbcfg: queue %q: elem_size_byte must be non-zero", q.Name)
		}
		if q.NumElem == 0 {
			return fmt.Errorf("sfcbcfg: queue %q: num_elem must be non-zero", q.Name)
		}
	}
	return nil
}
