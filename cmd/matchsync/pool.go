package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/onnwee/matchsync/event"
	"github.com/onnwee/matchsync/stream"
)

const stdoutName = "-"

// poolFile is the on-disk form of an event's stream pool.
type poolFile struct {
	SKU     string       `yaml:"sku"`
	Event   *event.Event `yaml:"event,omitempty"`
	Streams stream.Pool  `yaml:"streams"`
}

func readPool(path string) (poolFile, error) {
	var pf poolFile
	f, err := os.Open(path)
	if err != nil {
		return pf, err
	}
	defer f.Close()
	if err := yaml.NewDecoder(f).Decode(&pf); err != nil && err != io.EOF {
		return pf, fmt.Errorf("decode %s: %w", path, err)
	}
	if pf.Streams == nil {
		pf.Streams = stream.Pool{}
	}
	return pf, nil
}

func encodePool(w io.Writer, pf poolFile) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&pf); err != nil {
		return fmt.Errorf("encoding to YAML failed: %w", err)
	}
	return enc.Close()
}

// writePool writes pf to path, or to stdout for "-". Files are replaced via a
// temp file in the same directory so a failed write never truncates the pool.
func writePool(stdout io.Writer, path string, pf poolFile) error {
	if path == "" || path == stdoutName {
		return encodePool(stdout, pf)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".pool-*.yaml")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if err := encodePool(tmp, pf); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
