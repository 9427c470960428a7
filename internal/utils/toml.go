package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
)

// TOMLDoc is a loosely typed TOML table. Config loading falls back to it when a file
// does not decode into its struct, so that keys with the right type survive a typo
// elsewhere in the file.
type TOMLDoc map[string]any

// DecodeTOMLFile decodes path into v and warns about keys v has no field for.
func DecodeTOMLFile(path string, v any) error {
	md, err := toml.DecodeFile(path, v)
	if err != nil {
		log.Warnf("TOML parsing error in %s: %v. Attempting partial recovery...", path, err)
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		log.Warnf("Ignoring unknown keys in %s: %v", path, undecoded)
	}
	return nil
}

// ReadTOMLDoc parses path without a target type.
func ReadTOMLDoc(path string) (TOMLDoc, error) {
	doc := make(TOMLDoc)
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Section returns the sub-table name, or false if it is missing or not a table.
func (d TOMLDoc) Section(name string) (TOMLDoc, bool) {
	section, ok := d[name].(map[string]any)
	return TOMLDoc(section), ok
}

// Int returns key as an int. TOML integers decode as int64.
func (d TOMLDoc) Int(key string) (int, bool) {
	if val, ok := d[key].(int64); ok {
		return int(val), true
	}
	return 0, false
}

func (d TOMLDoc) Bool(key string) (bool, bool) {
	val, ok := d[key].(bool)
	return val, ok
}

func (d TOMLDoc) String(key string) (string, bool) {
	val, ok := d[key].(string)
	return val, ok
}

// WriteTOMLFile encodes v into path through a temporary file in the same directory,
// so a crash never leaves a truncated config behind.
func WriteTOMLFile(path string, v any) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if err := toml.NewEncoder(tmp).Encode(v); err != nil {
		tmp.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
