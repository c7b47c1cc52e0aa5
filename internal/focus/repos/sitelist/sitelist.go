// Package sitelist reads and writes allow-list files of the form
// { "allowedSites": [ "example.com", ... ] }. Import files may also be YAML or TOML.
package sitelist

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf"
	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"

	"github.com/haukened/focusd/internal/focus/domain"
)

const sitesKey = "allowedSites"

// Export renders l in the export format, indented by two spaces. Characters
// such as < > & are written literally.
func Export(l domain.AllowList) ([]byte, error) {
	sites := make([]any, 0, len(l))
	for _, s := range l {
		sites = append(sites, s)
	}
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(map[string]any{sitesKey: sites}, ""), nil); err != nil {
		return nil, fmt.Errorf("failed to build export: %w", err)
	}

	var out bytes.Buffer
	enc := json.NewEncoder(&out)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(k.Raw()); err != nil {
		return nil, fmt.Errorf("failed to encode export: %w", err)
	}
	return bytes.TrimSuffix(out.Bytes(), []byte("\n")), nil
}

// Import parses a JSON export payload. Any deviation from the format
// returns an error wrapping domain.ErrInvalidImport and no list.
func Import(data []byte) (domain.AllowList, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(data), kjson.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidImport, err)
	}
	return sitesFrom(k)
}

// ImportFile parses the file at path, choosing the parser by extension.
func ImportFile(path string) (domain.AllowList, error) {
	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		parser = kjson.Parser()
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".toml":
		parser = toml.Parser()
	default:
		return nil, fmt.Errorf("%w: unsupported file type %q", domain.ErrInvalidImport, filepath.Ext(path))
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("%w: failed to load %s: %v", domain.ErrInvalidImport, path, err)
	}
	return sitesFrom(k)
}

// sitesFrom extracts the allowedSites array. Every element must be a string.
func sitesFrom(k *koanf.Koanf) (domain.AllowList, error) {
	if !k.Exists(sitesKey) {
		return nil, fmt.Errorf("%w: missing %q", domain.ErrInvalidImport, sitesKey)
	}
	raw, ok := k.Get(sitesKey).([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not an array", domain.ErrInvalidImport, sitesKey)
	}
	out := make(domain.AllowList, 0, len(raw))
	for i, v := range raw {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: element %d of %q is not a string", domain.ErrInvalidImport, i, sitesKey)
		}
		out = append(out, s)
	}
	return out, nil
}

// Codec adapts the package functions to the blocker service's SiteCodec.
type Codec struct{}

func (Codec) Export(l domain.AllowList) ([]byte, error)   { return Export(l) }
func (Codec) Import(data []byte) (domain.AllowList, error) { return Import(data) }
