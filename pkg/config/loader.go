package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"

	"github.com/davidroman0O/poecycle/errors"
)

// DefaultFileName is the config file looked up in the user's home directory
const DefaultFileName = ".unifi-config"

// defaultsSection holds values inherited by every other section
const defaultsSection = "DEFAULT"

// DefaultPath returns the per-user configuration path
func DefaultPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return DefaultFileName
	}
	return filepath.Join(homeDir, DefaultFileName)
}

// rawSection is a parsed section before defaults are merged in
type rawSection struct {
	name   string
	values map[string]string
}

// Load reads a configuration file. A missing file is read as an empty
// document, which then fails on the missing controller section.
func Load(path string) (*File, error) {
	var (
		defaults map[string]string
		sections []rawSection
		err      error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		defaults, sections, err = parseYAML(path)
	default:
		defaults, sections, err = parseINI(path)
	}
	if err != nil {
		return nil, errors.WithOp(err, "config.Load")
	}

	return build(path, defaults, sections)
}

func parseINI(path string) (map[string]string, []rawSection, error) {
	// Quotes are part of the value and a repeated section is an error,
	// so duplicates are kept apart here and rejected in build.
	f, err := ini.LoadSources(ini.LoadOptions{
		Loose:                   true,
		InsensitiveKeys:         true,
		IgnoreInlineComment:     true,
		PreserveSurroundedQuote: true,
		AllowNonUniqueSections:  true,
	}, path)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrConfigParse, fmt.Sprintf("failed to parse %s", path))
	}

	var (
		defaults map[string]string
		sections []rawSection
	)
	for _, sec := range f.Sections() {
		// the implicit default section and an explicit [DEFAULT] are separate blocks
		if sec.Name() == defaultsSection {
			defaults = merge(defaults, sec.KeysHash())
			continue
		}
		sections = append(sections, rawSection{name: sec.Name(), values: sec.KeysHash()})
	}
	return defaults, sections, nil
}

// parseYAML reads a document shaped like the INI file: a top-level mapping
// from section name to a mapping of scalar values. Node order is kept.
func parseYAML(path string) (map[string]string, []rawSection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, errors.Wrap(err, errors.ErrConfigParse, "failed to read config file")
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrConfigParse, fmt.Sprintf("failed to parse YAML config %s", path))
	}
	if len(doc.Content) == 0 {
		return nil, nil, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, nil, errors.Newf(errors.ErrConfigParse, "%s: top level must be a mapping of sections", path)
	}

	var (
		defaults map[string]string
		sections []rawSection
	)
	for i := 0; i+1 < len(root.Content); i += 2 {
		name := root.Content[i].Value
		body := root.Content[i+1]

		values, err := yamlSectionValues(name, body)
		if err != nil {
			return nil, nil, err
		}
		if name == defaultsSection {
			defaults = values
			continue
		}
		sections = append(sections, rawSection{name: name, values: values})
	}
	return defaults, sections, nil
}

func yamlSectionValues(name string, body *yaml.Node) (map[string]string, error) {
	values := make(map[string]string)
	// An empty section ("device:") decodes as a null scalar
	if body.Kind == yaml.ScalarNode && body.Tag == "!!null" {
		return values, nil
	}
	if body.Kind != yaml.MappingNode {
		return nil, errors.Newf(errors.ErrConfigParse, "section %q must be a mapping", name)
	}
	for j := 0; j+1 < len(body.Content); j += 2 {
		key, val := body.Content[j], body.Content[j+1]
		if val.Kind != yaml.ScalarNode {
			return nil, errors.Newf(errors.ErrConfigParse, "section %q: key %q must be a scalar", name, key.Value)
		}
		values[strings.ToLower(key.Value)] = val.Value
	}
	return values, nil
}

func build(path string, defaults map[string]string, raw []rawSection) (*File, error) {
	f := &File{
		path:  path,
		index: make(map[string]int),
	}

	var controller *Section
	for _, r := range raw {
		sec := Section{Name: r.name, values: merge(defaults, r.values)}
		if r.name == ControllerSection {
			if controller != nil {
				return nil, errors.Newf(errors.ErrConfigParse, "%s: duplicate section [%s]", path, r.name)
			}
			controller = &sec
			continue
		}
		if _, dup := f.index[r.name]; dup {
			return nil, errors.Newf(errors.ErrConfigParse, "%s: duplicate section [%s]", path, r.name)
		}
		f.index[r.name] = len(f.devices)
		f.devices = append(f.devices, sec)
	}

	if controller == nil {
		return nil, errors.WithContext(
			errors.Newf(errors.ErrConfigMissingController, "%s must contain [%s] section", path, ControllerSection),
			map[string]interface{}{"path": path},
		)
	}

	cc, err := controllerConfig(*controller)
	if err != nil {
		return nil, err
	}
	f.controller = cc
	return f, nil
}

func controllerConfig(s Section) (ControllerConfig, error) {
	cc := ControllerConfig{
		BaseURL:  strings.TrimRight(s.GetOrDefault(KeyURL, DefaultURL), "/"),
		Username: s.GetOrDefault(KeyUsername, DefaultUsername),
		Password: s.GetOrDefault(KeyPassword, DefaultPassword),
		Site:     s.GetOrDefault(KeySite, DefaultSite),
	}

	if raw, ok := s.Get(KeyVerifySSL); ok {
		v, err := parseBool(raw)
		if err != nil {
			return ControllerConfig{}, errors.Wrap(err, errors.ErrConfigParse,
				fmt.Sprintf("[%s] %s", ControllerSection, KeyVerifySSL))
		}
		cc.VerifyTLS = v
	}
	return cc, nil
}

// parseBool accepts the usual INI spellings on top of strconv's
func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "on":
		return true, nil
	case "no", "off":
		return false, nil
	}
	return strconv.ParseBool(strings.TrimSpace(s))
}

func merge(defaults, values map[string]string) map[string]string {
	out := make(map[string]string, len(defaults)+len(values))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range values {
		out[k] = v
	}
	return out
}

// CheckPermissions returns a warning when the file can be read by group or
// other users. The file holds controller credentials.
func CheckPermissions(path string) (string, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return "", false
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		return fmt.Sprintf("%s has permissions %#o and contains credentials; consider chmod 600", path, uint32(perm)), true
	}
	return "", false
}
