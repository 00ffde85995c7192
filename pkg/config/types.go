// Package config provides configuration structures and loading utilities
package config

// ControllerSection is the reserved section holding controller credentials.
// It is never treated as a device.
const ControllerSection = "_controller"

// Keys read from the controller section
const (
	KeyURL       = "url"
	KeyUsername  = "username"
	KeyPassword  = "password"
	KeySite      = "site"
	KeyVerifySSL = "verify_ssl"
)

// Keys read from device sections
const (
	KeyMAC  = "mac"
	KeyPort = "port"
)

// Controller defaults applied when a key is absent
const (
	DefaultURL      = "https://localhost:8443"
	DefaultUsername = "admin"
	DefaultPassword = ""
	DefaultSite     = "default"
)

// ControllerConfig contains controller connection details
type ControllerConfig struct {
	BaseURL   string `yaml:"url" json:"url"`
	Username  string `yaml:"username" json:"username"`
	Password  string `yaml:"password" json:"-"`
	Site      string `yaml:"site" json:"site"`
	VerifyTLS bool   `yaml:"verify_ssl" json:"verify_ssl"`
}

// DeviceSpec identifies one device by the switch MAC and the port it is plugged into
type DeviceSpec struct {
	Name string `yaml:"name" json:"name"`
	MAC  string `yaml:"mac" json:"mac"`
	Port string `yaml:"port" json:"port"`
}

// Section is one named block of key/value pairs. Values already include
// anything inherited from the DEFAULT section.
type Section struct {
	Name   string
	values map[string]string
}

// Get returns the value for key and whether it was present
func (s Section) Get(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

// GetOrDefault returns the value for key, or def when absent
func (s Section) GetOrDefault(key, def string) string {
	if v, ok := s.values[key]; ok {
		return v
	}
	return def
}

// File is a loaded configuration document
type File struct {
	path       string
	controller ControllerConfig
	devices    []Section
	index      map[string]int
}

// Path returns the file the configuration was loaded from
func (f *File) Path() string {
	return f.path
}

// Controller returns the controller settings with defaults applied
func (f *File) Controller() ControllerConfig {
	return f.controller
}

// Sections returns the device section names in file order
func (f *File) Sections() []string {
	names := make([]string, len(f.devices))
	for i, s := range f.devices {
		names[i] = s.Name
	}
	return names
}

// Device looks up a device section by name
func (f *File) Device(name string) (Section, bool) {
	i, ok := f.index[name]
	if !ok {
		return Section{}, false
	}
	return f.devices[i], true
}
