// Package resolver turns command line device names into validated targets
package resolver

import (
	stderrors "errors"
	"iter"

	"github.com/davidroman0O/poecycle/errors"
	"github.com/davidroman0O/poecycle/pkg/config"
)

// Undefined is shown in listings for a field the section does not define
const Undefined = "<undefined>"

// Listing is one row of the device list
type Listing struct {
	Name string `yaml:"name" json:"name"`
	MAC  string `yaml:"mac" json:"mac"`
	Port string `yaml:"port" json:"port"`
}

// Listings yields every device section in file order. Incomplete sections
// are listed too, with the missing fields shown as Undefined.
func Listings(f *config.File) iter.Seq[Listing] {
	return func(yield func(Listing) bool) {
		for _, name := range f.Sections() {
			sec, _ := f.Device(name)
			l := Listing{
				Name: name,
				MAC:  sec.GetOrDefault(config.KeyMAC, Undefined),
				Port: sec.GetOrDefault(config.KeyPort, Undefined),
			}
			if !yield(l) {
				return
			}
		}
	}
}

// Resolve validates every name before returning. All problems are reported
// together as a joined error; targets are only returned when there are none.
func Resolve(f *config.File, names []string) ([]config.DeviceSpec, error) {
	var (
		targets  []config.DeviceSpec
		problems []error
	)

	for _, name := range names {
		sec, ok := f.Device(name)
		if !ok {
			problems = append(problems, errors.WithContext(
				errors.Newf(errors.ErrDeviceUnknown, "Unknown device: %s", name),
				map[string]interface{}{"device": name},
			))
			continue
		}

		mac, hasMAC := sec.Get(config.KeyMAC)
		port, hasPort := sec.Get(config.KeyPort)
		if !hasMAC {
			problems = append(problems, missingField(name, config.KeyMAC))
		}
		if !hasPort {
			problems = append(problems, missingField(name, config.KeyPort))
		}
		if hasMAC && hasPort {
			targets = append(targets, config.DeviceSpec{Name: name, MAC: mac, Port: port})
		}
	}

	if len(problems) > 0 {
		return nil, stderrors.Join(problems...)
	}
	return targets, nil
}

func missingField(device, field string) error {
	return errors.WithContext(
		errors.Newf(errors.ErrDeviceMissingField, "%s not specified for %s", field, device),
		map[string]interface{}{"device": device, "field": field},
	)
}

// Problems flattens an error returned by Resolve into one error per problem
func Problems(err error) []error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}
