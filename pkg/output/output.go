// Package output renders the device listing
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/davidroman0O/poecycle/errors"
	"github.com/davidroman0O/poecycle/pkg/resolver"
)

// Format selects how listings are written
type Format string

const (
	FormatTable Format = "table"
	FormatYAML  Format = "yaml"
	FormatJSON  Format = "json"
)

// Formats lists the accepted values of the --output flag
var Formats = []Format{FormatTable, FormatYAML, FormatJSON}

// tableRow matches the fixed-width layout: name 30, MAC 20, port unbounded
const tableRow = "%-30s %-20s %s\n"

// ParseFormat validates a --output value
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(Formats, f) {
		return f, nil
	}
	return "", errors.Newf(errors.ErrUsage, "unknown output format %q (supported: table, yaml, json)", s)
}

// WriteListings writes every listing in the requested format
func WriteListings(w io.Writer, format Format, listings iter.Seq[resolver.Listing]) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(collect(listings)); err != nil {
			return fmt.Errorf("failed to encode YAML listing: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(collect(listings)); err != nil {
			return fmt.Errorf("failed to encode JSON listing: %w", err)
		}
		return nil
	default:
		if _, err := fmt.Fprintf(w, tableRow, "Device", "MAC address", "Port"); err != nil {
			return err
		}
		for l := range listings {
			if _, err := fmt.Fprintf(w, tableRow, l.Name, l.MAC, l.Port); err != nil {
				return err
			}
		}
		return nil
	}
}

// collect never returns nil so empty listings encode as [] rather than null
func collect(listings iter.Seq[resolver.Listing]) []resolver.Listing {
	all := []resolver.Listing{}
	for l := range listings {
		all = append(all, l)
	}
	return all
}
