// Package magnet parses and formats magnet: URIs.
package magnet

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	btihPrefix = "urn:btih:"

	// Value used when a magnet URI omits dn or xt.
	unknownField = "Unknown"
)

// InvalidMagnetError reports a URI that is not a parseable magnet link.
type InvalidMagnetError struct {
	Reason string
}

func (e *InvalidMagnetError) Error() string {
	return fmt.Sprintf("invalid magnet: %s", e.Reason)
}

// Magnet is the decoded form of a magnet: URI.
type Magnet struct {
	DisplayName string
	InfoHash    string
	Trackers    []string
}

// New builds a Magnet from its parts. The hash is stored without the
// urn:btih: prefix.
func New(infoHash, displayName string, trackers []string) *Magnet {
	return &Magnet{
		DisplayName: displayName,
		InfoHash:    strings.TrimPrefix(infoHash, btihPrefix),
		Trackers:    trackers,
	}
}

// Parse decodes a magnet: URI. Any other scheme is rejected.
func Parse(raw string) (*Magnet, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, &InvalidMagnetError{Reason: err.Error()}
	}
	if u.Scheme != "magnet" {
		return nil, &InvalidMagnetError{Reason: fmt.Sprintf("scheme %q is not magnet", u.Scheme)}
	}

	values, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return nil, &InvalidMagnetError{Reason: err.Error()}
	}

	m := &Magnet{
		DisplayName: unknownField,
		InfoHash:    unknownField,
	}
	if dn := values.Get("dn"); dn != "" {
		m.DisplayName = dn
	}
	if xt := values.Get("xt"); xt != "" {
		m.InfoHash = strings.TrimPrefix(xt, btihPrefix)
	}
	m.Trackers = values["tr"]

	return m, nil
}

// String formats the magnet as magnet:?xt=urn:btih:<hash>&dn=<name>&tr=<t>...
// Parsing the result yields an equal Magnet.
func (m *Magnet) String() string {
	var b strings.Builder
	b.WriteString("magnet:?xt=")
	b.WriteString(url.QueryEscape(btihPrefix + m.InfoHash))
	b.WriteString("&dn=")
	b.WriteString(url.QueryEscape(m.DisplayName))
	for _, tr := range m.Trackers {
		b.WriteString("&tr=")
		b.WriteString(url.QueryEscape(tr))
	}
	return b.String()
}
