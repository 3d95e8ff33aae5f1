// Package handle implements the portable, resolvable cross-plugin data
// reference described in §3.2: a stable (plugin_id, version, method, meta)
// tuple addressed by plugin identity, never by namespace.
package handle

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Handle is a stable, parseable reference to an addressable resource owned
// by some activation. Handles are values: immutable, freely cloned,
// comparable by structural equality (a plain struct of comparable fields
// plus a slice gives value semantics once Meta is treated as read-only).
type Handle struct {
	PluginID uuid.UUID
	Version  string
	Method   string
	Meta     []string
}

// New constructs a Handle from its parts.
func New(pluginID uuid.UUID, version, method string, meta ...string) Handle {
	return Handle{PluginID: pluginID, Version: version, Method: method, Meta: append([]string(nil), meta...)}
}

// Equal reports whether h and other denote the same handle (structural
// equality over the tuple, per §3.2).
func (h Handle) Equal(other Handle) bool {
	if h.PluginID != other.PluginID || h.Version != other.Version || h.Method != other.Method {
		return false
	}
	if len(h.Meta) != len(other.Meta) {
		return false
	}
	for i := range h.Meta {
		if h.Meta[i] != other.Meta[i] {
			return false
		}
	}
	return true
}

// String renders the canonical textual form defined in §3.2/§6.2:
//
//	{plugin_id}@{version}::{method}[:meta0[:meta1...]]
func (h Handle) String() string {
	var b strings.Builder
	b.WriteString(h.PluginID.String())
	b.WriteByte('@')
	b.WriteString(h.Version)
	b.WriteString("::")
	b.WriteString(h.Method)
	for _, m := range h.Meta {
		b.WriteByte(':')
		b.WriteString(m)
	}
	return b.String()
}

// Parse parses the canonical textual form produced by Handle.String. It
// rejects any non-UUID token in the id position, matching §6.2.
func Parse(s string) (Handle, error) {
	at := strings.IndexByte(s, '@')
	if at < 0 {
		return Handle{}, fmt.Errorf("handle: missing '@' separator in %q", s)
	}
	idPart, rest := s[:at], s[at+1:]
	id, err := uuid.Parse(idPart)
	if err != nil {
		return Handle{}, fmt.Errorf("handle: invalid plugin_id %q: %w", idPart, err)
	}

	sep := strings.Index(rest, "::")
	if sep < 0 {
		return Handle{}, fmt.Errorf("handle: missing '::' separator in %q", s)
	}
	version, tail := rest[:sep], rest[sep+2:]
	if version == "" {
		return Handle{}, fmt.Errorf("handle: empty version in %q", s)
	}

	parts := strings.Split(tail, ":")
	method := parts[0]
	if method == "" {
		return Handle{}, fmt.Errorf("handle: empty method in %q", s)
	}
	var meta []string
	if len(parts) > 1 {
		meta = parts[1:]
	}

	return Handle{PluginID: id, Version: version, Method: method, Meta: meta}, nil
}

// namespaceOID is the fixed UUID v5 namespace every plugin_id is derived
// under (§3.2, §6.5): the standard RFC 4122 OID namespace. This value is
// frozen — changing it would break every previously issued handle's
// identity.
var namespaceOID = uuid.MustParse("6ba7b812-9dad-11d1-80b4-00c04fd430c8")

// DerivePluginID computes the deterministic plugin_id for an activation's
// namespace and version (§3.2, §6.5): UUIDv5(NAMESPACE_OID,
// "<namespace>@<major>"), where major is the first dotted component of
// version. Same namespace and same major therefore yield an identical
// plugin_id across patch/minor upgrades; different majors yield different
// ids. Implementations must not fabricate plugin_id by any other means.
func DerivePluginID(namespace, version string) uuid.UUID {
	major := version
	if i := strings.IndexByte(version, '.'); i >= 0 {
		major = version[:i]
	}
	seed := namespace + "@" + major
	return uuid.NewSHA1(namespaceOID, []byte(seed))
}
