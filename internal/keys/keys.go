// Package keys defines the identifiers of the field registry: a Key
// names a logical field, a Tag names one version of its value, and a
// KeyTag pairs them into the identity of a dependency-graph node.
package keys

import "strings"

// Key names a logical field, optionally composed of a domain prefix
// and a variable name ("surface-ponded_depth").
type Key string

// Tag names a version of a field's value. The zero Tag is the
// canonical version; other tags hold alternate time slices or working
// copies used during time integration.
type Tag string

// Standard tags understood by the lifecycle helpers.
const (
	Default Tag = ""
	Next    Tag = "next"
	Copy    Tag = "copy"
)

// domainDelimiter separates a domain prefix from a variable name.
const domainDelimiter = "-"

// Join composes a domain prefix and a variable name into a Key. An
// empty domain yields the bare variable name.
func Join(domain, name string) Key {
	if domain == "" {
		return Key(name)
	}
	return Key(domain + domainDelimiter + name)
}

// Domain returns the domain prefix of k, or "" when k has none.
func Domain(k Key) string {
	if i := strings.Index(string(k), domainDelimiter); i >= 0 {
		return string(k)[:i]
	}
	return ""
}

// VarName returns the variable portion of k, which is the whole key
// when k has no domain prefix.
func VarName(k Key) string {
	if i := strings.Index(string(k), domainDelimiter); i >= 0 {
		return string(k)[i+1:]
	}
	return string(k)
}

// KeyTag identifies one version of one field.
type KeyTag struct {
	Key Key
	Tag Tag
}

// String renders "key@tag", or the bare key for the default tag.
func (kt KeyTag) String() string {
	if kt.Tag == Default {
		return string(kt.Key)
	}
	return string(kt.Key) + "@" + string(kt.Tag)
}

// Parse splits "key@tag" into a KeyTag. The bare form "key" yields
// the default tag.
func Parse(s string) KeyTag {
	if i := strings.LastIndex(s, "@"); i >= 0 {
		return KeyTag{Key: Key(s[:i]), Tag: Tag(s[i+1:])}
	}
	return KeyTag{Key: Key(s)}
}

// DerivName composes the conventional name for the derivative of key
// with respect to wrt, e.g. "dponded_depth_dprecipitation". It is
// used for derivative bookkeeping identities and graph labels.
func DerivName(key Key, wrt KeyTag) Key {
	return Key("d" + string(key) + "_d" + wrt.String())
}
