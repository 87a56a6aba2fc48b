package vcschema

import (
	"regexp"
	"slices"
	"strings"
)

// Well-known JSON-LD contexts.
const (
	VCv2ContextURI         = "https://www.w3.org/ns/credentials/v2"
	VCExamplesV2ContextURI = "https://www.w3.org/ns/credentials/examples/v2"
	VCv1ContextURI         = "https://www.w3.org/2018/credentials/v1"
)

// Context is a JSON-LD context reference.
type Context struct {
	URI         string `json:"uri"`
	Prefix      string `json:"prefix,omitempty"`
	Description string `json:"description,omitempty"`
}

var (
	vcv2Context = Context{URI: VCv2ContextURI, Prefix: "vc", Description: "W3C Verifiable Credentials v2"}
	devContext  = Context{URI: VCExamplesV2ContextURI, Prefix: "ex", Description: "W3C Verifiable Credentials Examples v2"}
)

var contextURIRe = regexp.MustCompile(`^(https?://|\./|\.\./|/)`)

// Contexts is the active context list. The first entry is always the
// VC v2 context.
type Contexts []Context

// DefaultContexts returns a list holding only the VC v2 context.
func DefaultContexts() Contexts { return Contexts{vcv2Context} }

// DevContext returns the development context offered when normalization fails.
func DevContext() Context { return devContext }

// ValidContextURI reports whether uri is an absolute http(s) URL or a relative path.
func ValidContextURI(uri string) bool { return contextURIRe.MatchString(uri) }

// PrefixFor derives a display prefix from the last path segment of uri.
func PrefixFor(uri string) string {
	seg := uri[strings.LastIndex(uri, "/")+1:]
	return strings.Replace(seg, ".json", "", 1)
}

// ContextsFromURIs rebuilds a context list from schema constants. The VC v2
// context is placed first whatever its position; repeats are dropped.
func ContextsFromURIs(uris []string) Contexts {
	out := DefaultContexts()
	for _, u := range uris {
		if out.Has(u) {
			continue
		}
		out = append(out, Context{URI: u, Prefix: PrefixFor(u)})
	}
	return out
}

// Add returns the list with uri appended. The uri is trimmed first; it must
// pass ValidContextURI and must not already be present.
func (c Contexts) Add(uri string) (Contexts, error) {
	uri = strings.TrimSpace(uri)
	if !ValidContextURI(uri) {
		return c, Issues{NewIssue("/properties/@context", CodeInvalidContextURI, map[string]any{"uri": uri})}
	}
	if c.Has(uri) {
		return c, Issues{NewIssue("/properties/@context", CodeAlreadyExists, map[string]any{"key": uri})}
	}
	return append(c.normalized(), Context{URI: uri, Prefix: PrefixFor(uri)}), nil
}

// Remove returns the list without entry i. Index 0 and out-of-range indexes
// leave the list unchanged.
func (c Contexts) Remove(i int) Contexts {
	if i <= 0 || i >= len(c) {
		return c
	}
	return slices.Delete(slices.Clone(c), i, i+1)
}

// AddDev returns the list with the development context appended when absent.
func (c Contexts) AddDev() Contexts {
	if c.Has(VCExamplesV2ContextURI) {
		return c
	}
	return append(c.normalized(), devContext)
}

// Has reports whether uri is in the list.
func (c Contexts) Has(uri string) bool {
	return slices.ContainsFunc(c, func(x Context) bool { return x.URI == uri })
}

// URIs returns the context URIs in order.
func (c Contexts) URIs() []string {
	out := make([]string, len(c))
	for i, x := range c {
		out[i] = x.URI
	}
	return out
}

// normalized returns a copy whose first entry is the VC v2 context.
func (c Contexts) normalized() Contexts {
	if len(c) > 0 && c[0].URI == VCv2ContextURI {
		return slices.Clone(c)
	}
	out := DefaultContexts()
	for _, x := range c {
		if x.URI != VCv2ContextURI {
			out = append(out, x)
		}
	}
	return out
}
