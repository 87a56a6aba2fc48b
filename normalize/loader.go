package normalize

import (
	"bytes"
	"embed"
	"fmt"
	"net/http"
	"sync"

	"github.com/piprate/json-gold/ld"

	vcschema "github.com/credkit/vcschema"
)

//go:embed contexts/*.jsonld
var contextFS embed.FS

var embeddedContexts = map[string]string{
	vcschema.VCv2ContextURI:         "contexts/credentials-v2.jsonld",
	vcschema.VCExamplesV2ContextURI: "contexts/credentials-examples-v2.jsonld",
	vcschema.VCv1ContextURI:         "contexts/credentials-v1.jsonld",
}

// LoaderOptions configures NewLoader.
type LoaderOptions struct {
	// Offline refuses every context that is neither embedded nor preloaded.
	Offline bool
	// Client fetches remote contexts. nil uses http.DefaultClient.
	Client *http.Client
	// Preload maps extra context URLs to their JSON documents.
	Preload map[string][]byte
}

// NewLoader returns a caching document loader that serves the W3C
// credential contexts from embedded copies.
func NewLoader(opts LoaderOptions) (*ld.CachingDocumentLoader, error) {
	var next ld.DocumentLoader = offlineLoader{}
	if !opts.Offline {
		client := opts.Client
		if client == nil {
			client = http.DefaultClient
		}
		next = ld.NewDefaultDocumentLoader(client)
	}
	cl := ld.NewCachingDocumentLoader(next)
	for url, name := range embeddedContexts {
		b, err := contextFS.ReadFile(name)
		if err != nil {
			return nil, err
		}
		if err := addDocument(cl, url, b); err != nil {
			return nil, err
		}
	}
	for url, b := range opts.Preload {
		if err := addDocument(cl, url, b); err != nil {
			return nil, err
		}
	}
	return cl, nil
}

func addDocument(cl *ld.CachingDocumentLoader, url string, b []byte) error {
	doc, err := ld.DocumentFromReader(bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("normalize: context %s: %w", url, err)
	}
	cl.AddDocument(url, doc)
	return nil
}

type offlineLoader struct{}

func (offlineLoader) LoadDocument(u string) (*ld.RemoteDocument, error) {
	return nil, ld.NewJsonLdError(ld.LoadingDocumentFailed, fmt.Sprintf("context %s is not available offline", u))
}

// lockedLoader serializes document loads so that one Validator can serve
// concurrent checks; the caching loader's map is not guarded.
type lockedLoader struct {
	mu   sync.Mutex
	next ld.DocumentLoader
}

func (l *lockedLoader) LoadDocument(u string) (*ld.RemoteDocument, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.next.LoadDocument(u)
}
