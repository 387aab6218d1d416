package codec

import "sync"

// Registry manages the available block codecs
type Registry struct {
	mu     sync.RWMutex
	codecs map[string]BlockCodec
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{codecs: make(map[string]BlockCodec)}
}

var defaultRegistry = NewRegistry()

// Register registers a block codec under its name
func Register(c BlockCodec) {
	defaultRegistry.Register(c)
}

// Get retrieves a block codec by name
func Get(name string) (BlockCodec, error) {
	return defaultRegistry.Get(name)
}

// List returns all registered block codecs
func List() []BlockCodec {
	return defaultRegistry.List()
}

// Register registers a block codec under its name
func (r *Registry) Register(c BlockCodec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codecs[c.Name()] = c
}

// Get retrieves a block codec by name
func (r *Registry) Get(name string) (BlockCodec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.codecs[name]
	if !ok {
		return nil, ErrCodecNotFound
	}
	return c, nil
}

// List returns all registered block codecs
func (r *Registry) List() []BlockCodec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	codecs := make([]BlockCodec, 0, len(r.codecs))
	for _, c := range r.codecs {
		codecs = append(codecs, c)
	}
	return codecs
}
