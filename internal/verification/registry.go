package verification

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry keeps one Form per browser session.
type Registry struct {
	mu    sync.Mutex
	forms map[string]*entry
	ttl   time.Duration
	now   func() time.Time
}

type entry struct {
	form     *Form
	lastSeen time.Time
}

// NewRegistry creates a registry that forgets forms idle for longer than ttl.
// A zero ttl keeps forms until Delete.
func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{forms: make(map[string]*entry), ttl: ttl, now: time.Now}
}

// Create registers a new form under a random ID.
func (r *Registry) Create(onVerify VerifyFunc, onResend ResendFunc, opts ...FormOption) *Form {
	form := NewForm(uuid.NewString(), onVerify, onResend, opts...)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweep()
	r.forms[form.id] = &entry{form: form, lastSeen: r.now()}
	return form
}

// Get returns the form registered under id.
func (r *Registry) Get(id string) (*Form, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.forms[id]
	if !ok {
		return nil, false
	}
	if r.expired(e) {
		delete(r.forms, id)
		return nil, false
	}
	e.lastSeen = r.now()
	return e.form, true
}

// Delete forgets the form registered under id.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.forms, id)
}

// Len returns the number of live forms.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweep()
	return len(r.forms)
}

func (r *Registry) sweep() {
	for id, e := range r.forms {
		if r.expired(e) {
			delete(r.forms, id)
		}
	}
}

func (r *Registry) expired(e *entry) bool {
	return r.ttl > 0 && r.now().Sub(e.lastSeen) > r.ttl
}
