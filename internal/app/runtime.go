package app

import (
	"sync"

	"github.com/tphakala/trapcam/internal/buildinfo"
	"github.com/tphakala/trapcam/internal/conf"
)

// Runtime is created before configuration is loaded and builds the Context
// on first use, so commands that only list data never touch the model backend.
type Runtime struct {
	Build    *buildinfo.Context
	Settings *conf.Settings

	opts []Option

	once sync.Once
	ctx  *Context
	err  error
}

// NewRuntime returns a Runtime; Settings is filled in once configuration loads
func NewRuntime(build *buildinfo.Context, opts ...Option) *Runtime {
	return &Runtime{Build: build, opts: opts}
}

// Context builds the application Context once
func (r *Runtime) Context() (*Context, error) {
	r.once.Do(func() {
		if r.Settings == nil {
			r.err = errNotLoaded
			return
		}
		r.ctx, r.err = New(r.Settings, r.Build, r.opts...)
	})
	return r.ctx, r.err
}

// Close releases the Context if it was built
func (r *Runtime) Close() {
	if r.ctx != nil {
		r.ctx.Close()
	}
}
