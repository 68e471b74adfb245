package hostrt

import (
	"net/http"

	"github.com/armorclaw/errexplain/pkg/fault"
	"github.com/armorclaw/errexplain/pkg/render"
)

// Middleware routes handler panics to the exception hook with the response
// attached as the render context. http.ErrAbortHandler is never intercepted.
func (p *Process) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == http.ErrAbortHandler {
				panic(v)
			}
			hook := p.exception()
			if hook == nil {
				panic(v)
			}
			pe := fault.NewPanicError(v, 0)
			pe.Frames = fault.TrimPrefix(pe.Frames, ownPackage)
			ctx := render.WithContext(r.Context(), render.HTTP(w, r))
			if err := hook(ctx, pe); err != nil {
				Repanic(err)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
