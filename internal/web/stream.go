package web

import (
	"io"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/teresa-solution/housezen-portal/internal/swr"
	"github.com/teresa-solution/housezen-portal/internal/view"
)

// Stream runs a stale-while-revalidate load and sends every frame, rendered
// with the named template, as a server-sent "frame" event. A final "done"
// event marks the end of the revalidation.
func Stream[T any](c *gin.Context, r *view.Renderer, name string, cache *swr.Cache[T], fetch swr.Fetcher[T]) {
	// Load renders at most two frames: the first one and the revalidated one.
	frames := make(chan swr.View[T], 2)
	done := cache.Load(c.Request.Context(), fetch, func(v swr.View[T]) {
		frames <- v
	})
	go func() {
		<-done
		close(frames)
	}()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(w io.Writer) bool {
		v, ok := <-frames
		if !ok {
			c.SSEvent("done", "")
			return false
		}
		html, err := r.Fragment(name, v)
		if err != nil {
			log.Error().Err(err).Str("template", name).Msg("Failed to render frame")
			return false
		}
		c.SSEvent("frame", html)
		return true
	})
}
