//go:build swagger

package httpapi

import (
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "scadd/docs"
)

// MountSwagger serves the generated OpenAPI UI at /swagger/.
func MountSwagger(r chi.Router) {
	r.Get("/swagger/*", httpSwagger.WrapHandler)
}
