package handler

import (
	"log"
	"log/slog"
	"net/http"
	"sync"

	_ "github.com/amirasaad/cashfake/cmd/server/swagger"
	"github.com/amirasaad/cashfake/infra/initializer"
	"github.com/amirasaad/cashfake/pkg/app"
	"github.com/amirasaad/cashfake/pkg/config"
	"github.com/amirasaad/cashfake/webapi"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

// Handler is the serverless entry point. The app is built on the first request and
// reused while the instance stays warm.
func Handler(w http.ResponseWriter, r *http.Request) {
	// This is needed to set the proper request path in `*fiber.Ctx`
	r.RequestURI = r.URL.String()

	handler()(w, r)
}

var handler = sync.OnceValue(func() http.HandlerFunc {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load application configuration", "error", err)
		log.Fatal(err)
	}
	deps, err := initializer.InitializeDependencies(cfg)
	if err != nil {
		slog.Error("Failed to initialize dependencies", "error", err)
		log.Fatal(err)
	}
	return adaptor.FiberApp(webapi.SetupApp(app.New(deps)))
})
