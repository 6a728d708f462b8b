package cmd

import (
	"fmt"
	"net/http"

	"github.com/Depado/ginprom"
	"github.com/aurowora/compress"
	"github.com/cockroachdb/errors"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	healthcheck "github.com/tavsec/gin-healthcheck"
	"github.com/tavsec/gin-healthcheck/checks"
	hc_config "github.com/tavsec/gin-healthcheck/config"

	"github.com/rm-hull/authfetch/internal"
	"github.com/rm-hull/authfetch/internal/routes"
)

type ServeArgs struct {
	Port              int
	Debug             bool
	KeepalivePath     string
	KeepaliveSchedule string
}

// ProxyServer runs a gateway that holds the session and forwards /api/...
// requests to the backend with the credentials attached.
func ProxyServer(settings internal.Settings, args ServeArgs) error {
	metrics, err := internal.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return errors.Wrap(err, "failed to register metrics")
	}

	client, store, err := bootstrap(settings, metrics)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close session store")
		}
	}()

	if args.KeepalivePath != "" {
		c, err := internal.StartKeepalive(client, args.KeepaliveSchedule, args.KeepalivePath)
		if err != nil {
			return errors.Wrap(err, "failed to start keepalive job")
		}
		defer c.Stop()
	}

	r, err := NewRouter(client, store, args.Debug)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf(":%d", args.Port)
	log.Info().Msgf("starting gateway on port %d...", args.Port)
	if err := r.Run(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrapf(err, "gateway failed to start on port %d", args.Port)
	}

	return nil
}

func NewRouter(client *internal.AuthClient, store SessionBackend, debug bool) (*gin.Engine, error) {
	r := gin.New()

	prom := ginprom.New(
		ginprom.Engine(r),
		ginprom.Path("/metrics"),
		ginprom.Ignore("/healthz"),
	)

	r.Use(
		gin.Recovery(),
		gin.LoggerWithWriter(gin.DefaultWriter, "/healthz", "/metrics"),
		prom.Instrument(),
		compress.Compress(),
		cors.Default(),
	)

	if debug {
		log.Warn().Msg("pprof endpoints are enabled and exposed. Do not run with this flag in production.")
		pprof.Register(r)
	}

	if err := healthcheck.New(r, hc_config.DefaultConfig(), []checks.Check{
		store.Check(),
	}); err != nil {
		return nil, errors.Wrap(err, "failed to initialize healthcheck")
	}

	session := r.Group("/session")
	session.GET("", routes.SessionStatus(store))
	session.PUT("", routes.StoreSession(store))
	session.DELETE("", routes.ClearSession(store))

	r.Any("/api/*path", routes.Forward(client))

	return r, nil
}
