package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	fakeaccountrepo "github.com/authcove/go-idp-sessions/accounts/repofake"
	"github.com/authcove/go-idp-sessions/clients"
	fakeclientrepo "github.com/authcove/go-idp-sessions/clients/fakerepo"
	"github.com/authcove/go-idp-sessions/identity"
	"github.com/authcove/go-idp-sessions/internal/config"
	"github.com/authcove/go-idp-sessions/sessions"
	"github.com/authcove/go-idp-sessions/sessions/redisrepo"
	"github.com/common-nighthawk/go-figure"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatal().Err(err).Msg("Error running sessiond")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("sessiond stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Msgf("Recovered from panic: %v", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName())

	repo, client, err := buildStore(c)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	server := &http.Server{Addr: c.GetPort(), Handler: healthHandler(repo)}
	go listenAndServe(server)
	waitForStopSignal()
	return shutdown(server)
}

// buildStore wires config -> redis client -> codec -> session repository.
// Client and account lookups are externally owned in a full deployment; a
// bootstrap client is seeded so stored sessions referencing it resolve.
func buildStore(c config.Config) (*redisrepo.Repo, *redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     c.GetRedisAddr(),
		Password: c.GetRedisPassword(),
		DB:       c.GetRedisDB(),
	})

	clientRepo := fakeclientrepo.NewFakeClientRepo()
	clientRepo.Upsert(&clients.Client{
		ID:           c.GetBootstrapClientID(),
		Type:         clients.ClientTypeConfidential,
		RedirectURIs: []string{c.GetBootstrapRedirectURI()},
	})

	reconstructor, err := identity.NewReconstructor(identity.DefaultChain(), fakeaccountrepo.NewFakeAccountRepo())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create identity reconstructor: %w", err)
	}
	coercer, err := sessions.NewCoercer(reconstructor)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create attribute coercer: %w", err)
	}
	codec, err := sessions.NewCodec(clientRepo, coercer)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session codec: %w", err)
	}

	repo, err := redisrepo.New(client, codec,
		redisrepo.WithKeyPrefix(c.GetSessionKeyPrefix()),
		redisrepo.WithIndexPrefix(c.GetIndexKeyPrefix()),
		redisrepo.WithDefaultTTL(c.GetDefaultSessionTTL()),
		redisrepo.WithStateTTL(c.GetStateIndexTTL()),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session repository: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := repo.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return repo, client, nil
}

func healthHandler(repo *redisrepo.Repo) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := repo.Ping(r.Context()); err != nil {
			log.Warn().Err(err).Msg("health check failed")
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func listenAndServe(server *http.Server) {
	log.Info().Str("addr", server.Addr).Msg("sessiond listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("server.ListenAndServe")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown %w", err)
	}
	return nil
}

func displayAppname(appName string) {
	figure.NewFigure(appName, "", true).Print()
}
