package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"

	"github.com/Tanveersultana125/co-teacher/authstore"
	"github.com/Tanveersultana125/co-teacher/credentials"
	"github.com/Tanveersultana125/co-teacher/credentials/kvstore/sqlitestore"
	"github.com/Tanveersultana125/co-teacher/exchange"
	"github.com/Tanveersultana125/co-teacher/internal/config"
	"github.com/Tanveersultana125/co-teacher/internal/logging"
	"github.com/Tanveersultana125/co-teacher/internal/utils"
	"github.com/Tanveersultana125/co-teacher/provider"
	"github.com/Tanveersultana125/co-teacher/provider/oidcprovider"
	"github.com/Tanveersultana125/co-teacher/session"
	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	once := flag.Bool("once", false, "exit as soon as the session is resolved")
	logout := flag.Bool("logout", false, "log out and clear the persisted credential, then exit")
	flag.Parse()

	if err := run(*configPath, *once, *logout); err != nil {
		log.Fatal().Err(err).Msg("Dashboard session stopped")
	}
}

func run(configPath string, once, logout bool) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logging.Install(logging.New(c.GetEnv(), c.GetLogLevel(), os.Stderr))
	displayAppname(c.GetAppName())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	exchanger, err := exchange.NewClientFromConfig(c)
	if err != nil {
		return err
	}

	reconciler, err := session.New(session.Deps{
		Credentials: credentials.NewVault(store),
		Provider:    newProvider(ctx, c),
		Exchanger:   exchanger,
		AuthStore:   authstore.New(),
	},
		session.WithStartupTimeout(c.GetStartupTimeout()),
		session.WithExchangeTimeout(c.GetExchangeTimeout()),
		session.WithObserver(logSession),
	)
	if err != nil {
		return fmt.Errorf("[run] create session reconciler: %w", err)
	}
	if err := reconciler.Start(ctx); err != nil {
		return fmt.Errorf("[run] start session reconciler: %w", err)
	}
	defer reconciler.Close()

	s, err := reconciler.WaitResolved(ctx)
	if err != nil {
		return nil // interrupted before resolution
	}
	report(s)

	if logout {
		reconciler.Logout(ctx)
		log.Info().Msg("Logged out")
		return nil
	}
	if once {
		return nil
	}

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	return nil
}

func openStore(c config.Config) (*sqlitestore.Store, error) {
	path := c.GetCredentialStorePath()
	if path == "" {
		if err := os.MkdirAll(c.GetDataFolder(), 0o700); err != nil {
			return nil, fmt.Errorf("[openStore] create data folder: %w", err)
		}
		path = filepath.Join(c.GetDataFolder(), "session.db")
	}
	store, err := sqlitestore.Open(path)
	if err != nil {
		return nil, fmt.Errorf("[openStore] %w", err)
	}
	return store, nil
}

// newProvider returns nil when the provider is not configured or cannot be
// reached; the reconciler then resolves from the local credential alone.
func newProvider(ctx context.Context, c config.Config) provider.Provider {
	if !c.GetProviderEnabled() {
		log.Warn().Msg("OIDC provider not configured")
		return nil
	}
	p, err := oidcprovider.Discover(ctx, c)
	if err != nil {
		log.Err(err).Str("issuer", c.GetProviderIssuer()).Msg("Failed to initialise OIDC provider")
		return nil
	}
	if refreshToken := c.GetProviderRefreshToken(); refreshToken != "" {
		go func() {
			if err := p.Restore(ctx, refreshToken); err != nil {
				log.Err(err).Msg("Failed to restore provider session")
			}
		}()
	}
	return p
}

func logSession(s session.Session) {
	log.Debug().
		Str("state", s.State.String()).
		Bool("resolving", s.Resolving).
		Str("source", string(s.Source)).
		Msg("Session changed")
}

func report(s session.Session) {
	if !s.Authenticated() {
		log.Info().Str("state", s.State.String()).Msg("No authenticated session")
		return
	}
	identity := utils.Value(s.Identity)
	log.Info().
		Str("state", s.State.String()).
		Str("user", identity.Name()).
		Str("role", string(identity.Role)).
		Bool("degraded", s.Degraded).
		Msg("Session resolved")
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
