package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/browser"
	"golang.org/x/sync/errgroup"

	"github.com/sumire/bebop/internal/client"
	"github.com/sumire/bebop/internal/config"
	"github.com/sumire/bebop/internal/domain"
	"github.com/sumire/bebop/internal/handler"
	"github.com/sumire/bebop/internal/repository"
	"github.com/sumire/bebop/internal/service"
)

const usage = `usage: bebop <command> [args]

commands:
  serve              run the session agent (default)
  whoami             reconcile with the forum and print the session
  login <provider>   open the OAuth popup and complete it with the pasted result
  complete <result>  complete a sign-in with a "success:<token>" or "error:<reason>" value
  logout             forget the stored token
  token              describe the stored token
  head               fetch and print the chain head block
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("bebop", flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprint(fs.Output(), usage) }
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	setupLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	command := "serve"
	rest := fs.Args()
	if len(rest) > 0 {
		command, rest = rest[0], rest[1:]
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.db.Close()

	switch command {
	case "serve":
		return a.serve(ctx)
	case "whoami":
		return printJSON(a.auth.CheckAuth(ctx))
	case "login":
		if len(rest) != 1 {
			return fmt.Errorf("login needs a provider")
		}
		return a.login(ctx, rest[0])
	case "complete":
		if len(rest) != 1 {
			return fmt.Errorf("complete needs a result value")
		}
		return a.complete(ctx, rest[0])
	case "logout":
		a.auth.SignOut(ctx)
		return printJSON(a.auth.Session())
	case "token":
		info, err := a.auth.TokenInfo(ctx)
		if err != nil {
			return err
		}
		return printJSON(info)
	case "head":
		if err := a.site.LoadConfig(ctx); err != nil {
			return fmt.Errorf("load forum config: %w", err)
		}
		head, err := a.site.RefreshHead(ctx)
		if err != nil {
			return fmt.Errorf("refresh head: %w", err)
		}
		return printJSON(head)
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

type app struct {
	stdin  *bufio.Reader
	cfg    config.Config
	db     *sqlx.DB
	api    *client.Client
	tokens *repository.TokenRepository
	site   *service.SiteService
	auth   *service.AuthController
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	db, err := repository.Open(ctx, cfg.StoreDriver, cfg.StoreDSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	slog.Debug("store opened", "driver", cfg.StoreDriver)

	httpClient := &http.Client{Timeout: 30 * time.Second}
	api, err := client.New(cfg.APIURL, httpClient)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	site := service.NewSiteService(api, client.NewExplorer(cfg.ExplorerURL, httpClient), repository.NewCacheRepository(db))
	if err := site.Init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	a := &app{
		stdin:  bufio.NewReader(os.Stdin),
		cfg:    cfg,
		db:     db,
		api:    api,
		tokens: repository.NewTokenRepository(db),
		site:   site,
	}
	a.useOnboarder(service.NewPromptOnboarder(api, promptName(a.stdin, os.Stderr)))
	return a, nil
}

func (a *app) useOnboarder(o service.Onboarder) {
	var opener service.Opener
	if a.cfg.OpenBrowser {
		opener = browserOpener{}
	}
	a.auth = service.NewAuthController(a.tokens, a.api, service.NewSessionReconciler(a.api), o, opener)
}

func (a *app) serve(ctx context.Context) error {
	onboarding := service.NewPendingOnboarder(a.api)
	a.useOnboarder(onboarding)

	g, ctx := errgroup.WithContext(ctx)

	sessions := handler.NewSessionHandler(ctx, a.auth, onboarding)
	e := handler.NewRouter(sessions, handler.NewSiteHandler(a.site))

	srv := &http.Server{
		Addr:         a.cfg.ListenAddr,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g.Go(func() error {
		if err := a.site.LoadConfig(ctx); err != nil {
			slog.Error("load forum config", "error", err)
			return nil
		}
		if _, err := a.site.RefreshHead(ctx); err != nil {
			slog.Error("refresh head block", "error", err)
		}
		a.site.PollHead(ctx, a.cfg.HeadInterval)
		return nil
	})

	sessions.Reconcile()

	g.Go(func() error {
		slog.Info("session agent starting", "addr", a.cfg.ListenAddr, "api", a.cfg.APIURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		sessions.Wait()
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("session agent stopped gracefully")
	return nil
}

func (a *app) login(ctx context.Context, provider string) error {
	target, err := a.auth.SignIn(provider)
	if err != nil {
		slog.Warn("could not open browser", "error", err)
	}
	if target == "" {
		return err
	}
	fmt.Fprintf(os.Stderr, "Sign in at %s\nthen paste the bebop_oauth_result value: ", target)

	line, err := a.stdin.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read result: %w", err)
	}
	return a.complete(ctx, strings.TrimSpace(line))
}

func (a *app) complete(ctx context.Context, result string) error {
	header := service.OAuthResultCookie + "=" + result
	outcome := a.auth.CompleteOAuth(ctx, header)
	if outcome.Kind != domain.OAuthSuccess {
		return fmt.Errorf("sign in failed: %s", outcome.Reason)
	}
	return printJSON(a.auth.Session())
}

type browserOpener struct{}

func init() {
	// Keep stdout for command output.
	browser.Stdout = os.Stderr
}

func (browserOpener) Open(target string) error {
	return browser.OpenURL(target)
}

func promptName(reader *bufio.Reader, out io.Writer) service.PromptFunc {
	return func(ctx context.Context, userID domain.UserID, initial string) (string, bool, error) {
		fmt.Fprintf(out, "User %s has no display name yet. Choose one (empty to sign out) [%s]: ", userID, initial)
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", false, err
		}
		name := strings.TrimSpace(line)
		if name == "" {
			name = initial
		}
		return name, name != "", nil
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func setupLogger(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}
