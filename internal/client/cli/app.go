package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/feltkeeper/feltkeeper/internal/client/config"
	"github.com/feltkeeper/feltkeeper/internal/client/gateway"
	"github.com/feltkeeper/feltkeeper/internal/client/projections"
	"github.com/feltkeeper/feltkeeper/internal/client/services"
	"github.com/feltkeeper/feltkeeper/internal/client/store"
	syncengine "github.com/feltkeeper/feltkeeper/internal/client/sync"
	"github.com/feltkeeper/feltkeeper/internal/logging"
)

// App bundles the wired components a command needs. Construct with newApp and
// release with Close.
type App struct {
	Cfg     *config.Config
	Store   *store.Store
	Proj    *projections.Projections
	Engine  *syncengine.Engine
	Tracker services.TrackerService
	Log     logging.Logger
}

func newApp(ctx context.Context, opts *RootOptions) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	log := logging.NewDefault(level)

	st, err := store.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	proj := projections.New()
	tokens := fileToken(cfg.TokenPath)
	gw := gateway.NewHTTPGateway(cfg.APIBaseURL, tokens,
		&http.Client{Timeout: cfg.RequestTimeout})

	tracker := services.NewTrackerService(st.DB, proj, currentUserID(tokens))
	uploader := services.NewAttachmentService(st.DB, proj, gw, log)

	engine := syncengine.NewEngine(gw, st.Records, st.Outbox, st.Cursor, proj, log,
		syncengine.WithBatchSize(cfg.PushBatchSize),
		syncengine.WithUploader(uploader))

	return &App{
		Cfg:     cfg,
		Store:   st,
		Proj:    proj,
		Engine:  engine,
		Tracker: tracker,
		Log:     log,
	}, nil
}

func (a *App) Close() {
	_ = a.Store.Close()
}

// fileToken reads the bearer token from disk on every request, so a token
// refreshed by a login in another process is picked up without restart. A
// missing file means "not logged in" and yields an empty token.
type fileToken string

func (p fileToken) Token() (string, error) {
	b, err := os.ReadFile(string(p))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// currentUserID extracts the subject claim from the stored token. Falls back
// to "local" when not logged in, so offline-only use still stamps an owner.
func currentUserID(tokens gateway.TokenSource) string {
	tok, err := tokens.Token()
	if err != nil || tok == "" {
		return "local"
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		return "local"
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "local"
	}
	return sub
}
