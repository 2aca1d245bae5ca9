package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	_ "golang.org/x/image/webp"

	"github.com/glabrego/imgsearch-cli/internal/config"
	"github.com/glabrego/imgsearch-cli/internal/messaging"
	"github.com/glabrego/imgsearch-cli/internal/notify"
	"github.com/glabrego/imgsearch-cli/internal/probe"
	"github.com/glabrego/imgsearch-cli/internal/search"
	"github.com/glabrego/imgsearch-cli/internal/session"
	"github.com/glabrego/imgsearch-cli/internal/storage"
	"github.com/glabrego/imgsearch-cli/internal/store"
	"github.com/glabrego/imgsearch-cli/internal/tui"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "import":
			runImport(os.Args[2:])
			return
		case "search":
			runSearch(os.Args[2:])
			return
		}
	}
	runTUI(os.Args[1:])
}

func runTUI(args []string) {
	fs := flag.NewFlagSet("imgsearch", flag.ExitOnError)
	sessionFlag := fs.Int64("session", -1, "session cursor to show (default: latest stored)")
	offline := fs.Bool("offline", false, "do not connect to the background process")
	_ = fs.Parse(args)

	cfg := mustConfig()
	logger, closeLog := openLogger(cfg.LogPath)
	defer closeLog()

	repo := mustRepository(cfg)
	defer repo.Close()

	runCtx, stop := context.WithCancel(context.Background())
	defer stop()

	cursor := session.Cursor(*sessionFlag)
	fragment := session.FragmentFor(cursor)
	if *sessionFlag < 0 {
		latest, err := repo.LatestCursor(runCtx)
		switch {
		case err == nil:
			fragment = session.FragmentFor(latest)
		case errors.Is(err, storage.ErrNotFound):
			fragment = ""
		default:
			log.Fatalf("cannot load latest session: %v", err)
		}
	}
	nav := session.NewNavigator(fragment)

	options, err := config.NewOptionsStore(cfg.OptionsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not load options (%v), using defaults\n", err)
		options = config.StaticOptions(config.Options{ModalWidth: config.DefaultModalWidth})
	}
	go reloadOnHangup(runCtx, options, logger)

	bus := messaging.NewBus(16)
	defer bus.Close()
	bus.OnSend(func(req messaging.Request) {
		logger.Warn().Str("job", req.Job).Msg("no background process attached, request not delivered")
	})
	var sender messaging.Sender = bus
	incoming := bus.Incoming()
	if !*offline {
		dialCtx, dialCancel := context.WithTimeout(runCtx, 5*time.Second)
		ws, err := messaging.Dial(dialCtx, cfg.BackgroundURL, logger)
		dialCancel()
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: background process unavailable (%v), running offline\n", err)
			logger.Warn().Err(err).Msg("running offline")
		} else {
			defer ws.Close()
			go func() {
				if err := ws.Run(runCtx); err != nil {
					logger.Warn().Err(err).Msg("background connection closed")
				}
			}()
			sender = ws
			incoming = ws.Incoming()
		}
	}

	st := store.New(store.Deps{
		Results:  repo,
		Options:  options,
		Sender:   sender,
		Prober:   probe.New(&http.Client{}, cfg.ProbeTimeout),
		Location: nav,
		Logger:   logger,
	}, store.WithBatchSize(cfg.BatchSize))

	listener := notify.NewListener(st, logger)
	go func() {
		if err := listener.Run(runCtx, incoming); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("listener stopped")
		}
	}()

	program := tea.NewProgram(tui.NewModel(st), tea.WithAltScreen())
	unsubscribe := st.Subscribe(func(snap store.Snapshot) {
		program.Send(tui.SnapshotMsg(snap))
	})
	defer unsubscribe()

	if _, err := program.Run(); err != nil {
		log.Fatalf("tui error: %v", err)
	}
}

func runImport(args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	sessionFlag := fs.Int64("session", -1, "session cursor to store the result under")
	_ = fs.Parse(args)
	if *sessionFlag < 0 || fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: imgsearch import -session N result.json")
		os.Exit(2)
	}

	raw, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		log.Fatalf("read result: %v", err)
	}
	var result search.Result
	if err := json.Unmarshal(raw, &result); err != nil {
		log.Fatalf("decode result: %v", err)
	}

	cfg := mustConfig()
	repo := mustRepository(cfg)
	defer repo.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := repo.Save(ctx, session.Cursor(*sessionFlag), result); err != nil {
		log.Fatalf("store result: %v", err)
	}
	fmt.Printf("stored %d results for session %d\n", len(result.SearchResult), *sessionFlag)
}

func runSearch(args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: imgsearch search <image URL | image file>")
		os.Exit(2)
	}
	target := fs.Arg(0)

	cfg := mustConfig()
	logger, closeLog := openLogger(cfg.LogPath)
	defer closeLog()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	ws, err := messaging.Dial(ctx, cfg.BackgroundURL, logger)
	if err != nil {
		log.Fatalf("connect background: %v", err)
	}
	defer ws.Close()

	st := store.New(store.Deps{Sender: ws, Logger: logger})
	if _, statErr := os.Stat(target); statErr == nil {
		img, decodeErr := decodeImageFile(target)
		if decodeErr != nil {
			log.Fatalf("read image: %v", decodeErr)
		}
		err = st.UploadSearch(ctx, img)
	} else {
		err = st.SearchImage(ctx, target)
	}
	if err != nil {
		log.Fatalf("search: %v", err)
	}
	fmt.Println("search started")
}

func decodeImageFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}

func reloadOnHangup(ctx context.Context, options *config.OptionsStore, logger zerolog.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := options.Reload(); err != nil {
				logger.Warn().Err(err).Msg("options reload failed")
				continue
			}
			logger.Info().Msg("options reloaded")
		}
	}
}

func mustConfig() config.Config {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	return cfg
}

func mustRepository(cfg config.Config) *storage.Repository {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		log.Fatalf("storage dir error: %v", err)
	}
	repo, err := storage.NewRepository(cfg.DBPath)
	if err != nil {
		log.Fatalf("storage init error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := repo.Init(ctx); err != nil {
		log.Fatalf("storage schema error: %v", err)
	}
	if err := repo.CheckWritable(ctx); err != nil {
		log.Fatalf("storage write check failed (%v). Verify IMGSEARCH_DB_PATH is writable: %s", err, cfg.DBPath)
	}
	return repo
}

// openLogger writes JSON logs to path; the terminal belongs to the TUI.
func openLogger(path string) (zerolog.Logger, func()) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "warning: logging disabled (%v)\n", err)
		return zerolog.Nop(), func() {}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: logging disabled (%v)\n", err)
		return zerolog.Nop(), func() {}
	}
	logger := zerolog.New(f).With().Timestamp().Str("app", "imgsearch").Logger()
	return logger, func() { _ = f.Close() }
}
