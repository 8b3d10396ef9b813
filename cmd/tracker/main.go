// Command tracker follows a set of orders from the terminal. It signs a
// token for the given actor, refreshes progress in batches and prints a
// line per order whenever its status or progress changes.
//
//	tracker -api http://localhost:8080 -role store -subject <uuid> -ids <id>,<id>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strings"
	"sync"
	"syscall"
	"time"

	httpapi "orderflow/internal/adapters/in/http"
	"orderflow/internal/auth"
	"orderflow/internal/core/domain/model/actor"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/orderapi"
	"orderflow/internal/progresssync"

	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"
)

const tokenTTL = 12 * time.Hour

type options struct {
	api      string
	secret   string
	role     string
	subject  string
	ids      string
	interval time.Duration
	batch    int
}

func main() {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("Error loading .env file: %v", err)
	}

	var opts options
	flag.StringVar(&opts.api, "api", "http://localhost:8080", "base URL of the order service")
	flag.StringVar(&opts.secret, "secret", os.Getenv("JWT_SECRET"), "token signing secret")
	flag.StringVar(&opts.role, "role", "guest", "acting role: customer, store, driver, admin or guest")
	flag.StringVar(&opts.subject, "subject", "", "actor id, required for every role but guest")
	flag.StringVar(&opts.ids, "ids", "", "comma separated order ids to follow")
	flag.DurationVar(&opts.interval, "interval", 2*time.Second, "refresh interval")
	flag.IntVar(&opts.batch, "batch", progresssync.DefaultBatchLimit, "ids per refresh request, at most the server's PROGRESS_BATCH_LIMIT")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdout, logger); err != nil {
		log.Fatalf("tracker: %v", err)
	}
}

func run(ctx context.Context, opts options, out io.Writer, logger *slog.Logger) error {
	a, err := actorFrom(opts.role, opts.subject)
	if err != nil {
		return err
	}
	ids, err := parseIDs(opts.ids)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return errors.New("no order ids given")
	}

	clientOpts := []orderapi.Option{}
	if !a.IsGuest() {
		token, signErr := auth.SignToken(a, opts.secret, time.Now(), tokenTTL)
		if signErr != nil {
			return signErr
		}
		clientOpts = append(clientOpts, orderapi.WithToken(token))
	}
	client, err := orderapi.New(opts.api, clientOpts...)
	if err != nil {
		return err
	}

	session := progresssync.NewSession(client, logger,
		progresssync.WithSchedule(fmt.Sprintf("@every %s", opts.interval)),
		progresssync.WithBatchLimit(opts.batch))
	defer session.Close()

	printer := newPrinter(out)
	sub := session.Subscribe(printer.Update)
	defer session.Unsubscribe(sub)

	if err = session.SetVisible(ids); err != nil {
		return err
	}
	// the printer reports the failure; the schedule keeps trying
	if err = session.Poll(ctx); err != nil {
		logger.Warn("first refresh failed", "error", err)
	}

	<-ctx.Done()
	return nil
}

func actorFrom(role, subject string) (actor.Actor, error) {
	r, err := actor.ParseRole(role)
	if err != nil {
		return actor.Actor{}, err
	}
	if r == actor.Guest {
		return actor.NewGuest(), nil
	}
	id, err := kernel.UUIDFromString(subject)
	if err != nil {
		return actor.Actor{}, err
	}
	return actor.New(r, id)
}

func parseIDs(raw string) ([]kernel.UUID, error) {
	var ids []kernel.UUID
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := kernel.UUIDFromString(part)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// printer writes a line per order whose rendering changed since the last
// refresh.
type printer struct {
	mu   sync.Mutex
	out  io.Writer
	last map[string]string
}

func newPrinter(out io.Writer) *printer {
	return &printer{out: out, last: make(map[string]string)}
}

func (p *printer) Update(u progresssync.Update) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if u.Err != nil {
		fmt.Fprintf(p.out, "refresh failed: %v\n", u.Err)
		return
	}

	keys := make([]string, 0, len(u.Snapshot))
	lines := make(map[string]string, len(u.Snapshot))
	for id, progress := range u.Snapshot {
		keys = append(keys, id.String())
		lines[id.String()] = formatProgress(progress)
	}
	slices.Sort(keys)

	for _, key := range keys {
		if p.last[key] == lines[key] {
			continue
		}
		p.last[key] = lines[key]
		fmt.Fprintf(p.out, "%s %s %s\n", u.At.Format(time.TimeOnly), key, lines[key])
	}
}

func formatProgress(p httpapi.ProgressResponse) string {
	parts := []string{fmt.Sprintf("%s v%d", p.Status, p.Version), formatPhase(p.Prepare)}
	for _, phase := range []*httpapi.PhaseProgressResponse{p.Pickup, p.Deliver} {
		if phase != nil {
			parts = append(parts, formatPhase(*phase))
		}
	}
	return strings.Join(parts, " | ")
}

func formatPhase(p httpapi.PhaseProgressResponse) string {
	switch {
	case p.Completed:
		return p.Phase + " done"
	case !p.Started:
		return p.Phase + " waiting"
	case p.Overdue:
		return fmt.Sprintf("%s %d%% overdue", p.Phase, p.Percent)
	default:
		return fmt.Sprintf("%s %d%% %dm left", p.Phase, p.Percent, p.MinutesLeft)
	}
}
