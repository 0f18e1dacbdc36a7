package command

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pixil98/go-satchel/internal/console"
	"github.com/pixil98/go-satchel/internal/driver"
	"github.com/pixil98/go-satchel/internal/hotbar"
	"github.com/pixil98/go-satchel/internal/inventory"
	"github.com/pixil98/go-satchel/internal/listener"
	"github.com/pixil98/go-satchel/internal/messaging"
	"github.com/pixil98/go-satchel/internal/replication"
	"github.com/pixil98/go-satchel/internal/use"
	"github.com/pixil98/go-satchel/internal/wire"
	"github.com/pixil98/go-satchel/internal/world"
	"github.com/pixil98/go-service"
)

func BuildWorkers(config interface{}) (service.WorkerList, error) {
	cfg, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("unable to cast config")
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.logLevel()})))
	ctx := context.Background()

	catalog, err := cfg.Storage.BuildCatalog()
	if err != nil {
		return nil, fmt.Errorf("building item catalog: %w", err)
	}
	chests, nodes, err := cfg.Storage.BuildPlacements()
	if err != nil {
		return nil, fmt.Errorf("building placements: %w", err)
	}
	slog.Info("loaded item catalog", "items", catalog.Len())

	natsServer, err := cfg.Nats.buildNatsServer()
	if err != nil {
		return nil, fmt.Errorf("creating nats server: %w", err)
	}

	w := world.NewWorld(catalog, cfg.Bag.inventoryConfig())
	transport := messaging.NewNatsTransport(natsServer, w)

	dispatcherOpts := []use.DispatcherOpt{
		use.WithAuthority(cfg.IsAuthoritative()),
		use.WithDevelopment(cfg.IsDevelopment()),
	}
	if cfg.Use.WearPerHit > 0 {
		dispatcherOpts = append(dispatcherOpts, use.WithWearPerHit(cfg.Use.WearPerHit))
	}
	dispatcher := use.NewDispatcher(catalog, w, replication.NewEffectPublisher(transport), dispatcherOpts...)

	rep := replication.NewReplicator(transport, w, w,
		replication.WithAuthority(cfg.IsAuthoritative()),
		replication.WithUser(dispatcher),
		replication.WithCatalog(catalog),
	)

	// Bags are tracked before they spawn so the first snapshot goes out.
	w.OnJoin(func(_ context.Context, _ world.Participant, bag *inventory.Container, sel *hotbar.Selector) {
		rep.Track(bag)
		rep.TrackSelector(sel)
	})
	w.OnLeave(func(_ context.Context, _ world.Participant, bag inventory.ID) {
		rep.Untrack(bag)
	})

	if err := w.Load(ctx, chests, nodes); err != nil {
		return nil, fmt.Errorf("loading world: %w", err)
	}
	for _, info := range w.Containers() {
		if c, ok := w.Container(info.ID); ok {
			rep.Track(c)
		}
	}

	// The sender is the subject the server let it publish on.
	requests := messaging.NewIntake(natsServer, messaging.RequestWildcard, func(ctx context.Context, subject string, data []byte) error {
		p, err := messaging.ParticipantFromSubject(subject)
		if err != nil {
			return err
		}
		req, err := wire.ParseRequest(data)
		if err != nil {
			return err
		}
		return rep.HandleRequest(ctx, p, req)
	})
	// Only the gateway user may publish sessions.
	sessions := messaging.NewIntake(natsServer, messaging.SessionSubject, func(ctx context.Context, _ string, data []byte) error {
		return w.HandleSession(ctx, data)
	})

	var driverOpts []driver.DriverOpt
	if cfg.ResyncInterval != "" {
		d, err := time.ParseDuration(cfg.ResyncInterval)
		if err != nil {
			return nil, fmt.Errorf("parsing resync_interval: %w", err)
		}
		driverOpts = append(driverOpts, driver.WithTickLength(d))
	}
	resync := driver.NewDriver([]driver.Manager{rep}, driverOpts...)

	cm := listener.NewConnectionManager(console.NewConsole(w, catalog))
	listeners := make(service.WorkerList, len(cfg.Listeners))
	for i, l := range cfg.Listeners {
		lw, err := l.BuildListener(cm)
		if err != nil {
			return nil, fmt.Errorf("creating listener %d: %w", i, err)
		}
		listeners[fmt.Sprintf("listener-%d", i)] = lw
	}

	return service.WorkerList{
		"nats":      natsServer,
		"requests":  requests,
		"sessions":  sessions,
		"resync":    resync,
		"listeners": &listeners,
	}, nil
}
