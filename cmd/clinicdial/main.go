package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"

	"github.com/pitabwire/frame"
	"github.com/pitabwire/frame/config"

	cdconfig "github.com/clinicdial/clinicdial/config"
	"github.com/clinicdial/clinicdial/internal/runtime"
	"github.com/clinicdial/clinicdial/internal/telephony"
	"github.com/clinicdial/clinicdial/internal/tools"
	"github.com/clinicdial/clinicdial/pkg/availability"
	"github.com/clinicdial/clinicdial/pkg/calllog"
	"github.com/clinicdial/clinicdial/pkg/crm"
	"github.com/clinicdial/clinicdial/pkg/events"
	"github.com/clinicdial/clinicdial/pkg/script"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadWithOIDC[cdconfig.CallerConfig](ctx)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	eventRef := cfg.GetEventsQueueName()
	eventURL := cfg.GetEventsQueueURL()

	ctx, srv := frame.NewService(
		frame.WithConfig(&cfg),
		frame.WithName("clinicdial"),
		frame.WithDatastore(),
		frame.WithRegisterPublisher(eventRef, eventURL),
	)
	defer srv.Stop(ctx)

	pool, err := srv.WorkManager().GetPool()
	if err != nil {
		log.Fatalf("getting worker pool: %v", err)
	}

	pub := events.NewPublisher(srv.QueueManager(), "clinicdial", eventRef)
	records := calllog.NewRepository(
		srv.DatastoreManager().GetPool(ctx, "__default__pool_name__"),
	)

	crmClient := crm.NewClient(cfg.CRMBaseURL, cfg.CRMBearerToken, cfg.CRMTimeout())
	resolver := availability.NewResolver(crmClient, cfg.WebsiteName)
	router := tools.NewRouter(tools.Options{
		Resolver:  resolver,
		Leads:     crmClient,
		ClinicID:  cfg.ClinicID,
		Timeout:   cfg.ToolTimeout(),
		Publisher: pub,
	})

	provider := telephony.NewRoomServiceProvider(cfg.RoomServiceURL, cfg.RoomServiceToken)

	loader := script.NewLoader(cfg.ScriptDir)
	if _, err := loader.LoadAll(); err != nil {
		log.Printf("warning: loading scripts: %v", err)
	}
	go func() {
		if err := loader.WatchAndReload(ctx.Done()); err != nil {
			log.Printf("warning: script watcher: %v", err)
		}
	}()

	runner, err := runtime.NewRunner(runtime.Options{
		Provider:       provider,
		Scripts:        loader,
		Router:         router,
		Conversations:  runtime.LogConversations(),
		Publisher:      pub,
		Records:        records,
		Pool:           pool,
		TrunkID:        cfg.SIPOutboundTrunk,
		DefaultScript:  cfg.DefaultScript,
		TransferNumber: cfg.TransferNumber,
	})
	if err != nil {
		log.Fatalf("building runner: %v", err)
	}

	handler := runtime.NewHandler(runner, records, pool)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	// Audit trail: every terminated call is logged off the event bus,
	// including ones torn down by failure paths.
	subscriber := &events.Subscriber{Pool: pool}
	subscriber.On(events.CallTerminated, func(ctx context.Context, env events.Envelope) {
		slog.InfoContext(ctx, "call terminated",
			slog.String("session_id", env.SessionID),
			slog.String("data", string(env.Data)))
	})

	srv.Init(ctx,
		frame.WithRegisterSubscriber(eventRef+".audit", eventURL, subscriber),
		frame.WithHTTPHandler(mux),
	)

	if err := srv.Run(ctx, ""); err != nil {
		log.Fatalf("service exited: %v", err)
	}
}
