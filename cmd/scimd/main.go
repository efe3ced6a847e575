// Command scimd serves the SCIM v2 HTTP API described by a set of schema,
// resource-type, and service-provider-config JSON files, backed by either the
// in-memory store or MongoDB.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/urfave/cli/v2"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/platformed/scimcore/httpapi"
	"github.com/platformed/scimcore/manager"
	"github.com/platformed/scimcore/memstore"
	"github.com/platformed/scimcore/mongostore"
	"github.com/platformed/scimcore/rabbitmq"
	"github.com/platformed/scimcore/registry"
	"github.com/platformed/scimcore/schemaload"
)

func main() {
	args := new(arguments)

	app := &cli.App{
		Name:  "scimd",
		Usage: "Serve a SCIM v2 HTTP API",
		Flags: args.flags(),
		Action: func(_ *cli.Context) error {
			return run(context.Background(), args)
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args *arguments) error {
	log := args.logging.logger()

	reg, err := schemaload.Load(ctx, args.scim.config())
	if err != nil {
		return fmt.Errorf("loading schemas: %w", err)
	}

	var notifier *rabbitmq.Notifier
	if args.rabbit.Enabled() {
		conn, err := args.rabbit.Connect(ctx)
		if err != nil {
			return fmt.Errorf("connecting to RabbitMQ: %w", err)
		}
		notifier, err = rabbitmq.NewNotifier(conn, "scim.resource.events")
		if err != nil {
			return fmt.Errorf("declaring RabbitMQ queue: %w", err)
		}
		defer notifier.Close()
	}

	var mongoClient *mongo.Client
	if !args.store.useMemory {
		mongoClient, err = mongostore.Connect(ctx, args.store.mongoURI)
		if err != nil {
			return fmt.Errorf("connecting to MongoDB: %w", err)
		}
		defer func() { _ = mongoClient.Disconnect(ctx) }()
	}

	builder := httpapi.NewBuilder(reg, log)
	mountManagers(ctx, builder, reg, args, mongoClient, notifier)

	dispatcher, err := builder.Build()
	if err != nil {
		return fmt.Errorf("building dispatcher: %w", err)
	}

	handler := httpapi.Router(dispatcher, args.basePath)

	log.Info().Int("port", args.httpPort).Msg("listening for incoming requests")
	return http.ListenAndServe(fmt.Sprintf(":%d", args.httpPort), handler)
}

// mountManagers builds one manager.ResourceManager per registered resource
// type, backed by whichever store args.store selects, and registers it with
// builder. This is what turns the dynamic endpoint-mounting in
// httpapi.Router into a dynamic backend set: a resource type present only in
// the loaded JSON files gets a working store with no further code change.
func mountManagers(ctx context.Context, builder *httpapi.Builder, reg *registry.Registry, args *arguments, mongoClient *mongo.Client, notifier *rabbitmq.Notifier) {
	for _, rt := range reg.ResourceTypes() {
		schemas := reg.SchemasForResourceType(rt)

		var mgr manager.ResourceManager
		if args.store.useMemory {
			mgr = memstore.New(rt, schemas, 50)
		} else {
			coll := mongoClient.Database(args.store.mongoDBName).Collection(rt.Name)
			mgr = mongostore.New(ctx, coll, rt, schemas, 50)
		}

		if notifier != nil {
			mgr = rabbitmq.NewNotifyingManager(mgr, notifier)
		}

		builder.AddManager(mgr)
	}
}
