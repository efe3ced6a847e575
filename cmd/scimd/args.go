package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/platformed/scimcore/rabbitmq"
	"github.com/platformed/scimcore/schemaload"
)

// scimArgs names the JSON files that define the served schemas, resource
// types, and service provider config. Unlike the teacher's args.Scim (which
// hardcodes a User and a Group resource type flag each), resourceTypePaths is
// a repeatable flag so an operator can mount an arbitrary set of resource
// types without this binary knowing their names ahead of time.
type scimArgs struct {
	schemasDirectory          string
	resourceTypePaths         cli.StringSlice
	serviceProviderConfigPath string
}

func (a *scimArgs) config() schemaload.Config {
	return schemaload.Config{
		SchemasDirectory:          a.schemasDirectory,
		ResourceTypePaths:         a.resourceTypePaths.Value(),
		ServiceProviderConfigPath: a.serviceProviderConfigPath,
	}
}

func (a *scimArgs) flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "schemas-dir",
			Usage:       "Absolute path to the directory containing all schema JSON definitions",
			EnvVars:     []string{"SCHEMAS_DIR"},
			Required:    true,
			Destination: &a.schemasDirectory,
		},
		&cli.StringSliceFlag{
			Name:        "resource-type",
			Usage:       "Absolute file path to a resource type JSON definition; repeat for each resource type served",
			EnvVars:     []string{"RESOURCE_TYPES"},
			Required:    true,
			Destination: &a.resourceTypePaths,
		},
		&cli.StringFlag{
			Name:        "service-provider-config",
			Usage:       "Absolute path to the service provider config JSON definition",
			EnvVars:     []string{"SERVICE_PROVIDER_CONFIG"},
			Required:    true,
			Destination: &a.serviceProviderConfigPath,
		},
	}
}

// storeArgs selects and configures the persistence backend.
type storeArgs struct {
	useMemory   bool
	mongoURI    string
	mongoDBName string
}

func (a *storeArgs) flags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:        "memory",
			Usage:       "Use the in-memory store instead of MongoDB. Intended for testing and demos, not production",
			EnvVars:     []string{"MEMORY"},
			Destination: &a.useMemory,
		},
		&cli.StringFlag{
			Name:        "mongo-uri",
			Usage:       "MongoDB connection URI",
			EnvVars:     []string{"MONGO_URI"},
			Value:       "mongodb://localhost:27017",
			Destination: &a.mongoURI,
		},
		&cli.StringFlag{
			Name:        "mongo-database",
			Usage:       "MongoDB database name",
			EnvVars:     []string{"MONGO_DATABASE"},
			Value:       "scim",
			Destination: &a.mongoDBName,
		},
	}
}

// loggingArgs mirrors the teacher's args.Logging.
type loggingArgs struct {
	level string
}

func (a *loggingArgs) logger() *zerolog.Logger {
	level, err := zerolog.ParseLevel(a.level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	l := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	return &l
}

func (a *loggingArgs) flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Logger output level: debug, info, warn, error, or fatal",
			EnvVars:     []string{"LOG_LEVEL"},
			Value:       "info",
			Destination: &a.level,
		},
	}
}

// arguments collects every flag group the scimd command accepts, the way the
// teacher's arguments struct embeds args.Scim/args.MemoryDB/args.MongoDB/
// args.RabbitMQ/args.Logging.
type arguments struct {
	scim    scimArgs
	store   storeArgs
	rabbit  rabbitmq.Args
	logging loggingArgs

	httpPort int
	basePath string
}

func (a *arguments) flags() []cli.Flag {
	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "port",
			Aliases:     []string{"p"},
			Usage:       "HTTP port that the server listens on",
			EnvVars:     []string{"HTTP_PORT"},
			Value:       8080,
			Destination: &a.httpPort,
		},
		&cli.StringFlag{
			Name:        "base-path",
			Usage:       "Path prefix under which the SCIM API is served, used to build absolute meta.location URLs",
			EnvVars:     []string{"BASE_PATH"},
			Destination: &a.basePath,
		},
	}
	flags = append(flags, a.scim.flags()...)
	flags = append(flags, a.store.flags()...)
	flags = append(flags, a.rabbit.Flags()...)
	flags = append(flags, a.logging.flags()...)
	return flags
}
