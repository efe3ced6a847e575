// Package rabbitmq publishes resource-change events to a RabbitMQ queue. It
// generalizes the teacher's groupsync package (which only ever notified of
// group membership changes) into a feed any resource type can publish to.
package rabbitmq

import (
	"context"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/urfave/cli/v2"
)

// Args are the connection options for a RabbitMQ broker.
type Args struct {
	Username string
	Password string
	Host     string
	Port     int
	VHost    string
	Options  string
	enabled  bool
}

// Enabled reports whether the rabbit-enabled flag was set, i.e. whether the
// caller should Connect and publish resource change events at all.
func (a *Args) Enabled() bool {
	return a.enabled
}

// URL returns the AMQP connection URL built from the set options.
func (a *Args) URL() string {
	url := "amqp://"
	if a.Username != "" {
		url += a.Username
		if a.Password != "" {
			url += fmt.Sprintf(":%s", a.Password)
		}
		url += "@"
	}
	url += a.Host
	if a.Port > 0 {
		url += fmt.Sprintf(":%d", a.Port)
	}
	if a.VHost != "" && a.VHost != "/" {
		url += fmt.Sprintf("/%s", a.VHost)
	}
	if a.Options != "" {
		url += fmt.Sprintf("?%s", a.Options)
	}
	return url
}

// Connect dials the broker, retrying with exponential backoff until it
// succeeds, ctx is done, or the backoff's maximum elapsed time runs out.
func (a *Args) Connect(ctx context.Context) (*amqp.Connection, error) {
	var (
		connChan = make(chan *amqp.Connection, 1)
		errChan  = make(chan error, 1)
	)

	go func() {
		err := backoff.Retry(func() error {
			conn, err := amqp.Dial(a.URL())
			if err != nil {
				return err
			}
			connChan <- conn
			return nil
		}, backoff.NewExponentialBackOff())
		if err != nil {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case err := <-errChan:
		return nil, err
	case conn := <-connChan:
		return conn, nil
	}
}

// Flags returns the urfave/cli flags that populate Args.
func (a *Args) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "rabbit-host",
			Usage:       "Hostname of RabbitMQ",
			EnvVars:     []string{"RABBIT_HOST"},
			Value:       "localhost",
			Destination: &a.Host,
		},
		&cli.IntFlag{
			Name:        "rabbit-port",
			Usage:       "Port of RabbitMQ",
			EnvVars:     []string{"RABBIT_PORT"},
			Value:       5672,
			Destination: &a.Port,
		},
		&cli.StringFlag{
			Name:        "rabbit-username",
			Usage:       "Username for RabbitMQ",
			EnvVars:     []string{"RABBIT_USERNAME"},
			Destination: &a.Username,
		},
		&cli.StringFlag{
			Name:        "rabbit-password",
			Usage:       "Password for RabbitMQ",
			EnvVars:     []string{"RABBIT_PASSWORD"},
			Destination: &a.Password,
		},
		&cli.StringFlag{
			Name:        "rabbit-vhost",
			Usage:       "Virtual host for RabbitMQ",
			EnvVars:     []string{"RABBIT_VHOST"},
			Destination: &a.VHost,
		},
		&cli.StringFlag{
			Name:        "rabbit-options",
			Usage:       "Options for RabbitMQ",
			EnvVars:     []string{"RABBIT_OPT"},
			Destination: &a.Options,
		},
		&cli.BoolFlag{
			Name:        "rabbit-enabled",
			Usage:       "Publish resource change events to RabbitMQ",
			EnvVars:     []string{"RABBIT_ENABLED"},
			Destination: &a.enabled,
		},
	}
}
