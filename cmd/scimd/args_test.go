package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/urfave/cli/v2"
)

// These tests exercise flag-to-struct wiring only. Unlike the teacher's
// cmd/api/cmd_test.go, nothing here spins up a live MongoDB or RabbitMQ
// broker (see DESIGN.md's dropped ory/dockertest entry); run/mountManagers'
// I/O-bound wiring is left to manual verification and to httpapi/memstore/
// mongostore's own test suites, which already cover the logic it calls.

func TestScimArgs_ConfigThreadsResourceTypePaths(t *testing.T) {
	a := &scimArgs{}
	app := &cli.App{
		Flags: a.flags(),
		Action: func(*cli.Context) error { return nil },
	}
	err := app.Run([]string{
		"scimd",
		"--schemas-dir", "/schemas",
		"--resource-type", "/rt/user.json",
		"--resource-type", "/rt/group.json",
		"--service-provider-config", "/spc.json",
	})
	assert.NoError(t, err)

	cfg := a.config()
	assert.Equal(t, "/schemas", cfg.SchemasDirectory)
	assert.Equal(t, []string{"/rt/user.json", "/rt/group.json"}, cfg.ResourceTypePaths)
	assert.Equal(t, "/spc.json", cfg.ServiceProviderConfigPath)
}

func TestLoggingArgs_LoggerParsesLevel(t *testing.T) {
	a := &loggingArgs{level: "debug"}
	log := a.logger()
	assert.Equal(t, "debug", log.GetLevel().String())
}

func TestLoggingArgs_LoggerDefaultsOnBadLevel(t *testing.T) {
	a := &loggingArgs{level: "not-a-level"}
	log := a.logger()
	assert.Equal(t, "info", log.GetLevel().String())
}

func TestStoreArgs_MemoryFlagSetsUseMemory(t *testing.T) {
	a := &storeArgs{}
	app := &cli.App{
		Flags:  a.flags(),
		Action: func(*cli.Context) error { return nil },
	}
	err := app.Run([]string{"scimd", "--memory"})
	assert.NoError(t, err)
	assert.True(t, a.useMemory)
}
