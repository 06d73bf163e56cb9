// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goschtalt/goschtalt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xmidt-org/sallust"
	"go.uber.org/zap/zapcore"
)

func Test_provideCLI(t *testing.T) {
	tests := []struct {
		description string
		args        cliArgs
		want        CLI
		exits       bool
	}{
		{
			description: "no arguments, everything works",
		}, {
			description: "dev mode",
			args:        cliArgs{"-d"},
			want:        CLI{Dev: true},
		}, {
			description: "files and show",
			args:        cliArgs{"-s", "-f", "a.yml", "-f", "b.yml"},
			want:        CLI{Show: true, Files: []string{"a.yml", "b.yml"}},
		}, {
			description: "invalid argument",
			args:        cliArgs{"-w"},
			exits:       true,
		}, {
			description: "invalid argument after a valid one",
			args:        cliArgs{"-d", "-w"},
			exits:       true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			assert := assert.New(t)

			if tc.exits {
				assert.Panics(func() {
					_, _ = provideCLIWithOpts(tc.args, true)
				})
				return
			}

			got, err := provideCLIWithOpts(tc.args, true)
			assert.NoError(err)
			want := tc.want
			assert.Equal(&want, got)
		})
	}
}

func Test_handleCLIShow(t *testing.T) {
	gs, err := goschtalt.New()
	require.NoError(t, err)
	require.NotNil(t, gs)

	tests := []struct {
		description string
		cli         *CLI
		expectEarly bool
	}{
		{
			description: "early exit",
			cli:         &CLI{Show: true},
			expectEarly: true,
		}, {
			description: "no early exit",
			cli:         &CLI{},
		},
	}
	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			var early earlyExit
			handleCLIShow(tc.cli, gs, &early)

			assert.Equal(t, tc.expectEarly, bool(early))
		})
	}
}

func unsetOnCleanup(t *testing.T, keys ...string) {
	for _, k := range keys {
		require.NoError(t, os.Unsetenv(k))
	}
	t.Cleanup(func() {
		for _, k := range keys {
			_ = os.Unsetenv(k)
		}
	})
}

func Test_loadEnv(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	dir := t.TempDir()
	file := filepath.Join(dir, "stib.env")
	require.NoError(os.WriteFile(file, []byte("STIB_NOTIFY_TEST_KEY=from-file\nSTIB_NOTIFY_TEST_SET=from-file\n"), 0600))

	unsetOnCleanup(t, "STIB_NOTIFY_TEST_KEY")
	t.Setenv("STIB_NOTIFY_TEST_SET", "already")

	require.NoError(loadEnv([]string{file}))
	assert.Equal("from-file", os.Getenv("STIB_NOTIFY_TEST_KEY"))
	assert.Equal("already", os.Getenv("STIB_NOTIFY_TEST_SET"))

	assert.Error(loadEnv([]string{filepath.Join(dir, "missing.env")}))

	// Without files, a missing ./.env is fine.
	wd, err := os.Getwd()
	require.NoError(err)
	require.NoError(os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	assert.NoError(loadEnv(nil))
}

func Test_provideConfig(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	t.Setenv("STIB_CONSUMER_KEY", "key")
	t.Setenv("STIB_CONSUMER_SECRET", "secret")
	t.Setenv("PAGE_ACCESS_TOKEN", "page")
	t.Setenv("VERIFY_TOKEN", "verify")
	t.Setenv("STOP_ID", "5021")
	t.Setenv("RECIPIENT_ID", "1234")

	dir := t.TempDir()
	file := filepath.Join(dir, "stib-notify.yml")
	require.NoError(os.WriteFile(file, []byte("poll:\n  delay: 20s\n"), 0600))

	gs, err := provideConfig(&CLI{Files: []string{file}})
	require.NoError(err)
	require.NotNil(gs)

	var cfg Config
	require.NoError(gs.Unmarshal(goschtalt.Root, &cfg))

	assert.Equal("https://opendata-api.stib-mivb.be", cfg.Transit.URL)
	assert.Equal("key", cfg.Transit.ConsumerKey)
	assert.Equal("secret", cfg.Transit.ConsumerSecret)
	assert.Equal("verify", cfg.Messenger.VerifyToken)
	assert.Equal("5021", cfg.Poll.StopID)
	assert.Equal("1234", cfg.Poll.RecipientID)
	assert.Equal(4, cfg.Poll.Threshold)
	assert.Equal(20*time.Second, cfg.Poll.Delay)
	assert.Equal(time.Hour, cfg.Poll.RunFor)
	assert.Equal(":5000", cfg.Server.Address)
}

func Test_provideConfigMissingSecret(t *testing.T) {
	unsetOnCleanup(t, "STIB_CONSUMER_KEY", "STIB_CONSUMER_SECRET",
		"PAGE_ACCESS_TOKEN", "VERIFY_TOKEN", "STOP_ID", "RECIPIENT_ID")

	dir := t.TempDir()
	file := filepath.Join(dir, "stib-notify.yml")
	require.NoError(t, os.WriteFile(file, []byte("poll:\n  delay: 20s\n"), 0600))

	gs, err := provideConfig(&CLI{Files: []string{file}})
	assert.Error(t, err)
	assert.Nil(t, gs)

	// Showing still works.
	gs, err = provideConfig(&CLI{Files: []string{file}, Show: true})
	assert.NoError(t, err)
	assert.NotNil(t, gs)
}

func Test_provideLogger(t *testing.T) {
	tests := []struct {
		description string
		in          LoggerIn
		level       zapcore.Level
	}{
		{
			description: "configured level",
			in: LoggerIn{
				CLI: &CLI{},
				Cfg: sallust.Config{Level: "warn", Encoding: "json"},
			},
			level: zapcore.WarnLevel,
		}, {
			description: "dev mode",
			in: LoggerIn{
				CLI: &CLI{Dev: true},
				Cfg: sallust.Config{Level: "warn", Encoding: "json"},
			},
			level: zapcore.DebugLevel,
		},
	}
	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			assert := assert.New(t)

			got, err := provideLogger(tc.in)
			require.NoError(t, err)
			require.NotNil(t, got.Logger)

			assert.Equal(tc.level, got.Level.Level())

			// The logger follows the shared level.
			got.Level.SetLevel(zapcore.ErrorLevel)
			assert.False(got.Logger.Core().Enabled(zapcore.WarnLevel))
		})
	}
}

func Test_provideConfigSecretFile(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	unsetOnCleanup(t, "STIB_CONSUMER_KEY", "STIB_CONSUMER_SECRET",
		"PAGE_ACCESS_TOKEN", "VERIFY_TOKEN", "STOP_ID", "RECIPIENT_ID")

	dir := t.TempDir()
	env := filepath.Join(dir, "stib.env")
	require.NoError(os.WriteFile(env, []byte(
		"STIB_CONSUMER_KEY=key\n"+
			"STIB_CONSUMER_SECRET=secret\n"+
			"PAGE_ACCESS_TOKEN=page\n"+
			"VERIFY_TOKEN=verify\n"+
			"STOP_ID=5021\n"+
			"RECIPIENT_ID=1234\n"), 0600))

	file := filepath.Join(dir, "stib-notify.yml")
	require.NoError(os.WriteFile(file, []byte("secrets:\n  - file: "+env+"\n    required: true\n"), 0600))

	gs, err := provideConfig(&CLI{Files: []string{file}})
	require.NoError(err)

	var cfg Config
	require.NoError(gs.Unmarshal(goschtalt.Root, &cfg))
	assert.Equal("secret", cfg.Transit.ConsumerSecret)
	assert.Equal("1234", cfg.Poll.RecipientID)
}

func Test_unexpanded(t *testing.T) {
	assert := assert.New(t)

	cfg := Config{
		Transit: Transit{ConsumerKey: "key", ConsumerSecret: "${STIB_CONSUMER_SECRET}"},
		Poll:    Poll{StopID: "5021", RecipientID: "${RECIPIENT_ID}"},
	}

	err := unexpanded(cfg)
	assert.ErrorIs(err, errUnexpanded)
	assert.ErrorContains(err, "transit.consumer_secret")
	assert.ErrorContains(err, "poll.recipient_id")
	assert.NotContains(err.Error(), "transit.consumer_key")

	assert.NoError(unexpanded(Config{}))
}
