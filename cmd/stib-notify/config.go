// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package main

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/darwinstop/stib-notify/internal/secrets"
	"github.com/goschtalt/goschtalt"
	_ "github.com/goschtalt/goschtalt/pkg/typical"
	_ "github.com/goschtalt/properties-decoder"
	_ "github.com/goschtalt/yaml-decoder"
	_ "github.com/goschtalt/yaml-encoder"
	"github.com/xmidt-org/arrange/arrangehttp"
	"github.com/xmidt-org/sallust"
	"gopkg.in/dealancer/validate.v2"
)

//go:embed default-config.yaml
var defaultConfigFile []byte

// Config is the configuration for stib-notify.
type Config struct {
	Logger      sallust.Config
	Transit     Transit
	Credentials Credentials
	Messenger   Messenger
	Poll        Poll
	Schedule    Schedule
	Server      arrangehttp.ServerConfig
	Status      Status
	Secrets     []secrets.Source
}

// Transit describes the transit operator's open data API.
type Transit struct {
	// URL is the base of the token and passing time endpoints.
	URL string `validate:"empty=false"`
	// ConsumerKey and ConsumerSecret are the client credentials used to
	// obtain an access token.
	ConsumerKey    string `validate:"empty=false"`
	ConsumerSecret string `validate:"empty=false"`
	// Language picks the destination name when several are given.
	Language string
	// HTTPClient is the configuration for the HTTP client.
	HTTPClient arrangehttp.ClientConfig
}

type Credentials struct {
	// AssumedLifetime is used when the token endpoint does not say how long
	// a token lives.  Zero fetches a new token for every call.
	AssumedLifetime time.Duration `validate:"gte=0"`
}

// Messenger describes the messaging platform.
type Messenger struct {
	// URL is the send API endpoint.
	URL string `validate:"empty=false"`
	// ProfileToken authenticates outbound messages.
	ProfileToken string `validate:"empty=false"`
	// VerifyToken is the secret used in the webhook handshake.  It also
	// guards the log level route.
	VerifyToken string `validate:"empty=false"`
	// ReplyTimeout bounds the replies sent from the webhook.
	ReplyTimeout time.Duration
	// HTTPClient is the configuration for the HTTP client.
	HTTPClient arrangehttp.ClientConfig
}

// Poll describes what is watched and who is told.
type Poll struct {
	StopID      string `validate:"empty=false"`
	RecipientID string `validate:"empty=false"`
	// Threshold is the number of minutes at or below which an arrival is
	// announced as imminent.
	Threshold int `validate:"gte=0"`
	// Delay is the pause between two checks.
	Delay time.Duration `validate:"gte=0"`
	// RunFor is how long a run started from the chat lasts.
	RunFor time.Duration `validate:"gte=0"`
	// CallTimeout bounds each call to the transit API and the platform.
	CallTimeout time.Duration `validate:"gte=0"`
	// Announce also sends the next passages when they are not imminent.
	Announce bool
}

type Schedule struct {
	// Cron is a cron expression such as "30 7 * * 1-5".  Empty disables it.
	Cron string
	// Location is the time zone name the expression is read in.
	Location string
	// RunFor is how long scheduled runs last.  Zero uses Poll.RunFor.
	RunFor time.Duration `validate:"gte=0"`
}

// Status lists the stops shown on the status page.
type Status struct {
	Stops []string
}

// Collect and process the configuration files and env vars and
// produce a configuration object.
func provideConfig(cli *CLI) (*goschtalt.Config, error) {
	gs, err := goschtalt.New(
		goschtalt.StdCfgLayout(applicationName, cli.Files...),
		goschtalt.ConfigIs("two_words"),
		goschtalt.ExpandEnv(),
		goschtalt.DefaultUnmarshalOptions(
			goschtalt.WithValidator(
				goschtalt.ValidatorFunc(validate.Validate),
			),
		),
		// Seed the program with the default, built-in configuration
		goschtalt.AddBuffer("!built-in.yaml", defaultConfigFile, goschtalt.AsDefault()),
	)
	if err != nil {
		return nil, err
	}

	// Secret files are listed in the configuration itself, so they can only
	// be read once the rest of it is known.
	if err = secrets.Apply(gs, "secrets", false); err != nil {
		return nil, err
	}

	if cli.Show {
		// Showing the configuration must work even when it is broken.
		return gs, nil
	}

	var tmp Config
	err = gs.Unmarshal(goschtalt.Root, &tmp)
	if err == nil {
		err = unexpanded(tmp)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "There is a critical error in the configuration.")
		fmt.Fprintln(os.Stderr, "Run with -s/--show to see the configuration.")
		return nil, err
	}

	return gs, nil
}

var errUnexpanded = errors.New("no value for variable")

// unexpanded reports the secrets still holding a ${NAME} placeholder.
func unexpanded(cfg Config) error {
	fields := map[string]string{
		"transit.consumer_key":    cfg.Transit.ConsumerKey,
		"transit.consumer_secret": cfg.Transit.ConsumerSecret,
		"messenger.profile_token": cfg.Messenger.ProfileToken,
		"messenger.verify_token":  cfg.Messenger.VerifyToken,
		"poll.stop_id":            cfg.Poll.StopID,
		"poll.recipient_id":       cfg.Poll.RecipientID,
	}

	var errs []error
	for name, val := range fields {
		if strings.Contains(val, "${") {
			errs = append(errs, fmt.Errorf("%w: %s is %s", errUnexpanded, name, val))
		}
	}
	return errors.Join(errs...)
}
