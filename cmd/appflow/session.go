package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/dukex/appflow/pkg/apiclient"
	"github.com/dukex/appflow/pkg/console"
	"github.com/dukex/appflow/pkg/documents"
	"github.com/dukex/appflow/pkg/eventbus"
	"github.com/dukex/appflow/pkg/log"
	"github.com/dukex/appflow/pkg/models"
	"github.com/dukex/appflow/pkg/upload"
	"github.com/dukex/appflow/pkg/workflow"
	"github.com/urfave/cli/v3"
)

var (
	errMissingArgument = errors.New("missing argument")
	errUnknownDocument = errors.New("unknown document")
)

// session holds what every command needs to talk to the API and print.
type session struct {
	client   *apiclient.Client
	renderer *console.Renderer
	perms    models.Permissions
	store    upload.FileStore
	out      io.Writer
	logger   *slog.Logger
}

func newSession(command *cli.Command) *session {
	logger := log.WithModule("appflow")

	styles := console.DefaultStyles()
	if command.Bool("plain") {
		styles = console.PlainStyles()
	}

	return &session{
		client: apiclient.New(command.String("api-url"),
			apiclient.WithToken(command.String("token")),
			apiclient.WithActor(command.String("actor")),
			apiclient.WithLogger(logger)),
		renderer: console.NewRenderer(styles),
		perms: models.Permissions{
			CanUpload: command.Bool("can-upload"),
			CanVerify: command.Bool("can-verify"),
			CanManage: command.Bool("can-manage"),
		},
		store:  upload.NewLocalStore(command.String("upload-dir"), command.String("upload-base-url")),
		out:    command.Root().Writer,
		logger: logger,
	}
}

func (s *session) tracker(applicationID string, publisher eventbus.EventPublisher) *documents.Tracker {
	return documents.NewTracker(applicationID, s.perms, s.client, s.store, publisher, s.logger)
}

func (s *session) runner(applicationID string, publisher eventbus.EventPublisher) *workflow.Runner {
	return workflow.NewRunner(applicationID, s.perms, s.client, publisher, s.logger)
}

func (s *session) print(text string) {
	_, _ = fmt.Fprintln(s.out, text)
}

// arg returns the i-th positional argument.
func arg(command *cli.Command, i int, name string) (string, error) {
	value := strings.TrimSpace(command.Args().Get(i))
	if value == "" {
		return "", fmt.Errorf("%w: %s", errMissingArgument, name)
	}

	return value, nil
}

// resolveDocument accepts a document id or its position in the checklist.
func resolveDocument(state documents.State, ref string) (string, error) {
	if doc := state.Document(ref); doc != nil {
		return doc.ID, nil
	}

	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(state.Documents) {
		return state.Documents[n-1].ID, nil
	}

	return "", fmt.Errorf("%w: %s", errUnknownDocument, ref)
}

// failure reports a refused API call with the message the panel shows for
// it. Any other error, such as a local validation failure, is returned as is.
func failure(shown string, err error) error {
	var (
		business *apiclient.BusinessError
		request  *apiclient.RequestError
	)

	if shown != "" && (errors.As(err, &business) || errors.As(err, &request)) {
		return errors.New(shown)
	}

	return err
}
