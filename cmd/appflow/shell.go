package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	appcmd "github.com/dukex/appflow/pkg/cmd"
	"github.com/dukex/appflow/pkg/documents"
	"github.com/dukex/appflow/pkg/eventbus"
	"github.com/dukex/appflow/pkg/events"
	"github.com/dukex/appflow/pkg/upload"
	"github.com/dukex/appflow/pkg/workflow"
	"github.com/urfave/cli/v3"
)

const shellHelp = `Commands:
  docs                          show the document checklist
  workflow                      show the workflow steps
  upload <doc> <path>           upload a file for a document (id or number)
  accept <doc>                  accept an uploaded document
  reject-doc <doc> <reason>     reject an uploaded document
  start                         start the workflow
  advance [remarks]             complete the current step
  send-back <step> [remarks]    return to an earlier step
  reject <reason>               reject the application
  refresh                       reload documents and workflow
  dismiss                       clear error messages
  quit                          leave the shell`

var errUnknownCommand = errors.New("unknown command")

// shell is an interactive session on one application. The tracker and the
// runner publish their changes on an in-process bus; before each command the
// shell refreshes the panel the other one changed.
type shell struct {
	*session

	bus     eventbus.EventBus
	changes chan events.EventType
	tracker *documents.Tracker
	runner  *workflow.Runner
}

func runShell(ctx context.Context, command *cli.Command) error {
	applicationID, err := arg(command, 0, "application-id")
	if err != nil {
		return err
	}

	s := newSession(command)

	bus, err := appcmd.NewEventBus("memory", "appflow-console", s.logger)
	if err != nil {
		return err
	}
	defer func() { _ = bus.Close() }()

	sh := &shell{
		session: s,
		bus:     bus,
		changes: make(chan events.EventType, 16),
		tracker: s.tracker(applicationID, bus),
		runner:  s.runner(applicationID, bus),
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := sh.subscribe(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to changes: %w", err)
	}

	if err := sh.refresh(ctx); err != nil {
		return err
	}

	sh.print(sh.renderer.Documents(sh.tracker.State()))
	sh.print(sh.renderer.Workflow(sh.runner.State()))

	scanner := bufio.NewScanner(command.Root().Reader)

	for {
		_, _ = fmt.Fprint(sh.out, "> ")

		if !scanner.Scan() {
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if line == "quit" || line == "exit" {
			return nil
		}

		sh.applyChanges(ctx)

		if err := sh.exec(ctx, line); err != nil {
			sh.print(sh.renderer.Error(err.Error()))
		}
	}
}

func (sh *shell) subscribe(ctx context.Context) error {
	for _, eventType := range eventbus.AllEventTypes() {
		if !events.IsDocumentEvent(eventType) && !events.IsWorkflowEvent(eventType) {
			continue
		}

		if err := sh.bus.Handle(eventType, sh.onChange); err != nil {
			return err
		}
	}

	return sh.bus.Subscribe(ctx)
}

// onChange queues the change for the shell loop. It never fails: a full
// queue already holds a pending refresh.
func (sh *shell) onChange(_ context.Context, event any) error {
	e, ok := event.(eventbus.Event)
	if !ok {
		return nil
	}

	select {
	case sh.changes <- e.GetType():
	default:
	}

	return nil
}

// applyChanges refreshes the panel on the other side of each queued change.
func (sh *shell) applyChanges(ctx context.Context) {
	for {
		select {
		case eventType := <-sh.changes:
			sh.logger.DebugContext(ctx, "Application changed", "event_type", eventType)

			if events.IsDocumentEvent(eventType) {
				if err := sh.runner.Refresh(ctx); err != nil {
					sh.logger.WarnContext(ctx, "Failed to refresh workflow", "error", err)
				}

				continue
			}

			if err := sh.tracker.Refresh(ctx); err != nil {
				sh.logger.WarnContext(ctx, "Failed to refresh documents", "error", err)
			}
		default:
			return
		}
	}
}

func (sh *shell) refresh(ctx context.Context) error {
	if err := sh.tracker.Refresh(ctx); err != nil {
		return failure(sh.tracker.State().Error, err)
	}

	if err := sh.runner.Refresh(ctx); err != nil {
		return failure(sh.runner.State().Error, err)
	}

	return nil
}

func (sh *shell) exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	name, args := fields[0], fields[1:]

	switch name {
	case "help":
		sh.print(shellHelp)
	case "docs", "documents":
		sh.print(sh.renderer.Documents(sh.tracker.State()))
	case "workflow", "wf":
		sh.print(sh.renderer.Workflow(sh.runner.State()))
	case "refresh":
		if err := sh.refresh(ctx); err != nil {
			return err
		}

		sh.print(sh.renderer.Documents(sh.tracker.State()))
		sh.print(sh.renderer.Workflow(sh.runner.State()))
	case "dismiss":
		sh.tracker.DismissError()
		sh.runner.DismissError()
	case "upload":
		return sh.upload(ctx, args)
	case "accept":
		return sh.verify(ctx, args, true)
	case "reject-doc":
		return sh.verify(ctx, args, false)
	case "start":
		if _, err := sh.runner.Start(ctx); err != nil {
			return failure(sh.runner.State().StartError, err)
		}

		sh.print(sh.renderer.Workflow(sh.runner.State()))
	case "advance":
		return sh.submit(ctx, workflow.Advance{Remarks: strings.Join(args, " ")})
	case "send-back":
		if len(args) == 0 {
			return fmt.Errorf("%w: step", errMissingArgument)
		}

		target, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid step number %q", args[0])
		}

		return sh.submit(ctx, workflow.SendBack{Target: target, Remarks: strings.Join(args[1:], " ")})
	case "reject":
		return sh.submit(ctx, workflow.Reject{Reason: strings.Join(args, " ")})
	default:
		return fmt.Errorf("%w: %s (try help)", errUnknownCommand, name)
	}

	return nil
}

func (sh *shell) upload(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: upload <doc> <path>", errMissingArgument)
	}

	documentID, err := resolveDocument(sh.tracker.State(), args[0])
	if err != nil {
		return err
	}

	file, closer, err := upload.Open(strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	if err := sh.tracker.Upload(ctx, documentID, file); err != nil {
		return failure(sh.tracker.State().Error, err)
	}

	sh.print(sh.renderer.Documents(sh.tracker.State()))

	return nil
}

func (sh *shell) verify(ctx context.Context, args []string, accept bool) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: document", errMissingArgument)
	}

	documentID, err := resolveDocument(sh.tracker.State(), args[0])
	if err != nil {
		return err
	}

	if err := sh.tracker.Verify(ctx, documentID, accept, strings.Join(args[1:], " ")); err != nil {
		shown := sh.tracker.State().Error
		sh.tracker.CloseVerification()

		return failure(shown, err)
	}

	sh.print(sh.renderer.Documents(sh.tracker.State()))

	return nil
}

func (sh *shell) submit(ctx context.Context, action workflow.Action) error {
	if _, err := sh.runner.Submit(ctx, action); err != nil {
		shown := sh.runner.State().Error
		sh.runner.CloseAction()

		return failure(shown, err)
	}

	sh.print(sh.renderer.Workflow(sh.runner.State()))

	return nil
}
