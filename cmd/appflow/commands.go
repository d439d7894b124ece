package main

import (
	"context"
	"strings"

	"github.com/dukex/appflow/pkg/models"
	"github.com/dukex/appflow/pkg/upload"
	"github.com/dukex/appflow/pkg/workflow"
	"github.com/urfave/cli/v3"
)

func listApplications(ctx context.Context, command *cli.Command) error {
	s := newSession(command)

	applications, err := s.client.ListApplications(ctx)
	if err != nil {
		return err
	}

	s.print(s.renderer.Applications(applications))

	return nil
}

func createApplication(ctx context.Context, command *cli.Command) error {
	serviceCode, err := arg(command, 0, "service-code")
	if err != nil {
		return err
	}

	applicant := strings.TrimSpace(strings.Join(command.Args().Tail(), " "))

	s := newSession(command)

	application, err := s.client.CreateApplication(ctx, models.CreateApplicationRequest{
		ServiceCode:   serviceCode,
		ApplicantName: applicant,
	})
	if err != nil {
		return err
	}

	s.print("Created application " + application.ID)
	s.print(s.renderer.Applications([]*models.Application{application}))

	return nil
}

func showDocuments(ctx context.Context, command *cli.Command) error {
	applicationID, err := arg(command, 0, "application-id")
	if err != nil {
		return err
	}

	s := newSession(command)

	tracker := s.tracker(applicationID, nil)
	if err := tracker.Refresh(ctx); err != nil {
		return failure(tracker.State().Error, err)
	}

	s.print(s.renderer.Documents(tracker.State()))

	return nil
}

func uploadDocument(ctx context.Context, command *cli.Command) error {
	applicationID, err := arg(command, 0, "application-id")
	if err != nil {
		return err
	}

	ref, err := arg(command, 1, "document-id")
	if err != nil {
		return err
	}

	path, err := arg(command, 2, "path")
	if err != nil {
		return err
	}

	s := newSession(command)

	tracker := s.tracker(applicationID, nil)
	if err := tracker.Refresh(ctx); err != nil {
		return failure(tracker.State().Error, err)
	}

	documentID, err := resolveDocument(tracker.State(), ref)
	if err != nil {
		return err
	}

	file, closer, err := upload.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	if err := tracker.Upload(ctx, documentID, file); err != nil {
		return failure(tracker.State().Error, err)
	}

	s.print(s.renderer.Documents(tracker.State()))

	return nil
}

func verifyDocument(ctx context.Context, command *cli.Command) error {
	applicationID, err := arg(command, 0, "application-id")
	if err != nil {
		return err
	}

	ref, err := arg(command, 1, "document-id")
	if err != nil {
		return err
	}

	s := newSession(command)

	tracker := s.tracker(applicationID, nil)
	if err := tracker.Refresh(ctx); err != nil {
		return failure(tracker.State().Error, err)
	}

	documentID, err := resolveDocument(tracker.State(), ref)
	if err != nil {
		return err
	}

	reason := command.String("reason")
	accept := !command.Bool("reject") && reason == ""

	if err := tracker.Verify(ctx, documentID, accept, reason); err != nil {
		return failure(tracker.State().Error, err)
	}

	s.print(s.renderer.Documents(tracker.State()))

	return nil
}

func showWorkflow(ctx context.Context, command *cli.Command) error {
	applicationID, err := arg(command, 0, "application-id")
	if err != nil {
		return err
	}

	s := newSession(command)

	runner := s.runner(applicationID, nil)
	if err := runner.Refresh(ctx); err != nil {
		return failure(runner.State().Error, err)
	}

	s.print(s.renderer.Workflow(runner.State()))

	return nil
}

func startWorkflow(ctx context.Context, command *cli.Command) error {
	applicationID, err := arg(command, 0, "application-id")
	if err != nil {
		return err
	}

	s := newSession(command)

	runner := s.runner(applicationID, nil)
	if err := runner.Refresh(ctx); err != nil {
		return failure(runner.State().Error, err)
	}

	if _, err := runner.Start(ctx); err != nil {
		return failure(runner.State().StartError, err)
	}

	s.print(s.renderer.Workflow(runner.State()))

	return nil
}

// workflowAction builds the command action that submits the workflow action
// made from the command's flags.
func workflowAction(build func(*cli.Command) workflow.Action) cli.ActionFunc {
	return func(ctx context.Context, command *cli.Command) error {
		applicationID, err := arg(command, 0, "application-id")
		if err != nil {
			return err
		}

		s := newSession(command)

		runner := s.runner(applicationID, nil)
		if err := runner.Refresh(ctx); err != nil {
			return failure(runner.State().Error, err)
		}

		if _, err := runner.Submit(ctx, build(command)); err != nil {
			return failure(runner.State().Error, err)
		}

		s.print(s.renderer.Workflow(runner.State()))

		return nil
	}
}
