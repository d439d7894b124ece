package main

import (
	"context"
	"os"

	"github.com/dukex/appflow/pkg/log"
	"github.com/dukex/appflow/pkg/workflow"
	"github.com/urfave/cli/v3"
)

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		log.WithModule("appflow").Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:                  "appflow",
		Usage:                 "Track the documents and workflow of service applications",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "api-url",
				Usage:   "Base URL of the application API",
				Value:   "http://localhost:9091",
				Sources: cli.EnvVars("APPFLOW_API_URL"),
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "Bearer token sent to the API",
				Sources: cli.EnvVars("APPFLOW_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "actor",
				Usage:   "Name recorded when completing workflow steps",
				Sources: cli.EnvVars("APPFLOW_ACTOR", "USER"),
			},
			&cli.BoolFlag{
				Name:    "can-upload",
				Usage:   "Allow uploading documents",
				Value:   true,
				Sources: cli.EnvVars("APPFLOW_CAN_UPLOAD"),
			},
			&cli.BoolFlag{
				Name:    "can-verify",
				Usage:   "Allow verifying and rejecting documents",
				Value:   true,
				Sources: cli.EnvVars("APPFLOW_CAN_VERIFY"),
			},
			&cli.BoolFlag{
				Name:    "can-manage",
				Usage:   "Allow starting and moving the workflow",
				Value:   true,
				Sources: cli.EnvVars("APPFLOW_CAN_MANAGE"),
			},
			&cli.StringFlag{
				Name:    "upload-dir",
				Usage:   "Directory where uploaded files are stored",
				Value:   "./uploads",
				Sources: cli.EnvVars("UPLOAD_DIR"),
			},
			&cli.StringFlag{
				Name:    "upload-base-url",
				Usage:   "Public URL prefix of the upload directory (file:// URLs when empty)",
				Sources: cli.EnvVars("UPLOAD_BASE_URL"),
			},
			&cli.BoolFlag{
				Name:    "plain",
				Usage:   "Disable colours",
				Sources: cli.EnvVars("NO_COLOR"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Before: func(ctx context.Context, command *cli.Command) (context.Context, error) {
			log.Setup(command.String("log-level"))

			return ctx, nil
		},
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List applications",
				Action:  listApplications,
			},
			{
				Name:      "create",
				Usage:     "Create an application from a service template",
				ArgsUsage: "<service-code> <applicant-name>",
				Action:    createApplication,
			},
			{
				Name:    "documents",
				Aliases: []string{"docs"},
				Usage:   "Show and verify required documents",
				Commands: []*cli.Command{
					{
						Name:      "show",
						Usage:     "Show the documents of an application",
						ArgsUsage: "<application-id>",
						Action:    showDocuments,
					},
					{
						Name:      "upload",
						Usage:     "Upload a file for a document",
						ArgsUsage: "<application-id> <document-id> <path>",
						Action:    uploadDocument,
					},
					{
						Name:  "verify",
						Usage: "Accept an uploaded document, or reject it with --reason",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "reason", Usage: "Rejection reason"},
							&cli.BoolFlag{Name: "reject", Usage: "Reject instead of accepting"},
						},
						ArgsUsage: "<application-id> <document-id>",
						Action:    verifyDocument,
					},
				},
			},
			{
				Name:    "workflow",
				Aliases: []string{"wf"},
				Usage:   "Show and move the workflow",
				Commands: []*cli.Command{
					{
						Name:      "show",
						Usage:     "Show the workflow steps of an application",
						ArgsUsage: "<application-id>",
						Action:    showWorkflow,
					},
					{
						Name:      "start",
						Usage:     "Start a workflow that has not been started",
						ArgsUsage: "<application-id>",
						Action:    startWorkflow,
					},
					{
						Name:      "advance",
						Usage:     "Complete the current step",
						Flags:     []cli.Flag{&cli.StringFlag{Name: "remarks"}},
						ArgsUsage: "<application-id>",
						Action: workflowAction(func(command *cli.Command) workflow.Action {
							return workflow.Advance{Remarks: command.String("remarks")}
						}),
					},
					{
						Name:  "send-back",
						Usage: "Send the application back to an earlier step",
						Flags: []cli.Flag{
							&cli.IntFlag{Name: "to", Usage: "Step number to return to", Required: true},
							&cli.StringFlag{Name: "remarks"},
						},
						ArgsUsage: "<application-id>",
						Action: workflowAction(func(command *cli.Command) workflow.Action {
							return workflow.SendBack{Target: command.Int("to"), Remarks: command.String("remarks")}
						}),
					},
					{
						Name:      "reject",
						Usage:     "Reject the application",
						Flags:     []cli.Flag{&cli.StringFlag{Name: "reason", Required: true}},
						ArgsUsage: "<application-id>",
						Action: workflowAction(func(command *cli.Command) workflow.Action {
							return workflow.Reject{Reason: command.String("reason")}
						}),
					},
				},
			},
			{
				Name:      "shell",
				Usage:     "Open an interactive session on one application",
				ArgsUsage: "<application-id>",
				Action:    runShell,
			},
		},
	}
}
