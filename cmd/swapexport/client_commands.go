package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/brojonat/swapexport/client"
	"github.com/brojonat/swapexport/service/blob"
	"github.com/brojonat/swapexport/service/report"
	"github.com/urfave/cli/v2"
)

func clientCommands() *cli.Command {
	return &cli.Command{
		Name:  "client",
		Usage: "HTTP client commands for interacting with a swapexport server",
		Subcommands: []*cli.Command{
			clientExportCommand(),
			clientSummaryCommand(),
			clientDownloadCommand(),
		},
	}
}

func newClient(c *cli.Context) *client.Client {
	httpClient := &http.Client{Timeout: c.Duration("timeout")}
	return client.NewClient(c.String("server-url"), httpClient, newLogger(c.String("log-level")))
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    "json",
		Aliases: []string{"j"},
		Usage:   "Output in JSON format",
	}
}

func timeoutFlag() cli.Flag {
	return &cli.DurationFlag{
		Name:  "timeout",
		Value: client.DefaultTimeout,
		Usage: "Request timeout",
	}
}

func clientExportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Run an export on the server",
		ArgsUsage: "WALLET_ADDRESS",
		Flags:     append(exportRequestFlags(), timeoutFlag(), jsonFlag()),
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("wallet address is required")
			}

			out, err := newClient(c).CreateExport(context.Background(), requestFromFlags(c))
			if err != nil {
				return fmt.Errorf("failed to create export: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(c.App.Writer, out)
			}
			printExport(c.App.Writer, out)
			if !out.Empty {
				fmt.Fprintf(c.App.Writer, "\nDownload with: swapexport client download %s\n", out.ID)
			}
			return nil
		},
	}
}

func clientSummaryCommand() *cli.Command {
	return &cli.Command{
		Name:      "summary",
		Usage:     "Show a stored export's summary and preview",
		ArgsUsage: "EXPORT_ID",
		Flags:     []cli.Flag{timeoutFlag(), jsonFlag()},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("export id is required")
			}

			out, err := newClient(c).GetExport(context.Background(), c.Args().Get(0))
			if err != nil {
				return fmt.Errorf("failed to get export: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(c.App.Writer, out)
			}
			printExport(c.App.Writer, out)
			return nil
		},
	}
}

func clientDownloadCommand() *cli.Command {
	return &cli.Command{
		Name:      "download",
		Usage:     "Download a stored export's CSV",
		ArgsUsage: "EXPORT_ID",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Value:   ".",
				Usage:   "Directory to write the CSV into",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: 30 * time.Second,
				Usage: "Request timeout",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("export id is required")
			}
			id := c.Args().Get(0)
			ctx := context.Background()
			cl := newClient(c)

			meta, err := cl.GetExport(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to get export: %w", err)
			}
			data, err := cl.DownloadCSV(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to download export: %w", err)
			}

			location, err := blob.NewFileSink(c.String("out")).Put(ctx, meta.Filename, report.ContentType, data)
			if err != nil {
				return fmt.Errorf("failed to write csv: %w", err)
			}
			fmt.Fprintf(c.App.Writer, "✓ Wrote %s\n", location)
			return nil
		},
	}
}
