package main

import (
	"context"
	"fmt"

	"github.com/brojonat/swapexport/client"
	"github.com/brojonat/swapexport/service/blob"
	"github.com/brojonat/swapexport/service/config"
	"github.com/brojonat/swapexport/service/export"
	"github.com/brojonat/swapexport/service/report"
	"github.com/urfave/cli/v2"
)

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Fetch, filter and export a wallet's swaps to CSV",
		ArgsUsage: "WALLET_ADDRESS",
		Flags: append(exportRequestFlags(),
			&cli.StringSliceFlag{
				Name:    "must-jq",
				Usage:   "jq filter expression over the raw API record that must evaluate to true (can be specified multiple times, all must match)",
				Aliases: []string{"jq"},
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Value:   ".",
				Usage:   "Directory to write the CSV into",
			},
			&cli.BoolFlag{
				Name:  "s3",
				Usage: "Upload the CSV to the configured S3 bucket instead of a local directory",
			},
			jsonFlag(),
			&cli.IntFlag{
				Name:  "preview",
				Value: 10,
				Usage: "Number of rows to preview",
			},
		),
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("wallet address is required")
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			req := requestFromFlags(c)
			exportReq := export.Request{
				Address:   req.Address,
				MinUSD:    req.MinUSD,
				MaxUSD:    req.MaxUSD,
				Types:     req.Types,
				TokenMint: req.TokenMint,
				JQ:        c.StringSlice("must-jq"),
			}
			if exportReq.StartDate, err = export.ParseDate(req.StartDate); err != nil {
				return err
			}
			if exportReq.EndDate, err = export.ParseDate(req.EndDate); err != nil {
				return err
			}

			ctx := context.Background()
			logger := newLogger(c.String("log-level"))

			var sink blob.Sink = blob.NewFileSink(c.String("out"))
			if c.Bool("s3") {
				if !cfg.S3.Enabled() {
					return fmt.Errorf("--s3 requires S3_BUCKET to be set")
				}
				if sink, err = blob.NewS3Sink(ctx, cfg.S3); err != nil {
					return err
				}
			}

			svc := export.NewServiceFromConfig(cfg, nil, logger)
			res, err := svc.Run(ctx, exportReq)
			if err != nil {
				return fmt.Errorf("export failed: %s", export.UserMessage(err))
			}

			location := ""
			if !res.Empty() {
				data, err := res.CSV()
				if err != nil {
					return fmt.Errorf("failed to render csv: %w", err)
				}
				if location, err = sink.Put(ctx, res.Filename, report.ContentType, data); err != nil {
					return fmt.Errorf("failed to write csv: %w", err)
				}
			}

			view := toClientExport(res, c.Int("preview"))
			if c.Bool("json") {
				return outputJSON(c.App.Writer, struct {
					*client.Export
					Location string `json:"location,omitempty"`
				}{view, location})
			}

			printExport(c.App.Writer, view)
			if location != "" {
				fmt.Fprintf(c.App.Writer, "\n✓ Wrote %d rows to %s\n", res.Table.Len(), location)
			}
			return nil
		},
	}
}

// exportRequestFlags are shared by the local and remote export commands.
func exportRequestFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "start",
			Usage:    "First day to include (YYYY-MM-DD, UTC)",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "end",
			Usage:    "Last day to include (YYYY-MM-DD, UTC)",
			Required: true,
		},
		&cli.Float64Flag{
			Name:  "min-value",
			Usage: "Minimum transaction value in USD",
		},
		&cli.Float64Flag{
			Name:  "max-value",
			Usage: "Maximum transaction value in USD (unbounded when unset)",
		},
		&cli.StringSliceFlag{
			Name:    "type",
			Aliases: []string{"t"},
			Value:   cli.NewStringSlice("swap", "agg_swap"),
			Usage:   "Transaction types to include: swap, agg_swap",
		},
		&cli.StringFlag{
			Name:  "token-mint",
			Usage: "Only include transactions that move this token mint",
		},
	}
}

func requestFromFlags(c *cli.Context) client.ExportRequest {
	req := client.ExportRequest{
		Address:   c.Args().Get(0),
		StartDate: c.String("start"),
		EndDate:   c.String("end"),
		MinUSD:    c.Float64("min-value"),
		Types:     c.StringSlice("type"),
		TokenMint: c.String("token-mint"),
	}
	if c.IsSet("max-value") {
		max := c.Float64("max-value")
		req.MaxUSD = &max
	}
	return req
}

func toClientExport(res *export.Result, previewRows int) *client.Export {
	return &client.Export{
		Address:     res.Address,
		Filename:    res.Filename,
		StartDate:   res.StartDate.Format(export.DateLayout),
		EndDate:     res.EndDate.Format(export.DateLayout),
		GeneratedAt: res.GeneratedAt.UTC(),
		Summary:     client.Summary(res.Summary),
		Preview:     client.Table(res.Table.Preview(previewRows)),
		RowCount:    res.Table.Len(),
		Warnings:    res.Warnings,
		Empty:       res.Empty(),
		Suggestions: res.Suggestions,
	}
}

