package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/kvops/logstats"
	"github.com/jonwraymond/kvops/observe"
)

var indents = map[string]string{
	"tab":    "\t",
	"spaces": "    ",
}

func (r *rootCommand) logstatsCommand() *cobra.Command {
	var (
		topIPs int
		indent string
	)

	cmd := &cobra.Command{
		Use:   "logstats",
		Short: "Print request statistics for the nginx logs in MongoDB",
		Long: `Print the total number of logs, a count per HTTP method, the number of
GET /status health probes and the most frequent client IPs.

--top-ips 0 omits the IPs section.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			prefix, ok := indents[indent]
			if !ok {
				return fmt.Errorf("unknown --indent %q: want tab or spaces", indent)
			}

			ctx := cmd.Context()
			src, err := r.newLogSource(ctx, r.cfg.Mongo)
			if err != nil {
				return err
			}
			defer func() { _ = src.Close(context.WithoutCancel(ctx)) }()

			r.logger.Debug(ctx, "collecting log stats",
				observe.F("uri", r.cfg.Mongo.URI),
				observe.F("collection", r.cfg.Mongo.Database+"."+r.cfg.Mongo.Collection),
			)
			return logstats.Report(ctx, cmd.OutOrStdout(), src, logstats.Options{TopIPs: topIPs, Indent: prefix})
		},
	}
	cmd.Flags().IntVar(&topIPs, "top-ips", logstats.DefaultTopIPs, "number of client IPs to list")
	cmd.Flags().StringVar(&indent, "indent", "tab", "indentation of nested lines: tab or spaces")
	return cmd
}
