package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hazz-dev/healthd/internal/checker"
	"github.com/hazz-dev/healthd/internal/spool"
)

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <protocol> <service> <port> [path]",
		Short: "Run a single health check and print the result",
		Args:  cobra.RangeArgs(3, 4),
		RunE:  runCheck,
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	protocol, ok := checker.ParseProtocol(args[0])
	if !ok {
		return fmt.Errorf("unknown protocol %q", args[0])
	}
	port, err := strconv.ParseUint(args[2], 10, 16)
	if err != nil {
		return fmt.Errorf("invalid port %q: %w", args[2], err)
	}
	path := ""
	if len(args) == 4 {
		path = args[3]
	}

	store, err := spool.Open(cfg.Spool.Path)
	if err != nil {
		return fmt.Errorf("opening spool store: %w", err)
	}
	defer store.Close()

	dispatcher := checker.New(cfg, store, mysqlDialer, nil)
	result := dispatcher.Check(context.Background(), checker.Request{
		Service:  args[1],
		Port:     uint16(port),
		Protocol: protocol,
		Path:     path,
	})

	printResult(cmd.OutOrStdout(), protocol, args[1], result)
	if result.Code != 200 {
		return fmt.Errorf("check failed")
	}
	return nil
}

func printResult(out io.Writer, protocol checker.Protocol, service string, result checker.Result) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PROTOCOL\tSERVICE\tCODE\tREASON")
	fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", protocol, service, result.Code, result.Reason)
	w.Flush()
}
