package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazz-dev/healthd/internal/spool"
)

func downCmd() *cobra.Command {
	var (
		port    uint16
		reason  string
		expires time.Duration
	)
	cmd := &cobra.Command{
		Use:   "down <service>",
		Short: "Mark a service administratively down",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			store, err := spool.Open(cfg.Spool.Path)
			if err != nil {
				return fmt.Errorf("opening spool store: %w", err)
			}
			defer store.Close()

			var expiresAt *time.Time
			if expires > 0 {
				t := time.Now().Add(expires)
				expiresAt = &t
			}
			if err := store.Down(context.Background(), args[0], port, reason, expiresAt); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "marked %s down\n", args[0])
			return nil
		},
	}
	cmd.Flags().Uint16Var(&port, "port", spool.AllPorts, "limit the down state to one port (0 = all ports)")
	cmd.Flags().StringVarP(&reason, "reason", "r", "", "reason shown by spool checks")
	cmd.Flags().DurationVarP(&expires, "expires", "e", 0, "automatically return to up state after this duration")
	return cmd
}

func upCmd() *cobra.Command {
	var port uint16
	cmd := &cobra.Command{
		Use:   "up <service>",
		Short: "Clear a service's administrative down state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			store, err := spool.Open(cfg.Spool.Path)
			if err != nil {
				return fmt.Errorf("opening spool store: %w", err)
			}
			defer store.Close()

			if err := store.Up(context.Background(), args[0], port); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "marked %s up\n", args[0])
			return nil
		},
	}
	cmd.Flags().Uint16Var(&port, "port", spool.AllPorts, "clear the down state for one port (0 = all ports)")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List services currently marked down",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			store, err := spool.Open(cfg.Spool.Path)
			if err != nil {
				return fmt.Errorf("opening spool store: %w", err)
			}
			defer store.Close()

			entries, err := store.List(context.Background())
			if err != nil {
				return err
			}
			printEntries(cmd.OutOrStdout(), entries)
			return nil
		},
	}
}

func printEntries(out io.Writer, entries []spool.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "no services marked down")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SERVICE\tPORT\tSINCE\tEXPIRES\tREASON")
	for _, e := range entries {
		port := "all"
		if e.Port != spool.AllPorts {
			port = fmt.Sprintf("%d", e.Port)
		}
		expires := "—"
		if e.ExpiresAt != nil {
			expires = e.ExpiresAt.Local().Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			e.Service,
			port,
			e.CreatedAt.Local().Format(time.RFC3339),
			expires,
			e.Reason,
		)
	}
	w.Flush()
}
