package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/komoralink/komora/client"
)

type clientFlags struct {
	addr    string
	token   string
	timeout time.Duration
}

func addClientCommands(root *cobra.Command) {
	f := &clientFlags{}
	root.PersistentFlags().StringVar(&f.addr, "addr", "localhost:7070", "daemon address")
	root.PersistentFlags().StringVar(&f.token, "token", "", "bearer token for writes")
	root.PersistentFlags().DurationVar(&f.timeout, "timeout", 10*time.Second, "per-command timeout")

	root.AddCommand(
		newGetCmd(f),
		newSetCmd(f),
		newInvalidateCmd(f),
		newInvalidatePatternCmd(f),
		newClearCmd(f),
	)
}

// withClient dials the daemon, runs fn and closes the connection.
func withClient(cmd *cobra.Command, f *clientFlags, fn func(*client.Client) error) error {
	conn, err := client.Dial(f.addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	if f.timeout > 0 {
		ctx, cancel := context.WithTimeout(cmd.Context(), f.timeout)
		defer cancel()
		cmd.SetContext(ctx)
	}
	return fn(client.New(conn, client.WithToken(f.token)))
}

var errNotFound = errors.New("not found")

func newGetCmd(f *clientFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "get KEY",
		Short: "Print the cached value of KEY",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, f, func(c *client.Client) error {
				v, ok, err := c.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%s: %w", args[0], errNotFound)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(v))
				return nil
			})
		},
	}
}

func newSetCmd(f *clientFlags) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "set KEY JSON",
		Short: "Cache the JSON document under KEY",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !json.Valid([]byte(args[1])) {
				return fmt.Errorf("value is not valid JSON: %s", args[1])
			}
			return withClient(cmd, f, func(c *client.Client) error {
				return c.Set(cmd.Context(), args[0], []byte(args[1]), ttl)
			})
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "time to live (default: the daemon's)")
	return cmd
}

func newInvalidateCmd(f *clientFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate KEY",
		Short: "Remove KEY",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, f, func(c *client.Client) error {
				return c.Invalidate(cmd.Context(), args[0])
			})
		},
	}
}

func newInvalidatePatternCmd(f *clientFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate-pattern PATTERN",
		Short: "Remove every key containing PATTERN",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, f, func(c *client.Client) error {
				return c.InvalidatePattern(cmd.Context(), args[0])
			})
		},
	}
}

func newClearCmd(f *clientFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(cmd, f, func(c *client.Client) error {
				return c.ClearAll(cmd.Context())
			})
		},
	}
}
