// Command kvs-client sends a single get/set/rm request to a
// kvs-server instance over TCP and prints the result.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"kvs/internal/client"
	"kvs/internal/config"
	"kvs/internal/kverrors"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := config.Get()
	var addr string

	root := &cobra.Command{
		Use:           "kvs-client",
		Short:         "Talk to a kvs-server instance",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&addr, "addr", cfg.Addr, "server IP:PORT")

	get, set, rm := newGetCmd(&addr), newSetCmd(&addr), newRmCmd(&addr)
	for _, c := range []*cobra.Command{get, set, rm} {
		c.SilenceUsage = true
		c.SilenceErrors = true
	}
	root.AddCommand(get, set, rm)
	return root
}

func newGetCmd(addr *string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Look up a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(*addr)
			value, ok, err := c.Get(args[0])
			if err != nil {
				return fail(err)
			}
			if !ok {
				fmt.Println("Key not found")
				return nil
			}
			fmt.Println(value)
			return nil
		},
	}
}

func newSetCmd(addr *string) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a value under a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(*addr)
			if err := c.Set(args[0], args[1]); err != nil {
				return fail(err)
			}
			return nil
		},
	}
}

func newRmCmd(addr *string) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <key>",
		Short: "Remove a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(*addr)
			if err := c.Remove(args[0]); err != nil {
				return fail(err)
			}
			return nil
		},
	}
}

// fail prints KeyNotFound to stdout (per spec.md §6) or the full error
// chain to stderr for everything else, and returns a non-nil error so
// Execute exits 1 either way.
func fail(err error) error {
	if key, ok := kverrors.KeyOf(err); ok {
		fmt.Println("Key not found")
		return fmt.Errorf("key not found: %s", key)
	}
	for _, line := range kverrors.Chain(err) {
		fmt.Fprintln(os.Stderr, line)
	}
	return err
}
