// Command rpcctl inspects and manipulates a runtime's registry from the
// command line: checking, registering, deregistering, and streaming
// updates for a service identity.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"gateway/internal/config"
	"gateway/internal/registry"
	"gateway/internal/rpc"
)

var (
	configFile string
	iface      string
	group      string
	version    string
)

func main() {
	root := &cobra.Command{
		Use:   "rpcctl",
		Short: "Inspect and manipulate a runtime's service registry",
	}
	root.PersistentFlags().StringVar(&configFile, "config", "configs/gateway.yaml", "config file path")
	root.PersistentFlags().StringVar(&iface, "interface", "", "service interface name")
	root.PersistentFlags().StringVar(&group, "group", "", "service group")
	root.PersistentFlags().StringVar(&version, "version", "", "service version")

	root.AddCommand(checkCmd(), registerCmd(), deregisterCmd(), watchCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func identity() rpc.ServiceIdentity {
	return rpc.ServiceIdentity{Interface: iface, Group: group, Version: version}
}

func loadRegistry() (registry.Registry, error) {
	cfg, err := config.NewLoader(configFile).Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return registry.New(cfg.Runtime.Registry, slog.Default())
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report whether the registry has any instance for --interface",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := loadRegistry()
			if err != nil {
				return err
			}
			port, ok, err := reg.Check(cmd.Context(), identity())
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("no instance found")
				return nil
			}
			fmt.Printf("instance found, port=%d\n", port)
			return nil
		},
	}
}

func registerCmd() *cobra.Command {
	var ip string
	var port int
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register one instance of --interface",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := loadRegistry()
			if err != nil {
				return err
			}
			resource := rpc.Resource{ServerName: iface, Category: rpc.CategoryServer, Group: group, Version: version, IP: ip, Port: port}
			return reg.Register(cmd.Context(), identity(), resource)
		},
	}
	cmd.Flags().StringVar(&ip, "ip", "127.0.0.1", "instance IP")
	cmd.Flags().IntVar(&port, "port", 0, "instance port")
	return cmd
}

func deregisterCmd() *cobra.Command {
	var ip string
	var port int
	cmd := &cobra.Command{
		Use:   "deregister",
		Short: "Deregister one instance of --interface",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := loadRegistry()
			if err != nil {
				return err
			}
			resource := rpc.Resource{ServerName: iface, Category: rpc.CategoryServer, Group: group, Version: version, IP: ip, Port: port}
			return reg.Deregister(cmd.Context(), identity(), resource)
		},
	}
	cmd.Flags().StringVar(&ip, "ip", "127.0.0.1", "instance IP")
	cmd.Flags().IntVar(&port, "port", 0, "instance port")
	return cmd
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream registry events for --interface until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := loadRegistry()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			events, err := reg.Subscribe(ctx, identity())
			if err != nil {
				return err
			}
			for event := range events {
				kind := "added"
				if event.Kind == rpc.EventRemoved {
					kind = "removed"
				}
				fmt.Printf("%s %s:%d\n", kind, event.Resource.IP, event.Resource.Port)
			}
			return nil
		},
	}
}
