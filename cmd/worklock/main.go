package main

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/spf13/cobra"
	"github.com/stevearc/worklock/pkg/config/v1alpha1"
	"github.com/stevearc/worklock/pkg/constants"
	"github.com/stevearc/worklock/pkg/lock"
	"github.com/stevearc/worklock/pkg/lock/broker"
	"github.com/stevearc/worklock/pkg/logger"
	"github.com/stevearc/worklock/pkg/util"
)

func main() {
	if err := BuildRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func BuildRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "worklock",
		Short:        "named mutual exclusion for job workers",
		SilenceUsage: true,
	}
	cmd.AddCommand(BuildRunCmd())
	cmd.AddCommand(BuildBackendsCmd())
	return cmd
}

func BuildRunCmd() *cobra.Command {
	var configPath string
	var key string
	var expires time.Duration
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "run -k KEY -- command [args...]",
		Short: "run a command while holding the named lock",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lg := logger.New(logger.WithDisableCaller())
			config, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			factory, err := broker.NewLockBroker(lg, config).LockFactory(cmd.Context())
			if err != nil {
				return err
			}
			ann := lock.NewAnnotation(factory, lg)
			return ann.Do(cmd.Context(), key,
				func() error {
					child := exec.CommandContext(cmd.Context(), args[0], args[1:]...)
					child.Stdin = os.Stdin
					child.Stdout = os.Stdout
					child.Stderr = os.Stderr
					return child.Run()
				},
				lock.WithExpires(expires),
				lock.WithTimeout(timeout),
			)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file (defaults to the file backend)")
	cmd.Flags().StringVarP(&key, "key", "k", "", "lock key")
	cmd.Flags().DurationVar(&expires, "expires", lock.DefaultExpires, "maximum hold duration, where enforced")
	cmd.Flags().DurationVar(&timeout, "timeout", lock.DefaultTimeout, "maximum acquisition wait, where enforced")
	util.MustSucceed(cmd.MarkFlagRequired("key"))
	return cmd
}

func BuildBackendsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "list recognized lock backends",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, name := range broker.Backends() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func loadConfig(path string) (*v1alpha1.LockConfig, error) {
	if path == "" {
		// host-wide file locks are the useful default for a CLI invocation
		return &v1alpha1.LockConfig{Backend: constants.FileBackend}, nil
	}
	return v1alpha1.Load(path)
}
