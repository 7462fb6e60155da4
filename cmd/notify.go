package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/pagekit/internal/api"
	"github.com/ziadkadry99/pagekit/internal/db"
	"github.com/ziadkadry99/pagekit/internal/dom"
	"github.com/ziadkadry99/pagekit/internal/jsonml"
	"github.com/ziadkadry99/pagekit/internal/logger"
	"github.com/ziadkadry99/pagekit/internal/notifications"
	"github.com/ziadkadry99/pagekit/internal/notify"
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Manage pending participant notifications",
}

var notifyAddCmd = &cobra.Command{
	Use:   "add <username> <name>",
	Short: "Make a notification pending for a participant",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDispatcher(cmd, func(ctx context.Context, d *notifications.Dispatcher, _ *notifications.Store) error {
			entries, err := d.Add(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			return printEntries(cmd.OutOrStdout(), entries)
		})
	},
}

var notifyRemoveCmd = &cobra.Command{
	Use:   "remove <username> <name>",
	Short: "Dismiss a pending notification",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDispatcher(cmd, func(ctx context.Context, d *notifications.Dispatcher, _ *notifications.Store) error {
			entries, err := d.Remove(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			return printEntries(cmd.OutOrStdout(), entries)
		})
	},
}

var notifyListCmd = &cobra.Command{
	Use:   "list [username]",
	Short: "List pending notifications, or the participants that have any",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runNotifyList,
}

var notifyNamesCmd = &cobra.Command{
	Use:   "names",
	Short: "List the notifications that can be made pending",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tTYPE")
		for _, name := range notifications.Names() {
			def, _ := notifications.Lookup(name)
			fmt.Fprintf(w, "%s\t%s\n", def.Name, def.Kind)
		}
		return w.Flush()
	},
}

var notifyWatchCmd = &cobra.Command{
	Use:   "watch <username>",
	Short: "Stream notifications added for a participant on a running server",
	Args:  cobra.ExactArgs(1),
	RunE:  runNotifyWatch,
}

func init() {
	notifyListCmd.Flags().Bool("remote", false, "query the server at base_url instead of the local database")
	notifyCmd.AddCommand(notifyAddCmd, notifyRemoveCmd, notifyListCmd, notifyNamesCmd, notifyWatchCmd)
	rootCmd.AddCommand(notifyCmd)
}

// withDispatcher opens the local database and runs fn with a dispatcher
// over it. Nothing subscribes to the hub of an offline dispatcher.
func withDispatcher(cmd *cobra.Command, fn func(context.Context, *notifications.Dispatcher, *notifications.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	database, err := db.Open(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	hub := notifications.NewHub(log)
	defer hub.Close()
	store := notifications.NewStore(database)
	d := notifications.NewDispatcher(store, hub, cfg.Server.WebhookURL, logger.Component(log, "notifications"))
	return fn(cmd.Context(), d, store)
}

func runNotifyList(cmd *cobra.Command, args []string) error {
	remote, _ := cmd.Flags().GetBool("remote")
	if remote {
		if len(args) == 0 {
			return fmt.Errorf("--remote needs a username")
		}
		client, closeLog, err := remoteClient()
		if err != nil {
			return err
		}
		defer closeLog()
		pending, err := client.Notifications(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tTYPE\tMESSAGE")
		for _, p := range pending {
			fmt.Fprintf(w, "%s\t%s\t%s\n", p.Name, p.Type, descriptorText(p.JSONML))
		}
		return w.Flush()
	}

	return withDispatcher(cmd, func(ctx context.Context, d *notifications.Dispatcher, store *notifications.Store) error {
		if len(args) == 0 {
			users, err := store.Usernames(ctx)
			if err != nil {
				return err
			}
			for _, u := range users {
				fmt.Fprintln(cmd.OutOrStdout(), u)
			}
			return nil
		}
		entries, err := d.List(ctx, args[0])
		if err != nil {
			return err
		}
		return printEntries(cmd.OutOrStdout(), entries)
	})
}

func runNotifyWatch(cmd *cobra.Command, args []string) error {
	client, closeLog, err := remoteClient()
	if err != nil {
		return err
	}
	defer closeLog()
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	fmt.Fprintf(os.Stderr, "Watching notifications for %s, press Ctrl+C to stop\n", args[0])
	return client.Subscribe(ctx, args[0], func(p notify.Pending) {
		fmt.Fprintf(out, "[%s] %s: %s\n", p.Type, p.Name, descriptorText(p.JSONML))
	})
}

func remoteClient() (*api.Client, func() error, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	log, closeLog, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	client, err := api.NewClient(cfg.BaseURL, api.WithLogger(logger.Component(log, "api")))
	if err != nil {
		closeLog()
		return nil, nil, err
	}
	return client, closeLog, nil
}

func printEntries(w io.Writer, entries []notifications.Entry) error {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No pending notifications.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTYPE\tMESSAGE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Name, e.Type, descriptorText(e.JSONML))
	}
	return tw.Flush()
}

// descriptorText returns the text content of a wire descriptor.
func descriptorText(raw json.RawMessage) string {
	desc, err := jsonml.Parse(raw)
	if err != nil {
		return string(raw)
	}
	n, err := jsonml.Build(desc)
	if err != nil {
		return string(raw)
	}
	return dom.Text(n)
}
