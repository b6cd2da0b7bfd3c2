package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"contactbook/internal/bootstrap"
	"contactbook/internal/contact/events"
	"contactbook/internal/contact/models"
	"contactbook/internal/platform/config"
	"contactbook/internal/platform/logger"
)

// appFactory opens the wired application for one command invocation.
type appFactory func(ctx context.Context, log *slog.Logger) (*bootstrap.App, error)

func openConfiguredApp(ctx context.Context, log *slog.Logger) (*bootstrap.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return bootstrap.Build(ctx, cfg, nil, log)
}

type cli struct {
	open    appFactory
	verbose bool
	log     *slog.Logger
	app     *bootstrap.App
}

// withApp opens the book for the duration of fn and always closes it.
func (c *cli) withApp(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		app, err := c.open(cmd.Context(), c.log)
		if err != nil {
			return fmt.Errorf("open contact book: %w", err)
		}
		c.app = app
		defer func() {
			err = errors.Join(err, app.Close())
			c.app = nil
		}()
		return fn(cmd, args)
	}
}

func newRootCmd(open appFactory) *cobra.Command {
	c := &cli{open: open}

	root := &cobra.Command{
		Use:           "contactctl",
		Short:         "Manage the contact book",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := "warn"
			if c.verbose {
				level = "debug"
			}
			c.log = logger.NewWithWriter(cmd.ErrOrStderr(), level, "text")
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "debug logging to stderr")

	root.AddCommand(
		c.listCmd(),
		c.addCmd(),
		c.modifyCmd(),
		c.deleteCmd(),
		c.seedCmd(),
	)
	return root
}

func (c *cli) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every contact in store order",
		Args:  cobra.NoArgs,
		RunE: c.withApp(func(cmd *cobra.Command, args []string) error {
			contacts, err := c.app.Gateway.ListAll(cmd.Context())
			if err != nil {
				return err
			}
			return printContacts(cmd.OutOrStdout(), contacts)
		}),
	}
}

func (c *cli) addCmd() *cobra.Command {
	var phone, address string
	cmd := &cobra.Command{
		Use:   "add FIRST_NAME LAST_NAME",
		Short: "Add a contact, or overwrite the one with the same name",
		Args:  cobra.ExactArgs(2),
		RunE: c.withApp(func(cmd *cobra.Command, args []string) error {
			contact, err := c.app.Gateway.Create(cmd.Context(), args[0], args[1], phone, address)
			if err != nil {
				return err
			}
			c.publish(cmd.Context(), events.Saved(contact, now()))
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s as %s\n", contact.FullName(), contact.RecordID)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&phone, "phone", "p", "", "French phone number")
	cmd.Flags().StringVarP(&address, "address", "a", "", "postal address")
	return cmd
}

func (c *cli) modifyCmd() *cobra.Command {
	var phone, address string
	cmd := &cobra.Command{
		Use:   "modify ID",
		Short: "Replace the phone number and address of a contact",
		Args:  cobra.ExactArgs(1),
		RunE: c.withApp(func(cmd *cobra.Command, args []string) error {
			id, err := models.ParseRecordID(args[0])
			if err != nil {
				return err
			}
			contact, err := c.app.Gateway.Modify(cmd.Context(), id, phone, address)
			if err != nil {
				return err
			}
			c.publish(cmd.Context(), events.Saved(contact, now()))
			fmt.Fprintf(cmd.OutOrStdout(), "modified %s\n", contact.FullName())
			return nil
		}),
	}
	cmd.Flags().StringVarP(&phone, "phone", "p", "", "French phone number")
	cmd.Flags().StringVarP(&address, "address", "a", "", "postal address")
	return cmd
}

func (c *cli) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a contact",
		Args:  cobra.ExactArgs(1),
		RunE: c.withApp(func(cmd *cobra.Command, args []string) error {
			id, err := models.ParseRecordID(args[0])
			if err != nil {
				return err
			}
			contact, err := c.app.Gateway.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			removed, err := c.app.Gateway.Delete(cmd.Context(), contact)
			if err != nil {
				return err
			}
			if removed == nil {
				return errors.New("contact was already deleted")
			}
			c.publish(cmd.Context(), events.Deleted(contact, *removed, now()))
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", contact.FullName())
			return nil
		}),
	}
}

func (c *cli) publish(ctx context.Context, e events.Event) {
	if err := c.app.Publisher.Publish(ctx, e); err != nil {
		c.log.WarnContext(ctx, "failed to publish contact event", "event_type", string(e.Type), "error", err)
	}
}

func printContacts(out io.Writer, contacts []*models.Contact) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPHONE\tADDRESS")
	for _, contact := range contacts {
		id := "-"
		if contact.RecordID != nil {
			id = contact.RecordID.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", id, contact.FullName(), contact.PhoneNumber, contact.Address)
	}
	return tw.Flush()
}
