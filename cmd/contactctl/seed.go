package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/spf13/cobra"

	"contactbook/internal/contact/events"
	"contactbook/internal/contact/models"
)

var now = time.Now

// phoneFormats are Numerify templates; every one yields a valid French number.
var phoneFormats = []string{
	"0#########",
	"0# ## ## ## ##",
	"0#.##.##.##.##",
	"0#-##-##-##-##",
	"+33 # ## ## ## ##",
	"+33 (0)# ## ## ## ##",
	"+33###-###-###",
}

// fakeContact draws one candidate. The generated names are not guaranteed to
// pass validation, so callers must check the error.
func fakeContact(f *gofakeit.Faker) (*models.Contact, error) {
	phone := ""
	if f.Bool() {
		phone = f.Numerify(phoneFormats[f.IntN(len(phoneFormats))])
	}
	address := fmt.Sprintf("%s, %s %s", f.Street(), f.Zip(), f.City())
	return models.NewContact(f.FirstName(), f.LastName(), phone, address)
}

func (c *cli) seedCmd() *cobra.Command {
	var count int
	var seed uint64
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the book with generated contacts",
		Args:  cobra.NoArgs,
		RunE: c.withApp(func(cmd *cobra.Command, args []string) error {
			if count <= 0 {
				return errors.New("--count must be positive")
			}
			f := gofakeit.New(seed)
			ctx := cmd.Context()

			saved, skipped := 0, 0
			for attempts := 0; saved < count && attempts < count*10; attempts++ {
				contact, err := fakeContact(f)
				if err != nil {
					var vErr *models.ValidationError
					if errors.As(err, &vErr) {
						skipped++
						c.log.DebugContext(ctx, "skipping generated contact", "field", vErr.Field, "value", vErr.Value)
						continue
					}
					return err
				}
				if _, err := c.app.Gateway.Save(ctx, contact); err != nil {
					return err
				}
				c.publish(ctx, events.Saved(contact, now()))
				saved++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d contacts (%d skipped)\n", saved, skipped)
			return nil
		}),
	}
	cmd.Flags().IntVarP(&count, "count", "n", 10, "number of contacts to save")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "generator seed; 0 picks a random one")
	return cmd
}
