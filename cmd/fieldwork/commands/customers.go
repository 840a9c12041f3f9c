package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/fieldwork/internal/app/customers"
)

type CustomerListCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	query  string
	format string
}

// NewCustomerListCommand returns the customer list command.
func NewCustomerListCommand(rootCmd *RootCommand, cs *kingpin.CmdClause) *CustomerListCommand {
	c := &CustomerListCommand{rootCmd: rootCmd}

	c.Cmd = cs.Command("list", "List the customers of the jobs.").Alias("ls")
	c.Cmd.Flag("query", "Search by name, email, phone or address.").Short('q').StringVar(&c.query)
	formatFlag(c.Cmd, &c.format)

	return c
}

func (c CustomerListCommand) Name() string { return c.Cmd.FullCommand() }

func (c CustomerListCommand) Run(ctx context.Context) error {
	res, err := runCustomers(ctx, c.rootCmd, customers.Request{Query: c.query})
	if err != nil {
		return fmt.Errorf("could not list customers: %w", err)
	}

	return c.rootCmd.printer(c.format).PrintCustomers(res.Customers)
}

type CustomerShowCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	customerID string
	format     string
}

// NewCustomerShowCommand returns the customer show command.
func NewCustomerShowCommand(rootCmd *RootCommand, cs *kingpin.CmdClause) *CustomerShowCommand {
	c := &CustomerShowCommand{rootCmd: rootCmd}

	c.Cmd = cs.Command("show", "Show a customer with its jobs.")
	c.Cmd.Arg("customer-id", "Customer ID.").Required().StringVar(&c.customerID)
	formatFlag(c.Cmd, &c.format)

	return c
}

func (c CustomerShowCommand) Name() string { return c.Cmd.FullCommand() }

func (c CustomerShowCommand) Run(ctx context.Context) error {
	res, err := runCustomers(ctx, c.rootCmd, customers.Request{CustomerID: c.customerID})
	if err != nil {
		return fmt.Errorf("could not get customer: %w", err)
	}

	p := c.rootCmd.printer(c.format)
	if err := p.PrintCustomers(res.Customers); err != nil {
		return err
	}
	return p.PrintJobs(res.Jobs)
}

func runCustomers(ctx context.Context, rootCmd *RootCommand, req customers.Request) (customers.Result, error) {
	d, err := newDeps(ctx, *rootCmd)
	if err != nil {
		return customers.Result{}, err
	}
	defer d.Close()

	// Customers are only visible to signed in workers.
	if _, err := d.Session(ctx); err != nil {
		return customers.Result{}, err
	}

	svc, err := customers.NewService(customers.ServiceConfig{Source: d.Source, Logger: rootCmd.Logger})
	if err != nil {
		return customers.Result{}, fmt.Errorf("could not create service: %w", err)
	}

	return svc.Run(ctx, req)
}
