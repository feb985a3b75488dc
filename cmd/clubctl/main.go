// cmd/clubctl/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"clubledger/internal/billing"
	"clubledger/internal/clients"
	"clubledger/internal/ledger"
	"clubledger/internal/membership"
	"clubledger/internal/payments"
	"clubledger/internal/reconciliation"
)

type command struct {
	usage string
	run   func(ctx context.Context, c *cli, args []string) (any, error)
}

type cli struct {
	members *clients.MembershipClient
	billing *clients.BillingClient
	recon   *clients.ReconciliationClient
}

var commands = map[string]command{
	"members":      {"[-status active]", listMembers},
	"register":     {"-number N -nid RUT -email E -first F -last L", registerMember},
	"vessel":       {"-member ID -name N -category C -feet F", addVessel},
	"visit":        {"-member ID -date YYYY-MM-DD -visitors N", recordVisit},
	"preview":      {"-month M -year Y [-today YYYY-MM-DD] [-members ID,ID]", previewBatch},
	"commit":       {"-batch ID", commitBatch},
	"retry":        {"-batch ID", retryBatch},
	"invoices":     {"[-member ID] [-status S] [-period YYYY-MM]", listInvoices},
	"overdue":      {"", refreshOverdue},
	"entry-fee":    {"-member ID -total T -installments N -month M -year Y", issueEntryFee},
	"pay":          {"-member ID -date YYYY-MM-DD -amount A -method M [-ref R] [-override]", recordPayment},
	"credit":       {"-member ID", memberCredit},
	"settle":       {"-member ID", settleMember},
	"import":       {"-file statement.csv", importStatement},
	"match":        {"[-from YYYY-MM-DD] [-to YYYY-MM-DD]", matchTransactions},
	"transactions": {"[-status S] [-from YYYY-MM-DD] [-to YYYY-MM-DD]", listTransactions},
	"confirm":      {"-tx ID [-member ID] [-method M] [-override]", confirmTransaction},
	"journal":      {"[-after N] [-limit N]", tailJournal},
}

func main() {
	api := os.Getenv("CLUBLEDGER_API")
	if api == "" {
		api = "http://localhost:8080/api/v1"
	}
	api = strings.TrimRight(api, "/")

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	cmd, ok := commands[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	c := &cli{
		members: clients.NewMembershipClient(api+"/membership", nil),
		billing: clients.NewBillingClient(api+"/billing", nil),
		recon:   clients.NewReconciliationClient(api+"/reconciliation", nil),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	out, err := cmd.run(ctx, c, os.Args[2:])
	if err != nil {
		report(err)
		os.Exit(1)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "failed to print result: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(os.Stderr, "usage: clubctl <command> [flags]")
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %-13s %s\n", name, commands[name].usage)
	}
}

func report(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	if errors.Is(err, payments.ErrOverrideRequired) {
		var verdict payments.Verdict
		if clients.DecodeDetail(err, &verdict) {
			fmt.Fprintf(os.Stderr, "possible duplicate (%s): %s\nrepeat with -override to store it anyway\n", verdict.Confidence, verdict.Reason)
		}
	}
}

func flags(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ContinueOnError)
}

func parseID(flagName, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("-%s: %w", flagName, err)
	}
	return id, nil
}

func listMembers(ctx context.Context, c *cli, args []string) (any, error) {
	fs := flags("members")
	status := fs.String("status", "", "filter by status")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return c.members.ListMembers(ctx, membership.Status(*status))
}

func registerMember(ctx context.Context, c *cli, args []string) (any, error) {
	fs := flags("register")
	var req clients.RegisterMemberRequest
	fs.IntVar(&req.Number, "number", 0, "member number")
	fs.StringVar(&req.NationalID, "nid", "", "national id")
	fs.StringVar(&req.Email, "email", "", "e-mail")
	fs.StringVar(&req.FirstName, "first", "", "first name")
	fs.StringVar(&req.LastName, "last", "", "last name")
	fs.StringVar(&req.Status, "status", "", "initial status")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return c.members.RegisterMember(ctx, req)
}

func addVessel(ctx context.Context, c *cli, args []string) (any, error) {
	fs := flags("vessel")
	member := fs.String("member", "", "member id")
	name := fs.String("name", "", "vessel name")
	category := fs.String("category", "", "vessel category")
	feet := fs.String("feet", "0", "length in feet")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	id, err := parseID("member", *member)
	if err != nil {
		return nil, err
	}
	length, err := decimal.NewFromString(*feet)
	if err != nil {
		return nil, fmt.Errorf("-feet: %w", err)
	}
	return c.members.AddVessel(ctx, id, *name, membership.VesselCategory(*category), length)
}

func recordVisit(ctx context.Context, c *cli, args []string) (any, error) {
	fs := flags("visit")
	member := fs.String("member", "", "member id")
	date := fs.String("date", time.Now().Format(time.DateOnly), "visit date")
	visitors := fs.Int("visitors", 1, "number of guests")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	id, err := parseID("member", *member)
	if err != nil {
		return nil, err
	}
	return c.members.RecordVisit(ctx, id, *date, *visitors)
}

func previewBatch(ctx context.Context, c *cli, args []string) (any, error) {
	fs := flags("preview")
	now := time.Now()
	month := fs.Int("month", int(now.Month()), "billing month")
	year := fs.Int("year", now.Year(), "billing year")
	today := fs.String("today", "", "date used for due dates and interest")
	members := fs.String("members", "", "comma separated member ids, empty for all active members")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	period, err := ledger.NewPeriod(*month, *year)
	if err != nil {
		return nil, err
	}
	var ids []uuid.UUID
	for _, raw := range strings.Split(*members, ",") {
		if raw = strings.TrimSpace(raw); raw == "" {
			continue
		}
		id, err := parseID("members", raw)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	var day time.Time
	if *today != "" {
		if day, err = time.Parse(time.DateOnly, *today); err != nil {
			return nil, fmt.Errorf("-today: %w", err)
		}
	}
	return c.billing.Preview(ctx, period, ids, day)
}

func commitBatch(ctx context.Context, c *cli, args []string) (any, error) {
	fs := flags("commit")
	batch := fs.String("batch", "", "batch id")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	id, err := parseID("batch", *batch)
	if err != nil {
		return nil, err
	}
	return c.billing.Commit(ctx, id)
}

func retryBatch(ctx context.Context, c *cli, args []string) (any, error) {
	fs := flags("retry")
	batch := fs.String("batch", "", "committed batch id")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	id, err := parseID("batch", *batch)
	if err != nil {
		return nil, err
	}
	return c.billing.Retry(ctx, id)
}

func listInvoices(ctx context.Context, c *cli, args []string) (any, error) {
	fs := flags("invoices")
	member := fs.String("member", "", "member id")
	status := fs.String("status", "", "invoice status")
	period := fs.String("period", "", "billing period YYYY-MM")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	filter := billing.InvoiceFilter{Status: ledger.InvoiceStatus(*status)}
	if *member != "" {
		id, err := parseID("member", *member)
		if err != nil {
			return nil, err
		}
		filter.MemberID = id
	}
	if *period != "" {
		t, err := time.Parse("2006-01", *period)
		if err != nil {
			return nil, fmt.Errorf("-period: %w", err)
		}
		filter.Period = ledger.PeriodOf(t)
	}
	return c.billing.ListInvoices(ctx, filter)
}

func refreshOverdue(ctx context.Context, c *cli, _ []string) (any, error) {
	n, err := c.billing.RefreshOverdue(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]int{"overdue": n}, nil
}

func issueEntryFee(ctx context.Context, c *cli, args []string) (any, error) {
	fs := flags("entry-fee")
	now := time.Now()
	member := fs.String("member", "", "member id")
	total := fs.String("total", "", "entry fee total")
	installments := fs.Int("installments", 1, "number of monthly installments")
	month := fs.Int("month", int(now.Month()), "first installment month")
	year := fs.Int("year", now.Year(), "first installment year")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	id, err := parseID("member", *member)
	if err != nil {
		return nil, err
	}
	amount, err := decimal.NewFromString(*total)
	if err != nil {
		return nil, fmt.Errorf("-total: %w", err)
	}
	first, err := ledger.NewPeriod(*month, *year)
	if err != nil {
		return nil, err
	}
	return c.billing.IssueEntryFee(ctx, id, amount, *installments, first)
}

func recordPayment(ctx context.Context, c *cli, args []string) (any, error) {
	fs := flags("pay")
	member := fs.String("member", "", "member id")
	date := fs.String("date", time.Now().Format(time.DateOnly), "payment date")
	amount := fs.String("amount", "", "amount paid")
	method := fs.String("method", "transfer", "payment method")
	ref := fs.String("ref", "", "bank reference")
	override := fs.Bool("override", false, "store even when it looks like a duplicate")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	id, err := parseID("member", *member)
	if err != nil {
		return nil, err
	}
	value, err := decimal.NewFromString(*amount)
	if err != nil {
		return nil, fmt.Errorf("-amount: %w", err)
	}
	return c.billing.RecordPayment(ctx, clients.PaymentRequest{
		MemberID: id, Date: *date, Amount: value, Method: *method, Reference: *ref, Override: *override,
	})
}

func memberCredit(ctx context.Context, c *cli, args []string) (any, error) {
	fs := flags("credit")
	member := fs.String("member", "", "member id")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	id, err := parseID("member", *member)
	if err != nil {
		return nil, err
	}
	credit, err := c.billing.Credit(ctx, id)
	if err != nil {
		return nil, err
	}
	return map[string]any{"member_id": id, "credit": credit}, nil
}

func settleMember(ctx context.Context, c *cli, args []string) (any, error) {
	fs := flags("settle")
	member := fs.String("member", "", "member id")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	id, err := parseID("member", *member)
	if err != nil {
		return nil, err
	}
	return c.billing.Settle(ctx, id)
}

func importStatement(ctx context.Context, c *cli, args []string) (any, error) {
	fs := flags("import")
	file := fs.String("file", "", "bank statement CSV")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	f, err := os.Open(*file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return c.recon.ImportStatement(ctx, f)
}

func matchTransactions(ctx context.Context, c *cli, args []string) (any, error) {
	fs := flags("match")
	from := fs.String("from", "", "first transaction date")
	to := fs.String("to", "", "last transaction date")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return c.recon.Match(ctx, *from, *to)
}

func listTransactions(ctx context.Context, c *cli, args []string) (any, error) {
	fs := flags("transactions")
	status := fs.String("status", "", "transaction status")
	from := fs.String("from", "", "first transaction date")
	to := fs.String("to", "", "last transaction date")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return c.recon.List(ctx, reconciliation.Status(*status), *from, *to)
}

func confirmTransaction(ctx context.Context, c *cli, args []string) (any, error) {
	fs := flags("confirm")
	tx := fs.String("tx", "", "bank transaction id")
	member := fs.String("member", "", "member id, defaults to the suggested match")
	method := fs.String("method", "transfer", "payment method")
	override := fs.Bool("override", false, "store even when it looks like a duplicate")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	id, err := parseID("tx", *tx)
	if err != nil {
		return nil, err
	}
	var memberID *uuid.UUID
	if *member != "" {
		m, err := parseID("member", *member)
		if err != nil {
			return nil, err
		}
		memberID = &m
	}
	return c.recon.Confirm(ctx, id, memberID, *method, *override)
}

func tailJournal(ctx context.Context, c *cli, args []string) (any, error) {
	fs := flags("journal")
	after := fs.Int64("after", 0, "last event id already seen")
	limit := fs.Int("limit", 100, "maximum events")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return c.billing.Journal(ctx, *after, *limit)
}
