package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/amirasaad/cashfake/infra/initializer"
	"github.com/amirasaad/cashfake/pkg/app"
	"github.com/amirasaad/cashfake/pkg/config"
	"github.com/amirasaad/cashfake/pkg/domain"
	"github.com/amirasaad/cashfake/pkg/service/account"
	"github.com/amirasaad/cashfake/pkg/service/auth"
	"github.com/amirasaad/cashfake/pkg/service/history"
	"github.com/amirasaad/cashfake/pkg/service/transfer"
	charmlog "github.com/charmbracelet/log"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"golang.org/x/term"
)

const usage = `Usage: cli <command> [flags]

Commands:
  register  -name NAME -email EMAIL
  balance   -email EMAIL
  lookup    -email EMAIL -query NUMBER_OR_EMAIL
  send      -email EMAIL -to DESTINATION -amount AMOUNT [-note NOTE] [-recipient NAME] [-key KEY]
  withdraw  -email EMAIL -amount AMOUNT [-key KEY]
  history   -email EMAIL
  contacts  -email EMAIL

The password is read from CASHFAKE_PASSWORD or prompted for. Without DATABASE_URL each
run starts from an empty in-memory store.
`

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	errColor  = color.New(color.FgRed, color.Bold)
	dimColor  = color.New(color.Faint)
	sentColor = color.New(color.FgYellow)
)

func main() {
	os.Exit(runMain(os.Args[1:]))
}

func runMain(args []string) int {
	if len(args) == 0 {
		fmt.Print(usage)
		return 2
	}
	cfg, err := config.Load(".env")
	if err != nil {
		errColor.Fprintln(os.Stderr, "Failed to load configuration:", err)
		return 1
	}
	// no tokens on the command line
	cfg.Auth.Strategy = "basic"
	cfg.Log.Level = int(charmlog.WarnLevel)

	deps, err := initializer.InitializeDependencies(cfg)
	if err != nil {
		errColor.Fprintln(os.Stderr, "Failed to initialize:", err)
		return 1
	}
	defer deps.Close() //nolint:errcheck

	c := &cli{app: app.New(deps), out: os.Stdout, password: promptPassword}
	if err := c.run(context.Background(), args); err != nil {
		errColor.Fprintln(os.Stderr, describe(err))
		return 1
	}
	return 0
}

type cli struct {
	app      *app.App
	out      io.Writer
	password func(prompt string) (string, error)
}

func (c *cli) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New(strings.TrimSpace(usage))
	}
	cmd, rest := args[0], args[1:]
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	email := fs.String("email", "", "account email")
	name := fs.String("name", "", "full name")
	to := fs.String("to", "", "destination account number, email or payee tag")
	amount := fs.String("amount", "", "amount, e.g. 12.50")
	note := fs.String("note", "", "transfer note")
	recipient := fs.String("recipient", "", "payee name for destinations outside the platform")
	key := fs.String("key", "", "idempotency key")
	query := fs.String("query", "", "account number or email")
	if err := fs.Parse(rest); err != nil {
		return err
	}

	if cmd == "register" {
		return c.register(ctx, *name, *email)
	}
	ctx, id, err := c.login(ctx, *email)
	if err != nil {
		return err
	}
	switch cmd {
	case "balance":
		return c.balance(ctx, id)
	case "lookup":
		return c.lookup(ctx, *query)
	case "send":
		return c.send(ctx, id, transfer.TransferRequest{
			DestinationQuery: *to,
			Amount:           *amount,
			Note:             *note,
			RecipientName:    *recipient,
			IdempotencyKey:   *key,
		})
	case "withdraw":
		return c.withdraw(ctx, id, *amount, *key)
	case "history":
		return c.history(ctx, id)
	case "contacts":
		return c.contacts(ctx, id)
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func (c *cli) register(ctx context.Context, name, email string) error {
	pw, err := c.password("Password: ")
	if err != nil {
		return err
	}
	confirm, err := c.password("Confirm password: ")
	if err != nil {
		return err
	}
	a, err := c.app.AccountService.Register(ctx, account.RegisterInput{
		FullName: name, Email: email, Password: pw, ConfirmPassword: confirm,
	})
	if err != nil {
		return err
	}
	okColor.Fprintf(c.out, "Account created: %s (routing %d)\n", a.Number, a.RoutingNumber)
	return nil
}

// login authenticates email and returns a context carrying the account id.
func (c *cli) login(ctx context.Context, email string) (context.Context, uuid.UUID, error) {
	if email == "" {
		return ctx, uuid.Nil, errors.New("-email is required")
	}
	pw, err := c.password("Password: ")
	if err != nil {
		return ctx, uuid.Nil, err
	}
	id, err := c.app.AuthService.Authenticate(ctx, email, pw)
	if err != nil {
		return ctx, uuid.Nil, err
	}
	ctx = auth.WithAccountID(ctx, id)
	id, err = c.app.AuthService.CurrentAccountID(ctx)
	return ctx, id, err
}

func (c *cli) balance(ctx context.Context, id uuid.UUID) error {
	v, err := c.app.AccountService.GetAccount(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s  %s\n", v.FullName, dimColor.Sprint(v.Number))
	okColor.Fprintf(c.out, "Balance: %s\n", v.Balance)
	return nil
}

func (c *cli) lookup(ctx context.Context, query string) error {
	res, err := c.app.AccountService.Lookup(ctx, query)
	if err != nil {
		return err
	}
	if !res.Found {
		sentColor.Fprintln(c.out, "No account matches; sending there needs -recipient")
		return nil
	}
	okColor.Fprintf(c.out, "%s  %s\n", res.Name, res.AccountNumber)
	return nil
}

func (c *cli) send(ctx context.Context, id uuid.UUID, req transfer.TransferRequest) error {
	req.InitiatorID = id
	res, err := c.app.TransferEngine.Transfer(ctx, req)
	if err != nil {
		return err
	}
	c.printResult("Sent", res)
	return nil
}

func (c *cli) withdraw(ctx context.Context, id uuid.UUID, amount, key string) error {
	res, err := c.app.TransferEngine.Withdraw(ctx, transfer.WithdrawRequest{
		InitiatorID: id, Amount: amount, IdempotencyKey: key,
	})
	if err != nil {
		return err
	}
	c.printResult("Withdrew", res)
	return nil
}

func (c *cli) printResult(verb string, res *transfer.TransferResult) {
	suffix := ""
	if res.Replayed {
		suffix = dimColor.Sprint(" (already applied)")
	}
	okColor.Fprintf(c.out, "%s %s to %s%s\n", verb, res.Entry.Amount, res.Entry.CounterpartyName, suffix)
	fmt.Fprintf(c.out, "Balance: %s\n", res.Balance)
}

func (c *cli) history(ctx context.Context, id uuid.UUID) error {
	seq, err := c.app.HistoryService.History(ctx, id)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tTYPE\tFROM\tTO\tAMOUNT\tNOTE")
	n := 0
	for v, err := range seq {
		if err != nil {
			return err
		}
		amount := "+" + v.Amount.String()
		if v.IsSent {
			amount = sentColor.Sprint("-" + v.Amount.String())
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			v.CreatedAt.Local().Format("2006-01-02 15:04"), v.Kind, v.SenderName, v.RecipientName, amount, v.Note)
		n++
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if n == 0 {
		dimColor.Fprintln(c.out, "No transactions yet")
	}
	return nil
}

func (c *cli) contacts(ctx context.Context, id uuid.UUID) error {
	limit := history.DefaultRecentLimit
	if cfg := c.app.Config.Ledger; cfg != nil && cfg.RecentContacts > 0 {
		limit = cfg.RecentContacts
	}
	list, err := c.app.HistoryService.RecentCounterparties(ctx, id, limit)
	if err != nil {
		return err
	}
	for _, cp := range list {
		ref := cp.Query
		if cp.AccountNumber != nil {
			ref = *cp.AccountNumber
		}
		fmt.Fprintf(c.out, "%s  %s\n", cp.Name, dimColor.Sprint(ref))
	}
	return nil
}

// describe renders classified errors by their user-facing message.
func describe(err error) string {
	if de, ok := domain.AsError(err); ok {
		return de.Message
	}
	return err.Error()
}

var stdin = bufio.NewReader(os.Stdin)

func promptPassword(prompt string) (string, error) {
	if pw := os.Getenv("CASHFAKE_PASSWORD"); pw != "" {
		return pw, nil
	}
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, prompt)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		return string(b), err
	}
	line, err := stdin.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
