package terminal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"billdesk/m/domain"
)

// Counter is the session surface the command loop drives.
type Counter interface {
	Search(ctx context.Context, query string)
	Select(n int) error
	EditQuantity(id domain.ProductID, raw string) error
	Remove(id domain.ProductID) error
	Checkout(ctx context.Context) error
	RefreshHistory(ctx context.Context) error
	ShowCart()
}

const helpText = `Commands:
  search <text>     find products (s)
  add <n>           add the n-th search result to the cart (a)
  qty <id> <value>  set the quantity of a cart line
  rm <id>           remove a cart line
  cart              show the cart
  checkout          save the cart as a bill
  history           reload recent bills
  help              show this text
  quit              leave`

// Run reads commands from in until quit, EOF or ctx is done.
func Run(ctx context.Context, counter Counter, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprintln(out, `Type "help" for commands.`)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}

		cmd, arg, _ := strings.Cut(strings.TrimSpace(scanner.Text()), " ")
		arg = strings.TrimSpace(arg)
		switch strings.ToLower(cmd) {
		case "":
		case "search", "s":
			counter.Search(ctx, arg)
		case "add", "a":
			n, err := strconv.Atoi(arg)
			if err != nil {
				fmt.Fprintln(out, "usage: add <n>")
				continue
			}
			_ = counter.Select(n)
		case "qty":
			id, raw, ok := strings.Cut(arg, " ")
			if !ok || id == "" {
				fmt.Fprintln(out, "usage: qty <id> <value>")
				continue
			}
			_ = counter.EditQuantity(domain.ProductID(id), strings.TrimSpace(raw))
		case "rm":
			if arg == "" {
				fmt.Fprintln(out, "usage: rm <id>")
				continue
			}
			_ = counter.Remove(domain.ProductID(arg))
		case "cart":
			counter.ShowCart()
		case "checkout":
			_ = counter.Checkout(ctx)
		case "history":
			_ = counter.RefreshHistory(ctx)
		case "help", "?":
			fmt.Fprintln(out, helpText)
		case "quit", "exit", "q":
			return nil
		default:
			fmt.Fprintf(out, "unknown command %q, type help\n", cmd)
		}
	}
}
