package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rezonia/invoice-mailer/internal/decimal"
	"github.com/rezonia/invoice-mailer/pkg/invoicelib"
)

var quoteCmd = &cobra.Command{
	Use:   "quote <payload.json>",
	Short: "Price an order without storing or sending it",
	Long: `Normalize the line items of an order, compute its totals and validate
the client fields, exactly as POST /invoices would, without any side effect.

The payload has the same shape as the POST /invoices body. Use "-" to read
it from stdin.

Examples:
  invoice-mailer quote order.json
  echo '{"clientName":"Ada","clientEmail":"ada@x.io","items":[{"quantity":2,"rate":5}],"tax":10}' | invoice-mailer quote - -f table`,
	Args: cobra.ExactArgs(1),
	RunE: runQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)
}

func runQuote(cmd *cobra.Command, args []string) error {
	var r io.Reader = os.Stdin
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	var req invoicelib.Request
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	q, err := invoicelib.Quote(req)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	switch outputFormat {
	case "json":
		return outputQuoteJSON(w, q)
	case "table":
		return outputQuoteTable(w, q)
	default:
		return fmt.Errorf("unsupported output format: %s", outputFormat)
	}
}

func outputQuoteJSON(w io.Writer, q *invoicelib.QuoteResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(q)
}

func outputQuoteTable(w io.Writer, q *invoicelib.QuoteResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	fmt.Fprintf(tw, "Description\tQty\tRate\tAmount\t\n")
	for _, item := range q.Draft.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n",
			item.Description,
			decimal.Plain(item.Quantity),
			decimal.Fixed2(item.Rate),
			decimal.Fixed2(item.Amount),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Bill to: %s <%s>\n", q.Draft.ClientName, q.Draft.ClientEmail)
	for _, line := range q.Summary {
		fmt.Fprintln(w, line)
	}
	return nil
}
