// ABOUTME: Quote command fetches the latest intraday price for one symbol
// ABOUTME: Calls the market data provider directly without retrieval or narrative
package commands

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harper/finassist/internal/agents"
	"github.com/harper/finassist/internal/models"
)

// NewQuoteCmd creates the quote command
func NewQuoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quote <symbol>",
		Short: "Show the latest intraday price for a ticker",
		Long: `Show the latest intraday price for a ticker.

Uses Alpha Vantage directly, or the remote market data agent when
MARKET_DATA_AGENT_URL is set.`,
		Example: `  finassist quote AAPL
  finassist quote --format json msft`,
		Args: cobra.ExactArgs(1),
		RunE: runQuote,
	}
}

func runQuote(cmd *cobra.Command, args []string) error {
	symbol := strings.ToUpper(strings.TrimSpace(args[0]))
	if symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}

	a, err := loadApp(cmd)
	if err != nil {
		return err
	}

	var res models.Result[models.MarketData]
	if a.Quoter != nil {
		res = a.Quoter.Quote(cmd.Context(), symbol)
	} else {
		res = a.Market.Lookup(cmd.Context(), "current price "+symbol)
	}
	md, ok := res.Value()
	if !ok {
		return fmt.Errorf("quote failed (%s): %s", res.Kind(), res.Reason())
	}

	if wantJSON() {
		return printJSON(cmd, agents.ToWire(md))
	}
	if !md.HasQuote() {
		fmt.Fprintln(cmd.OutOrStdout(), md.Note)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s  %s (%s)\n",
		color.New(color.Bold).Sprint(md.Symbol),
		color.GreenString(md.Price),
		md.Timestamp,
		md.Interval)
	return nil
}
