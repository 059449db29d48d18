package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/finbuddy/fin/internal/controller"
	"github.com/finbuddy/fin/internal/currency"
	"github.com/finbuddy/fin/internal/output"
	"github.com/finbuddy/fin/pkg/finbuddy"
)

// newWishlistCmd creates the wishlist command group.
func newWishlistCmd(opts *apiOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "wishlist",
		Aliases: []string{"wl", "watchlist"},
		Short:   "Watch symbols and set price alerts",
		Long: `Manage the symbols watched by the active portfolio.

Examples:
  fin wishlist                          # List watched symbols
  fin wishlist add NVDA --target 900    # Watch NVDA with a price alert
  fin wishlist update 4 --target none   # Remove the alert of item 4
  fin wishlist buy 4 10 --remove        # Buy 10 units and stop watching`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWishlistList(cmd, opts, wishlistListOptions{})
		},
	}
	cmd.SilenceUsage = true

	var listOpts wishlistListOptions
	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List watched symbols",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWishlistList(cmd, opts, listOpts)
		},
	}
	listCmd.Flags().StringVarP(&listOpts.search, "search", "s", "", "Only show items whose symbol or name contains this text")
	listCmd.Flags().StringVarP(&listOpts.category, "category", "c", "", "Only show one category (stock, bond, crypto, etf, mutual-fund)")
	listCmd.Flags().StringVar(&listOpts.sort, "sort", "", "Sort by name, price, change or added")

	deleteCmd := &cobra.Command{
		Use:     "delete ID",
		Aliases: []string{"rm"},
		Short:   "Stop watching a symbol",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWishlistDelete(cmd, opts, args[0])
		},
	}
	deleteCmd.Flags().BoolVarP(&opts.assumeYes, "yes", "y", false, "Do not ask for confirmation")

	cmd.AddCommand(
		listCmd,
		&cobra.Command{
			Use:   "summary",
			Short: "Count watched, gaining, losing and alerted items",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runWishlistSummary(cmd, opts)
			},
		},
		newWishlistAddCmd(opts),
		newWishlistUpdateCmd(opts),
		deleteCmd,
		&cobra.Command{
			Use:   "refresh",
			Short: "Fetch fresh prices for every watched symbol",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runWishlistRefresh(cmd, opts)
			},
		},
		&cobra.Command{
			Use:   "alerts",
			Short: "Show items whose price alert has triggered",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runWishlistAlerts(cmd, opts)
			},
		},
		newWishlistBuyCmd(opts),
	)

	return cmd
}

type wishlistListOptions struct {
	search   string
	category string
	sort     string
}

var wishlistHeaders = []string{"ID", "Symbol", "Name", "Category", "Price", "Change %", "Since Added", "Target", "Alert"}

func wishlistRows(conv *currency.Converter, items []finbuddy.WishlistItem) [][]string {
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		target := "-"
		if it.TargetPrice.Valid {
			target = conv.Format(it.TargetPrice.Decimal)
		}
		alert := ""
		switch {
		case it.AlertTriggered && it.AlertEnabled:
			alert = "triggered"
		case it.AlertEnabled:
			alert = "on"
		}
		rows = append(rows, []string{
			strconv.FormatInt(it.ID, 10),
			it.Symbol,
			it.Name,
			string(it.Category),
			conv.Format(it.CurrentPrice),
			currency.FormatPercentage(it.ChangePercentage),
			currency.FormatPercentage(it.PerformanceSinceAdded),
			target,
			alert,
		})
	}
	return rows
}

// openWishlist loads the wishlist of the selected portfolio.
func openWishlist(cmd *cobra.Command, opts *apiOptions) (*session, *controller.Wishlist, error) {
	s := opts.connect()
	ctx := cmd.Context()
	id, err := s.portfolio(ctx, opts.portfolioID)
	if err != nil {
		return nil, nil, err
	}

	w := controller.NewWishlist(s.client, 0, s.deps)
	if err := w.Open(ctx, id); err != nil {
		w.Stop()
		return nil, nil, err
	}
	return s, w, nil
}

func printWishlist(cmd *cobra.Command, opts *apiOptions, conv *currency.Converter, items []finbuddy.WishlistItem) error {
	if len(items) == 0 && !opts.jsonMode {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Your wishlist is empty. Add a symbol with 'fin wishlist add SYMBOL'.")
		return nil
	}
	return opts.formatter(cmd.OutOrStdout()).Table(wishlistHeaders, wishlistRows(conv, items))
}

func runWishlistList(cmd *cobra.Command, opts *apiOptions, lo wishlistListOptions) error {
	var category finbuddy.WishlistCategory
	if lo.category != "" {
		c, err := finbuddy.ParseWishlistCategory(lo.category)
		if err != nil {
			return err
		}
		category = c
	}

	s, w, err := openWishlist(cmd, opts)
	if err != nil {
		return err
	}
	defer w.Stop()

	w.Filter(lo.search, category)
	if err := w.SortBy(strings.ToLower(lo.sort)); err != nil {
		return err
	}
	return printWishlist(cmd, opts, s.deps.Currency, w.Rows())
}

func runWishlistSummary(cmd *cobra.Command, opts *apiOptions) error {
	_, w, err := openWishlist(cmd, opts)
	if err != nil {
		return err
	}
	defer w.Stop()

	summary := w.Summary()
	f := opts.formatter(cmd.OutOrStdout())
	if opts.jsonMode {
		return f.Print(summary)
	}
	return f.Details([]output.Field{
		{Label: "Watching", Value: strconv.Itoa(summary.TotalWatchlist)},
		{Label: "Gainers", Value: strconv.Itoa(summary.GainersCount)},
		{Label: "Losers", Value: strconv.Itoa(summary.LosersCount)},
		{Label: "Alerts", Value: strconv.Itoa(summary.AlertsCount)},
	})
}

// parseTarget reads a target price flag. "none" or an empty value clears it.
func parseTarget(s string) (decimal.NullDecimal, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "none") {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("invalid target price: %s", s)
	}
	return decimal.NewNullDecimal(d), nil
}

func newWishlistAddCmd(opts *apiOptions) *cobra.Command {
	var category, target, notes string

	cmd := &cobra.Command{
		Use:   "add SYMBOL",
		Short: "Watch a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := finbuddy.ParseWishlistCategory(category)
			if err != nil {
				return err
			}
			t, err := parseTarget(target)
			if err != nil {
				return err
			}

			_, w, err := openWishlist(cmd, opts)
			if err != nil {
				return err
			}
			defer w.Stop()

			item, err := w.Add(cmd.Context(), finbuddy.AddWishlistItemRequest{
				Symbol:      args[0],
				Category:    c,
				TargetPrice: t,
				Notes:       notes,
			})
			if err != nil {
				return err
			}
			if opts.jsonMode {
				return opts.formatter(cmd.OutOrStdout()).Print(item)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Watching %s (item %d)\n", item.Symbol, item.ID)
			return err
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", string(finbuddy.CategoryStock), "Category (stock, bond, crypto, etf, mutual-fund)")
	cmd.Flags().StringVarP(&target, "target", "t", "", "Target price that triggers an alert")
	cmd.Flags().StringVar(&notes, "notes", "", "Free-form notes")
	return cmd
}

func newWishlistUpdateCmd(opts *apiOptions) *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Set or clear an item's target price",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			itemID, err := parseID(args[0], "wishlist item")
			if err != nil {
				return err
			}
			t, err := parseTarget(target)
			if err != nil {
				return err
			}

			_, w, err := openWishlist(cmd, opts)
			if err != nil {
				return err
			}
			defer w.Stop()

			if err := w.UpdateTargetPrice(cmd.Context(), itemID, t); err != nil {
				return err
			}
			if t.Valid {
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Target price of item %d set to %s\n", itemID, t.Decimal.String())
			} else {
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Price alert of item %d removed\n", itemID)
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&target, "target", "t", "", "Target price, or 'none' to remove the alert")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func runWishlistDelete(cmd *cobra.Command, opts *apiOptions, arg string) error {
	itemID, err := parseID(arg, "wishlist item")
	if err != nil {
		return err
	}

	_, w, err := openWishlist(cmd, opts)
	if err != nil {
		return err
	}
	defer w.Stop()

	if err := w.Delete(cmd.Context(), itemID); err != nil {
		return cancelled(cmd, err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Removed item %d from the wishlist\n", itemID)
	return err
}

func runWishlistRefresh(cmd *cobra.Command, opts *apiOptions) error {
	s, w, err := openWishlist(cmd, opts)
	if err != nil {
		return err
	}
	defer w.Stop()

	if err := w.Refresh(cmd.Context()); err != nil {
		return err
	}
	w.CheckAlerts()
	return printWishlist(cmd, opts, s.deps.Currency, w.Rows())
}

func runWishlistAlerts(cmd *cobra.Command, opts *apiOptions) error {
	s, w, err := openWishlist(cmd, opts)
	if err != nil {
		return err
	}
	defer w.Stop()

	var triggered []finbuddy.WishlistItem
	for _, it := range w.Items() {
		if it.AlertEnabled && it.AlertTriggered {
			triggered = append(triggered, it)
		}
	}
	if len(triggered) == 0 && !opts.jsonMode {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No alerts triggered")
		return nil
	}
	w.CheckAlerts()
	return opts.formatter(cmd.OutOrStdout()).Table(wishlistHeaders, wishlistRows(s.deps.Currency, triggered))
}

func newWishlistBuyCmd(opts *apiOptions) *cobra.Command {
	var price string
	var remove bool

	cmd := &cobra.Command{
		Use:   "buy ID QUANTITY",
		Short: "Add a watched symbol to the portfolio",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			itemID, err := parseID(args[0], "wishlist item")
			if err != nil {
				return err
			}
			qty, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || qty <= 0 {
				return fmt.Errorf("invalid quantity: %s", args[1])
			}

			_, w, err := openWishlist(cmd, opts)
			if err != nil {
				return err
			}
			defer w.Stop()

			var purchase decimal.Decimal
			if price != "" {
				purchase, err = decimal.NewFromString(price)
				if err != nil {
					return fmt.Errorf("invalid price: %s", price)
				}
			} else {
				for _, it := range w.Items() {
					if it.ID == itemID {
						purchase = it.CurrentPrice
					}
				}
			}

			asset, err := w.AddToPortfolio(cmd.Context(), itemID, qty, purchase, remove)
			if err != nil {
				return err
			}
			if opts.jsonMode {
				return opts.formatter(cmd.OutOrStdout()).Print(asset)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Bought %d %s (asset %d)\n", asset.Quantity, asset.Symbol, asset.ID)
			return err
		},
	}

	cmd.Flags().StringVar(&price, "price", "", "Purchase price per unit (defaults to the current price)")
	cmd.Flags().BoolVar(&remove, "remove", false, "Stop watching the symbol after buying")
	return cmd
}

func init() {
	var opts apiOptions
	cmd := newWishlistCmd(&opts)
	cmd.PersistentPreRunE = preRun(&opts)
	rootCmd.AddCommand(cmd)
}
