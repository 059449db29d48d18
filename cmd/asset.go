package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/finbuddy/fin/internal/controller"
	"github.com/finbuddy/fin/internal/currency"
	"github.com/finbuddy/fin/internal/output"
	"github.com/finbuddy/fin/pkg/finbuddy"
)

// newAssetCmd creates the asset command group.
func newAssetCmd(opts *apiOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "asset",
		Aliases: []string{"assets"},
		Short:   "Manage holdings",
		Long: `List, add, update and sell the holdings of the active portfolio.

Examples:
  fin asset                                          # List holdings
  fin asset add --type stock --symbol AAPL --name "Apple Inc." --quantity 10 --price 150
  fin asset sell 12 5                                # Sell 5 units of asset 12
  fin asset price 12 182.50                          # Set the current price`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssetList(cmd, opts, "")
		},
	}
	cmd.SilenceUsage = true

	var filter string
	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List holdings",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssetList(cmd, opts, filter)
		},
	}
	listCmd.Flags().StringVarP(&filter, "filter", "f", "", "Only show holdings whose name or symbol contains this text")

	cmd.AddCommand(
		listCmd,
		&cobra.Command{
			Use:   "show ID",
			Short: "Show one holding",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runAssetShow(cmd, opts, args[0])
			},
		},
		newAssetAddCmd(opts),
		newAssetUpdateCmd(opts),
		newAssetDeleteCmd(opts),
		&cobra.Command{
			Use:   "sell ID QUANTITY",
			Short: "Sell part or all of a holding",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runAssetSell(cmd, opts, args[0], args[1])
			},
		},
		&cobra.Command{
			Use:   "price ID PRICE",
			Short: "Set a holding's current price",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runAssetPrice(cmd, opts, args[0], args[1])
			},
		},
		&cobra.Command{
			Use:   "search QUERY",
			Short: "Search holdings on the backend",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runAssetSearch(cmd, opts, strings.Join(args, " "))
			},
		},
	)

	return cmd
}

var assetHeaders = []string{"ID", "Name", "Symbol", "Type", "Qty", "Price", "Value", "Gain/Loss", "G/L %"}

func assetRows(conv *currency.Converter, assets []finbuddy.Asset) [][]string {
	rows := make([][]string, 0, len(assets))
	for _, a := range assets {
		rows = append(rows, []string{
			strconv.FormatInt(a.ID, 10),
			a.Name,
			a.DisplaySymbol(),
			string(a.AssetType),
			strconv.FormatInt(a.Quantity, 10),
			conv.Format(a.CurrentPrice),
			conv.Format(a.CurrentValue),
			conv.Format(a.GainLoss),
			currency.FormatPercentage(a.GainLossPercentage),
		})
	}
	return rows
}

// openAssets loads the assets page for the selected portfolio.
func openAssets(cmd *cobra.Command, opts *apiOptions) (*session, *controller.Assets, error) {
	s := opts.connect()
	ctx := cmd.Context()
	id, err := s.portfolio(ctx, opts.portfolioID)
	if err != nil {
		return nil, nil, err
	}

	a := controller.NewAssets(s.client, s.deps)
	if err := a.Open(ctx, id); err != nil {
		a.Close()
		return nil, nil, err
	}
	return s, a, nil
}

func runAssetList(cmd *cobra.Command, opts *apiOptions, filter string) error {
	s, a, err := openAssets(cmd, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	a.Filter(filter)
	rows := a.Rows()
	if len(rows) == 0 && !opts.jsonMode {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No assets found")
		return nil
	}
	return opts.formatter(cmd.OutOrStdout()).Table(assetHeaders, assetRows(s.deps.Currency, rows))
}

func runAssetSearch(cmd *cobra.Command, opts *apiOptions, query string) error {
	s, a, err := openAssets(cmd, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.SearchNow(cmd.Context(), query); err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	rows := a.Rows()
	if len(rows) == 0 && !opts.jsonMode {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "No assets match %q\n", query)
		return nil
	}
	return opts.formatter(cmd.OutOrStdout()).Table(assetHeaders, assetRows(s.deps.Currency, rows))
}

func runAssetShow(cmd *cobra.Command, opts *apiOptions, arg string) error {
	id, err := parseID(arg, "asset")
	if err != nil {
		return err
	}

	s := opts.connect()
	a, err := s.client.GetAsset(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to fetch asset: %w", err)
	}

	f := opts.formatter(cmd.OutOrStdout())
	if opts.jsonMode {
		return f.Print(a)
	}
	return f.Details(assetFields(*a))
}

func assetFields(a finbuddy.Asset) []output.Field {
	code := a.Currency
	if code == "" {
		code = currency.Base
	}
	money := func(d decimal.Decimal) string { return currency.FormatAmount(d, code) }

	fields := []output.Field{
		{Label: "ID", Value: strconv.FormatInt(a.ID, 10)},
		{Label: "Name", Value: a.Name},
		{Label: "Symbol", Value: a.DisplaySymbol()},
		{Label: "Type", Value: string(a.AssetType)},
		{Label: "Quantity", Value: strconv.FormatInt(a.Quantity, 10)},
		{Label: "Purchase Price", Value: money(a.PurchasePrice)},
		{Label: "Current Price", Value: money(a.CurrentPrice)},
		{Label: "Invested", Value: money(a.InvestedAmount)},
		{Label: "Current Value", Value: money(a.CurrentValue)},
		{Label: "Gain/Loss", Value: money(a.GainLoss) + " (" + currency.FormatPercentage(a.GainLossPercentage) + ")"},
	}
	optional := []output.Field{
		{Label: "Purchase Date", Value: a.PurchaseDate},
		{Label: "Exchange", Value: a.Exchange},
		{Label: "Sector", Value: a.Sector},
		{Label: "Issuer", Value: a.Issuer},
		{Label: "Maturity", Value: a.MaturityDate},
		{Label: "Fund House", Value: a.FundHouse},
		{Label: "Scheme", Value: a.SchemeName},
		{Label: "Frequency", Value: a.Frequency},
		{Label: "Notes", Value: a.Notes},
	}
	for _, fl := range optional {
		if fl.Value != "" {
			fields = append(fields, fl)
		}
	}
	return fields
}

// assetFlags are the editable fields shared by add and update.
type assetFlags struct {
	assetType string
	name      string
	symbol    string
	quantity  int64
	price     string
	current   string
	date      string
	code      string
	notes     string
	monthly   string
	scheme    string
}

func (f *assetFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.assetType, "type", "t", "", "Asset type (stock, bond, mutual-fund, sip)")
	cmd.Flags().StringVarP(&f.name, "name", "n", "", "Asset name")
	cmd.Flags().StringVarP(&f.symbol, "symbol", "s", "", "Ticker symbol")
	cmd.Flags().Int64VarP(&f.quantity, "quantity", "q", 0, "Quantity held")
	cmd.Flags().StringVar(&f.price, "price", "", "Purchase price per unit")
	cmd.Flags().StringVar(&f.current, "current-price", "", "Current price per unit (defaults to the purchase price)")
	cmd.Flags().StringVar(&f.date, "date", "", "Purchase date (YYYY-MM-DD, defaults to today)")
	cmd.Flags().StringVarP(&f.code, "currency", "c", "", "Currency of the prices")
	cmd.Flags().StringVar(&f.notes, "notes", "", "Free-form notes")
	cmd.Flags().StringVar(&f.monthly, "monthly", "", "Monthly investment (SIP only)")
	cmd.Flags().StringVar(&f.scheme, "scheme", "", "Scheme name (SIP and mutual funds)")
}

// apply copies the flags the user set onto a.
func (f *assetFlags) apply(cmd *cobra.Command, a *finbuddy.Asset) error {
	changed := cmd.Flags().Changed

	if changed("type") {
		t, err := finbuddy.ParseAssetType(f.assetType)
		if err != nil {
			return err
		}
		a.AssetType = t
	}
	if changed("name") {
		a.Name = f.name
	}
	if changed("symbol") {
		a.Symbol = f.symbol
	}
	if changed("quantity") {
		a.Quantity = f.quantity
	}
	for _, p := range []struct {
		flag  string
		value string
		dst   *decimal.Decimal
	}{
		{"price", f.price, &a.PurchasePrice},
		{"current-price", f.current, &a.CurrentPrice},
	} {
		if !changed(p.flag) {
			continue
		}
		d, err := decimal.NewFromString(p.value)
		if err != nil {
			return fmt.Errorf("invalid %s: %s", p.flag, p.value)
		}
		*p.dst = d
	}
	if changed("monthly") {
		d, err := decimal.NewFromString(f.monthly)
		if err != nil {
			return fmt.Errorf("invalid monthly: %s", f.monthly)
		}
		a.MonthlyInvestment = decimal.NewNullDecimal(d)
	}
	if changed("date") {
		if _, err := time.Parse(time.DateOnly, f.date); err != nil {
			return fmt.Errorf("invalid date %q (use YYYY-MM-DD)", f.date)
		}
		a.PurchaseDate = f.date
	}
	if changed("currency") {
		a.Currency = currency.Normalize(f.code)
	}
	if changed("notes") {
		a.Notes = f.notes
	}
	if changed("scheme") {
		a.SchemeName = f.scheme
	}
	return nil
}

func newAssetAddCmd(opts *apiOptions) *cobra.Command {
	var flags assetFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a holding to the portfolio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, a, err := openAssets(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			in := finbuddy.Asset{
				AssetType:    finbuddy.AssetStock,
				PurchaseDate: time.Now().Format(time.DateOnly),
				Currency:     currency.Base,
			}
			if err := flags.apply(cmd, &in); err != nil {
				return err
			}
			if in.CurrentPrice.IsZero() {
				in.CurrentPrice = in.PurchasePrice
			}

			created, err := a.Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			if opts.jsonMode {
				return opts.formatter(cmd.OutOrStdout()).Print(created)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Added %s (asset %d)\n", created.Name, created.ID)
			return err
		},
	}

	flags.register(cmd)
	return cmd
}

func newAssetUpdateCmd(opts *apiOptions) *cobra.Command {
	var flags assetFlags

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Edit a holding",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "asset")
			if err != nil {
				return err
			}

			s := opts.connect()
			ctx := cmd.Context()
			current, err := s.client.GetAsset(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to fetch asset: %w", err)
			}
			in := *current
			if err := flags.apply(cmd, &in); err != nil {
				return err
			}

			portfolioID, err := s.portfolio(ctx, opts.portfolioID)
			if err != nil {
				return err
			}
			a := controller.NewAssets(s.client, s.deps)
			defer a.Close()
			if err := a.Open(ctx, portfolioID); err != nil {
				return err
			}

			updated, err := a.Update(ctx, id, in)
			if err != nil {
				return err
			}
			f := opts.formatter(cmd.OutOrStdout())
			if opts.jsonMode {
				return f.Print(updated)
			}
			return f.Details(assetFields(*updated))
		},
	}

	flags.register(cmd)
	return cmd
}

func newAssetDeleteCmd(opts *apiOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "delete ID",
		Aliases: []string{"rm"},
		Short:   "Delete a holding",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "asset")
			if err != nil {
				return err
			}

			_, a, err := openAssets(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Delete(cmd.Context(), id); err != nil {
				return cancelled(cmd, err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deleted asset %d\n", id)
			return err
		},
	}

	cmd.Flags().BoolVarP(&opts.assumeYes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func runAssetSell(cmd *cobra.Command, opts *apiOptions, idArg, qtyArg string) error {
	id, err := parseID(idArg, "asset")
	if err != nil {
		return err
	}
	qty, err := strconv.ParseInt(qtyArg, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid quantity: %s", qtyArg)
	}

	_, a, err := openAssets(cmd, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.Sell(cmd.Context(), id, qty)
}

func runAssetPrice(cmd *cobra.Command, opts *apiOptions, idArg, priceArg string) error {
	id, err := parseID(idArg, "asset")
	if err != nil {
		return err
	}
	price, err := decimal.NewFromString(priceArg)
	if err != nil {
		return fmt.Errorf("invalid price: %s", priceArg)
	}

	s, a, err := openAssets(cmd, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.UpdatePrice(cmd.Context(), id, price); err != nil {
		return err
	}
	for _, as := range a.Rows() {
		if as.ID == id {
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (value %s)\n",
				as.DisplaySymbol(), s.deps.Currency.Format(as.CurrentPrice), s.deps.Currency.Format(as.CurrentValue))
			return err
		}
	}
	return nil
}

func init() {
	var opts apiOptions
	cmd := newAssetCmd(&opts)
	cmd.PersistentPreRunE = preRun(&opts)
	rootCmd.AddCommand(cmd)
}
