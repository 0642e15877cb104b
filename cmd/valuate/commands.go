package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	valuationapp "github.com/tradein/backend/internal/application/valuation"
	"github.com/tradein/backend/internal/domain/valuation"
	"github.com/tradein/backend/internal/infrastructure/accutrade"
	"github.com/tradein/backend/internal/infrastructure/config"
	"github.com/tradein/backend/internal/infrastructure/logger"
)

// gatewayBuilder creates the gateway once flags are parsed
type gatewayBuilder func(opts *rootOptions) (*valuationapp.GatewayService, error)

type rootOptions struct {
	configFile string
	baseURL    string
	timeout    time.Duration
	verbose    bool
}

func newRootCmd(out io.Writer, build gatewayBuilder) *cobra.Command {
	opts := &rootOptions{}
	var gateway *valuationapp.GatewayService

	root := &cobra.Command{
		Use:          "valuate",
		Short:        "Query vehicle valuations from the command line",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			g, err := build(opts)
			if err != nil {
				return err
			}
			gateway = g
			return nil
		},
	}
	root.SetOut(out)

	root.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "config file (default ./config.toml)")
	root.PersistentFlags().StringVar(&opts.baseURL, "base-url", "", "override the provider base URL")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 45*time.Second, "overall command timeout")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log provider calls to stderr")

	run := func(fn func(ctx context.Context, gw *valuationapp.GatewayService) (any, error)) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()
			result, err := fn(ctx, gateway)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		}
	}

	root.AddCommand(
		vinCmd(run),
		quoteCmd(run),
		makesCmd(run),
		modelsCmd(run),
		trimsCmd(run),
	)
	return root
}

type runner func(fn func(ctx context.Context, gw *valuationapp.GatewayService) (any, error)) func(*cobra.Command, []string) error

func vinCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "vin <vin>",
		Short: "Decode a VIN into trim-level candidates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, gw *valuationapp.GatewayService) (any, error) {
				candidates, err := gw.DecodeVIN(ctx, args[0])
				if err != nil {
					return nil, err
				}
				return valuationapp.ToVinCandidateResponses(candidates), nil
			})(cmd, args)
		},
	}
}

// quoteResult is the printed form of a full valuation
type quoteResult struct {
	Pricing    valuationapp.PricingResponse           `json:"pricing"`
	Adjustment valuationapp.MileageAdjustmentResponse `json:"adjustment"`
	Adjusted   float64                                `json:"adjustedValue"`
	Policy     string                                 `json:"policy"`
}

func quoteCmd(run runner) *cobra.Command {
	var mileage int64
	cmd := &cobra.Command{
		Use:   "quote <gid>",
		Short: "Price a vehicle configuration with the mileage adjustment applied",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, gw *valuationapp.GatewayService) (any, error) {
				quote, err := gw.Quote(ctx, args[0], mileage)
				if err != nil {
					return nil, err
				}
				return quoteResult{
					Pricing:    valuationapp.ToPricingResponse(quote.Pricing),
					Adjustment: valuationapp.ToMileageAdjustmentResponse(quote.Adjustment),
					Adjusted:   quote.AdjustedValue().InexactFloat64(),
					Policy:     gw.PolicyName(),
				}, nil
			})(cmd, args)
		},
	}
	cmd.Flags().Int64VarP(&mileage, "mileage", "m", 0, "odometer reading")
	_ = cmd.MarkFlagRequired("mileage")
	return cmd
}

func makesCmd(run runner) *cobra.Command {
	var year int
	cmd := &cobra.Command{
		Use:   "makes",
		Short: "List the makes catalogued for a model year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, gw *valuationapp.GatewayService) (any, error) {
				makes, err := gw.ListMakes(ctx, year)
				if err != nil {
					return nil, err
				}
				return valuationapp.ToCatalogOptionResponses(makes), nil
			})(cmd, args)
		},
	}
	cmd.Flags().IntVarP(&year, "year", "y", 0, "model year")
	_ = cmd.MarkFlagRequired("year")
	return cmd
}

func modelsCmd(run runner) *cobra.Command {
	var (
		year     int
		makeName string
	)
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the models of a make",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, gw *valuationapp.GatewayService) (any, error) {
				models, err := gw.ListModels(ctx, year, makeName)
				if err != nil {
					return nil, err
				}
				if models == nil {
					models = []string{}
				}
				return models, nil
			})(cmd, args)
		},
	}
	cmd.Flags().IntVarP(&year, "year", "y", 0, "model year")
	cmd.Flags().StringVar(&makeName, "make", "", "make value from the makes listing")
	_ = cmd.MarkFlagRequired("year")
	_ = cmd.MarkFlagRequired("make")
	return cmd
}

func trimsCmd(run runner) *cobra.Command {
	var (
		year     int
		makeName string
		model    string
	)
	cmd := &cobra.Command{
		Use:   "trims",
		Short: "List the trims of a model with their gids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, gw *valuationapp.GatewayService) (any, error) {
				trims, err := gw.ListTrims(ctx, year, makeName, model)
				if err != nil {
					return nil, err
				}
				return valuationapp.ToTrimOptionResponses(trims), nil
			})(cmd, args)
		},
	}
	cmd.Flags().IntVarP(&year, "year", "y", 0, "model year")
	cmd.Flags().StringVar(&makeName, "make", "", "make name")
	cmd.Flags().StringVar(&model, "model", "", "model name")
	_ = cmd.MarkFlagRequired("year")
	_ = cmd.MarkFlagRequired("make")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// gatewayFromConfig wires the provider client and mileage policy from the
// same configuration the server reads
func gatewayFromConfig(opts *rootOptions) (*valuationapp.GatewayService, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configFile != "" {
		cfg, err = config.LoadFile(opts.configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	log := zap.NewNop()
	if opts.verbose {
		log, err = logger.New(&logger.Config{
			Level:      "debug",
			Format:     "console",
			Output:     "stderr",
			TimeFormat: "15:04:05.000",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
	}

	baseURL := cfg.Provider.BaseURL
	if opts.baseURL != "" {
		baseURL = opts.baseURL
	}
	client, err := accutrade.NewClient(&accutrade.Config{
		BaseURL:          baseURL,
		APIKeyEnv:        cfg.Provider.APIKeyEnv,
		TimeoutSeconds:   cfg.Provider.TimeoutSeconds,
		MaxResponseBytes: cfg.Provider.MaxResponseBytes,
	}, accutrade.WithLogger(log))
	if err != nil {
		return nil, err
	}

	policy, err := valuation.NewMileagePolicy(cfg.Valuation.MileagePolicy, cfg.Valuation.RatePerThousand, cfg.Valuation.FlatAmount)
	if err != nil {
		return nil, err
	}
	return valuationapp.NewGatewayService(client, policy, cfg.Valuation.DefaultAverageMileage, log), nil
}
