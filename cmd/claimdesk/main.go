package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"claimdesk/catalog"
	"claimdesk/claim"
	"claimdesk/config"
	"claimdesk/logging"
	"claimdesk/metrics"
	"claimdesk/notify"
	"claimdesk/tracker"
)

var (
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "claimdesk",
	Short: "Warranty claim intake: customer lookup, claim submission, claim tracking",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		logger, err = logging.New(cfg.Logging.Level, cfg.Logging.Development)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the intake and tracking HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		return serve(cmd.Context(), cfg, logger)
	},
}

var lookupCmd = &cobra.Command{
	Use:   "lookup <mobile>",
	Short: "List the products registered under a mobile number",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps := wire(cfg, logger, nil)
		return runLookup(cmd.Context(), cmd.OutOrStdout(), deps.claims, args[0])
	},
}

var claimsMobile string

var claimsCmd = &cobra.Command{
	Use:   "claims",
	Short: "List submitted claims from the tracker",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Tracker.URL == "" {
			return errors.New("config: missing tracker.url")
		}
		deps := wire(cfg, logger, nil)
		return runClaims(cmd.Context(), cmd.OutOrStdout(), deps.tracker, claimsMobile)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "claimdesk.yaml", "path to the YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level")
	claimsCmd.Flags().StringVarP(&claimsMobile, "mobile", "m", "", "only show claims for this mobile number")

	rootCmd.AddCommand(serveCmd, lookupCmd, claimsCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// deps is the wired object graph shared by the commands.
type deps struct {
	loader  *catalog.Loader
	claims  *claim.Service
	tracker *tracker.Client
}

// wire builds the catalog loader, submission service and tracker client
// from cfg. A non-nil reg instruments them.
func wire(cfg *config.Config, logger *zap.Logger, reg *metrics.Registry) deps {
	loader := catalog.NewLoader(cfg.Catalog.Path, cfg.CatalogTTL(), logger.Named("catalog")).
		WithSheet(cfg.Catalog.Sheet)
	trackerClient := tracker.NewClient(cfg.Tracker.URL, cfg.TrackerTimeout(), logger.Named("tracker"))
	composer := claim.NewComposer(cfg.Mail.SubjectPrefix).WithLetter(cfg.Mail.Greeting, cfg.Mail.Signature)

	var (
		notifier claim.Notifier = notify.New(cfg.Mail, cfg.MailTimeout(), logger.Named("notify"))
		recorder claim.Tracker  = trackerClient
	)
	if reg != nil {
		loader.WithObserver(reg.CatalogObserver())
		notifier = reg.Notifier(notifier)
		recorder = reg.Tracker(recorder)
	}

	return deps{
		loader:  loader,
		claims:  claim.NewService(loader, composer, notifier, recorder, logger.Named("claim")),
		tracker: trackerClient,
	}
}

type customerLookup interface {
	Lookup(ctx context.Context, mobile string) (claim.Lookup, error)
}

type claimLister interface {
	List(ctx context.Context) ([]claim.Record, error)
}

func runLookup(ctx context.Context, out io.Writer, svc customerLookup, mobile string) error {
	res, err := svc.Lookup(ctx, mobile)
	if err != nil {
		var verr *claim.ValidationError
		if errors.As(err, &verr) {
			return errors.New(strings.Join(verr.Problems, "; "))
		}
		return err
	}
	if res.Warning != "" {
		fmt.Fprintln(out, "warning:", res.Warning)
	}
	if len(res.Rows) == 0 {
		fmt.Fprintf(out, "No products found for mobile number %s\n", res.Mobile)
		return nil
	}

	fmt.Fprintf(out, "Customer: %s (%s)\n", res.Customer, res.Mobile)
	for i, r := range res.Rows {
		fmt.Fprintf(out, "%2d. %s\n", i+1, catalog.Display(r))
	}
	return nil
}

func runClaims(ctx context.Context, out io.Writer, lister claimLister, mobile string) error {
	mobile = strings.TrimSpace(mobile)
	if mobile != "" && !catalog.ValidMobile(mobile) {
		return errors.New(claim.MsgMobileInvalid)
	}

	records, err := lister.List(ctx)
	if err != nil {
		return err
	}
	records = tracker.FilterByMobile(records, mobile)
	if len(records) == 0 {
		if mobile != "" {
			fmt.Fprintf(out, "No claims found for mobile number %s\n", mobile)
		} else {
			fmt.Fprintln(out, "No claims submitted yet")
		}
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CUSTOMER\tMOBILE\tSTATUS\tSUBMITTED (IST)\tPRODUCTS")
	for _, r := range tracker.Rows(records) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Customer, r.Mobile, r.Status, r.Submitted, tracker.Truncate(r.Products, tracker.CardTextLimit))
	}
	return tw.Flush()
}
