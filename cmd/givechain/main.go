package main

import (
	"fmt"
	"os"
	"strconv"

	"givechain/internal/app"
	"givechain/internal/config"
	"givechain/internal/give"
	"givechain/internal/server"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates a GiveApp. The caller must defer
// app.Close(). operation identifies the CLI command being run (e.g. "Stats",
// "Donate").
func newApp(operation string) (*app.GiveApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewGiveApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

var rootCmd = &cobra.Command{
	Use:   "givechain",
	Short: "Charity donation platform toolkit",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		fmt.Printf("Ledger:   %s\n", cfg.Ledger.Type)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:  %s\n", cfg.LogDir)
		fmt.Printf("Ledger:   %s\n", cfg.Ledger.Type)
		if cfg.Ledger.Type == "eth" {
			fmt.Printf("RPC URL:  %s\n", cfg.Ledger.RPCURL)
			fmt.Printf("Contract: %s\n", cfg.Ledger.ContractAddress)
		}
		if cfg.Wallet.Address != "" {
			fmt.Printf("Wallet:   %s\n", cfg.Wallet.Address)
		}
		return nil
	},
}

// stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate platform statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		charity, _ := cmd.Flags().GetString("charity")
		donors, _ := cmd.Flags().GetBool("donors")

		a, err := newApp("Stats")
		if err != nil {
			return err
		}
		defer a.Close()

		snap, err := a.Stats(cmd.Context(), charity, donors)
		if err != nil {
			return err
		}

		fmt.Printf("Scope:            %s\n", snap.Scope.String())
		fmt.Printf("Charities:        %d\n", snap.Charities)
		fmt.Printf("Campaigns:        %d (%d active)\n", snap.Campaigns, snap.ActiveCampaigns)
		fmt.Printf("Total donated:    %s\n", give.FormatAmount(snap.TotalDonated))
		if donors {
			fmt.Printf("Distinct donors:  %d\n", snap.DistinctDonors)
		}

		if len(snap.TopCampaigns) > 0 {
			fmt.Println("\nTop campaigns:")
			for i, st := range snap.TopCampaigns {
				fmt.Printf("  %d. %-30s %s / %s (%.0f%%)\n",
					i+1, st.Title,
					give.FormatAmount(st.TotalDonated),
					give.FormatAmount(st.GoalAmount),
					st.Progress)
			}
		}
		if donors && len(snap.RecentDonations) > 0 {
			fmt.Println("\nRecent donations:")
			for _, d := range snap.RecentDonations {
				fmt.Printf("  %s  %s  %s\n",
					give.TruncateAddress(d.Donor),
					give.FormatAmount(d.Amount),
					give.FormatDate(d.Timestamp))
			}
		}

		if !snap.Complete {
			fmt.Printf("\nWARNING: snapshot incomplete; failed scopes: %v\n", snap.Failed)
		}
		return nil
	},
}

// campaigns command
var campaignsCmd = &cobra.Command{
	Use:   "campaigns",
	Short: "List campaigns with progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		charity, _ := cmd.Flags().GetString("charity")

		a, err := newApp("Campaigns")
		if err != nil {
			return err
		}
		defer a.Close()

		snap, err := a.Campaigns(cmd.Context(), charity)
		if err != nil {
			return err
		}

		if len(snap.AllCampaigns) == 0 {
			fmt.Println("No campaigns found.")
			return nil
		}

		for _, st := range snap.AllCampaigns {
			status := "ended"
			if st.EffectivelyActive {
				status = fmt.Sprintf("%dd left", st.DaysLeft)
			}
			fmt.Printf("%s#%d  %-30s %s / %s (%.0f%%)  %s\n",
				give.TruncateAddress(st.Charity), st.Index, st.Title,
				give.FormatAmount(st.TotalDonated),
				give.FormatAmount(st.GoalAmount),
				st.Progress, status)
		}

		if !snap.Complete {
			fmt.Printf("\nWARNING: listing incomplete; failed scopes: %v\n", snap.Failed)
		}
		return nil
	},
}

// requests command
var requestsCmd = &cobra.Command{
	Use:   "requests",
	Short: "List charity registration requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		pending, _ := cmd.Flags().GetBool("pending")

		a, err := newApp("Requests")
		if err != nil {
			return err
		}
		defer a.Close()

		requests, err := a.Requests(cmd.Context(), pending)
		if err != nil {
			return err
		}

		if len(requests) == 0 {
			fmt.Println("No requests found.")
			return nil
		}
		for _, r := range requests {
			state := "pending"
			if r.Approved {
				state = "approved"
			}
			fmt.Printf("%3d  %-8s %s  %s\n", r.ID, state, give.TruncateAddress(r.Requester), r.Name)
		}
		return nil
	},
}

// connect command
var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect the configured wallet and show derived roles",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Connect")
		if err != nil {
			return err
		}
		defer a.Close()

		st, err := a.Connect(cmd.Context())
		if err != nil {
			return fmt.Errorf("connecting wallet: %w", err)
		}

		fmt.Printf("Status:  %s\n", st.Status)
		fmt.Printf("Account: %s\n", st.Account)
		fmt.Printf("Admin:   %t\n", st.Role.IsAdmin)
		fmt.Printf("Charity: %t\n", st.Role.IsCharity)
		if st.RoleDegraded {
			fmt.Println("WARNING: role lookup degraded; showing least-privileged roles")
		}
		return nil
	},
}

// donate command
var donateCmd = &cobra.Command{
	Use:   "donate CHARITY INDEX AMOUNT",
	Short: "Donate to a campaign",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		message, _ := cmd.Flags().GetString("message")

		index, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid campaign index: %q", args[1])
		}

		a, err := newApp("Donate")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Donate(cmd.Context(), args[0], index, args[2], message); err != nil {
			return err
		}

		fmt.Printf("Donated %s to %s#%d\n", args[2], give.TruncateAddress(args[0]), index)
		return nil
	},
}

// charity command
var charityCmd = &cobra.Command{
	Use:   "charity",
	Short: "Charity operations",
}

var charityRequestCmd = &cobra.Command{
	Use:   "request NAME DESCRIPTION METADATA_URL",
	Short: "Request charity registration",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("RequestCharity")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.RequestCharity(cmd.Context(), args[0], args[1], args[2]); err != nil {
			return err
		}
		fmt.Println("Registration request submitted.")
		return nil
	},
}

var charityCreateCmd = &cobra.Command{
	Use:   "create-campaign TITLE DESCRIPTION GOAL DAYS",
	Short: "Create a campaign",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		days, err := strconv.Atoi(args[3])
		if err != nil {
			return fmt.Errorf("invalid duration: %q", args[3])
		}

		a, err := newApp("CreateCampaign")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.CreateCampaign(cmd.Context(), args[0], args[1], args[2], days); err != nil {
			return err
		}
		fmt.Printf("Campaign %q created, running for %d day(s)\n", args[0], days)
		return nil
	},
}

var charityToggleCmd = &cobra.Command{
	Use:   "toggle INDEX",
	Short: "Toggle a campaign's active flag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid campaign index: %q", args[0])
		}

		a, err := newApp("ToggleCampaign")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.ToggleCampaign(cmd.Context(), index); err != nil {
			return err
		}
		fmt.Printf("Campaign %d toggled\n", index)
		return nil
	},
}

var charityWithdrawCmd = &cobra.Command{
	Use:   "withdraw INDEX",
	Short: "Withdraw a campaign's raised funds",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid campaign index: %q", args[0])
		}

		a, err := newApp("WithdrawCampaign")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.WithdrawCampaign(cmd.Context(), index); err != nil {
			return err
		}
		fmt.Printf("Withdrawal of campaign %d submitted\n", index)
		return nil
	},
}

// admin command
var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Platform owner operations",
}

var adminApproveCmd = &cobra.Command{
	Use:   "approve REQUEST_ID",
	Short: "Approve a charity registration request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid request id: %q", args[0])
		}

		a, err := newApp("ApproveRequest")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.ApproveRequest(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Printf("Request %d approved\n", id)
		return nil
	},
}

var adminSetMinCmd = &cobra.Command{
	Use:   "set-min AMOUNT",
	Short: "Set the platform minimum donation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SetMinimumDonation")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.SetMinimumDonation(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Minimum donation set to %s\n", args[0])
		return nil
	},
}

var adminPauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause the platform",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SetPaused")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.SetPaused(cmd.Context(), true); err != nil {
			return err
		}
		fmt.Println("Platform paused")
		return nil
	},
}

var adminUnpauseCmd = &cobra.Command{
	Use:   "unpause",
	Short: "Unpause the platform",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SetPaused")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.SetPaused(cmd.Context(), false); err != nil {
			return err
		}
		fmt.Println("Platform unpaused")
		return nil
	},
}

// serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read-only JSON API",
	RunE: func(cmd *cobra.Command, args []string) error {
		listen, _ := cmd.Flags().GetString("listen")

		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("getting defaults: %w", err)
		}
		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("reading config: %w", err)
		}

		a, err := app.NewGiveApp(cfg, "Serve")
		if err != nil {
			return fmt.Errorf("initializing app: %w", err)
		}
		defer a.Close()

		if listen == "" {
			listen = cfg.Server.Listen
		}
		if listen == "" {
			listen = ":8547"
		}

		srv := server.New(a.Aggregator(), a.Gateway(), cfg.Server, cfg.Aggregation, a.Logger())
		return srv.Run(listen)
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	charityCmd.AddCommand(charityRequestCmd)
	charityCmd.AddCommand(charityCreateCmd)
	charityCmd.AddCommand(charityToggleCmd)
	charityCmd.AddCommand(charityWithdrawCmd)

	adminCmd.AddCommand(adminApproveCmd)
	adminCmd.AddCommand(adminSetMinCmd)
	adminCmd.AddCommand(adminPauseCmd)
	adminCmd.AddCommand(adminUnpauseCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().String("charity", "", "Limit the snapshot to one charity address")
	statsCmd.Flags().Bool("donors", false, "Also compute donor counts and recent donations")
	rootCmd.AddCommand(campaignsCmd)
	campaignsCmd.Flags().String("charity", "", "Limit the listing to one charity address")
	rootCmd.AddCommand(requestsCmd)
	requestsCmd.Flags().Bool("pending", false, "Only show unapproved requests")
	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(donateCmd)
	donateCmd.Flags().String("message", "", "Message to attach to the donation")
	rootCmd.AddCommand(charityCmd)
	rootCmd.AddCommand(adminCmd)
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", "", "Listen address (overrides config)")
}
