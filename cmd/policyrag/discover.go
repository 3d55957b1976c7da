package main

import (
	"github.com/spf13/cobra"
)

var discoverCmd = &cobra.Command{
	Use:   "discover [listing-url]",
	Short: "List the PDF links on a listing page",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDiscover,
}

func init() {
	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, args []string) error {
	listing := cfg.ListingURL
	if len(args) == 1 {
		listing = args[0]
	}

	links, err := newCrawler(cfg).Discover(cmd.Context(), listing)
	if err != nil {
		return err
	}
	for _, l := range links {
		cmd.Println(l)
	}
	return nil
}
