package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var identitiesCmd = &cobra.Command{
	Use:   "identities",
	Short: "List enrolled identities",
	Long: `List the names enrolled in the gallery.

A person can have more than one sample; names are listed once, in
enrollment order.`,
	RunE: runIdentities,
}

func init() {
	rootCmd.AddCommand(identitiesCmd)

	identitiesCmd.Flags().Bool("json", false, "Output as JSON")
}

func runIdentities(cmd *cobra.Command, args []string) error {
	asJSON := mustGetBool(cmd, "json")

	ctx := context.Background()
	s, err := buildStack(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	names := s.gallery.Names()

	if asJSON {
		payload := map[string]any{
			"names":   names,
			"samples": s.gallery.Len(),
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(payload)
	}

	if len(names) == 0 {
		fmt.Println("No identities enrolled")
		return nil
	}
	for _, name := range names {
		fmt.Println(name)
	}
	fmt.Printf("%d name(s), %d sample(s)\n", len(names), s.gallery.Len())
	return nil
}
