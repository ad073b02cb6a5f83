package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <identity-id> <display-name> <image>",
	Short: "Enroll one identity from a photo with exactly one face",
	Args:  cobra.ExactArgs(3),
	RunE:  runEnroll,
}

var unenrollCmd = &cobra.Command{
	Use:   "unenroll <identity-id>",
	Short: "Remove an identity from the gallery; its attendance history is kept",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newClient().Unenroll(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
		return nil
	},
}

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Rebuild the server's in-memory gallery from storage",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := newClient().ReloadGallery(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Gallery reloaded: %d entries\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(enrollCmd, unenrollCmd, reloadCmd)
}

func runEnroll(cmd *cobra.Command, args []string) error {
	identityID, displayName, path := args[0], args[1], args[2]

	image, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}

	e, err := newClient().Enroll(cmd.Context(), identityID, displayName, path, image)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Enrolled %s (%s)\n", e.IdentityID, e.DisplayName)
	return nil
}
