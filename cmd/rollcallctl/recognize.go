package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize <image>",
	Short: "Submit one frame and print every face's outcome",
	Long: `Submit one frame for recognition. Matched faces are recorded in the
attendance ledger at most once per identity per hour, exactly as a camera
frame would be.`,
	Args: cobra.ExactArgs(1),
	RunE: runRecognize,
}

func init() {
	rootCmd.AddCommand(recognizeCmd)
	recognizeCmd.Flags().String("station", "", "Station id (default: server's CAMERA_STATION)")
}

func runRecognize(cmd *cobra.Command, args []string) error {
	image, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}

	frame, err := newClient().Recognize(cmd.Context(), mustGetString(cmd, "station"), args[0], image)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tIDENTITY\tNAME\tDISTANCE\tRECORDED\tERROR")
	for i, f := range frame.Faces {
		id, name := "-", "Unknown"
		if f.Matched {
			id, name = f.IdentityID, f.DisplayName
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%.4f\t%t\t%s\n", i, id, name, f.Distance, f.Recorded, f.Error)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nDisplay: %s\n", frame.Display.DisplayName)
	return nil
}
