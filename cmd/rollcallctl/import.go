package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/saturnino-fabrica-de-software/rollcall/internal/client"
)

var importCmd = &cobra.Command{
	Use:   "import <manifest.yaml>",
	Short: "Enroll every identity listed in a YAML manifest",
	Long: `Enroll identities in bulk. The manifest lists one photo per identity:

  base_dir: photos          # optional, relative to the manifest
  identities:
    - id: emp-1
      name: Alice
      image: alice.jpg

Entries are enrolled in order. Failures are reported at the end and do not
stop the import unless --fail-fast is set.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().Bool("fail-fast", false, "Stop at the first failed entry")
}

// Manifest is the bulk enrollment file.
type Manifest struct {
	BaseDir    string          `yaml:"base_dir"`
	Identities []ManifestEntry `yaml:"identities"`
}

type ManifestEntry struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Image string `yaml:"image"`
}

// loadManifest parses path and resolves every image path. Image paths are
// relative to base_dir, which is itself relative to the manifest's directory.
func loadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	base := m.BaseDir
	if !filepath.IsAbs(base) {
		base = filepath.Join(filepath.Dir(path), base)
	}

	seen := make(map[string]int, len(m.Identities))
	for i := range m.Identities {
		e := &m.Identities[i]
		e.ID = strings.TrimSpace(e.ID)
		e.Name = strings.TrimSpace(e.Name)
		if e.ID == "" || e.Name == "" || e.Image == "" {
			return nil, fmt.Errorf("entry %d: id, name and image are required", i+1)
		}
		if prev, ok := seen[e.ID]; ok {
			return nil, fmt.Errorf("entry %d: duplicate id %q (first at entry %d)", i+1, e.ID, prev+1)
		}
		seen[e.ID] = i
		if !filepath.IsAbs(e.Image) {
			e.Image = filepath.Join(base, e.Image)
		}
	}

	return &m, nil
}

func runImport(cmd *cobra.Command, args []string) error {
	m, err := loadManifest(args[0])
	if err != nil {
		return err
	}
	if len(m.Identities) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Manifest has no identities")
		return nil
	}

	failFast := mustGetBool(cmd, "fail-fast")
	c := newClient()

	bar := progressbar.NewOptions(len(m.Identities),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionSetDescription("Enrolling"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("faces"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)

	var (
		enrolled int
		failures []string
	)
	for _, e := range m.Identities {
		err := enrollEntry(cmd.Context(), c, e)
		_ = bar.Add(1)
		if err == nil {
			enrolled++
			continue
		}
		failures = append(failures, fmt.Sprintf("%s: %v", e.ID, err))
		if failFast {
			break
		}
	}
	_ = bar.Finish()
	fmt.Fprintln(cmd.ErrOrStderr())

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Enrolled %d of %d identities\n", enrolled, len(m.Identities))
	for _, f := range failures {
		fmt.Fprintf(out, "  FAILED %s\n", f)
	}
	if len(failures) > 0 {
		return fmt.Errorf("%d enrollments failed", len(failures))
	}
	return nil
}

func enrollEntry(ctx context.Context, c *client.Client, e ManifestEntry) error {
	image, err := os.ReadFile(e.Image)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}
	_, err = c.Enroll(ctx, e.ID, e.Name, e.Image, image)
	return err
}
