package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vulncontext/vulncontext-mcp/internal/scan"
)

var (
	parseInput   string
	parseContext bool
	parseJSON    bool
)

var parseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Extract vulnerability identifiers from scan output",
	Long: `Normalizes raw scan output (text or JSON; secret-bearing JSON keys are
redacted) and extracts OWASP, MITRE ATT&CK, and CVE identifiers in order of
first appearance. Reads from stdin when no input file is given.`,
	RunE: runParse,
}

func init() {
	parseCmd.Flags().StringVar(&parseInput, "in", "", "input file (default: stdin)")
	parseCmd.Flags().BoolVar(&parseContext, "context", false, "include surrounding text for each finding")
	parseCmd.Flags().BoolVar(&parseJSON, "json", false, "output as JSON instead of one identifier per line")
	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	var raw []byte
	var err error
	if parseInput != "" {
		raw, err = os.ReadFile(parseInput)
	} else {
		raw, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	normalized, err := scan.Normalize(string(raw))
	if err != nil {
		return err
	}

	if parseContext {
		findings := scan.ExtractWithContext(normalized, scan.DefaultContextChars)
		if parseJSON {
			return json.NewEncoder(os.Stdout).Encode(findings)
		}
		for _, f := range findings {
			fmt.Printf("%s\t%s\t%s\n", f.ID, f.Source, f.Description)
		}
		return nil
	}

	findings := scan.Extract(normalized)
	if parseJSON {
		return json.NewEncoder(os.Stdout).Encode(findings)
	}
	for _, f := range findings {
		fmt.Printf("%s\t%s\n", f.ID, f.Source)
	}
	return nil
}
