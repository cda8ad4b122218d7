package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-stamper/stamper/pkg/stamper"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var stampCmd = &cobra.Command{
	Use:   "stamp <template.docx>",
	Short: "Stamp a template with data",
	Long: `Stamp reads a .docx template, evaluates its comment expressions and
inline placeholders against the data file, and writes the stamped
document. The data file may be YAML or JSON; without one the template
is stamped against empty data.`,
	Args: cobra.ExactArgs(1),
	RunE: runStamp,
}

func init() {
	rootCmd.AddCommand(stampCmd)

	stampCmd.Flags().StringP("data", "d", "", "YAML or JSON file with template data")
	stampCmd.Flags().StringP("output", "o", "", "Output path (default: <template>.out.docx)")
	stampCmd.Flags().Bool("lenient", false, "Keep failing placeholders in the output instead of aborting")
}

func runStamp(cmd *cobra.Command, args []string) error {
	templatePath := args[0]

	dataPath, _ := cmd.Flags().GetString("data")
	outputPath, _ := cmd.Flags().GetString("output")
	lenient, _ := cmd.Flags().GetBool("lenient")
	verbose, _ := cmd.Flags().GetBool("verbose")

	if outputPath == "" {
		ext := filepath.Ext(templatePath)
		outputPath = strings.TrimSuffix(templatePath, ext) + ".out" + ext
	}

	data, err := loadData(dataPath)
	if err != nil {
		return err
	}

	config := &stamper.Config{LenientPlaceholders: lenient}
	opts := []stamper.Option{stamper.WithConfig(config)}
	if verbose {
		config.LogLevel = "debug"
		opts = append(opts, stamper.WithLogger(stamper.NewLogger(os.Stderr, stamper.LogDebug)))
	}

	s := stamper.New(opts...)
	if err := s.StampFile(templatePath, data, outputPath); err != nil {
		return err
	}

	fmt.Printf("Stamped %s -> %s\n", templatePath, outputPath)
	return nil
}

func loadData(path string) (map[string]interface{}, error) {
	if path == "" {
		return nil, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	data := make(map[string]interface{})
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(content, &data); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(content, &data); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return data, nil
}
