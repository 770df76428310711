package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rabbitglauser/Cardano-Validator-CLI-Toolkit/internal/app"
)

var (
	analyzePoolID  string
	analyzeEpochs  int
	analyzeArchive bool
	analyzeJSON    string
	analyzeCSV     string
	analyzePNG     string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze multi-epoch performance trends",
	RunE: func(cmd *cobra.Command, args []string) error {
		if analyzeEpochs != 0 && analyzeEpochs < 2 {
			return fmt.Errorf("--epochs must be at least 2")
		}

		opts := app.AnalyzeOptions{
			PoolID:      analyzePoolID,
			Epochs:      analyzeEpochs,
			FromArchive: analyzeArchive,
			JSONPath:    analyzeJSON,
			CSVPath:     analyzeCSV,
			PNGPath:     analyzePNG,
		}
		return getApp().Analyze(cmd.Context(), opts)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzePoolID, "pool", "", "Analyze a single pool id (defaults to all configured pools)")
	analyzeCmd.Flags().IntVar(&analyzeEpochs, "epochs", 0, "Epoch window size (defaults to config)")
	analyzeCmd.Flags().BoolVar(&analyzeArchive, "from-archive", false, "Read history from the local database instead of the node API")
	analyzeCmd.Flags().StringVar(&analyzeJSON, "json", "", "Path to write the JSON report")
	analyzeCmd.Flags().StringVar(&analyzeCSV, "csv", "", "Path to write per-epoch CSV data")
	analyzeCmd.Flags().StringVar(&analyzePNG, "png", "", "Path to write a PNG chart")
}
