package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "face-attendance",
	Short: "A face-recognition attendance system",
	Long: `Face Attendance enrolls people from face images, recognizes faces
against the enrolled gallery, and records at most one attendance event
per person per calendar day.

Feature extraction (detection, landmarking, descriptors) runs in an
external extractor service; this tool only handles embeddings.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
