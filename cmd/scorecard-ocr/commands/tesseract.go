package commands

import (
	"github.com/spf13/cobra"
)

var (
	tessInput  string
	tessOutput string
	tessLang   string
	tessPSM    int
	tessOEM    int
	tessPDF    bool
	tessPath   string
	tessDriver string
)

var tesseractCmd = &cobra.Command{
	Use:   "tesseract",
	Short: "Recognise images with a local tesseract engine",
	Long: `Preprocess every image (grayscale, autocontrast, sharpen, contrast,
brightness, median filter), run tesseract under three segmentation profiles
and keep the longest result. Optionally writes a searchable PDF per image.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		if flags.Changed("lang") {
			cfg.Tesseract.Language = tessLang
		}
		if flags.Changed("psm") {
			cfg.Tesseract.PSM = tessPSM
		}
		if flags.Changed("oem") {
			cfg.Tesseract.OEM = tessOEM
		}
		if flags.Changed("pdf") {
			cfg.Tesseract.PDF = tessPDF
		}
		if flags.Changed("tesseract-path") {
			cfg.Tesseract.Path = tessPath
		}
		if flags.Changed("driver") {
			cfg.Tesseract.Driver = tessDriver
		}
		return runBatch(cmd.Context(), BackendTesseract, tessInput, tessOutput)
	},
}

func init() {
	addIOFlags(tesseractCmd, &tessInput, &tessOutput)
	tesseractCmd.Flags().StringVar(&tessLang, "lang", "eng", "tesseract language(s), e.g. eng or eng+fra")
	tesseractCmd.Flags().IntVar(&tessPSM, "psm", 6, "base page segmentation mode")
	tesseractCmd.Flags().IntVar(&tessOEM, "oem", 3, "OCR engine mode")
	tesseractCmd.Flags().BoolVar(&tessPDF, "pdf", false, "also write a searchable PDF per image")
	tesseractCmd.Flags().StringVar(&tessPath, "tesseract-path", "", "tesseract executable (default: PATH lookup)")
	tesseractCmd.Flags().StringVar(&tessDriver, "driver", "cli", "engine driver: cli or library (needs -tags gosseract)")
	rootCmd.AddCommand(tesseractCmd)
}
