package commands

import (
	"strings"

	"github.com/spf13/cobra"
)

var (
	easyInput      string
	easyOutput     string
	easyLangs      string
	easyGPU        bool
	easyDetail     bool
	easyURL        string
	easyPreprocess bool
)

var easyocrCmd = &cobra.Command{
	Use:   "easyocr",
	Short: "Recognise images with an EasyOCR sidecar",
	Long: `Send every image to a running EasyOCR sidecar. In detail mode the returned
fragments are grouped into lines by vertical position; otherwise the
sidecar's paragraphs are used as-is.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		if flags.Changed("lang") {
			cfg.EasyOCR.Languages = splitList(easyLangs)
		}
		if flags.Changed("gpu") {
			cfg.EasyOCR.GPU = easyGPU
		}
		if flags.Changed("detail") {
			cfg.EasyOCR.Detail = easyDetail
		}
		if flags.Changed("url") {
			cfg.EasyOCR.URL = easyURL
		}
		if flags.Changed("preprocess") {
			cfg.EasyOCR.Preprocess = easyPreprocess
		}
		return runBatch(cmd.Context(), BackendEasyOCR, easyInput, easyOutput)
	},
}

func init() {
	addIOFlags(easyocrCmd, &easyInput, &easyOutput)
	easyocrCmd.Flags().StringVar(&easyLangs, "lang", "en", "comma-separated EasyOCR language codes")
	easyocrCmd.Flags().BoolVar(&easyGPU, "gpu", false, "ask the sidecar to use the GPU")
	easyocrCmd.Flags().BoolVar(&easyDetail, "detail", true, "rebuild lines from positioned fragments")
	easyocrCmd.Flags().StringVar(&easyURL, "url", "", "sidecar base URL (default http://127.0.0.1:8866)")
	easyocrCmd.Flags().BoolVar(&easyPreprocess, "preprocess", false, "enhance images before upload")
	rootCmd.AddCommand(easyocrCmd)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
