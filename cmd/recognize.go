package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	_ "image/png"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/kozaktomas/face-attendance/internal/face"
	"github.com/kozaktomas/face-attendance/internal/recognizer"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize <image-path> [image-path...]",
	Short: "Recognize faces in photos and mark attendance",
	Long: `Recognize faces in one or more photos against the enrolled gallery.

Every detected face is matched against the gallery. Accepted matches are
marked in the attendance table; a person already marked today is reported
without a duplicate record. Faces no enrolled identity is close enough to
are reported as Unknown.

Examples:
  face-attendance recognize ./frame.jpg
  face-attendance recognize ./frame.jpg --camera entrance
  face-attendance recognize ./frame.jpg --annotate annotated.jpg
  face-attendance recognize ./frame.jpg --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRecognize,
}

func init() {
	rootCmd.AddCommand(recognizeCmd)

	recognizeCmd.Flags().String("camera", "", "Camera name used to pick a calibrated threshold")
	recognizeCmd.Flags().Float64("threshold", 0, "Maximum embedding distance for a match (0 = configured value)")
	recognizeCmd.Flags().String("annotate", "", "Write a copy of the first image with labeled face boxes")
	recognizeCmd.Flags().Bool("json", false, "Output as JSON")
}

type recognizeReport struct {
	Path     string               `json:"path"`
	Faces    int                  `json:"faces"`
	Outcomes []recognizer.Outcome `json:"outcomes"`
}

func runRecognize(cmd *cobra.Command, args []string) error {
	camera := mustGetString(cmd, "camera")
	annotatePath := mustGetString(cmd, "annotate")
	asJSON := mustGetBool(cmd, "json")

	ctx := context.Background()
	s, err := buildStack(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	threshold := mustGetFloat64(cmd, "threshold")
	if threshold <= 0 {
		threshold = s.cfg.ThresholdFor(camera)
	}
	coordinator := recognizer.New(s.gallery, s.ledger, threshold)

	var reports []recognizeReport
	for i, path := range args {
		frame, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("cannot read image %s: %w", path, err)
		}

		detections, err := s.extractor.Detect(ctx, frame)
		if err != nil {
			return fmt.Errorf("face extraction failed for %s: %w", path, err)
		}

		outcomes := coordinator.Process(ctx, detections)
		reports = append(reports, recognizeReport{
			Path:     path,
			Faces:    len(detections),
			Outcomes: outcomes,
		})

		if i == 0 && annotatePath != "" {
			if err := writeAnnotated(frame, outcomes, annotatePath); err != nil {
				return fmt.Errorf("writing annotated image: %w", err)
			}
		}
	}

	if asJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(reports)
	}

	for _, report := range reports {
		printRecognizeReport(report)
	}
	return nil
}

func printRecognizeReport(report recognizeReport) {
	fmt.Printf("%s: %d face(s)\n", report.Path, report.Faces)
	for _, outcome := range report.Outcomes {
		switch outcome.Decision {
		case recognizer.Accepted:
			status := "already marked today"
			if outcome.Marked {
				status = "attendance marked"
			}
			if outcome.Err != nil {
				status = fmt.Sprintf("attendance could not be recorded: %v", outcome.Err)
			}
			fmt.Printf("  %s (%.1f%%) - %s\n", outcome.Name, outcome.Confidence(), status)
		case recognizer.Rejected:
			fmt.Printf("  Unknown (nearest distance %.3f)\n", outcome.Distance)
		case recognizer.NoGallery:
			fmt.Printf("  Face detected, but the gallery is empty\n")
		}
	}
}

// writeAnnotated draws a labeled box per outcome on the frame: green for
// accepted identities, red for unknown faces.
func writeAnnotated(frame []byte, outcomes []recognizer.Outcome, path string) error {
	img, _, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		return fmt.Errorf("decoding image: %w", err)
	}

	bounds := img.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, img, bounds.Min, draw.Src)

	green := color.RGBA{0, 200, 0, 255}
	red := color.RGBA{255, 0, 0, 255}

	for _, outcome := range outcomes {
		boxColor := red
		if outcome.Decision == recognizer.Accepted {
			boxColor = green
		}
		drawFaceBox(dst, outcome.Region, 3, boxColor)
		if label := outcomeLabel(outcome); label != "" {
			drawLabel(dst, label, outcome.Region, boxColor)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return jpeg.Encode(file, dst, &jpeg.Options{Quality: 90})
}

// outcomeLabel builds the overlay text for one detection. Accepted matches
// get the name with the confidence percentage, plus a marker when this
// sighting wrote today's attendance record; unknown faces get "Unknown".
func outcomeLabel(outcome recognizer.Outcome) string {
	switch outcome.Decision {
	case recognizer.Accepted:
		if outcome.Marked {
			return fmt.Sprintf("%s - Marked! (%.1f%%)", outcome.Name, outcome.Confidence())
		}
		return fmt.Sprintf("%s (%.1f%%)", outcome.Name, outcome.Confidence())
	case recognizer.Rejected:
		return "Unknown"
	default:
		return ""
	}
}

// drawLabel renders the label text just above the face box, or inside its
// top edge when the box touches the top of the frame.
func drawLabel(dst *image.RGBA, label string, region face.Region, c color.RGBA) {
	x := int(region.X1)
	y := int(region.Y1) - 6
	if y < basicfont.Face7x13.Ascent {
		y = int(region.Y1) + basicfont.Face7x13.Height + 4
	}

	drawer := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	drawer.DrawString(label)
}

// drawHLine draws a horizontal line on the image.
func drawHLine(dst *image.RGBA, x1, x2, y int, c color.RGBA) {
	bounds := dst.Bounds()
	if y < bounds.Min.Y || y >= bounds.Max.Y {
		return
	}
	for x := x1; x <= x2; x++ {
		if x >= bounds.Min.X && x < bounds.Max.X {
			dst.Set(x, y, c)
		}
	}
}

// drawVLine draws a vertical line on the image.
func drawVLine(dst *image.RGBA, y1, y2, x int, c color.RGBA) {
	bounds := dst.Bounds()
	if x < bounds.Min.X || x >= bounds.Max.X {
		return
	}
	for y := y1; y <= y2; y++ {
		if y >= bounds.Min.Y && y < bounds.Max.Y {
			dst.Set(x, y, c)
		}
	}
}

// drawFaceBox draws a rectangle around a face region.
func drawFaceBox(dst *image.RGBA, region face.Region, lineWidth int, c color.RGBA) {
	x1 := int(region.X1)
	y1 := int(region.Y1)
	x2 := int(region.X2)
	y2 := int(region.Y2)

	for w := 0; w < lineWidth; w++ {
		drawHLine(dst, x1, x2, y1+w, c)
		drawHLine(dst, x1, x2, y2-w, c)
		drawVLine(dst, y1, y2, x1+w, c)
		drawVLine(dst, y1, y2, x2-w, c)
	}
}
